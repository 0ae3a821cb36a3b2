package layout

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/kanbo/internal/storage"
	"github.com/starford/kanbo/internal/store"
)

const debounce = 200 * time.Millisecond

// AppliedCallback is called with the path of each layout applied by Watch.
type AppliedCallback func(path string)

// Watch follows the layouts directory with fsnotify and re-runs Sync after
// each burst of changes until ctx is cancelled. New directories are added to
// the watch list as they appear.
func Watch(ctx context.Context, db store.BoardStore, provider storage.Provider, root string, logger *slog.Logger, cb AppliedCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("layout watcher: started", slog.String("root", root))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("layout watcher: stopped")
			return nil

		case <-fire:
			applied, err := Sync(ctx, db, provider, logger)
			if err != nil {
				logger.Warn("layout watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			for _, p := range applied {
				logger.Info("layout watcher: applied", slog.String("path", p))
				if cb != nil {
					cb(p)
				}
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("layout watcher: add dir failed",
							slog.String("path", ev.Name),
							slog.String("error", addErr.Error()))
					}
					schedule()
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, storage.LayoutExt) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("layout watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and all its subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
