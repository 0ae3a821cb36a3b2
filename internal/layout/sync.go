package layout

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/kanbo/internal/storage"
	"github.com/starford/kanbo/internal/store"
)

// Sync walks the layouts directory and brings board structure up to date.
// Files whose checksum matches the stored one are skipped; invalid files are
// logged and skipped. It returns the paths that were applied.
//
// Boards whose layout file disappeared are kept: they may hold cards.
func Sync(ctx context.Context, db store.BoardStore, fs storage.Provider, logger *slog.Logger) ([]string, error) {
	metas, err := fs.List("")
	if err != nil {
		return nil, err
	}
	checksums, err := db.LayoutChecksums(ctx)
	if err != nil {
		return nil, err
	}

	var applied []string
	onDisk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		onDisk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}
		if err := applyFile(ctx, db, fs, m.Path, m.Checksum); err != nil {
			logger.Warn("layout sync: apply failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("layout sync: applied", slog.String("path", m.Path))
		applied = append(applied, m.Path)
	}

	for p := range checksums {
		if _, ok := onDisk[p]; !ok {
			logger.Warn("layout sync: layout file removed, board kept", slog.String("path", p))
		}
	}
	return applied, nil
}

func applyFile(ctx context.Context, db store.BoardStore, fs storage.Provider, path, sum string) error {
	data, err := fs.Read(path)
	if err != nil {
		return err
	}
	l, err := Parse(data)
	if err != nil {
		return err
	}
	row := store.LayoutRow{
		BoardID:     l.ID,
		Name:        l.Name,
		Description: l.Description,
		Path:        path,
		Checksum:    sum,
	}
	for _, c := range l.Columns {
		row.Columns = append(row.Columns, store.ColumnRow{ID: c.ID, Name: c.Name})
	}
	if err := db.UpsertLayout(ctx, row); err != nil {
		return fmt.Errorf("board %d: %w", l.ID, err)
	}
	return nil
}
