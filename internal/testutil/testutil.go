// Package testutil provides shared test helpers for layouts and databases.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/kanbo/internal/storage"
	"github.com/starford/kanbo/internal/store"
)

// TestStore creates a temporary SQLite database that is cleaned up with t.
func TestStore(t *testing.T) *store.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "kanbo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := store.Open(store.DriverCGO, dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestLayouts creates a temporary layouts directory with a storage.Provider.
func TestLayouts(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, fs
}

// WriteLayout writes a layout file under dir, creating parent directories.
// rel uses forward slashes.
func WriteLayout(t *testing.T, dir, rel, content string) {
	t.Helper()
	abs := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// TeamLayout is a two-column layout for board 1 (columns 10 and 11).
const TeamLayout = `---
id: 1
name: Team
columns:
  - id: 10
    name: To Do
  - id: 11
    name: Done
---
Team board.
`
