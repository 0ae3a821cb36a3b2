package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/starford/kanbo/internal/apperr"
	"github.com/starford/kanbo/internal/board"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	return testDBWithDriver(t, DriverCGO)
}

func testDBWithDriver(t *testing.T, driver string) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "kanbo-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(driver, f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seedLayout(t *testing.T, db *DB) {
	t.Helper()
	err := db.UpsertLayout(context.Background(), LayoutRow{
		BoardID:  1,
		Name:     "Team",
		Path:     "team.md",
		Checksum: "c1",
		Columns:  []ColumnRow{{ID: 10, Name: "To Do"}, {ID: 11, Name: "Done"}},
	})
	if err != nil {
		t.Fatalf("UpsertLayout: %v", err)
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"boards", "board_columns", "cards", "logs"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestOpenPureGoDriver(t *testing.T) {
	db := testDBWithDriver(t, DriverPureGo)
	seedLayout(t, db)
	b, err := db.LoadBoard(context.Background(), 1)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	if len(b.Columns()) != 2 {
		t.Errorf("columns = %d, want 2", len(b.Columns()))
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open("postgres", filepath.Join(t.TempDir(), "x.db")); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestLoadMissingBoard(t *testing.T) {
	db := testDB(t)
	_, err := db.LoadBoard(context.Background(), 42)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)

	b, err := db.LoadBoard(ctx, 1)
	if err != nil {
		t.Fatalf("LoadBoard: %v", err)
	}
	actor := board.User{ID: 3}
	for _, c := range []string{"alpha", "beta", "gamma"} {
		if _, err := b.AddCard(0, c, actor); err != nil {
			t.Fatal(err)
		}
		if err := b.AddLog(board.ActionCreate, board.SubjectCard, actor, c, 0); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.MoveCard(0, 0, actor, board.MoveRequest{DestinationColumn: 1}); err != nil {
		t.Fatal(err)
	}
	if err := b.DeleteCard(0, 1, actor); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveBoard(ctx, b); err != nil {
		t.Fatalf("SaveBoard: %v", err)
	}

	got, err := db.LoadBoard(ctx, 1)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	todo := got.Columns()[0]
	done := got.Columns()[1]
	if todo.Len() != 2 || done.Len() != 1 {
		t.Fatalf("lens = %d/%d, want 2/1", todo.Len(), done.Len())
	}
	if todo.Cards[0].Content != "beta" || done.Cards[0].Content != "alpha" {
		t.Errorf("positions not preserved: %q %q", todo.Cards[0].Content, done.Cards[0].Content)
	}
	archived := todo.Cards[1]
	if !archived.Archived || archived.ArchivedAt == nil {
		t.Errorf("archival not preserved: %+v", archived)
	}
	if len(got.Logs()) != 5 {
		t.Fatalf("logs = %d, want 5", len(got.Logs()))
	}
	for i, l := range got.Logs() {
		if l.Seq != int64(i+1) {
			t.Errorf("log %d seq = %d", i, l.Seq)
		}
		if l.ID != b.Logs()[i].ID {
			t.Errorf("log %d id changed", i)
		}
	}
	last := got.Logs()[4]
	if last.Action != board.ActionDelete || last.AfterContent != nil || *last.BeforeContent != "gamma" {
		t.Errorf("delete log not round-tripped: %+v", last)
	}

	// New cards continue the id sequence after reload.
	c, err := got.AddCard(1, "delta", actor)
	if err != nil {
		t.Fatal(err)
	}
	if c.ID != 4 {
		t.Errorf("next card id = %d, want 4", c.ID)
	}
}

func TestSaveIsIdempotentForLogs(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)

	b, _ := db.LoadBoard(ctx, 1)
	actor := board.User{ID: 1}
	_, _ = b.AddCard(0, "x", actor)
	_ = b.AddLog(board.ActionCreate, board.SubjectCard, actor, "x", 0)
	if err := db.SaveBoard(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveBoard(ctx, b); err != nil {
		t.Fatalf("second save: %v", err)
	}
	h, err := db.History(ctx, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 1 {
		t.Errorf("history = %d entries, want 1", len(h))
	}
}

func TestHistoryMostRecentFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)

	b, _ := db.LoadBoard(ctx, 1)
	b.SetClock(func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) })
	actor := board.User{ID: 1}
	_, _ = b.AddCard(0, "x", actor)
	_ = b.AddLog(board.ActionCreate, board.SubjectCard, actor, "x", 0)
	_ = b.UpdateCard(0, 0, "y", actor)
	_ = db.SaveBoard(ctx, b)

	h, err := db.History(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(h) != 2 || h[0].Action != board.ActionEdit || h[1].Action != board.ActionCreate {
		t.Fatalf("history order wrong: %+v", h)
	}

	if _, err := db.History(ctx, 99, 10); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("history of missing board: %v", err)
	}
}

func TestSaveUnknownBoard(t *testing.T) {
	db := testDB(t)
	b := board.NewBoard(5, "ghost")
	if err := db.SaveBoard(context.Background(), b); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListBoards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)
	b, _ := db.LoadBoard(ctx, 1)
	actor := board.User{ID: 1}
	_, _ = b.AddCard(0, "a", actor)
	_, _ = b.AddCard(0, "b", actor)
	_ = b.DeleteCard(0, 0, actor)
	_ = db.SaveBoard(ctx, b)

	list, err := db.ListBoards(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 {
		t.Fatalf("boards = %d", len(list))
	}
	if list[0].Columns != 2 || list[0].Cards != 1 {
		t.Errorf("summary = %+v", list[0])
	}
}

func TestUpsertLayoutRetiresColumns(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)

	b, _ := db.LoadBoard(ctx, 1)
	_, _ = b.AddCard(1, "keep me", board.User{ID: 1})
	_ = db.SaveBoard(ctx, b)

	// Drop both columns from the layout, add a new one.
	err := db.UpsertLayout(ctx, LayoutRow{
		BoardID:  1,
		Name:     "Team v2",
		Path:     "team.md",
		Checksum: "c2",
		Columns:  []ColumnRow{{ID: 12, Name: "Backlog"}},
	})
	if err != nil {
		t.Fatalf("UpsertLayout: %v", err)
	}

	got, _ := db.LoadBoard(ctx, 1)
	if got.Name != "Team v2" {
		t.Errorf("name = %q", got.Name)
	}
	cols := got.Columns()
	if len(cols) != 2 {
		t.Fatalf("columns = %d, want 2 (declared + non-empty retired)", len(cols))
	}
	if cols[0].ID != 12 || cols[1].ID != 11 {
		t.Errorf("column order = %d,%d", cols[0].ID, cols[1].ID)
	}
	if cols[1].Cards[0].Content != "keep me" {
		t.Error("card lost on layout change")
	}

	sums, err := db.LayoutChecksums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if sums["team.md"] != "c2" {
		t.Errorf("checksum = %q", sums["team.md"])
	}
}

func TestUpsertLayoutColumnOwnedElsewhere(t *testing.T) {
	db := testDB(t)
	seedLayout(t, db)
	err := db.UpsertLayout(context.Background(), LayoutRow{
		BoardID: 2,
		Name:    "Other",
		Columns: []ColumnRow{{ID: 10, Name: "stolen"}},
	})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestSaveAfterColumnRemovedConflicts(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)

	stale, _ := db.LoadBoard(ctx, 1)

	// Column 11 is empty, so the new layout deletes it outright.
	err := db.UpsertLayout(ctx, LayoutRow{
		BoardID:  1,
		Name:     "Team",
		Path:     "team.md",
		Checksum: "c2",
		Columns:  []ColumnRow{{ID: 10, Name: "To Do"}},
	})
	if err != nil {
		t.Fatalf("UpsertLayout: %v", err)
	}

	if _, err := stale.AddCard(1, "late", board.User{ID: 1}); err != nil {
		t.Fatalf("AddCard: %v", err)
	}
	if err := db.SaveBoard(ctx, stale); !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	got, _ := db.LoadBoard(ctx, 1)
	if cols := got.Columns(); len(cols) != 1 || len(cols[0].Cards) != 0 {
		t.Errorf("rejected save changed cards: %+v", cols)
	}
	if len(got.Logs()) != 0 {
		t.Errorf("rejected save stored %d log entries", len(got.Logs()))
	}
}

func TestSearchCards(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seedLayout(t, db)
	b, _ := db.LoadBoard(ctx, 1)
	actor := board.User{ID: 1}
	_, _ = b.AddCard(0, "buy oat milk", actor)
	_, _ = b.AddCard(0, "walk the dog", actor)
	_, _ = b.AddCard(1, "milk the cow", actor)
	_ = b.DeleteCard(1, 0, actor)
	_ = db.SaveBoard(ctx, b)

	hits, err := db.SearchCards(ctx, 1, "milk", 10)
	if err != nil {
		t.Fatalf("SearchCards: %v", err)
	}
	if len(hits) != 1 || hits[0].CardID != 1 {
		t.Errorf("hits = %+v, want only card 1", hits)
	}
}
