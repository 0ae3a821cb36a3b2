package store

import (
	"context"

	"github.com/starford/kanbo/internal/board"
)

// BoardStore defines the persistence operations consumers depend on.
// Depend on this interface rather than *DB to substitute fakes in tests.
type BoardStore interface {
	LoadBoard(ctx context.Context, id int64) (*board.Board, error)
	SaveBoard(ctx context.Context, b *board.Board) error
	ListBoards(ctx context.Context) ([]BoardSummary, error)
	History(ctx context.Context, boardID int64, limit int) ([]board.LogEntry, error)
	SearchCards(ctx context.Context, boardID int64, query string, limit int) ([]CardHit, error)
	UpsertLayout(ctx context.Context, l LayoutRow) error
	LayoutChecksums(ctx context.Context) (map[string]string, error)
	Close() error
}

// Verify *DB satisfies BoardStore at compile time.
var _ BoardStore = (*DB)(nil)
