//go:build !sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not available; card search uses LIKE on cards.content.
	return nil
}

func ftsReplaceBoard(_ context.Context, _ *sql.Tx, _ int64, _ []ftsCard) error {
	return nil
}

// SearchCards performs a LIKE-based search over live cards of a board.
func (db *DB) SearchCards(ctx context.Context, boardID int64, query string, limit int) ([]CardHit, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := db.boardExists(ctx, boardID); err != nil {
		return nil, err
	}
	like := "%" + query + "%"
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, column_id, substr(content, 1, 200)
		FROM cards
		WHERE board_id = ? AND archived = 0 AND content LIKE ?
		ORDER BY id
		LIMIT ?
	`, boardID, like, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return scanHits(rows)
}
