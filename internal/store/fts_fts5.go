//go:build sqlite_fts5

package store

import (
	"context"
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS cards_fts USING fts5(
			board_id UNINDEXED,
			card_id UNINDEXED,
			column_id UNINDEXED,
			content,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsReplaceBoard(ctx context.Context, tx *sql.Tx, boardID int64, cards []ftsCard) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards_fts WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("store: clear fts: %w", err)
	}
	for _, c := range cards {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO cards_fts (board_id, card_id, column_id, content) VALUES (?, ?, ?, ?)`,
			boardID, c.id, c.columnID, c.content); err != nil {
			return fmt.Errorf("store: upsert fts: %w", err)
		}
	}
	return nil
}

// SearchCards performs an FTS5 search over live cards of a board.
func (db *DB) SearchCards(ctx context.Context, boardID int64, query string, limit int) ([]CardHit, error) {
	if limit <= 0 {
		limit = 20
	}
	if err := db.boardExists(ctx, boardID); err != nil {
		return nil, err
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT card_id,
		       column_id,
		       snippet(cards_fts, 3, '<b>', '</b>', '...', 32)
		FROM cards_fts
		WHERE cards_fts MATCH ? AND board_id = ?
		ORDER BY rank
		LIMIT ?
	`, query, boardID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: search: %w", err)
	}
	return scanHits(rows)
}
