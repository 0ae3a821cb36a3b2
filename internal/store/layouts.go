package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/kanbo/internal/apperr"
)

// LayoutRow is the declared structure of one board: its identity, name and
// column sequence. Cards are never part of a layout.
type LayoutRow struct {
	BoardID     int64
	Name        string
	Description string
	Path        string
	Checksum    string
	Columns     []ColumnRow
}

// ColumnRow is one declared column.
type ColumnRow struct {
	ID   int64
	Name string
}

// UpsertLayout creates or updates a board and its columns. Declared columns
// take positions in declaration order. Columns no longer declared are removed
// when empty and otherwise kept after the declared ones, so no card is lost.
func (db *DB) UpsertLayout(ctx context.Context, l LayoutRow) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.ExecContext(ctx, `
		INSERT INTO boards (id, name, description, layout_path, checksum)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name        = excluded.name,
			description = excluded.description,
			layout_path = excluded.layout_path,
			checksum    = excluded.checksum
	`, l.BoardID, l.Name, l.Description, l.Path, l.Checksum)
	if err != nil {
		return fmt.Errorf("store: upsert board: %w", err)
	}

	declared := make(map[int64]struct{}, len(l.Columns))
	for pos, col := range l.Columns {
		var owner int64
		err := tx.QueryRowContext(ctx, `SELECT board_id FROM board_columns WHERE id = ?`, col.ID).Scan(&owner)
		switch {
		case errors.Is(err, sql.ErrNoRows):
		case err != nil:
			return fmt.Errorf("store: column owner: %w", err)
		case owner != l.BoardID:
			return fmt.Errorf("store: column %d belongs to board %d: %w", col.ID, owner, apperr.ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO board_columns (id, board_id, name, position)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name     = excluded.name,
				position = excluded.position
		`, col.ID, l.BoardID, col.Name, pos); err != nil {
			return fmt.Errorf("store: upsert column %d: %w", col.ID, err)
		}
		declared[col.ID] = struct{}{}
	}

	if err := retireColumns(ctx, tx, l.BoardID, declared, len(l.Columns)); err != nil {
		return err
	}
	return tx.Commit()
}

func retireColumns(ctx context.Context, tx *sql.Tx, boardID int64, declared map[int64]struct{}, next int) error {
	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, (SELECT count(*) FROM cards k WHERE k.column_id = c.id)
		FROM board_columns c WHERE c.board_id = ? ORDER BY c.position`, boardID)
	if err != nil {
		return fmt.Errorf("store: list columns: %w", err)
	}
	type stale struct {
		id    int64
		cards int
	}
	var extra []stale
	for rows.Next() {
		var s stale
		if err := rows.Scan(&s.id, &s.cards); err != nil {
			rows.Close()
			return err
		}
		if _, ok := declared[s.id]; !ok {
			extra = append(extra, s)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, s := range extra {
		if s.cards == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM board_columns WHERE id = ?`, s.id); err != nil {
				return fmt.Errorf("store: delete column %d: %w", s.id, err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE board_columns SET position = ? WHERE id = ?`, next, s.id); err != nil {
			return fmt.Errorf("store: park column %d: %w", s.id, err)
		}
		next++
	}
	return nil
}

// LayoutChecksums maps every stored layout path to its last synced checksum.
func (db *DB) LayoutChecksums(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT layout_path, checksum FROM boards WHERE layout_path != ''`)
	if err != nil {
		return nil, fmt.Errorf("store: layout checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
