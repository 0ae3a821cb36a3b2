package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/starford/kanbo/internal/apperr"
	"github.com/starford/kanbo/internal/board"
)

const timeLayout = time.RFC3339Nano

// BoardSummary is a lightweight row returned by ListBoards.
type BoardSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Columns     int    `json:"columns"`
	Cards       int    `json:"cards"`
}

// LoadBoard reads the full aggregate, archived cards and the whole log
// included. Returns apperr.ErrNotFound when the board does not exist.
func (db *DB) LoadBoard(ctx context.Context, id int64) (*board.Board, error) {
	var name string
	err := db.conn.QueryRowContext(ctx, `SELECT name FROM boards WHERE id = ?`, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load board: %w", err)
	}

	columns, err := db.loadColumns(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := db.queryLogs(ctx, `
		SELECT id, seq, action, subject_type, before_content, after_content,
		       before_subject_id, after_subject_id, source_column_id,
		       destination_column_id, actor_user_id, occurred_at
		FROM logs WHERE board_id = ? ORDER BY seq ASC`, id)
	if err != nil {
		return nil, err
	}
	return board.Restore(id, name, columns, logs), nil
}

func (db *DB) loadColumns(ctx context.Context, boardID int64) ([]*board.Column, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name FROM board_columns WHERE board_id = ? ORDER BY position ASC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("store: load columns: %w", err)
	}
	defer rows.Close()

	var columns []*board.Column
	byID := make(map[int64]*board.Column)
	for rows.Next() {
		var colID int64
		var name string
		if err := rows.Scan(&colID, &name); err != nil {
			return nil, err
		}
		col := board.NewColumn(colID, name)
		columns = append(columns, col)
		byID[colID] = col
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cardRows, err := db.conn.QueryContext(ctx, `
		SELECT id, column_id, content, archived, created_by, updated_by,
		       created_at, updated_at, archived_at
		FROM cards WHERE board_id = ? ORDER BY column_id, position ASC`, boardID)
	if err != nil {
		return nil, fmt.Errorf("store: load cards: %w", err)
	}
	defer cardRows.Close()

	for cardRows.Next() {
		var (
			c                board.Card
			colID            int64
			created, updated string
			archivedAt       sql.NullString
		)
		if err := cardRows.Scan(&c.ID, &colID, &c.Content, &c.Archived, &c.CreatedBy, &c.UpdatedBy,
			&created, &updated, &archivedAt); err != nil {
			return nil, err
		}
		if c.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("store: card %d created_at: %w", c.ID, err)
		}
		if c.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
			return nil, fmt.Errorf("store: card %d updated_at: %w", c.ID, err)
		}
		if archivedAt.Valid {
			at, err := time.Parse(timeLayout, archivedAt.String)
			if err != nil {
				return nil, fmt.Errorf("store: card %d archived_at: %w", c.ID, err)
			}
			c.ArchivedAt = &at
		}
		col, ok := byID[colID]
		if !ok {
			return nil, fmt.Errorf("store: card %d references unknown column %d", c.ID, colID)
		}
		col.Cards = append(col.Cards, &c)
	}
	return columns, cardRows.Err()
}

// checkColumns rejects a save when a layout sync removed one of the board's
// columns after the board was loaded.
func checkColumns(ctx context.Context, tx *sql.Tx, b *board.Board) error {
	for _, col := range b.Columns() {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT count(*) FROM board_columns WHERE id = ? AND board_id = ?`, col.ID, b.ID).Scan(&n)
		if err != nil {
			return fmt.Errorf("store: check column %d: %w", col.ID, err)
		}
		if n == 0 {
			return fmt.Errorf("store: column %d no longer on board %d: %w", col.ID, b.ID, apperr.ErrConflict)
		}
	}
	return nil
}

// SaveBoard writes the board's cards in their current positions and appends
// any log entries not stored yet, in one transaction. Returns
// apperr.ErrConflict when a column was removed since the board was loaded.
func (db *DB) SaveBoard(ctx context.Context, b *board.Board) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM boards WHERE id = ?`, b.ID).Scan(&exists); err != nil {
		return fmt.Errorf("store: check board: %w", err)
	}
	if exists == 0 {
		return apperr.ErrNotFound
	}
	if err := checkColumns(ctx, tx, b); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM cards WHERE board_id = ?`, b.ID); err != nil {
		return fmt.Errorf("store: clear cards: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cards (board_id, id, column_id, position, content, archived,
		                   created_by, updated_by, created_at, updated_at, archived_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare card insert: %w", err)
	}
	defer stmt.Close()

	var live []ftsCard
	for _, col := range b.Columns() {
		for pos, c := range col.Cards {
			var archivedAt sql.NullString
			if c.ArchivedAt != nil {
				archivedAt = sql.NullString{String: c.ArchivedAt.UTC().Format(timeLayout), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, b.ID, c.ID, col.ID, pos, c.Content, c.Archived,
				c.CreatedBy, c.UpdatedBy, c.CreatedAt.UTC().Format(timeLayout),
				c.UpdatedAt.UTC().Format(timeLayout), archivedAt); err != nil {
				return fmt.Errorf("store: insert card %d: %w", c.ID, err)
			}
			if !c.Archived {
				live = append(live, ftsCard{id: c.ID, columnID: col.ID, content: c.Content})
			}
		}
	}
	if err := ftsReplaceBoard(ctx, tx, b.ID, live); err != nil {
		return err
	}

	logStmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO logs (id, board_id, seq, action, subject_type,
		                            before_content, after_content, before_subject_id,
		                            after_subject_id, source_column_id,
		                            destination_column_id, actor_user_id, occurred_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("store: prepare log insert: %w", err)
	}
	defer logStmt.Close()

	for _, l := range b.Logs() {
		if _, err := logStmt.ExecContext(ctx, l.ID.String(), b.ID, l.Seq, string(l.Action), l.SubjectType,
			l.BeforeContent, l.AfterContent, l.BeforeSubjectID, l.AfterSubjectID,
			l.SourceColumnID, l.DestinationColumnID, l.ActorUserID,
			l.OccurredAt.UTC().Format(timeLayout)); err != nil {
			return fmt.Errorf("store: insert log %d: %w", l.Seq, err)
		}
	}

	return tx.Commit()
}

// ListBoards returns every board with column and live card counts.
func (db *DB) ListBoards(ctx context.Context) ([]BoardSummary, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT b.id, b.name, b.description,
		       (SELECT count(*) FROM board_columns c WHERE c.board_id = b.id),
		       (SELECT count(*) FROM cards k WHERE k.board_id = b.id AND k.archived = 0)
		FROM boards b ORDER BY b.id`)
	if err != nil {
		return nil, fmt.Errorf("store: list boards: %w", err)
	}
	defer rows.Close()

	out := []BoardSummary{}
	for rows.Next() {
		var s BoardSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Description, &s.Columns, &s.Cards); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// History returns up to limit log entries of a board, most recent first.
func (db *DB) History(ctx context.Context, boardID int64, limit int) ([]board.LogEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	if err := db.boardExists(ctx, boardID); err != nil {
		return nil, err
	}
	logs, err := db.queryLogs(ctx, `
		SELECT id, seq, action, subject_type, before_content, after_content,
		       before_subject_id, after_subject_id, source_column_id,
		       destination_column_id, actor_user_id, occurred_at
		FROM logs WHERE board_id = ? ORDER BY seq DESC LIMIT ?`, boardID, limit)
	if err != nil {
		return nil, err
	}
	if logs == nil {
		logs = []board.LogEntry{}
	}
	return logs, nil
}

func (db *DB) boardExists(ctx context.Context, boardID int64) error {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT count(*) FROM boards WHERE id = ?`, boardID).Scan(&n); err != nil {
		return fmt.Errorf("store: check board: %w", err)
	}
	if n == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (db *DB) queryLogs(ctx context.Context, query string, args ...any) ([]board.LogEntry, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query logs: %w", err)
	}
	defer rows.Close()

	var out []board.LogEntry
	for rows.Next() {
		var (
			l                 board.LogEntry
			id, action        string
			before, after     sql.NullString
			beforeID, afterID sql.NullInt64
			occurred          string
		)
		if err := rows.Scan(&id, &l.Seq, &action, &l.SubjectType, &before, &after,
			&beforeID, &afterID, &l.SourceColumnID, &l.DestinationColumnID,
			&l.ActorUserID, &occurred); err != nil {
			return nil, err
		}
		if l.ID, err = ulid.Parse(id); err != nil {
			return nil, fmt.Errorf("store: log id %q: %w", id, err)
		}
		if l.OccurredAt, err = time.Parse(timeLayout, occurred); err != nil {
			return nil, fmt.Errorf("store: log %s occurred_at: %w", id, err)
		}
		l.Action = board.Action(action)
		l.BeforeContent = nullString(before)
		l.AfterContent = nullString(after)
		l.BeforeSubjectID = nullInt(beforeID)
		l.AfterSubjectID = nullInt(afterID)
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func nullInt(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
