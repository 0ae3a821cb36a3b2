// Package store persists board aggregates in SQLite, with optional FTS5
// full-text search over card content.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverCGO    = "sqlite3" // github.com/mattn/go-sqlite3
	DriverPureGo = "sqlite"  // modernc.org/sqlite
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS boards (
	id          INTEGER PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	layout_path TEXT NOT NULL DEFAULT '',
	checksum    TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS board_columns (
	id       INTEGER PRIMARY KEY,
	board_id INTEGER NOT NULL REFERENCES boards(id),
	name     TEXT NOT NULL,
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
	board_id    INTEGER NOT NULL REFERENCES boards(id),
	id          INTEGER NOT NULL,
	column_id   INTEGER NOT NULL REFERENCES board_columns(id),
	position    INTEGER NOT NULL,
	content     TEXT NOT NULL,
	archived    INTEGER NOT NULL DEFAULT 0,
	created_by  INTEGER NOT NULL,
	updated_by  INTEGER NOT NULL,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	archived_at TEXT,
	PRIMARY KEY (board_id, id)
);

CREATE TABLE IF NOT EXISTS logs (
	id                    TEXT PRIMARY KEY,
	board_id              INTEGER NOT NULL REFERENCES boards(id),
	seq                   INTEGER NOT NULL,
	action                TEXT NOT NULL,
	subject_type          TEXT NOT NULL,
	before_content        TEXT,
	after_content         TEXT,
	before_subject_id     INTEGER,
	after_subject_id      INTEGER,
	source_column_id      INTEGER NOT NULL,
	destination_column_id INTEGER NOT NULL,
	actor_user_id         INTEGER NOT NULL,
	occurred_at           TEXT NOT NULL,
	UNIQUE(board_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_columns_board ON board_columns(board_id, position);
CREATE INDEX IF NOT EXISTS idx_cards_column ON cards(column_id, position);
`

// DB wraps a sql.DB with board persistence operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database with the given driver and
// applies the schema. An empty driver selects DriverCGO.
func Open(driver, path string) (*DB, error) {
	if driver == "" {
		driver = DriverCGO
	}
	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	// SQLite allows one writer; a single connection keeps transactions
	// from tripping over SQLITE_BUSY.
	conn.SetMaxOpenConns(1)
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("store: apply fts schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

func buildDSN(driver, path string) (string, error) {
	switch driver {
	case DriverCGO:
		return path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", nil
	case DriverPureGo:
		return path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", nil
	default:
		return "", fmt.Errorf("store: unsupported driver %q", driver)
	}
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
