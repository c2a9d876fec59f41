// Package catalog provides the SQLite-backed record of classified notes:
// template types, hierarchy placement, and audit findings.
package catalog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS notes (
	path           TEXT PRIMARY KEY,
	title          TEXT NOT NULL DEFAULT '',
	template_type  TEXT NOT NULL DEFAULT '',
	program        TEXT NOT NULL DEFAULT '',
	course         TEXT NOT NULL DEFAULT '',
	class          TEXT NOT NULL DEFAULT '',
	module         TEXT NOT NULL DEFAULT '',
	lesson         TEXT NOT NULL DEFAULT '',
	checksum       TEXT NOT NULL DEFAULT '',
	missing_fields TEXT NOT NULL DEFAULT '[]',
	reserved_tags  TEXT NOT NULL DEFAULT '[]',
	updated_at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_notes_template_type ON notes(template_type);
CREATE INDEX IF NOT EXISTS idx_notes_hierarchy ON notes(program, course, class, module);
`

// DB wraps a sql.DB with catalog-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("catalog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("catalog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
