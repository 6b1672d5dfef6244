package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS quotes (
	id                       TEXT PRIMARY KEY,
	text                     TEXT NOT NULL DEFAULT '',
	creator                  TEXT NOT NULL DEFAULT '',
	description_of_how_found TEXT NOT NULL DEFAULT '',
	interpretation           TEXT NOT NULL DEFAULT '',
	image_data               BLOB,
	date_created             INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS quotes_date_created ON quotes (date_created DESC, id DESC);
`

// Open opens (or creates) a SQLite database at path with WAL journaling.
func Open(path string) (*sql.DB, error) {
	// parent must exist or the driver fails with SQLITE_CANTOPEN
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// a single writer keeps SQLITE_BUSY out of the session's request path
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging sqlite: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the quotes table and index if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("applying schema: %w", err)
	}

	return nil
}
