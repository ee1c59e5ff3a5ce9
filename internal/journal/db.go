// Package journal keeps an append-only sqlite log of every lifecycle
// operation vhdm performs (create, attach, format, mount, unmount, detach,
// resize, delete). Unlike the bounded detach history in the tracking
// database, the journal is unbounded and purely forensic: commands write
// to it on success and nothing else reads it on the hot path. A journal
// failure never fails the operation that produced it.
package journal

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Journal provides sqlite-backed operation logging.
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database at dbPath and ensures the
// schema exists. Use ":memory:" for in-memory databases (useful for
// testing).
func Open(dbPath string) (*Journal, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	// SQLite only allows one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create journal schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}
