// Package ledger provides a SQLite-backed record of document ingestions.
// The vector store remains the source of truth for what is searchable; the
// ledger exists so operators can list what was ingested, when, and how many
// chunks each document produced, without querying Qdrant.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // register "sqlite" driver
)

// Entry records one ingested document.
type Entry struct {
	// Source is the normalized document filename.
	Source string
	// Chunks is the number of chunks the document split into.
	Chunks int
	// Bytes is the size of the extracted text.
	Bytes int
	// IngestedAt is when the most recent ingestion of this source completed.
	IngestedAt time.Time
}

// Ledger persists ingestion records. Implementations must be safe for
// concurrent use.
type Ledger interface {
	// Record upserts the entry for a source. Re-ingesting a document
	// replaces its previous entry.
	Record(ctx context.Context, e Entry) error
	// List returns all entries ordered by source name.
	List(ctx context.Context) ([]Entry, error)
	// Clear removes every entry.
	Clear(ctx context.Context) error
	// Close releases any resources held by the ledger.
	Close() error
}

// SQLiteLedger is a Ledger backed by a local SQLite database.
type SQLiteLedger struct {
	db *sql.DB
}

// DefaultDBPath returns the default path for the ingestion ledger database.
// It resolves to ~/.docqa/ledger.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("ledger: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".docqa")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("ledger: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "ledger.db"), nil
}

// Open opens (or creates) a SQLiteLedger at the given path and runs the
// schema migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*SQLiteLedger, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("ledger: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	l := &SQLiteLedger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

// migrate creates the schema if it does not already exist.
func (l *SQLiteLedger) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS ingestions (
    source       TEXT    PRIMARY KEY,
    chunks       INTEGER NOT NULL,
    bytes        INTEGER NOT NULL,
    ingested_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
`
	if _, err := l.db.Exec(ddl); err != nil {
		return fmt.Errorf("ledger: migrate: %w", err)
	}
	return nil
}

// Record upserts the entry for a source.
func (l *SQLiteLedger) Record(ctx context.Context, e Entry) error {
	const q = `
INSERT INTO ingestions (source, chunks, bytes, ingested_at) VALUES (?, ?, ?, ?)
ON CONFLICT(source) DO UPDATE SET
    chunks = excluded.chunks,
    bytes = excluded.bytes,
    ingested_at = excluded.ingested_at`

	at := e.IngestedAt
	if at.IsZero() {
		at = time.Now()
	}
	if _, err := l.db.ExecContext(ctx, q, e.Source, e.Chunks, e.Bytes, at.Unix()); err != nil {
		return fmt.Errorf("ledger: record %s: %w", e.Source, err)
	}
	return nil
}

// List returns all entries ordered by source name.
func (l *SQLiteLedger) List(ctx context.Context) ([]Entry, error) {
	const q = `SELECT source, chunks, bytes, ingested_at FROM ingestions ORDER BY source ASC`

	rows, err := l.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Source, &e.Chunks, &e.Bytes, &ts); err != nil {
			return nil, fmt.Errorf("ledger: list scan: %w", err)
		}
		e.IngestedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list rows: %w", err)
	}
	return entries, nil
}

// Clear removes every entry.
func (l *SQLiteLedger) Clear(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM ingestions`); err != nil {
		return fmt.Errorf("ledger: clear: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable and writable connections can be
// established. Used by the server's readiness probe.
func (l *SQLiteLedger) Ping(ctx context.Context) error {
	if err := l.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ledger: ping: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (l *SQLiteLedger) Close() error {
	if err := l.db.Close(); err != nil {
		return fmt.Errorf("ledger: close: %w", err)
	}
	return nil
}
