package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteLog is a SQLite-backed Log: a single file, auto-migrated on
// first use, WAL mode for concurrent readers while the swarm keeps
// writing (grounded on the teacher's store.SQLiteStore, trimmed down to
// a single append-only table since a swarm has no checkpoint to load
// back).
type SQLiteLog struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteLog opens (creating if necessary) a SQLite database at path
// and ensures its schema exists. Pass ":memory:" for a throwaway log.
func NewSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: set busy_timeout: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS transitions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			entry_id TEXT NOT NULL,
			worker_id INTEGER NOT NULL,
			from_state TEXT NOT NULL,
			to_state TEXT NOT NULL,
			occurred_at TIMESTAMP NOT NULL
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_transitions_worker ON transitions(worker_id)"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create index: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

func (s *SQLiteLog) Append(ctx context.Context, e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transitions (entry_id, worker_id, from_state, to_state, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.WorkerID, e.From, e.To, e.Timestamp,
	)
	return err
}

// Close releases the underlying database handle.
func (s *SQLiteLog) Close() error {
	return s.db.Close()
}
