package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLLog is a MySQL/MariaDB-backed Log, for swarms where audit
// transitions need to survive the master process restarting or be
// queried centrally across many masters (grounded on the teacher's
// store.MySQLStore, trimmed to one append-only table).
//
// The DSN format is the same as store.MySQLStore's:
//
//	user:password@tcp(host:3306)/dbname?parseTime=true
type MySQLLog struct {
	db *sql.DB
	mu sync.Mutex
}

// NewMySQLLog opens a connection pool against dsn and ensures the
// transitions table exists.
func NewMySQLLog(dsn string) (*MySQLLog, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("audit: open mysql: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	schema := `
		CREATE TABLE IF NOT EXISTS transitions (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			entry_id CHAR(36) NOT NULL,
			worker_id BIGINT UNSIGNED NOT NULL,
			from_state VARCHAR(255) NOT NULL,
			to_state VARCHAR(255) NOT NULL,
			occurred_at DATETIME(6) NOT NULL,
			INDEX idx_transitions_worker (worker_id)
		) ENGINE=InnoDB
	`
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("audit: create schema: %w", err)
	}

	return &MySQLLog{db: db}, nil
}

func (m *MySQLLog) Append(ctx context.Context, e Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO transitions (entry_id, worker_id, from_state, to_state, occurred_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.WorkerID, e.From, e.To, e.Timestamp,
	)
	return err
}

// Close releases the underlying connection pool.
func (m *MySQLLog) Close() error {
	return m.db.Close()
}
