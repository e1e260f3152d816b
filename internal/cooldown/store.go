// Package cooldown implements the per-(symbol, signal_type) suppression
// store: a persistent mapping of key -> last-fire timestamp, backed by
// a local SQLite database so cooldown state survives a process restart.
package cooldown

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the persistent cooldown-gate backing store.
type Store struct {
	conn *sql.DB
}

// New opens (creating if necessary) the SQLite-backed cooldown store at
// path and ensures its schema exists.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cooldown db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cooldown database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping cooldown database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run cooldown migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS cooldown (
			key TEXT PRIMARY KEY,
			timestamp REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cooldown_timestamp ON cooldown(timestamp)`,
	}
	for _, q := range queries {
		if _, err := s.conn.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Get returns the cooldown timestamp for key, or 0 if the key has no
// record. A read failure is logged and treated as "not in cooldown",
// failing open for availability.
func (s *Store) Get(key string) float64 {
	var ts float64
	err := s.conn.QueryRow("SELECT timestamp FROM cooldown WHERE key = ?", key).Scan(&ts)
	if err == sql.ErrNoRows {
		return 0
	}
	if err != nil {
		log.Printf("cooldown: failed to read key %s: %v", key, err)
		return 0
	}
	return ts
}

// Set upserts the cooldown timestamp for key. A zero timestamp means
// "now".
func (s *Store) Set(key string, timestamp float64) error {
	if timestamp == 0 {
		timestamp = float64(time.Now().Unix())
	}
	_, err := s.conn.Exec(
		`INSERT INTO cooldown (key, timestamp) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET timestamp = excluded.timestamp`,
		key, timestamp,
	)
	if err != nil {
		log.Printf("cooldown: failed to write key %s: %v", key, err)
	}
	return err
}

// LoadAll returns a snapshot of every cooldown entry, for seeding the
// detection engine's in-memory map at construction so gate state
// carries across restarts.
func (s *Store) LoadAll() (map[string]float64, error) {
	rows, err := s.conn.Query("SELECT key, timestamp FROM cooldown")
	if err != nil {
		return nil, fmt.Errorf("failed to load cooldown entries: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var key string
		var ts float64
		if err := rows.Scan(&key, &ts); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		out[key] = ts
	}
	return out, rows.Err()
}

// Cleanup deletes entries older than maxAge and returns the number of
// rows removed.
func (s *Store) Cleanup(maxAge time.Duration) (int64, error) {
	cutoff := float64(time.Now().Add(-maxAge).Unix())
	res, err := s.conn.Exec("DELETE FROM cooldown WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up cooldown entries: %w", err)
	}
	return res.RowsAffected()
}
