// Package history implements the append-only signal history log:
// every emitted signal as one row, indexed by symbol, timestamp and
// direction, with recent/per-symbol/aggregate query surfaces and a
// retention cleanup.
package history

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// timeLayout is a fixed-width ISO-8601 layout so timestamp strings sort
// lexicographically in the same order as chronologically, letting range
// predicates compare strings against a computed cutoff.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Store is the persistent signal history store.
type Store struct {
	conn *sql.DB
}

// New opens (creating if necessary) the SQLite-backed history store at
// path and ensures its schema and indices exist.
func New(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	s := &Store{conn: conn}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("failed to run history migrations: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS signal_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TEXT NOT NULL,
			symbol TEXT NOT NULL,
			signal_type TEXT NOT NULL,
			direction TEXT NOT NULL,
			strength INTEGER NOT NULL,
			message TEXT,
			timeframe TEXT,
			price REAL,
			source TEXT DEFAULT 'engine',
			extra TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_history_symbol ON signal_history(symbol)`,
		`CREATE INDEX IF NOT EXISTS idx_history_timestamp ON signal_history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_history_direction ON signal_history(direction)`,
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

// Save appends one signal record. A write failure is logged and -1 is
// returned rather than propagated, so history persistence never
// suppresses delivery.
func (s *Store) Save(r Record) int64 {
	res, err := s.conn.Exec(
		`INSERT INTO signal_history
			(timestamp, symbol, signal_type, direction, strength, message, timeframe, price, source, extra)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(timeLayout), r.Symbol, r.SignalType, r.Direction,
		r.Strength, r.Message, r.Timeframe, r.Price, r.Source, r.Extra,
	)
	if err != nil {
		log.Printf("history: failed to save signal for %s: %v", r.Symbol, err)
		return -1
	}
	id, err := res.LastInsertId()
	if err != nil {
		log.Printf("history: failed to read inserted id for %s: %v", r.Symbol, err)
		return -1
	}
	return id
}

// GetRecent returns the newest-first records, optionally filtered by
// symbol and/or direction.
func (s *Store) GetRecent(limit int, symbol, direction string) ([]Record, error) {
	query := "SELECT id, timestamp, symbol, signal_type, direction, strength, message, timeframe, price, source, extra FROM signal_history WHERE 1=1"
	var args []interface{}

	if symbol != "" {
		query += " AND symbol = ?"
		args = append(args, symbol)
	}
	if direction != "" {
		query += " AND direction = ?"
		args = append(args, direction)
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	return s.queryRecords(query, args...)
}

// GetBySymbol returns the newest-first records for symbol within the
// last days days, bounded by limit.
func (s *Store) GetBySymbol(symbol string, days, limit int) ([]Record, error) {
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour).UTC().Format(timeLayout)
	query := `SELECT id, timestamp, symbol, signal_type, direction, strength, message, timeframe, price, source, extra
		FROM signal_history WHERE symbol = ? AND timestamp > ? ORDER BY timestamp DESC LIMIT ?`
	return s.queryRecords(query, symbol, since, limit)
}

func (s *Store) queryRecords(query string, args ...interface{}) ([]Record, error) {
	rows, err := s.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query signal history: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.Symbol, &r.SignalType, &r.Direction, &r.Strength,
			&r.Message, &r.Timeframe, &r.Price, &r.Source, &r.Extra); err != nil {
			return nil, fmt.Errorf("failed to scan signal history row: %w", err)
		}
		parsed, err := time.Parse(timeLayout, ts)
		if err != nil {
			parsed, _ = time.Parse(time.RFC3339, ts)
		}
		r.Timestamp = parsed
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetStats returns aggregate signal-history statistics over the last
// days days: a total plus breakdowns by direction, top-10 symbols, and
// source.
func (s *Store) GetStats(days int) (Stats, error) {
	stats := Stats{
		Days:        days,
		ByDirection: map[string]int{},
		BySource:    map[string]int{},
	}
	since := time.Now().Add(-time.Duration(days) * 24 * time.Hour).UTC().Format(timeLayout)

	if err := s.conn.QueryRow(
		"SELECT COUNT(*) FROM signal_history WHERE timestamp > ?", since,
	).Scan(&stats.Total); err != nil {
		return stats, fmt.Errorf("failed to count signal history: %w", err)
	}

	rows, err := s.conn.Query(
		"SELECT direction, COUNT(*) FROM signal_history WHERE timestamp > ? GROUP BY direction", since,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate by direction: %w", err)
	}
	for rows.Next() {
		var dir string
		var count int
		if err := rows.Scan(&dir, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("failed to scan direction aggregate: %w", err)
		}
		stats.ByDirection[dir] = count
	}
	rows.Close()

	rows, err = s.conn.Query(
		`SELECT symbol, COUNT(*) as cnt FROM signal_history WHERE timestamp > ?
		 GROUP BY symbol ORDER BY cnt DESC LIMIT 10`, since,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate by symbol: %w", err)
	}
	for rows.Next() {
		var sc SymbolCount
		if err := rows.Scan(&sc.Symbol, &sc.Count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("failed to scan symbol aggregate: %w", err)
		}
		stats.BySymbol = append(stats.BySymbol, sc)
	}
	rows.Close()

	rows, err = s.conn.Query(
		"SELECT source, COUNT(*) FROM signal_history WHERE timestamp > ? GROUP BY source", since,
	)
	if err != nil {
		return stats, fmt.Errorf("failed to aggregate by source: %w", err)
	}
	for rows.Next() {
		var src string
		var count int
		if err := rows.Scan(&src, &count); err != nil {
			rows.Close()
			return stats, fmt.Errorf("failed to scan source aggregate: %w", err)
		}
		stats.BySource[src] = count
	}
	rows.Close()

	return stats, rows.Err()
}

// Cleanup deletes records older than days days and returns the number
// of rows removed. Idempotent: a second call with no insertions between
// removes nothing.
func (s *Store) Cleanup(days int) (int64, error) {
	cutoff := time.Now().Add(-time.Duration(days) * 24 * time.Hour).UTC().Format(timeLayout)
	res, err := s.conn.Exec("DELETE FROM signal_history WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up signal history: %w", err)
	}
	return res.RowsAffected()
}

// FormatHistoryText renders records as plain text, a small formatting
// helper for operational surfaces that want a readable recent-signal
// digest without a templating layer.
func FormatHistoryText(records []Record, title string) string {
	if title == "" {
		title = "Signal History"
	}
	if len(records) == 0 {
		return fmt.Sprintf("%s\n\nno records", title)
	}

	const maxLines = 15
	lines := []string{fmt.Sprintf("%s (%d)", title, len(records)), ""}

	icons := map[string]string{"BUY": "[+]", "SELL": "[-]", "ALERT": "[!]"}

	shown := records
	if len(shown) > maxLines {
		shown = shown[:maxLines]
	}
	for _, r := range shown {
		icon := icons[r.Direction]
		if icon == "" {
			icon = "[?]"
		}
		ts := r.Timestamp.Format("2006-01-02 15:04")
		lines = append(lines, fmt.Sprintf("%s %s | %s", icon, r.Symbol, r.SignalType))
		lines = append(lines, fmt.Sprintf("   %s | strength:%d", ts, r.Strength))
	}

	if len(records) > maxLines {
		lines = append(lines, fmt.Sprintf("... %d more", len(records)-maxLines))
	}

	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}
