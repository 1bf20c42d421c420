// Package metrics persists per-cycle indexing statistics in SQLite and
// exposes them as OpenTelemetry gauges.
package metrics

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/localmind/indexd/internal/types"
)

// CycleRecord is one persisted row of cycle history.
type CycleRecord struct {
	ID            int64
	StartedAt     time.Time
	DurationMS    int64
	ScannedCount  int
	NewCount      int
	ModifiedCount int
	DeletedCount  int
	IndexedCount  int
	FailedCount   int
	RemovedCount  int
}

// Store manages SQLite persistence for cycle history.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store with the database at ~/.indexd/cycles.db.
// The directory and database file are created if they don't exist.
func NewStore() (*Store, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	indexdDir := filepath.Join(homeDir, ".indexd")
	if err := os.MkdirAll(indexdDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .indexd directory: %w", err)
	}

	return NewStoreWithPath(filepath.Join(indexdDir, "cycles.db"))
}

// NewStoreWithPath creates a Store with a custom database path.
// This is useful for testing.
func NewStoreWithPath(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	createTableSQL := `
		CREATE TABLE IF NOT EXISTS cycle_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			started_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL,
			scanned INTEGER NOT NULL,
			new_files INTEGER NOT NULL,
			modified INTEGER NOT NULL,
			deleted INTEGER NOT NULL,
			indexed INTEGER NOT NULL,
			failed INTEGER NOT NULL,
			removed INTEGER NOT NULL
		);
	`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db}, nil
}

// RecordCycle appends one cycle result to the history.
func (s *Store) RecordCycle(result *types.CycleResult) error {
	if result == nil || result.Scan == nil {
		return fmt.Errorf("cycle result is incomplete")
	}

	insertSQL := `
		INSERT INTO cycle_history
			(started_at, duration_ms, scanned, new_files, modified, deleted, indexed, failed, removed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := s.db.Exec(insertSQL,
		result.StartTime.UTC().Format(time.RFC3339),
		result.Duration.Milliseconds(),
		result.Scan.ScannedCount,
		result.Scan.NewCount,
		result.Scan.ModifiedCount,
		result.Scan.DeletedCount,
		result.IndexedCount,
		result.FailedCount,
		result.RemovedCount,
	)
	if err != nil {
		return fmt.Errorf("failed to record cycle: %w", err)
	}
	return nil
}

// RecentCycles returns up to limit cycle records, newest first.
func (s *Store) RecentCycles(limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(`
		SELECT id, started_at, duration_ms, scanned, new_files, modified, deleted, indexed, failed, removed
		FROM cycle_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query cycle history: %w", err)
	}
	defer rows.Close()

	var records []CycleRecord
	for rows.Next() {
		var rec CycleRecord
		var startedAt string
		if err := rows.Scan(&rec.ID, &startedAt, &rec.DurationMS, &rec.ScannedCount,
			&rec.NewCount, &rec.ModifiedCount, &rec.DeletedCount,
			&rec.IndexedCount, &rec.FailedCount, &rec.RemovedCount); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		parsed, err := time.Parse(time.RFC3339, startedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to parse started_at: %w", err)
		}
		rec.StartedAt = parsed
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return records, nil
}

// Totals returns cumulative indexed and failed counts across all cycles.
func (s *Store) Totals() (indexed, failed int64, err error) {
	row := s.db.QueryRow(
		"SELECT COALESCE(SUM(indexed), 0), COALESCE(SUM(failed), 0) FROM cycle_history")
	if err := row.Scan(&indexed, &failed); err != nil {
		return 0, 0, fmt.Errorf("failed to query totals: %w", err)
	}
	return indexed, failed, nil
}

// CycleCount returns the number of recorded cycles.
func (s *Store) CycleCount() (int64, error) {
	var count int64
	row := s.db.QueryRow("SELECT COUNT(*) FROM cycle_history")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count cycles: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
