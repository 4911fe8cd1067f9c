// Package history records render runs in a local SQLite database.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status of a recorded run.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one recorded render run.
type Entry struct {
	ID        string
	StartedAt time.Time
	Base      string
	Texture   string
	Mask      string
	Output    string
	Strategy  string
	Width     int
	Height    int
	Bytes     int64
	Duration  time.Duration
	Status    string
	ErrorKind string
	Error     string
}

// NewEntry creates an entry with a fresh run ID.
func NewEntry(started time.Time) Entry {
	return Entry{
		ID:        uuid.NewString(),
		StartedAt: started,
	}
}

// Store is a SQLite-backed run log.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS renders (
	id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	base TEXT NOT NULL,
	texture TEXT NOT NULL,
	mask TEXT NOT NULL,
	output TEXT NOT NULL,
	strategy TEXT NOT NULL,
	width INTEGER DEFAULT 0,
	height INTEGER DEFAULT 0,
	bytes INTEGER DEFAULT 0,
	duration_ms INTEGER DEFAULT 0,
	status TEXT NOT NULL,
	error_kind TEXT DEFAULT '',
	error TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_renders_started ON renders(started_at);
`

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers from parallel batch jobs.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Record stores e. An empty ID is replaced with a new UUID.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO renders (id, started_at, base, texture, mask, output, strategy,
			width, height, bytes, duration_ms, status, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.StartedAt.UnixMilli(), e.Base, e.Texture, e.Mask, e.Output, e.Strategy,
		e.Width, e.Height, e.Bytes, e.Duration.Milliseconds(), e.Status, e.ErrorKind, e.Error)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", e.ID, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, base, texture, mask, output, strategy,
			width, height, bytes, duration_ms, status, error_kind, error
		FROM renders ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var started, durMs int64
		if err := rows.Scan(&e.ID, &started, &e.Base, &e.Texture, &e.Mask, &e.Output, &e.Strategy,
			&e.Width, &e.Height, &e.Bytes, &durMs, &e.Status, &e.ErrorKind, &e.Error); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		e.StartedAt = time.UnixMilli(started)
		e.Duration = time.Duration(durMs) * time.Millisecond
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
