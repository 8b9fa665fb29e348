// Package history records completed analyses in a SQLite database so earlier
// keys and plaintexts can be listed and recalled.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite" // SQLite driver
)

// ErrNotFound is returned by Get for unknown run IDs.
var ErrNotFound = errors.New("history: run not found")

// Run is one recorded analysis.
type Run struct {
	ID        string    `json:"id"`
	Command   string    `json:"command"`
	KeyHex    string    `json:"key_hex"`
	KeySize   int       `json:"key_size"`
	Score     float64   `json:"score"`
	TraceID   string    `json:"trace_id,omitempty"`
	Preview   string    `json:"preview"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists runs.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open creates or opens the database at path, creating parent directories as
// needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	store := &Store{db: db, now: time.Now}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		command TEXT NOT NULL,
		key_hex TEXT NOT NULL,
		key_size INTEGER NOT NULL,
		score REAL NOT NULL,
		trace_id TEXT,
		preview TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_command ON runs(command);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// Record stores run, assigning an ID and timestamp when they are unset, and
// returns the stored value.
func (s *Store) Record(ctx context.Context, run Run) (Run, error) {
	if run.Command == "" {
		return Run{}, fmt.Errorf("record run: command is required")
	}
	if run.ID == "" {
		run.ID = ulid.Make().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now()
	}
	run.CreatedAt = run.CreatedAt.UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, command, key_hex, key_size, score, trace_id, preview, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Command, run.KeyHex, run.KeySize, run.Score, run.TraceID, run.Preview,
		run.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first. A limit of zero or less returns
// every run.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, command, key_hex, key_size, score, trace_id, preview, created_at
		FROM runs ORDER BY created_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get fetches one run by ID.
func (s *Store) Get(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, command, key_hex, key_size, score, trace_id, preview, created_at
		FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, err
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		traceID   sql.NullString
		createdAt string
	)
	if err := row.Scan(&run.ID, &run.Command, &run.KeyHex, &run.KeySize, &run.Score, &traceID, &run.Preview, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.TraceID = traceID.String
	parsed, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse run timestamp %q: %w", createdAt, err)
	}
	run.CreatedAt = parsed
	return run, nil
}
