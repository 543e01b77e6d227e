// Package jobstore keeps a persistent ledger of render jobs in SQLite.
package jobstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ivlev/audiogram/internal/hooks"
)

// ErrNotFound is returned by Get for unknown job ids.
var ErrNotFound = errors.New("job not found")

// Job is one ledger row.
type Job struct {
	ID        string
	Status    hooks.Status
	Error     string
	Export    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is a hooks.Notifier that persists every lifecycle event.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const (
	sqliteBusyCode    = 5
	busyRetryAttempts = 5
	busyRetryBackoff  = 10 * time.Millisecond
	busyRetryMax      = 200 * time.Millisecond
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	export     TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_updated ON jobs(updated_at);
`

// Open creates or opens the ledger at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record upserts the job with a new status. Error and export are kept
// unless the new values are non-empty.
func (s *Store) Record(ctx context.Context, id string, status hooks.Status, errMsg, export string) error {
	now := s.now().UTC().Format(time.RFC3339Nano)
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
INSERT INTO jobs (id, status, error, export, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status = excluded.status,
	error = CASE WHEN excluded.error != '' THEN excluded.error ELSE jobs.error END,
	export = CASE WHEN excluded.export != '' THEN excluded.export ELSE jobs.export END,
	updated_at = excluded.updated_at`,
			id, string(status), errMsg, export, now, now)
		return err
	})
}

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, error, export, created_at, updated_at FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	return job, err
}

// List returns the most recently updated jobs first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	query := `SELECT id, status, error, export, created_at, updated_at FROM jobs ORDER BY updated_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id string, status hooks.Status) error {
	return s.Record(ctx, id, status, "", "")
}

func (s *Store) ReportError(ctx context.Context, id, message string) error {
	return s.Record(ctx, id, hooks.StatusError, message, "")
}

func (s *Store) Deliver(ctx context.Context, id, path string) error {
	return s.Record(ctx, id, hooks.StatusFinished, "", path)
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (Job, error) {
	var (
		job              Job
		status           string
		created, updated string
	)
	if err := scanner.Scan(&job.ID, &status, &job.Error, &job.Export, &created, &updated); err != nil {
		return Job{}, err
	}
	job.Status = hooks.Status(status)
	var err error
	if job.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Job{}, fmt.Errorf("parse created_at: %w", err)
	}
	if job.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Job{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return job, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") || strings.Contains(err.Error(), "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryBackoff
	var err error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		if err = op(); err == nil || !isSQLiteBusy(err) {
			return err
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMax)
	}
	return err
}
