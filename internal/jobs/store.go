package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/forPelevin/reelcut/internal/types"
)

var ErrNotFound = errors.New("job not found")

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool { return s == StatusDone || s == StatusFailed }

// Job is one persisted split or trim request.
type Job struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Status    Status          `json:"status"`
	Media     string          `json:"media"`
	Percent   int             `json:"percent"`
	Stage     string          `json:"stage,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	Manifest  *types.Manifest `json:"manifest,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Store persists jobs in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	kind TEXT NOT NULL,
	status TEXT NOT NULL,
	media TEXT NOT NULL,
	percent INTEGER NOT NULL DEFAULT 0,
	stage TEXT NOT NULL DEFAULT '',
	error_kind TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	manifest TEXT,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs(created_at);
`

const (
	sqliteBusyCode      = 5
	busyRetryAttempts   = 5
	busyRetryBackoff    = 10 * time.Millisecond
	busyRetryMaxBackoff = 200 * time.Millisecond
)

// Open creates or connects to the job database at path.
func Open(path string) (*Store, error) {
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
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Create inserts a queued job. ID and Kind are required.
func (s *Store) Create(ctx context.Context, j Job) (Job, error) {
	if j.ID == "" || j.Kind == "" {
		return Job{}, errors.New("job id and kind are required")
	}
	now := s.now().UTC()
	j.Status = StatusQueued
	j.CreatedAt, j.UpdatedAt = now, now
	err := s.exec(ctx, `INSERT INTO jobs (id, kind, status, media, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		j.ID, j.Kind, string(j.Status), j.Media, now.UnixNano(), now.UnixNano())
	if err != nil {
		return Job{}, fmt.Errorf("insert job %s: %w", j.ID, err)
	}
	return j, nil
}

func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.update(ctx, id, `status = ?, stage = ?`, string(StatusRunning), "starting")
}

// Progress records the latest percent and stage of a running job.
func (s *Store) Progress(ctx context.Context, id string, percent int, stage string) error {
	return s.update(ctx, id, `percent = MAX(percent, ?), stage = ?`, percent, stage)
}

func (s *Store) Complete(ctx context.Context, id string, m types.Manifest) error {
	b, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return s.update(ctx, id, `status = ?, percent = 100, stage = 'done', manifest = ?`, string(StatusDone), string(b))
}

// Fail records err with its stable kind.
func (s *Store) Fail(ctx context.Context, id string, jobErr error) error {
	msg := ""
	if jobErr != nil {
		msg = jobErr.Error()
	}
	return s.update(ctx, id, `status = ?, error_kind = ?, error = ?`, string(StatusFailed), types.Kind(jobErr), msg)
}

func (s *Store) update(ctx context.Context, id, set string, args ...any) error {
	args = append(args, s.now().UTC().UnixNano(), id)
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx, `UPDATE jobs SET `+set+`, updated_at = ? WHERE id = ?`, args...)
		return err
	})
	if err != nil {
		return fmt.Errorf("update job %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update job %s: %w", id, ErrNotFound)
	}
	return nil
}

const selectCols = `SELECT id, kind, status, media, percent, stage, error_kind, error, manifest, created_at, updated_at FROM jobs`

func (s *Store) Get(ctx context.Context, id string) (Job, error) {
	row := s.db.QueryRowContext(ctx, selectCols+` WHERE id = ?`, id)
	j, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Job{}, fmt.Errorf("get job %s: %w", id, err)
	}
	return j, nil
}

// List returns the newest jobs first. limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]Job, error) {
	q := selectCols + ` ORDER BY created_at DESC, id`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.query(ctx, q, args...)
}

// FinishedBefore lists terminal jobs last updated before cutoff.
func (s *Store) FinishedBefore(ctx context.Context, cutoff time.Time) ([]Job, error) {
	return s.query(ctx, selectCols+` WHERE status IN (?, ?) AND updated_at < ? ORDER BY updated_at`,
		string(StatusDone), string(StatusFailed), cutoff.UTC().UnixNano())
}

// ActiveMedia lists the media paths of queued and running jobs.
func (s *Store) ActiveMedia(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT media FROM jobs WHERE status IN (?, ?)`,
		string(StatusQueued), string(StatusRunning))
	if err != nil {
		return nil, fmt.Errorf("query active media: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Interrupted marks jobs left queued or running by a previous process as
// failed and returns how many were touched.
func (s *Store) Interrupted(ctx context.Context) (int64, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var err error
		res, err = s.db.ExecContext(ctx,
			`UPDATE jobs SET status = ?, error_kind = 'internal', error = 'interrupted by shutdown', updated_at = ? WHERE status IN (?, ?)`,
			string(StatusFailed), s.now().UTC().UnixNano(), string(StatusQueued), string(StatusRunning))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("mark interrupted jobs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.exec(ctx, `DELETE FROM jobs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete job %s: %w", id, err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	var out []Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

func (s *Store) exec(ctx context.Context, q string, args ...any) error {
	return retryOnBusy(ctx, func() error {
		_, err := s.db.ExecContext(ctx, q, args...)
		return err
	})
}

type scanner interface{ Scan(dest ...any) error }

func scanJob(sc scanner) (Job, error) {
	var (
		j         Job
		status    string
		manifest  sql.NullString
		createdNs int64
		updatedNs int64
	)
	if err := sc.Scan(&j.ID, &j.Kind, &status, &j.Media, &j.Percent, &j.Stage, &j.ErrorKind, &j.Error, &manifest, &createdNs, &updatedNs); err != nil {
		return Job{}, err
	}
	j.Status = Status(status)
	j.CreatedAt = time.Unix(0, createdNs).UTC()
	j.UpdatedAt = time.Unix(0, updatedNs).UTC()
	if manifest.Valid && manifest.String != "" {
		var m types.Manifest
		if err := json.Unmarshal([]byte(manifest.String), &m); err != nil {
			return Job{}, fmt.Errorf("decode manifest for %s: %w", j.ID, err)
		}
		j.Manifest = &m
	}
	return j, nil
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
