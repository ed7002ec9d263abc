// Package store persists runs and their force results in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/onnwee/tripletree/internal/metrics"
)

// Run statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one submitted computation.
type Run struct {
	ID         string          `json:"id"`
	Status     string          `json:"status"`
	PointCount int             `json:"point_count"`
	Points     json.RawMessage `json:"-"`
	Params     json.RawMessage `json:"params,omitempty"`
	Summary    json.RawMessage `json:"summary,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Store wraps a Postgres connection.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Init creates the schema when it does not exist yet.
func (s *Store) Init(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'queued',
			point_count INTEGER NOT NULL,
			points JSONB NOT NULL,
			params JSONB,
			summary JSONB,
			error TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE TABLE IF NOT EXISTS run_forces (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			point_idx INTEGER NOT NULL,
			force DOUBLE PRECISION[] NOT NULL,
			PRIMARY KEY (run_id, point_idx)
		);
		CREATE INDEX IF NOT EXISTS runs_status_idx ON runs(status);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func observe(op string, start time.Time, err error) {
	metrics.DBOperationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.DBOperationErrors.WithLabelValues(op).Inc()
	}
}

// CreateRun inserts a queued run. params may be nil.
func (s *Store) CreateRun(ctx context.Context, id string, points json.RawMessage, params json.RawMessage, pointCount int) (err error) {
	defer func(start time.Time) { observe("create_run", start, err) }(time.Now())
	p := pqtype.NullRawMessage{RawMessage: params, Valid: len(params) > 0}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, status, point_count, points, params)
		VALUES ($1, $2, $3, $4, $5)
	`, id, StatusQueued, pointCount, []byte(points), p)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRun fetches a run by ID; sql.ErrNoRows when absent.
func (s *Store) GetRun(ctx context.Context, id string) (run Run, err error) {
	defer func(start time.Time) { observe("get_run", start, err) }(time.Now())
	var params, summary pqtype.NullRawMessage
	err = s.db.QueryRowContext(ctx, `
		SELECT id, status, point_count, points, params, summary, error, created_at, updated_at
		FROM runs WHERE id = $1
	`, id).Scan(&run.ID, &run.Status, &run.PointCount, (*[]byte)(&run.Points),
		&params, &summary, &run.Error, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return Run{}, err
	}
	if params.Valid {
		run.Params = params.RawMessage
	}
	if summary.Valid {
		run.Summary = summary.RawMessage
	}
	return run, nil
}

// QueuedRuns lists runs waiting for the background job, oldest first.
func (s *Store) QueuedRuns(ctx context.Context) (runs []Run, err error) {
	defer func(start time.Time) { observe("queued_runs", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, status, point_count, points, params, error, created_at, updated_at
		FROM runs WHERE status = $1 ORDER BY created_at
	`, StatusQueued)
	if err != nil {
		return nil, fmt.Errorf("failed to list queued runs: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var run Run
		var params pqtype.NullRawMessage
		if err := rows.Scan(&run.ID, &run.Status, &run.PointCount, (*[]byte)(&run.Points),
			&params, &run.Error, &run.CreatedAt, &run.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if params.Valid {
			run.Params = params.RawMessage
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (s *Store) setStatus(ctx context.Context, op, id, status, errMsg string) (err error) {
	defer func(start time.Time) { observe(op, start, err) }(time.Now())
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = $2, error = $3, updated_at = now() WHERE id = $1
	`, id, status, errMsg)
	if err != nil {
		return fmt.Errorf("failed to update run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *Store) MarkRunning(ctx context.Context, id string) error {
	return s.setStatus(ctx, "mark_running", id, StatusRunning, "")
}

func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
	return s.setStatus(ctx, "mark_failed", id, StatusFailed, errMsg)
}

// MarkCompleted stores the run summary and flips the status.
func (s *Store) MarkCompleted(ctx context.Context, id string, summary json.RawMessage) (err error) {
	defer func(start time.Time) { observe("mark_completed", start, err) }(time.Now())
	sm := pqtype.NullRawMessage{RawMessage: summary, Valid: len(summary) > 0}
	_, err = s.db.ExecContext(ctx, `
		UPDATE runs SET status = $2, summary = $3, updated_at = now() WHERE id = $1
	`, id, StatusCompleted, sm)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", id, err)
	}
	return nil
}

// SaveForces replaces a run's force vectors in one transaction.
func (s *Store) SaveForces(ctx context.Context, id string, forces [][]float64) (err error) {
	defer func(start time.Time) { observe("save_forces", start, err) }(time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err = tx.ExecContext(ctx, `DELETE FROM run_forces WHERE run_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear forces for run %s: %w", id, err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_forces (run_id, point_idx, force) VALUES ($1, $2, $3)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare force insert: %w", err)
	}
	defer stmt.Close()
	for i, f := range forces {
		if _, err = stmt.ExecContext(ctx, id, i, pq.Array(f)); err != nil {
			return fmt.Errorf("failed to insert force %d for run %s: %w", i, id, err)
		}
	}
	return tx.Commit()
}

// Forces returns a run's force vectors in point order.
func (s *Store) Forces(ctx context.Context, id string) (forces [][]float64, err error) {
	defer func(start time.Time) { observe("get_forces", start, err) }(time.Now())
	rows, err := s.db.QueryContext(ctx, `
		SELECT force FROM run_forces WHERE run_id = $1 ORDER BY point_idx
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query forces for run %s: %w", id, err)
	}
	defer rows.Close()
	for rows.Next() {
		var f []float64
		if err := rows.Scan(pq.Array(&f)); err != nil {
			return nil, fmt.Errorf("failed to scan force: %w", err)
		}
		forces = append(forces, f)
	}
	return forces, rows.Err()
}
