package exports

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/nhfoods/ledgerdesk/internal/platform/db"
)

// Conn is the database surface the repository needs. *pgxpool.Pool satisfies it.
type Conn interface {
	db.Querier
	db.Beginner
}

// Repository persists export jobs in PostgreSQL.
type Repository struct {
	conn Conn
}

// NewRepository constructs a repository wrapper.
func NewRepository(conn Conn) *Repository {
	return &Repository{conn: conn}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS export_jobs (
    id UUID PRIMARY KEY,
    source TEXT NOT NULL,
    format TEXT NOT NULL,
    request JSONB NOT NULL,
    status TEXT NOT NULL DEFAULT 'queued',
    filename TEXT NOT NULL DEFAULT '',
    object_key TEXT NOT NULL DEFAULT '',
    size BIGINT NOT NULL DEFAULT 0,
    error_message TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    started_at TIMESTAMPTZ,
    finished_at TIMESTAMPTZ
)`,
	`ALTER TABLE export_jobs ADD COLUMN IF NOT EXISTS started_at TIMESTAMPTZ`,
	`CREATE INDEX IF NOT EXISTS export_jobs_created_at_idx ON export_jobs (created_at DESC)`,
}

// Migrate creates the export_jobs table when it does not exist.
func (r *Repository) Migrate(ctx context.Context) error {
	if r == nil || r.conn == nil {
		return fmt.Errorf("exports: repository not initialised")
	}
	return db.WithTx(ctx, r.conn, func(tx pgx.Tx) error {
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("exports: migrate: %w", err)
			}
		}
		return nil
	})
}

// Insert stores a queued job.
func (r *Repository) Insert(ctx context.Context, job Job) error {
	if r == nil || r.conn == nil {
		return fmt.Errorf("exports: repository not initialised")
	}
	payload, err := json.Marshal(job.Request)
	if err != nil {
		return err
	}
	const insert = `INSERT INTO export_jobs (id, source, format, request, status, created_at)
VALUES ($1,$2,$3,$4,$5,$6)`
	_, err = r.conn.Exec(ctx, insert, job.ID.String(), string(job.Request.Source), string(job.Request.Format), payload, string(job.Status), job.CreatedAt)
	return err
}

const selectJob = `SELECT id::text, request, status, filename, object_key, size, error_message, created_at, started_at, finished_at
FROM export_jobs`

// Get loads a job by id.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Job, error) {
	if r == nil || r.conn == nil {
		return Job{}, fmt.Errorf("exports: repository not initialised")
	}
	job, err := scanJob(r.conn.QueryRow(ctx, selectJob+` WHERE id = $1`, id.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Job{}, ErrNotFound
		}
		return Job{}, err
	}
	return job, nil
}

// List returns the newest jobs first.
func (r *Repository) List(ctx context.Context, limit int) ([]Job, error) {
	if r == nil || r.conn == nil {
		return nil, fmt.Errorf("exports: repository not initialised")
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.conn.Query(ctx, selectJob+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	jobs := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// MarkRunning claims a job for one attempt starting at at. Queued and failed jobs are
// claimed, as are running jobs whose attempt started before staleBefore.
func (r *Repository) MarkRunning(ctx context.Context, id uuid.UUID, at, staleBefore time.Time) error {
	if r == nil || r.conn == nil {
		return fmt.Errorf("exports: repository not initialised")
	}
	const update = `UPDATE export_jobs SET status = 'running', error_message = '', started_at = $2
WHERE id = $1 AND (status IN ('queued','failed')
    OR (status = 'running' AND (started_at IS NULL OR started_at < $3)))`
	tag, err := r.conn.Exec(ctx, update, id.String(), at, staleBefore)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// MarkReady records the stored file of a running job.
func (r *Repository) MarkReady(ctx context.Context, id uuid.UUID, filename, key string, size int64, at time.Time) error {
	if r == nil || r.conn == nil {
		return fmt.Errorf("exports: repository not initialised")
	}
	const update = `UPDATE export_jobs SET status = 'ready', filename = $2, object_key = $3, size = $4, finished_at = $5
WHERE id = $1 AND status = 'running'`
	tag, err := r.conn.Exec(ctx, update, id.String(), filename, key, size, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidStatus
	}
	return nil
}

// MarkFailed records why a job did not produce a file.
func (r *Repository) MarkFailed(ctx context.Context, id uuid.UUID, message string, at time.Time) error {
	if r == nil || r.conn == nil {
		return fmt.Errorf("exports: repository not initialised")
	}
	const update = `UPDATE export_jobs SET status = 'failed', error_message = $2, finished_at = $3
WHERE id = $1`
	_, err := r.conn.Exec(ctx, update, id.String(), message, at)
	return err
}

func scanJob(row pgx.Row) (Job, error) {
	var (
		job     Job
		id      string
		payload []byte
		status  string
	)
	if err := row.Scan(&id, &payload, &status, &job.Filename, &job.ObjectKey, &job.Size, &job.Error, &job.CreatedAt, &job.StartedAt, &job.FinishedAt); err != nil {
		return Job{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Job{}, fmt.Errorf("exports: job id %q: %w", id, err)
	}
	job.ID = parsed
	job.Status = Status(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Request); err != nil {
			return Job{}, fmt.Errorf("exports: decode request: %w", err)
		}
	}
	return job, nil
}
