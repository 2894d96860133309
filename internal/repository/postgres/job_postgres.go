package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"docseal/internal/model"
	"docseal/internal/repository"
)

// JobPostgres is a PostgreSQL implementation of repository.JobRepository.
// One table holds the queue, a second the per-step result cache.
type JobPostgres struct {
	db *sql.DB
}

// NewJobPostgres creates a new JobPostgres repository.
func NewJobPostgres(db *sql.DB) *JobPostgres {
	return &JobPostgres{db: db}
}

var _ repository.JobRepository = (*JobPostgres)(nil)

// Enqueue inserts a pending job. The partial unique index on
// (document_id) WHERE status IN ('PENDING','RUNNING') rejects duplicates.
func (r *JobPostgres) Enqueue(ctx context.Context, job *model.SealJob) error {
	meta, err := json.Marshal(job.RequestMetadata)
	if err != nil {
		return fmt.Errorf("marshal request metadata: %w", err)
	}
	const q = `
		INSERT INTO seal_jobs
			(id, document_id, send_email, is_resealing, request_metadata,
			 status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'PENDING', 0, $6, $6)
	`
	if _, err := r.db.ExecContext(ctx, q,
		job.ID,
		job.DocumentID,
		job.SendEmail,
		job.IsResealing,
		meta,
		job.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicateJob
		}
		return fmt.Errorf("enqueue seal job: %w", err)
	}
	return nil
}

// ClaimPending claims the oldest pending job. SKIP LOCKED keeps concurrent
// pollers from blocking on or double-claiming the same row.
func (r *JobPostgres) ClaimPending(ctx context.Context) (*model.SealJob, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim transaction: %w", err)
	}
	defer tx.Rollback()

	const qSelect = `
		SELECT id, document_id, send_email, is_resealing, request_metadata,
		       status, attempts, COALESCE(last_error, ''), created_at, updated_at
		FROM seal_jobs
		WHERE status = 'PENDING'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`
	var job model.SealJob
	var meta []byte
	row := tx.QueryRowContext(ctx, qSelect)
	if err := row.Scan(
		&job.ID,
		&job.DocumentID,
		&job.SendEmail,
		&job.IsResealing,
		&meta,
		&job.Status,
		&job.Attempts,
		&job.LastError,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNoPendingJobs
		}
		return nil, fmt.Errorf("select pending job: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &job.RequestMetadata); err != nil {
			return nil, fmt.Errorf("unmarshal request metadata: %w", err)
		}
	}

	const qClaim = `
		UPDATE seal_jobs
		SET status = 'RUNNING', attempts = attempts + 1, updated_at = $2
		WHERE id = $1
	`
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, qClaim, job.ID, now); err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	job.Status = model.JobStatusRunning
	job.Attempts++
	job.UpdatedAt = now
	return &job, nil
}

// MarkDone finishes a job successfully.
func (r *JobPostgres) MarkDone(ctx context.Context, jobID string) error {
	const q = `UPDATE seal_jobs SET status = 'DONE', updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, jobID, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark job done: %w", err)
	}
	return nil
}

// MarkFailed records a failure. Retryable failures return to the queue.
func (r *JobPostgres) MarkFailed(ctx context.Context, jobID, reason string, permanent bool) error {
	status := model.JobStatusPending
	if permanent {
		status = model.JobStatusFailed
	}
	const q = `UPDATE seal_jobs SET status = $2, last_error = $3, updated_at = $4 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, q, jobID, status, reason, time.Now().UTC()); err != nil {
		return fmt.Errorf("mark job failed: %w", err)
	}
	return nil
}

// GetStepResult reads the cached result of one named step.
func (r *JobPostgres) GetStepResult(ctx context.Context, jobID, step string) ([]byte, bool, error) {
	const q = `SELECT result FROM seal_job_steps WHERE job_id = $1 AND step_name = $2`
	var result []byte
	if err := r.db.QueryRowContext(ctx, q, jobID, step).Scan(&result); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get step result: %w", err)
	}
	return result, true, nil
}

// PutStepResult commits a step result; replays keep the first committed
// value.
func (r *JobPostgres) PutStepResult(ctx context.Context, jobID, step string, result []byte) error {
	const q = `
		INSERT INTO seal_job_steps (job_id, step_name, result, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (job_id, step_name) DO NOTHING
	`
	if _, err := r.db.ExecContext(ctx, q, jobID, step, result, time.Now().UTC()); err != nil {
		return fmt.Errorf("put step result: %w", err)
	}
	return nil
}

// isUniqueViolation matches the Postgres unique_violation error code.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
