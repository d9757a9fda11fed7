package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/repository"
)

var (
	_ repository.JobStore   = (*jobRepo)(nil)
	_ repository.JobStarter = (*jobRepo)(nil)
)

type jobRepo struct {
	pool *pgxpool.Pool
}

func NewJobRepo(pool *pgxpool.Pool) *jobRepo {
	return &jobRepo{pool: pool}
}

const jobColumns = `
id, status, job_type, project_id, user_id,
retry_count, max_retries, retry_after, error_log,
progress_percent, current_step, result_data, ai_usage,
error_code, error_message, created_at, updated_at`

func (r *jobRepo) GetJob(ctx context.Context, id string) (*model.Job, error) {
	q := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	row := r.pool.QueryRow(ctx, q, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, wrapErr("get job", err)
	}
	return job, nil
}

// StartJob is the atomic pending → processing transition; the guard in
// the WHERE clause is what makes concurrent starts safe.
func (r *jobRepo) StartJob(ctx context.Context, id string) error {
	const q = `
UPDATE jobs SET status = 'processing', updated_at = now()
WHERE id = $1 AND status = 'pending'`
	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return wrapErr("start job", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) UpdateStatus(ctx context.Context, id string, from []model.JobStatus, to model.JobStatus) error {
	guard := make([]string, len(from))
	for i, s := range from {
		guard[i] = string(s)
	}
	const q = `
UPDATE jobs SET status = $2, updated_at = now()
WHERE id = $1 AND status = ANY($3)`
	tag, err := r.pool.Exec(ctx, q, id, string(to), guard)
	if err != nil {
		return wrapErr("update status", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateProgress keeps progress_percent monotonically non-decreasing
// within a run.
func (r *jobRepo) UpdateProgress(ctx context.Context, id string, percent int, step string) error {
	const q = `
UPDATE jobs SET
  progress_percent = GREATEST(progress_percent, $2),
  current_step = $3,
  updated_at = now()
WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, percent, step); err != nil {
		return wrapErr("update progress", err)
	}
	return nil
}

func (r *jobRepo) CompleteJob(ctx context.Context, id string, result map[string]any, usage *model.AIUsage) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var usageJSON []byte
	if usage != nil {
		if usageJSON, err = json.Marshal(usage); err != nil {
			return fmt.Errorf("marshal ai usage: %w", err)
		}
	}
	const q = `
UPDATE jobs SET
  status = 'completed',
  result_data = $2,
  ai_usage = $3,
  progress_percent = 100,
  current_step = 'completed',
  updated_at = now()
WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, resultJSON, usageJSON); err != nil {
		return wrapErr("complete job", err)
	}
	return nil
}

func (r *jobRepo) FailJob(ctx context.Context, id string, errorCode, errorMessage string) error {
	const q = `
UPDATE jobs SET
  status = 'failed',
  error_code = $2,
  error_message = $3,
  error_log = coalesce(error_log, '[]'::jsonb) || jsonb_build_array(
    jsonb_build_object('attempt', retry_count, 'error', $3::text, 'at', now())),
  updated_at = now()
WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, id, errorCode, errorMessage); err != nil {
		return wrapErr("fail job", err)
	}
	return nil
}

// ScheduleRetry appends to the error log, bumps retry_count and sets
// the retry_after gate. The job stays in its non-terminal status; the
// poller picks it up again once the gate passes.
func (r *jobRepo) ScheduleRetry(ctx context.Context, id string, errorMessage, errorCode string, delay time.Duration) error {
	retryAfter := time.Now().Add(delay)
	const q = `
UPDATE jobs SET
  retry_count = retry_count + 1,
  retry_after = $2,
  error_code = $4,
  error_message = $3,
  error_log = coalesce(error_log, '[]'::jsonb) || jsonb_build_array(
    jsonb_build_object('attempt', retry_count + 1, 'error', $3::text, 'at', now())),
  updated_at = now()
WHERE id = $1 AND status IN ('pending', 'processing')`
	tag, err := r.pool.Exec(ctx, q, id, retryAfter, errorMessage, errorCode)
	if err != nil {
		return wrapErr("schedule retry", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *jobRepo) ListDue(ctx context.Context, limit int) ([]*model.Job, error) {
	q := `
SELECT ` + jobColumns + `
FROM jobs
WHERE status IN ('pending', 'processing')
  AND (retry_after IS NULL OR retry_after <= now())
ORDER BY created_at
LIMIT $1`
	rows, err := r.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, wrapErr("list due jobs", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, wrapErr("scan due job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*model.Job, error) {
	var (
		job        model.Job
		status     string
		errorLog   []byte
		resultData []byte
		aiUsage    []byte
	)
	err := row.Scan(
		&job.ID, &status, &job.JobType, &job.ProjectID, &job.UserID,
		&job.RetryCount, &job.MaxRetries, &job.RetryAfter, &errorLog,
		&job.ProgressPercent, &job.CurrentStep, &resultData, &aiUsage,
		&job.ErrorCode, &job.ErrorMessage, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.Status = model.JobStatus(status)
	if len(errorLog) > 0 {
		if err := json.Unmarshal(errorLog, &job.ErrorLog); err != nil {
			return nil, fmt.Errorf("decode error_log: %w", err)
		}
	}
	if len(resultData) > 0 {
		if err := json.Unmarshal(resultData, &job.ResultData); err != nil {
			return nil, fmt.Errorf("decode result_data: %w", err)
		}
	}
	if len(aiUsage) > 0 {
		if err := json.Unmarshal(aiUsage, &job.AIUsage); err != nil {
			return nil, fmt.Errorf("decode ai_usage: %w", err)
		}
	}
	return &job, nil
}

// wrapErr keeps the postgres error code visible in logs without
// leaking driver types to callers.
func wrapErr(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %s (%s)", op, pgErr.Message, pgErr.Code)
	}
	return fmt.Errorf("%s: %w", op, err)
}
