package repository

import (
	"context"
	"time"

	"invoice-ai-platform/internal/domain/model"
)

// JobStore is the persistence port for jobs. All job state lives behind
// it; the processor and retry manager never hold job state across calls.
type JobStore interface {
	GetJob(ctx context.Context, id string) (*model.Job, error)

	// UpdateStatus performs a guarded status transition: the write only
	// lands when the job's current status is one of `from`. Returns
	// domain.ErrNotFound when the guard does not match any row.
	UpdateStatus(ctx context.Context, id string, from []model.JobStatus, to model.JobStatus) error

	UpdateProgress(ctx context.Context, id string, percent int, step string) error
	CompleteJob(ctx context.Context, id string, result map[string]any, usage *model.AIUsage) error
	FailJob(ctx context.Context, id string, errorCode, errorMessage string) error

	// ScheduleRetry appends to the error log, increments retry_count and
	// sets retry_after = now + delay, leaving the job non-terminal.
	ScheduleRetry(ctx context.Context, id string, errorMessage, errorCode string, delay time.Duration) error

	// ListDue returns non-terminal jobs whose retry_after is null or in
	// the past, oldest first.
	ListDue(ctx context.Context, limit int) ([]*model.Job, error)
}

// JobStarter is an optional store capability: an atomic pending →
// processing transition. Deployments whose store lacks it fall back to
// JobStore.UpdateStatus with the same guard and post-condition.
type JobStarter interface {
	StartJob(ctx context.Context, id string) error
}
