package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/repository"
	"invoice-ai-platform/internal/infra/metrics"
)

// ErrorClass is the coarse classification of a skill failure.
type ErrorClass string

const (
	ErrorClassRetryable ErrorClass = "RETRYABLE"
	ErrorClassPermanent ErrorClass = "PERMANENT"
	ErrorClassUnknown   ErrorClass = "UNKNOWN"
)

// ErrorCodePermanentFailure marks jobs that exhausted their retry
// budget or failed on a permanent error.
const ErrorCodePermanentFailure = "PERMANENT_FAILURE"

var (
	retryablePatterns = []string{"network", "timeout", "rate limit", "429"}
	permanentPatterns = []string{"invalid", "validation", "permission", "403", "forbidden"}
)

// RetryStats is derived from the job record, never stored.
type RetryStats struct {
	TotalAttempts     int                   `json:"total_attempts"`
	AttemptsRemaining int                   `json:"attempts_remaining"`
	ErrorHistory      []model.ErrorLogEntry `json:"error_history"`
	NextRetryTime     *time.Time            `json:"next_retry_time,omitempty"`
}

// RetryManager classifies failures and schedules future attempts. The
// delay is computed here; the store performs the actual write.
type RetryManager struct {
	store repository.JobStore
	log   *zerolog.Logger
}

func NewRetryManager(store repository.JobStore, log *zerolog.Logger) *RetryManager {
	return &RetryManager{store: store, log: log}
}

// ClassifyError is a pure function of the error message. Unmatched
// errors are treated as retryable by default, failing open toward
// availability.
func (m *RetryManager) ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return ErrorClassRetryable
		}
	}
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return ErrorClassPermanent
		}
	}
	return ErrorClassUnknown
}

// ShouldRetry is false once the budget is spent, regardless of class.
func (m *RetryManager) ShouldRetry(job *model.Job, err error) bool {
	if job.RetryCount >= job.MaxRetries {
		return false
	}
	return m.ClassifyError(err) != ErrorClassPermanent
}

// GetRetryDelay returns the fixed escalating backoff for an attempt
// number (1-based). Deliberately not randomized: attempts land at
// predictable times an operator can reason about.
func (m *RetryManager) GetRetryDelay(attempt int) time.Duration {
	switch {
	case attempt <= 1:
		return 1 * time.Minute
	case attempt == 2:
		return 5 * time.Minute
	case attempt == 3:
		return 15 * time.Minute
	default:
		return 30 * time.Minute
	}
}

// ScheduleRetry persists a future attempt: error log entry, incremented
// retry_count and a fresh retry_after. The job stays non-terminal.
func (m *RetryManager) ScheduleRetry(ctx context.Context, job *model.Job, cause error) error {
	class := m.ClassifyError(cause)
	delay := m.GetRetryDelay(job.RetryCount + 1)

	if err := m.store.ScheduleRetry(ctx, job.ID, cause.Error(), string(class), delay); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrScheduleRetry, err)
	}
	metrics.IncRetryScheduled(string(class))
	m.log.Warn().
		Str("job_id", job.ID).
		Str("class", string(class)).
		Dur("delay", delay).
		Int("attempt", job.RetryCount+1).
		Int("max_retries", job.MaxRetries).
		Msg("retry scheduled")
	return nil
}

// MarkPermanentlyFailed transitions the job to its terminal failed state.
func (m *RetryManager) MarkPermanentlyFailed(ctx context.Context, job *model.Job, cause error) error {
	if err := m.store.FailJob(ctx, job.ID, ErrorCodePermanentFailure, cause.Error()); err != nil {
		return fmt.Errorf("mark permanently failed: %w", err)
	}
	metrics.IncJobProcessed(string(model.JobStatusFailed))
	m.log.Error().
		Str("job_id", job.ID).
		Err(cause).
		Int("retry_count", job.RetryCount).
		Msg("job permanently failed")
	return nil
}

// HandleSkillFailure implements the retry policy the processor composes
// with: schedule when budget and classification allow, otherwise fail
// terminally.
func (m *RetryManager) HandleSkillFailure(ctx context.Context, job *model.Job, cause error) error {
	if m.ShouldRetry(job, cause) {
		return m.ScheduleRetry(ctx, job, cause)
	}
	return m.MarkPermanentlyFailed(ctx, job, cause)
}

// IsReadyForRetry reports whether the retry_after gate has passed.
func (m *RetryManager) IsReadyForRetry(job *model.Job) bool {
	return job.ReadyForRetry(time.Now())
}

// GetRetryStatistics derives retry bookkeeping from the job record.
func (m *RetryManager) GetRetryStatistics(job *model.Job) RetryStats {
	return RetryStats{
		TotalAttempts:     job.RetryCount,
		AttemptsRemaining: job.MaxRetries - job.RetryCount,
		ErrorHistory:      job.ErrorLog,
		NextRetryTime:     job.RetryAfter,
	}
}
