package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/domain/ports/repository"
	"invoice-ai-platform/internal/infra/metrics"
)

// Skill names the static dispatch table resolves to.
const (
	SkillAnalytics  = "analytics-skill"
	SkillExtraction = "extraction-skill"
	SkillResearch   = "research-skill"
)

// ErrorCodeProcessing marks processor-level failures: unknown job
// types, missing inputs and skill errors recorded without retry policy.
const ErrorCodeProcessing = "PROCESSING_ERROR"

// FailureHandler owns the retry policy for skill-reported failures.
// The processor does not decide retry eligibility itself; the call site
// that owns the policy injects a handler (normally the RetryManager).
type FailureHandler interface {
	HandleSkillFailure(ctx context.Context, job *model.Job, cause error) error
}

// JobProcessor drives one persisted job through its lifecycle: load,
// start transition, skill dispatch, progress forwarding, finalization.
// All side effects land in the store; nothing is held across calls.
type JobProcessor struct {
	store    repository.JobStore
	skills   adapter.SkillExecutor
	failures FailureHandler // nil: record failure terminally, no retries
	log      *zerolog.Logger
}

func NewJobProcessor(store repository.JobStore, skills adapter.SkillExecutor, failures FailureHandler, log *zerolog.Logger) *JobProcessor {
	return &JobProcessor{store: store, skills: skills, failures: failures, log: log}
}

// resolveSkill is the static job_type → skill table. An exhaustive
// switch so an unknown type is always a terminal authoring error,
// never an implicit fallthrough.
func resolveSkill(jobType string) (string, error) {
	switch jobType {
	case model.JobTypeCompleteAnalysis, model.JobTypeReportGeneration:
		return SkillAnalytics, nil
	case model.JobTypeInvoiceExtraction:
		return SkillExtraction, nil
	case model.JobTypeRegulatoryResearch:
		return SkillResearch, nil
	default:
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownJobType, jobType)
	}
}

// ProcessJob runs a single job to completion, scheduled retry or
// terminal failure. Re-invocation is safe: any status other than
// pending/processing is a no-op.
func (p *JobProcessor) ProcessJob(ctx context.Context, jobID string) error {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrJobNotFound, jobID)
		}
		return fmt.Errorf("load job %s: %w", jobID, err)
	}

	if job.Status != model.JobStatusPending && job.Status != model.JobStatusProcessing {
		p.log.Debug().Str("job_id", job.ID).Str("status", string(job.Status)).Msg("skipping job not eligible for processing")
		return nil
	}

	if job.Status == model.JobStatusPending {
		if err := p.startJob(ctx, job.ID); err != nil {
			return fmt.Errorf("start job %s: %w", job.ID, err)
		}
		job.Status = model.JobStatusProcessing
	}

	skillName, err := resolveSkill(job.JobType)
	if err != nil {
		return p.failTerminal(ctx, job, err)
	}
	if job.ProjectID == "" {
		return p.failTerminal(ctx, job, domain.ErrMissingProjectID)
	}

	p.log.Info().Str("job_id", job.ID).Str("job_type", job.JobType).Str("skill", skillName).Msg("processing job")
	start := time.Now()

	onProgress := func(ctx context.Context, percent int, step string) error {
		return p.store.UpdateProgress(ctx, job.ID, percent, step)
	}

	result, err := p.skills.Execute(ctx, job.ProjectID, job.JobType, onProgress, job.UserID)
	latency := time.Since(start)
	metrics.ObserveJobDuration(job.JobType, float64(latency/time.Millisecond))

	if err != nil {
		metrics.IncJobProcessed(string(model.JobStatusFailed))
		p.log.Error().Err(err).Str("job_id", job.ID).Dur("duration", latency).Msg("skill failed")
		if p.failures != nil {
			if herr := p.failures.HandleSkillFailure(ctx, job, err); herr != nil {
				return herr
			}
			return err
		}
		if ferr := p.store.FailJob(ctx, job.ID, ErrorCodeProcessing, err.Error()); ferr != nil {
			return fmt.Errorf("record failure for job %s: %v (original: %w)", job.ID, ferr, err)
		}
		return err
	}

	if err := p.store.CompleteJob(ctx, job.ID, result.Data, normalizeUsage(result.Usage)); err != nil {
		return fmt.Errorf("complete job %s: %w", job.ID, err)
	}
	metrics.IncJobProcessed(string(model.JobStatusCompleted))
	p.log.Info().Str("job_id", job.ID).Dur("duration", latency).Msg("job completed")
	return nil
}

// startJob performs the pending → processing transition. Stores with
// the atomic start capability use it; others fall back to a guarded
// status update with the same post-condition (the write only lands if
// the job is still pending).
func (p *JobProcessor) startJob(ctx context.Context, jobID string) error {
	if starter, ok := p.store.(repository.JobStarter); ok {
		return starter.StartJob(ctx, jobID)
	}
	return p.store.UpdateStatus(ctx, jobID,
		[]model.JobStatus{model.JobStatusPending}, model.JobStatusProcessing)
}

// failTerminal records an authoring error (unknown type, missing
// input). These are never retried.
func (p *JobProcessor) failTerminal(ctx context.Context, job *model.Job, cause error) error {
	metrics.IncJobProcessed(string(model.JobStatusFailed))
	p.log.Error().Err(cause).Str("job_id", job.ID).Str("job_type", job.JobType).Msg("terminal job fault")
	if ferr := p.store.FailJob(ctx, job.ID, ErrorCodeProcessing, cause.Error()); ferr != nil {
		return fmt.Errorf("record terminal fault for job %s: %v (original: %w)", job.ID, ferr, cause)
	}
	return cause
}

// normalizeUsage renames skill accounting fields to the store schema.
func normalizeUsage(u *adapter.SkillUsage) *model.AIUsage {
	if u == nil {
		return nil
	}
	return &model.AIUsage{
		Provider:         u.Provider,
		Model:            u.Model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		CostMicro:        u.CostMicro,
	}
}
