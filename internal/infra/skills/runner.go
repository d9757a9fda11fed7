package skills

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.SkillExecutor = (*Runner)(nil)

// Skill is one registered unit of work. A skill may serve several job
// types; it receives the concrete type it was dispatched for.
type Skill interface {
	Name() string
	Run(ctx context.Context, in Input) (*adapter.SkillResult, error)
}

// Input carries everything a skill needs for one invocation.
type Input struct {
	ProjectID  string
	JobType    string
	UserID     string
	OnProgress adapter.ProgressFunc
}

// Runner implements adapter.SkillExecutor over a job-type registry.
type Runner struct {
	byType map[string]Skill
	log    *zerolog.Logger
}

func NewRunner(log *zerolog.Logger) *Runner {
	return &Runner{byType: make(map[string]Skill), log: log}
}

// Register binds a skill to the job types it serves. Later
// registrations for the same type win.
func (r *Runner) Register(s Skill, jobTypes ...string) {
	for _, jt := range jobTypes {
		r.byType[jt] = s
	}
}

func (r *Runner) Execute(ctx context.Context, projectID, jobType string, onProgress adapter.ProgressFunc, userID string) (*adapter.SkillResult, error) {
	s, ok := r.byType[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, jobType)
	}

	start := time.Now()
	result, err := s.Run(ctx, Input{
		ProjectID:  projectID,
		JobType:    jobType,
		UserID:     userID,
		OnProgress: onProgress,
	})
	elapsed := time.Since(start)
	if err != nil {
		r.log.Error().Err(err).Str("skill", s.Name()).Str("job_type", jobType).Dur("duration", elapsed).Msg("skill run failed")
		return nil, err
	}
	result.DurationMs = elapsed.Milliseconds()
	r.log.Debug().Str("skill", s.Name()).Str("job_type", jobType).Dur("duration", elapsed).Msg("skill run finished")
	return result, nil
}
