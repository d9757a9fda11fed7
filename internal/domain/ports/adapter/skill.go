package adapter

import "context"

// ProgressFunc persists a progress update. The executor must await each
// call before proceeding so updates never arrive out of order.
type ProgressFunc func(ctx context.Context, percent int, step string) error

// SkillUsage is the raw accounting a skill reports. Field names follow
// the AI adapters; the processor renames them to the store's schema.
type SkillUsage struct {
	Provider         string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostMicro        int64
}

type SkillResult struct {
	Data       map[string]any
	DurationMs int64
	Usage      *SkillUsage
}

// SkillExecutor is the port for pluggable units of work. The core does
// not know or care how a skill does its job.
type SkillExecutor interface {
	Execute(ctx context.Context, projectID, jobType string, onProgress ProgressFunc, userID string) (*SkillResult, error)
}
