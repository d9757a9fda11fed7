package skills

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ Skill = (*AnalyticsSkill)(nil)

// AnalyticsSkill serves both the full-analysis and report-generation
// job types; the prompt differs, the pipeline does not.
type AnalyticsSkill struct {
	ai  adapter.AIServiceAdapter
	log *zerolog.Logger
}

func NewAnalyticsSkill(ai adapter.AIServiceAdapter, log *zerolog.Logger) *AnalyticsSkill {
	return &AnalyticsSkill{ai: ai, log: log}
}

func (s *AnalyticsSkill) Name() string { return "analytics-skill" }

func (s *AnalyticsSkill) Run(ctx context.Context, in Input) (*adapter.SkillResult, error) {
	if err := in.OnProgress(ctx, 10, "collecting project data"); err != nil {
		return nil, err
	}

	var task string
	switch in.JobType {
	case model.JobTypeReportGeneration:
		task = fmt.Sprintf("Write a spending report for project %s: totals per vendor, per month, and notable outliers.", in.ProjectID)
	default:
		task = fmt.Sprintf("Run a complete analysis of project %s: spend breakdown, duplicate invoices, payment-term compliance.", in.ProjectID)
	}

	messages := []adapter.Message{
		{Role: "system", Content: "You are a financial analytics assistant working over extracted invoice data."},
		{Role: "user", Content: task},
	}

	if err := in.OnProgress(ctx, 50, "running analysis"); err != nil {
		return nil, err
	}

	text, usage, err := s.ai.ChatWithUsage(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("analytics chat: %w", err)
	}

	if err := in.OnProgress(ctx, 90, "writing report"); err != nil {
		return nil, err
	}

	return &adapter.SkillResult{
		Data: map[string]any{
			"project_id": in.ProjectID,
			"job_type":   in.JobType,
			"report":     text,
		},
		Usage: &adapter.SkillUsage{
			Provider:         s.ai.Provider(),
			Model:            s.ai.Model(),
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	}, nil
}
