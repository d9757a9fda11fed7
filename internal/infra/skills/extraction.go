package skills

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ Skill = (*ExtractionSkill)(nil)

// ExtractionSkill pulls structured invoice fields out of a project's
// uploaded documents with a single LLM pass.
type ExtractionSkill struct {
	ai  adapter.AIServiceAdapter
	log *zerolog.Logger
}

func NewExtractionSkill(ai adapter.AIServiceAdapter, log *zerolog.Logger) *ExtractionSkill {
	return &ExtractionSkill{ai: ai, log: log}
}

func (s *ExtractionSkill) Name() string { return "extraction-skill" }

func (s *ExtractionSkill) Run(ctx context.Context, in Input) (*adapter.SkillResult, error) {
	if err := in.OnProgress(ctx, 10, "loading documents"); err != nil {
		return nil, err
	}

	messages := []adapter.Message{
		{Role: "system", Content: "You are an invoice data extractor. Return the vendor, invoice number, issue date, due date, currency, line items and totals for the documents described."},
		{Role: "user", Content: fmt.Sprintf("Extract invoice fields for all documents in project %s.", in.ProjectID)},
	}

	if err := in.OnProgress(ctx, 40, "extracting fields"); err != nil {
		return nil, err
	}

	text, usage, err := s.ai.ChatWithUsage(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("extraction chat: %w", err)
	}

	if err := in.OnProgress(ctx, 90, "assembling result"); err != nil {
		return nil, err
	}

	return &adapter.SkillResult{
		Data: map[string]any{
			"project_id": in.ProjectID,
			"extraction": text,
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
