package skills

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/usecase"
)

var _ Skill = (*ResearchSkill)(nil)

// ResearchSkill answers regulatory questions: web search first, then a
// summarization pass over whatever the provider chain returned.
type ResearchSkill struct {
	ai     adapter.AIServiceAdapter
	search *usecase.SearchOrchestrator
	log    *zerolog.Logger
}

func NewResearchSkill(ai adapter.AIServiceAdapter, search *usecase.SearchOrchestrator, log *zerolog.Logger) *ResearchSkill {
	return &ResearchSkill{ai: ai, search: search, log: log}
}

func (s *ResearchSkill) Name() string { return "research-skill" }

func (s *ResearchSkill) Run(ctx context.Context, in Input) (*adapter.SkillResult, error) {
	if err := in.OnProgress(ctx, 10, "searching sources"); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("invoice regulatory requirements project %s", in.ProjectID)
	resp, err := s.search.Search(ctx, query, model.SearchOptions{MaxResults: 5})
	if err != nil {
		return nil, fmt.Errorf("research search: %w", err)
	}

	if err := in.OnProgress(ctx, 50, "summarizing findings"); err != nil {
		return nil, err
	}

	var sb strings.Builder
	for _, r := range resp.Results {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", r.Title, r.URL, r.Snippet)
	}
	messages := []adapter.Message{
		{Role: "system", Content: "You are a regulatory research assistant. Summarize the findings below into actionable compliance notes."},
		{Role: "user", Content: sb.String()},
	}

	text, usage, err := s.ai.ChatWithUsage(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("research chat: %w", err)
	}

	if err := in.OnProgress(ctx, 90, "collecting citations"); err != nil {
		return nil, err
	}

	sources := make([]map[string]any, 0, len(resp.Results))
	for _, r := range resp.Results {
		sources = append(sources, map[string]any{"title": r.Title, "url": r.URL})
	}
	return &adapter.SkillResult{
		Data: map[string]any{
			"project_id":      in.ProjectID,
			"summary":         text,
			"sources":         sources,
			"search_provider": resp.Provider,
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
