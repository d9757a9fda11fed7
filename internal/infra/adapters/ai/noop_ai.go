package ai

import (
	"context"
	"strings"
	"time"

	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter implements adapter.AIServiceAdapter for local/dev runs
// without credentials. It echoes a canned reply instead of calling out.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter { return &NoopAIAdapter{} }

func (a *NoopAIAdapter) Provider() string { return "noop" }
func (a *NoopAIAdapter) Model() string    { return "noop-model" }

func (a *NoopAIAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	n := 0
	for _, m := range messages {
		n += len(strings.Fields(m.Content))
	}
	return n, nil
}

func (a *NoopAIAdapter) ChatWithUsage(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", adapter.Usage{}, ctx.Err()
	}
	prompt, _ := a.CountTokens(ctx, messages)
	return "This is a noop AI response.", adapter.Usage{PromptTokens: prompt, CompletionTokens: 6, TotalTokens: prompt + 6}, nil
}
