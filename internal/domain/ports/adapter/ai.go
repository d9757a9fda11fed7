package adapter

import "context"

// Message represents a chat message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Usage for a single chat call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// AIServiceAdapter is the port for LLM calls made by skills.
type AIServiceAdapter interface {
	Provider() string
	Model() string

	// CountTokens returns prompt tokens for the provided messages
	// (provider-specific counting; best-effort when exact is unavailable).
	CountTokens(ctx context.Context, messages []Message) (int, error)

	// ChatWithUsage returns assistant text + usage as reported by the provider.
	ChatWithUsage(ctx context.Context, messages []Message) (string, Usage, error)
}
