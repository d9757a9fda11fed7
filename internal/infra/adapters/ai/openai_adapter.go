package ai

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/pkoukk/tiktoken-go"

	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter over the official SDK.
type OpenAIAdapter struct {
	client openai.Client
	model  string
}

func NewOpenAIAdapter(apiKey, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}, nil
}

func (o *OpenAIAdapter) Provider() string { return "openai" }
func (o *OpenAIAdapter) Model() string    { return o.model }

// CountTokens counts prompt tokens locally with tiktoken so skills can
// budget before spending a network call.
func (o *OpenAIAdapter) CountTokens(ctx context.Context, messages []adapter.Message) (int, error) {
	enc, err := tiktoken.EncodingForModel(o.model)
	if err != nil {
		// Unknown model names fall back to the encoding GPT-4-class
		// models share.
		if enc, err = tiktoken.GetEncoding("cl100k_base"); err != nil {
			return 0, err
		}
	}
	total := 0
	for _, m := range messages {
		// +4 approximates the per-message framing overhead.
		total += len(enc.Encode(m.Content, nil, nil)) + 4
	}
	return total, nil
}

func (o *OpenAIAdapter) ChatWithUsage(ctx context.Context, messages []adapter.Message) (string, adapter.Usage, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: toOpenAIMessages(messages),
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	latency := int(time.Since(start) / time.Millisecond)
	if err != nil {
		metrics.ObserveAIUsage(o.Provider(), o.model, 0, 0, 0, latency, false)
		return "", adapter.Usage{}, err
	}

	usage := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	metrics.ObserveAIUsage(o.Provider(), o.model,
		usage.PromptTokens, usage.CompletionTokens, usage.TotalTokens, latency, true)

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", usage, errors.New("openai: no choice content")
	}
	return resp.Choices[0].Message.Content, usage, nil
}

func toOpenAIMessages(messages []adapter.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}
