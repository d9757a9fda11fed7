package adapter

import (
	"context"

	"invoice-ai-platform/internal/domain/model"
)

// SearchProvider is one external search backend. Providers are
// constructed from per-provider credentials and composed in a fixed
// priority order by the orchestrator.
type SearchProvider interface {
	Name() string
	Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error)
	IsAvailable(ctx context.Context) bool
}
