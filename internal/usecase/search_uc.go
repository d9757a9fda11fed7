package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/infra/cache"
	"invoice-ai-platform/internal/infra/metrics"
)

// SearchOrchestrator runs a query against an ordered fallback chain of
// providers with a per-instance response cache. Each orchestrator owns
// its cache; there is no shared global instance.
type SearchOrchestrator struct {
	providers []adapter.SearchProvider
	cache     *cache.QueryCache[model.SearchResponse]
	log       *zerolog.Logger
}

// NewSearchOrchestrator requires at least one configured provider. The
// caller supplies providers already sorted by priority.
func NewSearchOrchestrator(providers []adapter.SearchProvider, c *cache.QueryCache[model.SearchResponse], log *zerolog.Logger) (*SearchOrchestrator, error) {
	if len(providers) == 0 {
		return nil, domain.ErrNoProvidersConfigured
	}
	return &SearchOrchestrator{providers: providers, cache: c, log: log}, nil
}

// Search returns a cached response when possible, otherwise the first
// provider success in priority order. Later providers are never tried
// after a success. When every provider fails the caller gets a single
// aggregate error, never a partial result.
func (s *SearchOrchestrator) Search(ctx context.Context, query string, opts model.SearchOptions) (model.SearchResponse, error) {
	if resp, ok := s.cache.Get(query, opts); ok {
		resp.Cached = true
		return resp, nil
	}

	var failures []string
	for _, p := range s.providers {
		start := time.Now()
		results, err := p.Search(ctx, query, opts)
		elapsed := time.Since(start)
		if err != nil {
			metrics.IncSearchCall(p.Name(), "error")
			s.log.Warn().Err(err).Str("provider", p.Name()).Dur("duration", elapsed).Msg("search provider failed")
			failures = append(failures, fmt.Sprintf("%s: %v", p.Name(), err))
			continue
		}
		metrics.IncSearchCall(p.Name(), "success")
		resp := model.SearchResponse{
			Results:       results,
			Provider:      p.Name(),
			Cached:        false,
			ExecutionTime: elapsed,
		}
		s.cache.Set(query, opts, resp)
		return resp, nil
	}

	return model.SearchResponse{}, fmt.Errorf("%w: %s", domain.ErrAllProvidersFailed, strings.Join(failures, "; "))
}

// HealthCheck probes each provider independently; one provider's probe
// failing never prevents probing the rest.
func (s *SearchOrchestrator) HealthCheck(ctx context.Context) map[string]bool {
	out := make(map[string]bool, len(s.providers))
	for _, p := range s.providers {
		out[p.Name()] = p.IsAvailable(ctx)
	}
	return out
}

// Providers lists configured provider names in priority order.
func (s *SearchOrchestrator) Providers() []string {
	names := make([]string, 0, len(s.providers))
	for _, p := range s.providers {
		names = append(names, p.Name())
	}
	return names
}

func (s *SearchOrchestrator) ClearCache() { s.cache.Clear() }

func (s *SearchOrchestrator) GetCacheStats() cache.Stats { return s.cache.Stats() }
