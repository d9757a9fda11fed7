package search

import (
	"os"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain/ports/adapter"
)

// Environment variables holding per-provider credentials.
const (
	EnvSerperKey = "SERPER_API_KEY"
	EnvBraveKey  = "BRAVE_SEARCH_API_KEY"
	EnvTavilyKey = "TAVILY_API_KEY"
)

// NewProvidersFromEnv builds the fallback chain from whichever
// credentials are present. Priority is fixed (serper, brave, tavily),
// not the order credentials happen to be set.
func NewProvidersFromEnv(log *zerolog.Logger) []adapter.SearchProvider {
	var providers []adapter.SearchProvider

	if key := os.Getenv(EnvSerperKey); key != "" {
		if p, err := NewSerperProvider(key); err == nil {
			providers = append(providers, p)
		}
	}
	if key := os.Getenv(EnvBraveKey); key != "" {
		if p, err := NewBraveProvider(key); err == nil {
			providers = append(providers, p)
		}
	}
	if key := os.Getenv(EnvTavilyKey); key != "" {
		if p, err := NewTavilyProvider(key); err == nil {
			providers = append(providers, p)
		}
	}

	for _, p := range providers {
		log.Info().Str("provider", p.Name()).Msg("search provider configured")
	}
	return providers
}
