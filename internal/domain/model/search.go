package model

import "time"

// SearchOptions narrows a provider query. The zero value means provider
// defaults. Options participate in cache-key normalization, so two
// semantically equal option sets must serialize identically.
type SearchOptions struct {
	MaxResults int    `json:"max_results,omitempty"`
	Country    string `json:"country,omitempty"`
	Language   string `json:"language,omitempty"`
	Freshness  string `json:"freshness,omitempty"` // e.g. "day", "week", "month"
}

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse carries results plus provenance: which provider
// answered and whether the answer came from the cache.
type SearchResponse struct {
	Results       []SearchResult `json:"results"`
	Provider      string         `json:"provider"`
	Cached        bool           `json:"cached"`
	ExecutionTime time.Duration  `json:"execution_time"`
}
