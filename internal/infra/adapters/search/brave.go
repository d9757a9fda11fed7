package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.SearchProvider = (*BraveProvider)(nil)

// BraveProvider queries the Brave Search web API.
type BraveProvider struct {
	apiKey string
	base   string
	client *http.Client
}

func NewBraveProvider(apiKey string) (*BraveProvider, error) {
	if apiKey == "" {
		return nil, errors.New("brave api key empty")
	}
	return &BraveProvider{
		apiKey: apiKey,
		base:   "https://api.search.brave.com/res/v1",
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *BraveProvider) Name() string { return "brave" }

func (p *BraveProvider) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	q := url.Values{}
	q.Set("q", query)
	if opts.MaxResults > 0 {
		q.Set("count", strconv.Itoa(opts.MaxResults))
	}
	if opts.Country != "" {
		q.Set("country", opts.Country)
	}
	if opts.Language != "" {
		q.Set("search_lang", opts.Language)
	}
	if opts.Freshness != "" {
		q.Set("freshness", opts.Freshness)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.base+"/web/search?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("brave http %d", resp.StatusCode)
	}

	var payload struct {
		Web struct {
			Results []struct {
				Title       string `json:"title"`
				URL         string `json:"url"`
				Description string `json:"description"`
			} `json:"results"`
		} `json:"web"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(payload.Web.Results))
	for _, r := range payload.Web.Results {
		out = append(out, model.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return out, nil
}

func (p *BraveProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.Search(ctx, "ping", model.SearchOptions{MaxResults: 1})
	return err == nil
}
