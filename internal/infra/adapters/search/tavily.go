package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
)

var _ adapter.SearchProvider = (*TavilyProvider)(nil)

// TavilyProvider queries the Tavily research-oriented search API.
type TavilyProvider struct {
	apiKey string
	base   string
	client *http.Client
}

func NewTavilyProvider(apiKey string) (*TavilyProvider, error) {
	if apiKey == "" {
		return nil, errors.New("tavily api key empty")
	}
	return &TavilyProvider{
		apiKey: apiKey,
		base:   "https://api.tavily.com",
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *TavilyProvider) Name() string { return "tavily" }

func (p *TavilyProvider) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	reqBody := struct {
		Query      string `json:"query"`
		MaxResults int    `json:"max_results,omitempty"`
		Days       int    `json:"days,omitempty"`
	}{Query: query, MaxResults: opts.MaxResults}
	switch opts.Freshness {
	case "day":
		reqBody.Days = 1
	case "week":
		reqBody.Days = 7
	case "month":
		reqBody.Days = 30
	}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/search", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var payload struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(payload.Results))
	for _, r := range payload.Results {
		out = append(out, model.SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
	}
	return out, nil
}

func (p *TavilyProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.Search(ctx, "ping", model.SearchOptions{MaxResults: 1})
	return err == nil
}
