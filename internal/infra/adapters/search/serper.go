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

// Compile-time assurance this provider satisfies the port
var _ adapter.SearchProvider = (*SerperProvider)(nil)

// SerperProvider queries the Serper Google-search API.
type SerperProvider struct {
	apiKey string
	base   string
	client *http.Client
}

func NewSerperProvider(apiKey string) (*SerperProvider, error) {
	if apiKey == "" {
		return nil, errors.New("serper api key empty")
	}
	return &SerperProvider{
		apiKey: apiKey,
		base:   "https://google.serper.dev",
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

func (p *SerperProvider) Name() string { return "serper" }

func (p *SerperProvider) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	reqBody := struct {
		Q   string `json:"q"`
		Num int    `json:"num,omitempty"`
		GL  string `json:"gl,omitempty"`
		HL  string `json:"hl,omitempty"`
	}{Q: query, Num: opts.MaxResults, GL: opts.Country, HL: opts.Language}

	b, _ := json.Marshal(reqBody)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+"/search", bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("serper http %d", resp.StatusCode)
	}

	var payload struct {
		Organic []struct {
			Title   string `json:"title"`
			Link    string `json:"link"`
			Snippet string `json:"snippet"`
		} `json:"organic"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	out := make([]model.SearchResult, 0, len(payload.Organic))
	for _, r := range payload.Organic {
		out = append(out, model.SearchResult{Title: r.Title, URL: r.Link, Snippet: r.Snippet})
	}
	return out, nil
}

func (p *SerperProvider) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := p.Search(ctx, "ping", model.SearchOptions{MaxResults: 1})
	return err == nil
}
