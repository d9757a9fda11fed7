//go:build !integration

package web_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/infra/cache"
	"invoice-ai-platform/internal/infra/web"
	"invoice-ai-platform/internal/usecase"
)

const testAPIKey = "test-api-key"

func newTestServer(t *testing.T, store *stubJobStore, providers []adapter.SearchProvider, db, rds web.Pinger) http.Handler {
	t.Helper()
	log := newTestLogger()

	if store == nil {
		store = &stubJobStore{jobs: map[string]*model.Job{}}
	}
	if providers == nil {
		providers = []adapter.SearchProvider{&stubProvider{name: "serper", results: []model.SearchResult{{Title: "t", URL: "u", Snippet: "s"}}}}
	}
	if db == nil {
		db = &stubPinger{}
	}
	if rds == nil {
		rds = &stubPinger{}
	}

	searchUC, err := usecase.NewSearchOrchestrator(providers, cache.New[model.SearchResponse]("web-test", 10, time.Minute), log)
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	retries := usecase.NewRetryManager(store, log)
	auth := web.NewAuthManager("test-secret", false, "", time.Minute)

	srv := web.NewServer(store, retries, searchUC, db, rds, auth, testAPIKey, log)
	return srv.Router()
}

func authedRequest(method, target string, body string) *http.Request {
	var r *http.Request
	if body != "" {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		r = httptest.NewRequest(method, target, nil)
	}
	r.Header.Set("Authorization", "Bearer "+testAPIKey)
	return r
}

func TestServer_Auth(t *testing.T) {
	router := newTestServer(t, nil, nil, nil, nil)

	t.Run("rejects requests without credentials", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/search/cache/stats", nil))
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("rejects a wrong bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/search/cache/stats", nil)
		req.Header.Set("Authorization", "Bearer wrong")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("accepts the static API key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/search/cache/stats", ""))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("accepts a minted session token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/session",
			strings.NewReader(`{"api_key":"`+testAPIKey+`"}`)))
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201 from session create, got %d", rec.Code)
		}
		var created struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
			t.Fatalf("decode session response: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/api/v1/search/cache/stats", nil)
		req.Header.Set("Authorization", "Bearer "+created.Token)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200 with session token, got %d", rec.Code)
		}
	})

	t.Run("refuses to mint a session for a wrong key", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/auth/session",
			strings.NewReader(`{"api_key":"nope"}`)))
		if rec.Code != http.StatusForbidden {
			t.Errorf("expected 403, got %d", rec.Code)
		}
	})
}

func TestServer_JobGet(t *testing.T) {
	at := time.Now().Add(5 * time.Minute)
	store := &stubJobStore{jobs: map[string]*model.Job{
		"job-1": {
			ID:         "job-1",
			Status:     model.JobStatusProcessing,
			JobType:    model.JobTypeInvoiceExtraction,
			ProjectID:  "project-1",
			RetryCount: 1,
			MaxRetries: 3,
			RetryAfter: &at,
			ErrorLog:   []model.ErrorLogEntry{{Attempt: 1, Error: "timeout"}},
		},
	}}
	router := newTestServer(t, store, nil, nil, nil)

	t.Run("returns the job with derived retry stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/jobs/job-1", ""))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			ID     string `json:"id"`
			Status string `json:"status"`
			Retry  struct {
				TotalAttempts     int `json:"total_attempts"`
				AttemptsRemaining int `json:"attempts_remaining"`
			} `json:"retry"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.ID != "job-1" || resp.Status != "processing" {
			t.Errorf("unexpected job payload: %+v", resp)
		}
		if resp.Retry.TotalAttempts != 1 || resp.Retry.AttemptsRemaining != 2 {
			t.Errorf("unexpected retry stats: %+v", resp.Retry)
		}
	})

	t.Run("returns 404 for an unknown job", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/jobs/missing", ""))
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestServer_Search(t *testing.T) {
	t.Run("runs a search through the provider chain", func(t *testing.T) {
		router := newTestServer(t, nil, nil, nil, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/search", `{"query":"vat rules","max_results":3}`))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			Provider string               `json:"provider"`
			Cached   bool                 `json:"cached"`
			Results  []model.SearchResult `json:"results"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Provider != "serper" || len(resp.Results) != 1 {
			t.Errorf("unexpected search payload: %+v", resp)
		}
	})

	t.Run("rejects an empty query", func(t *testing.T) {
		router := newTestServer(t, nil, nil, nil, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/search", `{"query":""}`))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("maps exhausted providers to 502", func(t *testing.T) {
		providers := []adapter.SearchProvider{&stubProvider{name: "serper", err: errPingDown}}
		router := newTestServer(t, nil, providers, nil, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/search", `{"query":"q"}`))
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}

func TestServer_SearchHealth(t *testing.T) {
	providers := []adapter.SearchProvider{
		&stubProvider{name: "serper", err: errPingDown},
		&stubProvider{name: "brave", results: []model.SearchResult{}},
	}
	router := newTestServer(t, nil, providers, nil, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/search/health", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Providers map[string]bool `json:"providers"`
		Order     []string        `json:"order"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Providers["serper"] || !resp.Providers["brave"] {
		t.Errorf("unexpected provider health: %+v", resp.Providers)
	}
	if len(resp.Order) != 2 || resp.Order[0] != "serper" {
		t.Errorf("expected priority order preserved, got %v", resp.Order)
	}
}

func TestServer_CacheAdmin(t *testing.T) {
	router := newTestServer(t, nil, nil, nil, nil)

	// Warm the cache, hit it once.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/search", `{"query":"q"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/search", `{"query":"q"}`))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/search/cache/stats", ""))
	var stats cache.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("expected 1 hit / 1 miss, got %+v", stats)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodDelete, "/api/v1/search/cache", ""))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 from cache clear, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/search/cache/stats", ""))
	_ = json.NewDecoder(rec.Body).Decode(&stats)
	if stats.Size != 0 || stats.Hits != 0 {
		t.Errorf("expected an empty cache after clear, got %+v", stats)
	}
}

func TestServer_Healthz(t *testing.T) {
	t.Run("reports ok when both stores answer", func(t *testing.T) {
		router := newTestServer(t, nil, nil, nil, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("degrades when a dependency is down", func(t *testing.T) {
		router := newTestServer(t, nil, nil, &stubPinger{err: errPingDown}, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rec.Code)
		}
		var checks map[string]string
		if err := json.NewDecoder(rec.Body).Decode(&checks); err != nil {
			t.Fatalf("decode checks: %v", err)
		}
		if checks["database"] == "ok" {
			t.Error("expected the database check to carry the failure")
		}
		if checks["redis"] != "ok" {
			t.Errorf("expected redis still ok, got %q", checks["redis"])
		}
	})
}
