package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/usecase"
)

type sessionCreateRequest struct {
	APIKey string `json:"api_key"`
}

// sessionCreateHandler exchanges the static API key for a short-lived
// session token (also set as a cookie).
func (s *Server) sessionCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req sessionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if s.apiKey == "" || req.APIKey != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		token, err := s.auth.Mint(w)
		if err != nil {
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(struct {
			Token string `json:"token"`
		}{Token: token})
	}
}

func (s *Server) sessionDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.auth.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// jobResponse is the wire shape for a job record plus derived retry
// bookkeeping.
type jobResponse struct {
	ID              string             `json:"id"`
	Status          model.JobStatus    `json:"status"`
	JobType         string             `json:"job_type"`
	ProjectID       string             `json:"project_id"`
	UserID          string             `json:"user_id,omitempty"`
	ProgressPercent int                `json:"progress_percent"`
	CurrentStep     string             `json:"current_step,omitempty"`
	ResultData      map[string]any     `json:"result_data,omitempty"`
	AIUsage         *model.AIUsage     `json:"ai_usage,omitempty"`
	ErrorCode       string             `json:"error_code,omitempty"`
	ErrorMessage    string             `json:"error_message,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
	Retry           usecase.RetryStats `json:"retry"`
}

func (s *Server) jobGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "Job ID is required", http.StatusBadRequest)
			return
		}

		job, err := s.store.GetJob(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			http.Error(w, "Failed to get job", http.StatusInternalServerError)
			return
		}

		resp := jobResponse{
			ID:              job.ID,
			Status:          job.Status,
			JobType:         job.JobType,
			ProjectID:       job.ProjectID,
			UserID:          job.UserID,
			ProgressPercent: job.ProgressPercent,
			CurrentStep:     job.CurrentStep,
			ResultData:      job.ResultData,
			AIUsage:         job.AIUsage,
			ErrorCode:       job.ErrorCode,
			ErrorMessage:    job.ErrorMessage,
			CreatedAt:       job.CreatedAt,
			UpdatedAt:       job.UpdatedAt,
			Retry:           s.retries.GetRetryStatistics(job),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(resp)
	}
}

type searchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results"`
	Country    string `json:"country"`
	Language   string `json:"language"`
	Freshness  string `json:"freshness"`
}

func (s *Server) searchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req searchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if req.Query == "" {
			http.Error(w, "Query is required", http.StatusBadRequest)
			return
		}

		resp, err := s.search.Search(ctx, req.Query, model.SearchOptions{
			MaxResults: req.MaxResults,
			Country:    req.Country,
			Language:   req.Language,
			Freshness:  req.Freshness,
		})
		if err != nil {
			if errors.Is(err, domain.ErrAllProvidersFailed) {
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			http.Error(w, "Search failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Results         []model.SearchResult `json:"results"`
			Provider        string               `json:"provider"`
			Cached          bool                 `json:"cached"`
			ExecutionTimeMs int64                `json:"execution_time_ms"`
		}{
			Results:         resp.Results,
			Provider:        resp.Provider,
			Cached:          resp.Cached,
			ExecutionTimeMs: resp.ExecutionTime.Milliseconds(),
		})
	}
}

func (s *Server) searchHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := s.search.HealthCheck(r.Context())

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(struct {
			Providers map[string]bool `json:"providers"`
			Order     []string        `json:"order"`
		}{
			Providers: health,
			Order:     s.search.Providers(),
		})
	}
}

func (s *Server) cacheStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(s.search.GetCacheStats())
	}
}

func (s *Server) cacheClearHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.search.ClearCache()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := s.db.Ping(ctx); err != nil {
			checks["database"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := s.cache.Ping(ctx); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(checks)
	}
}
