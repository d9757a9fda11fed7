package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain/ports/repository"
	"invoice-ai-platform/internal/usecase"
)

// Pinger is the shape both backing stores expose for liveness probes.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server is the operator API: job inspection, search passthrough and
// cache administration. Not a user-facing surface.
type Server struct {
	store   repository.JobStore
	retries *usecase.RetryManager
	search  *usecase.SearchOrchestrator
	db      Pinger
	cache   Pinger
	auth    *AuthManager
	apiKey  string
	log     *zerolog.Logger
}

func NewServer(
	store repository.JobStore,
	retries *usecase.RetryManager,
	search *usecase.SearchOrchestrator,
	db Pinger,
	cache Pinger,
	auth *AuthManager,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		store:   store,
		retries: retries,
		search:  search,
		db:      db,
		cache:   cache,
		auth:    auth,
		apiKey:  apiKey,
		log:     logger,
	}
}

// Router builds the full route tree. Everything under /api/v1 except
// the session endpoints sits behind the auth middleware.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.healthzHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/session", s.sessionCreateHandler())
		r.Delete("/auth/session", s.sessionDeleteHandler())

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/jobs/{id}", s.jobGetHandler())
			r.Post("/search", s.searchHandler())
			r.Get("/search/health", s.searchHealthHandler())
			r.Get("/search/cache/stats", s.cacheStatsHandler())
			r.Delete("/search/cache", s.cacheClearHandler())
		})
	})

	return r
}

// authMiddleware accepts either the static API key or a minted session
// token as a bearer credential (session cookies work too).
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("operator API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		if hdr := r.Header.Get("Authorization"); hdr != "" {
			parts := strings.Split(hdr, " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" && parts[1] == s.apiKey {
				next.ServeHTTP(w, r)
				return
			}
		}

		if _, err := s.auth.ParseFromRequest(r); err == nil {
			next.ServeHTTP(w, r)
			return
		}

		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}
