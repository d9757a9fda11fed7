package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"invoice-ai-platform/internal/config"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	aiAdapters "invoice-ai-platform/internal/infra/adapters/ai"
	searchAdapters "invoice-ai-platform/internal/infra/adapters/search"
	"invoice-ai-platform/internal/infra/cache"
	pg "invoice-ai-platform/internal/infra/db/postgres"
	"invoice-ai-platform/internal/infra/logging"
	"invoice-ai-platform/internal/infra/metrics"
	red "invoice-ai-platform/internal/infra/redis"
	"invoice-ai-platform/internal/infra/skills"
	"invoice-ai-platform/internal/infra/web"
	"invoice-ai-platform/internal/infra/worker"
	"invoice-ai-platform/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop AI fallback, console logs)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, int32(cfg.Database.PoolSize))
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	jobRepo := pg.NewJobRepo(pool)

	// ---- AI adapter (OpenAI -> Gemini -> noop in dev) ----
	var ai adapter.AIServiceAdapter
	switch {
	case cfg.AI.OpenAIKey != "":
		ai, err = aiAdapters.NewOpenAIAdapter(cfg.AI.OpenAIKey, cfg.AI.DefaultModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("openai adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: OpenAI")
	case cfg.AI.GeminiKey != "":
		ai, err = aiAdapters.NewGeminiAdapter(ctx, cfg.AI.GeminiKey, cfg.AI.GeminiURL, cfg.AI.DefaultModel, 0)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter")
		}
		logger.Info().Str("model", cfg.AI.DefaultModel).Msg("AI adapter: Gemini")
	case cfg.Runtime.Dev:
		ai = aiAdapters.NewNoopAIAdapter()
		logger.Warn().Msg("AI adapter: noop (dev mode, no credentials)")
	default:
		logger.Fatal().Msgf("no AI provider configured: set ai.openai_key or ai.gemini_key in %s", *cfgPath)
	}

	// ---- Search ----
	providers := searchAdapters.NewProvidersFromEnv(logger)
	queryCache := cache.New[model.SearchResponse]("search", cfg.Search.CacheSize, cfg.Search.CacheTTL)
	searchUC, err := usecase.NewSearchOrchestrator(providers, queryCache, logger)
	if err != nil {
		logger.Fatal().Err(err).Msgf("search: set at least one of %s, %s, %s",
			searchAdapters.EnvSerperKey, searchAdapters.EnvBraveKey, searchAdapters.EnvTavilyKey)
	}

	// ---- Skills ----
	runner := skills.NewRunner(logger)
	runner.Register(skills.NewExtractionSkill(ai, logger), model.JobTypeInvoiceExtraction)
	runner.Register(skills.NewAnalyticsSkill(ai, logger), model.JobTypeCompleteAnalysis, model.JobTypeReportGeneration)
	runner.Register(skills.NewResearchSkill(ai, searchUC, logger), model.JobTypeRegulatoryResearch)

	// ---- Use cases ----
	retryUC := usecase.NewRetryManager(jobRepo, logger)
	processor := usecase.NewJobProcessor(jobRepo, runner, retryUC, logger)

	// ---- Worker pool + poller ----
	workPool := worker.NewPool(cfg.Worker.Workers, logger)
	workPool.Start(ctx)
	poller := worker.NewPoller(jobRepo, processor, locker,
		cfg.Worker.PollInterval, cfg.Worker.BatchSize, cfg.Worker.LockTTL, logger)
	go poller.Start(ctx, workPool)

	// ---- Operator API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", 30*time.Minute)
	srv := web.NewServer(jobRepo, retryUC, searchUC, pool, redisClient, auth, cfg.Admin.APIKey, logger)
	server := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: srv.Router()}
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("operator API listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	workPool.Stop()
}
