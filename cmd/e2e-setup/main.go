package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"invoice-ai-platform/internal/config"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/infra/db/postgres"
	"invoice-ai-platform/internal/infra/redis"
)

// This script sets up a clean, predictable database state for manual
// end-to-end testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	// --- Connect to Redis ---
	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean redis so no stale job locks survive.
	log.Println("[1/4] Wiping Redis...")
	if err := redisClient.FlushDB(ctx); err != nil {
		log.Fatalf("failed to flush redis: %v", err)
	}

	// 2. Ensure the jobs schema exists.
	log.Println("[2/4] Creating jobs schema...")
	if _, err := pool.Exec(ctx, jobsSchema); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	// 3. Wipe existing job data.
	log.Println("[3/4] Truncating jobs...")
	if _, err := pool.Exec(ctx, `TRUNCATE jobs`); err != nil {
		log.Fatalf("failed to truncate jobs: %v", err)
	}

	// 4. Seed a few pending jobs covering every dispatched type.
	log.Println("[4/4] Seeding test jobs...")
	seedJobs(ctx, pool)

	log.Println("--- E2E Environment Setup Complete ---")
}

const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
  id               TEXT PRIMARY KEY,
  status           TEXT NOT NULL DEFAULT 'pending',
  job_type         TEXT NOT NULL,
  project_id       TEXT NOT NULL DEFAULT '',
  user_id          TEXT NOT NULL DEFAULT '',
  retry_count      INT NOT NULL DEFAULT 0,
  max_retries      INT NOT NULL DEFAULT 3,
  retry_after      TIMESTAMPTZ,
  error_log        JSONB,
  progress_percent INT NOT NULL DEFAULT 0,
  current_step     TEXT NOT NULL DEFAULT '',
  result_data      JSONB,
  ai_usage         JSONB,
  error_code       TEXT NOT NULL DEFAULT '',
  error_message    TEXT NOT NULL DEFAULT '',
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
  updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS jobs_due_idx
  ON jobs (created_at)
  WHERE status IN ('pending', 'processing')`

func seedJobs(ctx context.Context, pool *pgxpool.Pool) {
	seed := []struct {
		JobType   string
		ProjectID string
	}{
		{model.JobTypeInvoiceExtraction, "project-alpha"},
		{model.JobTypeCompleteAnalysis, "project-alpha"},
		{model.JobTypeReportGeneration, "project-beta"},
		{model.JobTypeRegulatoryResearch, "project-beta"},
	}

	const q = `
INSERT INTO jobs (id, status, job_type, project_id, user_id, max_retries)
VALUES ($1, 'pending', $2, $3, 'e2e-user', 3)`
	for _, s := range seed {
		id := uuid.NewString()
		if _, err := pool.Exec(ctx, q, id, s.JobType, s.ProjectID); err != nil {
			log.Fatalf("seed %s job: %v", s.JobType, err)
		}
		log.Printf("seeded: %s (id=%s, project=%s)", s.JobType, id, s.ProjectID)
	}

	// One job that exercises the retry path after two recorded attempts.
	due := time.Now().Add(-time.Minute)
	const retryQ = `
INSERT INTO jobs (id, status, job_type, project_id, user_id, retry_count, max_retries, retry_after, error_log)
VALUES ($1, 'processing', $2, 'project-gamma', 'e2e-user', 2, 3, $3,
  '[{"attempt":1,"error":"timeout"},{"attempt":2,"error":"network unreachable"}]'::jsonb)`
	if _, err := pool.Exec(ctx, retryQ, uuid.NewString(), model.JobTypeInvoiceExtraction, due); err != nil {
		log.Fatalf("seed retry job: %v", err)
	}
}
