package worker

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/ports/repository"
	"invoice-ai-platform/internal/infra/logging"
	"invoice-ai-platform/internal/infra/redis"
	"invoice-ai-platform/internal/usecase"
)

const lockPrefix = "job-lock:"

// Poller claims due jobs from the store and submits them to the pool.
// A redis lock per job keeps concurrent instances from double-running
// the same job; losing the lock race is normal, not an error.
type Poller struct {
	store     repository.JobStore
	processor *usecase.JobProcessor
	locker    redis.Locker

	interval  time.Duration
	batchSize int
	lockTTL   time.Duration

	log *zerolog.Logger
}

func NewPoller(store repository.JobStore, processor *usecase.JobProcessor, locker redis.Locker, interval time.Duration, batchSize int, lockTTL time.Duration, log *zerolog.Logger) *Poller {
	return &Poller{
		store:     store,
		processor: processor,
		locker:    locker,
		interval:  interval,
		batchSize: batchSize,
		lockTTL:   lockTTL,
		log:       log,
	}
}

// Start runs the polling loop until ctx is cancelled.
// This should be run in a goroutine.
func (p *Poller) Start(ctx context.Context, pool *Pool) {
	p.log.Info().Dur("interval", p.interval).Int("batch_size", p.batchSize).Msg("job poller started")
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("job poller stopping")
			return
		case <-ticker.C:
			p.pollOnce(ctx, pool)
		}
	}
}

func (p *Poller) pollOnce(ctx context.Context, pool *Pool) {
	jobs, err := p.store.ListDue(ctx, p.batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to list due jobs")
		return
	}

	for _, job := range jobs {
		jobID := job.ID
		if err := pool.Submit(func(ctx context.Context) error {
			return p.runOne(ctx, jobID)
		}); err != nil {
			p.log.Warn().Err(err).Str("job_id", jobID).Msg("could not submit job")
		}
	}
}

// runOne processes a single claimed job under a redis lock.
func (p *Poller) runOne(ctx context.Context, jobID string) error {
	token, err := p.locker.TryLock(ctx, lockPrefix+jobID, p.lockTTL)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			return nil
		}
		return err
	}
	defer func() {
		if uerr := p.locker.Unlock(context.Background(), lockPrefix+jobID, token); uerr != nil {
			p.log.Warn().Err(uerr).Str("job_id", jobID).Msg("failed to release job lock")
		}
	}()

	ctx = logging.WithTraceID(ctx, ulid.Make().String())
	ctx = logging.WithJobID(ctx, jobID)
	log := logging.With(ctx, p.log)

	if err := p.processor.ProcessJob(ctx, jobID); err != nil {
		// The processor has already recorded the outcome (retry
		// scheduled or terminal failure); the error here is for
		// operators, not control flow.
		if errors.Is(err, domain.ErrScheduleRetry) {
			log.Error().Err(err).Str("job_id", jobID).Msg("failed to schedule retry")
			return nil
		}
		log.Warn().Err(err).Str("job_id", jobID).Msg("job attempt failed")
	}
	return nil
}
