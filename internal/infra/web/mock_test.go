//go:build !integration

package web_test

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/domain/ports/repository"
)

// stubJobStore serves a fixed set of jobs; writes are not under test
// here.
type stubJobStore struct {
	jobs map[string]*model.Job
}

var _ repository.JobStore = (*stubJobStore)(nil)

func (s *stubJobStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if job, ok := s.jobs[id]; ok {
		return job, nil
	}
	return nil, domain.ErrNotFound
}

func (s *stubJobStore) UpdateStatus(ctx context.Context, id string, from []model.JobStatus, to model.JobStatus) error {
	return nil
}
func (s *stubJobStore) UpdateProgress(ctx context.Context, id string, percent int, step string) error {
	return nil
}
func (s *stubJobStore) CompleteJob(ctx context.Context, id string, result map[string]any, usage *model.AIUsage) error {
	return nil
}
func (s *stubJobStore) FailJob(ctx context.Context, id string, errorCode, errorMessage string) error {
	return nil
}
func (s *stubJobStore) ScheduleRetry(ctx context.Context, id string, errorMessage, errorCode string, delay time.Duration) error {
	return nil
}
func (s *stubJobStore) ListDue(ctx context.Context, limit int) ([]*model.Job, error) {
	return nil, nil
}

type stubProvider struct {
	name    string
	results []model.SearchResult
	err     error
}

var _ adapter.SearchProvider = (*stubProvider)(nil)

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	return p.results, p.err
}

func (p *stubProvider) IsAvailable(ctx context.Context) bool { return p.err == nil }

type stubPinger struct{ err error }

func (p *stubPinger) Ping(ctx context.Context) error { return p.err }

var errPingDown = errors.New("ping: connection refused")

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
