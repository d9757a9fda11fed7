//go:build !integration

package usecase_test

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invoice-ai-platform/internal/domain"
	"invoice-ai-platform/internal/domain/model"
	"invoice-ai-platform/internal/domain/ports/adapter"
	"invoice-ai-platform/internal/domain/ports/repository"
)

// =============================
// Stores
// =============================

// MockJobStore is an in-memory JobStore. Every method delegates to a
// Func override when set, otherwise mutates the Jobs map, and counts
// its invocations so tests can assert on side effects.
type MockJobStore struct {
	mu   sync.Mutex
	Jobs map[string]*model.Job

	GetJobFunc         func(ctx context.Context, id string) (*model.Job, error)
	UpdateStatusFunc   func(ctx context.Context, id string, from []model.JobStatus, to model.JobStatus) error
	UpdateProgressFunc func(ctx context.Context, id string, percent int, step string) error
	CompleteJobFunc    func(ctx context.Context, id string, result map[string]any, usage *model.AIUsage) error
	FailJobFunc        func(ctx context.Context, id string, errorCode, errorMessage string) error
	ScheduleRetryFunc  func(ctx context.Context, id string, errorMessage, errorCode string, delay time.Duration) error
	ListDueFunc        func(ctx context.Context, limit int) ([]*model.Job, error)

	StatusUpdates    int
	ProgressUpdates  int
	Completions      int
	Failures         int
	RetriesScheduled int

	LastErrorCode    string
	LastErrorMessage string
	LastRetryDelay   time.Duration
}

var _ repository.JobStore = (*MockJobStore)(nil)

func NewMockJobStore() *MockJobStore {
	return &MockJobStore{Jobs: make(map[string]*model.Job)}
}

func (m *MockJobStore) Put(job *model.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Jobs[job.ID] = job
}

func (m *MockJobStore) GetJob(ctx context.Context, id string) (*model.Job, error) {
	if m.GetJobFunc != nil {
		return m.GetJobFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *job
	return &cp, nil
}

func (m *MockJobStore) UpdateStatus(ctx context.Context, id string, from []model.JobStatus, to model.JobStatus) error {
	m.mu.Lock()
	m.StatusUpdates++
	m.mu.Unlock()
	if m.UpdateStatusFunc != nil {
		return m.UpdateStatusFunc(ctx, id, from, to)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, f := range from {
		if job.Status == f {
			job.Status = to
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *MockJobStore) UpdateProgress(ctx context.Context, id string, percent int, step string) error {
	m.mu.Lock()
	m.ProgressUpdates++
	m.mu.Unlock()
	if m.UpdateProgressFunc != nil {
		return m.UpdateProgressFunc(ctx, id, percent, step)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		if percent > job.ProgressPercent {
			job.ProgressPercent = percent
		}
		job.CurrentStep = step
	}
	return nil
}

func (m *MockJobStore) CompleteJob(ctx context.Context, id string, result map[string]any, usage *model.AIUsage) error {
	m.mu.Lock()
	m.Completions++
	m.mu.Unlock()
	if m.CompleteJobFunc != nil {
		return m.CompleteJobFunc(ctx, id, result, usage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		job.Status = model.JobStatusCompleted
		job.ResultData = result
		job.AIUsage = usage
		job.ProgressPercent = 100
		job.CurrentStep = "completed"
	}
	return nil
}

func (m *MockJobStore) FailJob(ctx context.Context, id string, errorCode, errorMessage string) error {
	m.mu.Lock()
	m.Failures++
	m.LastErrorCode = errorCode
	m.LastErrorMessage = errorMessage
	m.mu.Unlock()
	if m.FailJobFunc != nil {
		return m.FailJobFunc(ctx, id, errorCode, errorMessage)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		job.Status = model.JobStatusFailed
		job.ErrorCode = errorCode
		job.ErrorMessage = errorMessage
	}
	return nil
}

func (m *MockJobStore) ScheduleRetry(ctx context.Context, id string, errorMessage, errorCode string, delay time.Duration) error {
	m.mu.Lock()
	m.RetriesScheduled++
	m.LastErrorCode = errorCode
	m.LastErrorMessage = errorMessage
	m.LastRetryDelay = delay
	m.mu.Unlock()
	if m.ScheduleRetryFunc != nil {
		return m.ScheduleRetryFunc(ctx, id, errorMessage, errorCode, delay)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if job, ok := m.Jobs[id]; ok {
		job.RetryCount++
		at := time.Now().Add(delay)
		job.RetryAfter = &at
		job.ErrorLog = append(job.ErrorLog, model.ErrorLogEntry{
			Attempt: job.RetryCount,
			Error:   errorMessage,
			At:      time.Now(),
		})
	}
	return nil
}

func (m *MockJobStore) ListDue(ctx context.Context, limit int) ([]*model.Job, error) {
	if m.ListDueFunc != nil {
		return m.ListDueFunc(ctx, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.Job
	now := time.Now()
	for _, job := range m.Jobs {
		if job.Status.IsTerminal() || !job.ReadyForRetry(now) {
			continue
		}
		cp := *job
		out = append(out, &cp)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// MockStartingJobStore adds the atomic start capability.
type MockStartingJobStore struct {
	*MockJobStore

	StartJobFunc func(ctx context.Context, id string) error
	Starts       int
}

var _ repository.JobStarter = (*MockStartingJobStore)(nil)

func NewMockStartingJobStore() *MockStartingJobStore {
	return &MockStartingJobStore{MockJobStore: NewMockJobStore()}
}

func (m *MockStartingJobStore) StartJob(ctx context.Context, id string) error {
	m.mu.Lock()
	m.Starts++
	m.mu.Unlock()
	if m.StartJobFunc != nil {
		return m.StartJobFunc(ctx, id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.Jobs[id]
	if !ok || job.Status != model.JobStatusPending {
		return domain.ErrNotFound
	}
	job.Status = model.JobStatusProcessing
	return nil
}

// =============================
// Adapters
// =============================

// MockSkillExecutor records invocations and replays a canned result.
type MockSkillExecutor struct {
	mu          sync.Mutex
	Invocations int
	LastJobType string

	ExecuteFunc func(ctx context.Context, projectID, jobType string, onProgress adapter.ProgressFunc, userID string) (*adapter.SkillResult, error)
}

var _ adapter.SkillExecutor = (*MockSkillExecutor)(nil)

func (m *MockSkillExecutor) Execute(ctx context.Context, projectID, jobType string, onProgress adapter.ProgressFunc, userID string) (*adapter.SkillResult, error) {
	m.mu.Lock()
	m.Invocations++
	m.LastJobType = jobType
	m.mu.Unlock()
	if m.ExecuteFunc != nil {
		return m.ExecuteFunc(ctx, projectID, jobType, onProgress, userID)
	}
	return &adapter.SkillResult{Data: map[string]any{"ok": true}}, nil
}

// MockSearchProvider is a scripted provider for fallback-chain tests.
type MockSearchProvider struct {
	mu        sync.Mutex
	NameValue string
	Calls     int

	SearchFunc      func(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error)
	IsAvailableFunc func(ctx context.Context) bool
}

var _ adapter.SearchProvider = (*MockSearchProvider)(nil)

func (m *MockSearchProvider) Name() string { return m.NameValue }

func (m *MockSearchProvider) Search(ctx context.Context, query string, opts model.SearchOptions) ([]model.SearchResult, error) {
	m.mu.Lock()
	m.Calls++
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, query, opts)
	}
	return []model.SearchResult{{Title: "t", URL: "https://example.com", Snippet: "s"}}, nil
}

func (m *MockSearchProvider) IsAvailable(ctx context.Context) bool {
	if m.IsAvailableFunc != nil {
		return m.IsAvailableFunc(ctx)
	}
	return true
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}
