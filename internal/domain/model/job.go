package model

import "time"

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// IsTerminal reports whether no further transition is allowed.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// Job types dispatched by the processor. Anything else is an authoring
// error and lands the job in a terminal failed state.
const (
	JobTypeCompleteAnalysis   = "complete_analysis"
	JobTypeReportGeneration   = "report_generation"
	JobTypeInvoiceExtraction  = "invoice_extraction"
	JobTypeRegulatoryResearch = "regulatory_research"
)

// ErrorLogEntry is one append-only record of a failed attempt.
type ErrorLogEntry struct {
	Attempt int       `json:"attempt"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// AIUsage is the normalized accounting payload stored on completion.
type AIUsage struct {
	Provider         string `json:"provider,omitempty"`
	Model            string `json:"model,omitempty"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	CostMicro        int64  `json:"cost_micro"`
}

type Job struct {
	ID              string
	Status          JobStatus
	JobType         string
	ProjectID       string
	UserID          string
	RetryCount      int
	MaxRetries      int
	RetryAfter      *time.Time
	ErrorLog        []ErrorLogEntry
	ProgressPercent int
	CurrentStep     string
	ResultData      map[string]any
	AIUsage         *AIUsage
	ErrorCode       string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ReadyForRetry reports whether the job's retry_after gate has passed.
func (j *Job) ReadyForRetry(now time.Time) bool {
	return j.RetryAfter == nil || !j.RetryAfter.After(now)
}
