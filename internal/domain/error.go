package domain

import "errors"

var (
	// Common domain errors
	ErrJobNotFound = errors.New("job not found")

	// Texts below are load-bearing: store error records and API clients
	// match on them.
	ErrUnknownJobType        = errors.New("Unknown job type")
	ErrMissingProjectID      = errors.New("Missing required project id")
	ErrNoProvidersConfigured = errors.New("no search providers configured")
	ErrAllProvidersFailed    = errors.New("all search providers failed")
	ErrScheduleRetry         = errors.New("failed to schedule retry")
	ErrLockHeld              = errors.New("lock already held")
	ErrNotFound              = errors.New("entity not found")
)
