package calendar

import "fmt"

// TransientError covers rate limits, 5xx responses, and network failures
// on calendar calls. The upserter retries these with backoff.
type TransientError struct {
	Cause error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient calendar error: %v", e.Cause)
}

func (e *TransientError) Unwrap() error { return e.Cause }

// FatalError means authorization or permission is permanently broken.
// It aborts the whole sync run.
type FatalError struct {
	StatusCode int
	Detail     string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal calendar error (status %d): %s", e.StatusCode, e.Detail)
}

// ValidationError flags an event that breaches its own invariants
// (end before start). The event is skipped, the run continues.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s", e.Reason)
}
