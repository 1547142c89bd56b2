// Package retry implements the single backoff policy shared by the
// fetcher and calendar wrappers.
package retry

import (
	"context"
	"time"
)

// Policy controls exponential backoff for transient failures.
type Policy struct {
	Attempts int
	Base     time.Duration
	Cap      time.Duration
}

// Delay returns the backoff before retry attempt i (0-based).
func (p Policy) Delay(i int) time.Duration {
	d := p.Base << i
	if d > p.Cap {
		return p.Cap
	}
	return d
}

// Do runs fn up to p.Attempts times, sleeping Delay between attempts.
// A failure is retried only when retryable(err) reports true; other
// errors return immediately. Context cancellation interrupts the wait.
func Do(ctx context.Context, p Policy, retryable func(error) bool, fn func() error) error {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(p.Delay(attempt - 1)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		err := fn()
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
