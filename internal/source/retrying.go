package source

import (
	"context"
	"errors"

	"github.com/eyalbz/wacal/internal/retry"
	"github.com/eyalbz/wacal/internal/store"
)

// RetryingFetcher wraps a HistoryFetcher with backoff on transient
// failures. Auth errors pass through untouched.
type RetryingFetcher struct {
	inner  HistoryFetcher
	policy retry.Policy
}

// NewRetryingFetcher wraps inner with the retry policy.
func NewRetryingFetcher(inner HistoryFetcher, policy retry.Policy) *RetryingFetcher {
	return &RetryingFetcher{inner: inner, policy: policy}
}

// FetchHistory retries the wrapped fetch on TransientError.
func (r *RetryingFetcher) FetchHistory(ctx context.Context, chatID string, startMs, endMs int64) ([]store.Message, error) {
	var msgs []store.Message
	err := retry.Do(ctx, r.policy, func(err error) bool {
		var transient *TransientError
		return errors.As(err, &transient)
	}, func() error {
		var err error
		msgs, err = r.inner.FetchHistory(ctx, chatID, startMs, endMs)
		return err
	})
	return msgs, err
}
