// Package source talks to the WhatsApp message-source HTTP API.
// The rest of the system consumes it through HistoryFetcher and treats
// it as a pure function over (chat, window); the store deduplicates.
package source

import (
	"context"

	"github.com/eyalbz/wacal/internal/store"
)

// HistoryFetcher returns the messages of one chat within [startMs, endMs].
// Order is not guaranteed; duplicates across calls are acceptable.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, chatID string, startMs, endMs int64) ([]store.Message, error)
}
