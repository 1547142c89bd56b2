// Package calendar writes rendered sessions to the external calendar
// idempotently. The Client interface is the collaborator boundary; the
// Upserter owns the duplicate-detection protocol and the local mirror.
package calendar

import (
	"context"
	"time"
)

// Event is one calendar event as seen by the external API.
type Event struct {
	ID          string
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
	TimeZone    string
}

// Client is the external calendar collaborator contract.
type Client interface {
	// ListEvents returns events in [timeMin, timeMax) for a calendar.
	ListEvents(ctx context.Context, calendarID string, timeMin, timeMax time.Time) ([]Event, error)
	// InsertEvent creates an event and returns its external ID.
	InsertEvent(ctx context.Context, calendarID string, ev Event) (string, error)
	// DeleteEvent removes an event. Used by maintenance tooling only,
	// never by the core sync loop.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}
