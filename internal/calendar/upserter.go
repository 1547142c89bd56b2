package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/eyalbz/wacal/internal/bus"
	"github.com/eyalbz/wacal/internal/retry"
	"github.com/eyalbz/wacal/internal/store"
)

// Upserter writes rendered events to the external calendar exactly once.
//
// The duplicate criterion is (summary, overlapping interval) within the
// same operator-timezone calendar day: titles are deterministic and carry
// the counterpart identity, so a same-titled overlap is the same session
// re-rendered and is safe to collapse.
type Upserter struct {
	client     Client
	db         *store.DB
	bus        *bus.Bus
	logger     *zap.Logger
	calendarID string
	loc        *time.Location
	retry      retry.Policy
}

// NewUpserter creates an upserter targeting one calendar.
func NewUpserter(client Client, db *store.DB, b *bus.Bus, logger *zap.Logger, calendarID string, loc *time.Location, policy retry.Policy) *Upserter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Upserter{
		client:     client,
		db:         db,
		bus:        b,
		logger:     logger,
		calendarID: calendarID,
		loc:        loc,
		retry:      policy,
	}
}

// Upsert writes one event. Returns created=false when an equivalent event
// already exists externally; in that case no mirror row is written either.
func (u *Upserter) Upsert(ctx context.Context, ev *store.LocalEvent) (bool, string, error) {
	if ev.EndMs < ev.StartMs {
		return false, "", &ValidationError{Reason: fmt.Sprintf("end %d before start %d", ev.EndMs, ev.StartMs)}
	}

	start := time.UnixMilli(ev.StartMs).In(u.loc)
	end := time.UnixMilli(ev.EndMs).In(u.loc)

	// The idempotency check scans the operator-timezone day holding the start.
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, u.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	existing, err := u.listWithRetry(ctx, dayStart, dayEnd)
	if err != nil {
		return false, "", err
	}
	for _, e := range existing {
		if e.Summary != ev.Title {
			continue
		}
		// Normalize both sides to the operator zone before comparing.
		if overlaps(start, end, e.Start.In(u.loc), e.End.In(u.loc)) {
			u.logger.Info("event already in calendar, skipping",
				zap.String("title", ev.Title),
				zap.Time("start", start),
				zap.String("external_event_id", e.ID))
			u.publish("calendar.event_deduped", ev)
			return false, e.ID, nil
		}
	}

	externalID, err := u.insertWithRetry(ctx, Event{
		Summary:     ev.Title,
		Description: ev.Body,
		Start:       start,
		End:         end,
		TimeZone:    u.loc.String(),
	})
	if err != nil {
		return false, "", err
	}

	ev.ExternalEventID = externalID
	if err := u.db.InsertLocalEvent(ev); err != nil {
		// The external event exists; the next run's list check still dedupes.
		u.logger.Warn("mirror write failed after calendar insert",
			zap.Error(err),
			zap.String("external_event_id", externalID))
	}

	u.publish("calendar.event_created", ev)
	return true, externalID, nil
}

func (u *Upserter) listWithRetry(ctx context.Context, timeMin, timeMax time.Time) ([]Event, error) {
	var events []Event
	err := retry.Do(ctx, u.retry, isTransient, func() error {
		var err error
		events, err = u.client.ListEvents(ctx, u.calendarID, timeMin, timeMax)
		return err
	})
	return events, err
}

func (u *Upserter) insertWithRetry(ctx context.Context, ev Event) (string, error) {
	var id string
	err := retry.Do(ctx, u.retry, isTransient, func() error {
		var err error
		id, err = u.client.InsertEvent(ctx, u.calendarID, ev)
		return err
	})
	return id, err
}

func isTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

func (u *Upserter) publish(kind string, ev *store.LocalEvent) {
	if u.bus == nil {
		return
	}
	u.bus.Publish(bus.Event{
		Kind:      kind,
		Timestamp: time.Now(),
		Payload: map[string]string{
			"chat_id": ev.ChatID,
			"title":   ev.Title,
		},
	})
}

// overlaps reports whether [aStart, aEnd) intersects [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}
