// Package render converts conversation sessions into calendar event records.
// Rendering is deterministic: identical sessions and entities produce
// byte-identical events, which the upserter's duplicate check relies on.
package render

import (
	"strings"
	"time"

	"github.com/eyalbz/wacal/internal/registry"
	"github.com/eyalbz/wacal/internal/sessionize"
	"github.com/eyalbz/wacal/internal/store"
)

// TitlePrefix marks every synced event in the target calendar.
const TitlePrefix = "💬 "

// Renderer produces calendar event records from sessions.
type Renderer struct {
	MinDuration   time.Duration
	Loc           *time.Location
	OperatorLabel string
}

// New creates a renderer.
func New(minDuration time.Duration, loc *time.Location, operatorLabel string) *Renderer {
	return &Renderer{MinDuration: minDuration, Loc: loc, OperatorLabel: operatorLabel}
}

// Render converts one session into its calendar event record.
//
// The title never includes time, so the same session always renders the
// same title. The end is padded to MinDuration so short exchanges do not
// produce zero-length events.
func (r *Renderer) Render(s sessionize.Session, entity *store.Entity) store.LocalEvent {
	endMs := s.EndTS
	if minEnd := s.StartTS + r.MinDuration.Milliseconds(); endMs < minEnd {
		endMs = minEnd
	}
	return store.LocalEvent{
		ChatID:        entity.ChatID,
		Title:         TitlePrefix + registry.DisplayTitle(entity),
		StartMs:       s.StartTS,
		EndMs:         endMs,
		Body:          r.transcript(s, entity),
		InboundCount:  s.InboundCount,
		OutboundCount: s.OutboundCount,
		MessageCount:  len(s.Messages),
	}
}

// transcript renders the plain-text body: one "[HH:MM] [speaker]: body"
// line per non-empty message, in operator-timezone wall clock. Media-only
// messages carry no text and are skipped.
func (r *Renderer) transcript(s sessionize.Session, entity *store.Entity) string {
	var b strings.Builder
	first := true
	for _, m := range s.Messages {
		if m.Body == "" {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false

		speaker := entity.Name()
		if m.FromMe {
			speaker = r.OperatorLabel
		}
		ts := time.UnixMilli(m.Timestamp).In(r.Loc)
		b.WriteString("[")
		b.WriteString(ts.Format("15:04"))
		b.WriteString("] [")
		b.WriteString(speaker)
		b.WriteString("]: ")
		b.WriteString(m.Body)
	}
	return b.String()
}
