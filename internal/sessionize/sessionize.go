// Package sessionize partitions a time-ordered message sequence into
// gap-bounded conversation sessions.
package sessionize

import (
	"time"

	"github.com/eyalbz/wacal/internal/store"
)

// Session is a maximal run of messages for one chat in which consecutive
// messages are at most the configured gap apart. Sessions are ephemeral
// values; they are never persisted directly.
type Session struct {
	Messages      []store.Message
	StartTS       int64
	EndTS         int64
	InboundCount  int
	OutboundCount int
}

// Split partitions msgs (ascending by timestamp, single chat) into sessions.
// The gap clock advances on every accepted message, not only at session
// heads: a conversation with steady 30-minute spacing under a 60-minute gap
// is one session no matter how long it runs.
//
// Empty input yields nil. Messages with identical timestamps stay in input
// order and share a session. Unsorted input is a precondition violation.
func Split(msgs []store.Message, gap time.Duration) []Session {
	if len(msgs) == 0 {
		return nil
	}
	gapMs := gap.Milliseconds()

	var sessions []Session
	current := newSession(msgs[0])
	lastTS := msgs[0].Timestamp

	for _, m := range msgs[1:] {
		if m.Timestamp-lastTS <= gapMs {
			current.add(m)
		} else {
			sessions = append(sessions, current)
			current = newSession(m)
		}
		lastTS = m.Timestamp
	}
	return append(sessions, current)
}

func newSession(m store.Message) Session {
	s := Session{
		Messages: []store.Message{m},
		StartTS:  m.Timestamp,
		EndTS:    m.Timestamp,
	}
	s.count(m)
	return s
}

func (s *Session) add(m store.Message) {
	s.Messages = append(s.Messages, m)
	if m.Timestamp > s.EndTS {
		s.EndTS = m.Timestamp
	}
	s.count(m)
}

func (s *Session) count(m store.Message) {
	if m.FromMe {
		s.OutboundCount++
	} else {
		s.InboundCount++
	}
}
