package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds used by wacal:
//   - "sync.run_started", "sync.chat_done", "sync.run_finished",
//     "sync.run_state_changed"
//   - "calendar.event_created", "calendar.event_deduped"
//   - "store.messages_inserted"
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
