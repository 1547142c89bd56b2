package store

// EntityKind distinguishes contacts from group chats.
type EntityKind string

const (
	KindContact EntityKind = "contact"
	KindGroup   EntityKind = "group"
)

// Entity is a conversation counterpart: a contact or a group chat.
// Inclusion and company name are mutated only via the admin surface.
type Entity struct {
	ChatID      string
	Kind        EntityKind
	Phone       string
	DisplayName string
	PushName    string
	Subject     string
	CompanyName string
	Included    bool
}

// IsGroup reports whether the entity is a group chat.
func (e *Entity) IsGroup() bool { return e.Kind == KindGroup }

// Name returns the entity's own name without the company override:
// display name (falling back to push name) for contacts, subject for groups.
func (e *Entity) Name() string {
	if e.Kind == KindGroup {
		if e.Subject != "" {
			return e.Subject
		}
		return e.ChatID
	}
	if e.DisplayName != "" {
		return e.DisplayName
	}
	if e.PushName != "" {
		return e.PushName
	}
	return e.ChatID
}

// Message is one WhatsApp message. Immutable once stored.
type Message struct {
	ID            int64
	ChatID        string
	MsgID         string
	SenderDisplay string
	Body          string
	MediaKind     string
	FromMe        bool
	Timestamp     int64 // ms epoch
}

// LocalEvent mirrors a calendar event written to the external calendar.
// Rows act as the local half of the idempotency ledger.
type LocalEvent struct {
	ID              int64
	ChatID          string
	Title           string
	StartMs         int64
	EndMs           int64
	Body            string
	ExternalEventID string
	InboundCount    int
	OutboundCount   int
	MessageCount    int
	CreatedAt       int64
}

// SyncStatus records the outcome of the most recent sync run for a chat.
type SyncStatus struct {
	ChatID        string
	LastRunAt     int64
	OK            bool
	MessagesSeen  int
	EventsCreated int
	Error         string
}
