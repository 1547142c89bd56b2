package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eyalbz/wacal/internal/store"
)

// EventService serves the local event mirror for operator reporting.
type EventService struct {
	db *store.DB
}

// NewEventService creates the event service.
func NewEventService(db *store.DB) *EventService {
	return &EventService{db: db}
}

type eventView struct {
	ID              int64  `json:"id"`
	ChatID          string `json:"chat_id"`
	Title           string `json:"title"`
	StartMs         int64  `json:"start_ms"`
	EndMs           int64  `json:"end_ms"`
	ExternalEventID string `json:"external_event_id,omitempty"`
	InboundCount    int    `json:"inbound_count"`
	OutboundCount   int    `json:"outbound_count"`
	MessageCount    int    `json:"message_count"`
}

// List handles GET /v1/events, optionally filtered by ?chat_id=.
func (s *EventService) List(c *gin.Context) {
	events, err := s.db.ListLocalEvents(c.Query("chat_id"))
	if err != nil {
		internalError(c, err)
		return
	}
	views := make([]eventView, 0, len(events))
	for _, ev := range events {
		views = append(views, eventView{
			ID:              ev.ID,
			ChatID:          ev.ChatID,
			Title:           ev.Title,
			StartMs:         ev.StartMs,
			EndMs:           ev.EndMs,
			ExternalEventID: ev.ExternalEventID,
			InboundCount:    ev.InboundCount,
			OutboundCount:   ev.OutboundCount,
			MessageCount:    ev.MessageCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"events": views})
}
