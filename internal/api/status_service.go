package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eyalbz/wacal/internal/store"
)

// StatusService answers the daemon liveness/overview endpoint.
type StatusService struct {
	db        *store.DB
	startedAt time.Time
}

// NewStatusService creates the status service.
func NewStatusService(db *store.DB) *StatusService {
	return &StatusService{db: db, startedAt: time.Now()}
}

// Get handles GET /v1/status.
func (s *StatusService) Get(c *gin.Context) {
	msgCount, err := s.db.MessageCount()
	if err != nil {
		internalError(c, err)
		return
	}
	entities, err := s.db.ListEntities()
	if err != nil {
		internalError(c, err)
		return
	}
	included := 0
	for _, e := range entities {
		if e.Included {
			included++
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"uptime_seconds": int64(time.Since(s.startedAt).Seconds()),
		"messages":       msgCount,
		"entities":       len(entities),
		"included":       included,
	})
}
