package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eyalbz/wacal/internal/registry"
	"github.com/eyalbz/wacal/internal/status"
	"github.com/eyalbz/wacal/internal/store"
	syncengine "github.com/eyalbz/wacal/internal/sync"
)

// SyncService serves the sync endpoints: starting runs, reading run
// progress, cancelling, and listing per-chat status rows.
type SyncService struct {
	engine *syncengine.Engine
	runs   *status.Registry
	db     *store.DB
}

// NewSyncService creates the sync service.
func NewSyncService(engine *syncengine.Engine, runs *status.Registry, db *store.DB) *SyncService {
	return &SyncService{engine: engine, runs: runs, db: db}
}

type startSyncRequest struct {
	Kind    string `json:"kind" binding:"required,oneof=one all"`
	ChatID  string `json:"chat_id"`
	StartMs int64  `json:"start_ms"`
	EndMs   int64  `json:"end_ms" binding:"required"`
	Async   bool   `json:"async"`
}

// Start handles POST /v1/sync. Async requests answer immediately with a
// run ID; synchronous requests block until the run ends.
func (s *SyncService) Start(c *gin.Context) {
	var req startSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "kind (one|all) and end_ms are required")
		return
	}
	if req.EndMs < req.StartMs {
		fail(c, http.StatusBadRequest, "end_ms before start_ms")
		return
	}
	if req.Kind == "one" && req.ChatID == "" {
		fail(c, http.StatusBadRequest, "kind \"one\" requires chat_id")
		return
	}

	if req.Async {
		runID, err := s.engine.SyncAsync(req.Kind, req.ChatID, req.StartMs, req.EndMs)
		if err != nil {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"run_id": runID})
		return
	}

	ctx := c.Request.Context()
	if req.Kind == "one" {
		res, err := s.engine.SyncOne(ctx, req.ChatID, req.StartMs, req.EndMs)
		if err != nil {
			s.failSync(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
		return
	}

	run, err := s.engine.SyncAll(ctx, req.StartMs, req.EndMs)
	if err != nil {
		// The partial result still matters to the caller.
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "run": run})
		return
	}
	c.JSON(http.StatusOK, run)
}

func (s *SyncService) failSync(c *gin.Context, err error) {
	switch {
	case errors.Is(err, registry.ErrEntityNotFound):
		fail(c, http.StatusNotFound, err.Error())
	case errors.Is(err, syncengine.ErrChatBusy):
		fail(c, http.StatusConflict, err.Error())
	case syncengine.IsFatal(err):
		fail(c, http.StatusBadGateway, err.Error())
	default:
		internalError(c, err)
	}
}

// runView is the JSON shape of a run snapshot.
type runView struct {
	ID            string `json:"id"`
	Kind          string `json:"kind"`
	Target        string `json:"target,omitempty"`
	State         string `json:"state"`
	StartedAt     int64  `json:"started_at_ms"`
	FinishedAt    int64  `json:"finished_at_ms,omitempty"`
	ChatsTotal    int    `json:"chats_total"`
	ChatsDone     int    `json:"chats_done"`
	MessagesSeen  int    `json:"messages_seen"`
	EventsCreated int    `json:"events_created"`
	Error         string `json:"error,omitempty"`
}

func toRunView(r status.Run) runView {
	v := runView{
		ID:            r.ID,
		Kind:          r.Kind,
		Target:        r.Target,
		State:         string(r.State),
		StartedAt:     r.StartedAt.UnixMilli(),
		ChatsTotal:    r.ChatsTotal,
		ChatsDone:     r.ChatsDone,
		MessagesSeen:  r.MessagesSeen,
		EventsCreated: r.EventsCreated,
		Error:         r.Error,
	}
	if !r.FinishedAt.IsZero() {
		v.FinishedAt = r.FinishedAt.UnixMilli()
	}
	return v
}

// GetRun handles GET /v1/sync/runs/:id.
func (s *SyncService) GetRun(c *gin.Context) {
	run, ok := s.runs.Get(c.Param("id"))
	if !ok {
		fail(c, http.StatusNotFound, "unknown run "+c.Param("id"))
		return
	}
	c.JSON(http.StatusOK, toRunView(run))
}

// CancelRun handles POST /v1/sync/runs/:id/cancel. Cancellation is
// cooperative: the run stops before its next chat.
func (s *SyncService) CancelRun(c *gin.Context) {
	if !s.runs.RequestCancel(c.Param("id")) {
		fail(c, http.StatusNotFound, "unknown run "+c.Param("id"))
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"cancelling": true})
}

type syncStatusView struct {
	ChatID        string `json:"chat_id"`
	LastRunAtMs   int64  `json:"last_run_at_ms"`
	OK            bool   `json:"ok"`
	MessagesSeen  int    `json:"messages_seen"`
	EventsCreated int    `json:"events_created"`
	Error         string `json:"error,omitempty"`
}

// ListStatus handles GET /v1/sync/status: the per-chat last-run rows.
func (s *SyncService) ListStatus(c *gin.Context) {
	statuses, err := s.db.ListSyncStatus()
	if err != nil {
		internalError(c, err)
		return
	}
	views := make([]syncStatusView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, syncStatusView{
			ChatID:        st.ChatID,
			LastRunAtMs:   st.LastRunAt,
			OK:            st.OK,
			MessagesSeen:  st.MessagesSeen,
			EventsCreated: st.EventsCreated,
			Error:         st.Error,
		})
	}
	c.JSON(http.StatusOK, gin.H{"statuses": views})
}
