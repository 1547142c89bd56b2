// Package api exposes the daemon's admin surface over HTTP. Handlers
// are transport-thin: bind, delegate, map errors to status codes. The
// server listens on a Unix socket, so there is no auth layer here.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Services groups the handler services mounted on the router.
type Services struct {
	Status   *StatusService
	Entities *EntityService
	Sync     *SyncService
	Events   *EventService
}

// NewRouter builds the gin engine with all admin routes mounted.
func NewRouter(s Services, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	if logger != nil {
		r.Use(requestLogger(logger))
	}

	v1 := r.Group("/v1")
	{
		v1.GET("/status", s.Status.Get)

		v1.GET("/entities", s.Entities.List)
		v1.POST("/entities", s.Entities.BulkPut)
		v1.PATCH("/entities/:chatID", s.Entities.Patch)

		v1.POST("/sync", s.Sync.Start)
		v1.GET("/sync/status", s.Sync.ListStatus)
		v1.GET("/sync/runs/:id", s.Sync.GetRun)
		v1.POST("/sync/runs/:id/cancel", s.Sync.CancelRun)

		v1.GET("/events", s.Events.List)
	}
	return r
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Debug("admin request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func fail(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

func internalError(c *gin.Context, err error) {
	fail(c, http.StatusInternalServerError, err.Error())
}
