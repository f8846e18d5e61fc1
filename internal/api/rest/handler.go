package rest

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-transfer-alert/internal/logger"
	"github.com/feral-file/ff-transfer-alert/internal/pipeline"
	"github.com/feral-file/ff-transfer-alert/internal/store"
)

// Handler defines the interface for REST API handlers
type Handler interface {
	// CheckKey runs the pipeline once and reports the counts
	// GET|POST /api/cron/check-key?secret=<secret>
	CheckKey(c *gin.Context)

	// HealthCheck reports whether the dedup backend is reachable
	// GET /health
	HealthCheck(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	runner pipeline.Runner
	store  store.Store
}

// NewHandler creates a new REST API handler
func NewHandler(runner pipeline.Runner, st store.Store) Handler {
	return &handler{
		runner: runner,
		store:  st,
	}
}

// CheckKey runs the pipeline once.
// The run is detached from the request so a disconnecting client cannot abort it between mark and send.
func (h *handler) CheckKey(c *gin.Context) {
	ctx := logger.WithRun(context.WithoutCancel(c.Request.Context()), logger.RunInfo{Trigger: pipeline.TRIGGER_HTTP})

	result, err := h.runner.Run(ctx)
	if err != nil {
		respondRunError(c, err, result)
		return
	}

	respondRunSuccess(c, result)
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		logger.WarnCtx(c.Request.Context(), "Dedup store is unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "key-watcher",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "key-watcher",
	})
}
