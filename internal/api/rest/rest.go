package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-transfer-alert/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.TriggerAuthConfig, metricsHandler http.Handler) {
	// Health and metrics endpoints (no auth)
	router.GET("/health", handler.HealthCheck)
	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// Cron trigger, callable with either method
	cron := router.Group("/api/cron", middleware.TriggerAuth(authCfg))
	{
		cron.GET("/check-key", handler.CheckKey)
		cron.POST("/check-key", handler.CheckKey)
	}
}
