// Package http exposes the sync service over a small JSON API.
package http

import (
	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	syncController := NewSyncController(cfg.Users, cfg.Runs, cfg.Watermarks, cfg.Enqueuer, cfg.Scheduler)

	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	router.POST("/api/sync/:userID", syncController.Trigger)
	router.GET("/api/sync/:userID/runs", syncController.ListRuns)
	router.GET("/api/sync/:userID/status", syncController.Status)

	return router
}
