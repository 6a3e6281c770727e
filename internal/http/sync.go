package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

const defaultRunsLimit = 20

// SyncStatusResponse reports a user's sync position: the watermark every
// future run filters against, plus the most recent run outcome.
type SyncStatusResponse struct {
	UserID      uint              `json:"user_id"`
	SyncEnabled bool              `json:"sync_enabled"`
	LastSyncAt  string            `json:"last_sync_at,omitempty"`
	NextRunAt   string            `json:"next_run_at,omitempty"`
	LastRun     *entities.SyncRun `json:"last_run,omitempty"`
}

// SyncController serves manual sync triggers and run history.
type SyncController struct {
	users      UserGetter
	runs       RunLister
	watermarks WatermarkReader
	enqueuer   SyncEnqueuer
	scheduler  NextRunSource
}

// NewSyncController creates a sync controller.
func NewSyncController(users UserGetter, runs RunLister, watermarks WatermarkReader, enqueuer SyncEnqueuer, scheduler NextRunSource) *SyncController {
	return &SyncController{
		users:      users,
		runs:       runs,
		watermarks: watermarks,
		enqueuer:   enqueuer,
		scheduler:  scheduler,
	}
}

// Trigger enqueues a manual sync run for the user.
// POST /api/sync/:userID
func (s *SyncController) Trigger(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}

	if s.enqueuer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "task queue is not running"})
		return
	}

	// 0 means "use the user's own bootstrap window"
	daysBack := 0
	if raw := c.Query("days_back"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days_back must be a non-negative integer"})
			return
		}
		daysBack = parsed
	}

	if err := s.enqueuer.EnqueueSync(user.ID, daysBack); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to enqueue sync: " + err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "sync enqueued",
		"user_id": user.ID,
	})
}

// ListRuns returns the user's most recent sync runs, newest first.
// GET /api/sync/:userID/runs
func (s *SyncController) ListRuns(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}

	limit := defaultRunsLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = parsed
	}

	runs, err := s.runs.ListRecent(user.ID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list runs: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": user.ID,
		"runs":    runs,
	})
}

// Status returns the user's watermark and last run outcome.
// GET /api/sync/:userID/status
func (s *SyncController) Status(c *gin.Context) {
	user, ok := s.loadUser(c)
	if !ok {
		return
	}

	watermark, err := s.watermarks.GetWatermark(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read watermark: " + err.Error()})
		return
	}

	lastRun, err := s.runs.LastRun(user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read last run: " + err.Error()})
		return
	}

	response := SyncStatusResponse{
		UserID:      user.ID,
		SyncEnabled: user.SyncEnabled,
		LastSyncAt:  watermark,
		LastRun:     lastRun,
	}
	if s.scheduler != nil {
		if next := s.scheduler.NextRunTime(user.ID); next != nil {
			response.NextRunAt = next.Format(time.RFC3339)
		}
	}

	c.JSON(http.StatusOK, response)
}

// loadUser parses the :userID param and loads the user, writing the error
// response itself when either step fails.
func (s *SyncController) loadUser(c *gin.Context) (*entities.User, bool) {
	id, err := strconv.ParseUint(c.Param("userID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return nil, false
	}

	user, err := s.users.GetUserByID(uint(id))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user: " + err.Error()})
		return nil, false
	}
	return user, true
}
