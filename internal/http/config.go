package http

import (
	"time"

	"github.com/jordankuhns/readwise-twos-sync/internal/database"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// SyncEnqueuer hands a manual sync run off for background execution.
type SyncEnqueuer interface {
	EnqueueSync(userID uint, daysBack int) error
}

// UserGetter provides read access to user records.
type UserGetter interface {
	GetUserByID(id uint) (*entities.User, error)
}

// RunLister provides read access to the sync run history.
type RunLister interface {
	ListRecent(userID uint, limit int) ([]entities.SyncRun, error)
	LastRun(userID uint) (*entities.SyncRun, error)
}

// WatermarkReader reads the per-user sync watermark.
type WatermarkReader interface {
	GetWatermark(userID uint) (string, error)
}

// NextRunSource reports when a user's next scheduled sync will occur.
type NextRunSource interface {
	NextRunTime(userID uint) *time.Time
}

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	Database *database.Database
	Version  string

	Users      UserGetter
	Runs       RunLister
	Watermarks WatermarkReader

	// Enqueuer is optional; manual sync triggers return 503 without it.
	Enqueuer SyncEnqueuer

	// Scheduler is optional; status responses omit next_run_at without it.
	Scheduler NextRunSource
}
