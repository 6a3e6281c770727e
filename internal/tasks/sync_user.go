package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/jordankuhns/readwise-twos-sync/internal/services"
)

// SyncUserTask runs one sync for one user.
type SyncUserTask struct {
	UserID uint `json:"user_id"`

	// DaysBack bounds the bootstrap window; 0 means the user's own setting.
	DaysBack int `json:"days_back"`
}

// Config returns the queue configuration for user sync tasks.
// MaxAttempts is 1: the watermark only advances on success, so the next
// scheduled run retries the same window and a queue-level retry would
// just double-post sooner.
func (t SyncUserTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sync_user",
		MaxAttempts: 1,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnqueueSync enqueues one sync run for the user. Satisfies the enqueuer
// interfaces of the scheduler and the HTTP layer.
func (c *Client) EnqueueSync(userID uint, daysBack int) error {
	_, err := c.Add(SyncUserTask{UserID: userID, DaysBack: daysBack}).Save()
	return err
}

// SyncUserProcessor creates a processor function for SyncUserTask.
func SyncUserProcessor(svc *services.SyncService) backlite.QueueProcessor[SyncUserTask] {
	return func(ctx context.Context, task SyncUserTask) error {
		if svc == nil {
			return fmt.Errorf("sync service not configured")
		}

		result, err := svc.SyncUser(ctx, task.UserID, task.DaysBack)
		if err != nil {
			return fmt.Errorf("sync user %d: %w", task.UserID, err)
		}

		log.Printf("[TASK] Synced user %d: %s", task.UserID, result.Message)
		return nil
	}
}

// NewSyncUserQueue creates a backlite queue for user sync tasks.
func NewSyncUserQueue(svc *services.SyncService) backlite.Queue {
	return backlite.NewQueue(SyncUserProcessor(svc))
}
