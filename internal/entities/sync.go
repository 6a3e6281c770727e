package entities

import (
	"time"
)

type SyncRunStatus string

const (
	SyncRunSuccess SyncRunStatus = "success"
	SyncRunFailed  SyncRunStatus = "failed"
)

// SyncState holds the incremental-sync watermark for one user.
// Only highlights updated strictly after LastSyncAt are fetched.
type SyncState struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"uniqueIndex" json:"user_id"`
	LastSyncAt string    `gorm:"size:64" json:"last_sync_at"` // RFC3339 UTC
	UpdatedAt  time.Time `json:"updated_at"`
}

func (SyncState) TableName() string {
	return "sync_states"
}

// SyncRun is an append-only audit record of one sync run.
type SyncRun struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	UserID           uint          `gorm:"index" json:"user_id"`
	Status           SyncRunStatus `gorm:"size:50" json:"status"`
	HighlightsSynced int           `gorm:"default:0" json:"highlights_synced"`
	Details          string        `gorm:"type:text" json:"details"`
	CreatedAt        time.Time     `json:"created_at"`
}

func (SyncRun) TableName() string {
	return "sync_runs"
}
