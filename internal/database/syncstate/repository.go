// Package syncstate persists the per-user incremental-sync watermark.
//
// This package implements the watermark half of the syncer.StateStore
// interface.
//
// # Usage
//
//	repo := syncstate.NewRepository(db)
//	watermark, err := repo.GetWatermark(userID)
package syncstate

import (
	"time"

	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// Repository handles all sync watermark database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync state repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetWatermark returns the user's last-sync timestamp, or "" when the
// user has never completed a sync (the caller falls back to a bootstrap
// window).
func (r *Repository) GetWatermark(userID uint) (string, error) {
	var state entities.SyncState
	err := r.db.Where("user_id = ?", userID).First(&state).Error
	if err == gorm.ErrRecordNotFound {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.LastSyncAt, nil
}

// SetWatermark stores the user's last-sync timestamp. The caller only
// invokes this after a fully successful run, so the value never moves
// backwards in practice.
func (r *Repository) SetWatermark(userID uint, timestamp string) error {
	var state entities.SyncState
	result := r.db.Where("user_id = ?", userID).First(&state)

	if result.Error == gorm.ErrRecordNotFound {
		state = entities.SyncState{
			UserID:     userID,
			LastSyncAt: timestamp,
			UpdatedAt:  time.Now(),
		}
		return r.db.Create(&state).Error
	}
	if result.Error != nil {
		return result.Error
	}

	state.LastSyncAt = timestamp
	state.UpdatedAt = time.Now()
	return r.db.Save(&state).Error
}
