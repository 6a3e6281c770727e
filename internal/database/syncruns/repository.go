// Package syncruns provides the append-only run history log.
//
// Records are never updated or deleted here; retention is an external
// concern.
package syncruns

import (
	"time"

	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// Repository handles all sync run database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new sync runs repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// AppendRun appends one run record.
func (r *Repository) AppendRun(run *entities.SyncRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	return r.db.Create(run).Error
}

// ListRecent returns a user's most recent runs, newest first.
func (r *Repository) ListRecent(userID uint, limit int) ([]entities.SyncRun, error) {
	var runs []entities.SyncRun
	query := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&runs).Error
	return runs, err
}

// LastRun returns the most recent run for a user, or nil when none exist.
func (r *Repository) LastRun(userID uint) (*entities.SyncRun, error) {
	var run entities.SyncRun
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC, id DESC").First(&run).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}
