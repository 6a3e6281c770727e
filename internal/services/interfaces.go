package services

import (
	"github.com/jordankuhns/readwise-twos-sync/internal/database/credentials"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// WatermarkStore provides access to the per-user sync watermark.
type WatermarkStore interface {
	GetWatermark(userID uint) (string, error)
	SetWatermark(userID uint, timestamp string) error
}

// RunLog records sync run outcomes.
type RunLog interface {
	AppendRun(run *entities.SyncRun) error
}

// CredentialReader returns a user's decrypted credential bundle.
type CredentialReader interface {
	Get(userID uint) (*credentials.Bundle, error)
}

// UserReader provides read-only access to user records.
type UserReader interface {
	GetUserByID(id uint) (*entities.User, error)
}
