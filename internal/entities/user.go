package entities

import (
	"time"
)

type SyncFrequency string

const (
	SyncFrequencyDaily  SyncFrequency = "daily"
	SyncFrequencyWeekly SyncFrequency = "weekly"
)

// User owns a set of destination credentials and a sync schedule.
type User struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Email string `gorm:"size:255;uniqueIndex" json:"email"`
	Name  string `gorm:"size:255" json:"name"`

	SyncEnabled   bool          `gorm:"default:true" json:"sync_enabled"`
	SyncTime      string        `gorm:"size:5;default:'09:00'" json:"sync_time"` // "HH:MM", 24h
	SyncFrequency SyncFrequency `gorm:"size:20;default:'daily'" json:"sync_frequency"`
	SyncDaysBack  int           `gorm:"default:7" json:"sync_days_back"` // bootstrap window only

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// APICredential stores a user's tokens for the source and destination
// services. Token columns hold AES-256-GCM ciphertext, never plaintext.
type APICredential struct {
	ID     uint `gorm:"primaryKey" json:"id"`
	UserID uint `gorm:"uniqueIndex" json:"user_id"`

	ReadwiseToken string `gorm:"type:text" json:"-"`

	TwosUserID string `gorm:"size:255" json:"twos_user_id"`
	TwosToken  string `gorm:"type:text" json:"-"`

	CapacitiesToken          string `gorm:"type:text" json:"-"`
	CapacitiesSpaceID        string `gorm:"size:255" json:"capacities_space_id"`
	CapacitiesStructureID    string `gorm:"size:255" json:"capacities_structure_id"`
	CapacitiesTextPropertyID string `gorm:"size:255" json:"capacities_text_property_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (APICredential) TableName() string {
	return "api_credentials"
}
