// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetUserByEmail(email)
package users

import (
	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user with default sync settings.
func (r *Repository) CreateUser(email, name string) (*entities.User, error) {
	user := &entities.User{
		Email:         email,
		Name:          name,
		SyncEnabled:   true,
		SyncTime:      "09:00",
		SyncFrequency: entities.SyncFrequencyDaily,
		SyncDaysBack:  7,
	}

	if err := r.db.Create(user).Error; err != nil {
		return nil, err
	}

	return user, nil
}

// GetUserByID retrieves a user by ID.
func (r *Repository) GetUserByID(id uint) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *Repository) GetUserByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListSyncEnabled returns all users with scheduled sync turned on.
func (r *Repository) ListSyncEnabled() ([]entities.User, error) {
	var users []entities.User
	err := r.db.Where("sync_enabled = ?", true).Find(&users).Error
	return users, err
}

// UpdateUser saves changes to a user's settings.
func (r *Repository) UpdateUser(user *entities.User) error {
	return r.db.Save(user).Error
}
