// Package credentials stores per-user API credential bundles.
//
// Tokens are encrypted with AES-256-GCM before they touch the database;
// reads hand back a decrypted Bundle so the sync engine never deals with
// ciphertext.
package credentials

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/jordankuhns/readwise-twos-sync/internal/crypto"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// ErrNotFound indicates the user has no stored credentials.
var ErrNotFound = errors.New("no credentials found for user")

// Bundle is a user's decrypted credential set.
type Bundle struct {
	ReadwiseToken string

	TwosUserID string
	TwosToken  string

	CapacitiesToken          string
	CapacitiesSpaceID        string
	CapacitiesStructureID    string
	CapacitiesTextPropertyID string
}

// HasTwos reports whether the bundle can drive the Twos destination.
func (b *Bundle) HasTwos() bool {
	return b.TwosUserID != "" && b.TwosToken != ""
}

// HasCapacities reports whether the bundle can drive the Capacities destination.
func (b *Bundle) HasCapacities() bool {
	return b.CapacitiesToken != "" && b.CapacitiesSpaceID != ""
}

// Repository handles all credential database operations.
type Repository struct {
	db  *gorm.DB
	enc *crypto.Encryptor
}

// NewRepository creates a new credentials repository.
func NewRepository(db *gorm.DB, enc *crypto.Encryptor) *Repository {
	return &Repository{db: db, enc: enc}
}

// Save upserts a user's credential bundle, encrypting every token.
func (r *Repository) Save(userID uint, bundle Bundle) error {
	readwiseToken, err := r.enc.Encrypt(bundle.ReadwiseToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt readwise token: %w", err)
	}
	twosToken, err := r.enc.Encrypt(bundle.TwosToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt twos token: %w", err)
	}
	capacitiesToken, err := r.enc.Encrypt(bundle.CapacitiesToken)
	if err != nil {
		return fmt.Errorf("failed to encrypt capacities token: %w", err)
	}

	var cred entities.APICredential
	result := r.db.Where("user_id = ?", userID).First(&cred)
	if result.Error != nil && result.Error != gorm.ErrRecordNotFound {
		return result.Error
	}

	cred.UserID = userID
	cred.ReadwiseToken = readwiseToken
	cred.TwosUserID = bundle.TwosUserID
	cred.TwosToken = twosToken
	cred.CapacitiesToken = capacitiesToken
	cred.CapacitiesSpaceID = bundle.CapacitiesSpaceID
	cred.CapacitiesStructureID = bundle.CapacitiesStructureID
	cred.CapacitiesTextPropertyID = bundle.CapacitiesTextPropertyID

	if result.Error == gorm.ErrRecordNotFound {
		return r.db.Create(&cred).Error
	}
	return r.db.Save(&cred).Error
}

// Get returns a user's decrypted credential bundle.
func (r *Repository) Get(userID uint) (*Bundle, error) {
	var cred entities.APICredential
	err := r.db.Where("user_id = ?", userID).First(&cred).Error
	if err == gorm.ErrRecordNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	readwiseToken, err := r.enc.Decrypt(cred.ReadwiseToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt readwise token: %w", err)
	}
	twosToken, err := r.enc.Decrypt(cred.TwosToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt twos token: %w", err)
	}
	capacitiesToken, err := r.enc.Decrypt(cred.CapacitiesToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt capacities token: %w", err)
	}

	return &Bundle{
		ReadwiseToken:            readwiseToken,
		TwosUserID:               cred.TwosUserID,
		TwosToken:                twosToken,
		CapacitiesToken:          capacitiesToken,
		CapacitiesSpaceID:        cred.CapacitiesSpaceID,
		CapacitiesStructureID:    cred.CapacitiesStructureID,
		CapacitiesTextPropertyID: cred.CapacitiesTextPropertyID,
	}, nil
}
