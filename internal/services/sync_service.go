// Package services wires repositories and API clients into user-facing
// operations.
package services

import (
	"context"
	"fmt"

	"github.com/jordankuhns/readwise-twos-sync/internal/destinations"
	"github.com/jordankuhns/readwise-twos-sync/internal/syncer"
)

// stateStore adapts the watermark and run-log repositories to the single
// interface the sync engine consumes.
type stateStore struct {
	WatermarkStore
	RunLog
}

// SyncService runs syncs for stored users: it loads the user's decrypted
// credentials, builds a destination client per configured service, and
// hands everything to the engine.
type SyncService struct {
	users  UserReader
	creds  CredentialReader
	source syncer.SourceClient
	store  syncer.StateStore
}

// NewSyncService creates a sync service on top of the database repositories.
func NewSyncService(users UserReader, creds CredentialReader, source syncer.SourceClient, watermarks WatermarkStore, runs RunLog) *SyncService {
	return &SyncService{
		users:  users,
		creds:  creds,
		source: source,
		store:  stateStore{watermarks, runs},
	}
}

// SyncUser performs one sync run for the given user. DaysBack overrides the
// bootstrap window; pass 0 to use the user's own setting.
func (s *SyncService) SyncUser(ctx context.Context, userID uint, daysBack int) (syncer.Result, error) {
	user, err := s.users.GetUserByID(userID)
	if err != nil {
		return syncer.Result{}, fmt.Errorf("failed to load user %d: %w", userID, err)
	}

	bundle, err := s.creds.Get(userID)
	if err != nil {
		return syncer.Result{}, fmt.Errorf("failed to load credentials for user %d: %w", userID, err)
	}

	var dests []destinations.Client
	if bundle.HasTwos() {
		dests = append(dests, destinations.NewTwosClient(bundle.TwosUserID, bundle.TwosToken))
	}
	if bundle.HasCapacities() {
		dests = append(dests, destinations.NewCapacitiesClient(
			bundle.CapacitiesToken,
			bundle.CapacitiesSpaceID,
			bundle.CapacitiesStructureID,
			bundle.CapacitiesTextPropertyID,
		))
	}

	if daysBack <= 0 {
		daysBack = user.SyncDaysBack
	}

	engine := syncer.New(s.source, dests, s.store)
	return engine.Sync(ctx, syncer.Params{
		UserID:        user.ID,
		ReadwiseToken: bundle.ReadwiseToken,
		DaysBack:      daysBack,
	})
}

var _ syncer.StateStore = stateStore{}
