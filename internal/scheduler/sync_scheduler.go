// Package scheduler runs each user's sync on their configured schedule.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
)

// steadyStateDaysBack bounds the bootstrap window for scheduled runs.
// Once a user has a watermark the value is ignored entirely.
const steadyStateDaysBack = 1

// UserLister returns the users that should be scheduled.
type UserLister interface {
	ListSyncEnabled() ([]entities.User, error)
}

// Enqueuer hands a sync run off for background execution.
type Enqueuer interface {
	EnqueueSync(userID uint, daysBack int) error
}

// SyncScheduler manages one cron entry per sync-enabled user, derived from
// the user's SyncTime and SyncFrequency settings.
type SyncScheduler struct {
	users    UserLister
	enqueuer Enqueuer

	cron      *cron.Cron
	mu        sync.RWMutex
	entries   map[uint]cron.EntryID
	isRunning bool
}

// NewSyncScheduler creates a new scheduler instance.
func NewSyncScheduler(users UserLister, enqueuer Enqueuer) *SyncScheduler {
	return &SyncScheduler{
		users:    users,
		enqueuer: enqueuer,
		cron:     cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow))),
		entries:  map[uint]cron.EntryID{},
	}
}

// Start schedules every sync-enabled user and begins the cron loop.
func (s *SyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if err := s.scheduleAllLocked(); err != nil {
		return err
	}

	s.cron.Start()
	s.isRunning = true
	log.Printf("Sync scheduler: started with %d user schedule(s)", len(s.entries))

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *SyncScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.isRunning = false

	log.Printf("Sync scheduler: stopped")
}

// Refresh reloads user schedules after settings change.
func (s *SyncScheduler) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userID, entryID := range s.entries {
		s.cron.Remove(entryID)
		delete(s.entries, userID)
	}
	return s.scheduleAllLocked()
}

// IsRunning returns whether the scheduler is active.
func (s *SyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRunTime returns when the user's next sync will occur.
func (s *SyncScheduler) NextRunTime(userID uint) *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entryID, ok := s.entries[userID]
	if !ok {
		return nil
	}
	entry := s.cron.Entry(entryID)
	if entry.ID == 0 {
		return nil
	}
	t := entry.Next
	return &t
}

func (s *SyncScheduler) scheduleAllLocked() error {
	users, err := s.users.ListSyncEnabled()
	if err != nil {
		return fmt.Errorf("failed to list sync-enabled users: %w", err)
	}

	for _, user := range users {
		spec, err := CronSpec(user.SyncTime, user.SyncFrequency)
		if err != nil {
			log.Printf("Sync scheduler: skipping user %d: %v", user.ID, err)
			continue
		}

		userID := user.ID
		entryID, err := s.cron.AddFunc(spec, func() {
			if err := s.enqueuer.EnqueueSync(userID, steadyStateDaysBack); err != nil {
				log.Printf("Sync scheduler: failed to enqueue sync for user %d: %v", userID, err)
			}
		})
		if err != nil {
			log.Printf("Sync scheduler: failed to schedule user %d (%s): %v", user.ID, spec, err)
			continue
		}
		s.entries[user.ID] = entryID
		log.Printf("Sync scheduler: user %d scheduled at '%s' (%s)", user.ID, user.SyncTime, user.SyncFrequency)
	}

	return nil
}

// CronSpec converts a "HH:MM" time and a frequency into a cron expression.
// Weekly schedules fire on Sunday.
func CronSpec(syncTime string, frequency entities.SyncFrequency) (string, error) {
	parts := strings.SplitN(syncTime, ":", 2)
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid sync time %q, expected HH:MM", syncTime)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in sync time %q", syncTime)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in sync time %q", syncTime)
	}

	switch frequency {
	case entities.SyncFrequencyDaily:
		return fmt.Sprintf("%d %d * * *", minute, hour), nil
	case entities.SyncFrequencyWeekly:
		return fmt.Sprintf("%d %d * * 0", minute, hour), nil
	default:
		return "", fmt.Errorf("unknown sync frequency %q", frequency)
	}
}
