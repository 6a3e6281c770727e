// Package syncer implements the incremental sync run: fetch highlights
// newer than the stored watermark, join them to the book catalog, fan the
// batch out to every configured destination, and record the outcome.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jordankuhns/readwise-twos-sync/internal/destinations"
	"github.com/jordankuhns/readwise-twos-sync/internal/entities"
	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
)

// ErrNoDestinations indicates a sync was requested with nowhere to send
// data. This is a configuration error, not a silent no-op.
var ErrNoDestinations = errors.New("no destinations configured")

// SourceClient fetches books and highlights from the highlight source.
type SourceClient interface {
	FetchAllBooks(ctx context.Context, token string) (map[int]readwise.BookMeta, error)
	FetchHighlightsSince(ctx context.Context, token, since string) ([]readwise.Highlight, error)
}

// StateStore persists the per-user watermark and the run history.
// The watermark must only move forward, and only after a fully successful
// run; a failed run leaves it untouched so the same window is retried.
type StateStore interface {
	GetWatermark(userID uint) (string, error)
	SetWatermark(userID uint, timestamp string) error
	AppendRun(run *entities.SyncRun) error
}

// Params carries one run's inputs. Credentials arrive already decrypted;
// the engine never touches credential storage.
type Params struct {
	UserID        uint
	ReadwiseToken string

	// DaysBack bounds the bootstrap window used when no watermark exists
	// yet. Steady-state runs pass 1 regardless of the user's setting.
	DaysBack int
}

// Result is the caller-facing outcome of one run.
type Result struct {
	Success          bool   `json:"success"`
	Message          string `json:"message"`
	HighlightsSynced int    `json:"highlights_synced"`
}

// Engine coordinates sync runs. It holds already-constructed clients;
// nothing is looked up from ambient state at run time.
type Engine struct {
	source SourceClient
	dests  []destinations.Client
	store  StateStore
	now    func() time.Time
}

// New creates a sync engine for a fixed set of destinations.
func New(source SourceClient, dests []destinations.Client, store StateStore) *Engine {
	return &Engine{
		source: source,
		dests:  dests,
		store:  store,
		now:    time.Now,
	}
}

// WithClock replaces the engine's clock (used in tests).
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Sync performs one run. Fatal errors (source fetch failure, missing
// destinations) are recorded as a failed run and returned; per-destination
// failures are isolated, logged, and never fail the run by themselves.
func (e *Engine) Sync(ctx context.Context, params Params) (Result, error) {
	log.Printf("Sync: starting run for user %d", params.UserID)

	if len(e.dests) == 0 {
		return e.fail(params.UserID, ErrNoDestinations)
	}

	since, err := e.sinceTimestamp(params)
	if err != nil {
		return e.fail(params.UserID, err)
	}
	log.Printf("Sync: fetching highlights updated after %s", since)

	highlights, err := e.source.FetchHighlightsSince(ctx, params.ReadwiseToken, since)
	if err != nil {
		return e.fail(params.UserID, err)
	}

	books := map[int]readwise.BookMeta{}
	if len(highlights) > 0 {
		books, err = e.source.FetchAllBooks(ctx, params.ReadwiseToken)
		if err != nil {
			return e.fail(params.UserID, err)
		}
	}

	for _, dest := range e.dests {
		e.deliver(ctx, dest, highlights, books)
	}

	var message string
	if len(highlights) > 0 {
		message = fmt.Sprintf("Successfully synced %d highlights to destinations!", len(highlights))
	} else {
		message = "No new highlights found, but posted update to destinations."
	}

	now := e.now().UTC().Format(time.RFC3339)
	if err := e.store.SetWatermark(params.UserID, now); err != nil {
		return e.fail(params.UserID, fmt.Errorf("failed to advance watermark: %w", err))
	}

	result := Result{
		Success:          true,
		Message:          message,
		HighlightsSynced: len(highlights),
	}
	e.record(params.UserID, entities.SyncRunSuccess, result.HighlightsSynced, message)

	log.Printf("Sync: completed for user %d: %s", params.UserID, message)
	return result, nil
}

// sinceTimestamp returns the stored watermark, or a bootstrap window of
// DaysBack days when no watermark exists yet.
func (e *Engine) sinceTimestamp(params Params) (string, error) {
	watermark, err := e.store.GetWatermark(params.UserID)
	if err != nil {
		return "", fmt.Errorf("failed to read watermark: %w", err)
	}
	if watermark != "" {
		return watermark, nil
	}

	daysBack := params.DaysBack
	if daysBack <= 0 {
		daysBack = 1
	}
	return e.now().UTC().AddDate(0, 0, -daysBack).Format(time.RFC3339), nil
}

// deliver posts one batch to one destination, isolating failures and
// panics so the remaining destinations are still attempted.
func (e *Engine) deliver(ctx context.Context, dest destinations.Client, highlights []readwise.Highlight, books map[int]readwise.BookMeta) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Sync: destination %s panicked: %v", dest.Name(), r)
		}
	}()

	delivery, err := dest.PostHighlights(ctx, highlights, books)
	if err != nil {
		log.Printf("Sync: destination %s failed: %v", dest.Name(), err)
		return
	}
	log.Printf("Sync: destination %s delivered %d posts (%d failed)", dest.Name(), delivery.Posted, delivery.Failed)
}

func (e *Engine) fail(userID uint, err error) (Result, error) {
	log.Printf("Sync: run failed for user %d: %v", userID, err)
	e.record(userID, entities.SyncRunFailed, 0, err.Error())
	return Result{Success: false, Message: err.Error()}, err
}

func (e *Engine) record(userID uint, status entities.SyncRunStatus, count int, details string) {
	run := &entities.SyncRun{
		UserID:           userID,
		Status:           status,
		HighlightsSynced: count,
		Details:          details,
	}
	if err := e.store.AppendRun(run); err != nil {
		log.Printf("Sync: warning - failed to append run record: %v", err)
	}
}
