// Package destinations contains the clients that deliver highlight batches
// to external note-taking services. Each service has its own endpoint,
// payload shape and auth scheme; adding a destination means implementing
// Client, the orchestrator never changes.
package destinations

import (
	"context"

	"github.com/jordankuhns/readwise-twos-sync/internal/readwise"
)

// Delivery is the per-destination outcome of one batch.
type Delivery struct {
	Posted int
	Failed int
}

// Client posts a batch of highlights (with their book metadata) to one
// destination service. An empty batch still produces a single heartbeat
// post so downstream users see a daily entry even when nothing changed.
//
// Per-item delivery failures are counted in Delivery, not returned as an
// error; a non-nil error means the destination could not be used at all
// for this run. Either way the caller treats the destination as isolated:
// one destination failing never prevents the others from being attempted.
type Client interface {
	Name() string
	PostHighlights(ctx context.Context, highlights []readwise.Highlight, books map[int]readwise.BookMeta) (Delivery, error)
}
