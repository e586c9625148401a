// Package fetch implements the feed-fetcher variants: each is a pure
// network-to-RawItem adapter called concurrently once per cycle with a
// per-fetcher timeout, contributing zero items (and an incremented error
// counter) on timeout or failure rather than retrying within the cycle.
package fetch

import (
	"context"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Fetcher is the feed-fetcher contract: retrieve every item published
// since sinceTS.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, sinceTS time.Time) ([]model.RawItem, error)
}
