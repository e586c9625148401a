// Package dispatch implements the alert webhook pipeline (§4.H): render a
// ScoredItem into a chat-adapter payload, enforce a per-channel token
// bucket and global hourly cap, and retry transient HTTP failures with
// exponential backoff. Grounded on the teacher's Discord alert provider
// (out/review/.../internal/application/alerts_discord.go), generalized
// behind the teacher's own AlertProvider interface shape.
package dispatch

import (
	"context"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// AlertProvider is one outbound destination for rendered alerts. Multiple
// providers (Discord-style webhook, Slack-compatible webhook) can be
// registered on the same Dispatcher.
type AlertProvider interface {
	Name() string
	Send(ctx context.Context, item model.ScoredItem) error
}

// Queued is one item waiting in the overflow queue, stamped with its
// arrival time so dropped-item logging can report age.
type Queued struct {
	Item      model.ScoredItem
	QueuedAt  time.Time
}
