package dispatch

import (
	"sync"
	"time"
)

// hourlyCap tracks a rolling-hour request count, in the same
// limit/used/lastReset shape as the teacher's budget.Tracker but on a
// fixed one-hour cadence rather than a configurable daily reset hour —
// the dispatcher's global hourly cap has no notion of a reset-hour-of-day.
type hourlyCap struct {
	mu        sync.Mutex
	limit     int
	used      int
	windowEnd time.Time
}

func newHourlyCap(limit int) *hourlyCap {
	return &hourlyCap{limit: limit, windowEnd: time.Now().Add(time.Hour)}
}

// Allow reports whether one more dispatch fits within the current hour's
// cap, rolling the window over if it has elapsed.
func (h *hourlyCap) Allow(now time.Time) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if now.After(h.windowEnd) {
		h.used = 0
		h.windowEnd = now.Add(time.Hour)
	}
	if h.limit <= 0 {
		return true
	}
	return h.used < h.limit
}

// Consume records one dispatch against the current hour's cap.
func (h *hourlyCap) Consume(now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if now.After(h.windowEnd) {
		h.used = 0
		h.windowEnd = now.Add(time.Hour)
	}
	h.used++
}
