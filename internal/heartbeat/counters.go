// Package heartbeat implements the periodic status beacon (§4.K): every
// N cycles it summarizes cycle counts, throughput, dispatch outcomes,
// rejection-reason breakdown, cache hit rates, and provider error counts,
// and posts the summary to an admin webhook channel. A heartbeat failure
// never affects main-loop liveness — Beacon.Fire only logs on error.
package heartbeat

import (
	"sync"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Counters accumulates the running totals the heartbeat beacon reports,
// reset each time Fire emits a heartbeat, whether or not the post
// succeeds. Safe for concurrent use from the
// cycle loop, the dispatcher, and the cache tiers.
type Counters struct {
	mu sync.Mutex

	cycles         int64
	itemsPerCycle  []int

	dispatched     int64
	dispatchErrors int64

	rejections map[model.RejectionReason]int64

	cacheHits   map[string]int64
	cacheMisses map[string]int64

	providerErrors map[string]int64

	lastError     string
	lastErrorTime time.Time
}

// NewCounters builds an empty Counters.
func NewCounters() *Counters {
	return &Counters{
		rejections:     make(map[model.RejectionReason]int64),
		cacheHits:      make(map[string]int64),
		cacheMisses:    make(map[string]int64),
		providerErrors: make(map[string]int64),
	}
}

// RecordCycle records the completion of one ingestion cycle with
// itemCount raw items fetched.
func (c *Counters) RecordCycle(itemCount int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles++
	c.itemsPerCycle = append(c.itemsPerCycle, itemCount)
}

// RecordDispatch records one successful alert dispatch.
func (c *Counters) RecordDispatch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatched++
}

// RecordDispatchError records one alert dispatch failure.
func (c *Counters) RecordDispatchError() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dispatchErrors++
}

// RecordRejection records one rejected item under reason.
func (c *Counters) RecordRejection(reason model.RejectionReason) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rejections[reason]++
}

// RecordCacheHit records one cache hit on the named tier.
func (c *Counters) RecordCacheHit(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheHits[tier]++
}

// RecordCacheMiss records one cache miss on the named tier.
func (c *Counters) RecordCacheMiss(tier string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cacheMisses[tier]++
}

// RecordProviderError records one market data provider error.
func (c *Counters) RecordProviderError(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.providerErrors[provider]++
}

// RecordError records the most recent error message and timestamp,
// surfaced in the heartbeat regardless of which subsystem raised it.
func (c *Counters) RecordError(err error, at time.Time) {
	if err == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastError = err.Error()
	c.lastErrorTime = at
}

// Snapshot captures the current counters as an immutable Summary without
// resetting them.
func (c *Counters) Snapshot(now time.Time) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	mean := 0.0
	if len(c.itemsPerCycle) > 0 {
		total := 0
		for _, n := range c.itemsPerCycle {
			total += n
		}
		mean = float64(total) / float64(len(c.itemsPerCycle))
	}

	cacheHitRate := make(map[string]float64, len(c.cacheHits))
	for tier, hits := range c.cacheHits {
		misses := c.cacheMisses[tier]
		total := hits + misses
		if total == 0 {
			cacheHitRate[tier] = 0
			continue
		}
		cacheHitRate[tier] = float64(hits) / float64(total)
	}
	for tier, misses := range c.cacheMisses {
		if _, ok := cacheHitRate[tier]; !ok && misses > 0 {
			cacheHitRate[tier] = 0
		}
	}

	return Summary{
		At:                now,
		Cycles:            c.cycles,
		ItemsPerCycleMean: mean,
		Dispatched:        c.dispatched,
		DispatchErrors:    c.dispatchErrors,
		Rejections:        copyReasonMap(c.rejections),
		CacheHitRate:      cacheHitRate,
		ProviderErrors:    copyStringMap(c.providerErrors),
		LastError:         c.lastError,
		LastErrorTime:     c.lastErrorTime,
	}
}

// Reset zeroes the per-window counters after a Summary has been emitted,
// so each heartbeat reports only the interval since the prior one.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cycles = 0
	c.itemsPerCycle = nil
	c.dispatched = 0
	c.dispatchErrors = 0
	c.rejections = make(map[model.RejectionReason]int64)
	c.cacheHits = make(map[string]int64)
	c.cacheMisses = make(map[string]int64)
	c.providerErrors = make(map[string]int64)
}

// Summary is a point-in-time, read-only rendering of Counters.
type Summary struct {
	At                time.Time
	Cycles            int64
	ItemsPerCycleMean float64
	Dispatched        int64
	DispatchErrors    int64
	Rejections        map[model.RejectionReason]int64
	CacheHitRate      map[string]float64
	ProviderErrors    map[string]int64
	LastError         string
	LastErrorTime     time.Time
}

func copyReasonMap(m map[model.RejectionReason]int64) map[model.RejectionReason]int64 {
	out := make(map[model.RejectionReason]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyStringMap(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
