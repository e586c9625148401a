package admin

import (
	"context"
	"fmt"
	"strings"
)

// cacheHealth adapts *cache.Cache to HealthChecker without importing the
// cache package directly, avoiding an import cycle should cache ever
// need the admin types; the narrow interface is satisfied structurally.
type cacheHealth struct {
	cache interface {
		Healthy() (bool, []string)
	}
}

// NewCacheHealthChecker wraps c (typically *cache.Cache) as a HealthChecker
// reporting whether every provider's circuit breaker is closed with a
// success rate of at least 90%.
func NewCacheHealthChecker(c interface{ Healthy() (bool, []string) }) HealthChecker {
	return &cacheHealth{cache: c}
}

func (h *cacheHealth) Name() string { return "market_data_cache" }

func (h *cacheHealth) Healthy(_ context.Context) (bool, string) {
	ok, unhealthy := h.cache.Healthy()
	if ok {
		return true, ""
	}
	return false, fmt.Sprintf("circuit open for: %s", strings.Join(unhealthy, ", "))
}

// dedupHealth adapts *dedup.Store to HealthChecker.
type dedupHealth struct {
	store interface {
		IsFallback() bool
	}
}

// NewDedupHealthChecker wraps s (typically *dedup.Store) as a
// HealthChecker reporting whether the store has degraded to its
// in-memory fallback.
func NewDedupHealthChecker(s interface{ IsFallback() bool }) HealthChecker {
	return &dedupHealth{store: s}
}

func (h *dedupHealth) Name() string { return "dedup_store" }

func (h *dedupHealth) Healthy(_ context.Context) (bool, string) {
	if h.store.IsFallback() {
		return false, "running on in-memory fallback, bbolt store unavailable"
	}
	return true, ""
}
