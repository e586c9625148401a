package admin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubCache struct {
	ok        bool
	unhealthy []string
}

func (s stubCache) Healthy() (bool, []string) { return s.ok, s.unhealthy }

type stubDedup struct{ fallback bool }

func (s stubDedup) IsFallback() bool { return s.fallback }

func TestCacheHealthChecker_ReportsUnhealthyProviders(t *testing.T) {
	checker := NewCacheHealthChecker(stubCache{ok: false, unhealthy: []string{"tiingo", "stooq"}})
	ok, detail := checker.Healthy(context.Background())
	assert.False(t, ok)
	assert.Contains(t, detail, "tiingo")
	assert.Contains(t, detail, "stooq")
}

func TestCacheHealthChecker_HealthyWhenNoneUnhealthy(t *testing.T) {
	checker := NewCacheHealthChecker(stubCache{ok: true})
	ok, detail := checker.Healthy(context.Background())
	assert.True(t, ok)
	assert.Empty(t, detail)
}

func TestDedupHealthChecker_ReportsFallback(t *testing.T) {
	checker := NewDedupHealthChecker(stubDedup{fallback: true})
	ok, detail := checker.Healthy(context.Background())
	assert.False(t, ok)
	assert.Contains(t, detail, "fallback")
}

func TestDedupHealthChecker_HealthyWhenNotFallback(t *testing.T) {
	checker := NewDedupHealthChecker(stubDedup{fallback: false})
	ok, _ := checker.Healthy(context.Background())
	assert.True(t, ok)
}
