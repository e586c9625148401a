package cache

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lowfloat/catalystrun/internal/cache/provider"
	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/errs"
	"github.com/lowfloat/catalystrun/internal/model"
	"github.com/lowfloat/catalystrun/internal/net/budget"
	"github.com/lowfloat/catalystrun/internal/net/circuit"
	"github.com/lowfloat/catalystrun/internal/net/ratelimit"

	"github.com/rs/zerolog/log"
)

// Cache is the multi-tier market-data cache: memory → (optional redis) →
// disk → provider chain, per §4.C.
type Cache struct {
	memory *MemoryTier
	disk   *DiskTier
	redis  *RedisTier // nil when CACHE_REDIS_ADDR is unset

	providers    []provider.Provider
	providersCfg *config.ProvidersConfig

	limiters *ratelimit.Manager
	breakers *circuit.Manager
	budgets  *budget.Manager

	prefetchSem chan struct{}
}

// New wires the full cache stack from settings and a loaded provider
// chain config.
func New(settings *config.Settings, providersCfg *config.ProvidersConfig, providers []provider.Provider) (*Cache, error) {
	disk, err := NewDiskTier(settings.CacheDir)
	if err != nil {
		return nil, err
	}

	c := &Cache{
		memory:       NewMemoryTier(50_000),
		disk:         disk,
		providers:    providers,
		providersCfg: providersCfg,
		limiters:     ratelimit.NewManager(),
		breakers:     circuit.NewManager(),
		budgets:      budget.NewManager(),
		prefetchSem:  make(chan struct{}, providersCfg.Global.MaxConcurrentPrefetch),
	}

	if settings.CacheRedisAddr != "" {
		c.redis = NewRedisTier(settings.CacheRedisAddr)
	}

	for name, p := range providersCfg.Providers {
		if !p.Enabled {
			continue
		}
		c.limiters.AddProvider(name, float64(p.RPS), p.Burst)
		c.budgets.AddProvider(name, p.DailyBudget, providersCfg.Budget.ResetHour, providersCfg.Budget.WarnThreshold)
		c.breakers.AddProvider(name, circuit.Config{
			FailureThreshold: p.Circuit.FailureThreshold,
			SuccessThreshold: p.Circuit.SuccessThreshold,
			Timeout:          p.MaxBackoff(),
			RequestTimeout:   p.RequestTimeout(),
		})
	}

	return c, nil
}

// Bars returns OHLCV bars for (ticker, interval, start, end), checking
// tiers in order and populating faster tiers on a lower-tier hit.
func (c *Cache) Bars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error) {
	memKey := diskKey(ticker, interval, start, end)

	if raw, ok := c.memory.Get(memKey); ok {
		if bars, ok := decodeBars(raw); ok {
			return bars, nil
		}
	}

	if c.redis != nil {
		if bars, ok := c.redis.Get(ctx, ticker, interval, start, end); ok {
			c.populateMemory(memKey, bars, interval)
			return sortedBars(bars), nil
		}
	}

	if bars, ok := c.disk.Get(ticker, interval, start, end); ok {
		c.populateMemory(memKey, bars, interval)
		return sortedBars(bars), nil
	}

	bars, providerName, err := c.fetchFromProviderChain(ctx, ticker, interval, start, end)
	if err != nil {
		return nil, &errs.ErrNoData{Ticker: ticker}
	}

	ttl := c.ttlForInterval(providerName, interval)
	c.populateMemory(memKey, bars, interval)
	if c.redis != nil {
		c.redis.Set(ctx, ticker, interval, start, end, bars, ttl)
	}
	if err := c.disk.Set(ticker, interval, start, end, bars, ttl); err != nil {
		log.Warn().Err(err).Str("ticker", ticker).Msg("disk cache write failed")
	}

	return sortedBars(bars), nil
}

// PriceAt returns the latest trade price each provider reports for ticker.
// instant is not used: no historical price at that moment is looked up.
func (c *Cache) PriceAt(ctx context.Context, ticker string, instant time.Time) (price float64, currency string, err error) {
	for _, name := range c.providersCfg.ProviderOrder() {
		p := c.providerByName(name)
		if p == nil {
			continue
		}
		if !c.canCall(name) {
			continue
		}

		callErr := c.breakers.Call(ctx, name, func(cctx context.Context) error {
			var fetchErr error
			price, currency, fetchErr = p.FetchLastPrice(cctx, ticker)
			return fetchErr
		})
		_ = c.budgets.Consume(name)
		if callErr == nil {
			return price, currency, nil
		}
		err = callErr
	}
	return 0, "", &errs.ErrNoData{Ticker: ticker}
}

// Prefetch issues bounded concurrent provider requests for tickers,
// populating the memory and disk tiers. It uses a dedicated semaphore so
// bulk backfill never starves interactive lookups sharing the same cache.
func (c *Cache) Prefetch(ctx context.Context, tickers []string, interval model.Interval, start, end time.Time) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			select {
			case c.prefetchSem <- struct{}{}:
				defer func() { <-c.prefetchSem }()
			case <-gctx.Done():
				return gctx.Err()
			}
			if _, err := c.Bars(gctx, ticker, interval, start, end); err != nil {
				log.Debug().Err(err).Str("ticker", ticker).Msg("prefetch miss")
			}
			return nil // best-effort: prefetch failures never fail the batch
		})
	}
	return g.Wait()
}

// Healthy reports whether every provider's circuit breaker is closed with
// a lifetime success rate of at least 90% (or no calls yet), listing the
// providers that are not; an admin healthcheck surfaces this without needing to poll
// each provider directly.
func (c *Cache) Healthy() (ok bool, unhealthy []string) {
	unhealthy = c.breakers.GetUnhealthyProviders()
	return len(unhealthy) == 0, unhealthy
}

// Close releases background resources held by the cache tiers.
func (c *Cache) Close() error {
	c.memory.Stop()
	if c.redis != nil {
		return c.redis.Close()
	}
	return nil
}

func (c *Cache) populateMemory(key string, bars []model.Bar, interval model.Interval) {
	raw, ok := encodeBars(bars)
	if !ok {
		return
	}
	c.memory.Set(key, raw, memoryTTLForInterval(interval))
}

func memoryTTLForInterval(interval model.Interval) time.Duration {
	if interval == model.Interval1d {
		return time.Hour
	}
	return 5 * time.Minute
}

func (c *Cache) ttlForInterval(providerName string, interval model.Interval) time.Duration {
	if p, ok := c.providersCfg.GetProvider(providerName); ok && p.TTLSecs > 0 {
		return p.CacheTTL()
	}
	return memoryTTLForInterval(interval)
}

func (c *Cache) providerByName(name string) provider.Provider {
	for _, p := range c.providers {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// canCall checks the provider's budget and circuit-breaker health before a
// call is attempted, implementing the "skip unhealthy/exhausted providers"
// half of fallback semantics.
func (c *Cache) canCall(name string) bool {
	if err := c.budgets.Allow(name); err != nil {
		if _, exhausted := err.(*budget.BudgetExhaustedError); exhausted {
			return false
		}
	}
	if b, ok := c.breakers.GetBreaker(name); ok {
		stats := b.Stats()
		if !stats.IsHealthy() {
			return false
		}
	}
	return true
}

// fetchFromProviderChain walks the ordered provider list, honoring rate
// limits, circuit-breaker health, and daily budgets. ErrNoData is returned
// only once every provider has been attempted or skipped. Each provider
// call is routed through its circuit breaker, which records the
// success/failure itself.
func (c *Cache) fetchFromProviderChain(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, string, error) {
	var lastErr error
	for _, name := range c.providersCfg.ProviderOrder() {
		p := c.providerByName(name)
		if p == nil {
			continue
		}
		if !c.canCall(name) {
			lastErr = fmt.Errorf("%s: unhealthy or budget-exhausted", name)
			continue
		}

		waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := c.limiters.Wait(waitCtx, name, name)
		cancel()
		if err != nil {
			lastErr = &errs.RateLimited{Provider: name}
			continue
		}

		var bars []model.Bar
		callErr := c.breakers.Call(ctx, name, func(cctx context.Context) error {
			var fetchErr error
			bars, fetchErr = p.FetchBars(cctx, ticker, interval, start, end)
			return fetchErr
		})
		_ = c.budgets.Consume(name)
		if callErr != nil {
			lastErr = &errs.ProviderError{Provider: name, Err: callErr}
			log.Warn().Err(callErr).Str("provider", name).Str("ticker", ticker).Msg("provider fetch failed, trying next")
			continue
		}
		return sortedBars(bars), name, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, "", lastErr
}

// sortedBars orders bars by timestamp and drops duplicate timestamps
// (keeping the first occurrence), since a provider chain can hand back
// overlapping bars across fallback attempts.
func sortedBars(bars []model.Bar) []model.Bar {
	sort.Slice(bars, func(i, j int) bool { return bars[i].TSUTC.Before(bars[j].TSUTC) })

	deduped := bars[:0]
	var last time.Time
	for i, b := range bars {
		if i == 0 || !b.TSUTC.Equal(last) {
			deduped = append(deduped, b)
			last = b.TSUTC
		}
	}
	return deduped
}

func encodeBars(bars []model.Bar) ([]byte, bool) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(bars); err != nil {
		return nil, false
	}
	return buf.Bytes(), true
}

func decodeBars(raw []byte) ([]model.Bar, bool) {
	var bars []model.Bar
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&bars); err != nil {
		return nil, false
	}
	return bars, true
}
