package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// FloatResult is the float-data provider's output.
type FloatResult struct {
	Class      model.FloatClass
	Multiplier float64
	Shares     int64
}

// FloatSharesFunc resolves a ticker to its outstanding/float share count,
// e.g. SECFinancial.FetchCompanyFacts behind a ticker→CIK lookup.
type FloatSharesFunc func(ctx context.Context, ticker string) (shares int64, err error)

type floatCacheEntry struct {
	result    FloatResult
	expiresAt time.Time
}

const floatTTL = 30 * 24 * time.Hour

// FloatProvider classifies a ticker's share float into MICRO/LOW/MEDIUM/HIGH
// buckets, cached 30 days per spec (float data changes slowly).
type FloatProvider struct {
	fetch FloatSharesFunc

	mu    sync.Mutex
	cache map[string]floatCacheEntry
}

// NewFloatProvider builds a float-data provider backed by fetch.
func NewFloatProvider(fetch FloatSharesFunc) *FloatProvider {
	return &FloatProvider{fetch: fetch, cache: make(map[string]floatCacheEntry)}
}

func identityFloat() FloatResult {
	return FloatResult{Class: model.FloatMedium, Multiplier: 1.0}
}

// Classify returns the float classification for ticker, or the identity
// value if share data cannot be obtained.
func (p *FloatProvider) Classify(ctx context.Context, ticker string) FloatResult {
	p.mu.Lock()
	if e, ok := p.cache[ticker]; ok && time.Now().Before(e.expiresAt) {
		p.mu.Unlock()
		return e.result
	}
	p.mu.Unlock()

	shares, err := p.fetch(ctx, ticker)
	if err != nil || shares <= 0 {
		return identityFloat()
	}

	result := FloatResult{Class: classifyFloat(shares), Shares: shares}
	result.Multiplier = floatMultiplier(result.Class)

	p.mu.Lock()
	p.cache[ticker] = floatCacheEntry{result: result, expiresAt: time.Now().Add(floatTTL)}
	p.mu.Unlock()

	return result
}

// classifyFloat buckets share count into the four float classes used by
// small-cap catalyst screens.
func classifyFloat(shares int64) model.FloatClass {
	switch {
	case shares < 10_000_000:
		return model.FloatMicro
	case shares < 50_000_000:
		return model.FloatLow
	case shares < 200_000_000:
		return model.FloatMedium
	default:
		return model.FloatHigh
	}
}

// floatMultiplier maps float class to [0.9, 1.3]: thinner floats amplify
// a catalyst's price impact.
func floatMultiplier(c model.FloatClass) float64 {
	switch c {
	case model.FloatMicro:
		return 1.3
	case model.FloatLow:
		return 1.15
	case model.FloatMedium:
		return 1.0
	case model.FloatHigh:
		return 0.9
	default:
		return 1.0
	}
}
