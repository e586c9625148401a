// Package enrich implements the pure (ticker, instant) → record providers
// that feed the classifier: regime, sector context, relative volume,
// float data, and offering severity. Each is backed by its own TTL cache
// and returns the identity value (multiplier 1.0, penalty 0.0) rather
// than an error when it cannot produce a result.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// RegimeIndicator is one weighted vote feeding the majority-vote regime
// decision, mirroring the teacher's weighted-indicator detector pattern.
type RegimeIndicator struct {
	Name      string
	Value     float64
	Threshold float64
	Weight    float64
}

// MarketSnapshot is the external data a regime classification is computed
// from — a volatility-index proxy and a broad-market trend reading.
type MarketSnapshot struct {
	VolatilityIndex  float64 // e.g. VIX-equivalent level
	BroadMarketTrend float64 // 20-day trend of a broad-market proxy, as a return
	BreadthThrust    float64 // fraction of constituents above their 20d MA
}

// MarketSnapshotFunc supplies the raw market data a regime decision needs;
// pluggable so tests and alternate data sources can stand in for a live feed.
type MarketSnapshotFunc func(ctx context.Context, instant time.Time) (MarketSnapshot, error)

type regimeCacheEntry struct {
	result    RegimeResult
	expiresAt time.Time
}

// RegimeResult is the regime classifier's output.
type RegimeResult struct {
	Regime     model.Regime
	Confidence float64
	Multiplier float64
}

const regimeTTL = 5 * time.Minute

// RegimeProvider classifies market regime from a volatility-index proxy
// and broad-market trend/breadth, using a weighted-indicator majority
// vote across five regime states.
type RegimeProvider struct {
	fetch MarketSnapshotFunc

	mu    sync.Mutex
	cache map[time.Time]regimeCacheEntry // keyed by instant truncated to the cache bucket
}

// NewRegimeProvider builds a regime classifier backed by fetch.
func NewRegimeProvider(fetch MarketSnapshotFunc) *RegimeProvider {
	return &RegimeProvider{fetch: fetch, cache: make(map[time.Time]regimeCacheEntry)}
}

func identityRegime() RegimeResult {
	return RegimeResult{Regime: model.RegimeNeutral, Confidence: 0, Multiplier: 1.0}
}

// Classify returns the current regime, its confidence, and its multiplier
// in [0.5, 1.2]. On any upstream failure it returns the identity value
// (NEUTRAL, multiplier 1.0) rather than propagating the error.
func (p *RegimeProvider) Classify(ctx context.Context, instant time.Time) RegimeResult {
	bucket := instant.Truncate(regimeTTL)

	p.mu.Lock()
	if e, ok := p.cache[bucket]; ok && time.Now().Before(e.expiresAt) {
		p.mu.Unlock()
		return e.result
	}
	p.mu.Unlock()

	snap, err := p.fetch(ctx, instant)
	if err != nil {
		return identityRegime()
	}

	result := classifyRegime(snap)

	p.mu.Lock()
	p.cache[bucket] = regimeCacheEntry{result: result, expiresAt: time.Now().Add(regimeTTL)}
	p.mu.Unlock()

	return result
}

// classifyRegime runs the weighted-indicator majority vote: each
// indicator casts a vote for CRASH/HIGH_VOL/BEAR/NEUTRAL/BULL weighted by
// its configured importance, and the regime with the highest normalized
// vote share wins.
func classifyRegime(snap MarketSnapshot) RegimeResult {
	votes := map[model.Regime]float64{
		model.RegimeCrash:   0,
		model.RegimeHighVol: 0,
		model.RegimeBear:    0,
		model.RegimeNeutral: 0,
		model.RegimeBull:    0,
	}

	const (
		volWeight     = 0.4
		trendWeight   = 0.35
		breadthWeight = 0.25
	)

	switch {
	case snap.VolatilityIndex >= 40:
		votes[model.RegimeCrash] += volWeight
	case snap.VolatilityIndex >= 28:
		votes[model.RegimeHighVol] += volWeight
	case snap.VolatilityIndex >= 20:
		votes[model.RegimeBear] += volWeight * 0.5
		votes[model.RegimeNeutral] += volWeight * 0.5
	default:
		votes[model.RegimeBull] += volWeight * 0.6
		votes[model.RegimeNeutral] += volWeight * 0.4
	}

	switch {
	case snap.BroadMarketTrend <= -0.15:
		votes[model.RegimeCrash] += trendWeight
	case snap.BroadMarketTrend <= -0.05:
		votes[model.RegimeBear] += trendWeight
	case snap.BroadMarketTrend < 0.05:
		votes[model.RegimeNeutral] += trendWeight
	default:
		votes[model.RegimeBull] += trendWeight
	}

	switch {
	case snap.BreadthThrust < 0.2:
		votes[model.RegimeBear] += breadthWeight * 0.5
		votes[model.RegimeHighVol] += breadthWeight * 0.5
	case snap.BreadthThrust < 0.5:
		votes[model.RegimeNeutral] += breadthWeight
	default:
		votes[model.RegimeBull] += breadthWeight
	}

	var winner model.Regime
	var best float64
	total := 0.0
	for r, v := range votes {
		total += v
		if v > best {
			best = v
			winner = r
		}
	}

	confidence := 0.0
	if total > 0 {
		confidence = best / total
	}

	return RegimeResult{
		Regime:     winner,
		Confidence: confidence,
		Multiplier: regimeMultiplier(winner, confidence),
	}
}

// regimeMultiplier maps a regime + confidence to a value in [0.5, 1.2]:
// bullish/neutral conditions scale catalysts up, volatile/crash
// conditions scale them down, and low-confidence reads pull toward 1.0.
func regimeMultiplier(r model.Regime, confidence float64) float64 {
	var base float64
	switch r {
	case model.RegimeBull:
		base = 1.2
	case model.RegimeNeutral:
		base = 1.0
	case model.RegimeBear:
		base = 0.8
	case model.RegimeHighVol:
		base = 0.65
	case model.RegimeCrash:
		base = 0.5
	default:
		base = 1.0
	}
	return 1.0 + (base-1.0)*confidence
}
