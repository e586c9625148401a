package enrich

import (
	"context"
	"sync"
	"time"
)

// regularSessionHours is the length of the U.S. regular trading session
// used to extrapolate partial-day volume to a full-day estimate.
const regularSessionHours = 6.5

// VolumeSnapshot is the raw input to the relative-volume calculation.
type VolumeSnapshot struct {
	ElapsedVolume   int64   // volume traded so far in the current session
	ElapsedMinutes  float64 // minutes elapsed since the regular session open
	Avg20DayVolume  float64 // 20-day average daily volume
}

// VolumeSnapshotFunc supplies the raw volume data for a ticker at an instant.
type VolumeSnapshotFunc func(ctx context.Context, ticker string, instant time.Time) (VolumeSnapshot, error)

type rvolCacheEntry struct {
	result    RVolResult
	expiresAt time.Time
}

const rvolTTL = 5 * time.Minute

// RVolResult is the relative-volume provider's output.
type RVolResult struct {
	RVol       float64
	Multiplier float64
}

// RVolProvider computes relative volume as extrapolated full-day volume
// over the 20-day average, cached 5 minutes per ticker.
type RVolProvider struct {
	fetch VolumeSnapshotFunc

	mu    sync.Mutex
	cache map[string]rvolCacheEntry
}

// NewRVolProvider builds an RVol provider backed by fetch.
func NewRVolProvider(fetch VolumeSnapshotFunc) *RVolProvider {
	return &RVolProvider{fetch: fetch, cache: make(map[string]rvolCacheEntry)}
}

func identityRVol() RVolResult { return RVolResult{RVol: 1.0, Multiplier: 1.0} }

// Compute returns the relative-volume reading for ticker at instant, or
// the identity value if volume data is unavailable.
func (p *RVolProvider) Compute(ctx context.Context, ticker string, instant time.Time) RVolResult {
	p.mu.Lock()
	if e, ok := p.cache[ticker]; ok && time.Now().Before(e.expiresAt) {
		p.mu.Unlock()
		return e.result
	}
	p.mu.Unlock()

	snap, err := p.fetch(ctx, ticker, instant)
	if err != nil || snap.Avg20DayVolume <= 0 || snap.ElapsedMinutes <= 0 {
		return identityRVol()
	}

	elapsedHours := snap.ElapsedMinutes / 60.0
	if elapsedHours > regularSessionHours {
		elapsedHours = regularSessionHours
	}
	extrapolated := float64(snap.ElapsedVolume) * (regularSessionHours / elapsedHours)
	rvol := extrapolated / snap.Avg20DayVolume

	result := RVolResult{RVol: rvol, Multiplier: rvolMultiplier(rvol)}

	p.mu.Lock()
	p.cache[ticker] = rvolCacheEntry{result: result, expiresAt: time.Now().Add(rvolTTL)}
	p.mu.Unlock()

	return result
}

// rvolMultiplier maps a relative-volume reading to [0.8, 1.4]: rvol of
// 1.0 (average day) maps to 1.0, scaling linearly and clipping at the
// configured extremes.
func rvolMultiplier(rvol float64) float64 {
	m := 0.8 + 0.2*rvol
	if m < 0.8 {
		return 0.8
	}
	if m > 1.4 {
		return 1.4
	}
	return m
}
