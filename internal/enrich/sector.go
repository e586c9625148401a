package enrich

import (
	"context"
	"sync"
	"time"
)

// SectorInfo is a ticker's sector classification and its relative
// performance against the matching sector ETF.
type SectorInfo struct {
	Sector          string
	Industry        string
	SectorRelReturn float64
}

// SectorLookupFunc resolves a ticker to its sector/industry/relative
// return; pluggable so it can be backed by a static taxonomy file, a
// vendor API, or a test double.
type SectorLookupFunc func(ctx context.Context, ticker string) (SectorInfo, error)

type sectorCacheEntry struct {
	info      SectorInfo
	expiresAt time.Time
}

const sectorTTL = 5 * time.Minute

// SectorProvider supplies sector context for a ticker, cached 5 minutes
// per spec.
type SectorProvider struct {
	lookup SectorLookupFunc

	mu    sync.Mutex
	cache map[string]sectorCacheEntry
}

// NewSectorProvider builds a sector context provider backed by lookup.
func NewSectorProvider(lookup SectorLookupFunc) *SectorProvider {
	return &SectorProvider{lookup: lookup, cache: make(map[string]sectorCacheEntry)}
}

func identitySector() SectorInfo {
	return SectorInfo{Sector: "UNKNOWN", Industry: "UNKNOWN", SectorRelReturn: 0}
}

// Lookup returns sector context for ticker, or the identity value if the
// underlying lookup fails.
func (p *SectorProvider) Lookup(ctx context.Context, ticker string) SectorInfo {
	p.mu.Lock()
	if e, ok := p.cache[ticker]; ok && time.Now().Before(e.expiresAt) {
		p.mu.Unlock()
		return e.info
	}
	p.mu.Unlock()

	info, err := p.lookup(ctx, ticker)
	if err != nil {
		return identitySector()
	}

	p.mu.Lock()
	p.cache[ticker] = sectorCacheEntry{info: info, expiresAt: time.Now().Add(sectorTTL)}
	p.mu.Unlock()

	return info
}
