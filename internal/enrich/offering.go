package enrich

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// OfferingFiling is a detected dilutive filing (e.g. a prospectus
// supplement) with its implied dilution percentage.
type OfferingFiling struct {
	Found             bool
	DilutionPct       float64 // e.g. 0.12 for 12% implied dilution
	FiledAt           time.Time
}

// OfferingLookupFunc finds the most recent dilutive filing for a ticker,
// if any.
type OfferingLookupFunc func(ctx context.Context, ticker string) (OfferingFiling, error)

type offeringCacheEntry struct {
	result    OfferingResult
	expiresAt time.Time
}

const offeringTTL = 90 * 24 * time.Hour

// offeringHalfLife controls how quickly an offering's penalty decays
// toward zero as the filing ages, mirroring the teacher's catalyst
// event-tier exponential decay.
const offeringHalfLife = 14 * 24 * time.Hour

// OfferingResult is the offering-parser's output.
type OfferingResult struct {
	Severity model.OfferingSeverity
	Penalty  float64
}

// OfferingProvider detects dilutive filings and scores an offering
// penalty by severity band, decayed by time since filing and cached
// 90 days per spec.
type OfferingProvider struct {
	lookup OfferingLookupFunc
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]offeringCacheEntry
}

// NewOfferingProvider builds an offering parser backed by lookup.
func NewOfferingProvider(lookup OfferingLookupFunc) *OfferingProvider {
	return &OfferingProvider{lookup: lookup, now: time.Now, cache: make(map[string]offeringCacheEntry)}
}

func identityOffering() OfferingResult {
	return OfferingResult{Severity: model.OfferingNone, Penalty: 0}
}

// Assess returns the offering penalty for ticker, or the identity value
// if no dilutive filing is found or the lookup fails.
func (p *OfferingProvider) Assess(ctx context.Context, ticker string) OfferingResult {
	p.mu.Lock()
	if e, ok := p.cache[ticker]; ok && p.now().Before(e.expiresAt) {
		p.mu.Unlock()
		return e.result
	}
	p.mu.Unlock()

	filing, err := p.lookup(ctx, ticker)
	if err != nil || !filing.Found {
		return identityOffering()
	}

	severity := classifyOfferingSeverity(filing.DilutionPct)
	penalty := offeringPenalty(severity, filing.DilutionPct, p.now().Sub(filing.FiledAt))
	result := OfferingResult{Severity: severity, Penalty: penalty}

	p.mu.Lock()
	p.cache[ticker] = offeringCacheEntry{result: result, expiresAt: p.now().Add(offeringTTL)}
	p.mu.Unlock()

	return result
}

// classifyOfferingSeverity buckets implied dilution into the spec's
// named severity bands.
func classifyOfferingSeverity(dilutionPct float64) model.OfferingSeverity {
	switch {
	case dilutionPct <= 0:
		return model.OfferingNone
	case dilutionPct < 0.05:
		return model.OfferingMinor
	case dilutionPct < 0.15:
		return model.OfferingModerate
	case dilutionPct < 0.30:
		return model.OfferingSevere
	default:
		return model.OfferingExtreme
	}
}

// severityBasePenalty is the full-strength (age=0) penalty for each band,
// within the spec's [-0.50, 0] range.
func severityBasePenalty(s model.OfferingSeverity) float64 {
	switch s {
	case model.OfferingMinor:
		return -0.10
	case model.OfferingModerate:
		return -0.25
	case model.OfferingSevere:
		return -0.40
	case model.OfferingExtreme:
		return -0.50
	default:
		return 0
	}
}

// offeringPenalty decays the severity band's base penalty toward zero
// with age, using the teacher's exponential half-life idiom.
func offeringPenalty(severity model.OfferingSeverity, dilutionPct float64, age time.Duration) float64 {
	if severity == model.OfferingNone {
		return 0
	}
	base := severityBasePenalty(severity)
	decay := math.Exp(-math.Ln2 * age.Hours() / offeringHalfLife.Hours())
	penalty := base * decay
	if penalty < -0.50 {
		return -0.50
	}
	if penalty > 0 {
		return 0
	}
	return penalty
}
