package enrich

import (
	"context"
	"time"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/model"
)

// PriceLookupFunc resolves a ticker's most recent price, typically the
// market-data cache's PriceAt method.
type PriceLookupFunc func(ctx context.Context, ticker string, instant time.Time) (price float64, currency string, err error)

// Enricher bundles the five enrichment providers and the price lookup
// into a single entry point producing one EnrichmentSnapshot per
// (ticker, instant), honoring the settings' per-provider enable flags.
type Enricher struct {
	settings *config.Settings

	regime   *RegimeProvider
	sector   *SectorProvider
	rvol     *RVolProvider
	float    *FloatProvider
	offering *OfferingProvider
	price    PriceLookupFunc
}

// NewEnricher wires the enrichment providers together.
func NewEnricher(settings *config.Settings, regime *RegimeProvider, sector *SectorProvider, rvol *RVolProvider, float *FloatProvider, offering *OfferingProvider, price PriceLookupFunc) *Enricher {
	return &Enricher{
		settings: settings,
		regime:   regime,
		sector:   sector,
		rvol:     rvol,
		float:    float,
		offering: offering,
		price:    price,
	}
}

// Snapshot builds an EnrichmentSnapshot for ticker at instant. Each
// sub-provider is independently gated by its settings flag; a disabled
// provider contributes its identity value without being called.
func (e *Enricher) Snapshot(ctx context.Context, ticker string, instant time.Time) model.EnrichmentSnapshot {
	snap := model.EnrichmentSnapshot{
		Regime:           model.RegimeNeutral,
		RegimeMultiplier: 1.0,
		RVolMultiplier:   1.0,
		FloatClass:       model.FloatMedium,
		FloatMultiplier:  1.0,
		OfferingSeverity: model.OfferingNone,
		OfferingPenalty:  0,
	}

	if e.settings.EnableRegime && e.regime != nil {
		r := e.regime.Classify(ctx, instant)
		snap.Regime = r.Regime
		snap.RegimeConfidence = r.Confidence
		snap.RegimeMultiplier = r.Multiplier
	}

	if e.settings.EnableSector && e.sector != nil {
		s := e.sector.Lookup(ctx, ticker)
		snap.Sector = s.Sector
		snap.Industry = s.Industry
		snap.SectorRelReturn = s.SectorRelReturn
	}

	if e.settings.EnableRVol && e.rvol != nil {
		rv := e.rvol.Compute(ctx, ticker, instant)
		snap.RVol = rv.RVol
		snap.RVolMultiplier = rv.Multiplier
	} else {
		snap.RVol = 1.0
	}

	if e.settings.EnableFloat && e.float != nil {
		f := e.float.Classify(ctx, ticker)
		snap.FloatClass = f.Class
		snap.FloatMultiplier = f.Multiplier
	}

	if e.settings.EnableOffering && e.offering != nil {
		o := e.offering.Assess(ctx, ticker)
		snap.OfferingSeverity = o.Severity
		snap.OfferingPenalty = o.Penalty
	}

	if e.price != nil {
		price, currency, err := e.price(ctx, ticker, instant)
		if err == nil {
			snap.LastPrice = price
			snap.Currency = currency
			snap.HasPrice = true
		}
	}

	return snap
}
