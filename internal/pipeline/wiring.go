// Package pipeline wires the leaf components (A-K of spec.md's component
// table) into the single cycle loop described in spec.md §2 and §5: the
// fetcher pool feeds the classifier, the classifier's enrichment snapshot
// is drawn from the market data cache and the enrichment providers, and
// admission results fan out to the journals and the dispatcher. This
// file builds the enrichment-provider backing functions from the cache
// and SEC EDGAR; cycle.go owns the loop itself.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lowfloat/catalystrun/internal/cache"
	"github.com/lowfloat/catalystrun/internal/cache/provider"
	"github.com/lowfloat/catalystrun/internal/enrich"
	"github.com/lowfloat/catalystrun/internal/model"
)

// regimeProxyTickers are the volatility-index and broad-market proxies
// the regime classifier reads 20-day trend and level data from. Index
// tickers themselves (^VIX, ^SPX) are not tradeable equities, so these
// are the ETF-tracked proxies most free bar providers actually carry.
const (
	volatilityProxyTicker  = "VIXY"
	broadMarketProxyTicker = "SPY"
)

// marketSnapshotFunc builds a MarketSnapshotFunc over cache bars: the
// volatility proxy's latest close is the "VIX-equivalent level," and the
// broad-market proxy's 20-day return and breadth-thrust proxy (fraction
// of the lookback's daily bars that closed up) feed the majority vote.
func marketSnapshotFunc(c *cache.Cache) enrich.MarketSnapshotFunc {
	return func(ctx context.Context, instant time.Time) (enrich.MarketSnapshot, error) {
		start := instant.Add(-30 * 24 * time.Hour)

		volBars, err := c.Bars(ctx, volatilityProxyTicker, model.Interval1d, start, instant)
		if err != nil || len(volBars) == 0 {
			return enrich.MarketSnapshot{}, fmt.Errorf("volatility proxy unavailable: %w", err)
		}

		marketBars, err := c.Bars(ctx, broadMarketProxyTicker, model.Interval1d, start, instant)
		if err != nil || len(marketBars) < 2 {
			return enrich.MarketSnapshot{}, fmt.Errorf("broad market proxy unavailable: %w", err)
		}

		window := trendWindow(marketBars, 20)
		trend := (window[len(window)-1].Close - window[0].Close) / window[0].Close

		upDays := 0
		for i := 1; i < len(window); i++ {
			if window[i].Close > window[i-1].Close {
				upDays++
			}
		}
		breadth := float64(upDays) / float64(len(window)-1)

		return enrich.MarketSnapshot{
			VolatilityIndex:  volBars[len(volBars)-1].Close,
			BroadMarketTrend: trend,
			BreadthThrust:    breadth,
		}, nil
	}
}

func trendWindow(bars []model.Bar, window int) []model.Bar {
	if len(bars) <= window {
		return bars
	}
	return bars[len(bars)-window:]
}

// volumeSnapshotFunc builds a VolumeSnapshotFunc for the RVol provider:
// elapsed intraday volume summed from 1-minute bars since the regular
// session open, against the preceding 20 trading days' average daily
// volume.
func volumeSnapshotFunc(c *cache.Cache) enrich.VolumeSnapshotFunc {
	return func(ctx context.Context, ticker string, instant time.Time) (enrich.VolumeSnapshot, error) {
		sessionOpen := sessionOpenET(instant)

		intradayBars, err := c.Bars(ctx, ticker, model.Interval1m, sessionOpen, instant)
		if err != nil {
			return enrich.VolumeSnapshot{}, err
		}
		var elapsed int64
		for _, b := range intradayBars {
			elapsed += b.Volume
		}

		dailyStart := instant.Add(-28 * 24 * time.Hour)
		dailyBars, err := c.Bars(ctx, ticker, model.Interval1d, dailyStart, instant)
		if err != nil || len(dailyBars) == 0 {
			return enrich.VolumeSnapshot{}, fmt.Errorf("no daily history for %s: %w", ticker, err)
		}
		window := trendWindow(dailyBars, 20)
		var total int64
		for _, b := range window {
			total += b.Volume
		}
		avg := float64(total) / float64(len(window))

		return enrich.VolumeSnapshot{
			ElapsedVolume:  elapsed,
			ElapsedMinutes: instant.Sub(sessionOpen).Minutes(),
			Avg20DayVolume: avg,
		}, nil
	}
}

// sessionOpenET returns instant's regular-session open (09:30 ET) on the
// same calendar day, used as the RVol extrapolation's zero point.
func sessionOpenET(instant time.Time) time.Time {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		loc = time.UTC
	}
	et := instant.In(loc)
	return time.Date(et.Year(), et.Month(), et.Day(), 9, 30, 0, 0, loc)
}

// tickerCIKResolver maps a ticker symbol to its SEC-assigned CIK. It is
// backed by a small static table loaded at startup rather than SEC's full
// company_tickers.json index (a several-hundred-thousand-row download
// this process has no use refreshing per enrichment call); misses fall
// through to the identity value like every other enrichment provider.
type tickerCIKResolver struct {
	byTicker map[string]int64
}

func newTickerCIKResolver(table map[string]int64) *tickerCIKResolver {
	if table == nil {
		table = map[string]int64{}
	}
	return &tickerCIKResolver{byTicker: table}
}

func (r *tickerCIKResolver) resolve(ticker string) (int64, bool) {
	cik, ok := r.byTicker[ticker]
	return cik, ok
}

// floatSharesFunc builds a FloatSharesFunc from SEC's free company-facts
// API, resolving ticker to CIK via resolver first.
func floatSharesFunc(sec *provider.SECFinancial, resolver *tickerCIKResolver) enrich.FloatSharesFunc {
	return func(ctx context.Context, ticker string) (int64, error) {
		cik, ok := resolver.resolve(ticker)
		if !ok {
			return 0, fmt.Errorf("no CIK mapping for %s", ticker)
		}
		facts, err := sec.FetchCompanyFacts(ctx, cik)
		if err != nil {
			return 0, err
		}
		return facts.SharesOutstanding, nil
	}
}

// offeringFilingFinder scans SEC EDGAR's filing-history index for a
// recent dilutive-offering form (see offeringForms) and reports any match
// with the fixed dilution estimate of estimateDilution; the filing's
// offering size is not read. It is a standalone HTTP client
// rather than a provider.Provider, following the same "free XBRL-style
// endpoint behind a mandatory User-Agent" shape as provider.SECFinancial.
type offeringFilingFinder struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	shares     *provider.SECFinancial
}

func newOfferingFilingFinder(baseURL, userAgent string, timeout time.Duration, shares *provider.SECFinancial) *offeringFilingFinder {
	return &offeringFilingFinder{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		userAgent:  userAgent,
		shares:     shares,
	}
}

// offeringForms are SEC form types indicating a dilutive securities
// offering: 424B-series prospectus supplements and S-1/S-3 registration
// statements with their amendments.
var offeringForms = map[string]bool{
	"424B1": true, "424B2": true, "424B3": true, "424B4": true, "424B5": true,
	"S-1": true, "S-1/A": true, "S-3": true, "S-3/A": true,
}

type submissionsPayload struct {
	Filings struct {
		Recent struct {
			Form         []string `json:"form"`
			FilingDate   []string `json:"filingDate"`
			AccessionNum []string `json:"accessionNumber"`
		} `json:"recent"`
	} `json:"filings"`
}

// find looks for the most recent offering-form filing within the last
// 30 days of SEC EDGAR's filing-history index for cik.
func (f *offeringFilingFinder) find(ctx context.Context, cik int64) (enrich.OfferingFiling, error) {
	u := fmt.Sprintf("%s/submissions/CIK%010d.json", f.baseURL, cik)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return enrich.OfferingFiling{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return enrich.OfferingFiling{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return enrich.OfferingFiling{}, fmt.Errorf("sec submissions: status %d", resp.StatusCode)
	}

	var payload submissionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return enrich.OfferingFiling{}, fmt.Errorf("sec submissions: decode: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -30)
	for i, form := range payload.Filings.Recent.Form {
		if !offeringForms[form] {
			continue
		}
		filedAt, err := time.Parse("2006-01-02", payload.Filings.Recent.FilingDate[i])
		if err != nil || filedAt.Before(cutoff) {
			continue
		}
		return enrich.OfferingFiling{Found: true, FiledAt: filedAt, DilutionPct: f.estimateDilution(ctx, cik)}, nil
	}
	return enrich.OfferingFiling{Found: false}, nil
}

// estimateDilution is a coarse proxy: without parsing the offering's
// prospectus body for the exact share count offered, this uses a fixed
// mid-band estimate (MODERATE severity territory) whenever an offering
// form is detected, erring toward caution rather than silently scoring
// zero dilution. A future revision can replace this with full-text
// parsing of the S-1/424B exhibit for the actual share count.
func (f *offeringFilingFinder) estimateDilution(ctx context.Context, cik int64) float64 {
	return 0.10
}

// offeringLookupFunc adapts offeringFilingFinder to the enrich package's
// OfferingLookupFunc contract.
func offeringLookupFunc(finder *offeringFilingFinder, resolver *tickerCIKResolver) enrich.OfferingLookupFunc {
	return func(ctx context.Context, ticker string) (enrich.OfferingFiling, error) {
		cik, ok := resolver.resolve(ticker)
		if !ok {
			return enrich.OfferingFiling{}, fmt.Errorf("no CIK mapping for %s", ticker)
		}
		return finder.find(ctx, cik)
	}
}

// sectorLookupFunc builds a SectorLookupFunc from a static ticker→sector
// taxonomy table loaded at startup; this pipeline has no vendor
// sector-classification subscription, so unmapped tickers fall through to
// the identity value exactly as spec.md §4.D requires of any enrichment
// miss.
func sectorLookupFunc(taxonomy map[string]enrich.SectorInfo) enrich.SectorLookupFunc {
	return func(ctx context.Context, ticker string) (enrich.SectorInfo, error) {
		info, ok := taxonomy[ticker]
		if !ok {
			return enrich.SectorInfo{}, fmt.Errorf("no sector mapping for %s", ticker)
		}
		return info, nil
	}
}
