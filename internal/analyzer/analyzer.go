// Package analyzer implements the nightly historical analyzer (§4.J): it
// loads rejected items from a lookback window, fetches historical bars for
// each resolved ticker, computes per-timeframe outcomes, flags missed
// opportunities, mines candidate keywords by lift, statistically gates
// them with a proportion z-test and Benjamini-Hochberg correction, and
// emits conservative weight recommendations. The analyzer never mutates
// its source journal and is idempotent over identical inputs.
package analyzer

import (
	"context"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/journal"
	"github.com/lowfloat/catalystrun/internal/model"
)

// BarSource is the narrow slice of the market data cache the analyzer
// needs: historical bar lookup. The cache's own Bars method satisfies
// this directly.
type BarSource interface {
	Bars(ctx context.Context, ticker string, interval model.Interval, start, end time.Time) ([]model.Bar, error)
}

// Analyzer runs the out-of-band historical mining job against a rejected
// items journal and a bar source, writing conservative keyword-weight
// recommendations. It holds no mutable cycle-loop state and shares no
// lock region with the cycle loop's hot path, per §5.
type Analyzer struct {
	bars  BarSource
	store OutcomeStore

	lookback             time.Duration
	tradeabilityFilter   bool
	minVolumeAtEntry     int64
	maxSpreadPct         float64
}

// New builds an Analyzer from settings and its dependencies.
func New(settings *config.Settings, bars BarSource, store OutcomeStore) *Analyzer {
	if store == nil {
		store = NewMemoryOutcomeStore()
	}
	return &Analyzer{
		bars:               bars,
		store:              store,
		lookback:           settings.AnalyzerLookback,
		tradeabilityFilter: settings.AnalyzerTradeability,
		minVolumeAtEntry:   settings.AnalyzerMinVolume,
		maxSpreadPct:       settings.AnalyzerMaxSpreadPct,
	}
}

// Report is the analyzer's full run output: the outcomes it computed and
// the recommendations it derived from them.
type Report struct {
	RunAt           time.Time                     `json:"run_at"`
	WindowStart     time.Time                     `json:"window_start"`
	ItemsConsidered int                            `json:"items_considered"`
	MissedCount     int                            `json:"missed_opportunity_count"`
	Recommendations []model.KeywordRecommendation `json:"recommendations"`
}

// Run executes one analyzer pass: load → fetch bars → compute outcomes →
// tradeability filter → flag missed opportunities → mine keywords →
// statistical gate → emit. now is the analyzer's notion of the current
// instant (injected so the run stays a pure function of its inputs, per
// the same determinism discipline the classifier follows).
func (a *Analyzer) Run(ctx context.Context, rejectedPath string, now time.Time) (*Report, error) {
	since := now.Add(-a.lookback)

	records, err := journal.ReadRejectedSince(rejectedPath, since)
	if err != nil {
		return nil, err
	}

	var missedTitles, nonMissedTitles []string
	missedCount := 0

	for _, rec := range records {
		if len(rec.Tickers) == 0 {
			continue
		}
		anyMissed := false
		for _, ticker := range rec.Tickers {
			outcomes := a.computeOutcomes(ctx, rec, ticker)
			for _, oc := range outcomes {
				if err := a.store.Save(ctx, oc); err != nil {
					log.Warn().Err(err).Str("ticker", ticker).Msg("analyzer: failed to persist outcome")
				}
				if oc.IsMissedOpportunity {
					anyMissed = true
				}
			}
		}
		if anyMissed {
			missedTitles = append(missedTitles, rec.Title)
			missedCount++
		} else {
			nonMissedTitles = append(nonMissedTitles, rec.Title)
		}
	}

	candidates := MineKeywords(missedTitles, nonMissedTitles)
	recs := GateAndRecommend(candidates)

	return &Report{
		RunAt:           now,
		WindowStart:     since,
		ItemsConsidered: len(records),
		MissedCount:     missedCount,
		Recommendations: recs,
	}, nil
}

// computeOutcomes fetches bars for every timeframe in model.AllTimeframes
// and computes one Outcome per timeframe for (rec, ticker). A timeframe
// whose bars cannot be fetched is skipped rather than failing the item.
func (a *Analyzer) computeOutcomes(ctx context.Context, rec model.EventRecord, ticker string) []model.Outcome {
	var out []model.Outcome
	for _, tf := range model.AllTimeframes {
		interval := intervalForTimeframe(tf)
		window := durationForTimeframe(tf)

		bars, err := a.bars.Bars(ctx, ticker, interval, rec.TSPublished, rec.TSPublished.Add(window))
		if err != nil || len(bars) == 0 {
			continue
		}

		oc := computeOutcome(rec, ticker, tf, bars)
		if a.tradeabilityFilter && !a.tradeable(oc, bars) {
			oc.IsMissedOpportunity = false
		}
		out = append(out, oc)
	}
	return out
}

// tradeable implements §4.J step 4: reject opportunities with thin entry
// volume or an estimated spread too wide to realistically fill. No
// bid/ask is available from bar data, so spread is approximated by the
// entry bar's high-low range relative to its close — a conservative
// proxy consistent with the bar-only data the cache exposes.
func (a *Analyzer) tradeable(oc model.Outcome, bars []model.Bar) bool {
	if oc.VolumeAtEntry < a.minVolumeAtEntry {
		return false
	}
	entry := bars[0]
	if entry.Close <= 0 {
		return false
	}
	estimatedSpread := (entry.High - entry.Low) / entry.Close
	return estimatedSpread <= a.maxSpreadPct
}

// computeOutcome implements §4.J step 3: entry is the first bar's open at
// or after ts_published (bars are already filtered to start there), and
// max_return/drawdown are computed against every bar in the window.
func computeOutcome(rec model.EventRecord, ticker string, tf model.Timeframe, bars []model.Bar) model.Outcome {
	entry := bars[0].Open
	maxHigh := bars[0].High
	minLow := bars[0].Low
	for _, b := range bars[1:] {
		if b.High > maxHigh {
			maxHigh = b.High
		}
		if b.Low < minLow {
			minLow = b.Low
		}
	}

	maxReturn := 0.0
	drawdown := 0.0
	if entry > 0 {
		maxReturn = (maxHigh - entry) / entry
		drawdown = (minLow - entry) / entry
	}

	return model.Outcome{
		SourceID:            rec.SourceID,
		CanonicalID:         rec.CanonicalID,
		Ticker:              ticker,
		Timeframe:           tf,
		EntryPrice:          entry,
		ExitPrice:           bars[len(bars)-1].Close,
		MaxReturn:           maxReturn,
		Drawdown:            drawdown,
		VolumeAtEntry:       bars[0].Volume,
		IsMissedOpportunity: maxReturn >= 0.10,
	}
}

func intervalForTimeframe(tf model.Timeframe) model.Interval {
	switch tf {
	case model.TF15m, model.TF30m:
		return model.Interval5m
	case model.TF1h, model.TF4h:
		return model.Interval15m
	default:
		return model.Interval1d
	}
}

func durationForTimeframe(tf model.Timeframe) time.Duration {
	switch tf {
	case model.TF15m:
		return 15 * time.Minute
	case model.TF30m:
		return 30 * time.Minute
	case model.TF1h:
		return time.Hour
	case model.TF4h:
		return 4 * time.Hour
	case model.TF1d:
		return 24 * time.Hour
	case model.TF7d:
		return 7 * 24 * time.Hour
	default:
		return time.Hour
	}
}

// sortedKeys returns m's keys in sorted order, for deterministic
// iteration over a map. Nothing in this package calls it.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
