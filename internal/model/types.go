// Package model holds the nominal record types shared across the pipeline.
package model

import "time"

// RawItem is the output of a feed fetcher and the input to the classifier.
type RawItem struct {
	SourceID     string            `json:"source_id"`
	CanonicalID  string            `json:"canonical_id"`
	TSPublished  time.Time         `json:"ts_published"`
	TSObserved   time.Time         `json:"ts_observed"`
	Title        string            `json:"title"`
	BodySnippet  string            `json:"body_snippet,omitempty"`
	Link         string            `json:"link"`
	TickersHint  []string          `json:"tickers_hint,omitempty"`
	Metadata     map[string]any    `json:"metadata,omitempty"`
}

// DedupKey is the tuple that uniquely identifies a RawItem across restarts.
func (r RawItem) DedupKey() (sourceID, canonicalID string) {
	return r.SourceID, r.CanonicalID
}

// Regime is a coarse market-condition classification.
type Regime string

const (
	RegimeBull    Regime = "BULL"
	RegimeBear    Regime = "BEAR"
	RegimeHighVol Regime = "HIGH_VOL"
	RegimeNeutral Regime = "NEUTRAL"
	RegimeCrash   Regime = "CRASH"
)

// FloatClass buckets a company's share float.
type FloatClass string

const (
	FloatMicro  FloatClass = "MICRO"
	FloatLow    FloatClass = "LOW"
	FloatMedium FloatClass = "MEDIUM"
	FloatHigh   FloatClass = "HIGH"
)

// OfferingSeverity buckets dilution severity from a parsed offering filing.
type OfferingSeverity string

const (
	OfferingNone     OfferingSeverity = "NONE"
	OfferingMinor    OfferingSeverity = "MINOR"
	OfferingModerate OfferingSeverity = "MODERATE"
	OfferingSevere   OfferingSeverity = "SEVERE"
	OfferingExtreme  OfferingSeverity = "EXTREME"
)

// EnrichmentSnapshot is the bundle of enrichment-provider outputs fed into
// the classifier for a single (ticker, instant) pair. It is captured once
// per item so classification stays a pure function of its inputs.
type EnrichmentSnapshot struct {
	Regime           Regime
	RegimeConfidence float64
	RegimeMultiplier float64

	Sector            string
	Industry          string
	SectorRelReturn   float64

	RVol           float64
	RVolMultiplier float64

	FloatClass      FloatClass
	FloatMultiplier float64

	OfferingSeverity OfferingSeverity
	OfferingPenalty  float64

	LastPrice float64
	Currency  string
	HasPrice  bool
}

// RejectionReason enumerates the primary reason a RawItem failed admission.
type RejectionReason string

const (
	ReasonNoTicker         RejectionReason = "no_ticker"
	ReasonPriceOutOfBand   RejectionReason = "price_out_of_band"
	ReasonNoPrice          RejectionReason = "no_price"
	ReasonBelowMinScore    RejectionReason = "below_min_score"
	ReasonLowConfidence    RejectionReason = "low_confidence"
	ReasonStale            RejectionReason = "stale"
	ReasonDuplicate        RejectionReason = "duplicate"
	ReasonClassifierError  RejectionReason = "classifier_error"
)

// ItemState models the append-only lifecycle of a RawItem through the
// pipeline. There is no UN-ACCEPT transition.
type ItemState string

const (
	StateNew        ItemState = "NEW"
	StateClassified ItemState = "CLASSIFIED"
	StateAccepted   ItemState = "ACCEPTED"
	StateDispatched ItemState = "DISPATCHED"
	StateRejected   ItemState = "REJECTED"
	StateLogged     ItemState = "LOGGED"
)

// ScoredItem is the classifier's output: a RawItem plus every signal needed
// for admission and alerting.
type ScoredItem struct {
	RawItem

	Tickers []string `json:"tickers"`

	KeywordScore   float64 `json:"keyword_score"`
	SentimentScore float64 `json:"sentiment_score"`
	Relevance      float64 `json:"relevance"`
	SourceWeight   float64 `json:"source_weight"`
	Confidence     float64 `json:"confidence"`

	Regime           Regime  `json:"regime"`
	RegimeMultiplier float64 `json:"regime_multiplier"`
	RVolMultiplier   float64 `json:"rvol_multiplier"`
	FloatMultiplier  float64 `json:"float_multiplier"`
	OfferingPenalty  float64 `json:"offering_penalty"`

	LastPrice float64 `json:"last_price"`
	Currency  string  `json:"currency"`

	State ItemState `json:"-"`
}

// RejectedItem pairs a ScoredItem (or a partially-scored one, for items
// rejected before full classification) with its rejection reason.
type RejectedItem struct {
	ScoredItem
	RejectionReason   RejectionReason   `json:"rejection_reason"`
	SecondaryReasons  []RejectionReason `json:"secondary_reasons,omitempty"`
}

// Timeframe enumerates the analyzer's historical-outcome windows.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
	TF7d  Timeframe = "7d"
)

// AllTimeframes lists every timeframe the analyzer evaluates, in order.
var AllTimeframes = []Timeframe{TF15m, TF30m, TF1h, TF4h, TF1d, TF7d}

// Outcome is produced by the historical analyzer for a single
// (source_id, canonical_id, ticker, timeframe) key.
type Outcome struct {
	SourceID    string    `json:"source_id"`
	CanonicalID string    `json:"canonical_id"`
	Ticker      string    `json:"ticker"`
	Timeframe   Timeframe `json:"timeframe"`

	EntryPrice      float64 `json:"entry_price"`
	ExitPrice       float64 `json:"exit_price"`
	MaxReturn       float64 `json:"max_return"`
	Drawdown        float64 `json:"drawdown"`
	VolumeAtEntry   int64   `json:"volume_at_entry"`

	IsMissedOpportunity bool `json:"is_missed_opportunity"`
}

// RecommendationKind enumerates the kinds of keyword-weight recommendation
// the analyzer can emit.
type RecommendationKind string

const (
	RecNew            RecommendationKind = "new"
	RecWeightIncrease  RecommendationKind = "weight_increase"
	RecWeightDecrease  RecommendationKind = "weight_decrease"
	RecNewDiscovered   RecommendationKind = "new_discovered"
)

// Evidence backs a KeywordRecommendation with the statistics that produced it.
type Evidence struct {
	Occurrences int     `json:"occurrences"`
	Successes   int     `json:"successes"`
	SuccessRate float64 `json:"success_rate"`
	Lift        float64 `json:"lift"`
	LiftCILow   float64 `json:"lift_ci_low"`
	LiftCIHigh  float64 `json:"lift_ci_high"`
	SampleSize  int     `json:"sample_size"`
	PValue      float64 `json:"p_value"`
}

// KeywordRecommendation is one row of the analyzer's nightly output.
type KeywordRecommendation struct {
	Keyword            string             `json:"keyword"`
	Kind               RecommendationKind `json:"kind"`
	RecommendedWeight  float64            `json:"recommended_weight"`
	Confidence         float64            `json:"confidence"`
	Evidence           Evidence           `json:"evidence"`
}

// Bar is a single OHLCV candle.
type Bar struct {
	TSUTC  time.Time `json:"ts_utc"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// Interval enumerates bar granularities supported by providers.
type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval1h  Interval = "1h"
	Interval1d  Interval = "1d"
)

// EventRecord is the canonical schema written to events.jsonl /
// rejected_items.jsonl.
type EventRecord struct {
	TSPublished time.Time `json:"ts_published"`
	TSObserved  time.Time `json:"ts_observed"`
	SourceID    string    `json:"source_id"`
	CanonicalID string    `json:"canonical_id"`
	Tickers     []string  `json:"tickers"`
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	Cls         ClsFields `json:"cls"`
	RejectionReason RejectionReason `json:"rejection_reason,omitempty"`
	Schema      string    `json:"schema"`
}

// ClsFields is the classification sub-object embedded in an EventRecord.
type ClsFields struct {
	KeywordScore     float64 `json:"keyword_score"`
	SentimentScore   float64 `json:"sentiment_score"`
	SourceWeight     float64 `json:"source_weight"`
	Confidence       float64 `json:"confidence"`
	Relevance        float64 `json:"relevance"`
	Regime           Regime  `json:"regime"`
	RegimeMultiplier float64 `json:"regime_multiplier"`
	RVolMultiplier   float64 `json:"rvol_multiplier"`
	FloatMultiplier  float64 `json:"float_multiplier"`
	OfferingPenalty  float64 `json:"offering_penalty"`
	LastPrice        float64 `json:"last_price"`
}

// SchemaVersion is the current events.jsonl / rejected_items.jsonl schema tag.
const SchemaVersion = "v1"

// ToEventRecord renders a ScoredItem into its canonical journal form.
func (s ScoredItem) ToEventRecord() EventRecord {
	return EventRecord{
		TSPublished: s.TSPublished,
		TSObserved:  s.TSObserved,
		SourceID:    s.SourceID,
		CanonicalID: s.CanonicalID,
		Tickers:     s.Tickers,
		Title:       s.Title,
		Link:        s.Link,
		Schema:      SchemaVersion,
		Cls: ClsFields{
			KeywordScore:     s.KeywordScore,
			SentimentScore:   s.SentimentScore,
			SourceWeight:     s.SourceWeight,
			Confidence:       s.Confidence,
			Relevance:        s.Relevance,
			Regime:           s.Regime,
			RegimeMultiplier: s.RegimeMultiplier,
			RVolMultiplier:   s.RVolMultiplier,
			FloatMultiplier:  s.FloatMultiplier,
			OfferingPenalty:  s.OfferingPenalty,
			LastPrice:        s.LastPrice,
		},
	}
}

// ToEventRecord renders a RejectedItem into its canonical journal form.
func (r RejectedItem) ToEventRecord() EventRecord {
	rec := r.ScoredItem.ToEventRecord()
	rec.RejectionReason = r.RejectionReason
	return rec
}
