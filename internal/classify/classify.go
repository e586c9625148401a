// Package classify implements ticker resolution, the weighted keyword
// matcher, pluggable sentiment scoring, and the score-composition formula
// that turns a RawItem plus its EnrichmentSnapshot into a ScoredItem. The
// composition step is a pure, deterministic function of its inputs (P3).
package classify

import (
	"time"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Classifier holds the configuration needed to score a RawItem: the
// keyword table, sentiment source, and the sentiment-weighting constant α.
type Classifier struct {
	Keywords  *KeywordTable
	Sentiment SentimentSource
	Alpha     float64
	MaxAge    time.Duration
}

// NewClassifier builds a Classifier from its dependencies.
func NewClassifier(keywords *KeywordTable, sentiment SentimentSource, alpha float64, maxAge time.Duration) *Classifier {
	return &Classifier{Keywords: keywords, Sentiment: sentiment, Alpha: alpha, MaxAge: maxAge}
}

// Classify is the pure composition function described by §4.F steps 1-7.
// Given the same RawItem, EnrichmentSnapshot, and KeywordTable it always
// produces the same ScoredItem (P3). Ticker resolution failure is
// reported via the ok return rather than a panic or error, since "no
// ticker" is an ordinary rejection path, not a classifier malfunction.
func (c *Classifier) Classify(item model.RawItem, snap model.EnrichmentSnapshot) (model.ScoredItem, bool) {
	tickers := ResolveTickers(item.Title, item.TickersHint)
	if len(tickers) == 0 {
		return model.ScoredItem{}, false
	}

	hits := c.Keywords.Match(item.Title)
	keywordScore := KeywordScore(hits)

	sentimentScore := 0.0
	if c.Sentiment != nil {
		sentimentScore = c.Sentiment.Score(item.Title, item.BodySnippet)
	}

	base := clip(keywordScore+c.Alpha*sentimentScore, -1, 1)
	composed := base * snap.RegimeMultiplier * snap.RVolMultiplier * snap.FloatMultiplier
	sourceWeight := clip(composed+snap.OfferingPenalty, -1, 1)

	confidence := Confidence(PositiveMatchCount(hits), sentimentScore, item.TSPublished, item.TSObserved, c.MaxAge)

	scored := model.ScoredItem{
		RawItem:          item,
		Tickers:          tickers,
		KeywordScore:     keywordScore,
		SentimentScore:   sentimentScore,
		Relevance:        keywordScore,
		SourceWeight:     sourceWeight,
		Confidence:       confidence,
		Regime:           snap.Regime,
		RegimeMultiplier: snap.RegimeMultiplier,
		RVolMultiplier:   snap.RVolMultiplier,
		FloatMultiplier:  snap.FloatMultiplier,
		OfferingPenalty:  snap.OfferingPenalty,
		LastPrice:        snap.LastPrice,
		Currency:         snap.Currency,
		State:            model.StateClassified,
	}
	return scored, true
}

// Confidence implements §4.F step 7: a function of the number of
// positive keyword matches, sentiment magnitude, and freshness. Exposed
// as a standalone pure function so it is independently testable.
//
// Weighting: base 0.25 + up to 0.45 for matches (capped at 3) + up to
// 0.20 for |sentiment| + up to 0.10 for freshness, summing to at most 1.0
// by construction; clipped defensively in case of future reweighting.
func Confidence(positiveMatches int, sentimentScore float64, tsPublished, tsObserved time.Time, maxAge time.Duration) float64 {
	if positiveMatches > 3 {
		positiveMatches = 3
	}

	freshness := 1.0
	if maxAge > 0 {
		age := tsObserved.Sub(tsPublished)
		freshness = 1.0 - float64(age)/float64(maxAge)
	}
	freshness = clip(freshness, 0, 1)

	sentimentMagnitude := sentimentScore
	if sentimentMagnitude < 0 {
		sentimentMagnitude = -sentimentMagnitude
	}

	confidence := 0.25 + 0.15*float64(positiveMatches) + 0.20*sentimentMagnitude + 0.10*freshness
	return clip(confidence, 0, 1)
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
