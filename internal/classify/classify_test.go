package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/model"
)

type fixedSentiment struct{ score float64 }

func (f fixedSentiment) Score(title, bodySnippet string) float64 { return f.score }

func TestClassifyHappyPathScenario(t *testing.T) {
	table := &KeywordTable{Entries: []KeywordEntry{{Phrase: "fda approval", Weight: 0.5}}}
	c := NewClassifier(table, fixedSentiment{score: 0.3}, 0.3, 60*time.Minute)

	item := model.RawItem{
		SourceID: "sec_8k", CanonicalID: "acc1",
		Title:       "Company X announces FDA approval of Drug Y",
		TickersHint: []string{"XYZ"},
		TSPublished: time.Now(), TSObserved: time.Now(),
	}
	snap := model.EnrichmentSnapshot{
		Regime: model.RegimeBull, RegimeMultiplier: 1.1,
		RVolMultiplier:  1.1,
		FloatMultiplier: 1.2,
		OfferingPenalty: 0,
		LastPrice:       3.20, Currency: "USD", HasPrice: true,
	}

	scored, ok := c.Classify(item, snap)
	require.True(t, ok)

	assert.InDelta(t, 0.5, scored.KeywordScore, 1e-9)
	assert.InDelta(t, 0.5, scored.Relevance, 1e-9)
	assert.InDelta(t, 0.85668, scored.SourceWeight, 1e-6)
}

func TestClassifyOfferingDilutionOverridesPositiveKeywords(t *testing.T) {
	table := &KeywordTable{Entries: []KeywordEntry{{Phrase: "raises capital", Weight: 0.4}}}
	c := NewClassifier(table, fixedSentiment{score: 0.1}, 0.3, 60*time.Minute)

	item := model.RawItem{
		SourceID: "prnewswire", CanonicalID: "g1",
		Title:       "Acme raises capital via public offering",
		TickersHint: []string{"ACME"},
		TSPublished: time.Now(), TSObserved: time.Now(),
	}
	snap := model.EnrichmentSnapshot{
		RegimeMultiplier: 1.0, RVolMultiplier: 1.0, FloatMultiplier: 1.0,
		OfferingPenalty: -0.50,
	}

	scored, ok := c.Classify(item, snap)
	require.True(t, ok)

	assert.InDelta(t, -0.07, scored.SourceWeight, 1e-3)
}

func TestClassifyRejectsWhenNoTickerResolves(t *testing.T) {
	table := DefaultKeywordTable()
	c := NewClassifier(table, DisabledSentiment{}, 0.3, 60*time.Minute)

	item := model.RawItem{Title: "market update for the week ahead"}
	_, ok := c.Classify(item, model.EnrichmentSnapshot{RegimeMultiplier: 1, RVolMultiplier: 1, FloatMultiplier: 1})
	assert.False(t, ok)
}

func TestClassifyIsDeterministic(t *testing.T) {
	table := DefaultKeywordTable()
	c := NewClassifier(table, LexiconSentiment{}, 0.3, 60*time.Minute)

	item := model.RawItem{
		Title: "Company announces FDA approval breakthrough for new therapy",
		TickersHint: []string{"ABC"},
		TSPublished: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		TSObserved:  time.Date(2026, 1, 1, 0, 5, 0, 0, time.UTC),
	}
	snap := model.EnrichmentSnapshot{RegimeMultiplier: 1.05, RVolMultiplier: 1.1, FloatMultiplier: 1.0}

	first, ok1 := c.Classify(item, snap)
	second, ok2 := c.Classify(item, snap)

	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, first, second)
}

func TestConfidenceCapsPositiveMatchesAtThree(t *testing.T) {
	now := time.Now()
	withThree := Confidence(3, 0, now, now, time.Hour)
	withFive := Confidence(5, 0, now, now, time.Hour)
	assert.Equal(t, withThree, withFive)
}

func TestConfidenceDecaysWithAge(t *testing.T) {
	published := time.Now()
	fresh := Confidence(1, 0.2, published, published, time.Hour)
	stale := Confidence(1, 0.2, published, published.Add(55*time.Minute), time.Hour)
	assert.Greater(t, fresh, stale)
}

func TestConfidenceStaysWithinBounds(t *testing.T) {
	now := time.Now()
	c := Confidence(10, 5, now, now.Add(10*time.Hour), time.Hour)
	assert.GreaterOrEqual(t, c, 0.0)
	assert.LessOrEqual(t, c, 1.0)
}
