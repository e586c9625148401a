package filter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/dedup"
	"github.com/lowfloat/catalystrun/internal/model"
)

func testSettings() *config.Settings {
	return &config.Settings{
		PriceBandLower: 0.10,
		PriceBandUpper: 10.00,
		MinScore:       0.25,
		MinConfidence:  0.4,
		MaxAge:         60 * time.Minute,
	}
}

func testStore(t *testing.T) *dedup.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dedup.db")
	store, err := dedup.Open(path, 14*24*time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Remove(path) })
	return store
}

func baseItem() model.ScoredItem {
	now := time.Now()
	return model.ScoredItem{
		RawItem: model.RawItem{
			SourceID: "sec_8k", CanonicalID: "acc-1",
			TSPublished: now, TSObserved: now,
		},
		Tickers:      []string{"XYZ"},
		SourceWeight: 0.5,
		Confidence:   0.6,
		LastPrice:    3.0,
	}
}

func TestDecideAcceptsWhenAllChecksPass(t *testing.T) {
	a := New(testSettings(), testStore(t))
	accepted, rejected := a.Decide(baseItem())
	require.Nil(t, rejected)
	require.NotNil(t, accepted)
	assert.Equal(t, model.StateAccepted, accepted.State)
}

func TestDecideRejectsNoTicker(t *testing.T) {
	item := baseItem()
	item.Tickers = nil
	a := New(testSettings(), testStore(t))
	accepted, rejected := a.Decide(item)
	require.Nil(t, accepted)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonNoTicker, rejected.RejectionReason)
}

func TestDecidePriceBandBoundaryLowerAccepted(t *testing.T) {
	item := baseItem()
	item.LastPrice = 0.10
	a := New(testSettings(), testStore(t))
	accepted, rejected := a.Decide(item)
	require.Nil(t, rejected)
	require.NotNil(t, accepted)
}

func TestDecidePriceJustBelowBandRejected(t *testing.T) {
	item := baseItem()
	item.LastPrice = 0.09
	a := New(testSettings(), testStore(t))
	accepted, rejected := a.Decide(item)
	require.Nil(t, accepted)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonPriceOutOfBand, rejected.RejectionReason)
}

func TestDecideNoPriceRejected(t *testing.T) {
	item := baseItem()
	item.LastPrice = 0
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonNoPrice, rejected.RejectionReason)
}

func TestDecideMaxAgeBoundaryAccepted(t *testing.T) {
	item := baseItem()
	now := time.Now()
	item.TSPublished = now.Add(-60 * time.Minute)
	item.TSObserved = now
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	assert.Nil(t, rejected)
}

func TestDecideJustOverMaxAgeRejectedStale(t *testing.T) {
	item := baseItem()
	item.TSPublished = time.Now().Add(-61 * time.Minute)
	item.TSObserved = time.Now()
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonStale, rejected.RejectionReason)
}

func TestDecideSourceWeightBoundaryAccepted(t *testing.T) {
	item := baseItem()
	item.SourceWeight = 0.25
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	assert.Nil(t, rejected)
}

func TestDecideBelowMinScoreRejected(t *testing.T) {
	item := baseItem()
	item.SourceWeight = 0.24
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonBelowMinScore, rejected.RejectionReason)
}

func TestDecideLowConfidenceRejected(t *testing.T) {
	item := baseItem()
	item.Confidence = 0.1
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonLowConfidence, rejected.RejectionReason)
}

func TestDecideDuplicateRejected(t *testing.T) {
	store := testStore(t)
	item := baseItem()
	require.NoError(t, store.Mark(item.SourceID, item.CanonicalID, time.Now()))

	a := New(testSettings(), store)
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonDuplicate, rejected.RejectionReason)
}

func TestDecideRecordsSecondaryReasons(t *testing.T) {
	item := baseItem()
	item.Tickers = nil
	item.SourceWeight = 0.0
	a := New(testSettings(), testStore(t))
	_, rejected := a.Decide(item)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonNoTicker, rejected.RejectionReason)
	assert.Contains(t, rejected.SecondaryReasons, model.ReasonBelowMinScore)
}

func TestMarkLoggedMarksDedupForAcceptedItems(t *testing.T) {
	store := testStore(t)
	a := New(testSettings(), store)

	require.NoError(t, a.MarkLogged("sec_8k", "acc-2", time.Now(), model.StateAccepted))
	assert.True(t, store.Seen("sec_8k", "acc-2"))
}

func TestMarkLoggedDoesNotMarkDedupForRejectedItems(t *testing.T) {
	store := testStore(t)
	a := New(testSettings(), store)

	require.NoError(t, a.MarkLogged("sec_8k", "acc-3", time.Now(), model.StateRejected))
	assert.False(t, store.Seen("sec_8k", "acc-3"))
}
