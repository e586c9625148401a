package pipeline

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/admin"
	"github.com/lowfloat/catalystrun/internal/classify"
	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/dedup"
	"github.com/lowfloat/catalystrun/internal/dispatch"
	"github.com/lowfloat/catalystrun/internal/enrich"
	"github.com/lowfloat/catalystrun/internal/fetch"
	"github.com/lowfloat/catalystrun/internal/filter"
	"github.com/lowfloat/catalystrun/internal/heartbeat"
	"github.com/lowfloat/catalystrun/internal/journal"
	"github.com/lowfloat/catalystrun/internal/metrics"
	"github.com/lowfloat/catalystrun/internal/model"
)

// testPipeline builds a Pipeline entirely from in-process, file-backed
// leaf components (no network providers), so the orchestration logic in
// cycle.go and bootstrap.go can be exercised without Build()'s provider
// wiring.
func testPipeline(t *testing.T) *Pipeline {
	t.Helper()
	dir := t.TempDir()

	settings := &config.Settings{
		PriceBandLower:     0.10,
		PriceBandUpper:     10.00,
		MinScore:           -1, // accept everything that resolves a ticker, for these tests
		MinConfidence:      0,
		MaxAge:             24 * time.Hour,
		SentimentAlpha:     0.3,
		DedupRetention:     14 * 24 * time.Hour,
		DedupPath:          filepath.Join(dir, "dedup.db"),
		EventsPath:         filepath.Join(dir, "events.jsonl"),
		RejectedEventsPath: filepath.Join(dir, "rejected.jsonl"),

		DispatchBucketCapacity: 50,
		DispatchBucketWindow:   time.Second,
		DispatchHourlyCap:      1000,
		DispatchQueueCapacity:  50,
	}

	dedupStore, err := dedup.Open(settings.DedupPath, settings.DedupRetention)
	require.NoError(t, err)
	t.Cleanup(func() { _ = dedupStore.Close() })

	enricher := enrich.NewEnricher(settings, nil, nil, nil, nil, nil, func(ctx context.Context, ticker string, instant time.Time) (float64, string, error) {
		return 2.50, "USD", nil
	})

	classifier := classify.NewClassifier(classify.DefaultKeywordTable(), classify.DisabledSentiment{}, settings.SentimentAlpha, settings.MaxAge)
	admission := filter.New(settings, dedupStore)

	journals, err := journal.OpenJournals(settings)
	require.NoError(t, err)
	t.Cleanup(func() { _ = journals.Close() })

	counters := heartbeat.NewCounters()
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	dispatcher := dispatch.New(settings, nil)
	adminServer := admin.New("127.0.0.1:0", prometheus.NewRegistry(), nil)

	return &Pipeline{
		Settings:   settings,
		Dedup:      dedupStore,
		Enricher:   enricher,
		Classifier: classifier,
		Admission:  admission,
		Dispatcher: dispatcher,
		Journals:   journals,
		Counters:   counters,
		Metrics:    reg,
		Admin:      adminServer,
	}
}

func rawItem(sourceID, canonicalID, title string) model.RawItem {
	now := time.Now()
	return model.RawItem{
		SourceID:    sourceID,
		CanonicalID: canonicalID,
		Title:       title,
		TickersHint: []string{"XYZ"},
		TSPublished: now,
		TSObserved:  now,
	}
}

func TestClassifyAndAdmitAcceptsResolvedTicker(t *testing.T) {
	p := testPipeline(t)
	item := rawItem("sec_8k", "acc-1", "XYZ announces something")

	accepted, rejected := p.classifyAndAdmit(context.Background(), item, time.Now())

	require.Nil(t, rejected)
	require.NotNil(t, accepted)
	assert.Equal(t, []string{"XYZ"}, accepted.Tickers)
	assert.Equal(t, 2.50, accepted.LastPrice)
}

func TestClassifyAndAdmitRejectsNoTicker(t *testing.T) {
	p := testPipeline(t)
	item := rawItem("sec_8k", "acc-2", "no ticker mentioned here")
	item.TickersHint = nil

	accepted, rejected := p.classifyAndAdmit(context.Background(), item, time.Now())

	assert.Nil(t, accepted)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonNoTicker, rejected.RejectionReason)
}

func TestClassifyAndAdmitRejectsOutOfPriceBand(t *testing.T) {
	p := testPipeline(t)
	p.Enricher = enrich.NewEnricher(p.Settings, nil, nil, nil, nil, nil, func(ctx context.Context, ticker string, instant time.Time) (float64, string, error) {
		return 50.00, "USD", nil // above PriceBandUpper
	})
	item := rawItem("sec_8k", "acc-3", "XYZ announces something")

	accepted, rejected := p.classifyAndAdmit(context.Background(), item, time.Now())

	assert.Nil(t, accepted)
	require.NotNil(t, rejected)
	assert.Equal(t, model.ReasonPriceOutOfBand, rejected.RejectionReason)
}

func TestProcessItemDispatchesAcceptedItem(t *testing.T) {
	p := testPipeline(t)
	item := rawItem("sec_8k", "acc-4", "XYZ announces something")

	accepted, rejected := p.processItem(context.Background(), item, time.Now())

	require.Nil(t, rejected)
	require.NotNil(t, accepted)
	assert.Equal(t, model.StateDispatched, accepted.State)

	// A second pass over the same item is now deduplicated.
	accepted2, rejected2 := p.processItem(context.Background(), item, time.Now())
	assert.Nil(t, accepted2)
	require.NotNil(t, rejected2)
	assert.Equal(t, model.ReasonDuplicate, rejected2.RejectionReason)
}

func TestFetchCountsBySource(t *testing.T) {
	p := testPipeline(t)
	items := []model.RawItem{
		rawItem("sec_8k", "a", "t"),
		rawItem("sec_8k", "b", "t"),
		rawItem("globenewswire", "c", "t"),
	}

	counts := p.fetchCountsBySource(items)

	assert.Equal(t, 2, counts["sec_8k"])
	assert.Equal(t, 1, counts["globenewswire"])
}

func TestBootstrapNeverDispatches(t *testing.T) {
	p := testPipeline(t)
	p.Fetchers = fetch.NewPool(time.Second, &stubBootstrapFetcher{
		name: "sec_8k",
		items: []model.RawItem{
			rawItem("sec_8k", "boot-1", "XYZ announces something"),
		},
	})

	start := time.Now().Add(-24 * time.Hour)
	end := time.Now().Add(24 * time.Hour)

	stats, err := p.Bootstrap(context.Background(), start, end, nil)

	require.NoError(t, err)
	assert.Equal(t, 1, stats.Fetched)
	assert.Equal(t, 1, stats.Accepted)
	assert.Equal(t, 0, p.Dispatcher.QueueDepth())
}

func TestFilterPoolSkipsUnknownSources(t *testing.T) {
	pool := fetch.NewPool(time.Second,
		&stubBootstrapFetcher{name: "sec_8k"},
		&stubBootstrapFetcher{name: "globenewswire"},
	)

	filtered := filterPool(pool, []string{"sec_8k", "nonexistent"}, time.Second)

	names := make([]string, 0, len(filtered.Fetchers()))
	for _, f := range filtered.Fetchers() {
		names = append(names, f.Name())
	}
	assert.Equal(t, []string{"sec_8k"}, names)
}

type stubBootstrapFetcher struct {
	name  string
	items []model.RawItem
}

func (s *stubBootstrapFetcher) Name() string { return s.name }

func (s *stubBootstrapFetcher) Fetch(ctx context.Context, sinceTS time.Time) ([]model.RawItem, error) {
	return s.items, nil
}

