package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/errs"
	"github.com/lowfloat/catalystrun/internal/model"
)

type recordingProvider struct {
	mu      sync.Mutex
	name    string
	sent    []model.ScoredItem
	failN   int
	failErr error
}

func (r *recordingProvider) Name() string { return r.name }

func (r *recordingProvider) Send(ctx context.Context, item model.ScoredItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failN > 0 {
		r.failN--
		return r.failErr
	}
	r.sent = append(r.sent, item)
	return nil
}

func (r *recordingProvider) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func testDispatchSettings() *config.Settings {
	return &config.Settings{
		DispatchBucketCapacity: 5,
		DispatchBucketWindow:   2 * time.Second,
		DispatchHourlyCap:      200,
		DispatchQueueCapacity:  3,
	}
}

func scoredItem(ticker string) model.ScoredItem {
	return model.ScoredItem{
		RawItem: model.RawItem{SourceID: "sec_8k", CanonicalID: ticker, Title: "test item"},
		Tickers: []string{ticker},
	}
}

func TestDispatcherSendsAcceptedItem(t *testing.T) {
	provider := &recordingProvider{name: "webhook"}
	d := New(testDispatchSettings(), []AlertProvider{provider})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(scoredItem("XYZ"))

	assert.Eventually(t, func() bool { return provider.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestDispatcherOverflowDropsOldest(t *testing.T) {
	d := New(testDispatchSettings(), nil)

	for i := 0; i < 10; i++ {
		d.Enqueue(scoredItem("A"))
	}

	assert.GreaterOrEqual(t, d.DroppedCount(), int64(1))
	assert.LessOrEqual(t, d.QueueDepth(), 3)
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	provider := &recordingProvider{name: "webhook", failN: 2, failErr: &errs.DispatchTransient{Err: assertErr}}
	d := New(testDispatchSettings(), []AlertProvider{provider})
	d.backoffBase = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(scoredItem("XYZ"))

	assert.Eventually(t, func() bool { return provider.count() == 1 }, time.Second, 10*time.Millisecond)
}

func TestDispatcherDoesNotRetryPermanentFailures(t *testing.T) {
	provider := &recordingProvider{name: "webhook", failN: 10, failErr: &errs.DispatchPermanent{Err: assertErr}}
	d := New(testDispatchSettings(), []AlertProvider{provider})
	d.backoffBase = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	go d.Run(ctx)

	d.Enqueue(scoredItem("XYZ"))
	time.Sleep(200 * time.Millisecond)

	assert.Equal(t, 0, provider.count())
}

func TestHourlyCapBlocksAfterLimit(t *testing.T) {
	cap := newHourlyCap(2)
	now := time.Now()
	require.True(t, cap.Allow(now))
	cap.Consume(now)
	require.True(t, cap.Allow(now))
	cap.Consume(now)
	assert.False(t, cap.Allow(now))
}

func TestHourlyCapRollsOverAfterWindow(t *testing.T) {
	cap := newHourlyCap(1)
	now := time.Now()
	cap.Consume(now)
	assert.False(t, cap.Allow(now))
	assert.True(t, cap.Allow(now.Add(61*time.Minute)))
}

var assertErr = errTest{}

type errTest struct{}

func (errTest) Error() string { return "test error" }
