package fetch

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lowfloat/catalystrun/internal/model"
)

type stubFetcher struct {
	name  string
	items []model.RawItem
	err   error
	delay time.Duration
}

func (s *stubFetcher) Name() string { return s.name }

func (s *stubFetcher) Fetch(ctx context.Context, sinceTS time.Time) ([]model.RawItem, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func TestFetchAllAggregatesAcrossFetchers(t *testing.T) {
	a := &stubFetcher{name: "a", items: []model.RawItem{{SourceID: "a", CanonicalID: "1"}}}
	b := &stubFetcher{name: "b", items: []model.RawItem{{SourceID: "b", CanonicalID: "2"}}}

	pool := NewPool(time.Second, a, b)
	items := pool.FetchAll(context.Background(), time.Now().Add(-time.Hour))

	assert.Len(t, items, 2)
}

func TestFetchAllIsolatesOneFetcherFailure(t *testing.T) {
	ok := &stubFetcher{name: "ok", items: []model.RawItem{{SourceID: "ok", CanonicalID: "1"}}}
	bad := &stubFetcher{name: "bad", err: fmt.Errorf("upstream 500")}

	pool := NewPool(time.Second, ok, bad)
	items := pool.FetchAll(context.Background(), time.Now().Add(-time.Hour))

	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), pool.ErrorCounts()["bad"])
}

func TestFetchAllTimesOutSlowFetcher(t *testing.T) {
	slow := &stubFetcher{name: "slow", delay: 100 * time.Millisecond}
	fast := &stubFetcher{name: "fast", items: []model.RawItem{{SourceID: "fast", CanonicalID: "1"}}}

	pool := NewPool(10*time.Millisecond, slow, fast)
	items := pool.FetchAll(context.Background(), time.Now().Add(-time.Hour))

	assert.Len(t, items, 1)
	assert.Equal(t, int64(1), pool.ErrorCounts()["slow"])
}
