package fetch

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/model"
)

// Pool runs every registered fetcher concurrently once per cycle. A
// fetcher that times out or errors contributes zero items and is not
// retried within the cycle; the pool itself never fails.
type Pool struct {
	fetchers []Fetcher
	timeout  time.Duration

	mu         sync.Mutex
	errorCount map[string]int64
}

// NewPool builds a fetcher pool with the given per-fetcher timeout.
func NewPool(timeout time.Duration, fetchers ...Fetcher) *Pool {
	return &Pool{fetchers: fetchers, timeout: timeout, errorCount: make(map[string]int64)}
}

// FetchAll runs every fetcher concurrently and joins on all before
// returning, matching the cycle loop's "join before classification" rule.
// One fetcher's failure never cancels the others — each error is
// swallowed into the per-source error counter instead of failing the group.
func (p *Pool) FetchAll(ctx context.Context, sinceTS time.Time) []model.RawItem {
	g, _ := errgroup.WithContext(context.Background())

	var (
		mu  sync.Mutex
		all []model.RawItem
	)

	for _, f := range p.fetchers {
		f := f
		g.Go(func() error {
			fctx, cancel := context.WithTimeout(ctx, p.timeout)
			defer cancel()

			items, err := f.Fetch(fctx, sinceTS)
			if err != nil {
				p.recordError(f.Name())
				log.Warn().Err(err).Str("fetcher", f.Name()).Msg("fetch failed for this cycle")
				return nil
			}

			mu.Lock()
			all = append(all, items...)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return all
}

func (p *Pool) recordError(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorCount[name]++
}

// Fetchers returns the registered fetcher set, letting callers build a
// filtered sub-pool (the bootstrap CLI path's --sources flag).
func (p *Pool) Fetchers() []Fetcher {
	return p.fetchers
}

// ErrorCounts returns a snapshot of per-fetcher error counts, surfaced by
// the heartbeat.
func (p *Pool) ErrorCounts() map[string]int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]int64, len(p.errorCount))
	for k, v := range p.errorCount {
		out[k] = v
	}
	return out
}
