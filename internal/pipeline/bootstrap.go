package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/fetch"
	"github.com/lowfloat/catalystrun/internal/model"
)

// BootstrapStats summarizes one Bootstrap run, logged by the CLI and
// returned for tests to assert on.
type BootstrapStats struct {
	Fetched  int
	Accepted int
	Rejected int
	Skipped  int
}

// Bootstrap batch-fetches historical feed items published within
// [start, end] from the named sources (every registered fetcher when
// sources is empty), classifies and admits each one, and journals the
// decision without ever reaching the dispatcher — it exists to seed the
// historical analyzer's outcome store from a backfill window (§6
// "bootstrap"), not to alert on news that already happened.
func (p *Pipeline) Bootstrap(ctx context.Context, start, end time.Time, sources []string) (BootstrapStats, error) {
	var stats BootstrapStats

	pool := p.Fetchers
	if len(sources) > 0 {
		pool = filterPool(p.Fetchers, sources, p.Settings.FetcherTimeout)
	}

	raw := pool.FetchAll(ctx, start)
	for _, item := range raw {
		if item.TSPublished.After(end) {
			stats.Skipped++
			continue
		}
		if item.TSObserved.IsZero() {
			item.TSObserved = item.TSPublished
		}
		stats.Fetched++

		accepted, rejected := p.classifyAndAdmit(ctx, item, item.TSObserved)
		switch {
		case accepted != nil:
			stats.Accepted++
			p.recordAccepted(accepted, model.StateAccepted)
		case rejected != nil:
			stats.Rejected++
			p.recordRejected(rejected)
		}
	}

	log.Info().
		Int("fetched", stats.Fetched).
		Int("accepted", stats.Accepted).
		Int("rejected", stats.Rejected).
		Int("skipped", stats.Skipped).
		Msg("bootstrap complete")

	return stats, nil
}

// filterPool builds a sub-pool containing only the named fetchers, for
// --sources filtering. Unknown names are logged and skipped rather than
// treated as a fatal error, since a typo shouldn't abort an otherwise
// valid multi-source backfill.
func filterPool(full *fetch.Pool, names []string, timeout time.Duration) *fetch.Pool {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var matched []fetch.Fetcher
	for _, f := range full.Fetchers() {
		if want[f.Name()] {
			matched = append(matched, f)
			delete(want, f.Name())
		}
	}
	for missing := range want {
		log.Warn().Str("source", missing).Msg("bootstrap: unknown source name, skipping")
	}

	return fetch.NewPool(timeout, matched...)
}
