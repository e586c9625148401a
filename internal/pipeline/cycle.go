package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/classify"
	"github.com/lowfloat/catalystrun/internal/clock"
	"github.com/lowfloat/catalystrun/internal/model"
)

// CycleStats summarizes one RunOnce pass: how many items moved through
// each stage of §4's data flow. The CLI logs it at info level; tests
// assert on it directly rather than scraping log output.
type CycleStats struct {
	Session  clock.Session
	Fetched  int
	Accepted int
	Rejected int
	Dropped  int64
	Duration time.Duration
}

// Run drives the cycle loop (§2, §5) until ctx is cancelled: fetch every
// registered source concurrently, dedup/classify/admit each item, hand
// accepted items to the dispatcher and every decision to the journals,
// then sleep for the current session's configured interval before the
// next pass. The dispatcher and admin HTTP server run as background
// goroutines for the loop's entire lifetime, independent of cycle pacing.
func (p *Pipeline) Run(ctx context.Context) error {
	go p.Dispatcher.Run(ctx)
	go func() {
		if err := p.Admin.Start(); err != nil {
			log.Error().Err(err).Msg("admin server exited")
		}
	}()

	since := p.Clock.Now().Add(-p.Settings.MaxAge)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		cycleStart := p.Clock.Now()
		stats, err := p.RunOnce(ctx, since)
		if err != nil {
			log.Error().Err(err).Msg("cycle failed")
			p.Counters.RecordError(err, cycleStart)
		}
		since = cycleStart

		p.Beacon.Fire(ctx, p.Clock.Now())

		log.Info().
			Str("session", string(stats.Session)).
			Int("fetched", stats.Fetched).
			Int("accepted", stats.Accepted).
			Int("rejected", stats.Rejected).
			Int64("dropped", stats.Dropped).
			Dur("duration", stats.Duration).
			Msg("cycle complete")

		delay := p.Clock.NextCycleDelay(stats.Session)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// RunOnce executes a single cycle: fetch -> classify -> admit -> {dispatch,
// journal}. since bounds how far back fetchers look for new items (§4.E);
// callers pass the previous cycle's start time so the window never gaps or
// overlaps beyond the time a single cycle takes to run.
func (p *Pipeline) RunOnce(ctx context.Context, since time.Time) (CycleStats, error) {
	start := time.Now()
	session := p.Clock.CurrentSession()
	now := p.Clock.Now()

	raw := p.Fetchers.FetchAll(ctx, since)
	for source, n := range p.fetchCountsBySource(raw) {
		p.Metrics.ItemsFetched.WithLabelValues(source).Add(float64(n))
	}
	for source, errCount := range p.Fetchers.ErrorCounts() {
		p.Metrics.FetchErrors.WithLabelValues(source).Add(float64(errCount))
	}

	stats := CycleStats{Session: session, Fetched: len(raw)}

	for _, item := range raw {
		item.TSObserved = now
		accepted, rejected := p.processItem(ctx, item, now)
		if accepted != nil {
			stats.Accepted++
		}
		if rejected != nil {
			stats.Rejected++
		}
	}

	p.Counters.RecordCycle(len(raw))
	p.Metrics.CyclesTotal.Inc()
	p.Metrics.ItemsPerCycle.Observe(float64(len(raw)))
	stats.Dropped = p.Dispatcher.DroppedCount()
	stats.Duration = time.Since(start)
	p.Metrics.CycleDuration.Observe(stats.Duration.Seconds())

	return stats, nil
}

// processItem runs one RawItem through classification and admission,
// recording its outcome to the journals, dispatcher, and heartbeat
// counters. It never returns an error: an item whose classification
// resolves no ticker becomes a rejection (reason no_ticker) rather than
// aborting the cycle, per §7's "partial-cycle failures never abort the cycle."
func (p *Pipeline) processItem(ctx context.Context, item model.RawItem, now time.Time) (*model.ScoredItem, *model.RejectedItem) {
	accepted, rejected := p.classifyAndAdmit(ctx, item, now)
	if rejected != nil {
		p.recordRejected(rejected)
		return nil, rejected
	}

	accepted.State = model.StateDispatched
	p.Dispatcher.Enqueue(*accepted)
	p.Metrics.ItemsAccepted.Inc()
	p.Metrics.DispatchTotal.WithLabelValues("queue", "enqueued").Inc()
	p.recordAccepted(accepted, model.StateDispatched)

	return accepted, nil
}

// classifyAndAdmit runs the classify -> admit steps shared by the live
// cycle loop and the bootstrap backfill path; it does not journal or
// dispatch, leaving that to the caller since bootstrap never dispatches.
func (p *Pipeline) classifyAndAdmit(ctx context.Context, item model.RawItem, now time.Time) (*model.ScoredItem, *model.RejectedItem) {
	tickers := classify.ResolveTickers(item.Title, item.TickersHint)
	if len(tickers) == 0 {
		return nil, &model.RejectedItem{
			ScoredItem:      model.ScoredItem{RawItem: item, State: model.StateRejected},
			RejectionReason: model.ReasonNoTicker,
		}
	}

	snap := p.Enricher.Snapshot(ctx, tickers[0], now)

	scored, ok := p.Classifier.Classify(item, snap)
	if !ok {
		return nil, &model.RejectedItem{
			ScoredItem:      model.ScoredItem{RawItem: item, State: model.StateRejected},
			RejectionReason: model.ReasonNoTicker,
		}
	}

	return p.Admission.Decide(scored)
}

// recordAccepted journals an accepted item and marks it logged in the
// dedup store. fromState distinguishes a live dispatch (StateDispatched)
// from a bootstrap backfill record that never reaches the dispatcher
// (StateAccepted).
func (p *Pipeline) recordAccepted(accepted *model.ScoredItem, fromState model.ItemState) {
	if err := p.Journals.RecordAccepted(*accepted); err != nil {
		log.Error().Err(err).Str("canonical_id", accepted.CanonicalID).Msg("failed to journal accepted item")
		return
	}
	if err := p.Admission.MarkLogged(accepted.SourceID, accepted.CanonicalID, accepted.TSObserved, fromState); err != nil {
		log.Error().Err(err).Str("canonical_id", accepted.CanonicalID).Msg("failed to mark item logged in dedup store")
	}
}

func (p *Pipeline) recordRejected(rejected *model.RejectedItem) {
	p.Metrics.ItemsRejected.WithLabelValues(string(rejected.RejectionReason)).Inc()
	p.Counters.RecordRejection(rejected.RejectionReason)

	if err := p.Journals.RecordRejected(*rejected); err != nil {
		log.Error().Err(err).Str("canonical_id", rejected.CanonicalID).Msg("failed to journal rejected item")
		return
	}
	if err := p.Admission.MarkLogged(rejected.SourceID, rejected.CanonicalID, rejected.TSObserved, model.StateRejected); err != nil {
		log.Error().Err(err).Str("canonical_id", rejected.CanonicalID).Msg("failed to mark rejected item logged")
	}
}

func (p *Pipeline) fetchCountsBySource(items []model.RawItem) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		counts[item.SourceID]++
	}
	return counts
}
