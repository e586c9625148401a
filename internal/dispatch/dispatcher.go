package dispatch

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/lowfloat/catalystrun/internal/config"
	"github.com/lowfloat/catalystrun/internal/model"
	"github.com/lowfloat/catalystrun/internal/net/ratelimit"
)

// dispatchChannel is the ratelimit.Manager provider/host pair the per-
// channel token bucket is keyed under. There is one shared bucket across
// all registered AlertProviders, matching spec.md's single "per-channel
// token bucket" (providers broadcast the same accepted item, they don't
// each get their own budget).
const dispatchChannel = "alerts"
const dispatchHost = "webhook"

// backpressureWait is the bound the admission stage tolerates before an
// Enqueue forces an oldest-item eviction (§5 "blocks up to a short bound,
// e.g. 500 ms").
const backpressureWait = 500 * time.Millisecond

// Dispatcher owns the bounded overflow queue, the per-channel token
// bucket, the global hourly cap, and the retry loop that drains the queue
// to every registered AlertProvider.
type Dispatcher struct {
	providers []AlertProvider
	queue     *overflowQueue
	limiter   *ratelimit.Manager
	cap       *hourlyCap
	wake      chan struct{}

	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration

	droppedCount int64
}

// New builds a Dispatcher from settings and the registered destinations.
func New(settings *config.Settings, providers []AlertProvider) *Dispatcher {
	limiter := ratelimit.NewManager()
	rps := float64(settings.DispatchBucketCapacity) / settings.DispatchBucketWindow.Seconds()
	limiter.AddProvider(dispatchChannel, rps, settings.DispatchBucketCapacity)

	return &Dispatcher{
		providers:   providers,
		queue:       newOverflowQueue(settings.DispatchQueueCapacity),
		limiter:     limiter,
		cap:         newHourlyCap(settings.DispatchHourlyCap),
		wake:        make(chan struct{}, 1),
		maxRetries:  3,
		backoffBase: 500 * time.Millisecond,
		backoffMax:  8 * time.Second,
	}
}

// Enqueue admits item into the dispatch queue. If the queue is already at
// capacity it waits up to backpressureWait for a slot to open (the
// background drain loop consuming faster than it fills) before forcing
// the oldest pending item out and logging a dispatch_dropped event.
func (d *Dispatcher) Enqueue(item model.ScoredItem) {
	deadline := time.Now().Add(backpressureWait)
	for d.queue.len() >= d.queue.capacity && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	dropped := d.queue.push(Queued{Item: item, QueuedAt: time.Now()})
	if dropped != nil {
		d.droppedCount++
		log.Warn().
			Strs("tickers", dropped.Item.Tickers).
			Time("queued_at", dropped.QueuedAt).
			Msg("dispatch_dropped: queue overflow evicted oldest pending item")
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// DroppedCount returns the number of items dropped to overflow so far,
// for the heartbeat's rejection/drop reporting.
func (d *Dispatcher) DroppedCount() int64 { return d.droppedCount }

// QueueDepth returns the current number of items waiting to be dispatched.
func (d *Dispatcher) QueueDepth() int { return d.queue.len() }

// Run drains the queue until ctx is cancelled, honoring the per-channel
// token bucket and the global hourly cap. It never returns an error:
// dispatch failures are logged and do not affect main-loop liveness.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			d.drainAvailable(ctx)
		case <-ticker.C:
			d.drainAvailable(ctx)
		}
	}
}

func (d *Dispatcher) drainAvailable(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, ok := d.queue.pop()
		if !ok {
			return
		}

		if !d.cap.Allow(time.Now()) {
			log.Warn().Strs("tickers", item.Item.Tickers).Msg("dispatch_dropped: global hourly cap reached")
			d.droppedCount++
			continue
		}

		if err := d.limiter.Wait(ctx, dispatchChannel, dispatchHost); err != nil {
			return
		}

		d.send(ctx, item.Item)
		d.cap.Consume(time.Now())
	}
}

// send broadcasts item to every registered provider with bounded retry
// per §4.H: exponential backoff, capped at 3 attempts, honoring
// Retry-After for 429s; non-transient failures are logged once.
func (d *Dispatcher) send(ctx context.Context, item model.ScoredItem) {
	for _, p := range d.providers {
		d.sendWithRetry(ctx, p, item)
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, p AlertProvider, item model.ScoredItem) {
	backoff := d.backoffBase
	for attempt := 1; attempt <= d.maxRetries; attempt++ {
		err := p.Send(ctx, item)
		if err == nil {
			return
		}

		wait, retryable := classifyRetry(err, backoff)
		if !retryable {
			log.Error().Err(err).Str("provider", p.Name()).Msg("alert dispatch failed permanently")
			return
		}
		if attempt == d.maxRetries {
			log.Error().Err(err).Str("provider", p.Name()).Int("attempts", attempt).Msg("alert dispatch exhausted retries")
			return
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > d.backoffMax {
			backoff = d.backoffMax
		}
	}
}
