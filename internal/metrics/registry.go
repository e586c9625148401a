// Package metrics holds the process's Prometheus registry, adapted from
// the teacher's internal/interfaces/http.MetricsRegistry: one struct of
// pre-registered vectors and gauges that callers label and update
// directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds every metric catalystrun exports on /metrics.
type Registry struct {
	CycleDuration   prometheus.Histogram
	CyclesTotal     prometheus.Counter
	ItemsPerCycle   prometheus.Histogram
	ItemsFetched    *prometheus.CounterVec
	ItemsAccepted   prometheus.Counter
	ItemsRejected   *prometheus.CounterVec
	DispatchTotal   *prometheus.CounterVec
	DispatchErrors  *prometheus.CounterVec
	CacheHits       *prometheus.CounterVec
	CacheMisses     *prometheus.CounterVec
	ProviderErrors  *prometheus.CounterVec
	CircuitState    *prometheus.GaugeVec
	FetchErrors     *prometheus.CounterVec
	LastErrorUnix   prometheus.Gauge
}

// NewRegistry builds and registers every catalystrun metric with reg.
// Passing a fresh prometheus.NewRegistry() (rather than the global
// DefaultRegisterer) keeps repeated test construction from panicking on
// duplicate registration.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalystrun_cycle_duration_seconds",
			Help:    "Duration of each ingestion cycle in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalystrun_cycles_total",
			Help: "Total number of ingestion cycles completed.",
		}),
		ItemsPerCycle: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalystrun_items_per_cycle",
			Help:    "Number of raw items fetched per cycle.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		ItemsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_items_fetched_total",
			Help: "Total raw items fetched, by source.",
		}, []string{"source"}),
		ItemsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalystrun_items_accepted_total",
			Help: "Total items admitted and dispatched.",
		}),
		ItemsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_items_rejected_total",
			Help: "Total items rejected, by reason.",
		}, []string{"reason"}),
		DispatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_dispatch_total",
			Help: "Total alert dispatch attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		DispatchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_dispatch_errors_total",
			Help: "Total alert dispatch errors, by channel and class.",
		}, []string{"channel", "class"}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_cache_hits_total",
			Help: "Cache hits by tier.",
		}, []string{"tier"}),
		CacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_cache_misses_total",
			Help: "Cache misses by tier.",
		}, []string{"tier"}),
		ProviderErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_provider_errors_total",
			Help: "Market data provider errors, by provider.",
		}, []string{"provider"}),
		CircuitState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "catalystrun_circuit_state",
			Help: "Circuit breaker state by provider (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalystrun_fetch_errors_total",
			Help: "News fetcher errors, by source.",
		}, []string{"source"}),
		LastErrorUnix: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "catalystrun_last_error_unix_seconds",
			Help: "Unix timestamp of the most recent recorded error, 0 if none yet.",
		}),
	}

	reg.MustRegister(
		r.CycleDuration, r.CyclesTotal, r.ItemsPerCycle, r.ItemsFetched,
		r.ItemsAccepted, r.ItemsRejected, r.DispatchTotal, r.DispatchErrors,
		r.CacheHits, r.CacheMisses, r.ProviderErrors, r.CircuitState,
		r.FetchErrors, r.LastErrorUnix,
	)
	return r
}

// CircuitStateValue maps a circuit.State-shaped string onto the gauge's
// numeric encoding.
func CircuitStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}
