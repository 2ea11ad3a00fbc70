package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cyclone_relay"

// Metrics holds the Prometheus collectors for relay runs.
type Metrics struct {
	LoopRunning     prometheus.Gauge
	Runs            *prometheus.CounterVec // labels: outcome={success,failure}
	RunDuration     prometheus.Histogram
	LastSuccess     prometheus.Gauge
	ActiveCyclones  prometheus.Gauge
	TrackedCyclones prometheus.Gauge
	UpdatedCyclones prometheus.Counter

	// Report metrics.
	BroadcastsPosted prometheus.Counter
	DigestsPosted    prometheus.Counter
	Actions          *prometheus.CounterVec // labels: action, status={ok,failed}
	EventsPublished  prometheus.Counter

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,error,empty}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram

	registry *prometheus.Registry
}

// NewMetrics creates all relay metrics and registers them with the default
// Prometheus registry, which is what /metrics serves.
func NewMetrics() *Metrics {
	m := newMetrics()
	m.register(prometheus.DefaultRegisterer)
	return m
}

// NewMetricsForTesting creates Metrics on a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	m := newMetrics()
	m.registry = prometheus.NewRegistry()
	m.register(m.registry)
	return m
}

// Gatherer returns the registry the metrics were registered with, for
// pushing to a Pushgateway.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m.registry != nil {
		return m.registry
	}
	return prometheus.DefaultGatherer
}

func newMetrics() *Metrics {
	return &Metrics{
		LoopRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_running",
			Help:      "Whether the serve loop is running (1) or stopped (0).",
		}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Relay runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete poll-diff-notify-persist run.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run.",
		}),
		ActiveCyclones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_cyclones",
			Help:      "Cyclones in the most recent feed poll.",
		}),
		TrackedCyclones: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tracked_cyclones",
			Help:      "Cyclones currently tracked for broadcast updates.",
		}),
		UpdatedCyclones: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updated_cyclones_total",
			Help:      "Tracked cyclones whose update token changed.",
		}),
		BroadcastsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_posted_total",
			Help:      "Broadcast messages created.",
		}),
		DigestsPosted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digests_posted_total",
			Help:      "Digest reports generated.",
		}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "best_effort_actions_total",
			Help:      "Best-effort steps (unpin, delete, edit, ...) by status.",
		}, []string{"action", "status"}),
		EventsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Cyclone events written to the event sink.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Reverse geocoding API requests by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocoding cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Mapbox API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.LoopRunning,
		m.Runs,
		m.RunDuration,
		m.LastSuccess,
		m.ActiveCyclones,
		m.TrackedCyclones,
		m.UpdatedCyclones,
		m.BroadcastsPosted,
		m.DigestsPosted,
		m.Actions,
		m.EventsPublished,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)
}
