package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "cybermap"

// Metrics holds the Prometheus counters and histograms for one generator run.
// Each instance owns its registry; a batch job pushes it once at the end
// instead of serving a scrape endpoint.
type Metrics struct {
	Registry *prometheus.Registry

	RowsRead            prometheus.Counter
	IncidentsWritten    *prometheus.CounterVec // labels: sink={html,kafka}
	FallbackAssignments prometheus.Counter
	RunDuration         prometheus.Gauge

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec // labels: outcome={success,empty,error}
	GeocodeCache       *prometheus.CounterVec // labels: result={hit,miss}
	GeocodeAPIDuration prometheus.Histogram
}

// NewMetrics creates all generator metrics registered on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RowsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_read_total",
			Help:      "Total data rows read from the input table.",
		}),
		IncidentsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "incidents_written_total",
			Help:      "Incidents handed to each output sink.",
		}, []string{"sink"}),
		FallbackAssignments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_assignments_total",
			Help:      "Incidents placed at the fallback centroid.",
		}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last generator run.",
		}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocoding lookups by outcome.",
		}, []string{"outcome"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by result.",
		}, []string{"result"}),
		GeocodeAPIDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding lookup duration in seconds, throttling and retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
	}

	m.Registry.MustRegister(
		m.RowsRead,
		m.IncidentsWritten,
		m.FallbackAssignments,
		m.RunDuration,
		m.GeocodeRequests,
		m.GeocodeCache,
		m.GeocodeAPIDuration,
	)

	return m
}

// NewMetricsForTesting returns an isolated Metrics instance.
func NewMetricsForTesting() *Metrics {
	return NewMetrics()
}
