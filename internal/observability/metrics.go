package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the forecast service.
type Metrics struct {
	// Outbound Surfline traffic.
	ProviderRequests *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	ProviderRetries  prometheus.Counter
	ProviderDuration *prometheus.HistogramVec // labels: endpoint

	// Spot resolution.
	SpotCacheLookups *prometheus.CounterVec // labels: result={hit,miss}

	// Report assembly.
	ReportsBuilt  prometheus.Counter
	ReportsFailed prometheus.Counter
}

// NewMetrics creates and registers all collectors with the default registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.ProviderRequests,
		m.ProviderRetries,
		m.ProviderDuration,
		m.SpotCacheLookups,
		m.ReportsBuilt,
		m.ReportsFailed,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics across test packages.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surflog",
			Name:      "provider_requests_total",
			Help:      "Outbound Surfline requests by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		ProviderRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surflog",
			Name:      "provider_retries_total",
			Help:      "Retry attempts against the Surfline proxy.",
		}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "surflog",
			Name:      "provider_request_duration_seconds",
			Help:      "Surfline request duration in seconds, including retries.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint"}),
		SpotCacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "surflog",
			Name:      "spot_cache_lookups_total",
			Help:      "Spot cache lookups by result.",
		}, []string{"result"}),
		ReportsBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surflog",
			Name:      "reports_built_total",
			Help:      "Surf reports successfully assembled.",
		}),
		ReportsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "surflog",
			Name:      "reports_failed_total",
			Help:      "Surf report requests that ended in an error.",
		}),
	}
}
