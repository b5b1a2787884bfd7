package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// prediction and mapping surfaces.
type Metrics struct {
	PredictionsTotal    prometheus.Counter
	PredictionsDegraded prometheus.Counter
	PredictionsBlended  prometheus.Counter
	StoreErrors         prometheus.Counter
	RecordsPublished    prometheus.Counter

	// Mapping provider metrics.
	ProviderRequests *prometheus.CounterVec   // labels: operation={search,reverse,route}, outcome={success,error,empty}
	ProviderDuration *prometheus.HistogramVec // labels: operation={search,reverse,route}
	GeocodeCache     *prometheus.CounterVec   // labels: operation={search,reverse}, result={hit,miss}

	// Capability gauges.
	ClassifierEnabled prometheus.Gauge
	GeocodeEnabled    prometheus.Gauge
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.PredictionsTotal,
		m.PredictionsDegraded,
		m.PredictionsBlended,
		m.StoreErrors,
		m.RecordsPublished,
		m.ProviderRequests,
		m.ProviderDuration,
		m.GeocodeCache,
		m.ClassifierEnabled,
		m.GeocodeEnabled,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		PredictionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "predictions_total",
			Help:      "Total incident predictions resolved.",
		}),
		PredictionsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "predictions_degraded_total",
			Help:      "Predictions resolved with the neutral default because the classifier was unavailable.",
		}),
		PredictionsBlended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "predictions_blended_total",
			Help:      "Predictions blended with a historical exact-match mean.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "store_errors_total",
			Help:      "Failed prediction record writes.",
		}),
		RecordsPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "records_published_total",
			Help:      "Prediction records fanned out to the sink topic.",
		}),
		ProviderRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "provider_requests_total",
			Help:      "Mapping provider requests by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ProviderDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "traffic_insight",
			Name:      "provider_request_duration_seconds",
			Help:      "Mapping provider request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"operation"}),
		GeocodeCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "traffic_insight",
			Name:      "geocode_cache_total",
			Help:      "Geocode cache lookups by operation and result.",
		}, []string{"operation", "result"}),
		ClassifierEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_insight",
			Name:      "classifier_enabled",
			Help:      "1 when the classifier capability is configured, 0 otherwise.",
		}),
		GeocodeEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "traffic_insight",
			Name:      "geocode_enabled",
			Help:      "1 when the mapping provider is configured, 0 otherwise.",
		}),
	}
}
