package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// generation service.
type Metrics struct {
	GenerationRuns     *prometheus.CounterVec // labels: outcome={success,error}
	LocationsGenerated prometheus.Counter
	RecordsFlattened   *prometheus.CounterVec // labels: table={sales,weather}
	RecordsPublished   *prometheus.CounterVec // labels: table={sales,weather}
	GeneratorRunning   prometheus.Gauge

	GenerationDuration prometheus.Histogram

	// Observation fetch metrics.
	FetchRequests *prometheus.CounterVec // labels: outcome={success,error}
	FetchCache    *prometheus.CounterVec // labels: result={hit,miss}
	FetchDuration prometheus.Histogram
	PublishErrors prometheus.Counter
}

// NewMetrics creates and registers all service metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		GenerationRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "generation_runs_total",
			Help:      "Completed generation runs by outcome.",
		}, []string{"outcome"}),
		LocationsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "locations_generated_total",
			Help:      "Total locations whose sales data was generated.",
		}),
		RecordsFlattened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "records_flattened_total",
			Help:      "Flat records produced per run by table.",
		}, []string{"table"}),
		RecordsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "records_published_total",
			Help:      "Records published to the streaming sink by table.",
		}, []string{"table"}),
		GeneratorRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "sales_synth",
			Name:      "generator_running",
			Help:      "1 when the generation loop is active, 0 when shut down.",
		}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sales_synth",
			Name:      "generation_duration_seconds",
			Help:      "Duration of a complete generate-flatten-persist cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "fetch_requests_total",
			Help:      "Weather observation fetches by outcome.",
		}, []string{"outcome"}),
		FetchCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "fetch_cache_total",
			Help:      "Observation cache lookups by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "sales_synth",
			Name:      "fetch_duration_seconds",
			Help:      "Weather API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "sales_synth",
			Name:      "publish_errors_total",
			Help:      "Failed record publishes to the streaming sink.",
		}),
	}

	prometheus.MustRegister(
		m.GenerationRuns,
		m.LocationsGenerated,
		m.RecordsFlattened,
		m.RecordsPublished,
		m.GeneratorRunning,
		m.GenerationDuration,
		m.FetchRequests,
		m.FetchCache,
		m.FetchDuration,
		m.PublishErrors,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		GenerationRuns:     prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sales_synth", Name: "generation_runs_total"}, []string{"outcome"}),
		LocationsGenerated: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sales_synth", Name: "locations_generated_total"}),
		RecordsFlattened:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sales_synth", Name: "records_flattened_total"}, []string{"table"}),
		RecordsPublished:   prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sales_synth", Name: "records_published_total"}, []string{"table"}),
		GeneratorRunning:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "sales_synth", Name: "generator_running"}),
		GenerationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sales_synth", Name: "generation_duration_seconds"}),
		FetchRequests:      prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sales_synth", Name: "fetch_requests_total"}, []string{"outcome"}),
		FetchCache:         prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "sales_synth", Name: "fetch_cache_total"}, []string{"result"}),
		FetchDuration:      prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "sales_synth", Name: "fetch_duration_seconds"}),
		PublishErrors:      prometheus.NewCounter(prometheus.CounterOpts{Namespace: "sales_synth", Name: "publish_errors_total"}),
	}
}
