package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// scoring pipeline.
type Metrics struct {
	RunsStarted prometheus.Counter
	RunOutcomes *prometheus.CounterVec // labels: outcome={completed,failed}
	RunActive   prometheus.Gauge

	RunDuration   prometheus.Histogram
	StageDuration *prometheus.HistogramVec // labels: stage={load,normalize,composite,extract,persist}
	SitesPerRun   prometheus.Histogram

	// Last completed run.
	LastMaxGPS      prometheus.Gauge
	LayerValidCells *prometheus.GaugeVec // labels: role
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "runs_started_total",
			Help:      "Total scoring runs triggered.",
		}),
		RunOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "geopulse",
			Name:      "run_outcomes_total",
			Help:      "Finished scoring runs by outcome.",
		}, []string{"outcome"}),
		RunActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geopulse",
			Name:      "run_active",
			Help:      "Number of scoring runs currently executing.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete load-score-extract-persist run.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "stage_duration_seconds",
			Help:      "Duration of individual pipeline stages.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"stage"}),
		SitesPerRun: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "geopulse",
			Name:      "sites_per_run",
			Help:      "Candidate sites extracted per completed run.",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		}),
		LastMaxGPS: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "geopulse",
			Name:      "last_max_gps",
			Help:      "Peak composite score of the most recent completed run.",
		}),
		LayerValidCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "geopulse",
			Name:      "layer_valid_cells",
			Help:      "Valid cells per input layer in the most recent run.",
		}, []string{"role"}),
	}

	prometheus.MustRegister(
		m.RunsStarted,
		m.RunOutcomes,
		m.RunActive,
		m.RunDuration,
		m.StageDuration,
		m.SitesPerRun,
		m.LastMaxGPS,
		m.LayerValidCells,
	)

	return m
}

// NewMetricsForTesting creates Metrics with a fresh registry to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		RunsStarted: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "geopulse", Name: "runs_started_total"}),
		RunOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "geopulse", Name: "run_outcomes_total"}, []string{"outcome"}),
		RunActive:   prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geopulse", Name: "run_active"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geopulse", Name: "run_duration_seconds"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "geopulse", Name: "stage_duration_seconds"}, []string{"stage"}),
		SitesPerRun:     prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "geopulse", Name: "sites_per_run"}),
		LastMaxGPS:      prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "geopulse", Name: "last_max_gps"}),
		LayerValidCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: "geopulse", Name: "layer_valid_cells"}, []string{"role"}),
	}
}
