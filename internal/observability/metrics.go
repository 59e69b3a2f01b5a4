package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "river_stage"

// Metrics holds the Prometheus counters, histograms, and gauges for the predictor.
type Metrics struct {
	Submissions      *prometheus.CounterVec // labels: source={batch,single}, outcome={success,error}
	SubmissionErrors *prometheus.CounterVec // labels: kind
	RowsPredicted    prometheus.Counter
	CellsImputed     prometheus.Counter
	BatchRows        prometheus.Histogram

	// Model metrics.
	InferenceDuration prometheus.Histogram
	ModelLoaded       prometheus.Gauge
	ModelCache        *prometheus.CounterVec // labels: result={hit,miss}

	SinkWrites *prometheus.CounterVec // labels: sink, outcome={success,error}
}

var (
	batchRowBuckets = []float64{1, 10, 50, 100, 500, 1000, 5000, 10000}
	durationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

func newMetrics() *Metrics {
	return &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Prediction submissions by source and outcome.",
		}, []string{"source", "outcome"}),
		SubmissionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submission_errors_total",
			Help:      "Rejected submissions by failure kind.",
		}, []string{"kind"}),
		RowsPredicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rows_predicted_total",
			Help:      "Total rows scored by the model.",
		}),
		CellsImputed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cells_imputed_total",
			Help:      "Total missing cells filled by the imputer.",
		}),
		BatchRows: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_rows",
			Help:      "Rows per batch submission.",
			Buckets:   batchRowBuckets,
		}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Duration of a single model invocation.",
			Buckets:   durationBuckets,
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when the model artifact is loaded, 0 otherwise.",
		}),
		ModelCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_cache_total",
			Help:      "Prediction cache lookups by result.",
		}, []string{"result"}),
		SinkWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sink_writes_total",
			Help:      "Result sink writes by sink and outcome.",
		}, []string{"sink", "outcome"}),
	}
}

// NewMetrics creates and registers all predictor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.Submissions,
		m.SubmissionErrors,
		m.RowsPredicted,
		m.CellsImputed,
		m.BatchRows,
		m.InferenceDuration,
		m.ModelLoaded,
		m.ModelCache,
		m.SinkWrites,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

// NewUnregisteredMetrics returns live metrics that are never exported, for
// one-shot command-line runs.
func NewUnregisteredMetrics() *Metrics {
	return newMetrics()
}
