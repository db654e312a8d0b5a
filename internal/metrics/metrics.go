// Package metrics provides Prometheus metrics for feed ingestion.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestTotal counts pipeline runs by entry point and outcome.
	IngestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "news",
			Name:      "ingest_total",
			Help:      "Total number of fetch-and-store pipeline runs",
		},
		[]string{"entry", "status"},
	)

	// ArticlesUpserted counts articles written by the batch writer.
	ArticlesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "news",
			Name:      "articles_upserted_total",
			Help:      "Total number of articles merged into the store",
		},
	)

	// ErrorsTotal counts pipeline errors by class.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "news",
			Name:      "ingest_errors_total",
			Help:      "Total number of pipeline errors",
		},
		[]string{"error_type"},
	)

	// SweepDuration measures a full scheduled sweep.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "news",
			Name:      "sweep_duration_seconds",
			Help:      "Duration of scheduled sweeps in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
	)

	// SweepSources observes sweep outcomes per source.
	SweepSources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "news",
			Name:      "sweep_sources_total",
			Help:      "Sources attempted by scheduled sweeps",
		},
		[]string{"status"},
	)
)

// RecordIngest records one pipeline run.
func RecordIngest(entry string, count int, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	IngestTotal.WithLabelValues(entry, status).Inc()
	if err == nil {
		ArticlesUpserted.Add(float64(count))
	}
}

// RecordError records an error of the given class.
func RecordError(errorType string) {
	ErrorsTotal.WithLabelValues(errorType).Inc()
}

// RecordSweep records a finished sweep.
func RecordSweep(seconds float64, succeeded, failed int) {
	SweepDuration.Observe(seconds)
	SweepSources.WithLabelValues("success").Add(float64(succeeded))
	SweepSources.WithLabelValues("error").Add(float64(failed))
}
