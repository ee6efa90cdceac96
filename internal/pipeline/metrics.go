package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ---- Prometheus metrics ----

var (
	recordsHarvestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_records_total",
			Help: "History records read from sources",
		},
		[]string{"source"},
	)

	conversionErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_conversion_errors_total",
			Help: "Records dropped because they could not be converted",
		},
		[]string{"source"},
	)

	documentsFlushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_documents_flushed_total",
			Help: "Documents delivered to the sink",
		},
		[]string{"source"},
	)

	flushFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_flush_failures_total",
			Help: "Batch deliveries that failed",
		},
		[]string{"source"},
	)

	batchSizeHistogram = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_batch_size",
			Help:    "Documents per flushed batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1 to 2048
		},
	)

	outcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_outcomes_total",
			Help: "Per-source harvest outcomes by final state",
		},
		[]string{"state"},
	)

	harvestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harvester_source_duration_seconds",
			Help:    "Duration of one source harvest",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 14), // 100ms to ~27min
		},
		[]string{"state"},
	)

	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harvester_runs_total",
			Help: "Harvest runs by status",
		},
		[]string{"status"},
	)

	runDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "harvester_run_duration_seconds",
			Help:    "Duration of whole harvest runs",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
	)

	activeHarvesters = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "harvester_active_sources",
			Help: "Sources currently being harvested",
		},
	)
)
