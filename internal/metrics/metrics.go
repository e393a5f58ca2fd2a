package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Check metrics
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgreview_checks_total",
			Help: "Total number of completed SQL checks",
		},
		[]string{"check_type", "status"},
	)

	CheckErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgreview_check_errors_total",
			Help: "Failed SQL checks by error kind",
		},
		[]string{"kind"},
	)

	CheckDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgreview_check_duration_seconds",
			Help:    "Wall-clock duration of one SQL check",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~1min
		},
		[]string{"check_type"},
	)

	BatchesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pgreview_batches_in_flight",
			Help: "Batches currently being processed",
		},
	)

	// Plan metrics
	PlanFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pgreview_plan_fetches_total",
			Help: "Live EXPLAIN attempts by result (ok, skipped, error)",
		},
		[]string{"result"},
	)

	PlanScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pgreview_plan_score",
			Help:    "Heuristic plan scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	// LLM metrics
	LLMRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pgreview_llm_request_duration_seconds",
			Help:    "AI review request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"provider", "status"},
	)
)
