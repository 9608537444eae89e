package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks individual operation attempts by outcome
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemini_exec_attempts_total",
			Help: "Total number of operation attempts",
		},
		[]string{"outcome"},
	)

	// RetriesExhaustedTotal tracks calls that failed after using every attempt
	RetriesExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gemini_exec_retries_exhausted_total",
			Help: "Total number of calls that exhausted their retry attempts",
		},
	)

	// BudgetExhaustedTotal tracks calls aborted by the wall-clock retry ceiling
	BudgetExhaustedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gemini_exec_retry_budget_exhausted_total",
			Help: "Total number of calls aborted by the wall-clock retry ceiling",
		},
	)

	// BackoffSeconds tracks the delays slept between attempts
	BackoffSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gemini_exec_backoff_seconds",
			Help:    "Backoff delay slept between retry attempts",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	// OperationSeconds tracks per-unit duration including retries
	OperationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gemini_exec_operation_seconds",
			Help:    "Wall-clock duration of a single unit, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	// BatchesTotal tracks batch executions by result
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gemini_exec_batches_total",
			Help: "Total number of batch executions",
		},
		[]string{"result"},
	)

	// BatchSize tracks the number of operations per batch
	BatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gemini_exec_batch_size",
			Help:    "Number of operations per batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	// InflightOperations tracks operations currently executing
	InflightOperations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gemini_exec_inflight_operations",
			Help: "Number of operations currently in flight",
		},
	)
)
