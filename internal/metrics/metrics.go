// Package metrics exposes Prometheus collectors for the memory engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "agentmemory"

var (
	// TurnsTotal counts processed utterances by intent and outcome.
	TurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Total number of processed utterances",
		},
		[]string{"intent", "outcome"},
	)

	// ClassificationsTotal counts classifications by the stage that decided them.
	ClassificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "classifications_total",
			Help:      "Total number of intent classifications",
		},
		[]string{"intent", "source"},
	)

	// WritesTotal counts reconcile outcomes.
	WritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "writes_total",
			Help:      "Total number of memory write outcomes",
		},
		[]string{"outcome"},
	)

	// AbortedWritesTotal counts record writes that failed after their vector was staged.
	AbortedWritesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "aborted_writes_total",
			Help:      "Total number of record writes aborted after the vector was staged",
		},
	)

	// RetrievalHitsTotal counts retrieved records by waterfall stage.
	RetrievalHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retrieval_hits_total",
			Help:      "Total number of records returned per retrieval stage",
		},
		[]string{"stage"},
	)

	// OracleCallsTotal counts oracle invocations by task and result.
	OracleCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Total number of oracle invocations",
		},
		[]string{"task", "result"},
	)

	// OracleLatency observes oracle latency per task, including retries.
	OracleLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_latency_seconds",
			Help:      "Oracle invocation latency in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"task"},
	)

	// OracleBreakerState reports the breaker state (0=closed, 1=open, 2=half-open).
	OracleBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "oracle_breaker_state",
			Help:      "Oracle circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
	)
)
