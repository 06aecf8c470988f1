package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"worker"},
	)

	WorkerLastRun = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "veritas_worker_last_run_timestamp",
			Help: "Unix timestamp of last worker execution",
		},
		[]string{"worker"},
	)

	// Claim lifecycle metrics
	ClaimTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_claim_transitions_total",
			Help: "Total number of claim state transitions",
		},
		[]string{"from", "to", "status"}, // status: success|stale|error
	)

	ClaimRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_claim_retries_total",
			Help: "Total number of failed transition attempts recorded per claim stage",
		},
		[]string{"stage"},
	)

	DisputesOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_disputes_opened_total",
			Help: "Total number of disputes opened against preliminary outcomes",
		},
	)

	// Aggregation metrics
	Aggregations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_aggregations_total",
			Help: "Total number of aggregation passes",
		},
		[]string{"strategy", "outcome"},
	)

	AggregationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_aggregation_duration_seconds",
			Help:    "End-to-end aggregation pass duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"strategy"},
	)

	AggregationConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_aggregation_confidence",
			Help:    "Final confidence score distribution per strategy",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"strategy"},
	)

	ManipulationFlags = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "veritas_manipulation_flags_total",
			Help: "Total number of aggregations flagged for suspected manipulation",
		},
	)

	// Signal source metrics
	SignalEvaluations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_signal_evaluations_total",
			Help: "Total number of signal source evaluations",
		},
		[]string{"source", "status"}, // status: success|degraded|error
	)

	SignalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_signal_latency_seconds",
			Help:    "Signal source evaluation latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"source"},
	)

	// Database metrics
	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_db_queries_total",
			Help: "Total database queries executed",
		},
		[]string{"database", "operation", "status"},
	)

	DBQueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "veritas_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"database", "operation"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "veritas_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)
)

// Init registers all metrics with Prometheus
func Init() {
	// Worker metrics
	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
	prometheus.MustRegister(WorkerLastRun)

	// Claim lifecycle metrics
	prometheus.MustRegister(ClaimTransitions)
	prometheus.MustRegister(ClaimRetries)
	prometheus.MustRegister(DisputesOpened)

	// Aggregation metrics
	prometheus.MustRegister(Aggregations)
	prometheus.MustRegister(AggregationDuration)
	prometheus.MustRegister(AggregationConfidence)
	prometheus.MustRegister(ManipulationFlags)

	// Signal source metrics
	prometheus.MustRegister(SignalEvaluations)
	prometheus.MustRegister(SignalLatency)

	// Database metrics
	prometheus.MustRegister(DBQueries)
	prometheus.MustRegister(DBQueryDuration)

	// System metrics
	prometheus.MustRegister(KafkaMessages)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
	WorkerLastRun.WithLabelValues(worker).SetToCurrentTime()
}

// RecordTransition records a claim state transition attempt
func RecordTransition(from, to, status string) {
	ClaimTransitions.WithLabelValues(from, to, status).Inc()
}

// RecordAggregation records a completed aggregation pass
func RecordAggregation(strategy, outcome string, confidence float64, duration time.Duration, manipulation bool) {
	Aggregations.WithLabelValues(strategy, outcome).Inc()
	AggregationDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	AggregationConfidence.WithLabelValues(strategy).Observe(confidence)
	if manipulation {
		ManipulationFlags.Inc()
	}
}

// RecordSignalEvaluation records a signal source evaluation
func RecordSignalEvaluation(source, status string, latency time.Duration) {
	SignalEvaluations.WithLabelValues(source, status).Inc()
	SignalLatency.WithLabelValues(source).Observe(latency.Seconds())
}

// RecordDBQuery records a database query
func RecordDBQuery(database, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	DBQueries.WithLabelValues(database, operation, status).Inc()
	DBQueryDuration.WithLabelValues(database, operation).Observe(duration.Seconds())
}
