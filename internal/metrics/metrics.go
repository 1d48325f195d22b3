package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metric definitions for the risk navigator API

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risknav",
			Subsystem: "api",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "handler", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "risknav",
			Subsystem: "api",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
		},
		[]string{"method", "handler"},
	)

	// Assessment metrics
	evaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risknav",
			Subsystem: "assessment",
			Name:      "evaluations_total",
			Help:      "Total number of relevance evaluations performed",
		},
		[]string{"outcome"},
	)

	evaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risknav",
			Subsystem: "assessment",
			Name:      "evaluation_duration_seconds",
			Help:      "Relevance evaluation duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 15), // 10μs to 160ms
		},
	)

	relevantRisksPerEvaluation = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "risknav",
			Subsystem: "assessment",
			Name:      "relevant_risks_per_evaluation",
			Help:      "Number of relevant risks produced per evaluation",
			Buckets:   prometheus.LinearBuckets(0, 2, 15),
		},
	)

	// Session metrics
	sessionOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risknav",
			Subsystem: "session",
			Name:      "operations_total",
			Help:      "Total number of session store operations",
		},
		[]string{"operation", "status"},
	)

	// Submission metrics
	submissionSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "risknav",
			Subsystem: "submission",
			Name:      "saves_total",
			Help:      "Total number of submission save attempts",
		},
		[]string{"table", "status"},
	)

	// Catalog metrics
	catalogEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "risknav",
			Subsystem: "catalog",
			Name:      "entries",
			Help:      "Number of entries loaded per catalog",
		},
		[]string{"catalog"},
	)
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records a completed HTTP request.
func RecordHTTPRequest(method, handler string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, handler, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, handler).Observe(duration.Seconds())
}

// RecordEvaluation records a relevance evaluation and its result size.
func RecordEvaluation(duration time.Duration, relevantRisks int) {
	outcome := "no_risks"
	if relevantRisks > 0 {
		outcome = "risks_found"
	}
	evaluationsTotal.WithLabelValues(outcome).Inc()
	evaluationDuration.Observe(duration.Seconds())
	relevantRisksPerEvaluation.Observe(float64(relevantRisks))
}

// RecordSessionOperation records a session store operation result.
func RecordSessionOperation(operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	sessionOperationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordSubmissionSave records a submission persistence attempt.
func RecordSubmissionSave(table string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	submissionSavesTotal.WithLabelValues(table, status).Inc()
}

// SetCatalogSizes publishes catalog sizes after the risk map loads.
func SetCatalogSizes(risks, controls, personas, questions int) {
	catalogEntries.WithLabelValues("risks").Set(float64(risks))
	catalogEntries.WithLabelValues("controls").Set(float64(controls))
	catalogEntries.WithLabelValues("personas").Set(float64(personas))
	catalogEntries.WithLabelValues("questions").Set(float64(questions))
}
