package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Index run outcomes.
const (
	OutcomeIndexed = "indexed"
	OutcomeSkipped = "skipped"
	OutcomeError   = "error"
)

// Ask outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	indexRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_index_runs_total",
			Help: "Total number of schema index runs by outcome.",
		},
		[]string{"outcome"},
	)

	indexDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "text2sql_index_duration_seconds",
			Help:    "Wall time of a schema index run.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
	)

	indexedChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "text2sql_indexed_chunks",
			Help: "Number of schema chunks held by the similarity collection after the last index run.",
		},
	)

	extractTablesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "text2sql_extract_tables_total",
			Help: "Total number of tables read from the database catalog.",
		},
	)

	askRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "text2sql_ask_requests_total",
			Help: "Total number of questions by outcome.",
		},
		[]string{"outcome"},
	)

	stageDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "text2sql_stage_duration_seconds",
			Help:    "Latency of the retrieve and generate stages.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		indexRunsTotal,
		indexDurationSeconds,
		indexedChunks,
		extractTablesTotal,
		askRequestsTotal,
		stageDurationSeconds,
	)
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method, path, status string, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, path, status).Observe(elapsed.Seconds())
}

// ObserveIndexRun records the outcome of a schema index run.
// chunks is only applied to the gauge when the run wrote to the collection.
func ObserveIndexRun(outcome string, chunks int, elapsed time.Duration) {
	indexRunsTotal.WithLabelValues(outcome).Inc()
	if outcome == OutcomeError {
		return
	}
	indexDurationSeconds.Observe(elapsed.Seconds())
	if outcome == OutcomeIndexed {
		indexedChunks.Set(float64(chunks))
	}
}

// ObserveExtract records the number of tables read from the catalog.
func ObserveExtract(tables int) {
	if tables > 0 {
		extractTablesTotal.Add(float64(tables))
	}
}

// ObserveAsk records the outcome of a question.
func ObserveAsk(outcome string) {
	askRequestsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the latency of a named pipeline stage.
func ObserveStage(stage string, elapsed time.Duration) {
	stageDurationSeconds.WithLabelValues(stage).Observe(elapsed.Seconds())
}
