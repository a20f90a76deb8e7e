// Package metrics exposes Prometheus collectors for the crawl pipeline.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	fetchRequestsTotal    *prometheus.CounterVec
	fetchDurationSeconds  *prometheus.HistogramVec
	tasksTotal            *prometheus.CounterVec
	taskRetriesTotal      *prometheus.CounterVec
	recordsSavedTotal     *prometheus.CounterVec
	failuresLedgeredTotal prometheus.Counter
	activeWorkers         *prometheus.GaugeVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_fetch_requests_total",
				Help: "Total number of upstream fetches, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_fetch_duration_seconds",
				Help:    "Histogram of upstream fetch latencies, labeled by source.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		tasksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_tasks_total",
				Help: "Total number of pipeline tasks completed, labeled by stage and status.",
			},
			[]string{"stage", "status"},
		)

		taskRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_task_retries_total",
				Help: "Total number of tasks requeued after a retryable failure, labeled by stage.",
			},
			[]string{"stage"},
		)

		recordsSavedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_records_saved_total",
				Help: "Total number of records handed to the store, labeled by kind.",
			},
			[]string{"kind"},
		)

		failuresLedgeredTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "crawler_failures_ledgered_total",
				Help: "Total number of movies abandoned to the failure ledger.",
			},
		)

		activeWorkers = promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "crawler_active_workers",
				Help: "Number of workers currently processing a task, labeled by stage.",
			},
			[]string{"stage"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveFetch records one upstream fetch and its latency.
func ObserveFetch(source, outcome string, duration time.Duration) {
	fetchRequestsTotal.WithLabelValues(source, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// ObserveTask increments the task counter for the given stage and status.
func ObserveTask(stage, status string) {
	tasksTotal.WithLabelValues(stage, status).Inc()
}

// ObserveTaskRetry increments the requeue counter for the given stage.
func ObserveTaskRetry(stage string) {
	taskRetriesTotal.WithLabelValues(stage).Inc()
}

// ObserveRecordsSaved adds to the saved-record counter for the given kind.
func ObserveRecordsSaved(kind string, n int) {
	if n > 0 {
		recordsSavedTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// ObserveFailureLedgered increments the abandoned-movie counter.
func ObserveFailureLedgered() {
	failuresLedgeredTotal.Inc()
}

// IncActiveWorkers increments the active workers gauge for a stage.
func IncActiveWorkers(stage string) {
	activeWorkers.WithLabelValues(stage).Inc()
}

// DecActiveWorkers decrements the active workers gauge for a stage.
func DecActiveWorkers(stage string) {
	activeWorkers.WithLabelValues(stage).Dec()
}
