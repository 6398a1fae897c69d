package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsTotal counts items the Task Orchestrator has acted on, by
	// kind and outcome (created, updated, skipped, deleted, failed).
	ItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sastre_items_total",
			Help: "Total number of items processed by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// HTTPRequestDuration observes the Controller Client's round trips.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sastre_http_request_duration_seconds",
			Help:    "Controller HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "status"},
	)

	// HTTPRetriesTotal counts retry attempts issued by the Controller
	// Client's backoff policies.
	HTTPRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sastre_http_retries_total",
			Help: "Total number of HTTP retries by reason",
		},
		[]string{"reason"}, // "rate_limit" or "transient"
	)

	// ActionPollDuration observes how long the Async Action Engine
	// waits for one submitted action to reach a terminal status.
	ActionPollDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sastre_action_poll_duration_seconds",
			Help:    "Async action poll duration in seconds by category",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"category"},
	)

	// ActionOutcomeTotal counts async actions by category and outcome.
	ActionOutcomeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sastre_action_outcome_total",
			Help: "Total number of async actions by category and outcome",
		},
		[]string{"category", "outcome"}, // outcome: success, failure, timeout
	)

	// TaskDuration observes one full orchestrator operation
	// (backup/restore/delete/migrate/transform) end to end.
	TaskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sastre_task_duration_seconds",
			Help:    "Task duration in seconds by operation",
			Buckets: []float64{1, 5, 15, 30, 60, 300, 900, 1800},
		},
		[]string{"operation"},
	)

	// BackupWorkdirBytes records the on-disk size of the most recent
	// backup written by the Item Store, when the destination is a
	// directory or archive on local disk.
	BackupWorkdirBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sastre_backup_workdir_bytes",
			Help: "Size in bytes of the most recently written backup workdir",
		},
	)
)

func init() {
	prometheus.MustRegister(
		ItemsTotal,
		HTTPRequestDuration,
		HTTPRetriesTotal,
		ActionPollDuration,
		ActionOutcomeTotal,
		TaskDuration,
		BackupWorkdirBytes,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
