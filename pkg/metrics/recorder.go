package metrics

import (
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/action"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
)

// ActionRecorder adapts the Async Action Engine's Recorder interface to
// the package-level Prometheus collectors. Install it once at startup:
//
//	action.DefaultRecorder = metrics.ActionRecorder{}
type ActionRecorder struct{}

func (ActionRecorder) ObservePollDuration(category action.Category, d time.Duration) {
	ActionPollDuration.WithLabelValues(category.String()).Observe(d.Seconds())
}

func (ActionRecorder) IncOutcome(category action.Category, outcome string) {
	ActionOutcomeTotal.WithLabelValues(category.String(), outcome).Inc()
}

var _ action.Recorder = ActionRecorder{}

// ItemRecorder adapts the Task Orchestrator's ItemRecorder interface to
// ItemsTotal. Install it once at startup:
//
//	task.DefaultRecorder = metrics.ItemRecorder{}
type ItemRecorder struct{}

func (ItemRecorder) IncItems(kind, outcome string, n int) {
	ItemsTotal.WithLabelValues(kind, outcome).Add(float64(n))
}

var _ task.ItemRecorder = ItemRecorder{}

// TaskDurationRecorder adapts the Task Orchestrator's DurationRecorder
// interface to TaskDuration. Install it once at startup:
//
//	task.DefaultDurationRecorder = metrics.TaskDurationRecorder{}
type TaskDurationRecorder struct{}

func (TaskDurationRecorder) ObserveDuration(operation string, d time.Duration) {
	TaskDuration.WithLabelValues(operation).Observe(d.Seconds())
}

var _ task.DurationRecorder = TaskDurationRecorder{}

// HTTPRecorder adapts the Controller Client's Recorder interface to
// HTTPRequestDuration and HTTPRetriesTotal. Install it once at startup:
//
//	restclient.DefaultRecorder = metrics.HTTPRecorder{}
type HTTPRecorder struct{}

func (HTTPRecorder) ObserveRequestDuration(method, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, status).Observe(d.Seconds())
}

func (HTTPRecorder) IncRetry(reason string) {
	HTTPRetriesTotal.WithLabelValues(reason).Inc()
}

var _ restclient.Recorder = HTTPRecorder{}
