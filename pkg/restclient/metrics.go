package restclient

import "time"

// Recorder observes Client request/retry behavior for external metrics
// collection. A nil Recorder (the default) disables observation;
// pkg/metrics provides the Prometheus-backed implementation.
type Recorder interface {
	ObserveRequestDuration(method, status string, d time.Duration)
	IncRetry(reason string)
}

// DefaultRecorder, when set before any Client is constructed, is picked
// up by every Client this package creates, so callers never thread a
// recorder parameter through restclient.New.
var DefaultRecorder Recorder

func (c *Client) recordRequestDuration(method, status string, d time.Duration) {
	if c.recorder != nil {
		c.recorder.ObserveRequestDuration(method, status, d)
	}
}

func (c *Client) recordRetry(reason string) {
	if c.recorder != nil {
		c.recorder.IncRetry(reason)
	}
}

// statusClass collapses an HTTP status code to the bounded label
// cardinality metrics require: "2xx", "3xx", "4xx", "5xx", or "error" for a
// request that never produced a response.
func statusClass(status int) string {
	switch {
	case status == 0:
		return "error"
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	default:
		return "5xx"
	}
}
