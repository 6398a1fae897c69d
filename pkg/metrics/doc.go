/*
Package metrics provides Prometheus metrics collection and health reporting
for sastre-engine.

It instruments the pieces of the engine that run long enough or often enough
to be worth watching from outside a single CLI invocation: the Controller
Client's request/retry behavior, the Async Action Engine's poll latency and
outcomes, and the Task Orchestrator's end-to-end operation duration. A
"serve-metrics" mode exposes these, plus health and readiness, over HTTP for
a Prometheus scrape alongside a scheduled/cron-driven sastre run.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                  │          │
	│  │                                              │          │
	│  │  Items: processed counts by kind/outcome    │          │
	│  │  HTTP: request duration, retries            │          │
	│  │  Actions: poll duration, outcome counts     │          │
	│  │  Tasks: operation duration                  │          │
	│  │  Store: backup workdir size                 │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │              Collector                       │          │
	│  │  - Polls controller session reachability    │          │
	│  │  - Polls backup workdir size                │          │
	│  │  - Updates health.go component state         │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │     /metrics, /health, /ready, /live         │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Metrics Catalog

sastre_items_total{kind, outcome}:
  - Type: Counter
  - Description: Total items processed by kind and outcome
  - Labels: kind (e.g. "template_feature", "template_device"),
    outcome ("created", "updated", "skipped", "deleted", "failed")
  - Example: sastre_items_total{kind="template_feature",outcome="created"} 42

sastre_http_request_duration_seconds{method, status}:
  - Type: Histogram
  - Description: Controller HTTP request duration in seconds
  - Labels: method (HTTP verb), status (response status class)
  - Buckets: Prometheus default buckets

sastre_http_retries_total{reason}:
  - Type: Counter
  - Description: Total HTTP retries issued by the Controller Client's
    backoff policies
  - Labels: reason ("rate_limit", "transient")

sastre_action_poll_duration_seconds{category}:
  - Type: Histogram
  - Description: Time the Async Action Engine spent polling one submitted
    action until it reached a terminal status
  - Labels: category (attach_device_template, activate_vsmart_policy, ...)
  - Buckets: 1, 5, 15, 30, 60, 120, 300, 600, 1200 (seconds)

sastre_action_outcome_total{category, outcome}:
  - Type: Counter
  - Description: Total async actions by category and outcome
  - Labels: category, outcome ("success", "failure", "timeout")

sastre_task_duration_seconds{operation}:
  - Type: Histogram
  - Description: End-to-end duration of one orchestrator operation
  - Labels: operation ("backup", "restore", "delete", "migrate", "transform")
  - Buckets: 1, 5, 15, 30, 60, 300, 900, 1800 (seconds)

sastre_backup_workdir_bytes:
  - Type: Gauge
  - Description: On-disk size in bytes of the most recently written backup
    workdir (directory or archive), updated by Collector when polling
    against a local destination

# Usage

Recording an item outcome:

	metrics.ItemsTotal.WithLabelValues("template_feature", "created").Inc()

Timing an HTTP request:

	timer := metrics.NewTimer()
	resp, err := doRequest()
	timer.ObserveDurationVec(metrics.HTTPRequestDuration, "GET", statusClass(resp))

Timing an action poll:

	timer := metrics.NewTimer()
	result, err := client.PollAction(ctx, actionID, 0, 0)
	timer.ObserveDurationVec(metrics.ActionPollDuration, req.Category.String())
	outcome := "success"
	switch {
	case err == nil && result.TimedOut:
		outcome = "timeout"
	case err != nil || result.Status == restclient.ActionFailure:
		outcome = "failure"
	}
	metrics.ActionOutcomeTotal.WithLabelValues(req.Category.String(), outcome).Inc()

Serving metrics alongside health:

	http.Handle("/metrics", metrics.Handler())
	http.HandleFunc("/health", metrics.HealthHandler())
	http.HandleFunc("/ready", metrics.ReadyHandler())
	http.HandleFunc("/live", metrics.LivenessHandler())
	http.ListenAndServe(":9090", nil)

Running the background collector:

	collector := metrics.NewCollector(controllerClient, workdir)
	collector.Start()
	defer collector.Stop()

# Integration Points

This package integrates with:

  - pkg/restclient: reports request duration, retries, and satisfies the
    Collector's controllerClient interface for reachability checks
  - pkg/action: reports poll duration and outcome per Category
  - pkg/task: reports per-item outcomes and per-operation task duration
  - pkg/store: Collector reports on-disk backup workdir size
  - Prometheus: scrapes /metrics

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, so metrics are available before main() runs.

Label Discipline:
  - Labels are bounded: kind names, outcome enums, HTTP status classes,
    action categories. No item IDs or timestamps as labels.

Timer Pattern:
  - Create a Timer at operation start, call ObserveDuration or
    ObserveDurationVec when it completes.

Health vs Metrics:
  - health.go tracks up/down component state for operational dashboards
    and Kubernetes-style probes; metrics.go tracks counts and durations
    for Prometheus. Collector updates both from the same poll.

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
