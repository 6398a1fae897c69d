package task

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/graph"
	"github.com/cisco-sastre/sastre-engine/pkg/log"
	"github.com/cisco-sastre/sastre-engine/pkg/nametemplate"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/rs/zerolog"
)

// DurationRecorder observes how long one end-to-end orchestrator
// operation took, for external metrics collection. A nil
// DurationRecorder (the default) disables observation; pkg/metrics
// provides the Prometheus-backed implementation.
type DurationRecorder interface {
	ObserveDuration(operation string, d time.Duration)
}

// DefaultDurationRecorder, when set before an Orchestrator runs, is
// used by every Orchestrator created via New.
var DefaultDurationRecorder DurationRecorder

// Orchestrator drives backup/restore/delete/migrate/transform against
// one or two controller sessions, sharing one catalog and reference
// graph across all five operations.
type Orchestrator struct {
	catalog  *catalog.Catalog
	graph    *graph.Graph
	logger   zerolog.Logger
	recorder ItemRecorder
	duration DurationRecorder
}

func New(cat *catalog.Catalog) *Orchestrator {
	return &Orchestrator{
		catalog:  cat,
		graph:    graph.New(cat),
		logger:   log.WithComponent("task"),
		recorder: DefaultRecorder,
		duration: DefaultDurationRecorder,
	}
}

// timeOperation starts a timer for a named operation; the caller defers
// the returned func so the duration is reported however the operation
// returns.
func (o *Orchestrator) timeOperation(operation string) func() {
	start := time.Now()
	return func() {
		if o.duration != nil {
			o.duration.ObserveDuration(operation, time.Since(start))
		}
	}
}

func (o *Orchestrator) recordItems(kind, outcome string, n int) {
	if o.recorder != nil && n > 0 {
		o.recorder.IncItems(kind, outcome, n)
	}
}

// stepOutcome maps a PlanStep's verb to the items_total outcome label.
func stepOutcome(verb StepVerb) string {
	switch verb {
	case StepCreate:
		return "created"
	case StepUpdate:
		return "updated"
	case StepSkip:
		return "skipped"
	case StepDelete:
		return "deleted"
	default:
		return "unknown"
	}
}

// recordPlan tallies a plan's steps per kind and outcome.
func (o *Orchestrator) recordPlan(plan *Plan) {
	if o.recorder == nil || plan == nil {
		return
	}
	counts := make(map[catalogKey]int)
	for _, step := range plan.Steps {
		counts[catalogKey{kind: step.Kind, id: stepOutcome(step.Verb)}]++
	}
	for key, n := range counts {
		o.recordItems(key.kind, key.id, n)
	}
}

// NameFilterFunc reports whether an item's name should be included,
// implementing types.NameFilter's include/exclude regex semantics.
type NameFilterFunc func(name string) bool

// AlwaysInclude is the NameFilterFunc used when no filter is given.
func AlwaysInclude(string) bool { return true }

// idMapping tracks, within one restore or migrate run, the controller
// ID a backup-side (kind, id) pair was assigned, so later items in
// dependency order can rewrite their references to point at it.
type idMapping struct {
	m map[catalogKey]string
}

type catalogKey struct {
	kind string
	id   string
}

func newIDMapping() *idMapping {
	return &idMapping{m: make(map[catalogKey]string)}
}

func (im *idMapping) set(kind, oldID, newID string) {
	im.m[catalogKey{kind, oldID}] = newID
}

func (im *idMapping) get(kind, oldID string) (string, bool) {
	v, ok := im.m[catalogKey{kind, oldID}]
	return v, ok
}

// resolver adapts idMapping to graph.Graph.Rewrite's mapping signature,
// falling back to "unchanged" for a kind this run never touched (e.g. a
// certificate reference, which restore does not rewrite).
func (im *idMapping) resolver() func(kind, id string) (string, bool) {
	return func(kind, id string) (string, bool) {
		return im.get(kind, id)
	}
}

// client is the subset of *restclient.Client the orchestrator drives.
// Tests substitute a fake that still exercises the planning and
// graph-ordering logic without network I/O.
type client interface {
	GetJSON(ctx context.Context, path string) (json.RawMessage, error)
	PostJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error)
	PutJSON(ctx context.Context, path string, body json.RawMessage) (json.RawMessage, error)
	Delete(ctx context.Context, path string) error
}

var _ client = (*restclient.Client)(nil)

// nameTransform adapts *nametemplate.Transformer to the function shape
// restore/migrate pass around; nil means pass-through (no renaming).
type nameTransform func(string) string

func withTransform(t *nametemplate.Transformer) nameTransform {
	if t == nil {
		return func(name string) string { return name }
	}
	return t.Apply
}
