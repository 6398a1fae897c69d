package action

import (
	"context"
	"net/netip"
	"sort"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/log"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultChunkSize is the number of devices submitted per controller
	// attach/detach/activate request.
	DefaultChunkSize = 10
	// DefaultPollers bounds concurrent poll_action calls in flight.
	DefaultPollers = 10
)

// Category orders device-affecting action kinds so a mixed batch is
// submitted and reversed in the order the controller's own object graph
// requires.
type Category int

const (
	CategoryAttachDeviceTemplate Category = iota
	CategoryAttachVSmartTemplate
	CategoryActivateVSmartPolicy
	CategoryDeactivateVSmartPolicy
	CategoryDetachVSmartTemplate
	CategoryDetachDeviceTemplate
)

// Submitter issues one action request (attach/detach/activate/
// deactivate) and returns the controller-assigned action ID.
type Submitter func(ctx context.Context, deviceIDs []string) (actionID string, err error)

// Recorder observes Engine outcomes for external metrics collection.
// A nil Recorder (the default) disables observation; pkg/metrics
// provides the Prometheus-backed implementation.
type Recorder interface {
	ObservePollDuration(category Category, d time.Duration)
	IncOutcome(category Category, outcome string)
}

// DefaultRecorder, when set before an Orchestrator drives any
// restore/delete operation, is picked up by every Engine this package
// constructs, so pkg/task's internal action.New call sites report
// through it without threading a recorder parameter through every
// Orchestrator method.
var DefaultRecorder Recorder

// String names a Category for use as a metrics label or log field.
func (c Category) String() string {
	switch c {
	case CategoryAttachDeviceTemplate:
		return "attach_device_template"
	case CategoryAttachVSmartTemplate:
		return "attach_vsmart_template"
	case CategoryActivateVSmartPolicy:
		return "activate_vsmart_policy"
	case CategoryDeactivateVSmartPolicy:
		return "deactivate_vsmart_policy"
	case CategoryDetachVSmartTemplate:
		return "detach_vsmart_template"
	case CategoryDetachDeviceTemplate:
		return "detach_device_template"
	default:
		return "unknown"
	}
}

// Request describes one batch of same-category, same-payload device
// actions to submit and track to completion.
type Request struct {
	Category  Category
	DeviceIDs []string // any order; Run re-sorts ascending by system IP, non-IP IDs last in string order
	Submit    Submitter
	Timeout   time.Duration // per poll_action call; zero uses restclient's default
	Interval  time.Duration
}

// DeviceResult is one device's outcome within a Request.
type DeviceResult struct {
	DeviceID string
	Status   restclient.ActionStatus
	Message  string
}

// Result aggregates every chunk's outcome for one Request.
type Result struct {
	Category Category
	Devices  []DeviceResult
	Failed   int
	TimedOut int
}

// Engine drives Requests to completion against one controller session.
type Engine struct {
	client     *restclient.Client
	chunkSize  int
	maxPollers int
	logger     zerolog.Logger
	recorder   Recorder
}

func New(client *restclient.Client) *Engine {
	return &Engine{
		client:     client,
		chunkSize:  DefaultChunkSize,
		maxPollers: DefaultPollers,
		logger:     log.WithComponent("action"),
		recorder:   DefaultRecorder,
	}
}

// Run submits req in ordered chunks and polls every resulting action to
// a terminal status, using a bounded pool of concurrent pollers. A
// submit or decode failure for one chunk is recorded against that
// chunk's devices as a Failure status rather than aborting the whole
// request, so one bad chunk never hides the outcome of the others.
func (e *Engine) Run(ctx context.Context, req Request) Result {
	devices := make([]string, len(req.DeviceIDs))
	copy(devices, req.DeviceIDs)
	sort.Slice(devices, func(i, j int) bool {
		a, errA := netip.ParseAddr(devices[i])
		b, errB := netip.ParseAddr(devices[j])
		if errA == nil && errB == nil {
			return a.Less(b)
		}
		if errA == nil || errB == nil {
			return errA == nil
		}
		return devices[i] < devices[j]
	})

	chunks := chunk(devices, e.chunkSize)
	e.logger.Info().
		Int("devices", len(devices)).
		Int("chunks", len(chunks)).
		Int("category", int(req.Category)).
		Msg("submitting action batch")

	results := make([][]DeviceResult, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxPollers)

	for i, c := range chunks {
		i, c := i, c
		g.Go(func() error {
			results[i] = e.runChunk(gctx, req, c)
			return nil
		})
	}
	_ = g.Wait() // runChunk never returns an error; failures are encoded per-device

	var agg Result
	agg.Category = req.Category
	for _, r := range results {
		agg.Devices = append(agg.Devices, r...)
	}
	for _, d := range agg.Devices {
		switch d.Status {
		case restclient.ActionFailure:
			agg.Failed++
		case "":
			agg.TimedOut++
		}
	}
	return agg
}

func (e *Engine) runChunk(ctx context.Context, req Request, deviceIDs []string) []DeviceResult {
	actionID, err := req.Submit(ctx, deviceIDs)
	if err != nil {
		e.logger.Warn().Err(err).Strs("devices", deviceIDs).Msg("action submit failed")
		e.recordOutcome(req.Category, "failure")
		return failAll(deviceIDs, err.Error())
	}

	start := time.Now()
	result, err := e.client.PollAction(ctx, actionID, req.Timeout, req.Interval)
	e.recordPollDuration(req.Category, time.Since(start))
	if err != nil {
		e.logger.Warn().Err(err).Str("action_id", actionID).Msg("action poll failed")
		e.recordOutcome(req.Category, "failure")
		return failAll(deviceIDs, err.Error())
	}

	if result.TimedOut {
		e.logger.Warn().Str("action_id", actionID).Msg("action timed out before reaching a terminal status")
		e.recordOutcome(req.Category, "timeout")
		return timeoutAll(deviceIDs)
	}
	e.recordOutcome(req.Category, "success")

	byDevice := make(map[string]restclient.SubTaskResult, len(result.SubTasks))
	for _, st := range result.SubTasks {
		byDevice[st.DeviceID] = st
	}
	out := make([]DeviceResult, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if st, ok := byDevice[id]; ok {
			out = append(out, DeviceResult{DeviceID: id, Status: st.Status, Message: st.Message})
			continue
		}
		out = append(out, DeviceResult{DeviceID: id, Status: result.Status})
	}
	return out
}

func (e *Engine) recordPollDuration(cat Category, d time.Duration) {
	if e.recorder != nil {
		e.recorder.ObservePollDuration(cat, d)
	}
}

func (e *Engine) recordOutcome(cat Category, outcome string) {
	if e.recorder != nil {
		e.recorder.IncOutcome(cat, outcome)
	}
}

func failAll(deviceIDs []string, message string) []DeviceResult {
	out := make([]DeviceResult, len(deviceIDs))
	for i, id := range deviceIDs {
		out[i] = DeviceResult{DeviceID: id, Status: restclient.ActionFailure, Message: message}
	}
	return out
}

func timeoutAll(deviceIDs []string) []DeviceResult {
	out := make([]DeviceResult, len(deviceIDs))
	for i, id := range deviceIDs {
		out[i] = DeviceResult{DeviceID: id, Message: "action timed out"}
	}
	return out
}

func chunk(items []string, size int) [][]string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var out [][]string
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
