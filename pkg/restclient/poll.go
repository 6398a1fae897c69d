package restclient

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// ActionStatus is the terminal-or-not status of one controller action.
type ActionStatus string

const (
	ActionRunning ActionStatus = "Running"
	ActionSuccess ActionStatus = "Success"
	ActionFailure ActionStatus = "Failure"
	ActionDone    ActionStatus = "Done"
)

func (s ActionStatus) Terminal() bool {
	switch s {
	case ActionSuccess, ActionFailure, ActionDone:
		return true
	default:
		return false
	}
}

// SubTaskResult is one device/member's outcome within an action.
type SubTaskResult struct {
	DeviceID string       `json:"uuid"`
	Status   ActionStatus `json:"status"`
	Message  string       `json:"statusId"`
}

// ActionResult is the aggregate outcome of poll_action.
type ActionResult struct {
	ActionID string
	Status   ActionStatus
	SubTasks []SubTaskResult
	TimedOut bool
}

type actionStatusResponse struct {
	ID       string          `json:"id"`
	Status   ActionStatus    `json:"status"`
	SubTasks []SubTaskResult `json:"data"`
}

// PollAction polls the controller's action-status endpoint every interval
// (default 10s) until every sub-task reaches a terminal status or timeout
// (default 20m) expires. It never returns a transport error for an
// expired timeout; that is reported as ActionResult.TimedOut so the
// caller can surface ActionTimeout as a WARN rather than abort the task.
func (c *Client) PollAction(ctx context.Context, actionID string, timeout, interval time.Duration) (ActionResult, error) {
	if timeout <= 0 {
		timeout = 20 * time.Minute
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}

	parent := ctx
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := ActionResult{ActionID: actionID}
	for {
		result, err := c.fetchActionStatus(ctx, actionID)
		if err != nil {
			if ctx.Err() != nil && parent.Err() == nil {
				last.TimedOut = true
				return last, nil
			}
			return ActionResult{}, err
		}
		last = result
		if allTerminal(result) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			result.TimedOut = true
			return result, nil
		case <-ticker.C:
		}
	}
}

func (c *Client) fetchActionStatus(ctx context.Context, actionID string) (ActionResult, error) {
	raw, err := c.GetJSON(ctx, "/device/action/status/"+actionID)
	if err != nil {
		return ActionResult{}, err
	}
	var parsed actionStatusResponse
	// GetJSON has already stripped vManage's {"data": [...]} envelope,
	// leaving the sub-task list; a response without that envelope decodes
	// as the whole status object.
	if err := json.Unmarshal(raw, &parsed.SubTasks); err != nil {
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return ActionResult{}, types.WrapError(types.ErrConnection, err, "decode action status for %s", actionID)
		}
	}
	return ActionResult{
		ActionID: actionID,
		Status:   aggregateStatus(parsed),
		SubTasks: parsed.SubTasks,
	}, nil
}

func allTerminal(r ActionResult) bool {
	return r.Status.Terminal()
}

// aggregateStatus derives an overall status from per-device sub-task
// statuses: a terminal top-level status, when present, is returned as is;
// otherwise the action is terminal only once every sub-task is terminal,
// and the aggregate is Failure if any sub-task failed.
func aggregateStatus(resp actionStatusResponse) ActionStatus {
	if resp.Status != "" && resp.Status.Terminal() {
		return resp.Status
	}
	if len(resp.SubTasks) == 0 {
		return resp.Status
	}
	anyFailure := false
	allDone := true
	for _, st := range resp.SubTasks {
		if !st.Status.Terminal() {
			allDone = false
		}
		if st.Status == ActionFailure {
			anyFailure = true
		}
	}
	if !allDone {
		return ActionRunning
	}
	if anyFailure {
		return ActionFailure
	}
	return ActionSuccess
}
