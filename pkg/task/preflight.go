package task

import (
	"context"
	"encoding/json"

	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// vBondStatus is the subset of the controller's system/device/vbond
// response preflight cares about: whether the vBond orchestrator is
// reachable, since a restore that attaches device templates will fail
// partway through every device if it is not.
type vBondStatus struct {
	ValidatorReachable bool `json:"reachable"`
}

// PreflightVBond checks that the target controller's vBond orchestrator
// is reachable before a restore attempts to push device templates and
// attach devices against it. A restore against a controller with an
// unreachable vBond will accept every item create but then time out on
// every subsequent attach action, which is far more expensive to
// diagnose than failing fast here.
func (o *Orchestrator) PreflightVBond(ctx context.Context, c client) error {
	raw, err := c.GetJSON(ctx, "/system/device/vbond")
	if err != nil {
		return types.WrapError(types.ErrConnection, err, "preflight: query vBond status")
	}
	var statuses []vBondStatus
	if err := json.Unmarshal(raw, &statuses); err != nil {
		return types.WrapError(types.ErrConnection, err, "preflight: decode vBond status")
	}
	for _, s := range statuses {
		if s.ValidatorReachable {
			return nil
		}
	}
	return types.NewError(types.ErrConnection, "no vBond orchestrator is reachable from the controller")
}
