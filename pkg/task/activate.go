package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/action"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
)

// ActivateVSmartPolicy activates policyID on the target controller and
// polls the resulting action to completion. It is the final step of
// Restore's attach-mode pipeline when the restored plan created or
// updated the policy that is (or will become) the target's active
// vSmart policy.
func (o *Orchestrator) ActivateVSmartPolicy(ctx context.Context, c *restclient.Client, policyID string) (action.Result, error) {
	engine := action.New(c)
	result := engine.Run(ctx, action.Request{
		Category:  action.CategoryActivateVSmartPolicy,
		DeviceIDs: []string{policyID},
		Submit:    vSmartPolicySubmitter(c, "/template/policy/vsmart/activate/%s"),
	})
	if result.Failed > 0 {
		return result, fmt.Errorf("vSmart policy %s: activate failed", policyID)
	}
	return result, nil
}

// DeactivateVSmartPolicy is ActivateVSmartPolicy's inverse, used by
// Delete before detaching vSmart templates with --detach set.
func (o *Orchestrator) DeactivateVSmartPolicy(ctx context.Context, c *restclient.Client, policyID string) (action.Result, error) {
	engine := action.New(c)
	result := engine.Run(ctx, action.Request{
		Category:  action.CategoryDeactivateVSmartPolicy,
		DeviceIDs: []string{policyID},
		Submit:    vSmartPolicySubmitter(c, "/template/policy/vsmart/deactivate/%s"),
	})
	if result.Failed > 0 {
		return result, fmt.Errorf("vSmart policy %s: deactivate failed", policyID)
	}
	return result, nil
}

func vSmartPolicySubmitter(c client, pathFormat string) action.Submitter {
	return func(ctx context.Context, ids []string) (string, error) {
		resp, err := c.PostJSON(ctx, fmt.Sprintf(pathFormat, ids[0]), json.RawMessage(`{}`))
		if err != nil {
			return "", err
		}
		var parsed struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(resp, &parsed); err != nil {
			return "", err
		}
		return parsed.ID, nil
	}
}
