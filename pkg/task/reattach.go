package task

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/action"
	"github.com/cisco-sastre/sastre-engine/pkg/log"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// ReattachUpdatedTemplates re-pushes device template configuration to
// every device already attached to a template that Restore updated
// in-place (StepUpdate), or that transitively depends on something
// Restore updated (a feature template a device template references,
// for instance), since vManage does not automatically re-render and
// push a device's configuration when its template's body, or the body
// of anything it's built from, changes underneath it.
//
// Only kinds in templateKinds are considered; central-policy
// re-activation is not done here (Restore activates a vSmart policy
// separately, through ActivateVSmartPolicy).
func (o *Orchestrator) ReattachUpdatedTemplates(ctx context.Context, c *restclient.Client, src store.Store, plan *Plan, templateKinds map[string]bool) (action.Result, error) {
	logger := log.WithComponent("task")
	engine := action.New(c)

	updated := make(map[catalogKey]bool)
	for _, s := range plan.Steps {
		if s.Verb == StepUpdate {
			updated[catalogKey{kind: s.Kind, id: s.ID}] = true
		}
	}

	var aggregate action.Result
	for _, step := range plan.Steps {
		if !templateKinds[step.Kind] {
			continue
		}
		if !o.templateNeedsReattach(src, updated, step) {
			continue
		}
		attachments, err := src.ReadAttachments(step.ID)
		if err != nil {
			return aggregate, fmt.Errorf("read attachments for %s: %w", step.Name, err)
		}
		if len(attachments) == 0 {
			continue
		}

		deviceIDs := make([]string, 0, len(attachments))
		for _, a := range attachments {
			deviceIDs = append(deviceIDs, a.DeviceID)
		}

		logger.Info().Str("template", step.Name).Int("devices", len(deviceIDs)).Msg("re-attaching devices to updated template")
		result := engine.Run(ctx, action.Request{
			Category:  action.CategoryAttachDeviceTemplate,
			DeviceIDs: deviceIDs,
			Submit:    reattachSubmitter(c, step.ID),
		})
		aggregate.Devices = append(aggregate.Devices, result.Devices...)
		aggregate.Failed += result.Failed
		aggregate.TimedOut += result.TimedOut
	}
	return aggregate, nil
}

// templateNeedsReattach reports whether step's item was itself updated,
// or depends, directly or transitively, on something the plan updated.
func (o *Orchestrator) templateNeedsReattach(src store.Store, updated map[catalogKey]bool, step PlanStep) bool {
	if step.Verb == StepUpdate {
		return true
	}
	visited := map[catalogKey]bool{{kind: step.Kind, id: step.ID}: true}
	return o.dependsOnUpdated(src, updated, step.Kind, step.ID, visited)
}

// dependsOnUpdated walks kind/id's reference graph looking for any item
// the plan updated. visited guards against cycles in the reference graph
// the same way graph.TopoItems does for ordering.
func (o *Orchestrator) dependsOnUpdated(src store.Store, updated map[catalogKey]bool, kind, id string, visited map[catalogKey]bool) bool {
	item, err := readItemByID(src, kind, id)
	if err != nil || item == nil {
		return false
	}
	refs, err := o.catalog.ExtractReferences(kind, item.Body)
	if err != nil {
		return false
	}
	for _, ref := range refs {
		key := catalogKey{kind: ref.Kind, id: ref.ID}
		if updated[key] {
			return true
		}
		if visited[key] {
			continue
		}
		visited[key] = true
		if o.dependsOnUpdated(src, updated, ref.Kind, ref.ID, visited) {
			return true
		}
	}
	return false
}

// readItemByID recovers an item by ID alone: store.Store.ReadItem needs
// the item's name, so this scans the kind's index once to find it first.
func readItemByID(src store.Store, kind, id string) (*types.Item, error) {
	entries, err := src.ReadIndex(kind)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		if e.ID == id {
			return src.ReadItem(kind, e.ID, e.Name)
		}
	}
	return nil, nil
}

func reattachSubmitter(c client, templateID string) action.Submitter {
	return func(ctx context.Context, deviceIDs []string) (string, error) {
		payload, err := json.Marshal(map[string]any{
			"templateId":     templateID,
			"deviceIds":      deviceIDs,
			"isEdited":       true,
			"isMasterEdited": true,
		})
		if err != nil {
			return "", err
		}
		resp, err := c.PostJSON(ctx, "/template/device/config/attachfeature", payload)
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
