package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cisco-sastre/sastre-engine/pkg/action"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// DeleteOptions controls one Delete run.
type DeleteOptions struct {
	Kinds          []string
	NameFilter     NameFilterFunc
	IncludeFactory bool // delete factory-default items too; normally skipped
	DryRun         bool

	// Detach, when set, runs the controller's required unwind sequence
	// before any item DELETE is issued: detach-all of WAN-edge device
	// templates, deactivate of the active vSmart policy named by
	// ActiveVSmartPolicyID (whenever it is set, whichever kinds are being
	// deleted), then detach of vSmart device templates. A device template (WAN-edge or
	// vSmart) cannot be deleted while still attached to a device, and a
	// vSmart policy or any item it depends on cannot be removed while
	// active. ActionClient carries the concrete client the Async Action
	// Engine needs to drive detach/deactivate to completion; it is only
	// required when Detach is set.
	Detach               bool
	ActiveVSmartPolicyID string
	ActionClient         *restclient.Client
}

// Delete removes items from a live controller, reading the target set
// from src (typically a backup taken moments earlier, or a live listing
// captured into an in-memory store) and walking kinds in reverse
// dependency order so a kind is never deleted while another kind still
// references it.
func (o *Orchestrator) Delete(ctx context.Context, c client, src store.Store, opts DeleteOptions) (*Plan, error) {
	defer o.timeOperation("delete")()

	filter := opts.NameFilter
	if filter == nil {
		filter = AlwaysInclude
	}

	order, cycleErr := o.graph.DeleteOrder()
	wanted := toSet(opts.Kinds)

	if opts.Detach && opts.ActionClient != nil {
		o.detachTemplates(ctx, opts, src, action.CategoryDetachDeviceTemplate, "vedge")
		if opts.ActiveVSmartPolicyID != "" {
			if _, err := o.DeactivateVSmartPolicy(ctx, opts.ActionClient, opts.ActiveVSmartPolicyID); err != nil {
				o.logger.Warn().Err(err).Msg("deactivate vSmart policy before delete failed; continuing with delete")
			}
		}
		o.detachTemplates(ctx, opts, src, action.CategoryDetachVSmartTemplate, "vsmart")
	}

	plan := &Plan{}
	for _, kind := range order {
		if len(wanted) > 0 && !wanted[kind] {
			continue
		}
		d, ok := o.catalog.Get(kind)
		if !ok || d.Endpoints.Delete == "" {
			continue
		}

		entries, err := src.ReadIndex(kind)
		if err != nil {
			return plan, fmt.Errorf("read index for %s: %w", kind, err)
		}
		for _, entry := range entries {
			if entry.Omitted || !filter(entry.Name) {
				continue
			}
			if entry.FactoryDefault && !opts.IncludeFactory {
				plan.add(StepSkip, kind, entry, "factory-default item")
				continue
			}
			plan.add(StepDelete, kind, entry, "")
			if opts.DryRun {
				continue
			}
			path := fmt.Sprintf(d.Endpoints.Delete, entry.ID)
			if err := c.Delete(ctx, path); err != nil {
				if isNotFound(err) {
					continue // already gone; deleting is idempotent
				}
				if isConflict(err) {
					// a 409 is item-local (something still references
					// this item, or a concurrent change on the
					// controller); log it and keep deleting the rest of
					// the set rather than aborting the whole run.
					o.logger.Warn().Str("kind", kind).Str("name", entry.Name).Err(err).
						Msg("delete conflict; leaving item in place and continuing")
					continue
				}
				return plan, fmt.Errorf("delete %s/%s: %w", kind, entry.Name, err)
			}
		}
	}

	if cycleErr != nil {
		o.logger.Warn().Err(cycleErr).Msg("dependency cycle in delete order; proceeding with a best-effort order")
	}
	o.recordPlan(plan)
	return plan, nil
}

func toSet(kinds []string) map[string]bool {
	if len(kinds) == 0 {
		return nil
	}
	out := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		out[k] = true
	}
	return out
}

func isNotFound(err error) bool {
	var sastreErr *types.Error
	return errors.As(err, &sastreErr) && sastreErr.Kind == types.ErrNotFound
}

func isConflict(err error) bool {
	var sastreErr *types.Error
	return errors.As(err, &sastreErr) && sastreErr.Kind == types.ErrConflict
}

// detachTemplates detaches every template_device item of the given
// deviceType (the categories differ for WAN-edge and vSmart templates)
// from whatever devices a prior backup recorded as attached, via the
// Async Action Engine. It is best-effort: a template with no recorded
// attachments is skipped, and an action batch reporting failures is
// logged, rather than blocking the delete run that follows it.
func (o *Orchestrator) detachTemplates(ctx context.Context, opts DeleteOptions, src store.Store, category action.Category, deviceType string) {
	entries, err := src.ReadIndex("template_device")
	if err != nil {
		return
	}
	engine := action.New(opts.ActionClient)
	for _, entry := range entries {
		if entry.Omitted {
			continue
		}
		item, err := src.ReadItem("template_device", entry.ID, entry.Name)
		if err != nil {
			continue
		}
		if templateDeviceType(item.Body) != deviceType {
			continue
		}
		attachments, err := src.ReadAttachments(entry.ID)
		if err != nil || len(attachments) == 0 {
			continue
		}
		deviceIDs := make([]string, 0, len(attachments))
		for _, a := range attachments {
			deviceIDs = append(deviceIDs, a.DeviceID)
		}
		result := engine.Run(ctx, action.Request{
			Category:  category,
			DeviceIDs: deviceIDs,
			Submit:    detachSubmitter(opts.ActionClient, entry.ID),
		})
		if result.Failed > 0 {
			o.logger.Warn().Str("template", entry.Name).Int("failed", result.Failed).
				Msg("detach before delete reported failures; continuing with delete")
		}
	}
}

// templateDeviceType classifies a template_device item's body as
// "vsmart" or "vedge" so Delete's detach pass can route it to the
// matching Async Action Engine category; the two device families use
// distinct detach endpoints on the controller.
func templateDeviceType(body json.RawMessage) string {
	var parsed struct {
		DeviceType string `json:"deviceType"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "vedge"
	}
	if strings.Contains(strings.ToLower(parsed.DeviceType), "vsmart") {
		return "vsmart"
	}
	return "vedge"
}

func detachSubmitter(c client, templateID string) action.Submitter {
	return func(ctx context.Context, deviceIDs []string) (string, error) {
		payload, err := json.Marshal(map[string]any{
			"templateId": templateID,
			"deviceIds":  deviceIDs,
		})
		if err != nil {
			return "", err
		}
		resp, err := c.PostJSON(ctx, "/template/device/config/detachfeature", payload)
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
