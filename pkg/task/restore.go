package task

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
)

// RestoreOptions controls one Restore run.
type RestoreOptions struct {
	Kinds      []string
	NameFilter NameFilterFunc
	Rename     nameTransform // nil: item names are pushed unchanged
	DryRun     bool

	// Update gates what happens when an item's (kind, name) already
	// exists on the target. false (the default): Restore never
	// overwrites a live item, recording StepSkip instead. true: Restore
	// fetches the live body and PUTs only when it differs from the
	// backup body under canonical JSON comparison, recording StepSkip
	// when they already match.
	Update bool

	// ActivateVSmartPolicyID, when non-empty, names the backup-side ID
	// of the vSmart policy that is (or should become) active on the
	// target. If the push plan created or updated that item, Restore
	// activates it on the target as the final step of attach mode,
	// using ActionClient to drive the Async Action Engine.
	ActivateVSmartPolicyID string
	ActionClient           *restclient.Client
}

// RestoreResult carries the id mapping a caller needs to drive
// downstream steps (re-attaching device templates, re-activating
// policies) after the item bodies themselves are restored.
type RestoreResult struct {
	Plan    *Plan
	Mapping map[string]string // "<kind>/<backupID>" -> controller-assigned ID
}

// liveIndex is the minimal read access Restore needs into the target
// controller's current item set, used to decide create vs. update vs.
// skip for each backup item.
type liveIndex interface {
	// find returns the live item's (id, exists) for a given kind+name.
	find(kind, name string) (id string, exists bool)
	// body returns the live item's current body for a given kind+id, or
	// (nil, false) if it could not be fetched. Restore falls back to
	// treating the item as changed when body reports false, so an
	// update is never silently skipped just because the live body
	// couldn't be read.
	body(kind, id string) (json.RawMessage, bool)
}

// Restore pushes items from src to the controller in dependency order:
// kinds in graph.TopoKinds order, items within a kind in
// graph.TopoItems order. Each item's embedded references are rewritten
// through the id mapping built up as earlier items are created, so an
// item never reaches the controller carrying a stale backup-side ID.
//
// A factory-default item already present on the controller (matched by
// name) is skipped rather than re-created, since the controller
// provisions factory-default objects itself and rejects a duplicate.
func (o *Orchestrator) Restore(ctx context.Context, c client, live liveIndex, src store.Store, opts RestoreOptions) (RestoreResult, error) {
	defer o.timeOperation("restore")()

	rename := opts.Rename
	if rename == nil {
		rename = func(name string) string { return name }
	}
	filter := opts.NameFilter
	if filter == nil {
		filter = AlwaysInclude
	}

	order, cycleErr := o.graph.TopoKinds()
	if cycleErr != nil {
		o.logger.Warn().Err(cycleErr).Msg("dependency cycle in kind order; proceeding with a best-effort order")
	}
	wanted := toSet(opts.Kinds)

	mapping := newIDMapping()
	plan := &Plan{}
	var errs []error

	for _, kind := range order {
		if len(wanted) > 0 && !wanted[kind] {
			continue
		}
		d, ok := o.catalog.Get(kind)
		if !ok || d.Endpoints.Post == "" {
			continue
		}

		entries, err := src.ReadIndex(kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("read index for %s: %w", kind, err))
			continue
		}

		items := make([]*types.Item, 0, len(entries))
		for _, entry := range entries {
			if entry.Omitted || !filter(entry.Name) {
				continue
			}
			item, err := src.ReadItem(kind, entry.ID, entry.Name)
			if err != nil {
				errs = append(errs, fmt.Errorf("read %s/%s: %w", kind, entry.Name, err))
				continue
			}
			item.FactoryDefault = entry.FactoryDefault
			items = append(items, item)
		}

		ordered, cycleErr := o.graph.TopoItems(kind, items)
		if cycleErr != nil {
			o.logger.Warn().Str("kind", kind).Err(cycleErr).Msg("dependency cycle among items of this kind")
		}

		for _, item := range ordered {
			newName := rename(item.Name)
			entry := types.IndexEntry{ID: item.ID, Name: newName, FactoryDefault: item.FactoryDefault}

			if item.FactoryDefault {
				if liveID, exists := live.find(kind, newName); exists {
					mapping.set(kind, item.ID, liveID)
					plan.add(StepSkip, kind, entry, "factory-default item already present")
					continue
				}
			}

			body, unresolved, err := o.graph.Rewrite(item, mapping.resolver())
			if err != nil {
				errs = append(errs, fmt.Errorf("rewrite %s/%s: %w", kind, item.Name, err))
				continue
			}
			if len(unresolved) > 0 {
				o.logger.Warn().Str("kind", kind).Str("name", item.Name).Int("unresolved", len(unresolved)).
					Msg("item pushed with unresolved references")
			}
			body = renameInBody(body, string(d.NamePath), newName)

			if liveID, exists := live.find(kind, newName); exists {
				if !opts.Update {
					plan.add(StepSkip, kind, entry, "already present; update not requested")
					mapping.set(kind, item.ID, liveID)
					continue
				}
				if liveBody, ok := live.body(kind, liveID); ok && canonicallyEqual(body, liveBody, string(d.IDPath)) {
					plan.add(StepSkip, kind, entry, "no changes")
					mapping.set(kind, item.ID, liveID)
					continue
				}
				plan.add(StepUpdate, kind, entry, "")
				if !opts.DryRun {
					path := fmt.Sprintf(d.Endpoints.Put, liveID)
					if _, err := c.PutJSON(ctx, path, body); err != nil {
						errs = append(errs, fmt.Errorf("update %s/%s: %w", kind, newName, err))
						continue
					}
				}
				mapping.set(kind, item.ID, liveID)
				continue
			}

			plan.add(StepCreate, kind, entry, "")
			if opts.DryRun {
				mapping.set(kind, item.ID, item.ID) // best-effort for downstream dry-run rewrites
				continue
			}
			resp, err := c.PostJSON(ctx, d.Endpoints.Post, body)
			if err != nil {
				errs = append(errs, fmt.Errorf("create %s/%s: %w", kind, newName, err))
				continue
			}
			newID, _, _, err := o.catalog.ExtractIdentity(kind, resp)
			if err != nil || newID == "" {
				newID = item.ID // some create endpoints echo no body; assume ID is stable
			}
			mapping.set(kind, item.ID, newID)
		}
	}

	o.recordPlan(plan)
	result := RestoreResult{Plan: plan, Mapping: make(map[string]string, len(mapping.m))}
	for k, v := range mapping.m {
		result.Mapping[k.kind+"/"+k.id] = v
	}

	if !opts.DryRun && opts.ActivateVSmartPolicyID != "" && opts.ActionClient != nil && policyWasPushed(plan, opts.ActivateVSmartPolicyID) {
		if targetID, ok := result.Mapping[activePolicyMappingKey(plan, opts.ActivateVSmartPolicyID)]; ok {
			if _, err := o.ActivateVSmartPolicy(ctx, opts.ActionClient, targetID); err != nil {
				errs = append(errs, fmt.Errorf("activate vSmart policy: %w", err))
			}
		}
	}

	return result, joinErrors(errs)
}

// policyWasPushed reports whether the plan created or updated the item
// with the given backup-side ID.
func policyWasPushed(plan *Plan, backupID string) bool {
	for _, step := range plan.Steps {
		if step.ID == backupID && (step.Verb == StepCreate || step.Verb == StepUpdate) {
			return true
		}
	}
	return false
}

// activePolicyMappingKey finds the kind of the plan step matching
// backupID so the caller can look up its target-side ID in the id
// mapping, which is keyed "<kind>/<backupID>".
func activePolicyMappingKey(plan *Plan, backupID string) string {
	for _, step := range plan.Steps {
		if step.ID == backupID {
			return step.Kind + "/" + backupID
		}
	}
	return ""
}

// canonicallyEqual reports whether a and b decode to the same JSON value,
// ignoring key order and formatting and the identity field at idKey (the
// backup-side ID and the live target's assigned ID necessarily differ
// even when every meaningful field is identical). There's no JSON-diff
// library in the corpus, and a direct byte comparison would
// false-negative on nothing more than the controller's own
// re-serialization of a body it already holds, so this compares the
// decoded value trees instead.
func canonicallyEqual(a, b json.RawMessage, idKey string) bool {
	av, ok := decodeIgnoringKey(a, idKey)
	if !ok {
		return false
	}
	bv, ok := decodeIgnoringKey(b, idKey)
	if !ok {
		return false
	}
	return reflect.DeepEqual(av, bv)
}

func decodeIgnoringKey(raw json.RawMessage, key string) (any, bool) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	if key == "" {
		return v, true
	}
	if obj, ok := v.(map[string]any); ok {
		delete(obj, key)
	}
	return v, true
}

// renameInBody overwrites the name field at namePath with newName, so a
// renamed item's pushed body is internally consistent with its new
// identity entry.
func renameInBody(body json.RawMessage, namePath string, newName string) json.RawMessage {
	var generic map[string]json.RawMessage
	if err := json.Unmarshal(body, &generic); err != nil {
		return body
	}
	key := namePath
	if key == "" {
		return body
	}
	encoded, err := json.Marshal(newName)
	if err != nil {
		return body
	}
	if _, ok := generic[key]; !ok {
		return body
	}
	generic[key] = encoded
	out, err := json.Marshal(generic)
	if err != nil {
		return body
	}
	return out
}
