package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"golang.org/x/sync/errgroup"
)

// backupFanOut bounds the concurrent per-item GETs Backup issues once a
// kind's index has been listed and filtered, the same worker-pool size
// the Async Action Engine uses for its pollers.
const backupFanOut = 10

// BackupOptions controls one Backup run.
type BackupOptions struct {
	Kinds      []string // resolved from tags by the caller via catalog.ExpandTags
	NameFilter NameFilterFunc

	// SaveRunning, when set, additionally captures every device's
	// current running configuration into the backup (a full "all"
	// backup step, not tied to any single kind). Skipped by default
	// since it issues one extra request per device in inventory on top
	// of the catalog kinds already being backed up.
	SaveRunning bool
}

// BackupResult summarizes one Backup run for the caller to log or report.
type BackupResult struct {
	ItemsByKind map[string]int
}

// ItemRecorder observes per-kind, per-outcome item counts for external
// metrics collection. A nil Recorder (the default) disables
// observation; pkg/metrics provides the Prometheus-backed
// implementation.
type ItemRecorder interface {
	IncItems(kind, outcome string, n int)
}

// DefaultRecorder, when set before an Orchestrator runs, is used by
// every Orchestrator created via New.
var DefaultRecorder ItemRecorder

// backupSummary is one selected item's identity as extracted from its
// kind's index listing, before the full body has been fetched.
type backupSummary struct {
	id             string
	name           string
	factoryDefault bool
}

// Backup lists every requested kind's index, applies the name filter to
// each summary, then fans out a bounded pool of GETs to fetch each
// selected item's full body before writing it into dest. Kinds are
// processed independently; one kind's list failure does not abort the
// rest (it is recorded in the returned error as a joined error so the
// caller can decide whether a partial backup is acceptable).
func (o *Orchestrator) Backup(ctx context.Context, c client, dest store.Store, opts BackupOptions) (BackupResult, error) {
	defer o.timeOperation("backup")()

	filter := opts.NameFilter
	if filter == nil {
		filter = AlwaysInclude
	}

	result := BackupResult{ItemsByKind: make(map[string]int)}
	var errs []error

	for _, kind := range opts.Kinds {
		d, ok := o.catalog.Get(kind)
		if !ok {
			continue
		}
		if d.Endpoints.List == "" {
			continue
		}

		raw, err := c.GetJSON(ctx, d.Endpoints.List)
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", kind, err))
			continue
		}

		// The WAN edge certificate list is stored as a single file
		// (the controller's own list response, unmodified), not as a
		// per-kind index plus one body per item like every other kind:
		// certificates don't have the create/update/delete lifecycle
		// the rest of the catalog does, so there's nothing to diff
		// against or rewrite references for.
		if kind == "certificate.wan_edge" {
			if err := dest.WriteCertificates(raw); err != nil {
				errs = append(errs, fmt.Errorf("write certificates: %w", err))
				continue
			}
			var certs []json.RawMessage
			if err := json.Unmarshal(raw, &certs); err != nil {
				errs = append(errs, fmt.Errorf("decode certificate list: %w", err))
				continue
			}
			result.ItemsByKind[kind] = len(certs)
			o.recordItems(kind, "created", len(certs))
			o.logger.Info().Str("kind", kind).Int("count", len(certs)).Msg("backed up kind")
			continue
		}

		var summaryBodies []json.RawMessage
		if err := json.Unmarshal(raw, &summaryBodies); err != nil {
			errs = append(errs, fmt.Errorf("decode %s list: %w", kind, err))
			continue
		}

		var entries []types.IndexEntry
		var selected []backupSummary
		for _, body := range summaryBodies {
			id, name, factoryDefault, err := o.catalog.ExtractIdentity(kind, body)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", kind, err))
				continue
			}
			if !filter(name) {
				entries = append(entries, types.IndexEntry{ID: id, Name: name, FactoryDefault: factoryDefault, Omitted: true})
				continue
			}
			selected = append(selected, backupSummary{id: id, name: name, factoryDefault: factoryDefault})
		}

		fetched, fetchErrs := o.fetchBodies(ctx, c, kind, d.Endpoints.Get, selected, summaryBodies)
		errs = append(errs, fetchErrs...)

		count := 0
		for _, s := range selected {
			body, ok := fetched[s.id]
			if !ok {
				continue // its fetch failed; already recorded in fetchErrs
			}
			refs, err := o.catalog.ExtractReferences(kind, body)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s/%s: %w", kind, s.name, err))
				continue
			}
			item := &types.Item{Kind: kind, ID: s.id, Name: s.name, FactoryDefault: s.factoryDefault, Body: body, References: refs}
			if err := dest.WriteItem(kind, item); err != nil {
				errs = append(errs, fmt.Errorf("write %s/%s: %w", kind, s.name, err))
				continue
			}
			entries = append(entries, types.IndexEntry{ID: s.id, Name: s.name, FactoryDefault: s.factoryDefault})
			count++

			if kind == "template_device" {
				if err := o.backupAttachments(ctx, c, dest, s.id); err != nil {
					errs = append(errs, fmt.Errorf("attachments for %s/%s: %w", kind, s.name, err))
				}
			}
		}
		if err := dest.WriteIndex(kind, entries); err != nil {
			errs = append(errs, fmt.Errorf("write index for %s: %w", kind, err))
		}
		result.ItemsByKind[kind] = count
		o.recordItems(kind, "created", count)
		o.logger.Info().Str("kind", kind).Int("count", count).Msg("backed up kind")
	}

	if opts.SaveRunning {
		if err := o.backupDeviceConfigs(ctx, c, dest); err != nil {
			errs = append(errs, fmt.Errorf("save running configs: %w", err))
		}
	}

	return result, joinErrors(errs)
}

// deviceSummary is one row of the controller's device inventory listing,
// carrying just enough identity to drive the attachment and
// running-config capture steps.
type deviceSummary struct {
	UUID     string `json:"uuid"`
	HostName string `json:"host-name"`
}

const (
	deviceInventoryPath    = "/device"
	deviceConfigPathFmt    = "/device/config/%s?type=CFG"
	attachedDevicesPathFmt = "/template/device/config/attached/%s"
	attachmentValuesPath   = "/template/device/config/input"
)

// backupDeviceConfigs captures every inventory device's running
// configuration, fanned out the same way fetchBodies fans out per-item
// GETs.
func (o *Orchestrator) backupDeviceConfigs(ctx context.Context, c client, dest store.Store) error {
	raw, err := c.GetJSON(ctx, deviceInventoryPath)
	if err != nil {
		return fmt.Errorf("list device inventory: %w", err)
	}
	var devices []deviceSummary
	if err := json.Unmarshal(raw, &devices); err != nil {
		return fmt.Errorf("decode device inventory: %w", err)
	}

	var mu sync.Mutex
	var errs []error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backupFanOut)

	for _, dev := range devices {
		dev := dev
		if dev.UUID == "" || dev.HostName == "" {
			continue
		}
		g.Go(func() error {
			raw, err := c.GetJSON(gctx, fmt.Sprintf(deviceConfigPathFmt, dev.UUID))
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("get running config for %s: %w", dev.HostName, err))
				mu.Unlock()
				return nil
			}
			var decoded struct {
				Config string `json:"config"`
			}
			if err := json.Unmarshal(raw, &decoded); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("decode running config for %s: %w", dev.HostName, err))
				mu.Unlock()
				return nil
			}
			if err := dest.WriteDeviceConfig(dev.HostName, []byte(decoded.Config)); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("write running config for %s: %w", dev.HostName, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// backupAttachments captures one template_device item's attached
// devices and the per-device template variable values bound to each,
// so Restore can later re-attach the same devices after pushing an
// updated template body.
func (o *Orchestrator) backupAttachments(ctx context.Context, c client, dest store.Store, templateID string) error {
	raw, err := c.GetJSON(ctx, fmt.Sprintf(attachedDevicesPathFmt, templateID))
	if err != nil {
		return fmt.Errorf("list attached devices: %w", err)
	}
	var attached []deviceSummary
	if err := json.Unmarshal(raw, &attached); err != nil {
		return fmt.Errorf("decode attached devices: %w", err)
	}
	if len(attached) == 0 {
		return nil
	}

	deviceIDs := make([]string, 0, len(attached))
	for _, d := range attached {
		deviceIDs = append(deviceIDs, d.UUID)
	}
	payload, err := json.Marshal(map[string]any{
		"templateId": templateID,
		"deviceIds":  deviceIDs,
	})
	if err != nil {
		return err
	}
	resp, err := c.PostJSON(ctx, attachmentValuesPath, payload)
	if err != nil {
		return fmt.Errorf("fetch attachment values: %w", err)
	}
	var rows []struct {
		DeviceID   string            `json:"deviceId"`
		Properties map[string]string `json:"properties"`
	}
	if err := json.Unmarshal(resp, &rows); err != nil {
		return fmt.Errorf("decode attachment values: %w", err)
	}

	byID := make(map[string]string, len(attached))
	for _, d := range attached {
		byID[d.UUID] = d.HostName
	}
	attachments := make([]types.Attachment, 0, len(rows))
	for _, row := range rows {
		attachments = append(attachments, types.Attachment{
			DeviceTemplateID: templateID,
			DeviceID:         row.DeviceID,
			DeviceName:       byID[row.DeviceID],
			Values:           row.Properties,
		})
	}
	return dest.WriteAttachment(templateID, attachments)
}

// fetchBodies fans out one GET per selected summary, bounded to
// backupFanOut concurrent requests, returning each item's full body
// keyed by ID. A kind with no per-item Get endpoint (e.g.
// certificate.wan_edge) has its list response's own entries used as the
// full body, matching the pre-fan-out behavior for such kinds.
func (o *Orchestrator) fetchBodies(ctx context.Context, c client, kind, getPath string, selected []backupSummary, summaryBodies []json.RawMessage) (map[string]json.RawMessage, []error) {
	bodies := make(map[string]json.RawMessage, len(selected))

	if getPath == "" {
		byID := make(map[string]json.RawMessage, len(summaryBodies))
		for _, body := range summaryBodies {
			id, _, _, err := o.catalog.ExtractIdentity(kind, body)
			if err == nil {
				byID[id] = body
			}
		}
		for _, s := range selected {
			if body, ok := byID[s.id]; ok {
				bodies[s.id] = body
			}
		}
		return bodies, nil
	}

	var mu sync.Mutex
	var errs []error
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(backupFanOut)

	for _, s := range selected {
		s := s
		g.Go(func() error {
			body, err := c.GetJSON(gctx, fmt.Sprintf(getPath, s.id))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("get %s/%s: %w", kind, s.name, err))
				return nil // one item's fetch failure never aborts the others
			}
			bodies[s.id] = body
			return nil
		})
	}
	_ = g.Wait()

	return bodies, errs
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	return types.WrapError(types.ErrInvalidBackup, errors.Join(errs...), "%d error(s) during backup", len(errs))
}
