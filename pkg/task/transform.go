package task

import (
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/google/uuid"
)

// TransformOptions controls one offline Transform run: no controller is
// involved, only a rewrite of names and internal references within a
// backup, producing a second backup on disk.
type TransformOptions struct {
	Kinds  []string
	Rename nameTransform

	// Copy, when set, duplicates every renamed item under a fresh id
	// instead of renaming it in place; the original item is carried
	// through to dst unchanged alongside its copy.
	Copy bool

	// Redirect, meaningful only with Copy, points every other item's
	// reference to a copied item at the new copy rather than leaving it
	// pointed at the surviving original.
	Redirect bool
}

// TransformResult reports how many items of each kind were rewritten.
type TransformResult struct {
	ItemsByKind map[string]int
}

// Transform rewrites every requested kind's items from src into dst,
// renaming item names via opts.Rename and rewriting embedded references
// to match, without contacting a controller. In rename mode item IDs are
// carried through unchanged (there is no controller to assign new
// ones). In opts.Copy mode, a renamed item is instead duplicated under a
// fresh id: the original survives untouched in dst alongside the new
// copy, and opts.Redirect decides whether other items' references to the
// original follow it to the copy or stay put. Either way Transform's
// output is restorable with its reference graph intact.
func (o *Orchestrator) Transform(src store.Store, dst store.Store, opts TransformOptions) (TransformResult, error) {
	defer o.timeOperation("transform")()

	rename := opts.Rename
	if rename == nil {
		rename = func(name string) string { return name }
	}

	result := TransformResult{ItemsByKind: make(map[string]int)}
	nameByOldKey := newIDMapping() // (kind, old id) -> id that references to the item resolve to
	copyIDs := make(map[catalogKey]string)

	// First pass: compute every item's new name (and, in Copy mode, its
	// copy's fresh id) so the rewrite pass can resolve an old ID to its
	// eventual identity regardless of processing order across kinds.
	kindItems := make(map[string][]*types.Item)
	for _, kind := range opts.Kinds {
		entries, err := src.ReadIndex(kind)
		if err != nil {
			return result, fmt.Errorf("read index for %s: %w", kind, err)
		}
		for _, entry := range entries {
			if entry.Omitted {
				continue
			}
			item, err := src.ReadItem(kind, entry.ID, entry.Name)
			if err != nil {
				return result, fmt.Errorf("read %s/%s: %w", kind, entry.Name, err)
			}
			item.FactoryDefault = entry.FactoryDefault
			kindItems[kind] = append(kindItems[kind], item)

			if opts.Copy && rename(item.Name) != item.Name {
				newID := uuid.NewString()
				copyIDs[catalogKey{kind: kind, id: item.ID}] = newID
				if opts.Redirect {
					nameByOldKey.set(kind, item.ID, newID)
					continue
				}
			}
			nameByOldKey.set(kind, item.ID, item.ID)
		}
	}

	for _, kind := range opts.Kinds {
		items := kindItems[kind]
		d, _ := o.catalog.Get(kind)
		var entries []types.IndexEntry
		for _, item := range items {
			newName := rename(item.Name)
			body, _, err := o.graph.Rewrite(item, nameByOldKey.resolver())
			if err != nil {
				return result, fmt.Errorf("rewrite %s/%s: %w", kind, item.Name, err)
			}

			newID, copied := copyIDs[catalogKey{kind: kind, id: item.ID}]
			if !copied {
				body = renameInBody(body, string(d.NamePath), newName)
				newItem := &types.Item{Kind: kind, ID: item.ID, Name: newName, FactoryDefault: item.FactoryDefault, Body: body}
				if err := dst.WriteItem(kind, newItem); err != nil {
					return result, fmt.Errorf("write %s/%s: %w", kind, newName, err)
				}
				entries = append(entries, types.IndexEntry{ID: item.ID, Name: newName, FactoryDefault: item.FactoryDefault})
				continue
			}

			// Copy mode: the original survives under its own name and id,
			// carrying whatever reference rewrites this pass made (it may
			// itself reference something else that got renamed or copied).
			originalBody := renameInBody(body, string(d.NamePath), item.Name)
			originalItem := &types.Item{Kind: kind, ID: item.ID, Name: item.Name, FactoryDefault: item.FactoryDefault, Body: originalBody}
			if err := dst.WriteItem(kind, originalItem); err != nil {
				return result, fmt.Errorf("write %s/%s: %w", kind, item.Name, err)
			}
			entries = append(entries, types.IndexEntry{ID: item.ID, Name: item.Name, FactoryDefault: item.FactoryDefault})

			copyBody := renameInBody(body, string(d.NamePath), newName)
			copyItem := &types.Item{Kind: kind, ID: newID, Name: newName, FactoryDefault: item.FactoryDefault, Body: copyBody}
			if err := dst.WriteItem(kind, copyItem); err != nil {
				return result, fmt.Errorf("write %s/%s: %w", kind, newName, err)
			}
			entries = append(entries, types.IndexEntry{ID: newID, Name: newName, FactoryDefault: item.FactoryDefault})
		}
		if err := dst.WriteIndex(kind, entries); err != nil {
			return result, fmt.Errorf("write index for %s: %w", kind, err)
		}
		result.ItemsByKind[kind] = len(entries)
	}

	return result, nil
}
