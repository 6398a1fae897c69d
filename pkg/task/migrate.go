package task

import (
	"context"
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/store"
)

// MigrateOptions controls one Migrate run: a backup followed immediately
// by a restore into a second controller, with an in-memory store as the
// handoff so migrate never touches disk unless the caller also wants a
// copy of the intermediate backup.
type MigrateOptions struct {
	Kinds      []string
	NameFilter NameFilterFunc
	Rename     nameTransform
	DryRun     bool

	// Recipe, when set, drives the 18.4/19.2/19.3 -> 20.1 per-kind
	// field translation and supplies the rename template when Rename
	// is nil.
	Recipe *Recipe
}

// MigrateResult reports both halves of the migration.
type MigrateResult struct {
	Backup  BackupResult
	Restore RestoreResult
}

// Migrate reads every requested kind from src, then pushes it to dst.
// Unlike Backup+Restore run separately, Migrate keeps the intermediate
// item set in memory (via an in-memory store.Store) so no backup
// directory is left behind unless the caller also passes one as
// intermediate.
func (o *Orchestrator) Migrate(ctx context.Context, src, dst client, live liveIndex, intermediate store.Store, opts MigrateOptions) (MigrateResult, error) {
	defer o.timeOperation("migrate")()

	var result MigrateResult

	backupResult, err := o.Backup(ctx, src, intermediate, BackupOptions{Kinds: opts.Kinds, NameFilter: opts.NameFilter})
	result.Backup = backupResult
	if err != nil {
		return result, fmt.Errorf("migrate: read source: %w", err)
	}

	rename := opts.Rename
	if opts.Recipe != nil {
		if err := o.applyFieldRecipes(intermediate, opts.Kinds, opts.Recipe); err != nil {
			return result, fmt.Errorf("migrate: apply recipe: %w", err)
		}
		if rename == nil {
			rename = opts.Recipe.Transformer().Apply
		}
	}

	restoreResult, err := o.Restore(ctx, dst, live, intermediate, RestoreOptions{
		Kinds:      opts.Kinds,
		NameFilter: opts.NameFilter,
		Rename:     rename,
		DryRun:     opts.DryRun,
	})
	result.Restore = restoreResult
	if err != nil {
		return result, fmt.Errorf("migrate: write destination: %w", err)
	}
	return result, nil
}

// applyFieldRecipes rewrites every item of each requested kind in place
// within store, translating fields per recipe before Restore reads them
// back out for the destination controller's version.
func (o *Orchestrator) applyFieldRecipes(st store.Store, kinds []string, recipe *Recipe) error {
	for _, kind := range kinds {
		entries, err := st.ReadIndex(kind)
		if err != nil {
			return fmt.Errorf("read index for %s: %w", kind, err)
		}
		for _, entry := range entries {
			if entry.Omitted {
				continue
			}
			item, err := st.ReadItem(kind, entry.ID, entry.Name)
			if err != nil {
				return fmt.Errorf("read %s/%s: %w", kind, entry.Name, err)
			}
			newBody, err := recipe.ApplyFieldRecipes(kind, item.Body)
			if err != nil {
				return fmt.Errorf("%s/%s: %w", kind, entry.Name, err)
			}
			item.Body = newBody
			if err := st.WriteItem(kind, item); err != nil {
				return fmt.Errorf("write %s/%s: %w", kind, entry.Name, err)
			}
		}
	}
	return nil
}
