package main

import (
	"fmt"
	"os"

	"github.com/cisco-sastre/sastre-engine/pkg/nametemplate"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy items from a source controller to a target controller",
	Long: `Migrate reads every requested item from the source controller and
pushes it to the target, holding the intermediate snapshot in memory. A
recipe applies the source-to-target version's per-kind field translation
and, when no --name-regex is given, supplies the rename template.`,
	RunE: runMigrate,
}

func init() {
	connectionFlags(migrateCmd, "target-")

	migrateCmd.Flags().StringSlice("tags", nil, "Tags or kinds to migrate (default: all)")
	migrateCmd.Flags().String("include", "", "Only migrate item names matching this regex")
	migrateCmd.Flags().String("exclude", "", "Skip item names matching this regex")
	migrateCmd.Flags().String("name-regex", "", "Rename template, e.g. '{name}-v2'")
	migrateCmd.Flags().String("recipe", "", "Path to a recipe YAML file")
	migrateCmd.Flags().Bool("dry-run", false, "Compute and print the restore plan without pushing anything")
	migrateCmd.Flags().String("intermediate-workdir", "", "Also write the intermediate snapshot to this directory")

	migrateCmd.MarkFlagRequired("target-address")
	migrateCmd.MarkFlagRequired("target-user")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tags, _ := cmd.Flags().GetStringSlice("tags")
	include, _ := cmd.Flags().GetString("include")
	exclude, _ := cmd.Flags().GetString("exclude")
	nameRegex, _ := cmd.Flags().GetString("name-regex")
	recipePath, _ := cmd.Flags().GetString("recipe")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	intermediateWorkdir, _ := cmd.Flags().GetString("intermediate-workdir")

	src, srcCleanup, err := dial(ctx, cmd, "")
	if err != nil {
		return err
	}
	defer srcCleanup()

	dst, dstCleanup, err := dial(ctx, cmd, "target-")
	if err != nil {
		return err
	}
	defer dstCleanup()

	cat := loadCatalog(ctx, src)
	kinds, err := resolveTags(cat, tags)
	if err != nil {
		return err
	}
	filter, err := task.CompileNameFilter(include, exclude)
	if err != nil {
		return err
	}

	var recipe *task.Recipe
	if recipePath != "" {
		raw, err := os.ReadFile(recipePath)
		if err != nil {
			return err
		}
		recipe, err = task.LoadRecipe(raw, cat)
		if err != nil {
			return err
		}
	}

	var rename func(string) string
	if nameRegex != "" {
		rename = nametemplate.New(nil, nameRegex).Apply
	}

	intermediate := store.NewMemoryStore()
	live := task.NewControllerLiveIndex(ctx, dst, cat)

	o := task.New(cat)
	result, migrateErr := o.Migrate(ctx, src, dst, live, intermediate, task.MigrateOptions{
		Kinds:      kinds,
		NameFilter: filter,
		Rename:     rename,
		DryRun:     dryRun,
		Recipe:     recipe,
	})

	fmt.Println("source:")
	for kind, count := range result.Backup.ItemsByKind {
		fmt.Printf("  %-30s %d\n", kind, count)
	}
	fmt.Println("target:")
	printPlan(result.Restore.Plan)

	if intermediateWorkdir != "" {
		if err := copyMemoryStoreToDisk(intermediate, intermediateWorkdir); err != nil {
			fmt.Printf("warning: failed to persist intermediate snapshot: %v\n", err)
		}
	}

	return migrateErr
}

// copyMemoryStoreToDisk drains the in-memory handoff store used by
// Migrate into a directory-backed one, for a caller who wants a durable
// copy of what was actually pushed.
func copyMemoryStoreToDisk(src *store.MemoryStore, dir string) error {
	dst, err := store.Open(dir, true)
	if err != nil {
		return err
	}
	defer dst.Close()

	kinds, err := src.Kinds()
	if err != nil {
		return err
	}
	for _, kind := range kinds {
		entries, err := src.ReadIndex(kind)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.Omitted {
				continue
			}
			item, err := src.ReadItem(kind, entry.ID, entry.Name)
			if err != nil {
				return err
			}
			if err := dst.WriteItem(kind, item); err != nil {
				return err
			}
		}
		if err := dst.WriteIndex(kind, entries); err != nil {
			return err
		}
	}
	return nil
}
