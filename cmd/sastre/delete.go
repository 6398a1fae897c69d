package main

import (
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete items from a live controller",
	RunE:  runDelete,
}

func init() {
	deleteCmd.Flags().StringSlice("tags", nil, "Tags or kinds to delete (default: all)")
	deleteCmd.Flags().String("include", "", "Only delete item names matching this regex")
	deleteCmd.Flags().String("exclude", "", "Skip item names matching this regex")
	deleteCmd.Flags().String("workdir", "", "Directory (or prior backup) naming the items to delete")
	deleteCmd.Flags().Bool("include-factory", false, "Also delete factory-default items")
	deleteCmd.Flags().Bool("dry-run", false, "Compute and print the plan without deleting anything")
	deleteCmd.Flags().Bool("detach", false, "Detach device templates from devices and deactivate the active vSmart policy before deleting")
	deleteCmd.Flags().String("active-vsmart-policy", "", "Backup-side id of the currently active vSmart policy")
	deleteCmd.MarkFlagRequired("workdir")
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tags, _ := cmd.Flags().GetStringSlice("tags")
	include, _ := cmd.Flags().GetString("include")
	exclude, _ := cmd.Flags().GetString("exclude")
	workdir, _ := cmd.Flags().GetString("workdir")
	includeFactory, _ := cmd.Flags().GetBool("include-factory")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	detach, _ := cmd.Flags().GetBool("detach")
	activePolicyID, _ := cmd.Flags().GetString("active-vsmart-policy")

	c, cleanup, err := dial(ctx, cmd, "")
	if err != nil {
		return err
	}
	defer cleanup()

	cat := loadCatalog(ctx, c)
	kinds, err := resolveTags(cat, tags)
	if err != nil {
		return err
	}
	filter, err := task.CompileNameFilter(include, exclude)
	if err != nil {
		return err
	}

	src, err := store.Open(workdir, false)
	if err != nil {
		return err
	}
	defer src.Close()

	o := task.New(cat)
	plan, deleteErr := o.Delete(ctx, c, src, task.DeleteOptions{
		Kinds:                kinds,
		NameFilter:           filter,
		IncludeFactory:       includeFactory,
		DryRun:               dryRun,
		Detach:               detach,
		ActiveVSmartPolicyID: activePolicyID,
		ActionClient:         c,
	})
	printPlan(plan)
	return deleteErr
}
