package main

import (
	"fmt"

	"github.com/cisco-sastre/sastre-engine/pkg/nametemplate"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore items from a backup directory to a live controller",
	RunE:  runRestore,
}

var templateKinds = map[string]bool{"template_device": true}

func init() {
	restoreCmd.Flags().StringSlice("tags", nil, "Tags or kinds to restore (default: all)")
	restoreCmd.Flags().String("include", "", "Only restore item names matching this regex")
	restoreCmd.Flags().String("exclude", "", "Skip item names matching this regex")
	restoreCmd.Flags().String("workdir", "", "Backup source directory")
	restoreCmd.Flags().String("name-regex", "", "Rename template, e.g. '{name}-v2'")
	restoreCmd.Flags().Bool("dry-run", false, "Compute and print the plan without pushing anything")
	restoreCmd.Flags().Bool("update", false, "Push changes to items that already exist on the target (default: skip them)")
	restoreCmd.Flags().Bool("preflight", true, "Verify vBond is reachable before attaching device templates")
	restoreCmd.Flags().Bool("reattach", false, "Re-push configuration to devices attached to an updated template")
	restoreCmd.Flags().String("activate-vsmart-policy", "", "Backup-side id of the vSmart policy to activate once restored")
	restoreCmd.MarkFlagRequired("workdir")
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tags, _ := cmd.Flags().GetStringSlice("tags")
	include, _ := cmd.Flags().GetString("include")
	exclude, _ := cmd.Flags().GetString("exclude")
	workdir, _ := cmd.Flags().GetString("workdir")
	nameRegex, _ := cmd.Flags().GetString("name-regex")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	update, _ := cmd.Flags().GetBool("update")
	preflight, _ := cmd.Flags().GetBool("preflight")
	reattach, _ := cmd.Flags().GetBool("reattach")
	activatePolicyID, _ := cmd.Flags().GetString("activate-vsmart-policy")

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

	if preflight && !dryRun {
		if err := o.PreflightVBond(ctx, c); err != nil {
			return err
		}
	}

	live := task.NewControllerLiveIndex(ctx, c, cat)
	rename := nametemplate.New(nil, nameRegex).Apply

	result, restoreErr := o.Restore(ctx, c, live, src, task.RestoreOptions{
		Kinds:                  kinds,
		NameFilter:             filter,
		Rename:                 rename,
		DryRun:                 dryRun,
		Update:                 update,
		ActivateVSmartPolicyID: activatePolicyID,
		ActionClient:           c,
	})
	printPlan(result.Plan)

	if restoreErr != nil {
		return restoreErr
	}

	if reattach && !dryRun {
		reattachResult, err := o.ReattachUpdatedTemplates(ctx, c, src, result.Plan, templateKinds)
		if err != nil {
			return err
		}
		fmt.Printf("re-attached %d device(s), %d failed, %d timed out\n",
			len(reattachResult.Devices), reattachResult.Failed, reattachResult.TimedOut)
	}
	return nil
}

func printPlan(plan *task.Plan) {
	if plan == nil {
		return
	}
	for verb, count := range plan.CountByVerb() {
		fmt.Printf("%-10s %d\n", verb, count)
	}
}
