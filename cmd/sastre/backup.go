package main

import (
	"fmt"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/store"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back up items from a live controller to disk",
	RunE:  runBackup,
}

func init() {
	backupCmd.Flags().StringSlice("tags", nil, "Tags or kinds to back up (default: all)")
	backupCmd.Flags().String("include", "", "Only back up item names matching this regex")
	backupCmd.Flags().String("exclude", "", "Skip item names matching this regex")
	backupCmd.Flags().String("workdir", "", "Backup destination directory")
	backupCmd.Flags().Bool("fresh", true, "Rotate out any existing backup at workdir first")
	backupCmd.Flags().String("zip", "", "Also pack the finished backup into this zip file")
	backupCmd.Flags().Bool("save-running", false, "Also save each device's running configuration (only with the 'all' tag)")
	backupCmd.MarkFlagRequired("workdir")
}

func runBackup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	tags, _ := cmd.Flags().GetStringSlice("tags")
	include, _ := cmd.Flags().GetString("include")
	exclude, _ := cmd.Flags().GetString("exclude")
	workdir, _ := cmd.Flags().GetString("workdir")
	fresh, _ := cmd.Flags().GetBool("fresh")
	zipPath, _ := cmd.Flags().GetString("zip")
	saveRunning, _ := cmd.Flags().GetBool("save-running")

	usedAll := len(tags) == 0
	for _, t := range tags {
		if t == catalog.TagAll {
			usedAll = true
		}
	}

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

	dest, err := store.Open(workdir, fresh)
	if err != nil {
		return err
	}

	info := store.ServerInfo{Address: hostFlag(cmd, ""), TakenAt: time.Now().UTC().Format(time.RFC3339)}
	if err := dest.WriteServerInfo(info); err != nil {
		dest.Close()
		return err
	}

	o := task.New(cat)
	result, backupErr := o.Backup(ctx, c, dest, task.BackupOptions{
		Kinds:       kinds,
		NameFilter:  filter,
		SaveRunning: usedAll && saveRunning,
	})
	for kind, count := range result.ItemsByKind {
		fmt.Printf("%-30s %d\n", kind, count)
	}
	if err := dest.Close(); err != nil && backupErr == nil {
		backupErr = err
	}
	if backupErr != nil {
		return backupErr
	}

	if zipPath != "" {
		if err := store.PackZip(workdir, zipPath); err != nil {
			return err
		}
		fmt.Printf("archived backup to %s\n", zipPath)
	}
	return nil
}

func hostFlag(cmd *cobra.Command, prefix string) string {
	v, _ := cmd.Flags().GetString(prefix + "address")
	return v
}
