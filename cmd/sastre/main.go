// Command sastre automates configuration backup, restore, delete,
// cross-version migration, and offline transformation of a Cisco SD-WAN
// controller's item catalog.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cisco-sastre/sastre-engine/pkg/action"
	"github.com/cisco-sastre/sastre-engine/pkg/log"
	"github.com/cisco-sastre/sastre-engine/pkg/metrics"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/task"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "sastre",
	Short: "Sastre - Cisco SD-WAN controller configuration automation",
	Long: `Sastre backs up, restores, deletes, migrates, and transforms the
configuration items (feature templates, device templates, policies,
policy lists) held by a Cisco SD-WAN (vManage) controller.`,
	Version: Version,
}

// operationID is a per-invocation correlation id, threaded into every
// log line this run emits via log.WithOperationID so a support bundle's
// log lines can be grouped back to one command.
var operationID = uuid.NewString()

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"sastre version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	rootCmd.PersistentFlags().String("address", "", "Controller address or hostname")
	rootCmd.PersistentFlags().Int("port", 8443, "Controller HTTPS port")
	rootCmd.PersistentFlags().String("user", "", "Controller username")
	rootCmd.PersistentFlags().String("password", "", "Controller password")
	rootCmd.PersistentFlags().String("tenant", "", "Tenant id (multi-tenant controllers only)")
	rootCmd.PersistentFlags().Bool("insecure-skip-verify", true, "Skip TLS certificate verification (controllers ship self-signed certs by default)")

	cobra.OnInitialize(initLogging, initRecorders)

	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(transformCmd)
	rootCmd.AddCommand(serveMetricsCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	logJSON, _ := rootCmd.PersistentFlags().GetBool("log-json")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: logJSON,
	})
	log.Logger = log.WithOperationID(operationID)
}

// initRecorders installs the Prometheus-backed recorders into the
// engine packages. pkg/action and pkg/task never import this package or
// Prometheus directly; they only see the Recorder interfaces.
func initRecorders() {
	action.DefaultRecorder = metrics.ActionRecorder{}
	task.DefaultRecorder = metrics.ItemRecorder{}
	task.DefaultDurationRecorder = metrics.TaskDurationRecorder{}
	restclient.DefaultRecorder = metrics.HTTPRecorder{}
}

// exitCode maps a returned error to a shell exit code: 1 for any error
// the engine itself raised (a *types.Error, whether a fatal
// connection/auth/argument failure or an item-level failure report
// joined from a partial run), 2 for a usage error cobra raised before a
// subcommand's RunE ever ran (missing required flag, unknown flag).
func exitCode(err error) int {
	var sastreErr *types.Error
	if errors.As(err, &sastreErr) {
		return 1
	}
	return 2
}
