package main

import (
	"fmt"
	"net/http"

	"github.com/cisco-sastre/sastre-engine/pkg/metrics"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/spf13/cobra"
)

var serveMetricsCmd = &cobra.Command{
	Use:   "serve-metrics",
	Short: "Serve Prometheus metrics and health endpoints for a scheduled/cron invocation's sidecar scraper",
	Long: `serve-metrics starts a long-running HTTP listener exposing
/metrics, /health, /ready, and /live, and blocks. It does not itself run
any backup/restore/delete/migrate/transform operation; pair it with a
sidecar that scrapes this process while other sastre invocations run
against the same metrics registry within the same container.`,
	RunE: runServeMetrics,
}

func init() {
	serveMetricsCmd.Flags().String("listen", "127.0.0.1:9090", "Address to serve /metrics and health endpoints on")
	serveMetricsCmd.Flags().String("workdir", "", "Backup directory to report sastre_backup_workdir_bytes for (empty to skip)")
}

func runServeMetrics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	listen, _ := cmd.Flags().GetString("listen")
	workdir, _ := cmd.Flags().GetString("workdir")

	metrics.SetVersion(Version)
	metrics.RegisterComponent("controller-session", true, "not yet dialed")
	metrics.RegisterComponent("store", true, "ready")

	var c *restclient.Client
	if address := hostFlag(cmd, ""); address != "" {
		var cleanup func()
		var err error
		c, cleanup, err = dial(ctx, cmd, "")
		if err != nil {
			metrics.RegisterComponent("controller-session", false, err.Error())
		} else {
			defer cleanup()
		}
	}
	if c != nil {
		collector := metrics.NewCollector(c, workdir)
		collector.Start()
		defer collector.Stop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())

	fmt.Printf("serving metrics and health endpoints on http://%s\n", listen)
	return http.ListenAndServe(listen, mux)
}
