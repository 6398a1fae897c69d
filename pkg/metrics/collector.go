package metrics

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// controllerClient is the minimal read access Collector needs against a
// live controller session; *restclient.Client satisfies it. Declared
// locally, rather than imported from pkg/restclient, to keep pkg/metrics
// free of a dependency on the engine packages it observes.
type controllerClient interface {
	GetJSON(ctx context.Context, path string) (json.RawMessage, error)
}

// Collector periodically polls a controller session and the most recent
// backup workdir, updating health and size gauges for the long-running
// "serve-metrics" mode a scheduled/cron invocation runs behind a
// Prometheus scraper between CLI-driven task runs.
type Collector struct {
	client  controllerClient
	workdir string
	stopCh  chan struct{}
}

// NewCollector creates a new metrics collector polling client and
// reporting the on-disk size of workdir (empty to skip workdir polling).
func NewCollector(client controllerClient, workdir string) *Collector {
	return &Collector{
		client:  client,
		workdir: workdir,
		stopCh:  make(chan struct{}),
	}
}

// Start begins collecting metrics.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectControllerHealth()
	c.collectWorkdirSize()
}

func (c *Collector) collectControllerHealth() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := c.client.GetJSON(ctx, "/system/device/vbond"); err != nil {
		UpdateComponent("controller-session", false, err.Error())
		return
	}
	UpdateComponent("controller-session", true, "")
}

func (c *Collector) collectWorkdirSize() {
	if c.workdir == "" {
		return
	}
	size, err := dirSize(c.workdir)
	if err != nil {
		UpdateComponent("store", false, err.Error())
		return
	}
	UpdateComponent("store", true, "")
	BackupWorkdirBytes.Set(float64(size))
}

func dirSize(root string) (int64, error) {
	var total int64
	err := filepath.Walk(root, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			total += info.Size()
		}
		return nil
	})
	return total, err
}
