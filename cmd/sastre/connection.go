package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cisco-sastre/sastre-engine/pkg/catalog"
	"github.com/cisco-sastre/sastre-engine/pkg/restclient"
	"github.com/cisco-sastre/sastre-engine/pkg/types"
	"github.com/spf13/cobra"
)

// connectionFlags adds a prefixed group of controller connection flags.
// Only migrate calls it, once with "target-", for its second controller;
// the primary controller's flags are the root command's persistent flags.
func connectionFlags(cmd *cobra.Command, prefix string) {
	cmd.Flags().String(prefix+"address", "", "Controller address or hostname")
	cmd.Flags().Int(prefix+"port", 8443, "Controller HTTPS port")
	cmd.Flags().String(prefix+"user", "", "Controller username")
	cmd.Flags().String(prefix+"password", "", "Controller password")
	cmd.Flags().String(prefix+"tenant", "", "Tenant id (multi-tenant controllers only)")
}

// connectionConfig reads a connectionFlags group (or, when prefix is
// empty and the flag is only declared on the persistent flag set, the
// root command's flags) into a types.ConnectionConfig.
func connectionConfig(cmd *cobra.Command, prefix string) (types.ConnectionConfig, error) {
	flags := cmd.Flags()
	address, _ := flags.GetString(prefix + "address")
	port, _ := flags.GetInt(prefix + "port")
	user, _ := flags.GetString(prefix + "user")
	password, _ := flags.GetString(prefix + "password")
	tenant, _ := flags.GetString(prefix + "tenant")
	skipCertCheck, _ := flags.GetBool("insecure-skip-verify")

	if address == "" || user == "" {
		return types.ConnectionConfig{}, types.NewError(types.ErrInvalidArg, "%saddress and %suser are required", prefix, prefix)
	}

	return types.ConnectionConfig{
		Address:       address,
		Port:          port,
		User:          user,
		Password:      password,
		Tenant:        tenant,
		SkipCertCheck: skipCertCheck,
		Timeout:       300 * time.Second,
	}, nil
}

// dial establishes an authenticated session against the connection
// described by prefix's flags, returning a client plus a cleanup that
// logs the session out. The caller defer's cleanup immediately.
func dial(ctx context.Context, cmd *cobra.Command, prefix string) (*restclient.Client, func(), error) {
	cfg, err := connectionConfig(cmd, prefix)
	if err != nil {
		return nil, func() {}, err
	}
	c := restclient.New(cfg)
	if err := c.Login(ctx); err != nil {
		return nil, func() {}, fmt.Errorf("connect to %s: %w", cfg.Address, err)
	}
	return c, func() { c.Logout(ctx) }, nil
}

// loadCatalog builds the version-filtered catalog for the controller c
// is connected to, falling back to the unfiltered catalog if the
// version endpoint cannot be reached (a controller's /client/about
// reports the version but is not worth failing the whole command over).
func loadCatalog(ctx context.Context, c *restclient.Client) *catalog.Catalog {
	cat := catalog.New()
	raw, err := c.GetJSON(ctx, "/client/about")
	if err != nil {
		return cat
	}
	var about struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(raw, &about); err != nil || about.Version == "" {
		return cat
	}
	return cat.FilterByVersion(about.Version)
}

func resolveTags(cat *catalog.Catalog, tags []string) ([]string, error) {
	if len(tags) == 0 {
		tags = []string{catalog.TagAll}
	}
	return cat.ExpandTags(tags)
}
