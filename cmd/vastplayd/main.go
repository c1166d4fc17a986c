// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Command vastplayd serves the vastplay control API.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vastplay/internal/config"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/version"
)

const serviceName = "vastplayd"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	root := &cobra.Command{
		Use:           serviceName,
		Short:         "VAST ad playback control daemon",
		Long:          "vastplayd resolves VAST ad tags and drives ad breaks for remote players over a control API.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			// Safe defaults until the config is loaded.
			xglog.Configure(xglog.Config{
				Level:   "info",
				Service: serviceName,
				Version: version.Version,
			})
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file (YAML); defaults to $"+config.EnvPrefix+"CONFIG")

	path := func() string {
		if p := strings.TrimSpace(configPath); p != "" {
			return p
		}
		return strings.TrimSpace(os.Getenv(config.EnvPrefix + "CONFIG"))
	}
	root.AddCommand(
		newServeCmd(path),
		newResolveCmd(path),
		newConfigCmd(path),
		newHealthcheckCmd(),
	)
	return root
}

// loadConfig loads and validates the configuration at path (empty: env
// and defaults only) and applies its logging settings.
func loadConfig(path string) (*config.Loader, config.AppConfig, error) {
	loader := config.NewLoader(path, version.Version)
	cfg, err := loader.Load()
	if err != nil {
		return nil, cfg, err
	}
	xglog.Reconfigure(logConfig(cfg))
	return loader, cfg, nil
}

func logConfig(cfg config.AppConfig) xglog.Config {
	service := cfg.LogService
	if service == "" {
		service = serviceName
	}
	return xglog.Config{
		Level:   cfg.LogLevel,
		Service: service,
		Version: cfg.Version,
	}
}
