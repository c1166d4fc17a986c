// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vastplay/internal/api"
	"github.com/ManuGH/vastplay/internal/vast"
)

func newResolveCmd(configPath func() string) *cobra.Command {
	var (
		wrapperLimit int
		timeout      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "resolve <ad-tag-url>",
		Short: "Resolve an ad tag and print the result",
		Long: "Follow the wrapper chain of an ad tag the way a session would and print the " +
			"resolved ad as JSON. Error tracking URLs fire as they would in production.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cfg, err := loadConfig(configPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			ads, err := newAdStack(cfg)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = ads.Close(ctx)
			}()

			start := time.Now()
			resp, err := ads.resolver.Resolve(cmd.Context(), args[0], vast.Limits{
				WrapperLimit:   wrapperLimit,
				RequestTimeout: timeout,
			})
			if err != nil {
				return fmt.Errorf("resolve failed (code %d, %s): %w", vast.CodeOf(err), vast.KindOf(err), err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(api.NewResolveResponse(resp, time.Since(start)))
		},
	}
	cmd.Flags().IntVar(&wrapperLimit, "wrapper-limit", 0, "maximum chain length (0 uses the configured limit)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "per-fetch timeout (0 uses vast.requestTimeout)")
	return cmd
}
