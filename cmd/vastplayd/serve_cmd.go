// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/vastplay/internal/api"
	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/health"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/telemetry"
)

const (
	shutdownTimeout   = 15 * time.Second
	janitorInterval   = time.Minute
	sessionIdleExpiry = 30 * time.Minute
)

func newServeCmd(configPath func() string) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API",
		Long:  "Serve the session API and websocket player bus until SIGINT or SIGTERM.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			path := configPath()
			loader, cfg, err := loadConfig(path)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if listen != "" {
				cfg.API.ListenAddr = listen
			}
			ln, err := net.Listen("tcp", cfg.API.ListenAddr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", cfg.API.ListenAddr, err)
			}
			return serve(ctx, ln, config.NewHolder(cfg, loader, path))
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "override api.listenAddr")
	return cmd
}

// serve runs the daemon on ln until ctx ends, then shuts down gracefully.
func serve(ctx context.Context, ln net.Listener, holder *config.Holder) error {
	logger := xglog.WithComponent("daemon")
	cfg := holder.Get()

	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("start telemetry: %w", err)
	}

	ads, err := newAdStack(cfg)
	if err != nil {
		_ = ln.Close()
		_ = provider.Shutdown(context.Background())
		return err
	}

	if err := health.PerformStartupChecks(ctx, cfg, ads.checkers...); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "startup.check_failed").Msg("startup checks failed")
		_ = ln.Close()
		_ = ads.Close(context.Background())
		_ = provider.Shutdown(context.Background())
		return err
	}

	hm := health.NewManager(cfg.Version)
	for _, c := range ads.checkers {
		hm.RegisterChecker(c)
	}
	apiServer := api.New(api.Deps{
		Config:   holder,
		Registry: session.NewRegistry(nil),
		Resolver: ads.resolver,
		Tracker:  ads.tracker,
		Health:   hm,
	})

	if err := holder.StartWatcher(ctx); err != nil {
		logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_failed").Msg("config hot reload disabled")
	}
	reloads := make(chan config.AppConfig, 1)
	holder.RegisterListener(reloads)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case next := <-reloads:
				xglog.Reconfigure(logConfig(next))
			}
		}
	}()
	go apiServer.RunJanitor(ctx, janitorInterval, sessionIdleExpiry)

	srv := &http.Server{
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	logger.Info().
		Str(xglog.FieldEvent, "startup").
		Str("addr", ln.Addr().String()).
		Str("version", cfg.Version).
		Bool("telemetry", cfg.Telemetry.Enabled).
		Msg("vastplayd listening")

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown").Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Sessions first: this closes the hijacked bus connections that
	// http.Server.Shutdown does not track.
	apiServer.Close()
	var errs []error
	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		errs = append(errs, fmt.Errorf("serve: %w", serveErr))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
	}
	holder.Stop()
	if err := ads.Close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := provider.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutdown telemetry: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "shutdown.failed").Msg("shutdown incomplete")
		return err
	}
	logger.Info().Str(xglog.FieldEvent, "shutdown.complete").Msg("bye")
	return nil
}
