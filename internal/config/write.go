// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"fmt"

	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/google/renameio/v2"
	"gopkg.in/yaml.v3"
)

// DefaultFile renders the built-in defaults in file form.
func DefaultFile() FileConfig {
	return ToFile(Defaults())
}

// ToFile renders cfg in file form. Optional timeouts that are unset stay
// absent.
func ToFile(cfg AppConfig) FileConfig {
	rpm := cfg.API.RateLimitRPM
	debug := cfg.Ads.Debug
	stitched := cfg.Ads.StitchedAds
	cuePoints := cfg.Ads.LiveCuePoints
	autoplay := cfg.Ads.AllowAutoplay
	limit := cfg.Ads.WrapperLimit
	creds := cfg.VAST.WithCredentials
	rps := cfg.Tracking.RatePerSecond
	burst := cfg.Tracking.Burst
	conc := cfg.Tracking.Concurrency
	threshold := cfg.Breaker.Threshold
	db := cfg.Cache.RedisDB
	telemetry := cfg.Telemetry.Enabled
	sampling := cfg.Telemetry.SamplingRate

	out := FileConfig{
		LogLevel:   cfg.LogLevel,
		LogService: cfg.LogService,
		API: APIFileConfig{
			ListenAddr:     cfg.API.ListenAddr,
			RateLimitRPM:   &rpm,
			AllowedOrigins: cfg.API.AllowedOrigins,
		},
		Ads: AdsFileConfig{
			Timeout:       cfg.Ads.Timeout.String(),
			Debug:         &debug,
			StitchedAds:   &stitched,
			ContentIsLive: cfg.Ads.ContentIsLive,
			LiveCuePoints: &cuePoints,
			AllowAutoplay: &autoplay,
			WrapperLimit:  &limit,
		},
		VAST: VASTFileConfig{
			RequestTimeout:  cfg.VAST.RequestTimeout.String(),
			WithCredentials: &creds,
			UserAgent:       cfg.VAST.UserAgent,
			MediaTypes:      cfg.VAST.MediaTypes,
		},
		Tracking: TrackingFileConfig{
			Timeout:       cfg.Tracking.Timeout.String(),
			RatePerSecond: &rps,
			Burst:         &burst,
			Concurrency:   &conc,
		},
		Breaker: BreakerFileConfig{
			Threshold:    &threshold,
			ResetTimeout: cfg.Breaker.ResetTimeout.String(),
		},
		Cache: CacheFileConfig{
			Backend:       cfg.Cache.Backend,
			RedisAddr:     cfg.Cache.RedisAddr,
			RedisPassword: cfg.Cache.RedisPassword,
			RedisDB:       &db,
		},
		Telemetry: TelemetryFileConfig{
			Enabled:      &telemetry,
			Exporter:     cfg.Telemetry.Exporter,
			Endpoint:     cfg.Telemetry.Endpoint,
			SamplingRate: &sampling,
		},
	}
	if cfg.Ads.PrerollTimeout != nil {
		out.Ads.PrerollTimeout = cfg.Ads.PrerollTimeout.String()
	}
	if cfg.Ads.PostrollTimeout != nil {
		out.Ads.PostrollTimeout = cfg.Ads.PostrollTimeout.String()
	}
	if cfg.VAST.DocumentCacheTTL > 0 {
		out.VAST.DocumentCacheTTL = cfg.VAST.DocumentCacheTTL.String()
	}
	return out
}

// WriteFile atomically writes cfg as YAML to path.
func WriteFile(path string, cfg FileConfig) error {
	logger := xglog.WithComponent("config")

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	pendingFile, err := renameio.NewPendingFile(path, renameio.WithPermissions(0o600))
	if err != nil {
		return fmt.Errorf("create pending config file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending config file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return fmt.Errorf("write config data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace config file: %w", err)
	}

	logger.Info().Str("event", "config.written").Str("path", path).Msg("configuration file written")
	return nil
}
