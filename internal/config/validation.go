// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"strings"

	"github.com/ManuGH/vastplay/internal/validate"
)

// Validate validates an AppConfig using the centralized validation package
func Validate(cfg AppConfig) error {
	v := validate.New()

	v.OneOf("LogLevel", strings.ToLower(cfg.LogLevel),
		[]string{"trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled"})

	v.NotEmpty("API.ListenAddr", cfg.API.ListenAddr)
	v.NonNegative("API.RateLimitRPM", cfg.API.RateLimitRPM)

	v.PositiveDuration("Ads.Timeout", cfg.Ads.Timeout)
	v.OptionalDuration("Ads.PrerollTimeout", cfg.Ads.PrerollTimeout)
	v.OptionalDuration("Ads.PostrollTimeout", cfg.Ads.PostrollTimeout)
	v.Range("Ads.WrapperLimit", cfg.Ads.WrapperLimit, 1, 20)

	v.PositiveDuration("VAST.RequestTimeout", cfg.VAST.RequestTimeout)
	if len(cfg.VAST.MediaTypes) == 0 {
		v.AddError("VAST.MediaTypes", "at least one media type is required", cfg.VAST.MediaTypes)
	}
	if cfg.VAST.DocumentCacheTTL < 0 {
		v.AddError("VAST.DocumentCacheTTL", "cannot be negative", cfg.VAST.DocumentCacheTTL)
	}

	v.PositiveDuration("Tracking.Timeout", cfg.Tracking.Timeout)
	if cfg.Tracking.RatePerSecond <= 0 {
		v.AddError("Tracking.RatePerSecond", "must be positive", cfg.Tracking.RatePerSecond)
	}
	v.Positive("Tracking.Burst", cfg.Tracking.Burst)
	v.Range("Tracking.Concurrency", cfg.Tracking.Concurrency, 1, 256)

	v.Positive("Breaker.Threshold", cfg.Breaker.Threshold)
	v.PositiveDuration("Breaker.ResetTimeout", cfg.Breaker.ResetTimeout)

	v.OneOf("Cache.Backend", cfg.Cache.Backend, []string{"memory", "redis"})
	if cfg.Cache.Backend == "redis" {
		v.NotEmpty("Cache.RedisAddr", cfg.Cache.RedisAddr)
	}
	v.NonNegative("Cache.RedisDB", cfg.Cache.RedisDB)

	if cfg.Telemetry.Enabled {
		v.OneOf("Telemetry.Exporter", cfg.Telemetry.Exporter, []string{"grpc", "http"})
		v.NotEmpty("Telemetry.Endpoint", cfg.Telemetry.Endpoint)
		v.FloatRange("Telemetry.SamplingRate", cfg.Telemetry.SamplingRate, 0, 1)
	}

	return v.Err()
}
