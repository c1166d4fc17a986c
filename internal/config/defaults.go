// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import "time"

// Default values for the ad-break settings.
const (
	DefaultAdTimeout    = 5 * time.Second
	DefaultWrapperLimit = 5
	DefaultListenAddr   = ":8088"
)

// DefaultMediaTypes lists the creative MIME types playable by default.
// Flash is deliberately absent; operators opt in through vast.mediaTypes.
var DefaultMediaTypes = []string{
	"video/mp4",
	"video/webm",
	"video/ogg",
	"video/3gpp",
	"application/x-mpegurl",
	"application/vnd.apple.mpegurl",
	"application/dash+xml",
	"application/javascript",
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		LogLevel:   "info",
		LogService: "vastplay",
		API: APIConfig{
			ListenAddr:   DefaultListenAddr,
			RateLimitRPM: 600,
		},
		Ads: AdsConfig{
			Timeout:       DefaultAdTimeout,
			LiveCuePoints: true,
			WrapperLimit:  DefaultWrapperLimit,
		},
		VAST: VASTConfig{
			RequestTimeout: DefaultAdTimeout,
			UserAgent:      "vastplay",
			MediaTypes:     append([]string(nil), DefaultMediaTypes...),
		},
		Tracking: TrackingConfig{
			Timeout:       5 * time.Second,
			RatePerSecond: 50,
			Burst:         20,
			Concurrency:   8,
		},
		Breaker: BreakerConfig{
			Threshold:    5,
			ResetTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Backend: "memory",
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			Endpoint:     "localhost:4317",
			SamplingRate: 1.0,
		},
	}
}
