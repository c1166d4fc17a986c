// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package config provides configuration management for vastplay.
package config

import "time"

// AppConfig is the resolved runtime configuration.
type AppConfig struct {
	Version    string
	LogLevel   string
	LogService string

	API       APIConfig
	Ads       AdsConfig
	VAST      VASTConfig
	Tracking  TrackingConfig
	Breaker   BreakerConfig
	Cache     CacheConfig
	Telemetry TelemetryConfig
}

// APIConfig configures the control API.
type APIConfig struct {
	ListenAddr     string
	RateLimitRPM   int
	AllowedOrigins []string
}

// AdsConfig holds the per-session ad-break settings. Sessions may override
// any of them at creation time.
type AdsConfig struct {
	// Timeout bounds the wait for an ad decision (ads ready) before content plays.
	Timeout time.Duration
	// PrerollTimeout bounds the wait for the linear preroll to start once ads
	// are ready. Nil means no extra bound.
	PrerollTimeout *time.Duration
	// PostrollTimeout bounds the wait for a postroll decision after content
	// ended. Nil falls back to Timeout.
	PostrollTimeout *time.Duration
	Debug           bool
	StitchedAds     bool
	// ContentIsLive forces the live decision. Nil derives it from the
	// reported content duration.
	ContentIsLive *bool
	LiveCuePoints bool
	AllowAutoplay bool
	WrapperLimit  int
}

// VASTConfig configures ad tag fetching.
type VASTConfig struct {
	RequestTimeout   time.Duration
	WithCredentials  bool
	UserAgent        string
	MediaTypes       []string
	DocumentCacheTTL time.Duration
}

// TrackingConfig bounds outgoing tracking pings.
type TrackingConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Concurrency   int
}

// BreakerConfig configures the per-host circuit breakers.
type BreakerConfig struct {
	Threshold    int
	ResetTimeout time.Duration
}

// CacheConfig selects the ad tag document cache backend.
type CacheConfig struct {
	Backend       string // memory | redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool
	Exporter     string // grpc | http
	Endpoint     string
	SamplingRate float64
}

// FileConfig is the on-disk YAML representation. Pointer fields distinguish
// "unset" from zero values so file layers never clobber defaults by accident.
type FileConfig struct {
	LogLevel   string `yaml:"logLevel,omitempty"`
	LogService string `yaml:"logService,omitempty"`

	API       APIFileConfig       `yaml:"api,omitempty"`
	Ads       AdsFileConfig       `yaml:"ads,omitempty"`
	VAST      VASTFileConfig      `yaml:"vast,omitempty"`
	Tracking  TrackingFileConfig  `yaml:"tracking,omitempty"`
	Breaker   BreakerFileConfig   `yaml:"breaker,omitempty"`
	Cache     CacheFileConfig     `yaml:"cache,omitempty"`
	Telemetry TelemetryFileConfig `yaml:"telemetry,omitempty"`
}

type APIFileConfig struct {
	ListenAddr     string   `yaml:"listenAddr,omitempty"`
	RateLimitRPM   *int     `yaml:"rateLimitRPM,omitempty"`
	AllowedOrigins []string `yaml:"allowedOrigins,omitempty"`
}

type AdsFileConfig struct {
	Timeout         string `yaml:"timeout,omitempty"`
	PrerollTimeout  string `yaml:"prerollTimeout,omitempty"`
	PostrollTimeout string `yaml:"postrollTimeout,omitempty"`
	Debug           *bool  `yaml:"debug,omitempty"`
	StitchedAds     *bool  `yaml:"stitchedAds,omitempty"`
	ContentIsLive   *bool  `yaml:"contentIsLive,omitempty"`
	LiveCuePoints   *bool  `yaml:"liveCuePoints,omitempty"`
	AllowAutoplay   *bool  `yaml:"allowAutoplay,omitempty"`
	WrapperLimit    *int   `yaml:"wrapperLimit,omitempty"`
}

type VASTFileConfig struct {
	RequestTimeout   string   `yaml:"requestTimeout,omitempty"`
	WithCredentials  *bool    `yaml:"withCredentials,omitempty"`
	UserAgent        string   `yaml:"userAgent,omitempty"`
	MediaTypes       []string `yaml:"mediaTypes,omitempty"`
	DocumentCacheTTL string   `yaml:"documentCacheTTL,omitempty"`
}

type TrackingFileConfig struct {
	Timeout       string   `yaml:"timeout,omitempty"`
	RatePerSecond *float64 `yaml:"ratePerSecond,omitempty"`
	Burst         *int     `yaml:"burst,omitempty"`
	Concurrency   *int     `yaml:"concurrency,omitempty"`
}

type BreakerFileConfig struct {
	Threshold    *int   `yaml:"threshold,omitempty"`
	ResetTimeout string `yaml:"resetTimeout,omitempty"`
}

type CacheFileConfig struct {
	Backend       string `yaml:"backend,omitempty"`
	RedisAddr     string `yaml:"redisAddr,omitempty"`
	RedisPassword string `yaml:"redisPassword,omitempty"`
	RedisDB       *int   `yaml:"redisDB,omitempty"`
}

type TelemetryFileConfig struct {
	Enabled      *bool    `yaml:"enabled,omitempty"`
	Exporter     string   `yaml:"exporter,omitempty"`
	Endpoint     string   `yaml:"endpoint,omitempty"`
	SamplingRate *float64 `yaml:"samplingRate,omitempty"`
}
