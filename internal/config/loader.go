// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VASTPLAY_"

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{} // Mechanical tracking of consumed keys
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) key(name string) string {
	k := EnvPrefix + name
	l.ConsumedEnvKeys[k] = struct{}{}
	return k
}

// Load loads configuration with precedence: ENV > File > Defaults
// It enforces Strict Validated Order: Parse File (Strict) -> Apply Env -> Validate
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	if err := l.mergeEnvConfig(&cfg); err != nil {
		return cfg, fmt.Errorf("merge env config: %w", err)
	}

	cfg.Version = l.version

	if err := Validate(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile loads configuration from a YAML file with STRICT parsing.
// Unknown fields will cause a fatal error to prevent misconfiguration.
func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return decodeStrict(data)
}

func decodeStrict(data []byte) (*FileConfig, error) {
	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("strict config parse error: %w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func parseDur(field, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w: %q", field, ErrInvalidDuration, raw)
	}
	return d, nil
}

func setDur(dst *time.Duration, field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := parseDur(field, raw)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func setOptDur(dst **time.Duration, field, raw string) error {
	if raw == "" {
		return nil
	}
	d, err := parseDur(field, raw)
	if err != nil {
		return err
	}
	*dst = &d
	return nil
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = os.ExpandEnv(v)
	}
}

// mergeFileConfig layers the file values over dst.
func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogService, src.LogService)

	setString(&dst.API.ListenAddr, src.API.ListenAddr)
	setInt(&dst.API.RateLimitRPM, src.API.RateLimitRPM)
	if len(src.API.AllowedOrigins) > 0 {
		dst.API.AllowedOrigins = append([]string(nil), src.API.AllowedOrigins...)
	}

	if err := setDur(&dst.Ads.Timeout, "ads.timeout", src.Ads.Timeout); err != nil {
		return err
	}
	if err := setOptDur(&dst.Ads.PrerollTimeout, "ads.prerollTimeout", src.Ads.PrerollTimeout); err != nil {
		return err
	}
	if err := setOptDur(&dst.Ads.PostrollTimeout, "ads.postrollTimeout", src.Ads.PostrollTimeout); err != nil {
		return err
	}
	setBool(&dst.Ads.Debug, src.Ads.Debug)
	setBool(&dst.Ads.StitchedAds, src.Ads.StitchedAds)
	if src.Ads.ContentIsLive != nil {
		v := *src.Ads.ContentIsLive
		dst.Ads.ContentIsLive = &v
	}
	setBool(&dst.Ads.LiveCuePoints, src.Ads.LiveCuePoints)
	setBool(&dst.Ads.AllowAutoplay, src.Ads.AllowAutoplay)
	setInt(&dst.Ads.WrapperLimit, src.Ads.WrapperLimit)

	if err := setDur(&dst.VAST.RequestTimeout, "vast.requestTimeout", src.VAST.RequestTimeout); err != nil {
		return err
	}
	setBool(&dst.VAST.WithCredentials, src.VAST.WithCredentials)
	setString(&dst.VAST.UserAgent, src.VAST.UserAgent)
	if len(src.VAST.MediaTypes) > 0 {
		dst.VAST.MediaTypes = append([]string(nil), src.VAST.MediaTypes...)
	}
	if err := setDur(&dst.VAST.DocumentCacheTTL, "vast.documentCacheTTL", src.VAST.DocumentCacheTTL); err != nil {
		return err
	}

	if err := setDur(&dst.Tracking.Timeout, "tracking.timeout", src.Tracking.Timeout); err != nil {
		return err
	}
	setFloat(&dst.Tracking.RatePerSecond, src.Tracking.RatePerSecond)
	setInt(&dst.Tracking.Burst, src.Tracking.Burst)
	setInt(&dst.Tracking.Concurrency, src.Tracking.Concurrency)

	setInt(&dst.Breaker.Threshold, src.Breaker.Threshold)
	if err := setDur(&dst.Breaker.ResetTimeout, "breaker.resetTimeout", src.Breaker.ResetTimeout); err != nil {
		return err
	}

	setString(&dst.Cache.Backend, src.Cache.Backend)
	setString(&dst.Cache.RedisAddr, src.Cache.RedisAddr)
	setString(&dst.Cache.RedisPassword, src.Cache.RedisPassword)
	setInt(&dst.Cache.RedisDB, src.Cache.RedisDB)

	setBool(&dst.Telemetry.Enabled, src.Telemetry.Enabled)
	setString(&dst.Telemetry.Exporter, src.Telemetry.Exporter)
	setString(&dst.Telemetry.Endpoint, src.Telemetry.Endpoint)
	setFloat(&dst.Telemetry.SamplingRate, src.Telemetry.SamplingRate)
	return nil
}

// mergeEnvConfig applies VASTPLAY_* overrides (highest priority).
func (l *Loader) mergeEnvConfig(cfg *AppConfig) error {
	cfg.LogLevel = ParseString(l.key("LOG_LEVEL"), cfg.LogLevel)
	cfg.LogService = ParseString(l.key("LOG_SERVICE"), cfg.LogService)

	cfg.API.ListenAddr = ParseString(l.key("LISTEN_ADDR"), cfg.API.ListenAddr)
	cfg.API.RateLimitRPM = ParseInt(l.key("RATE_LIMIT_RPM"), cfg.API.RateLimitRPM)
	cfg.API.AllowedOrigins = ParseList(l.key("ALLOWED_ORIGINS"), cfg.API.AllowedOrigins)

	cfg.Ads.Timeout = ParseDuration(l.key("ADS_TIMEOUT"), cfg.Ads.Timeout)
	if raw, ok := os.LookupEnv(l.key("ADS_PREROLL_TIMEOUT")); ok {
		if err := setOptDur(&cfg.Ads.PrerollTimeout, "ADS_PREROLL_TIMEOUT", raw); err != nil {
			return err
		}
	}
	if raw, ok := os.LookupEnv(l.key("ADS_POSTROLL_TIMEOUT")); ok {
		if err := setOptDur(&cfg.Ads.PostrollTimeout, "ADS_POSTROLL_TIMEOUT", raw); err != nil {
			return err
		}
	}
	cfg.Ads.Debug = ParseBool(l.key("ADS_DEBUG"), cfg.Ads.Debug)
	cfg.Ads.StitchedAds = ParseBool(l.key("ADS_STITCHED"), cfg.Ads.StitchedAds)
	if raw, ok := os.LookupEnv(l.key("ADS_CONTENT_IS_LIVE")); ok && raw != "" {
		live, err := parseBoolWord(raw)
		if err != nil {
			return fmt.Errorf("ADS_CONTENT_IS_LIVE: invalid boolean %q", raw)
		}
		cfg.Ads.ContentIsLive = &live
	}
	cfg.Ads.LiveCuePoints = ParseBool(l.key("ADS_LIVE_CUE_POINTS"), cfg.Ads.LiveCuePoints)
	cfg.Ads.AllowAutoplay = ParseBool(l.key("ADS_ALLOW_AUTOPLAY"), cfg.Ads.AllowAutoplay)
	cfg.Ads.WrapperLimit = ParseInt(l.key("ADS_WRAPPER_LIMIT"), cfg.Ads.WrapperLimit)

	cfg.VAST.RequestTimeout = ParseDuration(l.key("VAST_REQUEST_TIMEOUT"), cfg.VAST.RequestTimeout)
	cfg.VAST.WithCredentials = ParseBool(l.key("VAST_WITH_CREDENTIALS"), cfg.VAST.WithCredentials)
	cfg.VAST.UserAgent = ParseString(l.key("VAST_USER_AGENT"), cfg.VAST.UserAgent)
	cfg.VAST.MediaTypes = ParseList(l.key("VAST_MEDIA_TYPES"), cfg.VAST.MediaTypes)
	cfg.VAST.DocumentCacheTTL = ParseDuration(l.key("VAST_CACHE_TTL"), cfg.VAST.DocumentCacheTTL)

	cfg.Tracking.Timeout = ParseDuration(l.key("TRACKING_TIMEOUT"), cfg.Tracking.Timeout)
	cfg.Tracking.RatePerSecond = ParseFloat(l.key("TRACKING_RPS"), cfg.Tracking.RatePerSecond)
	cfg.Tracking.Burst = ParseInt(l.key("TRACKING_BURST"), cfg.Tracking.Burst)
	cfg.Tracking.Concurrency = ParseInt(l.key("TRACKING_CONCURRENCY"), cfg.Tracking.Concurrency)

	cfg.Breaker.Threshold = ParseInt(l.key("BREAKER_THRESHOLD"), cfg.Breaker.Threshold)
	cfg.Breaker.ResetTimeout = ParseDuration(l.key("BREAKER_RESET_TIMEOUT"), cfg.Breaker.ResetTimeout)

	cfg.Cache.Backend = ParseString(l.key("CACHE_BACKEND"), cfg.Cache.Backend)
	cfg.Cache.RedisAddr = ParseString(l.key("REDIS_ADDR"), cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = ParseString(l.key("REDIS_PASSWORD"), cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = ParseInt(l.key("REDIS_DB"), cfg.Cache.RedisDB)

	cfg.Telemetry.Enabled = ParseBool(l.key("TELEMETRY_ENABLED"), cfg.Telemetry.Enabled)
	cfg.Telemetry.Exporter = ParseString(l.key("OTEL_EXPORTER"), cfg.Telemetry.Exporter)
	cfg.Telemetry.Endpoint = ParseString(l.key("OTEL_ENDPOINT"), cfg.Telemetry.Endpoint)
	cfg.Telemetry.SamplingRate = ParseFloat(l.key("OTEL_SAMPLING_RATE"), cfg.Telemetry.SamplingRate)
	return nil
}
