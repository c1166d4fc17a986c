// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, 5*time.Second, cfg.Ads.Timeout)
	assert.Nil(t, cfg.Ads.PrerollTimeout)
	assert.Nil(t, cfg.Ads.PostrollTimeout)
	assert.Nil(t, cfg.Ads.ContentIsLive)
	assert.True(t, cfg.Ads.LiveCuePoints)
	assert.False(t, cfg.Ads.StitchedAds)
	assert.False(t, cfg.Ads.Debug)
	assert.Equal(t, 5, cfg.Ads.WrapperLimit)
	assert.Equal(t, "memory", cfg.Cache.Backend)
	assert.NotContains(t, cfg.VAST.MediaTypes, "application/x-shockwave-flash")
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
ads:
  timeout: 2s
  prerollTimeout: 8s
  contentIsLive: false
  liveCuePoints: false
  wrapperLimit: 3
vast:
  mediaTypes: [video/mp4]
  documentCacheTTL: 1m
cache:
  backend: redis
  redisAddr: localhost:6379
`)
	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Ads.Timeout)
	require.NotNil(t, cfg.Ads.PrerollTimeout)
	assert.Equal(t, 8*time.Second, *cfg.Ads.PrerollTimeout)
	require.NotNil(t, cfg.Ads.ContentIsLive)
	assert.False(t, *cfg.Ads.ContentIsLive)
	assert.False(t, cfg.Ads.LiveCuePoints)
	assert.Equal(t, 3, cfg.Ads.WrapperLimit)
	assert.Equal(t, []string{"video/mp4"}, cfg.VAST.MediaTypes)
	assert.Equal(t, time.Minute, cfg.VAST.DocumentCacheTTL)
	assert.Equal(t, "redis", cfg.Cache.Backend)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "ads:\n  timeout: 2s\n")
	t.Setenv("VASTPLAY_ADS_TIMEOUT", "7s")
	t.Setenv("VASTPLAY_ADS_POSTROLL_TIMEOUT", "4s")
	t.Setenv("VASTPLAY_ADS_CONTENT_IS_LIVE", "yes")
	t.Setenv("VASTPLAY_VAST_MEDIA_TYPES", "video/mp4, video/webm")

	loader := NewLoader(path, "dev")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, 7*time.Second, cfg.Ads.Timeout)
	require.NotNil(t, cfg.Ads.PostrollTimeout)
	assert.Equal(t, 4*time.Second, *cfg.Ads.PostrollTimeout)
	require.NotNil(t, cfg.Ads.ContentIsLive)
	assert.True(t, *cfg.Ads.ContentIsLive)
	assert.Equal(t, []string{"video/mp4", "video/webm"}, cfg.VAST.MediaTypes)
	assert.Contains(t, loader.ConsumedEnvKeys, "VASTPLAY_ADS_TIMEOUT")
}

func TestLoad_InvalidEnvFallsBackToDefault(t *testing.T) {
	t.Setenv("VASTPLAY_ADS_WRAPPER_LIMIT", "many")
	cfg, err := NewLoader("", "dev").Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultWrapperLimit, cfg.Ads.WrapperLimit)
}

func TestLoad_StrictRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "ads:\n  tiemout: 2s\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoad_RejectsMultipleDocuments(t *testing.T) {
	path := writeConfig(t, "logLevel: info\n---\nlogLevel: debug\n")
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple documents")
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "ads:\n  timeout: soon\n")
	_, err := NewLoader(path, "dev").Load()
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestLoad_RejectsNonYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))
	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
		field  string
	}{
		{"zero timeout", func(c *AppConfig) { c.Ads.Timeout = 0 }, "Ads.Timeout"},
		{"wrapper limit", func(c *AppConfig) { c.Ads.WrapperLimit = 0 }, "Ads.WrapperLimit"},
		{"negative preroll", func(c *AppConfig) { d := -time.Second; c.Ads.PrerollTimeout = &d }, "Ads.PrerollTimeout"},
		{"no media types", func(c *AppConfig) { c.VAST.MediaTypes = nil }, "VAST.MediaTypes"},
		{"redis without addr", func(c *AppConfig) { c.Cache.Backend = "redis" }, "Cache.RedisAddr"},
		{"unknown backend", func(c *AppConfig) { c.Cache.Backend = "disk" }, "Cache.Backend"},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }, "Telemetry.Exporter"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}

	require.NoError(t, Validate(Defaults()))
}

func TestWriteFile_RoundTripsThroughLoader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vastplay.yaml")
	require.NoError(t, WriteFile(path, DefaultFile()))

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "dev"
	assert.Equal(t, want, cfg)
}

func TestToFile_RoundTripsCustomConfig(t *testing.T) {
	cfg := Defaults()
	preroll := 1500 * time.Millisecond
	live := true
	cfg.Ads.PrerollTimeout = &preroll
	cfg.Ads.ContentIsLive = &live
	cfg.Ads.AllowAutoplay = true
	cfg.API.AllowedOrigins = []string{"https://player.example"}
	cfg.VAST.DocumentCacheTTL = time.Minute
	cfg.Cache = CacheConfig{Backend: "redis", RedisAddr: "localhost:6379", RedisDB: 2}
	cfg.Telemetry.Enabled = true

	path := filepath.Join(t.TempDir(), "vastplay.yaml")
	require.NoError(t, WriteFile(path, ToFile(cfg)))

	got, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)
	cfg.Version = "dev"
	assert.Equal(t, cfg, got)
}
