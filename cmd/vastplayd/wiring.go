// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/ManuGH/vastplay/internal/cache"
	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/health"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/ratelimit"
	"github.com/ManuGH/vastplay/internal/resilience"
	"github.com/ManuGH/vastplay/internal/tracking"
	"github.com/ManuGH/vastplay/internal/transport"
	"github.com/ManuGH/vastplay/internal/vast"
)

const (
	cacheCleanupInterval = time.Minute
	pingTimeout          = 2 * time.Second
)

// adStack is everything between an ad tag and the network: breakers,
// transport, document cache, tracking and the resolver.
type adStack struct {
	breakers *resilience.Set
	getter   *transport.Client
	docs     cache.Cache
	tracker  *tracking.Tracker
	resolver *vast.Client
	checkers []health.Checker
}

func newAdStack(cfg config.AppConfig) (*adStack, error) {
	logger := xglog.WithComponent("daemon")
	s := &adStack{
		breakers: resilience.NewSet(cfg.Breaker.Threshold, cfg.Breaker.ResetTimeout),
	}
	s.checkers = append(s.checkers, health.NewBreakerChecker(s.breakers))
	s.getter = transport.New(
		transport.WithBreakers(s.breakers),
		transport.WithUserAgent(cfg.VAST.UserAgent),
	)

	var opts []vast.Option
	if cfg.VAST.DocumentCacheTTL > 0 {
		docs, err := newDocumentCache(cfg.Cache)
		if err != nil {
			return nil, err
		}
		s.docs = docs
		if rc, ok := docs.(*cache.RedisCache); ok {
			s.checkers = append(s.checkers, health.NewPingChecker("redis", rc.HealthCheck, pingTimeout))
		}
		opts = append(opts, vast.WithCache(docs, cfg.VAST.DocumentCacheTTL))
		logger.Info().
			Str(xglog.FieldEvent, "cache.enabled").
			Str("backend", cfg.Cache.Backend).
			Dur("ttl", cfg.VAST.DocumentCacheTTL).
			Msg("ad tag document cache enabled")
	}

	limits := ratelimit.DefaultConfig()
	limits.GlobalRate = rate.Limit(cfg.Tracking.RatePerSecond)
	limits.GlobalBurst = cfg.Tracking.Burst
	s.tracker = tracking.New(s.getter, tracking.Config{
		Timeout:     cfg.Tracking.Timeout,
		Concurrency: cfg.Tracking.Concurrency,
	}, tracking.WithLimiter(ratelimit.New(limits)))

	s.resolver = vast.NewClient(s.getter, s.tracker, vast.NewEnvironment(cfg.VAST.MediaTypes), vast.Config{
		Limits: vast.Limits{
			WrapperLimit:   cfg.Ads.WrapperLimit,
			RequestTimeout: cfg.VAST.RequestTimeout,
		},
		WithCredentials: cfg.VAST.WithCredentials,
	}, opts...)
	return s, nil
}

func newDocumentCache(cfg config.CacheConfig) (cache.Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		return cache.NewMemoryCache(cacheCleanupInterval), nil
	case "redis":
		rc, err := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, xglog.WithComponent("cache"))
		if err != nil {
			return nil, fmt.Errorf("connect document cache: %w", err)
		}
		return rc, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// Close flushes pending tracking pings and releases the cache.
func (s *adStack) Close(ctx context.Context) error {
	var errs []error
	if err := s.tracker.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close tracker: %w", err))
	}
	if s.docs != nil {
		if err := s.docs.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	return errors.Join(errs...)
}
