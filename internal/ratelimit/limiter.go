// SPDX-License-Identifier: MIT

// Package ratelimit throttles outbound tracking pings globally, per ping
// kind and per destination host.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

// ErrBurstExceeded is returned by Wait when a bucket can never admit a ping.
var ErrBurstExceeded = errors.New("ratelimit: burst is zero")

var (
	rateLimitExceeded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vastplay",
			Name:      "ratelimit_exceeded_total",
			Help:      "Total tracking pings rejected or delayed by rate limits",
		},
		[]string{"limit_type", "kind"},
	)
)

// Config holds rate limiting configuration
type Config struct {
	// Global limits
	GlobalRate  rate.Limit // pings per second
	GlobalBurst int        // max burst size

	// Per-host limits
	PerHostRate  rate.Limit
	PerHostBurst int

	// Per-kind limits (error, impression, event, click)
	KindRates map[string]rate.Limit
	KindBurst map[string]int

	// Per-host limiters unused for this long are dropped
	IdleTimeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		GlobalRate:  200,
		GlobalBurst: 400,

		PerHostRate:  50,
		PerHostBurst: 100,

		KindRates: map[string]rate.Limit{
			"error": 50, // error storms from broken waterfalls must not starve impressions
		},
		KindBurst: map[string]int{
			"error": 100,
		},

		IdleTimeout: 5 * time.Minute,
	}
}

type hostLimiter struct {
	lim      *rate.Limiter
	lastUsed time.Time
}

// Limiter applies the global, per-kind and per-host buckets in that order.
type Limiter struct {
	config Config
	clock  clock.Clock

	global  *rate.Limiter
	perHost map[string]*hostLimiter
	perKind map[string]*rate.Limiter
	mu      sync.Mutex

	lastCleanup time.Time
}

// Option customizes a Limiter.
type Option func(*Limiter)

// WithClock replaces the time source (tests).
func WithClock(c clock.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

// New creates a new rate limiter with the given config
func New(config Config, opts ...Option) *Limiter {
	l := &Limiter{
		config:  config,
		clock:   clock.New(),
		global:  rate.NewLimiter(config.GlobalRate, config.GlobalBurst),
		perHost: make(map[string]*hostLimiter),
		perKind: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastCleanup = l.clock.Now()

	for kind, kindRate := range config.KindRates {
		l.perKind[kind] = rate.NewLimiter(kindRate, config.KindBurst[kind])
	}
	return l
}

// Allow reports whether a ping may be sent right now. A false result
// consumes no tokens from the buckets that were not exhausted.
func (l *Limiter) Allow(host, kind string) bool {
	now := l.clock.Now()
	limiters, types := l.chain(host, kind, now)
	reservations := make([]*rate.Reservation, 0, len(limiters))
	for i, lim := range limiters {
		r := lim.ReserveN(now, 1)
		if !r.OK() || r.DelayFrom(now) > 0 {
			r.CancelAt(now)
			for _, prev := range reservations {
				prev.CancelAt(now)
			}
			rateLimitExceeded.WithLabelValues(types[i], kind).Inc()
			return false
		}
		reservations = append(reservations, r)
	}
	return true
}

// Wait blocks until a ping may be sent or ctx ends.
func (l *Limiter) Wait(ctx context.Context, host, kind string) error {
	now := l.clock.Now()
	limiters, types := l.chain(host, kind, now)

	var delay time.Duration
	reservations := make([]*rate.Reservation, 0, len(limiters))
	cancelAll := func() {
		at := l.clock.Now()
		for _, r := range reservations {
			r.CancelAt(at)
		}
	}
	for i, lim := range limiters {
		r := lim.ReserveN(now, 1)
		if !r.OK() {
			cancelAll()
			rateLimitExceeded.WithLabelValues(types[i], kind).Inc()
			return fmt.Errorf("%w: %s", ErrBurstExceeded, types[i])
		}
		reservations = append(reservations, r)
		if d := r.DelayFrom(now); d > delay {
			delay = d
			rateLimitExceeded.WithLabelValues(types[i], kind).Inc()
		}
	}
	if delay == 0 {
		return nil
	}

	timer := l.clock.Timer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		cancelAll()
		return ctx.Err()
	}
}

func (l *Limiter) chain(host, kind string, now time.Time) ([]*rate.Limiter, []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.maybeCleanupLocked(now)

	limiters := []*rate.Limiter{l.global}
	types := []string{"global"}
	if kl, ok := l.perKind[kind]; ok {
		limiters = append(limiters, kl)
		types = append(types, "per_kind")
	}

	hl, ok := l.perHost[host]
	if !ok {
		hl = &hostLimiter{lim: rate.NewLimiter(l.config.PerHostRate, l.config.PerHostBurst)}
		l.perHost[host] = hl
	}
	hl.lastUsed = now
	return append(limiters, hl.lim), append(types, "per_host")
}

// maybeCleanupLocked drops host limiters idle for longer than IdleTimeout.
func (l *Limiter) maybeCleanupLocked(now time.Time) {
	if l.config.IdleTimeout <= 0 || now.Sub(l.lastCleanup) < l.config.IdleTimeout {
		return
	}
	for host, hl := range l.perHost {
		if now.Sub(hl.lastUsed) >= l.config.IdleTimeout {
			delete(l.perHost, host)
		}
	}
	l.lastCleanup = now
}

// Hosts returns the number of tracked host limiters.
func (l *Limiter) Hosts() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.perHost)
}
