// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package tracking fires impression, event and error pixels.
package tracking

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strconv"
	"sync"
	"time"

	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/macros"
	"github.com/ManuGH/vastplay/internal/metrics"
	"github.com/ManuGH/vastplay/internal/ratelimit"
	"github.com/ManuGH/vastplay/internal/telemetry"
	"github.com/ManuGH/vastplay/internal/transport"
	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Ping kinds, used for rate limits and metrics.
const (
	KindError      = "error"
	KindImpression = "impression"
	KindEvent      = "event"
	KindClick      = "click"
)

// Standard macro names.
const (
	MacroErrorCode       = "ERRORCODE"
	MacroCacheBusting    = "CACHEBUSTING"
	MacroTimestamp       = "TIMESTAMP"
	MacroAssetURI        = "ASSETURI"
	MacroContentPlayhead = "CONTENTPLAYHEAD"
)

// Config tunes delivery.
type Config struct {
	// Timeout bounds each ping.
	Timeout time.Duration
	// Concurrency bounds parallel pings of one Track call.
	Concurrency int
}

// Tracker delivers pixel requests. Failures are logged and counted, never
// returned.
type Tracker struct {
	getter  transport.Getter
	macros  *macros.Processor
	limiter *ratelimit.Limiter
	clock   clock.Clock
	cfg     Config
	logger  zerolog.Logger
	tracer  trace.Tracer

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// Option customizes a Tracker.
type Option func(*Tracker)

// WithLimiter throttles pings.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(t *Tracker) { t.limiter = l }
}

// WithClock replaces the time source used for TIMESTAMP.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// New creates a Tracker.
func New(getter transport.Getter, cfg Config, opts ...Option) *Tracker {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Tracker{
		getter: getter,
		macros: macros.NewProcessor(),
		clock:  clock.New(),
		cfg:    cfg,
		logger: xglog.WithComponent("tracking"),
		tracer: telemetry.Tracer("vastplay/tracking"),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Expand substitutes vars and the standard macros into every template.
// Caller values take precedence over the generated ones.
func (t *Tracker) Expand(templates []string, vars macros.Values) []string {
	provider := layered{vars, t.standardMacros()}
	out := make([]string, 0, len(templates))
	for _, tmpl := range templates {
		if tmpl == "" {
			continue
		}
		out = append(out, t.macros.Replace(tmpl, provider))
	}
	return out
}

func (t *Tracker) standardMacros() macros.Values {
	return macros.Values{
		MacroCacheBusting: strconv.Itoa(10000000 + rand.Intn(90000000)),
		MacroTimestamp:    t.clock.Now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

// Track fires every template and waits for delivery. It returns the number
// of pings that got a 2xx answer.
func (t *Tracker) Track(ctx context.Context, kind string, templates []string, vars macros.Values) int {
	urls := t.Expand(templates, vars)
	if len(urls) == 0 {
		return 0
	}

	ctx, span := t.tracer.Start(ctx, "tracking.fire",
		trace.WithAttributes(telemetry.TrackingAttributes(kind, len(urls))...))
	defer span.End()

	var (
		mu        sync.Mutex
		delivered int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Concurrency)
	for _, u := range urls {
		u := u
		g.Go(func() error {
			if t.ping(gctx, kind, u) {
				mu.Lock()
				delivered++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return delivered
}

func (t *Tracker) ping(ctx context.Context, kind, target string) bool {
	if t.limiter != nil {
		host := target
		if u, err := url.Parse(target); err == nil {
			host = u.Host
		}
		if err := t.limiter.Wait(ctx, host, kind); err != nil {
			metrics.RecordTrackingPing(kind, "throttled")
			t.logger.Debug().Err(err).Str(xglog.FieldURL, target).Msg("tracking ping dropped by rate limit")
			return false
		}
	}

	_, err := t.getter.Get(ctx, target, transport.Options{Timeout: t.cfg.Timeout})
	if err != nil {
		metrics.RecordTrackingPing(kind, "error")
		t.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "tracking.ping_failed").
			Str("kind", kind).
			Str(xglog.FieldURL, target).
			Msg("tracking ping failed")
		return false
	}
	metrics.RecordTrackingPing(kind, "ok")
	return true
}

// TrackAsync fires templates in the background. Request scoped values of
// ctx are kept but its cancellation is not, so a finished request does
// not abort its pings. Calls after Close are dropped.
func (t *Tracker) TrackAsync(ctx context.Context, kind string, templates []string, vars macros.Values) {
	if len(templates) == 0 {
		return
	}
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		metrics.RecordTrackingPing(kind, "dropped")
		return
	}
	t.wg.Add(1)
	t.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer t.wg.Done()
		runCtx, stop := context.WithCancel(bg)
		defer stop()
		// Close aborts pings still waiting for a token or a response.
		unlink := context.AfterFunc(t.ctx, stop)
		defer unlink()
		t.Track(runCtx, kind, templates, vars)
	}()
}

// TrackError fires error templates with ERRORCODE set to code. It does not
// block resolution.
func (t *Tracker) TrackError(ctx context.Context, templates []string, code int) {
	t.TrackAsync(ctx, KindError, templates, macros.Values{MacroErrorCode: strconv.Itoa(code)})
}

// Wait blocks until all background pings finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

// Close stops accepting background pings and waits for in-flight ones
// until ctx ends, after which they are aborted.
func (t *Tracker) Close(ctx context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()

	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		t.cancel()
		return nil
	case <-ctx.Done():
		t.cancel()
		<-done
		return fmt.Errorf("tracking: close: %w", ctx.Err())
	}
}

type layered []macros.Provider

func (l layered) GetMacro(name string) (string, bool) {
	for _, p := range l {
		if p == nil {
			continue
		}
		if v, ok := p.GetMacro(name); ok {
			return v, true
		}
	}
	return "", false
}
