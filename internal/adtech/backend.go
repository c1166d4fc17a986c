// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package adtech connects resolved ads to a session: it decides which ad
// technology plays an ad tag and drives that backend through the ad break.
package adtech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ManuGH/vastplay/internal/macros"
	"github.com/ManuGH/vastplay/internal/tracking"
	"github.com/ManuGH/vastplay/internal/vast"
)

// Kind names an ad technology.
type Kind string

const (
	KindNative Kind = "native"
	KindVPAID  Kind = "vpaid"
	KindSDK    Kind = "sdk"
)

// ErrNoMedia is returned when a response carries no file the backend can play.
var ErrNoMedia = errors.New("adtech: no playable media file")

// Tracker fires pixels without blocking the caller.
type Tracker interface {
	TrackAsync(ctx context.Context, kind string, templates []string, vars macros.Values)
	TrackError(ctx context.Context, templates []string, code int)
}

// AdSpec tells the player surface what to render.
type AdSpec struct {
	Backend      Kind          `json:"backend"`
	TagURL       string        `json:"tagUrl,omitempty"`
	MediaURL     string        `json:"mediaUrl,omitempty"`
	MediaType    string        `json:"mediaType,omitempty"`
	APIFramework string        `json:"apiFramework,omitempty"`
	AdParameters string        `json:"adParameters,omitempty"`
	ClickThrough string        `json:"clickThrough,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	SkipOffset   time.Duration `json:"skipOffset,omitempty"`
}

// Backend plays one ad and reports its lifecycle to the tracking URLs.
type Backend interface {
	Kind() Kind
	Spec() AdSpec
	Started(ctx context.Context)
	Progress(ctx context.Context, pos time.Duration)
	Ended(ctx context.Context)
	Skipped(ctx context.Context)
	Clicked(ctx context.Context) string
	Failed(ctx context.Context, code int)
}

// NewBackend builds the backend named by d.
func NewBackend(d Decision, tr Tracker) (Backend, error) {
	switch d.Backend {
	case KindSDK:
		return newSDK(d.TagURL), nil
	case KindVPAID:
		return newVPAID(d.Response, tr)
	default:
		return newNative(d.Response, tr)
	}
}

// Linear tracking event names.
const (
	evCreativeView  = "creativeView"
	evStart         = "start"
	evFirstQuartile = "firstQuartile"
	evMidpoint      = "midpoint"
	evThirdQuartile = "thirdQuartile"
	evComplete      = "complete"
	evSkip          = "skip"
)

// vastBackend holds the tracking shared by the backends that play a
// resolved VAST response themselves.
type vastBackend struct {
	kind  Kind
	resp  *vast.Response
	media vast.MediaFile
	tr    Tracker

	mu    sync.Mutex
	fired map[string]bool
	last  time.Duration
	done  bool
}

func newVASTBackend(kind Kind, resp *vast.Response, media vast.MediaFile, tr Tracker) *vastBackend {
	return &vastBackend{kind: kind, resp: resp, media: media, tr: tr, fired: make(map[string]bool)}
}

func (b *vastBackend) Kind() Kind { return b.kind }

func (b *vastBackend) Spec() AdSpec {
	spec := AdSpec{
		Backend:      b.kind,
		MediaURL:     b.media.URL,
		MediaType:    b.media.Type,
		APIFramework: b.media.APIFramework,
		AdParameters: b.resp.AdParameters,
		ClickThrough: b.resp.ClickThrough,
	}
	if b.resp.Duration != nil {
		spec.Duration = *b.resp.Duration
	}
	if b.resp.SkipOffset != nil {
		spec.SkipOffset = *b.resp.SkipOffset
	}
	return spec
}

func (b *vastBackend) vars(pos time.Duration) macros.Values {
	return macros.Values{
		tracking.MacroAssetURI:        b.media.URL,
		tracking.MacroContentPlayhead: vast.FormatClock(pos),
	}
}

// once fires event at most once per ad.
func (b *vastBackend) once(ctx context.Context, event string, pos time.Duration) {
	b.mu.Lock()
	if b.fired[event] {
		b.mu.Unlock()
		return
	}
	b.fired[event] = true
	b.mu.Unlock()
	if urls := b.resp.TrackingURIs(event); len(urls) > 0 {
		b.tr.TrackAsync(ctx, tracking.KindEvent, urls, b.vars(pos))
	}
}

func (b *vastBackend) Started(ctx context.Context) {
	b.mu.Lock()
	first := !b.fired["impression"]
	b.fired["impression"] = true
	b.mu.Unlock()
	if first {
		b.tr.TrackAsync(ctx, tracking.KindImpression, b.resp.Impressions, b.vars(0))
	}
	b.once(ctx, evCreativeView, 0)
	b.once(ctx, evStart, 0)
}

func (b *vastBackend) Progress(ctx context.Context, pos time.Duration) {
	b.mu.Lock()
	from := b.last
	if pos <= from || b.done {
		b.mu.Unlock()
		return
	}
	b.last = pos
	b.mu.Unlock()

	if urls := b.resp.DueProgress(from, pos); len(urls) > 0 {
		b.tr.TrackAsync(ctx, tracking.KindEvent, urls, b.vars(pos))
	}
	if b.resp.Duration == nil || *b.resp.Duration <= 0 {
		return
	}
	d := *b.resp.Duration
	for _, q := range []struct {
		event string
		at    time.Duration
	}{
		{evFirstQuartile, d / 4},
		{evMidpoint, d / 2},
		{evThirdQuartile, d * 3 / 4},
	} {
		if pos >= q.at {
			b.once(ctx, q.event, pos)
		}
	}
}

func (b *vastBackend) finish() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return false
	}
	b.done = true
	return true
}

func (b *vastBackend) Ended(ctx context.Context) {
	if b.Duration() > 0 {
		b.Progress(ctx, b.Duration())
	}
	if b.finish() {
		b.once(ctx, evComplete, b.Duration())
	}
}

func (b *vastBackend) Skipped(ctx context.Context) {
	b.mu.Lock()
	pos := b.last
	b.mu.Unlock()
	if b.finish() {
		b.once(ctx, evSkip, pos)
	}
}

func (b *vastBackend) Clicked(ctx context.Context) string {
	b.mu.Lock()
	pos := b.last
	b.mu.Unlock()
	if len(b.resp.ClickTrackings) > 0 {
		b.tr.TrackAsync(ctx, tracking.KindClick, b.resp.ClickTrackings, b.vars(pos))
	}
	return b.resp.ClickThrough
}

func (b *vastBackend) Failed(ctx context.Context, code int) {
	if b.finish() {
		b.tr.TrackError(ctx, b.resp.Errors, code)
	}
}

// Duration is the linear duration, zero when unknown.
func (b *vastBackend) Duration() time.Duration {
	if b.resp.Duration == nil {
		return 0
	}
	return *b.resp.Duration
}
