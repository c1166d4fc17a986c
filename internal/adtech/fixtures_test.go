// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"
	"sync"
	"time"

	"github.com/ManuGH/vastplay/internal/macros"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/vast"
)

type trackCall struct {
	kind string
	urls []string
	vars macros.Values
	code int
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []trackCall
}

func (f *fakeTracker) TrackAsync(_ context.Context, kind string, templates []string, vars macros.Values) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackCall{kind: kind, urls: templates, vars: vars})
}

func (f *fakeTracker) TrackError(_ context.Context, templates []string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackCall{kind: "error", urls: templates, code: code})
}

func (f *fakeTracker) urls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		out = append(out, c.urls...)
	}
	return out
}

func (f *fakeTracker) errorCodes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int
	for _, c := range f.calls {
		if c.kind == "error" {
			out = append(out, c.code)
		}
	}
	return out
}

func dur(d time.Duration) *time.Duration { return &d }

func tev(name, uri string, offset *time.Duration) vast.TrackingEvent {
	return vast.TrackingEvent{Name: name, URI: uri, Offset: offset}
}

func testResponse(files ...vast.MediaFile) *vast.Response {
	if len(files) == 0 {
		files = []vast.MediaFile{{URL: "http://media.example/ad.mp4", Type: "video/mp4", Bitrate: 800}}
	}
	return &vast.Response{
		AdID:        "ad-1",
		Impressions: []string{"http://t.example/imp"},
		Errors:      []string{"http://t.example/err?code=[ERRORCODE]"},
		TrackingEvents: map[string][]vast.TrackingEvent{
			"creativeView":  {tev("creativeView", "http://t.example/view", nil)},
			"start":         {tev("start", "http://t.example/start", nil)},
			"firstQuartile": {tev("firstQuartile", "http://t.example/q1", nil)},
			"midpoint":      {tev("midpoint", "http://t.example/mid", nil)},
			"thirdQuartile": {tev("thirdQuartile", "http://t.example/q3", nil)},
			"complete":      {tev("complete", "http://t.example/complete", nil)},
			"skip":          {tev("skip", "http://t.example/skip", nil)},
			"progress":      {tev("progress", "http://t.example/p10", dur(10 * time.Second))},
		},
		ClickTrackings: []string{"http://t.example/click"},
		ClickThrough:   "http://advertiser.example/",
		MediaFiles:     files,
		Duration:       dur(40 * time.Second),
		SkipOffset:     dur(5 * time.Second),
	}
}

type fakeResolver struct {
	mu    sync.Mutex
	resp  *vast.Response
	err   error
	block chan struct{}
	tags  []string
}

func (f *fakeResolver) Resolve(ctx context.Context, tag string, _ vast.Limits) (*vast.Response, error) {
	f.mu.Lock()
	f.tags = append(f.tags, tag)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.resp, f.err
}

func (f *fakeResolver) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tags)
}

type fakeAdPlayer struct {
	mu      sync.Mutex
	played  []AdSpec
	stopped int
	err     error
}

func (f *fakeAdPlayer) PlayAd(spec AdSpec) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.played = append(f.played, spec)
	return nil
}

func (f *fakeAdPlayer) StopAd() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped++
}

func (f *fakeAdPlayer) playedSpecs() []AdSpec {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]AdSpec(nil), f.played...)
}

// contentPlayer is a synchronous content player.
type contentPlayer struct {
	mu  sync.Mutex
	src string
}

func (p *contentPlayer) Src() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *contentPlayer) CurrentSrc() string              { return p.Src() }
func (p *contentPlayer) Position() time.Duration         { return 0 }
func (p *contentPlayer) Duration() (time.Duration, bool) { return time.Minute, true }
func (p *contentPlayer) Autoplay() bool                  { return false }
func (p *contentPlayer) TouchPlatform() bool             { return false }
func (p *contentPlayer) Play() error                     { return nil }
func (p *contentPlayer) Pause() error                    { return nil }
func (p *contentPlayer) SetMuted(bool)                   {}
func (p *contentPlayer) Restore(session.Snapshot) error  { return nil }
func (p *contentPlayer) Trigger(string)                  {}

func (p *contentPlayer) load(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src = src
}
