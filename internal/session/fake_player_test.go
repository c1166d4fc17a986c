// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"sync"
	"time"

	"github.com/ManuGH/vastplay/internal/config"
)

type fakePlayer struct {
	mu         sync.Mutex
	src        string
	currentSrc string
	position   time.Duration
	duration   time.Duration
	live       bool
	autoplay   bool
	touch      bool
	muted      bool
	paused     bool
	plays      int
	restored   []Snapshot
	triggers   []string
}

func newFakePlayer(src string) *fakePlayer {
	return &fakePlayer{src: src, currentSrc: src, duration: time.Minute}
}

func (p *fakePlayer) Src() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src
}

func (p *fakePlayer) CurrentSrc() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentSrc
}

func (p *fakePlayer) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) Duration() (time.Duration, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration, !p.live
}

func (p *fakePlayer) Autoplay() bool      { return p.autoplay }
func (p *fakePlayer) TouchPlatform() bool { return p.touch }

func (p *fakePlayer) Play() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays++
	p.paused = false
	return nil
}

func (p *fakePlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paused = true
	return nil
}

func (p *fakePlayer) SetMuted(muted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = muted
}

func (p *fakePlayer) Restore(snap Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restored = append(p.restored, snap)
	p.src, p.currentSrc, p.position = snap.Src, snap.CurrentSrc, snap.Position
	return nil
}

func (p *fakePlayer) Trigger(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.triggers = append(p.triggers, name)
}

func (p *fakePlayer) load(src string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.src, p.currentSrc = src, src
}

func (p *fakePlayer) triggered() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.triggers...)
}

func testAdsConfig() config.AdsConfig {
	return config.AdsConfig{
		Timeout:       5 * time.Second,
		LiveCuePoints: true,
		WrapperLimit:  5,
	}
}
