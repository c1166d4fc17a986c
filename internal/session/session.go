// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package session binds an ad-break state machine to one content player.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vastplay/internal/adbreak"
	"github.com/ManuGH/vastplay/internal/config"
	xglog "github.com/ManuGH/vastplay/internal/log"
)

// Player bus events the session understands besides the machine events.
const (
	EventLoadStart      = "loadstart"
	EventLoadedData     = "loadeddata"
	EventLoadedMetadata = "loadedmetadata"
	EventPlaying        = "playing"
	EventEnded          = "ended"
	EventContentChanged = "contentchanged"
)

// Listener receives machine triggers. It is called without session locks
// held and may call back into the session.
type Listener func(name string)

// Option configures a Session.
type Option func(*Session)

// WithID sets the session id instead of a random one.
func WithID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithClock sets the clock for the machine timers and activity tracking.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithLogger sets the base logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// Session is the facade over one player and its ad-break machine.
type Session struct {
	id      string
	cfg     config.AdsConfig
	player  Player
	machine *adbreak.Machine
	clock   clock.Clock
	logger  zerolog.Logger
	created time.Time

	mu                         sync.Mutex
	snapshot                   *Snapshot
	disableNextSnapshotRestore bool
	hadLoadStart               bool
	hasLoadedData              bool
	hasLoadedMetadata          bool
	lastSrc                    string
	lastActive                 time.Time
	listeners                  map[int]Listener
	nextListener               int
	closed                     bool
}

// New creates a session for player with the ad settings cfg.
func New(player Player, cfg config.AdsConfig, opts ...Option) *Session {
	s := &Session{
		cfg:       cfg,
		player:    player,
		clock:     clock.New(),
		logger:    xglog.WithComponent("session"),
		listeners: make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	s.logger = s.logger.With().Str(xglog.FieldSessionID, s.id).Logger()
	if cfg.Debug {
		s.logger = s.logger.Level(zerolog.DebugLevel)
	}
	s.created = s.clock.Now()
	s.lastActive = s.created
	s.machine = adbreak.New(MachineSettings(cfg, player.Autoplay()), host{s},
		adbreak.WithClock(s.clock),
		adbreak.WithLogger(s.logger),
	)
	return s
}

// MachineSettings derives the ad-break settings from the ad configuration.
func MachineSettings(cfg config.AdsConfig, autoplay bool) adbreak.Settings {
	st := adbreak.Settings{
		Timeout:       cfg.Timeout,
		StitchedAds:   cfg.StitchedAds,
		AllowAutoplay: cfg.AllowAutoplay,
		Autoplay:      autoplay,
		Debug:         cfg.Debug,
	}
	if cfg.PrerollTimeout != nil {
		st.PrerollTimeout = *cfg.PrerollTimeout
	}
	if cfg.PostrollTimeout != nil {
		st.PostrollTimeout = *cfg.PostrollTimeout
	}
	return st
}

func (s *Session) ID() string                { return s.id }
func (s *Session) Config() config.AdsConfig  { return s.cfg }
func (s *Session) Player() Player            { return s.player }
func (s *Session) Machine() *adbreak.Machine { return s.machine }
func (s *Session) Created() time.Time        { return s.created }

// LastActive is the time of the last event handled.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Subscribe registers fn for machine triggers and returns its removal.
func (s *Session) Subscribe(fn Listener) func() {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Reset clears every transient flag and the snapshot. Used between sources.
func (s *Session) Reset() {
	s.mu.Lock()
	s.snapshot = nil
	s.disableNextSnapshotRestore = false
	s.hasLoadedData = false
	s.hasLoadedMetadata = false
	s.mu.Unlock()
	s.machine.Reset()
}

// Dispatch hands ev to the machine.
func (s *Session) Dispatch(ev adbreak.EventKind) error {
	s.touch()
	_, err := s.machine.Dispatch(ev)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "session.dispatch_failed").
			Str(xglog.FieldTrigger, ev.String()).
			Msg("event dispatch failed")
	}
	return err
}

// StartLinearAdMode is called by an ad backend when a linear ad begins.
func (s *Session) StartLinearAdMode() error { return s.Dispatch(adbreak.EvStartLinearAdMode) }

// EndLinearAdMode is called when a linear ad pod has finished.
func (s *Session) EndLinearAdMode() error { return s.Dispatch(adbreak.EvEndLinearAdMode) }

// SkipLinearAdMode is called when there is no linear ad to play. It has no
// effect during an ad break.
func (s *Session) SkipLinearAdMode() error { return s.Dispatch(adbreak.EvSkipLinearAdMode) }

// Ad-mode queries delegate to the machine.
func (s *Session) IsInAdMode() bool          { return s.machine.IsAdState() }
func (s *Session) IsWaitingForAdBreak() bool { return s.machine.IsWaitingForAdBreak() }
func (s *Session) IsContentResuming() bool   { return s.machine.IsContentResuming() }
func (s *Session) InAdBreak() bool           { return s.machine.InAdBreak() }

// RequestPlay gates a content play request. False means the play must not
// reach the player now; it is replayed once content may play.
func (s *Session) RequestPlay() bool {
	s.touch()
	return s.machine.RequestPlay()
}

// IsLive reports live content: forced by configuration or an unbounded
// duration.
func (s *Session) IsLive() bool {
	if s.cfg.ContentIsLive != nil {
		return *s.cfg.ContentIsLive
	}
	_, bounded := s.player.Duration()
	return !bounded
}

// ShouldPlayContentBehindAd reports whether live content keeps playing
// muted underneath ads.
func (s *Session) ShouldPlayContentBehindAd() bool {
	if !s.cfg.LiveCuePoints {
		return false
	}
	return !s.player.TouchPlatform() && s.IsLive()
}

// ShouldTakeSnapshots reports whether content state is saved across ad
// breaks. Content behind ads and stitched streams are never interrupted.
func (s *Session) ShouldTakeSnapshots() bool {
	return !s.ShouldPlayContentBehindAd() && !s.cfg.StitchedAds
}

// VideoElementRecycled reports whether the player source changed since the
// snapshot was taken.
func (s *Session) VideoElementRecycled() (bool, error) {
	if s.ShouldPlayContentBehindAd() {
		return false, nil
	}
	s.mu.Lock()
	snap := s.snapshot
	s.mu.Unlock()
	if snap == nil {
		return false, ErrNoSnapshot
	}
	return s.player.Src() != snap.Src || s.player.CurrentSrc() != snap.CurrentSrc, nil
}

// Snapshot returns the current snapshot, if any.
func (s *Session) Snapshot() (Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.snapshot == nil {
		return Snapshot{}, false
	}
	return *s.snapshot, true
}

// DisableNextSnapshotRestore skips restoring the snapshot after the
// current break, for backends that already put content back in place.
func (s *Session) DisableNextSnapshotRestore() {
	s.mu.Lock()
	s.disableNextSnapshotRestore = true
	s.mu.Unlock()
}

// HandleEvent maps a player bus event onto the session.
func (s *Session) HandleEvent(name string) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	s.touch()

	switch name {
	case EventLoadStart:
		return s.onLoadStart()
	case EventLoadedData:
		s.mu.Lock()
		s.hasLoadedData = true
		s.mu.Unlock()
		return nil
	case EventLoadedMetadata:
		s.mu.Lock()
		s.hasLoadedMetadata = true
		s.mu.Unlock()
		return nil
	case EventPlaying:
		if s.machine.IsContentResuming() {
			return s.Dispatch(adbreak.EvContentResumed)
		}
		return nil
	case EventEnded:
		// An ended event during a break belongs to the ad.
		if s.machine.InAdBreak() {
			return nil
		}
		return s.Dispatch(adbreak.EvContentEnded)
	case EventContentChanged:
		return s.contentChanged()
	}

	ev, ok := adbreak.ParseEvent(name)
	if !ok || ev.Synthetic() {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return s.Dispatch(ev)
}

func (s *Session) onLoadStart() error {
	cur := s.player.CurrentSrc()
	s.mu.Lock()
	first := !s.hadLoadStart
	prev := s.lastSrc
	s.hadLoadStart = true
	s.lastSrc = cur
	s.mu.Unlock()

	if first || prev == cur {
		return nil
	}
	// Ads and snapshot restores load sources of their own.
	if s.machine.InAdBreak() || s.machine.IsContentResuming() {
		return nil
	}
	return s.contentChanged()
}

func (s *Session) contentChanged() error {
	s.mu.Lock()
	s.snapshot = nil
	s.hasLoadedData = false
	s.hasLoadedMetadata = false
	s.mu.Unlock()
	s.logger.Info().
		Str(xglog.FieldEvent, "session.content_changed").
		Str("src", s.player.CurrentSrc()).
		Msg("content source changed")
	return s.Dispatch(adbreak.EvContentChanged)
}

func (s *Session) touch() {
	now := s.clock.Now()
	s.mu.Lock()
	s.lastActive = now
	s.mu.Unlock()
}

// Close stops the machine. Further events are rejected.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.listeners = make(map[int]Listener)
	s.mu.Unlock()
	s.machine.Stop()
}

// Status is a point-in-time view of a session.
type Status struct {
	ID                string    `json:"id"`
	State             string    `json:"state"`
	Position          string    `json:"position,omitempty"`
	InAdMode          bool      `json:"inAdMode"`
	InAdBreak         bool      `json:"inAdBreak"`
	WaitingForAdBreak bool      `json:"waitingForAdBreak"`
	ContentResuming   bool      `json:"contentResuming"`
	ShouldBlockPlay   bool      `json:"shouldBlockPlay"`
	PlayRequested     bool      `json:"playRequested"`
	ContentHasEnded   bool      `json:"contentHasEnded"`
	Live              bool      `json:"live"`
	HasSnapshot       bool      `json:"hasSnapshot"`
	LoadedData        bool      `json:"loadedData"`
	LoadedMetadata    bool      `json:"loadedMetadata"`
	Created           time.Time `json:"created"`
}

// Status reports the current state.
func (s *Session) Status() Status {
	st := s.machine.State()
	s.mu.Lock()
	hasSnap := s.snapshot != nil
	loadedData, loadedMeta := s.hasLoadedData, s.hasLoadedMetadata
	s.mu.Unlock()

	out := Status{
		ID:                s.id,
		State:             st.Kind.String(),
		InAdMode:          st.Kind.IsAdState(),
		InAdBreak:         st.Kind.InAdBreak(),
		WaitingForAdBreak: st.Kind.IsWaitingForAdBreak(),
		ContentResuming:   st.Kind.IsContentResuming(),
		ShouldBlockPlay:   st.ShouldBlockPlay,
		PlayRequested:     st.PlayRequested,
		ContentHasEnded:   st.ContentHasEnded,
		Live:              s.IsLive(),
		HasSnapshot:       hasSnap,
		LoadedData:        loadedData,
		LoadedMetadata:    loadedMeta,
		Created:           s.created,
	}
	if st.Position != adbreak.PositionNone {
		out.Position = st.Position.String()
	}
	return out
}

// host carries out machine effects on the player.
type host struct{ s *Session }

func (h host) Trigger(name string) {
	s := h.s
	s.player.Trigger(name)
	s.mu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(name)
	}
}

func (h host) TakeSnapshot() {
	s := h.s
	if s.ShouldPlayContentBehindAd() {
		s.player.SetMuted(true)
		return
	}
	if !s.ShouldTakeSnapshots() {
		return
	}
	snap := Snapshot{
		Src:        s.player.Src(),
		CurrentSrc: s.player.CurrentSrc(),
		Position:   s.player.Position(),
	}
	s.mu.Lock()
	s.snapshot = &snap
	s.mu.Unlock()
	if err := s.player.Pause(); err != nil {
		s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.pause_failed").Msg("pause for ad break failed")
	}
}

func (h host) RestoreSnapshot() {
	s := h.s
	if s.ShouldPlayContentBehindAd() {
		s.player.SetMuted(false)
		_ = s.Dispatch(adbreak.EvContentResumed)
		return
	}
	s.mu.Lock()
	snap := s.snapshot
	skip := s.disableNextSnapshotRestore
	s.snapshot = nil
	s.disableNextSnapshotRestore = false
	s.mu.Unlock()

	if snap != nil && !skip {
		if err := s.player.Restore(*snap); err != nil {
			s.logger.Warn().Err(err).
				Str(xglog.FieldEvent, "session.restore_failed").
				Str("src", snap.Src).
				Msg("snapshot restore failed, resuming content as is")
		}
	}
	_ = s.Dispatch(adbreak.EvContentResumed)
}

func (h host) PlayContent() {
	if err := h.s.player.Play(); err != nil {
		h.s.logger.Warn().Err(err).Str(xglog.FieldEvent, "session.play_failed").Msg("content play failed")
	}
}
