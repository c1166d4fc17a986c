// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vastplay/internal/adtech"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/session"
)

// Commands sent to the player surface.
const (
	CommandPlay    = "play"
	CommandPause   = "pause"
	CommandMute    = "mute"
	CommandRestore = "restore"
	CommandPlayAd  = "playAd"
	CommandStopAd  = "stopAd"
)

// Outbound message types.
const (
	MessageCommand = "command"
	MessageTrigger = "trigger"
	MessageStatus  = "status"
	MessageError   = "error"
)

const outboxSize = 128

// PlayerState is what the player surface reports about itself. Times are
// seconds.
type PlayerState struct {
	Src           string  `json:"src"`
	CurrentSrc    string  `json:"currentSrc,omitempty"`
	Position      float64 `json:"position"`
	Duration      float64 `json:"duration,omitempty"`
	Live          bool    `json:"live,omitempty"`
	Autoplay      bool    `json:"autoplay,omitempty"`
	TouchPlatform bool    `json:"touchPlatform,omitempty"`
}

// SnapshotMessage is a content snapshot on the wire.
type SnapshotMessage struct {
	Src        string  `json:"src"`
	CurrentSrc string  `json:"currentSrc"`
	Position   float64 `json:"position"`
}

// OutMessage is sent from the server to the player surface.
type OutMessage struct {
	Type     string           `json:"type"`
	Name     string           `json:"name,omitempty"`
	Muted    *bool            `json:"muted,omitempty"`
	Snapshot *SnapshotMessage `json:"snapshot,omitempty"`
	Ad       *adtech.AdSpec   `json:"ad,omitempty"`
	Status   *session.Status  `json:"status,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// remotePlayer is the session.Player and adtech.AdPlayer of a session whose
// surface lives behind the player bus. State is what the surface last
// reported; commands queue in the outbox until a bus connection drains them.
type remotePlayer struct {
	mu     sync.Mutex
	st     PlayerState
	closed bool
	out    chan OutMessage
	done   chan struct{}
	logger zerolog.Logger
}

func newRemotePlayer(st PlayerState, logger zerolog.Logger) *remotePlayer {
	if st.CurrentSrc == "" {
		st.CurrentSrc = st.Src
	}
	return &remotePlayer{
		st:     st,
		out:    make(chan OutMessage, outboxSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (p *remotePlayer) state() PlayerState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.st
}

// update applies a state report from the surface.
func (p *remotePlayer) update(st PlayerState) {
	if st.CurrentSrc == "" {
		st.CurrentSrc = st.Src
	}
	p.mu.Lock()
	p.st = st
	p.mu.Unlock()
}

func (p *remotePlayer) Src() string        { return p.state().Src }
func (p *remotePlayer) CurrentSrc() string { return p.state().CurrentSrc }
func (p *remotePlayer) Autoplay() bool     { return p.state().Autoplay }
func (p *remotePlayer) TouchPlatform() bool {
	return p.state().TouchPlatform
}

func (p *remotePlayer) Position() time.Duration {
	return seconds(p.state().Position)
}

func (p *remotePlayer) Duration() (time.Duration, bool) {
	st := p.state()
	if st.Live {
		return 0, false
	}
	return seconds(st.Duration), true
}

func (p *remotePlayer) Play() error {
	p.send(OutMessage{Type: MessageCommand, Name: CommandPlay})
	return nil
}

func (p *remotePlayer) Pause() error {
	p.send(OutMessage{Type: MessageCommand, Name: CommandPause})
	return nil
}

func (p *remotePlayer) SetMuted(muted bool) {
	p.send(OutMessage{Type: MessageCommand, Name: CommandMute, Muted: &muted})
}

// Restore records the snapshot as current state right away so the session
// sees the restored source before the surface confirms it.
func (p *remotePlayer) Restore(snap session.Snapshot) error {
	p.mu.Lock()
	p.st.Src = snap.Src
	p.st.CurrentSrc = snap.CurrentSrc
	p.st.Position = snap.Position.Seconds()
	p.mu.Unlock()
	p.send(OutMessage{Type: MessageCommand, Name: CommandRestore, Snapshot: &SnapshotMessage{
		Src:        snap.Src,
		CurrentSrc: snap.CurrentSrc,
		Position:   snap.Position.Seconds(),
	}})
	return nil
}

func (p *remotePlayer) Trigger(name string) {
	p.send(OutMessage{Type: MessageTrigger, Name: name})
}

func (p *remotePlayer) PlayAd(spec adtech.AdSpec) error {
	p.send(OutMessage{Type: MessageCommand, Name: CommandPlayAd, Ad: &spec})
	return nil
}

func (p *remotePlayer) StopAd() {
	p.send(OutMessage{Type: MessageCommand, Name: CommandStopAd})
}

// send queues msg without blocking; a full outbox drops it.
func (p *remotePlayer) send(msg OutMessage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.out <- msg:
	default:
		p.logger.Warn().
			Str(xglog.FieldEvent, "bus.outbox_full").
			Str("type", msg.Type).
			Str("name", msg.Name).
			Msg("player outbox full, message dropped")
	}
}

// drain removes queued messages, for clients that poll over HTTP.
func (p *remotePlayer) drain() []OutMessage {
	var msgs []OutMessage
	for {
		select {
		case m := <-p.out:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

func (p *remotePlayer) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	close(p.done)
}

// maxSeconds is the largest player time representable as a Duration.
var maxSeconds = float64(math.MaxInt64) / float64(time.Second)

func seconds(s float64) time.Duration {
	if s <= 0 || math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	if s >= maxSeconds {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(s * float64(time.Second))
}
