// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

import "time"

// Settings configure the waits and modes of a machine.
type Settings struct {
	// Timeout bounds the wait for adsready and is the default for the other waits.
	Timeout time.Duration
	// PrerollTimeout bounds the wait for a preroll to start once ads are
	// ready. Zero adds no extra bound.
	PrerollTimeout time.Duration
	// PostrollTimeout bounds the wait for a postroll. Zero uses Timeout.
	PostrollTimeout time.Duration
	StitchedAds     bool
	// AllowAutoplay lets an autoplaying player start without being blocked.
	AllowAutoplay bool
	// Autoplay reports whether the host player intends to autoplay.
	Autoplay bool
	Debug    bool
}

func (s Settings) postrollWait() time.Duration {
	if s.PostrollTimeout > 0 {
		return s.PostrollTimeout
	}
	return s.Timeout
}

// State is the complete lifecycle state of one session. It is a value:
// every transition produces a new State, none is patched in place.
type State struct {
	Kind     Kind
	Position Position

	// Per state, reset on entry.
	AdsReady              bool
	ShouldResumeToContent bool

	// Per session, carried across transitions.
	InLinearAdMode  bool
	ShouldBlockPlay bool
	PlayBlocked     bool
	PlayRequested   bool
	ContentEnding   bool
	ContentHasEnded bool
	NoPreroll       bool
	NoPostroll      bool

	epoch uint64
}

// carry keeps the session flags of s for the next state.
func carry(s State) State {
	return State{
		InLinearAdMode:  s.InLinearAdMode,
		ShouldBlockPlay: s.ShouldBlockPlay,
		PlayBlocked:     s.PlayBlocked,
		PlayRequested:   s.PlayRequested,
		ContentEnding:   s.ContentEnding,
		ContentHasEnded: s.ContentHasEnded,
		NoPreroll:       s.NoPreroll,
		NoPostroll:      s.NoPostroll,
		epoch:           s.epoch,
	}
}

// EffectKind is a command for the host, produced by a step.
type EffectKind int

const (
	EffectTrigger EffectKind = iota + 1
	EffectArmTimer
	EffectSnapshot
	EffectRestore
	EffectPlayContent
)

// Host event names raised through EffectTrigger.
const (
	TriggerReadyForPreroll  = "readyforpreroll"
	TriggerReadyForPostroll = "readyforpostroll"
	TriggerAdStart          = "adstart"
	TriggerAdEnd            = "adend"
	TriggerAdSkip           = "adskip"
	TriggerAdTimeout        = "adtimeout"
	TriggerContentPlayback  = "contentplayback"
	TriggerEnded            = "ended"
)

// Effect is one side effect of a step. Name is the trigger or timer name.
type Effect struct {
	Kind  EffectKind
	Name  string
	Delay time.Duration
}

func trigger(name string) Effect { return Effect{Kind: EffectTrigger, Name: name} }

func armTimer(name string, d time.Duration) Effect {
	return Effect{Kind: EffectArmTimer, Name: name, Delay: d}
}

// Step is the outcome of handing one event to the current state.
type Step struct {
	Next    State
	Effects []Effect
	// Follow is dispatched right after this step is applied.
	Follow EventKind
	// Entered is set when Next is a freshly initialized state; pending
	// timers of the previous state are then discarded.
	Entered bool
	// Ignored explains why the event had no effect.
	Ignored string
}
