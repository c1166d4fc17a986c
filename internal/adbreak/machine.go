// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/metrics"
)

var (
	// ErrIllegalTransition is returned when a step leaves the transition table.
	ErrIllegalTransition = errors.New("adbreak: illegal transition")
	// ErrStopped is returned by Dispatch after Stop.
	ErrStopped = errors.New("adbreak: machine stopped")
)

// Host carries out the effects of the machine on a player.
type Host interface {
	Trigger(name string)
	TakeSnapshot()
	RestoreSnapshot()
	PlayContent()
}

// Option configures a Machine.
type Option func(*Machine)

// WithClock sets the clock used for timers.
func WithClock(c clock.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the machine logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.logger = l }
}

// WithSessionID tags log entries with the owning session.
func WithSessionID(id string) Option {
	return func(m *Machine) { m.sessionID = id }
}

// Machine owns the State of one session. Events are applied one at a
// time; host effects run outside the lock so the host may dispatch from
// its callbacks.
type Machine struct {
	mu        sync.Mutex
	cfg       Settings
	state     State
	host      Host
	clock     clock.Clock
	timer     *clock.Timer
	timerSeq  uint64
	stopped   bool
	logger    zerolog.Logger
	sessionID string
}

// New returns a machine in the initial state for cfg.
func New(cfg Settings, host Host, opts ...Option) *Machine {
	m := &Machine{
		cfg:    cfg,
		host:   host,
		clock:  clock.New(),
		logger: xglog.WithComponent("adbreak"),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.sessionID != "" {
		m.logger = m.logger.With().Str(xglog.FieldSessionID, m.sessionID).Logger()
	}
	m.state = Initial(cfg).Next
	return m
}

// Settings returns the machine configuration.
func (m *Machine) Settings() Settings { return m.cfg }

// State returns a copy of the current state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Kind and the queries below read the current state.
func (m *Machine) Kind() Kind                { return m.State().Kind }
func (m *Machine) IsAdState() bool           { return m.Kind().IsAdState() }
func (m *Machine) InAdBreak() bool           { return m.Kind().InAdBreak() }
func (m *Machine) IsWaitingForAdBreak() bool { return m.Kind().IsWaitingForAdBreak() }
func (m *Machine) IsContentResuming() bool   { return m.Kind().IsContentResuming() }
func (m *Machine) ShouldBlockPlay() bool     { return m.State().ShouldBlockPlay }

// Dispatch hands ev to the current state and runs the resulting effects.
// The returned state reflects any events the host dispatched from them.
func (m *Machine) Dispatch(ev EventKind) (State, error) {
	return m.dispatch(ev, nil)
}

func (m *Machine) dispatch(ev EventKind, guard func() bool) (State, error) {
	m.mu.Lock()
	if m.stopped {
		st := m.state
		m.mu.Unlock()
		return st, ErrStopped
	}
	if guard != nil && !guard() {
		st := m.state
		m.mu.Unlock()
		return st, nil
	}
	step, err := m.applyLocked(ev)
	m.mu.Unlock()

	m.run(step.Effects)
	if step.Follow != EvNone {
		_, ferr := m.Dispatch(step.Follow)
		err = errors.Join(err, ferr)
	}
	return m.State(), err
}

func (m *Machine) applyLocked(ev EventKind) (Step, error) {
	from := m.state
	step := Next(from, ev, m.cfg)
	if step.Ignored != "" {
		xglog.DebugEvent(&m.logger, m.cfg.Debug).
			Str(xglog.FieldEvent, "adbreak.ignored").
			Str(xglog.FieldOldState, from.Kind.String()).
			Str(xglog.FieldTrigger, ev.String()).
			Str("reason", step.Ignored).
			Msg("event ignored")
		return Step{Next: from}, nil
	}

	var err error
	if !Allowed(from.Kind, step.Next.Kind, ev) {
		metrics.RecordIllegalTransition(from.Kind.String(), step.Next.Kind.String())
		m.logger.Error().
			Str(xglog.FieldEvent, "adbreak.illegal_transition").
			Str(xglog.FieldOldState, from.Kind.String()).
			Str(xglog.FieldNewState, step.Next.Kind.String()).
			Str(xglog.FieldTrigger, ev.String()).
			Msg("illegal transition")
		step, err = illegalTransition(from, step.Next.Kind, ev, m.cfg)
	}

	step.Effects = m.commitLocked(from, step, ev)
	return step, err
}

// commitLocked installs step.Next, arms timers and returns the effects
// left for the host.
func (m *Machine) commitLocked(from State, step Step, ev EventKind) []Effect {
	next := step.Next
	if step.Entered {
		next.epoch = from.epoch + 1
		m.stopTimerLocked()
	}
	m.state = next

	if step.Entered {
		metrics.RecordAdBreakTransition(from.Kind.String(), next.Kind.String(), ev.String())
		xglog.DebugEvent(&m.logger, m.cfg.Debug).
			Str(xglog.FieldEvent, "adbreak.transition").
			Str(xglog.FieldOldState, from.Kind.String()).
			Str(xglog.FieldNewState, next.Kind.String()).
			Str(xglog.FieldTrigger, ev.String()).
			Msg("state transition")
	}

	var host []Effect
	for _, eff := range step.Effects {
		if eff.Kind == EffectArmTimer {
			m.armTimerLocked(eff.Name, eff.Delay)
			continue
		}
		host = append(host, eff)
	}
	return host
}

func (m *Machine) armTimerLocked(name string, d time.Duration) {
	m.stopTimerLocked()
	if d <= 0 {
		return
	}
	seq := m.timerSeq
	epoch := m.state.epoch
	m.timer = m.clock.AfterFunc(d, func() {
		_, _ = m.dispatch(EvAdTimeout, func() bool {
			return m.timerSeq == seq && m.state.epoch == epoch
		})
	})
	xglog.DebugEvent(&m.logger, m.cfg.Debug).
		Str(xglog.FieldEvent, "adbreak.timer_armed").
		Str("timer", name).
		Dur("delay", d).
		Msg("timer armed")
}

// stopTimerLocked cancels the pending timer. A callback that already
// fired is discarded by its sequence check.
func (m *Machine) stopTimerLocked() {
	m.timerSeq++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Machine) run(effects []Effect) {
	if m.host == nil {
		return
	}
	for _, eff := range effects {
		switch eff.Kind {
		case EffectTrigger:
			m.host.Trigger(eff.Name)
		case EffectSnapshot:
			m.host.TakeSnapshot()
		case EffectRestore:
			m.host.RestoreSnapshot()
		case EffectPlayContent:
			m.host.PlayContent()
		}
	}
}

// RequestPlay records a play request and reports whether content may play
// now. A refused request is remembered and replayed when content resumes.
func (m *Machine) RequestPlay() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return true
	}
	next := m.state
	next.PlayRequested = true
	blocked := next.ShouldBlockPlay
	if blocked {
		next.PlayBlocked = true
	}
	m.state = next
	return !blocked
}

// Reset returns the machine to its initial state, dropping pending timers.
// A stopped machine stays stopped.
func (m *Machine) Reset() State {
	m.mu.Lock()
	from := m.state
	if m.stopped {
		m.mu.Unlock()
		return from
	}
	step := Initial(m.cfg)
	step.Next.epoch = from.epoch
	effects := m.commitLocked(from, step, EvNone)
	st := m.state
	m.mu.Unlock()
	m.run(effects)
	return st
}

// Stop cancels timers and rejects further events.
func (m *Machine) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
	m.stopTimerLocked()
}
