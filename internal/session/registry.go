// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/ManuGH/vastplay/internal/config"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/metrics"
)

// Registry holds the live sessions of the process keyed by id.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	clock    clock.Clock
}

// NewRegistry returns an empty registry. A nil clock uses the wall clock.
func NewRegistry(c clock.Clock) *Registry {
	if c == nil {
		c = clock.New()
	}
	return &Registry{sessions: make(map[string]*Session), clock: c}
}

// Create starts a session for player and registers it.
func (r *Registry) Create(player Player, cfg config.AdsConfig, opts ...Option) *Session {
	opts = append([]Option{WithClock(r.clock)}, opts...)
	s := New(player, cfg, opts...)

	r.mu.Lock()
	if old, ok := r.sessions[s.ID()]; ok {
		old.Close()
		metrics.DecSessions()
	}
	r.sessions[s.ID()] = s
	r.mu.Unlock()

	metrics.IncSessions()
	return s
}

// Get returns the session with id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete closes and removes the session with id.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	metrics.DecSessions()
	return nil
}

// List returns the sessions ordered by creation time.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Created().Before(out[j].Created()) })
	return out
}

// Len returns the number of sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Sweep removes sessions idle for longer than maxIdle and returns their ids.
func (r *Registry) Sweep(maxIdle time.Duration) []string {
	cutoff := r.clock.Now().Add(-maxIdle)
	var stale []*Session

	r.mu.Lock()
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			stale = append(stale, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	ids := make([]string, 0, len(stale))
	for _, s := range stale {
		s.Close()
		metrics.DecSessions()
		ids = append(ids, s.ID())
	}
	if len(ids) > 0 {
		logger := xglog.WithComponent("session")
		logger.Info().
			Str(xglog.FieldEvent, "session.swept").
			Strs("ids", ids).
			Msg("idle sessions removed")
	}
	return ids
}

// CloseAll closes and removes every session.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
		metrics.DecSessions()
	}
}
