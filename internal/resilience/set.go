// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package resilience

import (
	"sync"
	"time"
)

// Set hands out one breaker per key, typically an ad server host.
type Set struct {
	mu           sync.Mutex
	breakers     map[string]*CircuitBreaker
	threshold    int
	resetTimeout time.Duration
	opts         []Option
}

// NewSet creates an empty set whose breakers share the given settings.
func NewSet(threshold int, resetTimeout time.Duration, opts ...Option) *Set {
	return &Set{
		breakers:     make(map[string]*CircuitBreaker),
		threshold:    threshold,
		resetTimeout: resetTimeout,
		opts:         opts,
	}
}

// For returns the breaker for key, creating it on first use.
func (s *Set) For(key string) *CircuitBreaker {
	s.mu.Lock()
	defer s.mu.Unlock()
	cb, ok := s.breakers[key]
	if !ok {
		cb = NewCircuitBreaker(key, s.threshold, s.resetTimeout, s.opts...)
		s.breakers[key] = cb
	}
	return cb
}

// States returns the current state of every breaker in the set.
func (s *Set) States() map[string]State {
	s.mu.Lock()
	breakers := make(map[string]*CircuitBreaker, len(s.breakers))
	for k, cb := range s.breakers {
		breakers[k] = cb
	}
	s.mu.Unlock()

	out := make(map[string]State, len(breakers))
	for k, cb := range breakers {
		out[k] = cb.State()
	}
	return out
}
