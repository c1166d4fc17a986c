// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package api implements the vastplay control API: session lifecycle, the
// websocket player bus and debug ad tag resolution.
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/ManuGH/vastplay/internal/adtech"
	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/health"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/session"
)

// ErrServerClosed is returned for requests after Close.
var ErrServerClosed = errors.New("api: server closed")

// ConfigSource yields the current configuration. config.Holder satisfies it.
type ConfigSource interface {
	Get() config.AppConfig
}

// Deps are the collaborators of the server.
type Deps struct {
	Config   ConfigSource
	Registry *session.Registry
	Resolver adtech.Resolver
	Tracker  adtech.Tracker
	Health   *health.Manager
	Logger   *zerolog.Logger
}

// Server serves the control API.
type Server struct {
	cfg      ConfigSource
	registry *session.Registry
	resolver adtech.Resolver
	tracker  adtech.Tracker
	health   *health.Manager
	logger   zerolog.Logger
	upgrader websocket.Upgrader
	router   chi.Router

	mu      sync.Mutex
	bridges map[string]*bridge
	closed  bool
}

// bridge ties a session to its remote player and ad integration.
type bridge struct {
	sess      *session.Session
	player    *remotePlayer
	integ     *adtech.Integration
	connected atomic.Bool
}

func (b *bridge) close() {
	b.integ.Close()
	b.player.close()
}

// New creates the server and its router.
func New(deps Deps) *Server {
	s := &Server{
		cfg:      deps.Config,
		registry: deps.Registry,
		resolver: deps.Resolver,
		tracker:  deps.Tracker,
		health:   deps.Health,
		logger:   xglog.WithComponent("api"),
		bridges:  make(map[string]*bridge),
	}
	if deps.Logger != nil {
		s.logger = *deps.Logger
	}
	if s.health == nil {
		s.health = health.NewManager(s.cfg.Get().Version)
	}
	s.health.RegisterDetail("sessions", func() interface{} { return s.registry.Len() })
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler of the API.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) bridge(id string) (*bridge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bridges[id]
	return b, ok
}

func (s *Server) addBridge(b *bridge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrServerClosed
	}
	s.bridges[b.sess.ID()] = b
	return nil
}

func (s *Server) removeBridge(id string) (*bridge, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bridges[id]
	delete(s.bridges, id)
	return b, ok
}

// deleteSession releases the integration before the session goes away.
func (s *Server) deleteSession(id string) error {
	b, ok := s.removeBridge(id)
	if ok {
		b.integ.Close()
	}
	err := s.registry.Delete(id)
	if ok {
		b.player.close()
	}
	return err
}

// Sweep removes sessions idle for longer than maxIdle.
func (s *Server) Sweep(maxIdle time.Duration) int {
	ids := s.registry.Sweep(maxIdle)
	for _, id := range ids {
		if b, ok := s.removeBridge(id); ok {
			b.close()
		}
	}
	return len(ids)
}

// RunJanitor sweeps idle sessions every interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(maxIdle)
		}
	}
}

// Close ends every session. The server rejects new sessions afterwards.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	bridges := s.bridges
	s.bridges = make(map[string]*bridge)
	s.mu.Unlock()

	for _, b := range bridges {
		b.integ.Close()
	}
	s.registry.CloseAll()
	for _, b := range bridges {
		b.player.close()
	}
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := s.cfg.Get().API.AllowedOrigins
	if len(allowed) == 0 {
		return sameHost(origin, r.Host)
	}
	for _, o := range allowed {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}
