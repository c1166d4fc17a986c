// SPDX-License-Identifier: MIT

package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/vastplay/internal/api/middleware"
)

func (s *Server) routes() chi.Router {
	cfg := s.cfg.Get()
	stack := middleware.StackConfig{
		EnableCORS:            true,
		AllowedOrigins:        cfg.API.AllowedOrigins,
		EnableSecurityHeaders: true,
		EnableMetrics:         true,
		EnableLogging:         true,
		RateLimitRPM:          cfg.API.RateLimitRPM,
	}
	if cfg.Telemetry.Enabled {
		stack.TracingService = cfg.LogService
	}
	r := middleware.NewRouter(stack)

	r.Get("/healthz", s.health.ServeHealth)
	r.Get("/readyz", s.health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/resolve", s.handleResolve)
		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleDeleteSession)
				r.Post("/events", s.handlePostEvent)
				r.Get("/ws", s.handleBus)
			})
		})
	})
	return r
}
