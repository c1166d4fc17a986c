// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

var (
	trackingPings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_tracking_pings_total",
		Help: "Tracking and error URLs fired, by kind and result",
	}, []string{"kind", "result"})

	adBreakTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_adbreak_transitions_total",
		Help: "Ad-break state machine transitions",
	}, []string{"from", "to", "event"})

	adBreakIllegal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_adbreak_illegal_transitions_total",
		Help: "Transitions rejected by the ad-break transition table",
	}, []string{"from", "to"})

	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vastplay_sessions_active",
		Help: "Number of registered playback sessions",
	})

	adBackendStarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vastplay_ad_backend_starts_total",
		Help: "Ad playbacks handed to an ad-technology backend",
	}, []string{"backend"})
)

// RecordTrackingPing counts a fired tracking URL.
func RecordTrackingPing(kind, result string) {
	trackingPings.WithLabelValues(kind, result).Inc()
}

// RecordAdBreakTransition counts a state machine transition.
func RecordAdBreakTransition(from, to, event string) {
	adBreakTransitions.WithLabelValues(from, to, event).Inc()
}

// RecordIllegalTransition counts a transition that the table rejected.
func RecordIllegalTransition(from, to string) {
	adBreakIllegal.WithLabelValues(from, to).Inc()
}

// IncSessions and DecSessions track the session registry size.
func IncSessions() { sessionsActive.Inc() }

// DecSessions decrements the active session gauge.
func DecSessions() { sessionsActive.Dec() }

// ActiveSessions returns the current value of the session gauge (for testing).
func ActiveSessions() float64 {
	var m dto.Metric
	if err := sessionsActive.Write(&m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// RecordBackendStart counts an ad handed to a backend.
func RecordBackendStart(backend string) {
	adBackendStarts.WithLabelValues(backend).Inc()
}
