// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ManuGH/vastplay/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func scrape(t *testing.T) string {
	t.Helper()
	recorder := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	promhttp.Handler().ServeHTTP(recorder, req)
	return recorder.Body.String()
}

func TestResolutionMetricsExposed(t *testing.T) {
	metrics.RecordResolution("success", 0, 3)
	metrics.RecordResolution("failure", 303, 0)
	metrics.RecordCandidateFailure(101)
	metrics.ObserveFetch("ok", 20*time.Millisecond)
	metrics.RecordDocumentCache(true)

	body := scrape(t)
	for _, want := range []string{
		`vastplay_vast_resolutions_total{code="303",outcome="failure"}`,
		`vastplay_vast_candidate_failures_total{code="101"}`,
		`vastplay_vast_chain_length_bucket`,
		`vastplay_vast_fetch_duration_seconds_bucket`,
		`vastplay_vast_document_cache_total{result="hit"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestPlaybackMetricsExposed(t *testing.T) {
	metrics.RecordTrackingPing("error", "ok")
	metrics.RecordAdBreakTransition("preroll", "linear_ad_break", "start_linear_ad_mode")
	metrics.RecordIllegalTransition("ads_done", "preroll")
	metrics.IncSessions()
	metrics.DecSessions()
	metrics.RecordBackendStart("native")

	body := scrape(t)
	for _, want := range []string{
		`vastplay_tracking_pings_total{kind="error",result="ok"}`,
		`vastplay_adbreak_transitions_total{event="start_linear_ad_mode",from="preroll",to="linear_ad_break"}`,
		`vastplay_adbreak_illegal_transitions_total{from="ads_done",to="preroll"}`,
		`vastplay_sessions_active 0`,
		`vastplay_ad_backend_starts_total{backend="native"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestCircuitBreakerStateIsOneHot(t *testing.T) {
	metrics.SetCircuitBreakerState("ads.example.com", "open")

	body := scrape(t)
	if !strings.Contains(body, `vastplay_circuit_breaker_state{component="ads.example.com",state="open"} 1`) {
		t.Error("expected open state to be 1")
	}
	if !strings.Contains(body, `vastplay_circuit_breaker_state{component="ads.example.com",state="closed"} 0`) {
		t.Error("expected closed state to be 0")
	}
}
