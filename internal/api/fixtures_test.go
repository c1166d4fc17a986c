// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/health"
	"github.com/ManuGH/vastplay/internal/macros"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/transport"
	"github.com/ManuGH/vastplay/internal/vast"
)

type staticConfig struct{ cfg config.AppConfig }

func (c staticConfig) Get() config.AppConfig { return c.cfg }

type testTracker struct {
	mu    sync.Mutex
	kinds []string
	urls  []string
	codes []int
}

func (t *testTracker) TrackAsync(_ context.Context, kind string, templates []string, _ macros.Values) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kinds = append(t.kinds, kind)
	t.urls = append(t.urls, templates...)
}

func (t *testTracker) TrackError(_ context.Context, templates []string, code int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.kinds = append(t.kinds, "error")
	t.urls = append(t.urls, templates...)
	t.codes = append(t.codes, code)
}

func (t *testTracker) tracked() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.urls...)
}

const inlineXML = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0"><Ad id="in-1"><InLine>
  <AdSystem>test</AdSystem>
  <AdTitle>test ad</AdTitle>
  <Error><![CDATA[http://t.example/err?code=[ERRORCODE]]]></Error>
  <Impression><![CDATA[http://t.example/imp]]></Impression>
  <Creatives><Creative id="c-1"><Linear skipoffset="00:00:05">
    <Duration>00:00:30</Duration>
    <TrackingEvents>
      <Tracking event="start">http://t.example/start</Tracking>
      <Tracking event="complete">http://t.example/complete</Tracking>
    </TrackingEvents>
    <VideoClicks><ClickThrough>http://advertiser.example/</ClickThrough></VideoClicks>
    <MediaFiles>
      <MediaFile type="video/mp4" delivery="progressive" width="640" height="360" bitrate="800"><![CDATA[http://media.example/ad.mp4]]></MediaFile>
    </MediaFiles>
  </Linear></Creative></Creatives>
</InLine></Ad></VAST>`

const wrapperXML = `<?xml version="1.0" encoding="UTF-8"?>
<VAST version="3.0"><Ad id="wr-1"><Wrapper>
  <AdSystem>wrap</AdSystem>
  <VASTAdTagURI><![CDATA[%s/inline]]></VASTAdTagURI>
  <Impression>http://t.example/wrapper-imp</Impression>
</Wrapper></Ad></VAST>`

// newAdServer serves a wrapper at /tag pointing to an inline ad, an
// empty document at /empty and a tag that never answers at /hang.
func newAdServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/tag", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = fmt.Fprintf(w, wrapperXML, srv.URL)
	})
	mux.HandleFunc("/inline", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, inlineXML)
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `<VAST version="3.0"></VAST>`)
	})
	mux.HandleFunc("/hang", func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	return srv
}

type testEnv struct {
	server  *Server
	api     *httptest.Server
	ads     *httptest.Server
	tracker *testTracker
}

type envOption func(*config.AppConfig, *testEnvDeps)

type testEnvDeps struct {
	clock clock.Clock
}

func withClock(c clock.Clock) envOption {
	return func(_ *config.AppConfig, d *testEnvDeps) { d.clock = c }
}

func withConfig(fn func(*config.AppConfig)) envOption {
	return func(c *config.AppConfig, _ *testEnvDeps) { fn(c) }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	cfg := config.Defaults()
	cfg.Version = "test"
	cfg.API.RateLimitRPM = 0
	deps := testEnvDeps{}
	for _, opt := range opts {
		opt(&cfg, &deps)
	}

	tr := &testTracker{}
	client := vast.NewClient(transport.New(), tr, vast.NewEnvironment(cfg.VAST.MediaTypes), vast.Config{
		Limits: vast.Limits{WrapperLimit: cfg.Ads.WrapperLimit, RequestTimeout: 2 * time.Second},
	})
	srv := New(Deps{
		Config:   staticConfig{cfg: cfg},
		Registry: session.NewRegistry(deps.clock),
		Resolver: client,
		Tracker:  tr,
		Health:   health.NewManager(cfg.Version),
	})
	api := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		api.Close()
		srv.Close()
	})
	return &testEnv{server: srv, api: api, ads: newAdServer(t), tracker: tr}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, e.api.URL+path, rd)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (e *testEnv) createSession(t *testing.T, req CreateSessionRequest) SessionResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[SessionResponse](t, resp)
}

func (e *testEnv) getSession(t *testing.T, id string) SessionResponse {
	t.Helper()
	resp := e.do(t, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[SessionResponse](t, resp)
}

func (e *testEnv) event(t *testing.T, id string, ev EventRequest) EventResponse {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/v1/sessions/"+id+"/events", ev)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return decode[EventResponse](t, resp)
}

func vodPlayer() PlayerState {
	return PlayerState{Src: "http://content.example/movie.mp4", Duration: 600}
}

func messageNames(msgs []OutMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Type+":"+m.Name)
	}
	return out
}
