// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ManuGH/vastplay/internal/adbreak"
	"github.com/ManuGH/vastplay/internal/adtech"
	"github.com/ManuGH/vastplay/internal/config"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/validate"
	"github.com/ManuGH/vastplay/internal/vast"
)

const maxBodyBytes = 64 << 10

// Front-end names accepted at session creation.
const (
	FrontEndTag      = "tag"
	FrontEndResponse = "response"
)

// SettingsOverride replaces individual ad settings of a session. Times are
// milliseconds.
type SettingsOverride struct {
	Timeout         *int  `json:"timeout,omitempty"`
	PrerollTimeout  *int  `json:"prerollTimeout,omitempty"`
	PostrollTimeout *int  `json:"postrollTimeout,omitempty"`
	Debug           *bool `json:"debug,omitempty"`
	StitchedAds     *bool `json:"stitchedAds,omitempty"`
	ContentIsLive   *bool `json:"contentIsLive,omitempty"`
	LiveCuePoints   *bool `json:"liveCuePoints,omitempty"`
	AllowAutoplay   *bool `json:"allowAutoplay,omitempty"`
	WrapperLimit    *int  `json:"wrapperLimit,omitempty"`
}

// maxSettingMillis bounds the millisecond overrides a client may send.
const maxSettingMillis = 60 * 60 * 1000

func millis(v int) time.Duration {
	v = min(max(v, 0), maxSettingMillis)
	return time.Duration(v) * time.Millisecond
}

func (o *SettingsOverride) apply(base config.AdsConfig) config.AdsConfig {
	if o == nil {
		return base
	}
	out := base
	if o.Timeout != nil {
		out.Timeout = millis(*o.Timeout)
	}
	if o.PrerollTimeout != nil {
		d := millis(*o.PrerollTimeout)
		out.PrerollTimeout = &d
	}
	if o.PostrollTimeout != nil {
		d := millis(*o.PostrollTimeout)
		out.PostrollTimeout = &d
	}
	if o.Debug != nil {
		out.Debug = *o.Debug
	}
	if o.StitchedAds != nil {
		out.StitchedAds = *o.StitchedAds
	}
	if o.ContentIsLive != nil {
		live := *o.ContentIsLive
		out.ContentIsLive = &live
	}
	if o.LiveCuePoints != nil {
		out.LiveCuePoints = *o.LiveCuePoints
	}
	if o.AllowAutoplay != nil {
		out.AllowAutoplay = *o.AllowAutoplay
	}
	if o.WrapperLimit != nil {
		out.WrapperLimit = *o.WrapperLimit
	}
	return out
}

// CreateSessionRequest starts a session.
type CreateSessionRequest struct {
	AdTag    string            `json:"adTag"`
	FrontEnd string            `json:"frontEnd,omitempty"`
	Player   PlayerState       `json:"player"`
	Settings *SettingsOverride `json:"settings,omitempty"`
}

func (req CreateSessionRequest) validate(ads config.AdsConfig) error {
	v := validate.New()
	if req.AdTag != "" {
		v.URL("adTag", req.AdTag, []string{"http", "https"})
	}
	if req.FrontEnd != "" {
		v.OneOf("frontEnd", req.FrontEnd, []string{FrontEndTag, FrontEndResponse})
	}
	if o := req.Settings; o != nil {
		for _, f := range []struct {
			name string
			ms   *int
		}{
			{"settings.timeout", o.Timeout},
			{"settings.prerollTimeout", o.PrerollTimeout},
			{"settings.postrollTimeout", o.PostrollTimeout},
		} {
			if f.ms != nil {
				v.Range(f.name, *f.ms, 1, maxSettingMillis)
			}
		}
	}
	v.PositiveDuration("settings.timeout", ads.Timeout)
	v.OptionalDuration("settings.prerollTimeout", ads.PrerollTimeout)
	v.OptionalDuration("settings.postrollTimeout", ads.PostrollTimeout)
	v.Range("settings.wrapperLimit", ads.WrapperLimit, 1, 20)
	return v.Err()
}

// SessionResponse describes a session.
type SessionResponse struct {
	session.Status
	AdTag     string `json:"adTag"`
	Backend   string `json:"backend,omitempty"`
	AdPlaying bool   `json:"adPlaying"`
	Connected bool   `json:"connected"`
	BusURL    string `json:"busUrl"`
}

func (s *Server) describe(b *bridge) SessionResponse {
	resp := SessionResponse{
		Status:    b.sess.Status(),
		AdTag:     b.integ.TagURL(),
		Connected: b.connected.Load(),
		BusURL:    "/api/v1/sessions/" + b.sess.ID() + "/ws",
	}
	if d, ok := b.integ.Decision(); ok {
		resp.Backend = string(d.Backend)
	}
	_, resp.AdPlaying = b.integ.Active()
	return resp
}

func (s *Server) frontEnd(name string, ads config.AdsConfig) adtech.FrontEnd {
	limits := vast.Limits{WrapperLimit: ads.WrapperLimit}
	if name == FrontEndResponse {
		return adtech.ResponseFrontEnd{Resolver: s.resolver, Limits: limits}
	}
	return adtech.TagFrontEnd{Resolver: s.resolver, Limits: limits}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	ads := req.Settings.apply(s.cfg.Get().Ads)
	if err := req.validate(ads); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	id := uuid.NewString()
	player := newRemotePlayer(req.Player, s.logger.With().Str(xglog.FieldSessionID, id).Logger())
	sess := s.registry.Create(player, ads, session.WithID(id))
	b := &bridge{sess: sess, player: player}
	b.integ = adtech.Attach(r.Context(), sess, s.frontEnd(req.FrontEnd, ads), s.tracker, player, req.AdTag,
		adtech.WithLogger(xglog.WithComponentFromContext(r.Context(), "adtech")))

	if err := s.addBridge(b); err != nil {
		b.integ.Close()
		_ = s.registry.Delete(sess.ID())
		player.close()
		writeServiceUnavailable(w, err)
		return
	}

	s.logger.Info().
		Str(xglog.FieldEvent, "session.created").
		Str(xglog.FieldSessionID, sess.ID()).
		Str(xglog.FieldAdTag, req.AdTag).
		Str("front_end", req.FrontEnd).
		Msg("session created")
	writeJSON(w, http.StatusCreated, s.describe(b))
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	out := make([]SessionResponse, 0, s.registry.Len())
	for _, sess := range s.registry.List() {
		if b, ok := s.bridge(sess.ID()); ok {
			out = append(out, s.describe(b))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	b, ok := s.bridge(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.describe(b))
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deleteSession(id); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			writeNotFound(w)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info().Str(xglog.FieldEvent, "session.deleted").Str(xglog.FieldSessionID, id).Msg("session deleted")
	w.WriteHeader(http.StatusNoContent)
}

// EventRequest reports one player event, optionally with fresh player state.
type EventRequest struct {
	Name  string       `json:"name"`
	State *PlayerState `json:"state,omitempty"`
}

// EventResponse carries the session after the event and, when no bus is
// connected, the player messages the event produced.
type EventResponse struct {
	Session  SessionResponse `json:"session"`
	Messages []OutMessage    `json:"messages,omitempty"`
}

// applyEvent feeds ev into the integration of b. A content play that
// arrives while an ad decision is pending is paused here; the session
// sends a play command once content may run.
func (s *Server) applyEvent(b *bridge, ev EventRequest) error {
	if ev.State != nil {
		b.player.update(*ev.State)
	}
	if ev.Name == adbreak.EvPlay.String() && !b.sess.RequestPlay() {
		if err := b.player.Pause(); err != nil {
			return err
		}
		s.logger.Debug().
			Str(xglog.FieldEvent, "session.play_blocked").
			Str(xglog.FieldSessionID, b.sess.ID()).
			Msg("content play blocked until the ad decision")
	}
	return b.integ.HandleEvent(ev.Name, b.player.Position())
}

func eventStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone
	case errors.Is(err, adbreak.ErrIllegalTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handlePostEvent(w http.ResponseWriter, r *http.Request) {
	b, ok := s.bridge(chi.URLParam(r, "id"))
	if !ok {
		writeNotFound(w)
		return
	}
	var ev EventRequest
	if err := decodeJSON(w, r, &ev); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if ev.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("event name is required"))
		return
	}
	if err := s.applyEvent(b, ev); err != nil {
		writeError(w, eventStatus(err), err)
		return
	}

	resp := EventResponse{Session: s.describe(b)}
	if !b.connected.Load() {
		resp.Messages = b.player.drain()
	}
	writeJSON(w, http.StatusOK, resp)
}
