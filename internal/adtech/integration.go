// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/vastplay/internal/adbreak"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/metrics"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/vast"
)

// Ad events reported by the player surface while an ad plays.
const (
	AdEventTimeUpdate = "adtimeupdate"
	AdEventEnded      = "adended"
	AdEventSkipped    = "adskipped"
	AdEventError      = "aderror"
	AdEventClick      = "adclick"
)

// AdPlayer renders ads on the player surface.
type AdPlayer interface {
	PlayAd(spec AdSpec) error
	StopAd()
}

// Integration drives one session through ad requests and ad breaks.
type Integration struct {
	sess   *session.Session
	front  FrontEnd
	tr     Tracker
	ap     AdPlayer
	tag    string
	logger zerolog.Logger

	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	unsubscribe func()

	mu       sync.Mutex
	decision *Decision
	backend  Backend
	reqSeq   uint64
	srcAtReq string
}

// IntegrationOption configures an Integration.
type IntegrationOption func(*Integration)

// WithLogger sets the integration logger.
func WithLogger(l zerolog.Logger) IntegrationOption {
	return func(i *Integration) { i.logger = l }
}

// Attach binds an ad tag to s and requests ads right away. Close releases it.
func Attach(ctx context.Context, s *session.Session, front FrontEnd, tr Tracker, ap AdPlayer, tagURL string, opts ...IntegrationOption) *Integration {
	i := &Integration{
		sess:   s,
		front:  front,
		tr:     tr,
		ap:     ap,
		tag:    tagURL,
		logger: xglog.WithComponent("adtech"),
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.With().Str(xglog.FieldSessionID, s.ID()).Str(xglog.FieldAdTag, tagURL).Logger()
	i.ctx, i.cancel = context.WithCancel(context.WithoutCancel(ctx))
	i.unsubscribe = s.Subscribe(i.onTrigger)
	i.RequestAds()
	return i
}

// TagURL is the ad tag of the integration.
func (i *Integration) TagURL() string { return i.tag }

// Decision returns the current ad decision, if one has been made.
func (i *Integration) Decision() (Decision, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.decision == nil {
		return Decision{}, false
	}
	return *i.decision, true
}

// Active returns the backend of the ad that is playing, if any.
func (i *Integration) Active() (Backend, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.backend, i.backend != nil
}

// RequestAds asks the front-end for a decision, bounded by the session
// timeout, and reports adsready or adserror to the session. A newer
// request supersedes an older one.
func (i *Integration) RequestAds() {
	i.mu.Lock()
	i.reqSeq++
	seq := i.reqSeq
	i.decision = nil
	i.srcAtReq = i.sess.Player().CurrentSrc()
	i.mu.Unlock()

	timeout := i.sess.Config().Timeout
	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		ctx := i.ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		start := time.Now()
		d, err := i.front.Decide(ctx, i.tag)

		i.mu.Lock()
		stale := seq != i.reqSeq || i.ctx.Err() != nil
		if err == nil && !stale {
			i.decision = &d
		}
		i.mu.Unlock()
		if stale {
			return
		}

		if err != nil {
			i.logger.Warn().Err(err).
				Str(xglog.FieldEvent, "adtech.request_failed").
				Int(xglog.FieldErrorCode, vast.CodeOf(err)).
				Dur("duration", time.Since(start)).
				Msg("ad request failed")
			i.dispatch(adbreak.EvAdsError.String())
			return
		}
		i.logger.Info().
			Str(xglog.FieldEvent, "adtech.ads_ready").
			Str(xglog.FieldBackend, string(d.Backend)).
			Dur("duration", time.Since(start)).
			Msg("ad decision ready")
		i.dispatch(adbreak.EvAdsReady.String())
	}()
}

func (i *Integration) dispatch(name string) {
	if err := i.sess.HandleEvent(name); err != nil && !errors.Is(err, session.ErrClosed) {
		i.logger.Warn().Err(err).Str(xglog.FieldTrigger, name).Msg("session rejected event")
	}
}

func (i *Integration) onTrigger(name string) {
	switch name {
	case adbreak.TriggerReadyForPreroll:
		i.startAd()
	case adbreak.TriggerReadyForPostroll:
		// Postrolls are not requested separately.
		i.dispatch(adbreak.EvNoPostroll.String())
	case adbreak.TriggerAdTimeout:
		i.logger.Info().Str(xglog.FieldEvent, "adtech.timeout").Msg("ad wait timed out")
	}
}

func (i *Integration) startAd() {
	d, ok := i.Decision()
	if !ok {
		_ = i.sess.SkipLinearAdMode()
		return
	}
	b, err := NewBackend(d, i.tr)
	if err != nil {
		if d.Response != nil {
			i.tr.TrackError(i.ctx, d.Response.Errors, vast.CodeUnsupportedMedia)
		}
		i.logger.Warn().Err(err).Str(xglog.FieldBackend, string(d.Backend)).Msg("no backend for decision")
		i.dispatch(adbreak.EvAdsError.String())
		return
	}

	i.mu.Lock()
	i.backend = b
	i.mu.Unlock()
	if err := i.sess.StartLinearAdMode(); err != nil {
		i.clearBackend()
		return
	}
	if err := i.ap.PlayAd(b.Spec()); err != nil {
		i.logger.Warn().Err(err).
			Str(xglog.FieldEvent, "adtech.play_failed").
			Str(xglog.FieldBackend, string(b.Kind())).
			Msg("ad playback failed to start")
		i.clearBackend()
		b.Failed(i.ctx, vast.CodeMediaDisplay)
		_ = i.sess.EndLinearAdMode()
		return
	}
	metrics.RecordBackendStart(string(b.Kind()))
	b.Started(i.ctx)
}

func (i *Integration) clearBackend() Backend {
	i.mu.Lock()
	defer i.mu.Unlock()
	b := i.backend
	i.backend = nil
	return b
}

// HandleEvent routes a player event: ad events go to the playing backend,
// everything else to the session.
func (i *Integration) HandleEvent(name string, pos time.Duration) error {
	switch name {
	case AdEventTimeUpdate:
		if b, ok := i.Active(); ok {
			b.Progress(i.ctx, pos)
		}
		return nil
	case AdEventClick:
		if b, ok := i.Active(); ok {
			b.Clicked(i.ctx)
		}
		return nil
	case AdEventEnded:
		return i.endAd(func(b Backend) { b.Ended(i.ctx) })
	case AdEventSkipped:
		return i.endAd(func(b Backend) { b.Skipped(i.ctx) })
	case AdEventError:
		return i.endAd(func(b Backend) { b.Failed(i.ctx, vast.CodeMediaDisplay) })
	}

	err := i.sess.HandleEvent(name)
	if err == nil && name == session.EventLoadStart {
		i.mu.Lock()
		changed := i.srcAtReq != i.sess.Player().CurrentSrc()
		i.mu.Unlock()
		if changed {
			i.RequestAds()
		}
	}
	return err
}

func (i *Integration) endAd(report func(Backend)) error {
	b := i.clearBackend()
	if b == nil {
		return nil
	}
	report(b)
	i.ap.StopAd()
	return i.sess.EndLinearAdMode()
}

// Close cancels pending requests and stops a playing ad.
func (i *Integration) Close() {
	i.cancel()
	i.unsubscribe()
	i.wg.Wait()
	if b := i.clearBackend(); b != nil {
		i.ap.StopAd()
	}
}
