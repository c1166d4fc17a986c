// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/vastplay/internal/adbreak"
	"github.com/ManuGH/vastplay/internal/config"
	"github.com/ManuGH/vastplay/internal/session"
	"github.com/ManuGH/vastplay/internal/vast"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	player  *contentPlayer
	sess    *session.Session
	integ   *Integration
	tracker *fakeTracker
	ads     *fakeAdPlayer
	res     *fakeResolver
}

func newFixture(t *testing.T, res *fakeResolver, ads *fakeAdPlayer) *fixture {
	t.Helper()
	if ads == nil {
		ads = &fakeAdPlayer{}
	}
	f := &fixture{player: &contentPlayer{src: "content.mp4"}, tracker: &fakeTracker{}, ads: ads, res: res}
	f.sess = session.New(f.player, config.AdsConfig{Timeout: time.Second, LiveCuePoints: true},
		session.WithLogger(zerolog.Nop()))
	f.integ = Attach(context.Background(), f.sess, ResponseFrontEnd{Resolver: res}, f.tracker, f.ads,
		"http://ads.example/tag", WithLogger(zerolog.Nop()))
	t.Cleanup(func() {
		f.integ.Close()
		f.sess.Close()
	})
	return f
}

func (f *fixture) kind() adbreak.Kind { return f.sess.Machine().Kind() }

func (f *fixture) waitAdsReady(t *testing.T) {
	t.Helper()
	require.Eventually(t, func() bool { return f.sess.Machine().State().AdsReady }, time.Second, 5*time.Millisecond)
}

func TestIntegration_PrerollPlaysAndResumes(t *testing.T) {
	f := newFixture(t, &fakeResolver{resp: wrapped(testResponse())}, nil)
	f.waitAdsReady(t)

	require.NoError(t, f.integ.HandleEvent("play", 0))
	assert.Equal(t, adbreak.KindLinearAdBreak, f.kind())
	specs := f.ads.playedSpecs()
	require.Len(t, specs, 1)
	assert.Equal(t, KindNative, specs[0].Backend)
	assert.Equal(t, "http://media.example/ad.mp4", specs[0].MediaURL)

	require.NoError(t, f.integ.HandleEvent(AdEventTimeUpdate, 12*time.Second))
	require.NoError(t, f.integ.HandleEvent(AdEventEnded, 0))

	assert.Equal(t, adbreak.KindContentPlayback, f.kind())
	assert.Equal(t, 1, f.ads.stopped)
	urls := f.tracker.urls()
	assert.Contains(t, urls, "http://t.example/imp")
	assert.Contains(t, urls, "http://t.example/q1")
	assert.Contains(t, urls, "http://t.example/complete")
	_, active := f.integ.Active()
	assert.False(t, active)
}

func TestIntegration_RequestFailureResumesContent(t *testing.T) {
	f := newFixture(t, &fakeResolver{err: &vast.Error{Kind: vast.KindNoAd, Code: vast.CodeNoAd}}, nil)
	require.Eventually(t, func() bool {
		return f.sess.Machine().State().ShouldResumeToContent
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, f.integ.HandleEvent("play", 0))
	assert.Equal(t, adbreak.KindContentPlayback, f.kind())
	assert.Empty(t, f.ads.playedSpecs())
	_, ok := f.integ.Decision()
	assert.False(t, ok)
}

func TestIntegration_AdPlaybackFailure(t *testing.T) {
	f := newFixture(t, &fakeResolver{resp: wrapped(testResponse())}, &fakeAdPlayer{err: errors.New("decoder gone")})
	f.waitAdsReady(t)

	require.NoError(t, f.integ.HandleEvent("play", 0))
	assert.Equal(t, adbreak.KindContentPlayback, f.kind())
	assert.Equal(t, []int{vast.CodeMediaDisplay}, f.tracker.errorCodes())
}

func TestIntegration_AdErrorEndsBreak(t *testing.T) {
	f := newFixture(t, &fakeResolver{resp: wrapped(testResponse())}, nil)
	f.waitAdsReady(t)

	require.NoError(t, f.integ.HandleEvent("play", 0))
	require.NoError(t, f.integ.HandleEvent(AdEventError, 0))
	assert.Equal(t, adbreak.KindContentPlayback, f.kind())
	assert.Equal(t, []int{vast.CodeMediaDisplay}, f.tracker.errorCodes())

	require.NoError(t, f.integ.HandleEvent(AdEventEnded, 0), "no ad is active")
}

func TestIntegration_PostrollAnsweredWithNoPostroll(t *testing.T) {
	f := newFixture(t, &fakeResolver{resp: wrapped(testResponse())}, nil)
	f.waitAdsReady(t)

	require.NoError(t, f.integ.HandleEvent("play", 0))
	require.NoError(t, f.integ.HandleEvent(AdEventSkipped, 0))
	require.Equal(t, adbreak.KindContentPlayback, f.kind())

	require.NoError(t, f.integ.HandleEvent("ended", 0))
	assert.Equal(t, adbreak.KindAdsDone, f.kind())
	assert.Contains(t, f.tracker.urls(), "http://t.example/skip")
}

func TestIntegration_SourceChangeRequestsAgain(t *testing.T) {
	f := newFixture(t, &fakeResolver{resp: wrapped(testResponse())}, nil)
	f.waitAdsReady(t)
	require.Equal(t, 1, f.res.calls())

	require.NoError(t, f.integ.HandleEvent("loadstart", 0))
	assert.Equal(t, 1, f.res.calls(), "same source")

	f.player.load("next.mp4")
	require.NoError(t, f.integ.HandleEvent("loadstart", 0))
	assert.Eventually(t, func() bool { return f.res.calls() == 2 }, time.Second, 5*time.Millisecond)
}

func TestIntegration_CloseCancelsRequest(t *testing.T) {
	res := &fakeResolver{resp: wrapped(testResponse()), block: make(chan struct{})}
	f := newFixture(t, res, nil)
	require.Eventually(t, func() bool { return res.calls() == 1 }, time.Second, 5*time.Millisecond)

	f.integ.Close()
	_, ok := f.integ.Decision()
	assert.False(t, ok)
	assert.False(t, f.sess.Machine().State().AdsReady)
}
