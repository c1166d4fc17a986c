// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/vastplay/internal/adbreak"
	"github.com/ManuGH/vastplay/internal/config"
)

func newTestSession(t *testing.T, p *fakePlayer, mutate ...func(*testCfg)) (*Session, *clock.Mock) {
	t.Helper()
	tc := &testCfg{cfg: testAdsConfig()}
	for _, m := range mutate {
		m(tc)
	}
	mock := clock.NewMock()
	s := New(p, tc.cfg, WithClock(mock), WithLogger(zerolog.Nop()), WithID("s1"))
	t.Cleanup(s.Close)
	return s, mock
}

type testCfg struct{ cfg config.AdsConfig }

func TestSession_PrerollLifecycle(t *testing.T) {
	p := newFakePlayer("content.mp4")
	p.position = 3 * time.Second
	s, _ := newTestSession(t, p)

	assert.False(t, s.IsInAdMode())

	require.NoError(t, s.HandleEvent("play"))
	assert.True(t, s.IsInAdMode())
	assert.True(t, s.IsWaitingForAdBreak())

	require.NoError(t, s.HandleEvent("adsready"))
	require.NoError(t, s.StartLinearAdMode())
	assert.True(t, s.InAdBreak())

	snap, ok := s.Snapshot()
	require.True(t, ok)
	assert.Equal(t, Snapshot{Src: "content.mp4", CurrentSrc: "content.mp4", Position: 3 * time.Second}, snap)
	assert.True(t, p.paused)

	p.load("ad.mp4")
	recycled, err := s.VideoElementRecycled()
	require.NoError(t, err)
	assert.True(t, recycled)

	require.NoError(t, s.EndLinearAdMode())
	assert.False(t, s.InAdBreak())
	assert.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())
	require.Len(t, p.restored, 1)
	assert.Equal(t, "content.mp4", p.CurrentSrc())

	_, ok = s.Snapshot()
	assert.False(t, ok, "snapshot is released after resume")
	assert.Equal(t, []string{
		adbreak.TriggerReadyForPreroll, adbreak.TriggerAdStart,
		adbreak.TriggerAdEnd, adbreak.TriggerContentPlayback,
	}, p.triggered())
}

func TestSession_CanceledBeforePlay(t *testing.T) {
	s, _ := newTestSession(t, newFakePlayer("c.mp4"))

	require.NoError(t, s.HandleEvent("adscanceled"))
	require.NoError(t, s.HandleEvent("play"))
	assert.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())
	assert.False(t, s.IsInAdMode())
}

func TestSession_RequestPlayReplayed(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, _ := newTestSession(t, p)

	assert.False(t, s.RequestPlay())
	require.NoError(t, s.HandleEvent("play"))
	require.NoError(t, s.HandleEvent("adserror"))

	assert.Equal(t, 1, p.plays)
	assert.True(t, s.RequestPlay())
}

func TestSession_AdsReadyTimeout(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, mock := newTestSession(t, p)

	require.NoError(t, s.HandleEvent("play"))
	mock.Add(5 * time.Second)
	assert.Eventually(t, func() bool {
		return s.Machine().Kind() == adbreak.KindContentPlayback
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, p.triggered(), adbreak.TriggerAdTimeout)
}

func TestSession_ContentEndsIntoPostroll(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, _ := newTestSession(t, p)

	for _, ev := range []string{"play", "nopreroll", "ended"} {
		require.NoError(t, s.HandleEvent(ev))
	}
	assert.Equal(t, adbreak.KindPostroll, s.Machine().Kind())

	require.NoError(t, s.StartLinearAdMode())
	require.NoError(t, s.HandleEvent("ended"), "ad ended during a break is ignored")
	assert.True(t, s.InAdBreak())

	require.NoError(t, s.EndLinearAdMode())
	assert.Equal(t, adbreak.KindAdsDone, s.Machine().Kind())
	assert.True(t, s.Status().ContentHasEnded)
	assert.Contains(t, p.triggered(), adbreak.TriggerEnded)
}

func TestSession_LiveContentPlaysBehindAd(t *testing.T) {
	p := newFakePlayer("live.m3u8")
	p.live = true
	s, _ := newTestSession(t, p)

	assert.True(t, s.IsLive())
	assert.True(t, s.ShouldPlayContentBehindAd())
	assert.False(t, s.ShouldTakeSnapshots())

	require.NoError(t, s.HandleEvent("play"))
	require.NoError(t, s.StartLinearAdMode())
	assert.True(t, p.muted)
	_, ok := s.Snapshot()
	assert.False(t, ok)

	recycled, err := s.VideoElementRecycled()
	require.NoError(t, err)
	assert.False(t, recycled)

	require.NoError(t, s.EndLinearAdMode())
	assert.False(t, p.muted)
	assert.Empty(t, p.restored)
	assert.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())
}

func TestSession_LiveDecisions(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name         string
		live         bool
		touch        bool
		forced       *bool
		cuePoints    bool
		stitched     bool
		wantLive     bool
		wantBehind   bool
		wantSnapshot bool
	}{
		{name: "vod", cuePoints: true, wantSnapshot: true},
		{name: "live", live: true, cuePoints: true, wantLive: true, wantBehind: true},
		{name: "live on touch", live: true, touch: true, cuePoints: true, wantLive: true, wantSnapshot: true},
		{name: "live without cue points", live: true, wantLive: true, wantSnapshot: true},
		{name: "forced live", forced: &yes, cuePoints: true, wantLive: true, wantBehind: true},
		{name: "forced vod", live: true, forced: &no, cuePoints: true, wantSnapshot: true},
		{name: "stitched", cuePoints: true, stitched: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newFakePlayer("c")
			p.live, p.touch = tt.live, tt.touch
			s, _ := newTestSession(t, p, func(c *testCfg) {
				c.cfg.ContentIsLive = tt.forced
				c.cfg.LiveCuePoints = tt.cuePoints
				c.cfg.StitchedAds = tt.stitched
			})
			assert.Equal(t, tt.wantLive, s.IsLive())
			assert.Equal(t, tt.wantBehind, s.ShouldPlayContentBehindAd())
			assert.Equal(t, tt.wantSnapshot, s.ShouldTakeSnapshots())
		})
	}
}

func TestSession_VideoElementRecycledWithoutSnapshot(t *testing.T) {
	s, _ := newTestSession(t, newFakePlayer("c.mp4"))
	_, err := s.VideoElementRecycled()
	require.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSession_DisableNextSnapshotRestore(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, _ := newTestSession(t, p)

	require.NoError(t, s.HandleEvent("play"))
	require.NoError(t, s.StartLinearAdMode())
	s.DisableNextSnapshotRestore()
	require.NoError(t, s.EndLinearAdMode())

	assert.Empty(t, p.restored)
	assert.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())
}

func TestSession_ResetIdempotent(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, _ := newTestSession(t, p)
	for _, ev := range []string{"loadeddata", "adsready", "play"} {
		require.NoError(t, s.HandleEvent(ev))
	}
	require.NoError(t, s.StartLinearAdMode())

	s.Reset()
	once := s.Status()
	s.Reset()
	twice := s.Status()

	assert.Equal(t, once, twice)
	assert.Equal(t, adbreak.KindBeforePreroll.String(), twice.State)
	assert.False(t, twice.HasSnapshot)
	assert.False(t, twice.LoadedData)
	assert.False(t, twice.PlayRequested)
}

func TestSession_ResetAfterClose(t *testing.T) {
	p := newFakePlayer("c.mp4")
	s, _ := newTestSession(t, p)
	require.NoError(t, s.HandleEvent("play"))
	s.Close()

	s.Reset()
	assert.Equal(t, adbreak.KindPreroll, s.Machine().Kind())
	require.ErrorIs(t, s.Dispatch(adbreak.EvAdsReady), adbreak.ErrStopped)
	require.ErrorIs(t, s.HandleEvent("play"), ErrClosed)
}

func TestSession_SourceChange(t *testing.T) {
	p := newFakePlayer("a.mp4")
	s, _ := newTestSession(t, p)

	require.NoError(t, s.HandleEvent("loadstart"))
	require.NoError(t, s.HandleEvent("loadeddata"))
	for _, ev := range []string{"play", "adserror"} {
		require.NoError(t, s.HandleEvent(ev))
	}
	require.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())

	require.NoError(t, s.HandleEvent("loadstart"), "same source is not a change")
	assert.Equal(t, adbreak.KindContentPlayback, s.Machine().Kind())

	p.load("b.mp4")
	require.NoError(t, s.HandleEvent("loadstart"))
	assert.Equal(t, adbreak.KindBeforePreroll, s.Machine().Kind())
	assert.False(t, s.Status().LoadedData)
}

func TestSession_UnknownEvents(t *testing.T) {
	s, _ := newTestSession(t, newFakePlayer("c.mp4"))
	require.ErrorIs(t, s.HandleEvent("bogus"), ErrUnknownEvent)
	require.ErrorIs(t, s.HandleEvent("adtimeout"), ErrUnknownEvent)

	s.Close()
	require.ErrorIs(t, s.HandleEvent("play"), ErrClosed)
}

func TestSession_Subscribe(t *testing.T) {
	s, _ := newTestSession(t, newFakePlayer("c.mp4"))

	var got []string
	unsubscribe := s.Subscribe(func(name string) { got = append(got, name) })
	require.NoError(t, s.HandleEvent("play"))
	require.NoError(t, s.HandleEvent("adsready"))
	unsubscribe()
	require.NoError(t, s.HandleEvent("adserror"))

	assert.Equal(t, []string{adbreak.TriggerReadyForPreroll}, got)
}

func TestSession_Stitched(t *testing.T) {
	p := newFakePlayer("c.m3u8")
	s, _ := newTestSession(t, p, func(c *testCfg) { c.cfg.StitchedAds = true })

	assert.Equal(t, adbreak.KindStitchedContentPlayback, s.Machine().Kind())
	assert.True(t, s.RequestPlay())
	require.NoError(t, s.StartLinearAdMode())
	assert.True(t, s.InAdBreak())
	_, ok := s.Snapshot()
	assert.False(t, ok)
	require.NoError(t, s.EndLinearAdMode())
	assert.False(t, s.InAdBreak())
}
