// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildResponseMergesEveryLevel(t *testing.T) {
	chain := NewChain(
		mustAd(wrapperAd("w1", "http://ads.example/2", "http://t.example/err/w1")),
		mustAd(wrapperAd("w2", "http://ads.example/3", "http://t.example/err/w2")),
		mustAd(inlineAd("in", "http://t.example/err/in")),
	)

	resp, err := BuildResponse(chain, mp4Env)
	require.NoError(t, err)

	assert.True(t, resp.HasLinear())
	assert.Equal(t, "in", resp.AdID)
	assert.Equal(t, 3, resp.Chain.Len())
	assert.Equal(t, []string{
		"http://t.example/imp/w1", "http://t.example/imp/w2", "http://t.example/imp/in",
	}, resp.Impressions)
	assert.Equal(t, []string{
		"http://t.example/err/w1", "http://t.example/err/w2", "http://t.example/err/in",
	}, resp.Errors)
	assert.Equal(t, []string{
		"http://t.example/start/w1", "http://t.example/start/w2", "http://t.example/start/in",
	}, resp.TrackingURIs("start"))
	assert.Equal(t, []string{"http://t.example/click/in"}, resp.ClickTrackings)
	assert.Equal(t, "http://advertiser.example/", resp.ClickThrough)

	require.NotNil(t, resp.Duration)
	assert.Equal(t, 30*time.Second, *resp.Duration)
	require.NotNil(t, resp.SkipOffset)
	assert.Equal(t, 5*time.Second, *resp.SkipOffset)

	require.Len(t, resp.TrackingEvents[EventProgress], 1)
	half := resp.TrackingEvents[EventProgress][0]
	require.NotNil(t, half.Offset)
	assert.Equal(t, 15*time.Second, *half.Offset)

	assert.Equal(t, []string{"http://t.example/half/in"}, resp.DueProgress(10*time.Second, 15*time.Second))
	assert.Empty(t, resp.DueProgress(15*time.Second, 20*time.Second))
}

func TestBuildResponseInvalid(t *testing.T) {
	withLinear := func(mutate func(*Linear)) Chain {
		ad := mustAd(inlineAd("in", ""))
		mutate(ad.InLine.Creatives[0].Linear)
		return NewChain(ad)
	}

	tests := []struct {
		name  string
		chain Chain
		code  int
	}{
		{
			name:  "empty chain",
			chain: Chain{},
			code:  CodeMalformed,
		},
		{
			name:  "ends in wrapper",
			chain: NewChain(mustAd(wrapperAd("w", "http://ads.example/x", ""))),
			code:  CodeMalformed,
		},
		{
			name:  "no duration",
			chain: withLinear(func(l *Linear) { l.Duration = nil }),
			code:  CodeMalformed,
		},
		{
			name:  "no playable media",
			chain: withLinear(func(l *Linear) { l.MediaFiles[0].Type = "video/x-flv" }),
			code:  CodeNoLinear,
		},
		{
			name: "progress offset not numeric",
			chain: withLinear(func(l *Linear) {
				l.TrackingEvents = append(l.TrackingEvents, TrackingEvent{Name: EventProgress, URI: "http://t/p", RawOffset: "later"})
			}),
			code: CodeMalformed,
		},
		{
			name: "progress offset missing",
			chain: withLinear(func(l *Linear) {
				l.TrackingEvents = append(l.TrackingEvents, TrackingEvent{Name: EventProgress, URI: "http://t/p"})
			}),
			code: CodeMalformed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := BuildResponse(tt.chain, mp4Env)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.ErrorIs(t, err, ErrInvalidResponse)
			assert.Equal(t, tt.code, CodeOf(err))
		})
	}
}

func TestBuildResponseWrapperProgressUsesInlineDuration(t *testing.T) {
	w := mustAd(wrapperAd("w", "http://ads.example/x", ""))
	w.Wrapper.Creatives[0].Linear.TrackingEvents = append(w.Wrapper.Creatives[0].Linear.TrackingEvents,
		TrackingEvent{Name: EventProgress, URI: "http://t.example/q1", RawOffset: "25%"})

	resp, err := BuildResponse(NewChain(w, mustAd(inlineAd("in", ""))), mp4Env)
	require.NoError(t, err)

	uris := resp.DueProgress(0, 8*time.Second)
	assert.Equal(t, []string{"http://t.example/q1"}, uris)
}

func TestHasLinearNilResponse(t *testing.T) {
	var r *Response
	assert.False(t, r.HasLinear())
}
