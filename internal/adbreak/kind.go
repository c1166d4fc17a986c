// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package adbreak implements the ad-break lifecycle of a player session:
// waiting for an ad decision, playing linear ads, and resuming content.
package adbreak

import "fmt"

// Kind names a lifecycle state.
type Kind int

const (
	KindBeforePreroll Kind = iota
	KindPreroll
	KindLinearAdBreak
	KindContentResuming
	KindContentPlayback
	KindPostroll
	KindAdsDone
	KindStitchedContentPlayback
	KindStitchedAdRoll
)

var kindNames = [...]string{
	KindBeforePreroll:           "before_preroll",
	KindPreroll:                 "preroll",
	KindLinearAdBreak:           "linear_ad_break",
	KindContentResuming:         "content_resuming",
	KindContentPlayback:         "content_playback",
	KindPostroll:                "postroll",
	KindAdsDone:                 "ads_done",
	KindStitchedContentPlayback: "stitched_content_playback",
	KindStitchedAdRoll:          "stitched_ad_roll",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// AllKinds lists every state in declaration order.
func AllKinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

// Position is where an ad break sits relative to content.
type Position int

const (
	PositionNone Position = iota
	PositionPreroll
	PositionMidroll
	PositionPostroll
)

func (p Position) String() string {
	switch p {
	case PositionPreroll:
		return "preroll"
	case PositionMidroll:
		return "midroll"
	case PositionPostroll:
		return "postroll"
	default:
		return "none"
	}
}

// IsAdState reports whether content playback is taken over by the ad
// plugin: an ad decision is pending, an ad plays, or content is resuming.
func (k Kind) IsAdState() bool {
	switch k {
	case KindPreroll, KindLinearAdBreak, KindContentResuming, KindPostroll, KindStitchedAdRoll:
		return true
	}
	return false
}

// IsWaitingForAdBreak reports an ad state in which no break has started yet.
func (k Kind) IsWaitingForAdBreak() bool {
	return k == KindPreroll || k == KindPostroll
}

// IsContentResuming reports the gap between an ad break and content playback.
func (k Kind) IsContentResuming() bool {
	return k == KindContentResuming
}

// InAdBreak reports whether a linear ad break is active.
func (k Kind) InAdBreak() bool {
	return k == KindLinearAdBreak || k == KindStitchedAdRoll
}
