// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

// Transition is a single allowed edge between two different kinds.
// Steps that keep the kind are always allowed.
type Transition struct {
	From  Kind
	To    Kind
	Event EventKind
}

var transitionsTable = []Transition{
	// Preroll path
	{From: KindBeforePreroll, To: KindPreroll, Event: EvPlay},
	{From: KindPreroll, To: KindLinearAdBreak, Event: EvStartLinearAdMode},
	{From: KindPreroll, To: KindContentPlayback, Event: EvAdsError},
	{From: KindPreroll, To: KindContentPlayback, Event: EvAdsCanceled},
	{From: KindPreroll, To: KindContentPlayback, Event: EvNoPreroll},
	{From: KindPreroll, To: KindContentPlayback, Event: EvAdTimeout},
	{From: KindPreroll, To: KindContentPlayback, Event: EvSkipLinearAdMode},
	{From: KindPreroll, To: KindContentPlayback, Event: EvResumeContent},

	// Ad break exit
	{From: KindLinearAdBreak, To: KindContentResuming, Event: EvEndLinearAdMode},
	{From: KindLinearAdBreak, To: KindContentResuming, Event: EvAdsError},
	{From: KindLinearAdBreak, To: KindAdsDone, Event: EvEndLinearAdMode},
	{From: KindLinearAdBreak, To: KindAdsDone, Event: EvAdsError},
	{From: KindContentResuming, To: KindContentPlayback, Event: EvContentResumed},
	{From: KindContentResuming, To: KindContentPlayback, Event: EvAdTimeout},
	{From: KindContentResuming, To: KindPostroll, Event: EvContentEnded},
	{From: KindContentResuming, To: KindAdsDone, Event: EvContentEnded},

	// Content
	{From: KindContentPlayback, To: KindLinearAdBreak, Event: EvStartLinearAdMode},
	{From: KindContentPlayback, To: KindPostroll, Event: EvContentEnded},
	{From: KindContentPlayback, To: KindAdsDone, Event: EvContentEnded},

	// Postroll path
	{From: KindPostroll, To: KindLinearAdBreak, Event: EvStartLinearAdMode},
	{From: KindPostroll, To: KindAdsDone, Event: EvNoPostroll},
	{From: KindPostroll, To: KindAdsDone, Event: EvAdsError},
	{From: KindPostroll, To: KindAdsDone, Event: EvAdsCanceled},
	{From: KindPostroll, To: KindAdsDone, Event: EvAdTimeout},
	{From: KindPostroll, To: KindAdsDone, Event: EvSkipLinearAdMode},

	// Source change
	{From: KindContentPlayback, To: KindBeforePreroll, Event: EvContentChanged},
	{From: KindPostroll, To: KindBeforePreroll, Event: EvContentChanged},
	{From: KindAdsDone, To: KindBeforePreroll, Event: EvContentChanged},

	// Stitched streams
	{From: KindStitchedContentPlayback, To: KindStitchedAdRoll, Event: EvStartLinearAdMode},
	{From: KindStitchedAdRoll, To: KindStitchedContentPlayback, Event: EvEndLinearAdMode},
	{From: KindStitchedAdRoll, To: KindStitchedContentPlayback, Event: EvContentEnded},
	{From: KindStitchedAdRoll, To: KindStitchedContentPlayback, Event: EvAdsError},
}

type edge struct {
	from, to Kind
	ev       EventKind
}

var allowedEdges = func() map[edge]struct{} {
	m := make(map[edge]struct{}, len(transitionsTable))
	for _, t := range transitionsTable {
		m[edge{t.From, t.To, t.Event}] = struct{}{}
	}
	return m
}()

// Allowed reports whether ev may move a session from one kind to another.
func Allowed(from, to Kind, ev EventKind) bool {
	if from == to {
		return true
	}
	_, ok := allowedEdges[edge{from, to, ev}]
	return ok
}
