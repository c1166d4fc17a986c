// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

import "fmt"

// EventKind drives the state machine. Some come from the host player,
// some from ad backends and some are synthesized by the machine itself.
type EventKind int

const (
	EvNone EventKind = iota
	EvPlay
	EvAdsReady
	EvAdsError
	EvAdsCanceled
	EvNoPreroll
	EvNoPostroll
	EvContentChanged
	EvContentEnded
	EvStartLinearAdMode
	EvEndLinearAdMode
	EvSkipLinearAdMode
	EvAdTimeout      // a wait timer fired
	EvContentResumed // content is playing again after a break
	EvResumeContent  // internal: leave a waiting state without ads
)

var eventNames = [...]string{
	EvNone:              "none",
	EvPlay:              "play",
	EvAdsReady:          "adsready",
	EvAdsError:          "adserror",
	EvAdsCanceled:       "adscanceled",
	EvNoPreroll:         "nopreroll",
	EvNoPostroll:        "nopostroll",
	EvContentChanged:    "contentchanged",
	EvContentEnded:      "contentended",
	EvStartLinearAdMode: "startlinearadmode",
	EvEndLinearAdMode:   "endlinearadmode",
	EvSkipLinearAdMode:  "skiplinearadmode",
	EvAdTimeout:         "adtimeout",
	EvContentResumed:    "contentresumed",
	EvResumeContent:     "resumecontent",
}

func (e EventKind) String() string {
	if e >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// AllEvents lists every event except EvNone.
func AllEvents() []EventKind {
	out := make([]EventKind, 0, len(eventNames)-1)
	for i := 1; i < len(eventNames); i++ {
		out = append(out, EventKind(i))
	}
	return out
}

// ParseEvent maps an event name back to its kind.
func ParseEvent(name string) (EventKind, bool) {
	for i, n := range eventNames {
		if i > 0 && n == name {
			return EventKind(i), true
		}
	}
	return EvNone, false
}

// Synthetic reports events raised by the machine itself rather than by a
// player or an ad backend.
func (e EventKind) Synthetic() bool {
	switch e {
	case EvNone, EvAdTimeout, EvContentResumed, EvResumeContent:
		return true
	}
	return false
}
