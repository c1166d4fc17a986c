// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import "time"

// Player is the content player a session drives. Implementations report
// state synchronously; commands may complete asynchronously.
type Player interface {
	// Src is the source the player was asked to load; CurrentSrc is what it
	// actually plays. They differ when a request is intercepted.
	Src() string
	CurrentSrc() string
	Position() time.Duration
	// Duration returns the content duration; bounded is false for live
	// streams without an end.
	Duration() (d time.Duration, bounded bool)
	Autoplay() bool
	// TouchPlatform reports a mobile platform that cannot composite content
	// behind an ad.
	TouchPlatform() bool

	Play() error
	Pause() error
	SetMuted(muted bool)
	Restore(snap Snapshot) error
	Trigger(name string)
}

// Snapshot is the content state captured before an ad break.
type Snapshot struct {
	Src        string
	CurrentSrc string
	Position   time.Duration
}
