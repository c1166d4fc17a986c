// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build !debug

package adbreak

import "fmt"

// illegalTransition degrades to content playback so a broken edge never
// leaves the player blocked.
func illegalTransition(from State, to Kind, ev EventKind, cfg Settings) (Step, error) {
	return transitionTo(KindContentPlayback, from, cfg), fmt.Errorf("%w: %s -> %s on %s", ErrIllegalTransition, from.Kind, to, ev)
}
