// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

//go:build debug

package adbreak

import "fmt"

func illegalTransition(from State, to Kind, ev EventKind, _ Settings) (Step, error) {
	panic(fmt.Sprintf("illegal transition: %s -> %s on %s", from.Kind, to, ev))
}
