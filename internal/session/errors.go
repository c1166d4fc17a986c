// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package session

import "errors"

var (
	// ErrNoSnapshot is returned by VideoElementRecycled outside an ad break.
	ErrNoSnapshot = errors.New("session: no snapshot taken")
	// ErrUnknownEvent is returned for bus events the session does not handle.
	ErrUnknownEvent = errors.New("session: unknown event")
	// ErrNotFound is returned by the registry for unknown ids.
	ErrNotFound = errors.New("session: not found")
	// ErrClosed is returned for operations on a closed session.
	ErrClosed = errors.New("session: closed")
)
