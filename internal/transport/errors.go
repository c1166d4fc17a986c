// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package transport

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrInvalidURL  = errors.New("transport: invalid or unsupported URL")
	ErrTimeout     = errors.New("transport: request timed out")
	ErrUnavailable = errors.New("transport: host unreachable or transport failure")
	ErrStatus      = errors.New("transport: non-success HTTP status")
	ErrCircuitOpen = errors.New("transport: ad server circuit open")
	ErrBodyTooBig  = errors.New("transport: response body exceeds limit")
)

// Error is a rich error type that wraps the sentinel errors with context.
type Error struct {
	Sentinel   error
	URL        string
	Status     int
	StatusText string
	Err        error // Nested lower-level error (e.g. net.Error)
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("GET %s: %v", e.URL, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Sentinel
}
