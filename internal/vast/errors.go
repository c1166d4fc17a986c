// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"errors"
	"fmt"
)

// Numeric codes substituted into the ERRORCODE macro of error URLs.
const (
	CodeParse              = 100
	CodeMalformed          = 101
	CodeUnsupportedVersion = 102
	CodeNoLinear           = 200
	CodeTransport          = 301
	CodeWrapperLimit       = 302
	CodeNoAd               = 303
	CodeUnsupportedMedia   = 403
	CodeMediaDisplay       = 405
	CodeUndefined          = 900
	CodeVPAID              = 901
)

// Kind classifies a resolution failure.
type Kind int

const (
	KindUndefined Kind = iota
	KindTransport
	KindParse
	KindUnsupportedVersion
	KindNoAd
	KindMalformedAdNode
	KindUnsupportedMedia
	KindWrapperLimitExceeded
	KindInvalidResponse
)

var kindNames = map[Kind]string{
	KindUndefined:            "undefined",
	KindTransport:            "transport",
	KindParse:                "parse_failure",
	KindUnsupportedVersion:   "unsupported_version",
	KindNoAd:                 "no_ad",
	KindMalformedAdNode:      "malformed_ad_node",
	KindUnsupportedMedia:     "unsupported_media",
	KindWrapperLimitExceeded: "wrapper_limit_exceeded",
	KindInvalidResponse:      "invalid_response",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

var (
	// Sentinel errors for errors.Is checks, one per Kind.
	ErrUndefined            = errors.New("vast: undefined error")
	ErrTransport            = errors.New("vast: transport failure")
	ErrParse                = errors.New("vast: document parse failure")
	ErrUnsupportedVersion   = errors.New("vast: unsupported version")
	ErrNoAd                 = errors.New("vast: no ad in document")
	ErrMalformedAdNode      = errors.New("vast: malformed ad node")
	ErrUnsupportedMedia     = errors.New("vast: no supported media file")
	ErrWrapperLimitExceeded = errors.New("vast: wrapper limit exceeded")
	ErrInvalidResponse      = errors.New("vast: invalid ad response")
)

var sentinels = map[Kind]error{
	KindUndefined:            ErrUndefined,
	KindTransport:            ErrTransport,
	KindParse:                ErrParse,
	KindUnsupportedVersion:   ErrUnsupportedVersion,
	KindNoAd:                 ErrNoAd,
	KindMalformedAdNode:      ErrMalformedAdNode,
	KindUnsupportedMedia:     ErrUnsupportedMedia,
	KindWrapperLimitExceeded: ErrWrapperLimitExceeded,
	KindInvalidResponse:      ErrInvalidResponse,
}

// Error is a resolution failure carrying its wire code.
type Error struct {
	Kind Kind
	Code int
	Op   string
	Msg  string
	Err  error // underlying cause, if any
}

func newError(kind Kind, code int, op, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Op: op, Msg: msg, Err: cause}
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("vast: %s: %s (code %d)", e.Op, e.Msg, e.Code)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the Kind sentinel and the underlying cause.
func (e *Error) Unwrap() []error {
	errs := []error{sentinels[e.Kind]}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// CodeOf returns the wire code for err, CodeUndefined when it carries none.
func CodeOf(err error) int {
	var verr *Error
	if errors.As(err, &verr) && verr.Code != 0 {
		return verr.Code
	}
	return CodeUndefined
}

// KindOf returns the Kind of err, KindUndefined when it is not a resolution error.
func KindOf(err error) Kind {
	var verr *Error
	if errors.As(err, &verr) {
		return verr.Kind
	}
	return KindUndefined
}
