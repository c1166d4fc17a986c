// SPDX-License-Identifier: MIT

// Package telemetry provides OpenTelemetry tracing utilities for vastplay.
package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Common attribute keys for consistent tracing across the application.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"
	HTTPURLKey        = "http.url"

	// Resolution attributes
	AdTagKey        = "vast.ad_tag"
	CandidateKey    = "vast.candidate"
	WrapperDepthKey = "vast.wrapper_depth"
	ChainLengthKey  = "vast.chain_length"
	ErrorCodeKey    = "vast.error_code"
	CacheHitKey     = "vast.cache_hit"

	// Ad break attributes
	SessionIDKey = "adbreak.session_id"
	StateKey     = "adbreak.state"
	EventKey     = "adbreak.event"
	BackendKey   = "adbreak.backend"

	// Tracking attributes
	TrackingKindKey  = "tracking.kind"
	TrackingCountKey = "tracking.urls"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route, url string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.String(HTTPURLKey, url),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// HopAttributes describes one fetch of a wrapper chain.
func HopAttributes(adTag string, candidate, depth int) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if adTag != "" {
		attrs = append(attrs, attribute.String(AdTagKey, adTag))
	}
	return append(attrs,
		attribute.Int(CandidateKey, candidate),
		attribute.Int(WrapperDepthKey, depth),
	)
}

// ResolutionAttributes summarizes a finished resolution. A zero code means success.
func ResolutionAttributes(chainLen, code int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int(ChainLengthKey, chainLen)}
	if code != 0 {
		attrs = append(attrs, attribute.Int(ErrorCodeKey, code))
	}
	return attrs
}

// AdBreakAttributes creates state machine span attributes.
func AdBreakAttributes(sessionID, state, event string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if sessionID != "" {
		attrs = append(attrs, attribute.String(SessionIDKey, sessionID))
	}
	if state != "" {
		attrs = append(attrs, attribute.String(StateKey, state))
	}
	if event != "" {
		attrs = append(attrs, attribute.String(EventKey, event))
	}
	return attrs
}

// TrackingAttributes creates tracking ping span attributes.
func TrackingAttributes(kind string, urls int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(TrackingKindKey, kind),
		attribute.Int(TrackingCountKey, urls),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
