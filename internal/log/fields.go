// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldSessionID = "session_id"
	FieldRequestID = "request_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Ad resolution fields
	FieldAdTag        = "ad_tag"
	FieldURL          = "url"
	FieldWrapperDepth = "wrapper_depth"
	FieldCandidate    = "candidate"
	FieldErrorCode    = "error_code"
	FieldBackend      = "backend"

	// State fields
	FieldOldState = "old_state"
	FieldNewState = "new_state"
	FieldTrigger  = "trigger"
)
