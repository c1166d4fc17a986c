// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"mime"
	"strings"
)

// MIME types that only play through a VPAID unit.
const (
	TypeJavaScript = "application/javascript"
	TypeFlash      = "application/x-shockwave-flash"
)

// Environment describes what the playback side can render.
type Environment struct {
	types map[string]struct{}
}

// NewEnvironment creates an Environment accepting the given MIME types.
func NewEnvironment(mediaTypes []string) Environment {
	env := Environment{types: make(map[string]struct{}, len(mediaTypes))}
	for _, t := range mediaTypes {
		if n := normalizeType(t); n != "" {
			env.types[n] = struct{}{}
		}
	}
	return env
}

func normalizeType(t string) string {
	t = strings.TrimSpace(t)
	if mt, _, err := mime.ParseMediaType(t); err == nil {
		return mt
	}
	return strings.ToLower(t)
}

// IsVPAIDType reports whether a MIME type needs a VPAID executor.
func IsVPAIDType(t string) bool {
	n := normalizeType(t)
	return n == TypeJavaScript || n == TypeFlash
}

// Supports reports whether mf can be played here. VPAID creatives must
// declare the VPAID API framework.
func (e Environment) Supports(mf MediaFile) bool {
	if strings.TrimSpace(mf.URL) == "" {
		return false
	}
	n := normalizeType(mf.Type)
	if _, ok := e.types[n]; !ok {
		return false
	}
	if n == TypeJavaScript || n == TypeFlash {
		return strings.EqualFold(strings.TrimSpace(mf.APIFramework), "VPAID")
	}
	return true
}

// Compatible filters files down to the playable ones, preserving order.
func (e Environment) Compatible(files []MediaFile) []MediaFile {
	var out []MediaFile
	for _, mf := range files {
		if e.Supports(mf) {
			out = append(out, mf)
		}
	}
	return out
}
