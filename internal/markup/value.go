// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package markup

import (
	"math"
	"strconv"
	"strings"
)

// Kind classifies a coerced text or attribute value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is text with best-effort type coercion. Raw always holds the
// original text so callers that need a string (URLs, versions) never lose
// information to coercion.
type Value struct {
	Kind   Kind
	Bool   bool
	Number float64
	Str    string
	Raw    string
}

// Coerce applies the coercion rules: blank text is null, true/false (any
// case) is a bool, a finite decimal number is a number, anything else is
// the trimmed string.
func Coerce(raw string) Value {
	trimmed := strings.TrimSpace(raw)
	v := Value{Raw: raw}
	switch {
	case trimmed == "":
		v.Kind = KindNull
	case strings.EqualFold(trimmed, "true"):
		v.Kind, v.Bool = KindBool, true
	case strings.EqualFold(trimmed, "false"):
		v.Kind, v.Bool = KindBool, false
	default:
		if n, ok := parseNumber(trimmed); ok {
			v.Kind, v.Number = KindNumber, n
			return v
		}
		v.Kind, v.Str = KindString, trimmed
	}
	return v
}

func parseNumber(s string) (float64, bool) {
	// ParseFloat accepts hex, "Inf" and "NaN", none of which count as numbers here.
	if strings.ContainsAny(s, "xXpP_") {
		return 0, false
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// IsNull reports whether the value carries no content.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// String returns the value as text: the trimmed raw text for every kind
// except null, which yields "".
func (v Value) String() string {
	if v.Kind == KindNull {
		return ""
	}
	return strings.TrimSpace(v.Raw)
}
