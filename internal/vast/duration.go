// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var clockRe = regexp.MustCompile(`^(\d+):([0-5]?\d):([0-5]?\d)(?:\.(\d{1,3}))?$`)

// ParseClock parses HH:MM:SS or HH:MM:SS.mmm.
func ParseClock(s string) (time.Duration, bool) {
	m := clockRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, false
	}
	h, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	sec, _ := strconv.Atoi(m[3])
	d := time.Duration(h)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(sec)*time.Second
	if m[4] != "" {
		// ".5" is half a second, not five milliseconds.
		frac := m[4] + strings.Repeat("0", 3-len(m[4]))
		ms, _ := strconv.Atoi(frac)
		d += time.Duration(ms) * time.Millisecond
	}
	return d, true
}

// IsPercentage reports whether s is an "NN%" offset.
func IsPercentage(s string) bool {
	_, ok := parsePercent(s)
	return ok
}

func parsePercent(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !strings.HasSuffix(s, "%") {
		return 0, false
	}
	p, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
	if err != nil || p < 0 || p > 100 {
		return 0, false
	}
	return p, true
}

// ResolveOffset turns an offset attribute into an absolute position.
// Percentages need the ad duration; without it they do not resolve.
func ResolveOffset(raw string, duration *time.Duration) (time.Duration, bool) {
	if d, ok := ParseClock(raw); ok {
		return d, true
	}
	if p, ok := parsePercent(raw); ok && duration != nil {
		return time.Duration(float64(*duration) * p / 100).Round(time.Millisecond), true
	}
	return 0, false
}

// FormatClock renders d as HH:MM:SS.mmm, the CONTENTPLAYHEAD form.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	ms := d.Milliseconds()
	return fmt.Sprintf("%02d:%02d:%02d.%03d", ms/3600000, ms/60000%60, ms/1000%60, ms%1000)
}
