// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"00:00:30", 30 * time.Second, true},
		{"01:02:03", time.Hour + 2*time.Minute + 3*time.Second, true},
		{"00:00:10.5", 10*time.Second + 500*time.Millisecond, true},
		{"00:00:10.250", 10*time.Second + 250*time.Millisecond, true},
		{" 00:00:01 ", time.Second, true},
		{"30", 0, false},
		{"00:61:00", 0, false},
		{"10%", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseClock(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveOffset(t *testing.T) {
	d := 30 * time.Second

	off, ok := ResolveOffset("50%", &d)
	assert.True(t, ok)
	assert.Equal(t, 15*time.Second, off)

	off, ok = ResolveOffset("00:00:07", nil)
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, off)

	_, ok = ResolveOffset("50%", nil)
	assert.False(t, ok, "percentage needs a duration")

	_, ok = ResolveOffset("150%", &d)
	assert.False(t, ok)

	_, ok = ResolveOffset("soon", &d)
	assert.False(t, ok)

	assert.True(t, IsPercentage("25%"))
	assert.False(t, IsPercentage("00:00:25"))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "00:00:00.000", FormatClock(0))
	assert.Equal(t, "00:00:00.000", FormatClock(-time.Second))
	assert.Equal(t, "01:02:03.045", FormatClock(time.Hour+2*time.Minute+3*time.Second+45*time.Millisecond))

	d, ok := ParseClock(FormatClock(90 * time.Second))
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)
}
