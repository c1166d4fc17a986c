// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"fmt"
	"time"
)

// EventProgress is the tracking event that requires an offset.
const EventProgress = "progress"

// Response is the playable result of a resolved chain.
type Response struct {
	Chain          Chain
	AdID           string
	AdTitle        string
	Impressions    []string
	Errors         []string
	TrackingEvents map[string][]TrackingEvent
	ClickTrackings []string
	ClickThrough   string
	// MediaFiles are the playable files of the terminal linear creative.
	MediaFiles   []MediaFile
	Duration     *time.Duration
	SkipOffset   *time.Duration
	AdParameters string
}

// HasLinear reports whether the terminal node supplied a playable linear creative.
func (r *Response) HasLinear() bool {
	return r != nil && len(r.MediaFiles) > 0
}

// TrackingURIs returns the URLs registered for event at every chain level.
func (r *Response) TrackingURIs(event string) []string {
	var out []string
	for _, ev := range r.TrackingEvents[event] {
		out = append(out, ev.URI)
	}
	return out
}

// DueProgress returns progress URLs whose offset falls in (from, to].
func (r *Response) DueProgress(from, to time.Duration) []string {
	var out []string
	for _, ev := range r.TrackingEvents[EventProgress] {
		if ev.Offset != nil && *ev.Offset > from && *ev.Offset <= to {
			out = append(out, ev.URI)
		}
	}
	return out
}

// BuildResponse merges chain into a Response and checks that it is
// playable: a linear creative with supported media, a duration, and a
// resolvable offset on every progress event.
func BuildResponse(chain Chain, env Environment) (*Response, error) {
	const op = "build response"
	last, ok := chain.Last()
	if !ok || last.InLine == nil {
		return nil, newError(KindInvalidResponse, CodeMalformed, op, "chain does not end in an inline ad", nil)
	}

	resp := &Response{
		Chain:          chain,
		AdID:           last.ID,
		AdTitle:        last.InLine.AdTitle,
		TrackingEvents: map[string][]TrackingEvent{},
	}

	var linear *Linear
	for _, c := range last.InLine.Creatives {
		if c.Linear == nil {
			continue
		}
		if files := env.Compatible(c.Linear.MediaFiles); len(files) > 0 {
			linear = c.Linear
			resp.MediaFiles = files
			break
		}
	}
	if linear == nil {
		return nil, newError(KindInvalidResponse, CodeNoLinear, op, "no linear creative with playable media", nil)
	}
	if linear.Duration == nil {
		return nil, newError(KindInvalidResponse, CodeMalformed, op, "linear creative has no duration", nil)
	}
	d := *linear.Duration
	resp.Duration = &d
	resp.ClickThrough = linear.ClickThrough
	resp.AdParameters = linear.AdParameters
	if off, ok := ResolveOffset(linear.SkipOffset, resp.Duration); ok {
		resp.SkipOffset = &off
	}

	for _, ad := range chain.nodes {
		resp.Errors = append(resp.Errors, ad.ErrorURLs()...)
		var creatives []Creative
		switch {
		case ad.Wrapper != nil:
			resp.Impressions = append(resp.Impressions, ad.Wrapper.Impressions...)
			creatives = ad.Wrapper.Creatives
		case ad.InLine != nil:
			resp.Impressions = append(resp.Impressions, ad.InLine.Impressions...)
			creatives = ad.InLine.Creatives
		}
		for _, c := range creatives {
			if c.Linear == nil {
				continue
			}
			// Only the chosen creative of the terminal node contributes.
			if ad.InLine != nil && c.Linear != linear {
				continue
			}
			resp.ClickTrackings = append(resp.ClickTrackings, c.Linear.ClickTrackings...)
			for _, ev := range c.Linear.TrackingEvents {
				if ev.Name == EventProgress {
					off, ok := ResolveOffset(ev.RawOffset, resp.Duration)
					if !ok {
						return nil, newError(KindInvalidResponse, CodeMalformed, op,
							fmt.Sprintf("progress event has invalid offset %q", ev.RawOffset), nil)
					}
					ev.Offset = &off
				}
				resp.TrackingEvents[ev.Name] = append(resp.TrackingEvents[ev.Name], ev)
			}
		}
	}
	return resp, nil
}
