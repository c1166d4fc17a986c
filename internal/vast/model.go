// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"strings"
	"time"

	"github.com/ManuGH/vastplay/internal/markup"
)

// MediaFile is one rendition of a linear creative.
type MediaFile struct {
	URL          string
	Type         string
	Delivery     string
	APIFramework string
	Width        int
	Height       int
	Bitrate      int
}

// IsVPAID reports whether the file is a VPAID unit.
func (m MediaFile) IsVPAID() bool {
	return IsVPAIDType(m.Type) || strings.EqualFold(m.APIFramework, "VPAID")
}

// TrackingEvent is a URL fired when the named playback event happens.
// Offset is only set for progress events once the response is built.
type TrackingEvent struct {
	Name      string
	URI       string
	RawOffset string
	Offset    *time.Duration
}

// Linear holds a linear creative.
type Linear struct {
	// Duration is nil when absent or unparseable.
	Duration       *time.Duration
	SkipOffset     string
	MediaFiles     []MediaFile
	TrackingEvents []TrackingEvent
	ClickThrough   string
	ClickTrackings []string
	AdParameters   string
}

// Creative wraps a Linear; non-linear and companion creatives are not modeled.
type Creative struct {
	ID       string
	Sequence int
	Linear   *Linear
}

// Wrapper redirects resolution to AdTagURI.
type Wrapper struct {
	AdSystem    string
	AdTagURI    string
	Errors      []string
	Impressions []string
	Creatives   []Creative
}

// InLine carries playable creative data.
type InLine struct {
	AdSystem    string
	AdTitle     string
	Description string
	Errors      []string
	Impressions []string
	Creatives   []Creative
}

// Ad is one node of a wrapper chain. A valid Ad has exactly one of
// Wrapper and InLine.
type Ad struct {
	ID       string
	Sequence int
	Wrapper  *Wrapper
	InLine   *InLine
}

// NewAd builds an Ad from an <Ad> element of the tree.
func NewAd(n *markup.Node) Ad {
	ad := Ad{
		ID:       n.AttrString("id"),
		Sequence: attrInt(n, "sequence"),
	}
	if w := n.Child("Wrapper"); w != nil {
		ad.Wrapper = &Wrapper{
			AdSystem:    w.Child("AdSystem").TextString(),
			AdTagURI:    w.Child("VASTAdTagURI").TextString(),
			Errors:      texts(w.Children("Error")),
			Impressions: texts(w.Children("Impression")),
			Creatives:   newCreatives(w),
		}
	}
	if in := n.Child("InLine"); in != nil {
		ad.InLine = &InLine{
			AdSystem:    in.Child("AdSystem").TextString(),
			AdTitle:     in.Child("AdTitle").TextString(),
			Description: in.Child("Description").TextString(),
			Errors:      texts(in.Children("Error")),
			Impressions: texts(in.Children("Impression")),
			Creatives:   newCreatives(in),
		}
	}
	return ad
}

func newCreatives(parent *markup.Node) []Creative {
	var out []Creative
	for _, c := range parent.Path("Creatives").Children("Creative") {
		cr := Creative{
			ID:       c.AttrString("id"),
			Sequence: attrInt(c, "sequence"),
		}
		if l := c.Child("Linear"); l != nil {
			cr.Linear = newLinear(l)
		}
		out = append(out, cr)
	}
	return out
}

func newLinear(l *markup.Node) *Linear {
	lin := &Linear{
		SkipOffset:   l.AttrString("skipoffset"),
		AdParameters: l.Child("AdParameters").TextString(),
	}
	if d, ok := ParseClock(l.Child("Duration").TextString()); ok {
		lin.Duration = &d
	}
	for _, mf := range l.Path("MediaFiles").Children("MediaFile") {
		lin.MediaFiles = append(lin.MediaFiles, MediaFile{
			URL:          mf.TextString(),
			Type:         mf.AttrString("type"),
			Delivery:     mf.AttrString("delivery"),
			APIFramework: mf.AttrString("apiFramework"),
			Width:        attrInt(mf, "width"),
			Height:       attrInt(mf, "height"),
			Bitrate:      attrInt(mf, "bitrate"),
		})
	}
	for _, tr := range l.Path("TrackingEvents").Children("Tracking") {
		uri := tr.TextString()
		if uri == "" {
			continue
		}
		lin.TrackingEvents = append(lin.TrackingEvents, TrackingEvent{
			Name:      tr.AttrString("event"),
			URI:       uri,
			RawOffset: tr.AttrString("offset"),
		})
	}
	clicks := l.Child("VideoClicks")
	lin.ClickThrough = clicks.Child("ClickThrough").TextString()
	lin.ClickTrackings = texts(clicks.Children("ClickTracking"))
	return lin
}

func texts(nodes []*markup.Node) []string {
	var out []string
	for _, n := range nodes {
		if s := n.TextString(); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func attrInt(n *markup.Node, name string) int {
	v, ok := n.Attr(name)
	if !ok || v.Kind != markup.KindNumber {
		return 0
	}
	return int(v.Number)
}

// IsWrapper reports whether the node redirects.
func (a Ad) IsWrapper() bool { return a.Wrapper != nil }

// IsInLine reports whether the node is terminal.
func (a Ad) IsInLine() bool { return a.InLine != nil }

// ErrorURLs returns the error templates of both branches, wrapper first.
func (a Ad) ErrorURLs() []string {
	var out []string
	if a.Wrapper != nil {
		out = append(out, a.Wrapper.Errors...)
	}
	if a.InLine != nil {
		out = append(out, a.InLine.Errors...)
	}
	return out
}

// Validate checks the node shape and, for InLine nodes, that at least one
// media file plays in env.
func (a Ad) Validate(env Environment) error {
	const op = "validate ad"
	switch {
	case a.Wrapper != nil && a.InLine != nil:
		return newError(KindMalformedAdNode, CodeMalformed, op, "ad has both wrapper and inline", nil)
	case a.Wrapper == nil && a.InLine == nil:
		return newError(KindMalformedAdNode, CodeMalformed, op, "ad has neither wrapper nor inline", nil)
	case a.Wrapper != nil:
		if strings.TrimSpace(a.Wrapper.AdTagURI) == "" {
			return newError(KindMalformedAdNode, CodeMalformed, op, "wrapper has no VASTAdTagURI", nil)
		}
		return nil
	}
	for _, c := range a.InLine.Creatives {
		if c.Linear != nil && len(env.Compatible(c.Linear.MediaFiles)) > 0 {
			return nil
		}
	}
	return newError(KindUnsupportedMedia, CodeUnsupportedMedia, op, "inline has no supported media file", nil)
}
