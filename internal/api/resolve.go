// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/vastplay/internal/validate"
	"github.com/ManuGH/vastplay/internal/vast"
)

// ResolveRequest asks for a debug resolution of an ad tag.
type ResolveRequest struct {
	AdTag        string `json:"adTag"`
	WrapperLimit int    `json:"wrapperLimit,omitempty"`
	// Timeout bounds each fetch, in milliseconds.
	Timeout int `json:"timeout,omitempty"`
}

// Hop is one ad of the resolved chain.
type Hop struct {
	ID       string `json:"id,omitempty"`
	AdSystem string `json:"adSystem,omitempty"`
	Wrapper  bool   `json:"wrapper"`
	AdTagURI string `json:"adTagUri,omitempty"`
}

// MediaFile is a playable file of the resolved ad.
type MediaFile struct {
	URL          string `json:"url"`
	Type         string `json:"type"`
	Delivery     string `json:"delivery,omitempty"`
	APIFramework string `json:"apiFramework,omitempty"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Bitrate      int    `json:"bitrate,omitempty"`
}

// ResolveResponse is the outcome of a successful resolution.
type ResolveResponse struct {
	AdID           string              `json:"adId,omitempty"`
	AdTitle        string              `json:"adTitle,omitempty"`
	Chain          []Hop               `json:"chain"`
	Duration       string              `json:"duration,omitempty"`
	SkipOffset     string              `json:"skipOffset,omitempty"`
	MediaFiles     []MediaFile         `json:"mediaFiles"`
	Impressions    []string            `json:"impressions,omitempty"`
	Errors         []string            `json:"errors,omitempty"`
	TrackingEvents map[string][]string `json:"trackingEvents,omitempty"`
	ClickThrough   string              `json:"clickThrough,omitempty"`
	ClickTrackings []string            `json:"clickTrackings,omitempty"`
	ElapsedMS      int64               `json:"elapsedMs"`
}

// NewResolveResponse renders a resolution for clients.
func NewResolveResponse(resp *vast.Response, elapsed time.Duration) ResolveResponse {
	out := ResolveResponse{
		AdID:           resp.AdID,
		AdTitle:        resp.AdTitle,
		Chain:          make([]Hop, 0, resp.Chain.Len()),
		MediaFiles:     make([]MediaFile, 0, len(resp.MediaFiles)),
		Impressions:    resp.Impressions,
		Errors:         resp.Errors,
		ClickThrough:   resp.ClickThrough,
		ClickTrackings: resp.ClickTrackings,
		ElapsedMS:      elapsed.Milliseconds(),
	}
	for _, ad := range resp.Chain.Nodes() {
		hop := Hop{ID: ad.ID, Wrapper: ad.Wrapper != nil}
		switch {
		case ad.Wrapper != nil:
			hop.AdSystem = ad.Wrapper.AdSystem
			hop.AdTagURI = ad.Wrapper.AdTagURI
		case ad.InLine != nil:
			hop.AdSystem = ad.InLine.AdSystem
		}
		out.Chain = append(out.Chain, hop)
	}
	for _, mf := range resp.MediaFiles {
		out.MediaFiles = append(out.MediaFiles, MediaFile(mf))
	}
	if resp.Duration != nil {
		out.Duration = vast.FormatClock(*resp.Duration)
	}
	if resp.SkipOffset != nil {
		out.SkipOffset = vast.FormatClock(*resp.SkipOffset)
	}
	if len(resp.TrackingEvents) > 0 {
		out.TrackingEvents = make(map[string][]string, len(resp.TrackingEvents))
		for name, evs := range resp.TrackingEvents {
			for _, ev := range evs {
				out.TrackingEvents[name] = append(out.TrackingEvents[name], ev.URI)
			}
		}
	}
	return out
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	v := validate.New()
	v.URL("adTag", req.AdTag, []string{"http", "https"})
	if req.WrapperLimit != 0 {
		v.Range("wrapperLimit", req.WrapperLimit, 1, 20)
	}
	v.NonNegative("timeout", req.Timeout)
	if err := v.Err(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	start := time.Now()
	resp, err := s.resolver.Resolve(r.Context(), req.AdTag, vast.Limits{
		WrapperLimit:   req.WrapperLimit,
		RequestTimeout: millis(req.Timeout),
	})
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: err.Error(),
			Code:  vast.CodeOf(err),
			Kind:  vast.KindOf(err).String(),
		})
		return
	}
	writeJSON(w, http.StatusOK, NewResolveResponse(resp, time.Since(start)))
}
