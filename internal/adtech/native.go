// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import "github.com/ManuGH/vastplay/internal/vast"

// native plays a progressive or streaming media file of the response.
type native struct{ *vastBackend }

func newNative(resp *vast.Response, tr Tracker) (Backend, error) {
	media, ok := pickMedia(resp, false)
	if !ok {
		return nil, ErrNoMedia
	}
	return native{newVASTBackend(KindNative, resp, media, tr)}, nil
}

// pickMedia returns the first file of the requested family, preferring
// the highest bitrate among files of the same type as the first match.
func pickMedia(resp *vast.Response, vpaid bool) (vast.MediaFile, bool) {
	if resp == nil {
		return vast.MediaFile{}, false
	}
	var best vast.MediaFile
	found := false
	for _, mf := range resp.MediaFiles {
		if mf.IsVPAID() != vpaid || mf.URL == "" {
			continue
		}
		if !found {
			best, found = mf, true
			continue
		}
		if mf.Type == best.Type && mf.Bitrate > best.Bitrate {
			best = mf
		}
	}
	return best, found
}
