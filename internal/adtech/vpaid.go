// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"

	"github.com/ManuGH/vastplay/internal/vast"
)

// vpaid hands an interactive unit to the player. The unit reports its own
// lifecycle; failures are tracked with the VPAID error code.
type vpaid struct{ *vastBackend }

func newVPAID(resp *vast.Response, tr Tracker) (Backend, error) {
	media, ok := pickMedia(resp, true)
	if !ok {
		return nil, ErrNoMedia
	}
	return vpaid{newVASTBackend(KindVPAID, resp, media, tr)}, nil
}

func (v vpaid) Failed(ctx context.Context, code int) {
	if code == vast.CodeMediaDisplay {
		code = vast.CodeVPAID
	}
	v.vastBackend.Failed(ctx, code)
}
