// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"
	"time"
)

// sdk delegates a tag to an interactive ad SDK on the player, which
// resolves, tracks and renders it on its own.
type sdk struct{ tagURL string }

func newSDK(tagURL string) Backend { return sdk{tagURL: tagURL} }

func (s sdk) Kind() Kind   { return KindSDK }
func (s sdk) Spec() AdSpec { return AdSpec{Backend: KindSDK, TagURL: s.tagURL} }

func (sdk) Started(context.Context)                 {}
func (sdk) Progress(context.Context, time.Duration) {}
func (sdk) Ended(context.Context)                   {}
func (sdk) Skipped(context.Context)                 {}
func (sdk) Clicked(context.Context) string          { return "" }
func (sdk) Failed(context.Context, int)             {}
