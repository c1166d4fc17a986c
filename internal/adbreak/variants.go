// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adbreak

// variant is the behavior of one Kind. enter initializes a state from the
// carried session flags; handle computes the step for one event. Neither
// mutates its input.
type variant interface {
	enter(s State, cfg Settings) Step
	handle(s State, ev EventKind, cfg Settings) Step
}

func variantFor(k Kind) variant {
	switch k {
	case KindBeforePreroll:
		return beforePreroll{}
	case KindPreroll:
		return preroll{}
	case KindLinearAdBreak:
		return linearAdBreak{}
	case KindContentResuming:
		return contentResuming{}
	case KindContentPlayback:
		return contentPlayback{}
	case KindPostroll:
		return postroll{}
	case KindAdsDone:
		return adsDone{}
	case KindStitchedContentPlayback:
		return stitchedContentPlayback{}
	case KindStitchedAdRoll:
		return stitchedAdRoll{}
	}
	return nil
}

// Next is the transition function: the step the current state takes on ev.
func Next(s State, ev EventKind, cfg Settings) Step {
	v := variantFor(s.Kind)
	if v == nil {
		return ignore(s, "unknown state")
	}
	return v.handle(s, ev, cfg)
}

// Initial returns the entry state of a new session.
func Initial(cfg Settings) Step {
	if cfg.StitchedAds {
		return enterState(KindStitchedContentPlayback, State{}, cfg)
	}
	return enterState(KindBeforePreroll, State{}, cfg)
}

// Shared helpers. Variants call them explicitly.

func ignore(s State, reason string) Step {
	return Step{Next: s, Ignored: reason}
}

func stay(s State, effects ...Effect) Step {
	return Step{Next: s, Effects: effects}
}

func enterState(k Kind, base State, cfg Settings, pre ...Effect) Step {
	base.Kind = k
	step := variantFor(k).enter(base, cfg)
	step.Entered = true
	if len(pre) > 0 {
		step.Effects = append(append([]Effect(nil), pre...), step.Effects...)
	}
	return step
}

func transitionTo(k Kind, from State, cfg Settings, pre ...Effect) Step {
	return enterState(k, carry(from), cfg, pre...)
}

// newSource drops every per-source flag when the content source changes.
func newSource(from State, cfg Settings) Step {
	return enterState(KindBeforePreroll, State{epoch: from.epoch}, cfg)
}

// resumeContent leaves a waiting state without playing ads.
func resumeContent(from State, cfg Settings, pre ...Effect) Step {
	return transitionTo(KindContentPlayback, from, cfg, pre...)
}

// startBreak enters a linear ad break at pos.
func startBreak(from State, pos Position, cfg Settings) Step {
	base := carry(from)
	base.Position = pos
	return enterState(KindLinearAdBreak, base, cfg)
}

// BeforePreroll waits for the play request. Ad readiness and cancellation
// may arrive first and are remembered for the preroll.
type beforePreroll struct{}

func (beforePreroll) enter(s State, cfg Settings) Step {
	s.AdsReady = false
	s.ShouldResumeToContent = false
	if cfg.AllowAutoplay {
		s.ShouldBlockPlay = !cfg.Autoplay
	} else {
		s.ShouldBlockPlay = true
	}
	return stay(s)
}

func (v beforePreroll) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvAdsReady:
		s.AdsReady = true
		return stay(s)
	case EvPlay:
		base := carry(s)
		base.PlayRequested = true
		base.AdsReady = s.AdsReady
		base.ShouldResumeToContent = s.ShouldResumeToContent
		return enterState(KindPreroll, base, cfg)
	case EvAdsCanceled, EvAdsError:
		s.ShouldResumeToContent = true
		return stay(s)
	case EvNoPreroll:
		s.NoPreroll = true
		s.ShouldResumeToContent = true
		return stay(s)
	case EvSkipLinearAdMode:
		s.ShouldResumeToContent = true
		return stay(s, trigger(TriggerAdSkip))
	case EvContentChanged:
		return newSource(s, cfg)
	}
	return ignore(s, "waiting for play")
}

// Preroll waits for ads to be ready and for the backend to start a linear
// ad, each wait bounded by a timer.
type preroll struct{}

func (preroll) enter(s State, cfg Settings) Step {
	s.ShouldBlockPlay = true
	if s.ShouldResumeToContent || s.NoPreroll {
		return Step{Next: s, Follow: EvResumeContent}
	}
	effects := []Effect{armTimer("ads-ready", cfg.Timeout)}
	if s.AdsReady {
		effects = append(effects, readyForPreroll(cfg)...)
	}
	return stay(s, effects...)
}

func readyForPreroll(cfg Settings) []Effect {
	effects := []Effect{trigger(TriggerReadyForPreroll)}
	if cfg.PrerollTimeout > 0 {
		effects = append(effects, armTimer("preroll-start", cfg.PrerollTimeout))
	}
	return effects
}

func (preroll) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvAdsReady:
		if s.AdsReady {
			return ignore(s, "ads already ready")
		}
		s.AdsReady = true
		return stay(s, readyForPreroll(cfg)...)
	case EvStartLinearAdMode:
		return startBreak(s, PositionPreroll, cfg)
	case EvAdsError, EvAdsCanceled, EvResumeContent:
		return resumeContent(s, cfg)
	case EvNoPreroll:
		s.NoPreroll = true
		return resumeContent(s, cfg)
	case EvAdTimeout:
		return resumeContent(s, cfg, trigger(TriggerAdTimeout))
	case EvSkipLinearAdMode:
		return resumeContent(s, cfg, trigger(TriggerAdSkip))
	case EvContentChanged:
		base := carry(s)
		base.ShouldResumeToContent = s.ShouldResumeToContent
		return enterState(KindPreroll, base, cfg)
	}
	return ignore(s, "waiting for preroll")
}

// LinearAdBreak is an active linear ad; content is blocked.
type linearAdBreak struct{}

func (linearAdBreak) enter(s State, _ Settings) Step {
	s.InLinearAdMode = true
	s.ShouldBlockPlay = true
	return stay(s, Effect{Kind: EffectSnapshot}, trigger(TriggerAdStart))
}

func (linearAdBreak) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvEndLinearAdMode, EvAdsError:
		base := carry(s)
		base.InLinearAdMode = false
		if s.Position == PositionPostroll {
			return enterState(KindAdsDone, base, cfg, trigger(TriggerAdEnd), Effect{Kind: EffectRestore})
		}
		base.Position = s.Position
		return enterState(KindContentResuming, base, cfg, trigger(TriggerAdEnd))
	case EvStartLinearAdMode:
		return ignore(s, "already in linear ad mode")
	case EvSkipLinearAdMode:
		return ignore(s, "ad break started; use endLinearAdMode")
	}
	return ignore(s, "in ad break")
}

// ContentResuming restores the snapshot and waits for content to play.
type contentResuming struct{}

func (contentResuming) enter(s State, cfg Settings) Step {
	s.ShouldBlockPlay = true
	return stay(s, Effect{Kind: EffectRestore}, armTimer("resume", cfg.Timeout))
}

func (contentResuming) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvContentResumed, EvAdTimeout:
		return resumeContent(s, cfg)
	case EvContentEnded:
		return contentEnded(s, cfg)
	}
	return ignore(s, "resuming content")
}

// ContentPlayback plays content; midrolls may start at any time.
type contentPlayback struct{}

func (contentPlayback) enter(s State, _ Settings) Step {
	s.ShouldBlockPlay = false
	s.ContentEnding = false
	effects := []Effect{trigger(TriggerContentPlayback)}
	if s.PlayBlocked {
		s.PlayBlocked = false
		effects = append(effects, Effect{Kind: EffectPlayContent})
	}
	return stay(s, effects...)
}

func (contentPlayback) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvStartLinearAdMode:
		return startBreak(s, PositionMidroll, cfg)
	case EvContentEnded:
		return contentEnded(s, cfg)
	case EvNoPostroll:
		s.NoPostroll = true
		return stay(s)
	case EvContentChanged:
		return newSource(s, cfg)
	}
	return ignore(s, "content playing")
}

func contentEnded(s State, cfg Settings) Step {
	if s.NoPostroll {
		return transitionTo(KindAdsDone, s, cfg)
	}
	return transitionTo(KindPostroll, s, cfg)
}

// Postroll asks for a postroll and waits for it to start.
type postroll struct{}

func (postroll) enter(s State, cfg Settings) Step {
	s.ContentEnding = true
	s.ShouldBlockPlay = true
	return stay(s, trigger(TriggerReadyForPostroll), armTimer("postroll-start", cfg.postrollWait()))
}

func (postroll) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvStartLinearAdMode:
		return startBreak(s, PositionPostroll, cfg)
	case EvNoPostroll:
		s.NoPostroll = true
		return transitionTo(KindAdsDone, s, cfg)
	case EvAdsError, EvAdsCanceled:
		return transitionTo(KindAdsDone, s, cfg)
	case EvAdTimeout:
		return transitionTo(KindAdsDone, s, cfg, trigger(TriggerAdTimeout))
	case EvSkipLinearAdMode:
		return transitionTo(KindAdsDone, s, cfg, trigger(TriggerAdSkip))
	case EvContentChanged:
		return newSource(s, cfg)
	}
	return ignore(s, "waiting for postroll")
}

// AdsDone is the end of content and of all ads for the source.
type adsDone struct{}

func (adsDone) enter(s State, _ Settings) Step {
	s.ContentEnding = false
	s.ContentHasEnded = true
	s.ShouldBlockPlay = false
	return stay(s, trigger(TriggerEnded))
}

func (adsDone) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvContentChanged:
		return newSource(s, cfg)
	case EvStartLinearAdMode:
		return ignore(s, "ads already done for this source")
	}
	return ignore(s, "content ended")
}

// StitchedContentPlayback plays content with ads embedded in the stream;
// nothing is ever blocked.
type stitchedContentPlayback struct{}

func (stitchedContentPlayback) enter(s State, _ Settings) Step {
	s.ShouldBlockPlay = false
	return stay(s)
}

func (stitchedContentPlayback) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvStartLinearAdMode:
		base := carry(s)
		base.Position = PositionMidroll
		return enterState(KindStitchedAdRoll, base, cfg)
	case EvContentChanged:
		return transitionTo(KindStitchedContentPlayback, s, cfg)
	}
	return ignore(s, "stitched content")
}

// StitchedAdRoll is an ad inside a stitched stream.
type stitchedAdRoll struct{}

func (stitchedAdRoll) enter(s State, _ Settings) Step {
	s.InLinearAdMode = true
	return stay(s, trigger(TriggerAdStart))
}

func (stitchedAdRoll) handle(s State, ev EventKind, cfg Settings) Step {
	switch ev {
	case EvEndLinearAdMode, EvContentEnded, EvAdsError:
		base := carry(s)
		base.InLinearAdMode = false
		return enterState(KindStitchedContentPlayback, base, cfg, trigger(TriggerAdEnd))
	}
	return ignore(s, "stitched ad playing")
}
