// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ManuGH/vastplay/internal/cache"
	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/markup"
	"github.com/ManuGH/vastplay/internal/metrics"
	"github.com/ManuGH/vastplay/internal/telemetry"
	"github.com/ManuGH/vastplay/internal/transport"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// DefaultWrapperLimit bounds chain length when no limit is configured.
const DefaultWrapperLimit = 5

// ErrorTracker fires error URL templates with the ERRORCODE macro set.
type ErrorTracker interface {
	TrackError(ctx context.Context, templates []string, code int)
}

// Limits bound a single resolution. Zero fields fall back to the client's
// configured limits.
type Limits struct {
	WrapperLimit   int
	RequestTimeout time.Duration
}

// Config is the static part of a Client.
type Config struct {
	Limits          Limits
	Headers         map[string]string
	WithCredentials bool
}

// Client resolves ad tags into playable responses.
type Client struct {
	getter   transport.Getter
	tracker  ErrorTracker
	env      Environment
	cfg      Config
	cache    cache.Cache
	cacheTTL time.Duration
	logger   zerolog.Logger
	tracer   trace.Tracer
}

// Option customizes a Client.
type Option func(*Client)

// WithCache stores wrapper follow-up documents for ttl. Top-level tags are
// never cached since they usually carry cache busters.
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(cl *Client) {
		cl.cache = c
		cl.cacheTTL = ttl
	}
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a Client.
func NewClient(getter transport.Getter, tracker ErrorTracker, env Environment, cfg Config, opts ...Option) *Client {
	if cfg.Limits.WrapperLimit <= 0 {
		cfg.Limits.WrapperLimit = DefaultWrapperLimit
	}
	c := &Client{
		getter:  getter,
		tracker: tracker,
		env:     env,
		cfg:     cfg,
		cache:   cache.NewNoOpCache(),
		logger:  xglog.WithComponent("vast"),
		tracer:  telemetry.Tracer("vastplay/vast"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Environment returns the playback environment used for media checks.
func (c *Client) Environment() Environment { return c.env }

// Resolve walks the waterfall of adTagURL and returns the first candidate
// that resolves into a valid response. Every abandoned candidate has the
// error URLs of its partial chain fired before the next one is tried.
func (c *Client) Resolve(ctx context.Context, adTagURL string, limits Limits) (*Response, error) {
	limits = c.effective(limits)
	ctx, span := c.tracer.Start(ctx, "vast.resolve",
		trace.WithAttributes(telemetry.HopAttributes(adTagURL, 0, 0)...))
	defer span.End()

	start := time.Now()
	resp, err := c.resolve(ctx, adTagURL, limits)
	logger := xglog.WithContext(ctx, c.logger).With().Str(xglog.FieldAdTag, adTagURL).Logger()
	if err != nil {
		code := CodeOf(err)
		telemetry.Fail(span, err, KindOf(err).String(), telemetry.ResolutionAttributes(0, code)...)
		metrics.RecordResolution("failure", code, 0)
		logger.Warn().Err(err).
			Str(xglog.FieldEvent, "vast.resolve_failed").
			Int(xglog.FieldErrorCode, code).
			Dur("duration", time.Since(start)).
			Msg("ad tag resolution failed")
		return nil, err
	}
	span.SetAttributes(telemetry.ResolutionAttributes(resp.Chain.Len(), 0)...)
	metrics.RecordResolution("success", 0, resp.Chain.Len())
	logger.Info().
		Str(xglog.FieldEvent, "vast.resolved").
		Int("chain_length", resp.Chain.Len()).
		Int("media_files", len(resp.MediaFiles)).
		Dur("duration", time.Since(start)).
		Msg("ad tag resolved")
	return resp, nil
}

func (c *Client) effective(l Limits) Limits {
	if l.WrapperLimit <= 0 {
		l.WrapperLimit = c.cfg.Limits.WrapperLimit
	}
	if l.RequestTimeout <= 0 {
		l.RequestTimeout = c.cfg.Limits.RequestTimeout
	}
	return l
}

func (c *Client) resolve(ctx context.Context, adTagURL string, limits Limits) (*Response, error) {
	if strings.TrimSpace(adTagURL) == "" {
		return nil, newError(KindUndefined, CodeUndefined, "resolve", "empty ad tag", nil)
	}

	ads, err := c.fetchAds(ctx, adTagURL, limits, 0, 0)
	if err != nil {
		var verr *Error
		if errors.As(err, &verr) && verr.Kind == KindUnsupportedVersion {
			var urls []string
			for _, n := range ads {
				urls = append(urls, NewAd(n).ErrorURLs()...)
			}
			c.tracker.TrackError(ctx, urls, CodeUnsupportedVersion)
		}
		return nil, err
	}

	var lastErr error
	for i, n := range ads {
		if err := ctx.Err(); err != nil {
			return nil, newError(KindUndefined, CodeUndefined, "resolve", "resolution cancelled", err)
		}
		chain, err := c.buildChain(ctx, Chain{}, n, limits, i)
		if err == nil {
			var resp *Response
			if resp, err = BuildResponse(chain, c.env); err == nil {
				return resp, nil
			}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, newError(KindUndefined, CodeUndefined, "resolve", "resolution cancelled", ctxErr)
		}

		code := CodeOf(err)
		metrics.RecordCandidateFailure(code)
		c.logger.Debug().Err(err).
			Str(xglog.FieldEvent, "vast.candidate_failed").
			Int(xglog.FieldCandidate, i).
			Int(xglog.FieldWrapperDepth, chain.Len()).
			Int(xglog.FieldErrorCode, code).
			Msg("waterfall candidate failed")
		c.tracker.TrackError(ctx, chain.ErrorURLs(), code)
		lastErr = err
	}
	return nil, lastErr
}

// buildChain appends the ad at n to chain and follows wrappers until an
// inline ad, a failure, or the wrapper limit. The returned chain includes
// every node visited so it can be used for error tracking.
func (c *Client) buildChain(ctx context.Context, chain Chain, n *markup.Node, limits Limits, candidate int) (Chain, error) {
	ad := NewAd(n)
	chain = chain.Append(ad)
	if err := ad.Validate(c.env); err != nil {
		return chain, err
	}
	if ad.IsInLine() {
		return chain, nil
	}
	if chain.Len() >= limits.WrapperLimit {
		return chain, newError(KindWrapperLimitExceeded, CodeWrapperLimit, "follow wrapper",
			fmt.Sprintf("wrapper limit of %d reached", limits.WrapperLimit), nil)
	}

	ads, err := c.fetchAds(ctx, ad.Wrapper.AdTagURI, limits, candidate, chain.Len())
	if err != nil {
		return chain, err
	}
	// A wrapped document contributes its first ad only.
	return c.buildChain(ctx, chain, ads[0], limits, candidate)
}

// fetchAds loads the document at rawURL and returns its <Ad> elements. On
// a version failure the ads are returned alongside the error.
func (c *Client) fetchAds(ctx context.Context, rawURL string, limits Limits, candidate, depth int) ([]*markup.Node, error) {
	ctx, span := c.tracer.Start(ctx, "vast.fetch",
		trace.WithAttributes(telemetry.HopAttributes(rawURL, candidate, depth)...))
	defer span.End()

	body, err := c.fetch(ctx, rawURL, limits, depth)
	if err != nil {
		telemetry.Fail(span, err, KindTransport.String())
		return nil, err
	}

	doc, err := markup.Parse(body)
	if err != nil {
		perr := newError(KindParse, CodeParse, "parse", "document is not valid XML", err)
		telemetry.Fail(span, perr, KindParse.String())
		return nil, perr
	}
	root := doc.Child("VAST")
	ads := root.Children("Ad")
	if len(ads) == 0 {
		nerr := newError(KindNoAd, CodeNoAd, "parse", "no ad in document", nil)
		telemetry.Fail(span, nerr, KindNoAd.String())
		return nil, nerr
	}
	if v, ok := root.Attr("version"); ok && !v.IsNull() && !supportedVersion(v) {
		verr := newError(KindUnsupportedVersion, CodeUnsupportedVersion, "parse",
			fmt.Sprintf("unsupported version %q", v.String()), nil)
		telemetry.Fail(span, verr, KindUnsupportedVersion.String())
		return ads, verr
	}
	return ads, nil
}

func supportedVersion(v markup.Value) bool {
	return v.Kind == markup.KindNumber && (v.Number == 2 || v.Number == 3)
}

func (c *Client) fetch(ctx context.Context, rawURL string, limits Limits, depth int) ([]byte, error) {
	cacheable := depth > 0 && c.cacheTTL > 0
	if cacheable {
		body, ok := c.cache.Get(ctx, rawURL)
		metrics.RecordDocumentCache(ok)
		if ok {
			return body, nil
		}
	}

	start := time.Now()
	res, err := c.getter.Get(ctx, rawURL, transport.Options{
		Timeout:         limits.RequestTimeout,
		Headers:         c.cfg.Headers,
		WithCredentials: c.cfg.WithCredentials,
	})
	if err != nil {
		metrics.ObserveFetch("error", time.Since(start))
		c.logger.Debug().Err(err).
			Str(xglog.FieldEvent, "vast.fetch_failed").
			Str(xglog.FieldURL, rawURL).
			Int(xglog.FieldWrapperDepth, depth).
			Msg("ad document fetch failed")
		return nil, newError(KindTransport, CodeTransport, "fetch", "GET "+rawURL, err)
	}
	metrics.ObserveFetch("ok", time.Since(start))
	c.logger.Debug().
		Str(xglog.FieldEvent, "vast.fetched").
		Str(xglog.FieldURL, rawURL).
		Int(xglog.FieldWrapperDepth, depth).
		Int("bytes", len(res.Body)).
		Msg("ad document fetched")

	if cacheable {
		c.cache.Set(ctx, rawURL, res.Body, c.cacheTTL)
	}
	return res.Body, nil
}
