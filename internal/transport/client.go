// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package transport performs the HTTP GETs used to fetch ad tag documents
// and fire tracking pixels.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"strings"
	"time"

	xglog "github.com/ManuGH/vastplay/internal/log"
	"github.com/ManuGH/vastplay/internal/resilience"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/publicsuffix"
)

const defaultMaxBody = 4 << 20

// Options configures a single GET.
type Options struct {
	// Timeout aborts the in-flight request. Zero leaves it to ctx.
	Timeout time.Duration
	Headers map[string]string
	// WithCredentials sends and stores cookies for the target site.
	WithCredentials bool
}

// Response is a completed 2xx response.
type Response struct {
	Status       int
	StatusText   string
	Body         []byte
	HeaderString string
}

// Getter is the transport primitive consumed by the resolver and the tracker.
type Getter interface {
	Get(ctx context.Context, rawURL string, opts Options) (*Response, error)
}

// Client is the production Getter.
type Client struct {
	plain     *http.Client
	withJar   *http.Client
	breakers  *resilience.Set
	userAgent string
	maxBody   int64
	logger    zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithBreakers guards each host with its own circuit breaker.
func WithBreakers(s *resilience.Set) Option {
	return func(c *Client) { c.breakers = s }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithMaxBody limits how many response bytes are read.
func WithMaxBody(n int64) Option {
	return func(c *Client) { c.maxBody = n }
}

// WithHTTPTransport replaces the round tripper (tests).
func WithHTTPTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.plain.Transport = rt
		c.withJar.Transport = rt
	}
}

// New creates a Client with otelhttp instrumentation.
func New(opts ...Option) *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	rt := otelhttp.NewTransport(http.DefaultTransport)
	c := &Client{
		plain:   &http.Client{Transport: rt},
		withJar: &http.Client{Transport: rt, Jar: jar},
		maxBody: defaultMaxBody,
		logger:  xglog.WithComponent("transport"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches rawURL. Any status outside 2xx is returned as an *Error
// wrapping ErrStatus.
func (c *Client) Get(ctx context.Context, rawURL string, opts Options) (*Response, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &Error{Sentinel: ErrInvalidURL, URL: rawURL, Err: err}
	}
	target := u.String()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var resp *Response
	var statusErr error
	do := func() error {
		r, err := c.do(ctx, target, opts)
		if err != nil {
			return err
		}
		resp = r
		if r.Status < 200 || r.Status > 299 {
			statusErr = &Error{Sentinel: ErrStatus, URL: target, Status: r.Status, StatusText: r.StatusText}
			// Only server side failures count against the host.
			if r.Status >= http.StatusInternalServerError {
				return statusErr
			}
		}
		return nil
	}

	if c.breakers != nil {
		err = c.breakers.For(u.Host).Execute(do)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			return nil, &Error{Sentinel: ErrCircuitOpen, URL: target, Err: err}
		}
	} else {
		err = do()
	}
	if err != nil {
		return nil, err
	}
	if statusErr != nil {
		return nil, statusErr
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, target string, opts Options) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Sentinel: ErrInvalidURL, URL: target, Err: err}
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	client := c.plain
	if opts.WithCredentials {
		client = c.withJar
	}

	start := time.Now()
	res, err := client.Do(req)
	if err != nil {
		return nil, classify(target, err)
	}
	defer func() { _ = res.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(res.Body, c.maxBody+1))
	if err != nil {
		return nil, classify(target, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, &Error{Sentinel: ErrBodyTooBig, URL: target, Status: res.StatusCode}
	}

	c.logger.Debug().
		Str(xglog.FieldURL, target).
		Int("status", res.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("GET completed")

	return &Response{
		Status:       res.StatusCode,
		StatusText:   statusText(res),
		Body:         body,
		HeaderString: headerString(res.Header),
	}, nil
}

func classify(target string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{Sentinel: ErrTimeout, URL: target, Err: err}
	}
	return &Error{Sentinel: ErrUnavailable, URL: target, Err: err}
}

func statusText(res *http.Response) string {
	// res.Status is "200 OK"; keep the reason phrase the server sent.
	if _, text, ok := strings.Cut(res.Status, " "); ok {
		return text
	}
	return http.StatusText(res.StatusCode)
}

// headerString renders headers as "name: value" lines joined by CRLF, names
// lower-cased and sorted.
func headerString(h http.Header) string {
	names := make([]string, 0, len(h))
	for k := range h {
		names = append(names, k)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, k := range names {
		fmt.Fprintf(&b, "%s: %s\r\n", strings.ToLower(k), strings.Join(h[k], ", "))
	}
	return b.String()
}
