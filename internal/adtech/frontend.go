// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package adtech

import (
	"context"
	"net/url"
	"strings"

	"github.com/ManuGH/vastplay/internal/vast"
)

// DefaultSDKHosts are tag host fragments served by interactive ad SDKs.
var DefaultSDKHosts = []string{"doubleclick", "googleapis", "imasdk"}

// Resolver turns an ad tag into a playable response.
type Resolver interface {
	Resolve(ctx context.Context, adTagURL string, limits vast.Limits) (*vast.Response, error)
}

// Decision is the outcome of a front-end: which backend plays the ad and
// what it is given.
type Decision struct {
	Backend  Kind
	TagURL   string
	Response *vast.Response
}

// FrontEnd decides how an ad tag is played.
type FrontEnd interface {
	Decide(ctx context.Context, adTagURL string) (Decision, error)
}

// TagFrontEnd follows the wrapper chain of a tag and branches on the host
// of the last tag in the chain: SDK hosts get the tag, everything else is
// played from the resolved response.
type TagFrontEnd struct {
	Resolver Resolver
	Limits   vast.Limits
	SDKHosts []string
}

// Decide implements FrontEnd.
func (f TagFrontEnd) Decide(ctx context.Context, adTagURL string) (Decision, error) {
	resp, err := f.Resolver.Resolve(ctx, adTagURL, f.Limits)
	if err != nil {
		// SDK tags are often not plain VAST; the SDK resolves them itself.
		if f.isSDK(adTagURL) && ctx.Err() == nil {
			return Decision{Backend: KindSDK, TagURL: adTagURL}, nil
		}
		return Decision{}, err
	}
	terminal := TerminalTag(adTagURL, resp.Chain)
	if f.isSDK(terminal) {
		return Decision{Backend: KindSDK, TagURL: terminal}, nil
	}
	return Decision{Backend: mediaBackend(resp), TagURL: terminal, Response: resp}, nil
}

func (f TagFrontEnd) isSDK(tag string) bool {
	hosts := f.SDKHosts
	if hosts == nil {
		hosts = DefaultSDKHosts
	}
	return IsSDKTag(tag, hosts)
}

// ResponseFrontEnd resolves the tag fully and picks the backend from the
// media files of the response.
type ResponseFrontEnd struct {
	Resolver Resolver
	Limits   vast.Limits
}

// Decide implements FrontEnd.
func (f ResponseFrontEnd) Decide(ctx context.Context, adTagURL string) (Decision, error) {
	resp, err := f.Resolver.Resolve(ctx, adTagURL, f.Limits)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Backend: mediaBackend(resp), TagURL: TerminalTag(adTagURL, resp.Chain), Response: resp}, nil
}

func mediaBackend(resp *vast.Response) Kind {
	if _, ok := pickMedia(resp, false); ok {
		return KindNative
	}
	return KindVPAID
}

// TerminalTag returns the tag the inline ad of chain was fetched from.
func TerminalTag(adTagURL string, chain vast.Chain) string {
	tag := adTagURL
	for _, ad := range chain.Nodes() {
		if ad.IsWrapper() {
			tag = ad.Wrapper.AdTagURI
		}
	}
	return tag
}

// IsSDKTag reports whether the host of tag contains one of hosts.
func IsSDKTag(tag string, hosts []string) bool {
	u, err := url.Parse(strings.TrimSpace(tag))
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range hosts {
		if h != "" && strings.Contains(host, strings.ToLower(h)) {
			return true
		}
	}
	return false
}
