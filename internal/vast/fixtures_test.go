// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ManuGH/vastplay/internal/markup"
	"github.com/ManuGH/vastplay/internal/transport"
)

func vastDoc(version string, ads ...string) string {
	attr := ""
	if version != "" {
		attr = fmt.Sprintf(` version=%q`, version)
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><VAST%s>%s</VAST>`, attr, strings.Join(ads, ""))
}

func inlineAd(id, errURL string) string {
	return fmt.Sprintf(`<Ad id=%q><InLine>
  <AdSystem>test</AdSystem>
  <AdTitle>%s title</AdTitle>
  <Error><![CDATA[%s]]></Error>
  <Impression><![CDATA[http://t.example/imp/%s]]></Impression>
  <Creatives>
    <Creative id="c-%s" sequence="1">
      <Linear skipoffset="00:00:05">
        <Duration>00:00:30</Duration>
        <TrackingEvents>
          <Tracking event="start">http://t.example/start/%s</Tracking>
          <Tracking event="progress" offset="50%%">http://t.example/half/%s</Tracking>
        </TrackingEvents>
        <VideoClicks>
          <ClickThrough>http://advertiser.example/</ClickThrough>
          <ClickTracking>http://t.example/click/%s</ClickTracking>
        </VideoClicks>
        <MediaFiles>
          <MediaFile type="video/mp4" delivery="progressive" width="640" height="360" bitrate="800"><![CDATA[http://media.example/%s.mp4]]></MediaFile>
        </MediaFiles>
      </Linear>
    </Creative>
  </Creatives>
</InLine></Ad>`, id, id, errURL, id, id, id, id, id, id)
}

func wrapperAd(id, next, errURL string) string {
	return fmt.Sprintf(`<Ad id=%q><Wrapper>
  <AdSystem>wrap</AdSystem>
  <VASTAdTagURI><![CDATA[%s]]></VASTAdTagURI>
  <Error><![CDATA[%s]]></Error>
  <Impression>http://t.example/imp/%s</Impression>
  <Creatives>
    <Creative>
      <Linear>
        <TrackingEvents>
          <Tracking event="start">http://t.example/start/%s</Tracking>
        </TrackingEvents>
      </Linear>
    </Creative>
  </Creatives>
</Wrapper></Ad>`, id, next, errURL, id, id)
}

// brokenAd has both a wrapper and an inline branch.
func brokenAd(id, errURL string) string {
	return fmt.Sprintf(`<Ad id=%q>
  <Wrapper><VASTAdTagURI>http://ads.example/never</VASTAdTagURI><Error><![CDATA[%s]]></Error></Wrapper>
  <InLine><AdSystem>x</AdSystem></InLine>
</Ad>`, id, errURL)
}

func mustAd(xml string) Ad {
	doc, err := markup.ParseString(vastDoc("3.0", xml))
	if err != nil {
		panic(err)
	}
	return NewAd(doc.Path("VAST", "Ad"))
}

type fakeGetter struct {
	mu    sync.Mutex
	docs  map[string]string
	fail  map[string]error
	calls []string
}

func newFakeGetter() *fakeGetter {
	return &fakeGetter{docs: map[string]string{}, fail: map[string]error{}}
}

func (f *fakeGetter) serve(url, body string) { f.docs[url] = body }

func (f *fakeGetter) Get(ctx context.Context, rawURL string, _ transport.Options) (*transport.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, rawURL)
	if err := ctx.Err(); err != nil {
		return nil, &transport.Error{Sentinel: transport.ErrUnavailable, URL: rawURL, Err: err}
	}
	if err, ok := f.fail[rawURL]; ok {
		return nil, err
	}
	body, ok := f.docs[rawURL]
	if !ok {
		return nil, &transport.Error{Sentinel: transport.ErrStatus, URL: rawURL, Status: 404}
	}
	return &transport.Response{Status: 200, StatusText: "OK", Body: []byte(body)}, nil
}

func (f *fakeGetter) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type trackCall struct {
	templates []string
	code      int
}

type fakeTracker struct {
	mu    sync.Mutex
	calls []trackCall
}

func (f *fakeTracker) TrackError(_ context.Context, templates []string, code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, trackCall{templates: append([]string(nil), templates...), code: code})
}

func (f *fakeTracker) recorded() []trackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]trackCall(nil), f.calls...)
}

var mp4Env = NewEnvironment([]string{"video/mp4", "video/webm", TypeJavaScript})
