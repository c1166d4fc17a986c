// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package macros expands [NAME] style macros in tracking URL templates.
package macros

import (
	"net/url"
	"strings"
	"sync"
)

// Delimiters is one start/end pair that brackets a macro name.
type Delimiters struct {
	Start string
	End   string
}

// DefaultDelimiters covers the literal and the percent-encoded bracket forms.
var DefaultDelimiters = []Delimiters{
	{Start: "[", End: "]"},
	{Start: "%5B", End: "%5D"},
}

// Provider resolves macro names to values.
type Provider interface {
	GetMacro(name string) (string, bool)
}

// Values is a map-backed Provider.
type Values map[string]string

// GetMacro implements Provider.
func (v Values) GetMacro(name string) (string, bool) {
	val, ok := v[name]
	return val, ok
}

// maxTemplates bounds the template cache; tracking URLs carry cache busters
// upstream so the set is not closed.
const maxTemplates = 4096

type span struct {
	start  int // index of the start delimiter
	nameLo int
	nameHi int
	end    int // index just past the end delimiter
}

type template struct {
	spans []span
}

// Processor replaces macros. It caches the macro positions of every URL
// it has seen, so repeated templates are scanned once.
type Processor struct {
	delims    []Delimiters
	templates map[string]template
	sync.RWMutex
}

// NewProcessor creates a Processor. With no delimiters DefaultDelimiters is used.
func NewProcessor(delims ...Delimiters) *Processor {
	if len(delims) == 0 {
		delims = DefaultDelimiters
	}
	return &Processor{
		delims:    delims,
		templates: make(map[string]template),
	}
}

// Replace substitutes every macro known to provider with its URL-encoded
// value. Unknown macros are left untouched.
func (p *Processor) Replace(rawURL string, provider Provider) string {
	tmpl := p.getTemplate(rawURL)
	if len(tmpl.spans) == 0 {
		return rawURL
	}

	var result strings.Builder
	result.Grow(len(rawURL))
	current := 0
	for _, s := range tmpl.spans {
		value, ok := provider.GetMacro(rawURL[s.nameLo:s.nameHi])
		if !ok {
			continue
		}
		result.WriteString(rawURL[current:s.start])
		result.WriteString(encodeComponent(value))
		current = s.end
	}
	result.WriteString(rawURL[current:])
	return result.String()
}

func (p *Processor) getTemplate(rawURL string) template {
	p.RLock()
	tmpl, ok := p.templates[rawURL]
	p.RUnlock()
	if ok {
		return tmpl
	}

	tmpl = p.construct(rawURL)
	p.Lock()
	if len(p.templates) >= maxTemplates {
		p.templates = make(map[string]template)
	}
	p.templates[rawURL] = tmpl
	p.Unlock()
	return tmpl
}

// construct scans rawURL left to right, picking the earliest start
// delimiter of any configured pair at each step.
func (p *Processor) construct(rawURL string) template {
	var tmpl template
	pos := 0
	for pos < len(rawURL) {
		best := -1
		var bestDelim Delimiters
		for _, d := range p.delims {
			if i := strings.Index(rawURL[pos:], d.Start); i >= 0 && (best == -1 || pos+i < best) {
				best = pos + i
				bestDelim = d
			}
		}
		if best == -1 {
			break
		}
		nameLo := best + len(bestDelim.Start)
		j := strings.Index(rawURL[nameLo:], bestDelim.End)
		if j == -1 {
			break
		}
		nameHi := nameLo + j
		if !validName(rawURL[nameLo:nameHi]) {
			pos = nameLo
			continue
		}
		end := nameHi + len(bestDelim.End)
		tmpl.spans = append(tmpl.spans, span{start: best, nameLo: nameLo, nameHi: nameHi, end: end})
		pos = end
	}
	return tmpl
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return true
}

// encodeComponent escapes like a URI component: spaces become %20.
func encodeComponent(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
