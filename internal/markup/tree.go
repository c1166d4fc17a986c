// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

// Package markup converts XML documents into a keyed tree: element names
// become keys with their first letter lower-cased, repeated siblings
// collect under one key, attributes are stored under "@name" and element
// text under "keyValue".
package markup

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/htmlindex"
)

// KeyValue is the key under which element text is exposed.
const KeyValue = "keyValue"

// ErrEmptyDocument is returned when a document has no root element.
var ErrEmptyDocument = errors.New("markup: document has no root element")

// Node is one element of the tree.
type Node struct {
	Name     string
	attrs    map[string]Value
	children map[string][]*Node
	// order preserves first-appearance order of child keys.
	order []string
	// Text is nil when the element has no text or CDATA content.
	Text *Value
}

// Parse reads an XML document and returns a synthetic document node whose
// single child is the root element.
// Documents declaring a non-UTF-8 encoding are decoded first.
func Parse(data []byte) (*Node, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("markup: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, ErrEmptyDocument
	}
	top := newNode("")
	top.add(build(root))
	return top, nil
}

// charsetReader decodes input labelled with any WHATWG encoding name.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(label)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", label, err)
	}
	return enc.NewDecoder().Reader(input), nil
}

// ParseString is Parse for string input.
func ParseString(s string) (*Node, error) {
	return Parse([]byte(s))
}

func newNode(name string) *Node {
	return &Node{
		Name:     name,
		attrs:    map[string]Value{},
		children: map[string][]*Node{},
	}
}

func (n *Node) add(child *Node) {
	if _, ok := n.children[child.Name]; !ok {
		n.order = append(n.order, child.Name)
	}
	n.children[child.Name] = append(n.children[child.Name], child)
}

func build(el *etree.Element) *Node {
	n := newNode(Decapitalize(el.Tag))
	for _, a := range el.Attr {
		if a.Space == "xmlns" || (a.Space == "" && a.Key == "xmlns") {
			continue
		}
		n.attrs[Decapitalize(a.Key)] = Coerce(a.Value)
	}

	var text strings.Builder
	hasText := false
	for _, tok := range el.Child {
		switch t := tok.(type) {
		case *etree.Element:
			// Prefixed elements belong to extensions outside the ad schema.
			if t.Space != "" {
				continue
			}
			n.add(build(t))
		case *etree.CharData:
			if t.IsCData() {
				text.WriteString(t.Data)
				hasText = true
				continue
			}
			if trimmed := strings.TrimSpace(t.Data); trimmed != "" {
				text.WriteString(trimmed)
				hasText = true
			}
		}
	}
	if hasText {
		v := Coerce(text.String())
		n.Text = &v
	}
	return n
}

// Decapitalize lower-cases the first letter of name.
func Decapitalize(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError || unicode.IsLower(r) {
		return name
	}
	return string(unicode.ToLower(r)) + name[size:]
}

// Child returns the first child with the given name, or nil. The name is
// decapitalized, so "InLine" and "inLine" are equivalent.
func (n *Node) Child(name string) *Node {
	if n == nil {
		return nil
	}
	if kids := n.children[Decapitalize(name)]; len(kids) > 0 {
		return kids[0]
	}
	return nil
}

// Children returns every child with the given name in document order.
func (n *Node) Children(name string) []*Node {
	if n == nil {
		return nil
	}
	return n.children[Decapitalize(name)]
}

// Path follows a chain of first children.
func (n *Node) Path(names ...string) *Node {
	cur := n
	for _, name := range names {
		cur = cur.Child(name)
	}
	return cur
}

// Attr returns the attribute value and whether it was present.
func (n *Node) Attr(name string) (Value, bool) {
	if n == nil {
		return Value{}, false
	}
	v, ok := n.attrs[Decapitalize(name)]
	return v, ok
}

// AttrString returns the trimmed attribute text or "".
func (n *Node) AttrString(name string) string {
	v, _ := n.Attr(name)
	return v.String()
}

// KeyValue returns the element text, which is null when absent.
func (n *Node) KeyValue() Value {
	if n == nil || n.Text == nil {
		return Value{}
	}
	return *n.Text
}

// TextString returns the element text as a string, "" when absent.
func (n *Node) TextString() string {
	return n.KeyValue().String()
}

// Keys returns child keys in first-appearance order.
func (n *Node) Keys() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.order...)
}

// Map renders the node as nested maps. Single children become a map,
// repeated children a slice; attributes use the "@" prefix and text the
// "keyValue" key.
func (n *Node) Map() map[string]any {
	out := map[string]any{}
	if n == nil {
		return out
	}
	for k, v := range n.attrs {
		out["@"+k] = v.native()
	}
	if n.Text != nil {
		out[KeyValue] = n.Text.native()
	}
	for _, k := range n.order {
		kids := n.children[k]
		if len(kids) == 1 {
			out[k] = kids[0].Map()
			continue
		}
		list := make([]any, len(kids))
		for i, c := range kids {
			list[i] = c.Map()
		}
		out[k] = list
	}
	return out
}

func (v Value) native() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number
	case KindString:
		return v.Str
	default:
		return nil
	}
}
