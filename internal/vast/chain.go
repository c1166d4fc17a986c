// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package vast

// Chain is an ordered list of ad nodes, outermost wrapper first. The zero
// value is an empty chain. Chains are values: Append never modifies the
// receiver.
type Chain struct {
	nodes []Ad
}

// NewChain returns a chain holding ads in order.
func NewChain(ads ...Ad) Chain {
	return Chain{nodes: append([]Ad(nil), ads...)}
}

// Append returns a new chain with ad added at the end.
func (c Chain) Append(ad Ad) Chain {
	nodes := make([]Ad, len(c.nodes), len(c.nodes)+1)
	copy(nodes, c.nodes)
	return Chain{nodes: append(nodes, ad)}
}

// Len returns the number of nodes.
func (c Chain) Len() int { return len(c.nodes) }

// At returns the i-th node.
func (c Chain) At(i int) Ad { return c.nodes[i] }

// Nodes returns a copy of the nodes.
func (c Chain) Nodes() []Ad { return append([]Ad(nil), c.nodes...) }

// Last returns the innermost node.
func (c Chain) Last() (Ad, bool) {
	if len(c.nodes) == 0 {
		return Ad{}, false
	}
	return c.nodes[len(c.nodes)-1], true
}

// ErrorURLs collects every error template of the chain, outermost first.
func (c Chain) ErrorURLs() []string {
	var out []string
	for _, ad := range c.nodes {
		out = append(out, ad.ErrorURLs()...)
	}
	return out
}
