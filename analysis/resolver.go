// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/baseline/syntax"

// Resolver answers symbol questions about nodes of one tree. Hosts provide
// it alongside the tree. Implementations must be safe for concurrent use
// and return nil for anything they cannot resolve.
type Resolver interface {
	// TypeOf returns the type denoted by a type-reference node, or the type
	// of an expression node.
	TypeOf(node *syntax.Node) *Symbol

	// SymbolOf returns the symbol an expression refers to: the member
	// selected by a member access, the local or parameter named by an
	// identifier.
	SymbolOf(node *syntax.Node) *Symbol
}

// NopResolver resolves nothing. Rules running against it only report what
// can be decided syntactically.
type NopResolver struct{}

func (NopResolver) TypeOf(*syntax.Node) *Symbol   { return nil }
func (NopResolver) SymbolOf(*syntax.Node) *Symbol { return nil }

// MapResolver resolves from fixed node-to-symbol maps. It is useful to
// hosts that precompute bindings and in tests.
type MapResolver struct {
	Types   map[*syntax.Node]*Symbol
	Symbols map[*syntax.Node]*Symbol
}

func (r *MapResolver) TypeOf(n *syntax.Node) *Symbol {
	if r == nil {
		return nil
	}
	return r.Types[n]
}

func (r *MapResolver) SymbolOf(n *syntax.Node) *Symbol {
	if r == nil {
		return nil
	}
	return r.Symbols[n]
}
