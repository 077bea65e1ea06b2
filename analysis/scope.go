// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/baseline/syntax"

// ScopeKind classifies the kind of scope.
type ScopeKind int

const (
	ScopeGlobal    ScopeKind = iota // compilation unit
	ScopeNamespace                  // namespace body
	ScopeType                       // class/struct/interface body
	ScopeMethod                     // method parameters
	ScopeBlock                      // block of statements
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeGlobal:
		return "global"
	case ScopeNamespace:
		return "namespace"
	case ScopeType:
		return "type"
	case ScopeMethod:
		return "method"
	case ScopeBlock:
		return "block"
	default:
		return "unknown"
	}
}

// Scope is a lexical scope in the source.
type Scope struct {
	Kind     ScopeKind
	Parent   *Scope
	Children []*Scope
	Symbols  map[string]*Symbol
	Node     *syntax.Node // the node that introduced this scope

	// Namespace is the namespace display string in effect in this scope.
	Namespace string
}

// NewScope creates a new scope of the given kind with the given parent. The
// namespace is inherited from the parent.
func NewScope(kind ScopeKind, parent *Scope, node *syntax.Node) *Scope {
	s := &Scope{
		Kind:    kind,
		Parent:  parent,
		Symbols: make(map[string]*Symbol),
		Node:    node,
	}
	if parent != nil {
		s.Namespace = parent.Namespace
		parent.Children = append(parent.Children, s)
	}
	return s
}

// Define adds a symbol to this scope, shadowing any outer symbol of the
// same name.
func (s *Scope) Define(sym *Symbol) {
	s.Symbols[sym.Name] = sym
}

// Lookup resolves a name by walking the parent chain.
// Returns nil if the name is not found.
func (s *Scope) Lookup(name string) *Symbol {
	for scope := s; scope != nil; scope = scope.Parent {
		if sym, ok := scope.Symbols[name]; ok {
			return sym
		}
	}
	return nil
}

// LookupLocal resolves a name only in this scope (not parents).
func (s *Scope) LookupLocal(name string) *Symbol {
	return s.Symbols[name]
}

// Enclosing returns the nearest scope of the given kind, starting at s.
func (s *Scope) Enclosing(kind ScopeKind) *Scope {
	for scope := s; scope != nil; scope = scope.Parent {
		if scope.Kind == kind {
			return scope
		}
	}
	return nil
}
