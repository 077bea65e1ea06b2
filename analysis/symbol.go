// Copyright © 2024 The ELPS authors

// Package analysis provides the minimal semantic layer used by lint rules:
// resolved symbols, the Resolver collaborator interface, lexical scopes for
// resolver implementations, and pure classification queries over symbols.
package analysis

import "github.com/luthersystems/baseline/syntax"

// SymbolKind classifies a symbol.
type SymbolKind int

const (
	SymType SymbolKind = iota
	SymMethod
	SymProperty
	SymField
	SymParameter
	SymLocal
	SymNamespace
	SymTypeParameter
)

func (k SymbolKind) String() string {
	switch k {
	case SymType:
		return "type"
	case SymMethod:
		return "method"
	case SymProperty:
		return "property"
	case SymField:
		return "field"
	case SymParameter:
		return "parameter"
	case SymLocal:
		return "local"
	case SymNamespace:
		return "namespace"
	case SymTypeParameter:
		return "type parameter"
	default:
		return "unknown"
	}
}

// Symbol is the resolved identity of a type or member. Symbols are produced
// on demand by a Resolver; rules only hold them for the duration of a visit.
type Symbol struct {
	Name string
	Kind SymbolKind

	// Namespace is the display string of the enclosing namespace of a type
	// ("System.Threading.Tasks"). Empty for the global namespace and for
	// non-type symbols.
	Namespace string

	// ContainingType is the declaring type of a member. For a constructed
	// generic type it is nil; see Definition.
	ContainingType *Symbol

	// Type is the declared type of a field, property, parameter or local and
	// the return type of a method.
	Type *Symbol

	// Parameters are the parameters of a method, in order.
	Parameters []*Symbol

	// Members are the members of a type, in declaration order.
	Members []*Symbol

	// Bases are the base class and interfaces of a source type, in
	// declaration order.
	Bases []*Symbol

	// TypeArguments are the arguments of a constructed generic type
	// (Task<int>), or the type parameters of a generic definition.
	// Definition points at the generic definition.
	TypeArguments []*Symbol
	Definition    *Symbol

	// Decl is the declaring node when the symbol comes from source.
	Decl *syntax.Node
}

// maxBaseDepth bounds the walk up the base types, which may be cyclic in
// malformed code.
const maxBaseDepth = 32

// MembersNamed returns the members of a type with the given name, in
// declaration order, followed by those inherited from its bases.
// Constructed generic types answer from their definition.
func (s *Symbol) MembersNamed(name string) []*Symbol {
	return s.membersNamed(name, 0)
}

func (s *Symbol) membersNamed(name string, depth int) []*Symbol {
	if s == nil || depth > maxBaseDepth {
		return nil
	}
	if len(s.Members) == 0 && len(s.Bases) == 0 && s.Definition != nil {
		s = s.Definition
	}
	var out []*Symbol
	for _, m := range s.Members {
		if m.Name == name {
			out = append(out, m)
		}
	}
	for _, b := range s.Bases {
		out = append(out, b.membersNamed(name, depth+1)...)
	}
	return out
}

// Base returns the first base type of s, or nil.
func (s *Symbol) Base() *Symbol {
	if s == nil {
		return nil
	}
	if len(s.Bases) == 0 && s.Definition != nil {
		s = s.Definition
	}
	if len(s.Bases) == 0 {
		return nil
	}
	return s.Bases[0]
}

// Member returns the first member named name, or nil.
func (s *Symbol) Member(name string) *Symbol {
	if ms := s.MembersNamed(name); len(ms) > 0 {
		return ms[0]
	}
	return nil
}

// AddMember appends m to the members of s and sets its containing type.
func (s *Symbol) AddMember(m *Symbol) *Symbol {
	m.ContainingType = s
	s.Members = append(s.Members, m)
	return m
}

// Construct returns the generic type s instantiated with args. The result
// shares name and namespace with s.
func (s *Symbol) Construct(args ...*Symbol) *Symbol {
	if s == nil {
		return nil
	}
	return &Symbol{
		Name:          s.Name,
		Kind:          SymType,
		Namespace:     s.Namespace,
		TypeArguments: args,
		Definition:    s,
	}
}

// QualifiedName returns the namespace-qualified name of a type symbol.
func (s *Symbol) QualifiedName() string {
	if s == nil {
		return ""
	}
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "." + s.Name
}

func (s *Symbol) String() string {
	if s == nil {
		return "<unresolved>"
	}
	if s.ContainingType != nil {
		return s.ContainingType.QualifiedName() + "." + s.Name
	}
	return s.QualifiedName()
}
