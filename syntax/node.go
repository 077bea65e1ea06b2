// Copyright © 2024 The ELPS authors

// Package syntax defines the host-independent syntax tree consumed by the
// lint engine.
//
// Trees are produced by a host frontend (see package csharp) and are never
// mutated by the engine. Every node carries a Kind tag used for dispatch, a
// Role describing the slot it fills in its parent, a source Span and its
// ordered children.
package syntax

import "fmt"

// Kind tags the syntactic category of a node.
type Kind int

const (
	KindUnknown Kind = iota
	KindCompilationUnit
	KindUsing
	KindNamespace
	KindTypeDeclaration // class, struct, interface, record
	KindMethod
	KindProperty
	KindField
	KindParameterList
	KindParameter
	KindModifier
	KindBlock
	KindTry
	KindCatch
	KindCatchDeclaration
	KindCatchFilter
	KindFinally
	KindThrow
	KindThrowExpression
	KindIf
	KindReturn
	KindExpressionStatement
	KindLocalDeclaration
	KindVariableDeclaration
	KindVariableDeclarator
	KindMemberAccess
	KindInvocation
	KindArgumentList
	KindObjectCreation
	KindAwait
	KindIdentifier
	KindGenericName
	KindQualifiedName
	KindPredefinedType
	KindTypeArgumentList
	KindArrayType
	KindTypeParameterList
	KindTypeParameter
	KindThis
	KindBase
	KindBaseList
	KindStatement  // any other statement
	KindExpression // any other expression
)

var kindNames = [...]string{
	KindUnknown:             "unknown",
	KindCompilationUnit:     "compilation-unit",
	KindUsing:               "using",
	KindNamespace:           "namespace",
	KindTypeDeclaration:     "type-declaration",
	KindMethod:              "method",
	KindProperty:            "property",
	KindField:               "field",
	KindParameterList:       "parameter-list",
	KindParameter:           "parameter",
	KindModifier:            "modifier",
	KindBlock:               "block",
	KindTry:                 "try",
	KindCatch:               "catch",
	KindCatchDeclaration:    "catch-declaration",
	KindCatchFilter:         "catch-filter",
	KindFinally:             "finally",
	KindThrow:               "throw",
	KindThrowExpression:     "throw-expression",
	KindIf:                  "if",
	KindReturn:              "return",
	KindExpressionStatement: "expression-statement",
	KindLocalDeclaration:    "local-declaration",
	KindVariableDeclaration: "variable-declaration",
	KindVariableDeclarator:  "variable-declarator",
	KindMemberAccess:        "member-access",
	KindInvocation:          "invocation",
	KindArgumentList:        "argument-list",
	KindObjectCreation:      "object-creation",
	KindAwait:               "await",
	KindIdentifier:          "identifier",
	KindGenericName:         "generic-name",
	KindQualifiedName:       "qualified-name",
	KindPredefinedType:      "predefined-type",
	KindTypeArgumentList:    "type-argument-list",
	KindArrayType:           "array-type",
	KindTypeParameterList:   "type-parameter-list",
	KindTypeParameter:       "type-parameter",
	KindThis:                "this",
	KindBase:                "base",
	KindBaseList:            "base-list",
	KindStatement:           "statement",
	KindExpression:          "expression",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Role identifies the slot a node fills within its parent.
type Role int

const (
	RoleNone Role = iota
	RoleName
	RoleType // declared type, return type, catch type, created type
	RoleParameters
	RoleBody
	RoleExpression // receiver of a member access, thrown/returned value
	RoleDeclaration
	RoleFunction // invoked expression
	RoleArguments
	RoleValue // initializer
	RoleCondition
	RoleConsequence
	RoleAlternative
	RoleQualifier
	RoleTypeParameters
	RoleAlias // alias name of a using directive
)

// Pos is a point in a source file. Line and Col are 1-based; Offset is a
// 0-based byte offset.
type Pos struct {
	Offset int
	Line   int
	Col    int
}

// Span is a half-open byte range [Start, End) in a source file.
type Span struct {
	Start Pos
	End   Pos
}

// Contains reports whether o lies within s.
func (s Span) Contains(o Span) bool {
	return s.Start.Offset <= o.Start.Offset && o.End.Offset <= s.End.Offset
}

func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.Start.Line, s.Start.Col, s.End.Line, s.End.Col)
}

// Node is an immutable syntax tree node.
type Node struct {
	Kind Kind
	Role Role
	Span Span

	// Text holds the token text of leaf nodes (identifiers, keywords,
	// modifiers, predefined types). It is empty for interior nodes.
	Text string

	Children []*Node
}

// Child returns the first child filling role, or nil.
func (n *Node) Child(role Role) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Role == role {
			return c
		}
	}
	return nil
}

// ChildOfKind returns the first direct child of the given kind, or nil.
func (n *Node) ChildOfKind(kind Kind) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Kind == kind {
			return c
		}
	}
	return nil
}

// ChildrenOfKind returns the direct children of the given kind.
func (n *Node) ChildrenOfKind(kind Kind) []*Node {
	if n == nil {
		return nil
	}
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Is reports whether n is non-nil and has the given kind.
func (n *Node) Is(kind Kind) bool {
	return n != nil && n.Kind == kind
}

// Name returns the text of the node's name child, or of the node itself when
// it is an identifier.
func (n *Node) Name() string {
	if n == nil {
		return ""
	}
	if n.Kind == KindIdentifier {
		return n.Text
	}
	if name := n.Child(RoleName); name != nil {
		return name.Name()
	}
	return ""
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	if n.Text != "" {
		return fmt.Sprintf("%s(%q)@%s", n.Kind, n.Text, n.Span)
	}
	return fmt.Sprintf("%s@%s", n.Kind, n.Span)
}

// Tree is a parsed source file.
type Tree struct {
	Filename string
	Source   []byte
	Root     *Node
}

// SourceText returns the source bytes covered by n.
func (t *Tree) SourceText(n *Node) string {
	if t == nil || n == nil {
		return ""
	}
	start, end := n.Span.Start.Offset, n.Span.End.Offset
	if start < 0 || end > len(t.Source) || start > end {
		return ""
	}
	return string(t.Source[start:end])
}
