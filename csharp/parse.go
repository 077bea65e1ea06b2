// Copyright © 2024 The ELPS authors

// Package csharp is the C# host frontend: it parses source with the
// tree-sitter C# grammar, maps the concrete syntax tree onto syntax.Node and
// binds the names it can to symbols.
package csharp

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tscsharp "github.com/smacker/go-tree-sitter/csharp"

	"github.com/luthersystems/baseline/syntax"
)

// kinds maps grammar node types onto syntax kinds. Unlisted node types map
// to KindStatement, KindExpression or KindUnknown by suffix.
var kinds = map[string]syntax.Kind{
	"compilation_unit":                  syntax.KindCompilationUnit,
	"using_directive":                   syntax.KindUsing,
	"namespace_declaration":             syntax.KindNamespace,
	"file_scoped_namespace_declaration": syntax.KindNamespace,
	"class_declaration":                 syntax.KindTypeDeclaration,
	"struct_declaration":                syntax.KindTypeDeclaration,
	"interface_declaration":             syntax.KindTypeDeclaration,
	"record_declaration":                syntax.KindTypeDeclaration,
	"record_struct_declaration":         syntax.KindTypeDeclaration,
	"method_declaration":                syntax.KindMethod,
	"property_declaration":              syntax.KindProperty,
	"field_declaration":                 syntax.KindField,
	"parameter_list":                    syntax.KindParameterList,
	"parameter":                         syntax.KindParameter,
	"modifier":                          syntax.KindModifier,
	"parameter_modifier":                syntax.KindModifier,
	"block":                             syntax.KindBlock,
	"declaration_list":                  syntax.KindBlock,
	"try_statement":                     syntax.KindTry,
	"catch_clause":                      syntax.KindCatch,
	"catch_declaration":                 syntax.KindCatchDeclaration,
	"catch_filter_clause":               syntax.KindCatchFilter,
	"finally_clause":                    syntax.KindFinally,
	"throw_statement":                   syntax.KindThrow,
	"throw_expression":                  syntax.KindThrowExpression,
	"if_statement":                      syntax.KindIf,
	"return_statement":                  syntax.KindReturn,
	"expression_statement":              syntax.KindExpressionStatement,
	"local_declaration_statement":       syntax.KindLocalDeclaration,
	"variable_declaration":              syntax.KindVariableDeclaration,
	"variable_declarator":               syntax.KindVariableDeclarator,
	"member_access_expression":          syntax.KindMemberAccess,
	"invocation_expression":             syntax.KindInvocation,
	"argument_list":                     syntax.KindArgumentList,
	"object_creation_expression":        syntax.KindObjectCreation,
	"await_expression":                  syntax.KindAwait,
	"identifier":                        syntax.KindIdentifier,
	"implicit_type":                     syntax.KindIdentifier,
	"generic_name":                      syntax.KindGenericName,
	"qualified_name":                    syntax.KindQualifiedName,
	"predefined_type":                   syntax.KindPredefinedType,
	"void_keyword":                      syntax.KindPredefinedType,
	"type_argument_list":                syntax.KindTypeArgumentList,
	"array_type":                        syntax.KindArrayType,
	"type_parameter_list":               syntax.KindTypeParameterList,
	"type_parameter":                    syntax.KindTypeParameter,
	"base_list":                         syntax.KindBaseList,
	"this_expression":                   syntax.KindThis,
	"this":                              syntax.KindThis,
	"base_expression":                   syntax.KindBase,
	"base":                              syntax.KindBase,
}

// fields maps grammar field names onto syntax roles.
var fields = []struct {
	name string
	role syntax.Role
}{
	{"name", syntax.RoleName},
	{"type", syntax.RoleType},
	{"returns", syntax.RoleType},
	{"parameters", syntax.RoleParameters},
	{"body", syntax.RoleBody},
	{"expression", syntax.RoleExpression},
	{"function", syntax.RoleFunction},
	{"arguments", syntax.RoleArguments},
	{"value", syntax.RoleValue},
	{"condition", syntax.RoleCondition},
	{"consequence", syntax.RoleConsequence},
	{"alternative", syntax.RoleAlternative},
	{"qualifier", syntax.RoleQualifier},
	{"type_parameters", syntax.RoleTypeParameters},
	{"alias", syntax.RoleAlias},
}

var roles = func() map[string]syntax.Role {
	m := make(map[string]syntax.Role, len(fields))
	for _, f := range fields {
		m[f.name] = f.role
	}
	return m
}()

// skipped node types carry no meaning for analysis.
var skipped = map[string]bool{
	"comment": true,
}

func kindOf(typ string) syntax.Kind {
	if k, ok := kinds[typ]; ok {
		return k
	}
	switch {
	case strings.HasSuffix(typ, "_statement"):
		return syntax.KindStatement
	case strings.HasSuffix(typ, "_expression"), strings.HasSuffix(typ, "_literal"):
		return syntax.KindExpression
	default:
		return syntax.KindUnknown
	}
}

// Parse parses C# source into a syntax tree. Syntax errors do not fail the
// parse; the grammar recovers and the erroneous regions map to
// KindUnknown nodes.
func Parse(ctx context.Context, filename string, src []byte) (*syntax.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(tscsharp.GetLanguage())

	tstree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse source: %w", err)
	}
	defer tstree.Close()

	c := &converter{src: src}
	root := c.convert(tstree.RootNode(), syntax.RoleNone)
	if root == nil {
		root = &syntax.Node{Kind: syntax.KindCompilationUnit}
	}
	return &syntax.Tree{Filename: filename, Source: src, Root: root}, nil
}

type converter struct {
	src []byte
}

func (c *converter) pos(p sitter.Point, offset uint32) syntax.Pos {
	return syntax.Pos{Offset: int(offset), Line: int(p.Row) + 1, Col: int(p.Column) + 1}
}

func (c *converter) span(n *sitter.Node) syntax.Span {
	return syntax.Span{
		Start: c.pos(n.StartPoint(), n.StartByte()),
		End:   c.pos(n.EndPoint(), n.EndByte()),
	}
}

func (c *converter) convert(n *sitter.Node, role syntax.Role) *syntax.Node {
	if n == nil || skipped[n.Type()] {
		return nil
	}
	out := &syntax.Node{
		Kind: kindOf(n.Type()),
		Role: role,
		Span: c.span(n),
	}
	count := int(n.ChildCount())
	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}
		if !child.IsNamed() {
			if cv := c.keyword(out.Kind, n, i, child); cv != nil {
				out.Children = append(out.Children, cv)
			}
			continue
		}
		switch child.Type() {
		case "equals_value_clause":
			// `= value` wraps the initializer in older grammar versions.
			if cv := c.convertInner(child, syntax.RoleValue); cv != nil {
				out.Children = append(out.Children, cv)
			}
			continue
		case "name_equals":
			// `using Alias = Name;` in older grammar versions.
			if cv := c.convertInner(child, syntax.RoleAlias); cv != nil {
				out.Children = append(out.Children, cv)
			}
			continue
		}
		cv := c.convert(child, fieldRole(n, i, child))
		if cv != nil {
			out.Children = append(out.Children, cv)
		}
	}
	if len(out.Children) == 0 || out.Kind == syntax.KindModifier {
		out.Text = n.Content(c.src)
		out.Children = nil
	}
	assignRoles(out)
	return out
}

func (c *converter) convertInner(n *sitter.Node, role syntax.Role) *syntax.Node {
	if v := n.NamedChild(0); v != nil {
		return c.convert(v, role)
	}
	return nil
}

// keyword converts the anonymous tokens that carry meaning: the receiver
// modifier of an extension method parameter, and this or base used as the
// receiver of a member access. Grammar versions differ on whether these are
// named nodes.
func (c *converter) keyword(parent syntax.Kind, n *sitter.Node, i int, child *sitter.Node) *syntax.Node {
	text := child.Type()
	switch {
	case parent == syntax.KindParameter && text == "this":
		return &syntax.Node{Kind: syntax.KindModifier, Span: c.span(child), Text: text}
	case parent == syntax.KindMemberAccess && (text == "this" || text == "base"):
		role := fieldRole(n, i, child)
		if role == syntax.RoleNone {
			role = syntax.RoleExpression
		}
		return &syntax.Node{Kind: kinds[text], Role: role, Span: c.span(child), Text: text}
	}
	return nil
}

// fieldRole returns the role of the i-th child of n. Fields inherited
// through hidden grammar rules are not always reported per child, so the
// field lookups are consulted as well.
func fieldRole(n *sitter.Node, i int, child *sitter.Node) syntax.Role {
	if role, ok := roles[n.FieldNameForChild(i)]; ok {
		return role
	}
	for _, f := range fields {
		if fc := n.ChildByFieldName(f.name); fc != nil && fc.Equal(child) {
			return f.role
		}
	}
	return syntax.RoleNone
}

// assignRoles fills in the roles the grammar leaves unnamed.
func assignRoles(n *syntax.Node) {
	switch n.Kind {
	case syntax.KindCatch:
		setRole(n, syntax.KindCatchDeclaration, syntax.RoleDeclaration)
		setRole(n, syntax.KindCatchFilter, syntax.RoleCondition)
	case syntax.KindLocalDeclaration, syntax.KindField:
		setRole(n, syntax.KindVariableDeclaration, syntax.RoleDeclaration)
	case syntax.KindGenericName:
		setRole(n, syntax.KindIdentifier, syntax.RoleName)
		setRole(n, syntax.KindTypeArgumentList, syntax.RoleArguments)
	case syntax.KindThrow, syntax.KindThrowExpression, syntax.KindReturn,
		syntax.KindExpressionStatement, syntax.KindAwait:
		setFirst(n, syntax.RoleExpression)
	case syntax.KindUsing:
		// The target is the last name. A name before it is an alias.
		role := syntax.RoleName
		if n.Child(syntax.RoleName) != nil {
			role = syntax.RoleAlias
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			c := n.Children[i]
			if c.Role == syntax.RoleNone && isName(c) && n.Child(role) == nil {
				c.Role = role
				role = syntax.RoleAlias
			}
		}
	case syntax.KindTypeDeclaration, syntax.KindMethod:
		setRole(n, syntax.KindTypeParameterList, syntax.RoleTypeParameters)
	case syntax.KindNamespace, syntax.KindTypeParameter:
		setFirstName(n)
	case syntax.KindArrayType:
		setFirst(n, syntax.RoleType)
	case syntax.KindVariableDeclarator:
		var named bool
		for _, c := range n.Children {
			switch {
			case c.Role == syntax.RoleName:
				named = true
			case !named && c.Role == syntax.RoleNone && c.Kind == syntax.KindIdentifier:
				c.Role = syntax.RoleName
				named = true
			case named && c.Role == syntax.RoleNone:
				c.Role = syntax.RoleValue
			}
		}
	}
}

func isName(n *syntax.Node) bool {
	switch n.Kind {
	case syntax.KindIdentifier, syntax.KindQualifiedName, syntax.KindGenericName:
		return true
	}
	return false
}

func setRole(n *syntax.Node, kind syntax.Kind, role syntax.Role) {
	for _, c := range n.Children {
		if c.Kind == kind && c.Role == syntax.RoleNone {
			c.Role = role
		}
	}
}

func setFirst(n *syntax.Node, role syntax.Role) {
	if n.Child(role) != nil {
		return
	}
	for _, c := range n.Children {
		if c.Role == syntax.RoleNone {
			c.Role = role
			return
		}
	}
}

func setFirstName(n *syntax.Node) {
	if n.Child(syntax.RoleName) != nil {
		return
	}
	for _, c := range n.Children {
		if c.Role == syntax.RoleNone && isName(c) {
			c.Role = syntax.RoleName
			return
		}
	}
}
