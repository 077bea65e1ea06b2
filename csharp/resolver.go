// Copyright © 2024 The ELPS authors

package csharp

import (
	"strings"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
)

const implicitType = "var"

// Resolver binds the names of one tree to symbols. All binding happens in
// NewResolver; afterwards the Resolver is read-only and safe for concurrent
// use.
//
// Resolution is declaration based. It knows the file's own namespaces and
// types, their base types and type parameters, method parameters and
// locals, using directives and aliases, and the table of well-known library
// types. Overloads and lambdas are not modelled; what cannot be bound is
// left unresolved.
type Resolver struct {
	types   map[*syntax.Node]*analysis.Symbol
	symbols map[*syntax.Node]*analysis.Symbol

	known     typeTable
	workspace typeTable
	usings    []string
	aliases   []*syntax.Node
	aliased   typeTable

	global *analysis.Scope
	// decls are the type declarations in source order.
	decls      []*syntax.Node
	declScopes map[*syntax.Node]*analysis.Scope
}

var _ analysis.Resolver = (*Resolver)(nil)

// NewResolver binds tree.
func NewResolver(tree *syntax.Tree) *Resolver {
	return newResolver(tree, nil)
}

func newResolver(tree *syntax.Tree, workspace typeTable) *Resolver {
	r := declareTree(tree, workspace)
	if r.global == nil {
		return r
	}
	r.bindSignatures()
	r.bindContainer(tree.Root, r.global)
	return r
}

// declareTree creates the symbols of the types tree declares. Nothing is
// bound yet, so the types of other files can be collected before any
// signature refers to them.
func declareTree(tree *syntax.Tree, workspace typeTable) *Resolver {
	r := &Resolver{
		types:      make(map[*syntax.Node]*analysis.Symbol),
		symbols:    make(map[*syntax.Node]*analysis.Symbol),
		known:      make(typeTable, len(builtins)),
		workspace:  workspace,
		aliased:    make(typeTable),
		declScopes: make(map[*syntax.Node]*analysis.Scope),
	}
	for k, v := range builtins {
		r.known[k] = v
	}
	if tree == nil || tree.Root == nil {
		return r
	}
	r.global = analysis.NewScope(analysis.ScopeGlobal, nil, tree.Root)
	r.declare(tree.Root, r.global)
	return r
}

// bindSignatures binds using aliases, base types and member signatures
// into the symbols created by declareTree.
func (r *Resolver) bindSignatures() {
	for _, a := range r.aliases {
		name := a.Child(syntax.RoleAlias).Name()
		if t := r.bindType(a.Child(syntax.RoleName), r.global); t != nil {
			r.aliased[name] = t
		}
	}
	for _, decl := range r.decls {
		r.declareBases(decl)
		r.declareMembers(decl)
	}
}

func (r *Resolver) TypeOf(n *syntax.Node) *analysis.Symbol {
	if r == nil {
		return nil
	}
	return r.types[n]
}

func (r *Resolver) SymbolOf(n *syntax.Node) *analysis.Symbol {
	if r == nil {
		return nil
	}
	return r.symbols[n]
}

// declare registers namespaces, using directives and type declarations. A
// namespace without a body also applies to the declarations after it.
func (r *Resolver) declare(container *syntax.Node, scope *analysis.Scope) {
	for _, n := range r.members(container) {
		switch n.Kind {
		case syntax.KindUsing:
			switch {
			case n.Child(syntax.RoleAlias).Name() != "":
				if n.Child(syntax.RoleName) != nil {
					r.aliases = append(r.aliases, n)
				}
			default:
				if name := dottedName(n.Child(syntax.RoleName)); name != "" {
					r.usings = append(r.usings, name)
				}
			}
		case syntax.KindNamespace:
			ns := r.namespaceScope(n, scope)
			r.declare(n, ns)
			if n.Child(syntax.RoleBody) == nil {
				scope = ns
			}
		case syntax.KindTypeDeclaration:
			r.declareType(n, scope)
		}
	}
}

func (r *Resolver) namespaceScope(n *syntax.Node, parent *analysis.Scope) *analysis.Scope {
	s := analysis.NewScope(analysis.ScopeNamespace, parent, n)
	name := dottedName(n.Child(syntax.RoleName))
	switch {
	case name == "":
	case s.Namespace == "":
		s.Namespace = name
	default:
		s.Namespace += "." + name
	}
	r.declScopes[n] = s
	return s
}

func (r *Resolver) declareType(n *syntax.Node, scope *analysis.Scope) {
	name := n.Name()
	if name == "" {
		return
	}
	sym := &analysis.Symbol{
		Name:      name,
		Kind:      analysis.SymType,
		Namespace: scope.Namespace,
		Decl:      n,
	}
	if scope.Kind == analysis.ScopeType {
		r.symbols[scope.Node].AddMember(sym)
	} else if prev := r.known[sym.QualifiedName()]; prev == nil || prev.Decl == nil {
		// Source declarations shadow library types; the first partial
		// declaration wins.
		r.known[sym.QualifiedName()] = sym
	}
	r.symbols[n] = sym
	r.decls = append(r.decls, n)

	ts := analysis.NewScope(analysis.ScopeType, scope, n)
	r.declScopes[n] = ts
	sym.TypeArguments = declareTypeParameters(n, ts)
	for _, m := range r.members(n) {
		if m.Kind == syntax.KindTypeDeclaration {
			r.declareType(m, ts)
		}
	}
}

// declareTypeParameters defines the type parameters of a generic type or
// method in scope.
func declareTypeParameters(n *syntax.Node, scope *analysis.Scope) []*analysis.Symbol {
	var params []*analysis.Symbol
	for _, p := range n.Child(syntax.RoleTypeParameters).ChildrenOfKind(syntax.KindTypeParameter) {
		name := p.Name()
		if name == "" && len(p.Children) == 0 {
			name = p.Text
		}
		if name == "" {
			continue
		}
		sym := &analysis.Symbol{Name: name, Kind: analysis.SymTypeParameter, Decl: p}
		scope.Define(sym)
		params = append(params, sym)
	}
	return params
}

// declareBases binds the base class and interfaces of a declared type.
func (r *Resolver) declareBases(decl *syntax.Node) {
	owner := r.symbols[decl]
	scope := r.declScopes[decl]
	for _, list := range decl.ChildrenOfKind(syntax.KindBaseList) {
		for _, b := range list.Children {
			if !isName(b) {
				continue
			}
			if t := r.bindType(b, scope); t != nil && t != owner {
				owner.Bases = append(owner.Bases, t)
			}
		}
	}
}

// members returns the declarations inside a compilation unit, namespace or
// type declaration.
func (r *Resolver) members(n *syntax.Node) []*syntax.Node {
	if body := n.Child(syntax.RoleBody); body != nil {
		return body.Children
	}
	switch n.Kind {
	case syntax.KindCompilationUnit:
		return n.Children
	case syntax.KindNamespace:
		// File-scoped namespaces may hold their members directly.
		var out []*syntax.Node
		for _, c := range n.Children {
			if c.Role != syntax.RoleName {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// declareMembers builds method, property and field symbols of a declared
// type. Signatures are resolved in the type's scope so that bodies can refer
// to members declared later in the file.
func (r *Resolver) declareMembers(decl *syntax.Node) {
	owner := r.symbols[decl]
	scope := r.declScopes[decl]
	for _, m := range r.members(decl) {
		switch m.Kind {
		case syntax.KindMethod:
			name := m.Name()
			if name == "" {
				continue
			}
			ms := analysis.NewScope(analysis.ScopeMethod, scope, m)
			declareTypeParameters(m, ms)
			r.declScopes[m] = ms
			sym := &analysis.Symbol{
				Name: name,
				Kind: analysis.SymMethod,
				Type: r.bindType(m.Child(syntax.RoleType), ms),
				Decl: m,
			}
			for _, p := range m.Child(syntax.RoleParameters).ChildrenOfKind(syntax.KindParameter) {
				sym.Parameters = append(sym.Parameters, &analysis.Symbol{
					Name: p.Name(),
					Kind: analysis.SymParameter,
					Type: r.bindType(p.Child(syntax.RoleType), ms),
					Decl: p,
				})
			}
			owner.AddMember(sym)
			r.symbols[m] = sym
		case syntax.KindProperty:
			sym := &analysis.Symbol{
				Name: m.Name(),
				Kind: analysis.SymProperty,
				Type: r.bindType(m.Child(syntax.RoleType), scope),
				Decl: m,
			}
			owner.AddMember(sym)
			r.symbols[m] = sym
		case syntax.KindField:
			decl := m.Child(syntax.RoleDeclaration)
			typ := r.bindType(decl.Child(syntax.RoleType), scope)
			for _, v := range decl.ChildrenOfKind(syntax.KindVariableDeclarator) {
				sym := &analysis.Symbol{Name: v.Name(), Kind: analysis.SymField, Type: typ, Decl: v}
				owner.AddMember(sym)
				r.symbols[v] = sym
			}
		}
	}
}

// bindContainer binds the executable code below a compilation unit,
// namespace or type declaration.
func (r *Resolver) bindContainer(container *syntax.Node, scope *analysis.Scope) {
	for _, n := range r.members(container) {
		switch n.Kind {
		case syntax.KindUsing:
		case syntax.KindNamespace, syntax.KindTypeDeclaration:
			s := r.declScopes[n]
			if s == nil {
				continue
			}
			r.bindContainer(n, s)
			if n.Kind == syntax.KindNamespace && n.Child(syntax.RoleBody) == nil {
				scope = s
			}
		case syntax.KindMethod:
			ms := r.declScopes[n]
			if ms == nil {
				ms = analysis.NewScope(analysis.ScopeMethod, scope, n)
			}
			if sym := r.symbols[n]; sym != nil {
				for _, p := range sym.Parameters {
					if p.Name != "" {
						ms.Define(p)
					}
				}
			}
			for _, c := range n.Children {
				if c.Role == syntax.RoleType || c.Role == syntax.RoleName || c.Role == syntax.RoleTypeParameters || c.Kind == syntax.KindModifier {
					continue
				}
				r.bind(c, ms)
			}
		case syntax.KindProperty, syntax.KindField:
			for _, c := range n.Children {
				if c.Role != syntax.RoleType && c.Role != syntax.RoleName {
					r.bind(c, scope)
				}
			}
		default:
			// Top-level statements and members the resolver does not model.
			r.bind(n, scope)
		}
	}
}

// bind walks executable code, declaring locals in order and binding every
// expression it can.
func (r *Resolver) bind(n *syntax.Node, scope *analysis.Scope) {
	if n == nil {
		return
	}
	switch n.Kind {
	case syntax.KindBlock:
		bs := analysis.NewScope(analysis.ScopeBlock, scope, n)
		for _, c := range n.Children {
			r.bind(c, bs)
		}
	case syntax.KindCatch:
		cs := analysis.NewScope(analysis.ScopeBlock, scope, n)
		if decl := n.Child(syntax.RoleDeclaration); decl != nil {
			typ := r.bindType(decl.Child(syntax.RoleType), scope)
			if name := decl.Child(syntax.RoleName); name != nil {
				local := &analysis.Symbol{Name: name.Text, Kind: analysis.SymLocal, Type: typ, Decl: decl}
				cs.Define(local)
				r.symbols[name] = local
			}
		}
		for _, c := range n.Children {
			if c.Role != syntax.RoleDeclaration {
				r.bind(c, cs)
			}
		}
	case syntax.KindLocalDeclaration:
		r.bindLocals(n.Child(syntax.RoleDeclaration), scope)
	case syntax.KindParameter, syntax.KindParameterList, syntax.KindTypeArgumentList,
		syntax.KindQualifiedName, syntax.KindGenericName, syntax.KindPredefinedType,
		syntax.KindArrayType, syntax.KindTypeParameterList, syntax.KindBaseList:
		// Type syntax and lambda parameters are bound where they are used.
	case syntax.KindMemberAccess, syntax.KindInvocation, syntax.KindObjectCreation,
		syntax.KindAwait, syntax.KindIdentifier:
		r.exprType(n, scope)
		for _, c := range n.Children {
			if n.Kind == syntax.KindMemberAccess && c.Role == syntax.RoleName {
				continue
			}
			r.bind(c, scope)
		}
	default:
		for _, c := range n.Children {
			r.bind(c, scope)
		}
	}
}

func (r *Resolver) bindLocals(decl *syntax.Node, scope *analysis.Scope) {
	if decl == nil {
		return
	}
	typeNode := decl.Child(syntax.RoleType)
	implicit := typeNode.Is(syntax.KindIdentifier) && typeNode.Text == implicitType
	var declared *analysis.Symbol
	if !implicit {
		declared = r.bindType(typeNode, scope)
	}
	for _, v := range decl.ChildrenOfKind(syntax.KindVariableDeclarator) {
		for _, c := range v.Children {
			if c.Role != syntax.RoleName {
				r.bind(c, scope)
			}
		}
		value := v.Child(syntax.RoleValue)
		typ := declared
		if implicit {
			typ = r.exprType(value, scope)
		}
		name := v.Name()
		if name == "" {
			continue
		}
		local := &analysis.Symbol{Name: name, Kind: analysis.SymLocal, Type: typ, Decl: v}
		scope.Define(local)
		r.symbols[v] = local
	}
}

// exprType computes and records the type of an expression, and the symbol
// it refers to.
func (r *Resolver) exprType(n *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	if n == nil {
		return nil
	}
	if t, ok := r.types[n]; ok {
		return t
	}
	var t *analysis.Symbol
	switch n.Kind {
	case syntax.KindIdentifier:
		t = r.identifierType(n, scope)
	case syntax.KindMemberAccess:
		t = r.memberAccessType(n, scope)
	case syntax.KindInvocation:
		t = r.invocationType(n, scope)
	case syntax.KindObjectCreation:
		t = r.bindType(n.Child(syntax.RoleType), scope)
	case syntax.KindAwait:
		t = awaitResult(r.exprType(n.Child(syntax.RoleExpression), scope))
	case syntax.KindThis:
		t = r.enclosingType(scope)
	case syntax.KindBase:
		t = r.enclosingType(scope).Base()
	case syntax.KindExpression:
		if len(n.Children) == 1 {
			t = r.exprType(n.Children[0], scope)
		}
	}
	if t != nil {
		r.types[n] = t
	}
	return t
}

func (r *Resolver) identifierType(n *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	if sym := scope.Lookup(n.Text); sym != nil {
		r.symbols[n] = sym
		return sym.Type
	}
	if owner := r.enclosingType(scope); owner != nil {
		if m := owner.Member(n.Text); m != nil {
			r.symbols[n] = m
			if m.Kind == analysis.SymMethod {
				return nil
			}
			return m.Type
		}
	}
	// A type name used as the receiver of a static member.
	return r.lookupType(n.Text, scope)
}

func (r *Resolver) memberAccessType(n *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	recvNode := n.Child(syntax.RoleExpression)
	recv := r.exprType(recvNode, scope)
	if recv == nil {
		// A namespace-qualified type name.
		if t := r.lookupType(dottedName(n), scope); t != nil {
			return t
		}
		return nil
	}
	member := recv.Member(n.Child(syntax.RoleName).Name())
	if member == nil {
		return nil
	}
	r.symbols[n] = member
	if member.Kind == analysis.SymMethod {
		return nil
	}
	return substitute(member.Type, recv)
}

func (r *Resolver) invocationType(n *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	fn := n.Child(syntax.RoleFunction)
	if fn == nil {
		return nil
	}
	var recv *analysis.Symbol
	switch fn.Kind {
	case syntax.KindMemberAccess:
		r.exprType(fn, scope)
		recv = r.types[fn.Child(syntax.RoleExpression)]
	case syntax.KindIdentifier, syntax.KindGenericName:
		if owner := r.enclosingType(scope); owner != nil {
			if m := owner.Member(fn.Name()); m != nil {
				r.symbols[fn] = m
			}
		}
	}
	m := r.symbols[fn]
	if m == nil || m.Kind != analysis.SymMethod {
		return nil
	}
	return substitute(m.Type, recv)
}

func (r *Resolver) enclosingType(scope *analysis.Scope) *analysis.Symbol {
	if s := scope.Enclosing(analysis.ScopeType); s != nil {
		return r.symbols[s.Node]
	}
	return nil
}

// bindType resolves a type reference and records it.
func (r *Resolver) bindType(n *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	if n == nil {
		return nil
	}
	var t *analysis.Symbol
	switch n.Kind {
	case syntax.KindPredefinedType:
		t = r.known[predefined[n.Text]]
	case syntax.KindIdentifier:
		if q, ok := predefined[n.Text]; ok {
			t = r.known[q]
		} else {
			t = r.lookupType(n.Text, scope)
		}
	case syntax.KindGenericName:
		t = r.construct(r.lookupType(n.Name(), scope), n, scope)
	case syntax.KindQualifiedName:
		last := n.Child(syntax.RoleName)
		t = r.lookupType(dottedName(n), scope)
		if last.Is(syntax.KindGenericName) {
			t = r.construct(t, last, scope)
		}
	case syntax.KindArrayType:
		r.bindType(n.Child(syntax.RoleType), scope)
		t = r.known[typeArray]
	default:
		// Nullable and similar wrappers.
		if inner := n.Child(syntax.RoleType); inner != nil {
			t = r.bindType(inner, scope)
		}
	}
	if t != nil {
		r.types[n] = t
	}
	return t
}

func (r *Resolver) construct(def *analysis.Symbol, generic *syntax.Node, scope *analysis.Scope) *analysis.Symbol {
	if def == nil {
		return nil
	}
	var args []*analysis.Symbol
	for _, a := range generic.Child(syntax.RoleArguments).Children {
		args = append(args, r.bindType(a, scope))
	}
	return def.Construct(args...)
}

// lookupType finds a type by simple or dotted name: type parameters in
// scope first, then nested types of the enclosing type declarations, then
// the enclosing namespaces from the innermost outward, then using aliases
// and finally the using directives.
func (r *Resolver) lookupType(name string, scope *analysis.Scope) *analysis.Symbol {
	if name == "" {
		return nil
	}
	if p := scope.Lookup(name); p != nil && p.Kind == analysis.SymTypeParameter {
		return p
	}
	for s := scope.Enclosing(analysis.ScopeType); s != nil; s = s.Parent.Enclosing(analysis.ScopeType) {
		if m := r.symbols[s.Node].Member(name); m != nil && m.Kind == analysis.SymType {
			return m
		}
	}
	for ns := scope.Namespace; ; ns = parentNamespace(ns) {
		if t := r.typeNamed(joinName(ns, name)); t != nil {
			return t
		}
		if ns == "" {
			break
		}
	}
	if t := r.aliased[name]; t != nil {
		return t
	}
	for _, u := range r.usings {
		if t := r.typeNamed(joinName(u, name)); t != nil {
			return t
		}
	}
	return nil
}

// typeNamed finds a type by qualified name. Types declared in the file come
// first, then the workspace, then the library table.
func (r *Resolver) typeNamed(qualified string) *analysis.Symbol {
	t := r.known[qualified]
	if t != nil && t.Decl != nil {
		return t
	}
	if w := r.workspace[qualified]; w != nil {
		return w
	}
	return t
}

// substitute replaces the type parameters of recv's generic definition in
// t with recv's type arguments. Unsubstituted type parameters resolve to
// nil.
func substitute(t, recv *analysis.Symbol) *analysis.Symbol {
	if t == nil {
		return nil
	}
	if t.Kind == analysis.SymTypeParameter {
		if recv == nil || recv.Definition == nil {
			return nil
		}
		for i, p := range recv.Definition.TypeArguments {
			if p == t && i < len(recv.TypeArguments) {
				return recv.TypeArguments[i]
			}
		}
		return nil
	}
	if t.Definition != nil {
		args := make([]*analysis.Symbol, len(t.TypeArguments))
		changed := false
		for i, a := range t.TypeArguments {
			args[i] = substitute(a, recv)
			changed = changed || args[i] != a
		}
		if changed {
			return t.Definition.Construct(args...)
		}
	}
	return t
}

// awaitResult returns the type an await on t produces, when known.
func awaitResult(t *analysis.Symbol) *analysis.Symbol {
	if !analysis.IsTaskType(t) || t.Definition == nil || len(t.TypeArguments) != 1 {
		return nil
	}
	return t.TypeArguments[0]
}

func dottedName(n *syntax.Node) string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case syntax.KindIdentifier:
		return n.Text
	case syntax.KindGenericName:
		return n.Name()
	case syntax.KindQualifiedName:
		return joinDotted(dottedName(n.Child(syntax.RoleQualifier)), dottedName(n.Child(syntax.RoleName)))
	case syntax.KindMemberAccess:
		return joinDotted(dottedName(n.Child(syntax.RoleExpression)), dottedName(n.Child(syntax.RoleName)))
	}
	return ""
}

func joinDotted(prefix, name string) string {
	if prefix == "" || name == "" {
		return ""
	}
	return prefix + "." + name
}

func joinName(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

func parentNamespace(ns string) string {
	if i := strings.LastIndexByte(ns, '.'); i >= 0 {
		return ns[:i]
	}
	return ""
}
