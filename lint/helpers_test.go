// Copyright © 2024 The ELPS authors

package lint

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
	"github.com/stretchr/testify/require"
)

// fixture builds syntax trees by hand together with the resolver bindings
// the analyzers need.
type fixture struct {
	b   syntax.Builder
	res *analysis.MapResolver

	task, valueTask, asyncEnum, intType, voidType *analysis.Symbol
}

func newFixture() *fixture {
	f := &fixture{
		res: &analysis.MapResolver{
			Types:   make(map[*syntax.Node]*analysis.Symbol),
			Symbols: make(map[*syntax.Node]*analysis.Symbol),
		},
		task:      &analysis.Symbol{Name: "Task", Kind: analysis.SymType, Namespace: analysis.NamespaceTasks},
		valueTask: &analysis.Symbol{Name: "ValueTask", Kind: analysis.SymType, Namespace: analysis.NamespaceTasks},
		asyncEnum: &analysis.Symbol{Name: "IAsyncEnumerable", Kind: analysis.SymType, Namespace: analysis.NamespaceGeneric},
		intType:   &analysis.Symbol{Name: "Int32", Kind: analysis.SymType, Namespace: "System"},
		voidType:  &analysis.Symbol{Name: "Void", Kind: analysis.SymType, Namespace: "System"},
	}
	f.task.AddMember(&analysis.Symbol{Name: "Wait", Kind: analysis.SymMethod})
	f.task.AddMember(&analysis.Symbol{Name: "Result", Kind: analysis.SymProperty})
	f.task.AddMember(&analysis.Symbol{Name: "ConfigureAwait", Kind: analysis.SymMethod})
	f.valueTask.AddMember(&analysis.Symbol{Name: "Result", Kind: analysis.SymProperty})
	return f
}

// method builds `ret name(params) {}`; a nil ret leaves the return type
// unresolved.
func (f *fixture) method(ret *analysis.Symbol, name string, params ...*syntax.Node) *syntax.Node {
	retNode := f.b.Ident(syntax.RoleType, "T")
	if ret != nil {
		f.res.Types[retNode] = ret
	}
	return f.b.Node(syntax.KindMethod, syntax.RoleNone,
		retNode,
		f.b.Ident(syntax.RoleName, name),
		f.b.Node(syntax.KindParameterList, syntax.RoleParameters, params...),
		f.b.Node(syntax.KindBlock, syntax.RoleBody),
	)
}

func (f *fixture) param(name string, modifiers ...string) *syntax.Node {
	var children []*syntax.Node
	for _, m := range modifiers {
		children = append(children, f.b.Leaf(syntax.KindModifier, syntax.RoleNone, m))
	}
	children = append(children, f.b.Ident(syntax.RoleType, "T"), f.b.Ident(syntax.RoleName, name))
	return f.b.Node(syntax.KindParameter, syntax.RoleNone, children...)
}

// catch builds `catch (Exception binding) { stmts }`, or `catch { stmts }`
// when binding is empty.
func (f *fixture) catch(binding string, stmts ...*syntax.Node) *syntax.Node {
	var decl *syntax.Node
	if binding != "" {
		decl = f.b.Node(syntax.KindCatchDeclaration, syntax.RoleDeclaration,
			f.b.Ident(syntax.RoleType, "Exception"),
			f.b.Ident(syntax.RoleName, binding),
		)
	}
	return f.b.Node(syntax.KindCatch, syntax.RoleNone, decl,
		f.b.Node(syntax.KindBlock, syntax.RoleBody, stmts...))
}

func (f *fixture) try(body []*syntax.Node, catches ...*syntax.Node) *syntax.Node {
	children := []*syntax.Node{f.b.Node(syntax.KindBlock, syntax.RoleBody, body...)}
	children = append(children, catches...)
	return f.b.Node(syntax.KindTry, syntax.RoleNone, children...)
}

// throw builds `throw;` or `throw expr;`.
func (f *fixture) throw(expr string) *syntax.Node {
	if expr == "" {
		return f.b.Node(syntax.KindThrow, syntax.RoleNone)
	}
	return f.b.Node(syntax.KindThrow, syntax.RoleNone, f.b.Ident(syntax.RoleExpression, expr))
}

// call builds `name(arg);`.
func (f *fixture) call(name, arg string) *syntax.Node {
	return f.b.Node(syntax.KindExpressionStatement, syntax.RoleNone,
		f.b.Node(syntax.KindInvocation, syntax.RoleNone,
			f.b.Ident(syntax.RoleFunction, name),
			f.b.Node(syntax.KindArgumentList, syntax.RoleArguments, f.b.Ident(syntax.RoleNone, arg)),
		),
	)
}

func (f *fixture) ifElse(then, els []*syntax.Node) *syntax.Node {
	return f.b.Node(syntax.KindIf, syntax.RoleNone,
		f.b.Ident(syntax.RoleCondition, "Flag"),
		f.b.Node(syntax.KindBlock, syntax.RoleConsequence, then...),
		f.b.Node(syntax.KindBlock, syntax.RoleAlternative, els...),
	)
}

// access builds `receiver.member` bound to sym.
func (f *fixture) access(receiver, member string, sym *analysis.Symbol) *syntax.Node {
	n := f.b.Node(syntax.KindMemberAccess, syntax.RoleNone,
		f.b.Ident(syntax.RoleExpression, receiver),
		f.b.Ident(syntax.RoleName, member),
	)
	if sym != nil {
		f.res.Symbols[n] = sym
	}
	return n
}

func (f *fixture) unit(members ...*syntax.Node) *syntax.Tree {
	return &syntax.Tree{
		Filename: "Test.cs",
		Root:     f.b.Node(syntax.KindCompilationUnit, syntax.RoleNone, members...),
	}
}

func lintTree(t *testing.T, l *Linter, tree *syntax.Tree, res analysis.Resolver) []Diagnostic {
	t.Helper()
	diags, err := l.LintFile(context.Background(), tree, res)
	require.NoError(t, err)
	return diags
}

// lintCheck runs a single analyzer over tree.
func lintCheck(t *testing.T, a *Analyzer, tree *syntax.Tree, res analysis.Resolver) []Diagnostic {
	t.Helper()
	l := &Linter{Registry: MustRegistry(a)}
	return lintTree(t, l, tree, res)
}

func ids(diags []Diagnostic) []string {
	out := []string{}
	for _, d := range diags {
		out = append(out, d.ID)
	}
	return out
}

// assertIDs checks the exact sequence of rule IDs reported.
func assertIDs(t *testing.T, diags []Diagnostic, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	got := ids(diags)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		var msgs []string
		for _, d := range diags {
			msgs = append(msgs, d.String())
		}
		t.Errorf("expected %v, got %v: %v", want, got, msgs)
	}
}

func assertHasDiag(t *testing.T, diags []Diagnostic, substr string) {
	t.Helper()
	for _, d := range diags {
		if strings.Contains(d.Message, substr) {
			return
		}
	}
	t.Errorf("expected diagnostic containing %q, got: %v", substr, fmt.Sprint(diags))
}
