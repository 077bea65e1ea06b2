// Copyright © 2024 The ELPS authors

package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScope(t *testing.T) {
	global := NewScope(ScopeGlobal, nil, nil)
	ns := NewScope(ScopeNamespace, global, nil)
	ns.Namespace = "App"
	typ := NewScope(ScopeType, ns, nil)
	method := NewScope(ScopeMethod, typ, nil)
	block := NewScope(ScopeBlock, method, nil)

	assert.Equal(t, "App", block.Namespace, "namespace is inherited")
	assert.Equal(t, []*Scope{ns}, global.Children)

	param := &Symbol{Name: "token", Kind: SymParameter}
	method.Define(param)
	assert.Same(t, param, block.Lookup("token"))
	assert.Nil(t, block.LookupLocal("token"))
	assert.Nil(t, typ.Lookup("token"))

	shadow := &Symbol{Name: "token", Kind: SymLocal}
	block.Define(shadow)
	assert.Same(t, shadow, block.Lookup("token"))
	assert.Same(t, param, method.Lookup("token"))

	assert.Same(t, typ, block.Enclosing(ScopeType))
	assert.Same(t, block, block.Enclosing(ScopeBlock))
	assert.Nil(t, typ.Enclosing(ScopeMethod))
	assert.Equal(t, "method", ScopeMethod.String())
	assert.Equal(t, "unknown", ScopeKind(99).String())
}

func TestSymbol(t *testing.T) {
	task := &Symbol{Name: "Task", Kind: SymType, Namespace: NamespaceTasks}
	tp := &Symbol{Name: "TResult", Kind: SymTypeParameter}
	task.TypeArguments = []*Symbol{tp}
	result := task.AddMember(&Symbol{Name: "Result", Kind: SymProperty, Type: tp})
	wait := task.AddMember(&Symbol{Name: "Wait", Kind: SymMethod})
	task.AddMember(&Symbol{Name: "Wait", Kind: SymMethod, Parameters: []*Symbol{{Name: "timeout"}}})

	assert.Same(t, task, result.ContainingType)
	assert.Same(t, wait, task.Member("Wait"))
	assert.Len(t, task.MembersNamed("Wait"), 2)

	integer := &Symbol{Name: "Int32", Kind: SymType, Namespace: "System"}
	constructed := task.Construct(integer)
	assert.Same(t, task, constructed.Definition)
	assert.Same(t, result, constructed.Member("Result"), "constructed types answer from their definition")
	assert.Equal(t, "System.Threading.Tasks.Task", constructed.QualifiedName())
	assert.Equal(t, "System.Threading.Tasks.Task.Result", result.String())
	assert.Equal(t, "Int32", (&Symbol{Name: "Int32"}).String())

	var unresolved *Symbol
	assert.Nil(t, unresolved.Member("Wait"))
	assert.Nil(t, unresolved.Construct(integer))
	assert.Equal(t, "<unresolved>", unresolved.String())
	assert.Equal(t, "type parameter", SymTypeParameter.String())
}
