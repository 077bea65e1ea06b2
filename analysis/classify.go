// Copyright © 2024 The ELPS authors

package analysis

import "github.com/luthersystems/baseline/syntax"

// Well-known namespaces and type names matched by the classifier.
const (
	NamespaceTasks       = "System.Threading.Tasks"
	NamespaceGeneric     = "System.Collections.Generic"
	TypeTask             = "Task"
	TypeValueTask        = "ValueTask"
	TypeAsyncEnumerable  = "IAsyncEnumerable"
	MemberGetAwaiter     = "GetAwaiter"
	ModifierExtensionArg = "this"
)

// IsType reports whether sym is a type named name declared directly in
// namespace. Matching is exact string equality on the namespace display
// string and the simple name; inheritance is not considered.
func IsType(sym *Symbol, namespace, name string) bool {
	if sym == nil || sym.Kind != SymType {
		return false
	}
	return sym.Namespace == namespace && sym.Name == name
}

// IsTaskType reports whether sym is Task or ValueTask (generic or not).
func IsTaskType(sym *Symbol) bool {
	return IsType(sym, NamespaceTasks, TypeTask) ||
		IsType(sym, NamespaceTasks, TypeValueTask)
}

// IsAsyncSequence reports whether sym is IAsyncEnumerable<T>.
func IsAsyncSequence(sym *Symbol) bool {
	return IsType(sym, NamespaceGeneric, TypeAsyncEnumerable)
}

// HasAwaiter reports whether the first member of sym named GetAwaiter is a
// method taking no parameters.
func HasAwaiter(sym *Symbol) bool {
	m := sym.Member(MemberGetAwaiter)
	return m != nil && m.Kind == SymMethod && len(m.Parameters) == 0
}

// IsAwaitable reports whether values of type sym can be awaited: the Task
// family, async sequences, or any type exposing a parameterless GetAwaiter.
func IsAwaitable(sym *Symbol) bool {
	switch {
	case IsTaskType(sym):
		return true
	case IsAsyncSequence(sym):
		return true
	default:
		return HasAwaiter(sym)
	}
}

// IsExtensionMethod reports whether the first parameter of a method
// declaration carries the receiver modifier.
func IsExtensionMethod(method *syntax.Node) bool {
	params := method.Child(syntax.RoleParameters)
	if params == nil {
		return false
	}
	first := params.ChildOfKind(syntax.KindParameter)
	if first == nil {
		return false
	}
	for _, m := range first.ChildrenOfKind(syntax.KindModifier) {
		if m.Text == ModifierExtensionArg {
			return true
		}
	}
	return false
}
