// Copyright © 2024 The ELPS authors

package lint

import (
	"fmt"
	"sort"
	"strings"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
)

// Stable rule IDs.
const (
	IDCatchWithoutThrow   = "BLA0001"
	IDRethrowCaught       = "BLA0002"
	IDAsyncSuffixMissing  = "BLA0011"
	IDAsyncSuffixSpurious = "BLA0012"
	IDBlockingTaskAccess  = "BLA0021"
)

// Analyzer names, usable with Registry.Select.
const (
	AnalyzerCatchRethrow = "catch-rethrow"
	AnalyzerAsyncNaming  = "async-naming"
	AnalyzerTaskBlocking = "task-blocking"
)

const (
	asyncSuffix    = "Async"
	categoryUsage  = "Usage"
	categoryNaming = "Naming"
	memberWait     = "Wait"
	memberResult   = "Result"

	noteRethrow = "use 'throw;' to rethrow and keep the original stack trace"
	noteAwait   = "await the task instead"
)

// CatchRethrowOptions tunes the catch-rethrow analyzer.
type CatchRethrowOptions struct {
	// IsolateNestedCatches stops the throw search at nested catch clauses,
	// so a throw inside an inner handler no longer satisfies the outer one.
	// Off by default: any throw in the block's subtree counts.
	IsolateNestedCatches bool
}

// NewCatchRethrowAnalyzer returns the analyzer for BLA0001 and BLA0002.
func NewCatchRethrowAnalyzer(opts CatchRethrowOptions) *Analyzer {
	noThrow := &Rule{
		ID:               IDCatchWithoutThrow,
		Title:            "catch block should throw exception",
		Format:           "The catch block does not contain a throw statement",
		Category:         categoryUsage,
		Severity:         SeverityWarning,
		EnabledByDefault: true,
		Description:      "Detects catch blocks that do not throw exceptions.",
	}
	rethrow := &Rule{
		ID:               IDRethrowCaught,
		Title:            "avoid using rethrow with explicit caught exception",
		Format:           "Avoid using 'throw %s;' in catch blocks, use 'throw;' instead to preserve stack trace",
		Category:         categoryUsage,
		Severity:         SeverityWarning,
		EnabledByDefault: true,
		Description:      "When rethrowing, do not specify caught exceptions.",
	}
	return &Analyzer{
		Name:  AnalyzerCatchRethrow,
		Doc:   "Check that catch blocks escalate and rethrow without resetting the stack trace.\n\nA catch block with no throw statement anywhere inside it swallows the exception (BLA0001). A top-level `throw ex;` of the caught exception resets its stack trace; use `throw;` instead (BLA0002).",
		Rules: []*Rule{noThrow, rethrow},
		Kinds: []syntax.Kind{syntax.KindCatch},
		Run: func(pass *Pass) error {
			catch := pass.Node
			block := catch.Child(syntax.RoleBody)
			if block == nil {
				return nil
			}
			found, err := containsThrow(pass, block, opts.IsolateNestedCatches)
			if err != nil {
				return err
			}
			if !found {
				pass.Report(noThrow, catch)
			}

			name := catchBinding(catch)
			if name == "" {
				return nil
			}
			for _, stmt := range block.Children {
				if !stmt.Is(syntax.KindThrow) {
					continue
				}
				expr := stmt.Child(syntax.RoleExpression)
				if expr.Is(syntax.KindIdentifier) && expr.Text == name {
					pass.ReportWithNotes(rethrow, stmt, []string{noteRethrow}, name)
				}
			}
			return nil
		},
	}
}

// containsThrow searches the subtree of block for a throw statement. Nested
// try statements are searched too, and so are the blocks of nested catch
// clauses unless isolate is set. The search honors cancellation.
func containsThrow(pass *Pass, block *syntax.Node, isolate bool) (bool, error) {
	return syntax.Search(pass.Context(), block, func(n *syntax.Node) (bool, bool) {
		if n.Kind == syntax.KindThrow {
			return false, true
		}
		if isolate && n.Kind == syntax.KindCatch {
			return false, false
		}
		return true, false
	})
}

// catchBinding returns the exception variable name declared by a catch
// clause, or "" for catch-all clauses and clauses without a name.
func catchBinding(catch *syntax.Node) string {
	decl := catch.Child(syntax.RoleDeclaration)
	if decl == nil {
		return ""
	}
	name := decl.Child(syntax.RoleName)
	if !name.Is(syntax.KindIdentifier) {
		return ""
	}
	return name.Text
}

// NewAsyncNamingAnalyzer returns the analyzer for BLA0011 and BLA0012.
func NewAsyncNamingAnalyzer() *Analyzer {
	missing := &Rule{
		ID:               IDAsyncSuffixMissing,
		Title:            "asynchronous method names must include the 'Async' suffix",
		Format:           "Asynchronous method '%s' must include the 'Async' suffix",
		Category:         categoryNaming,
		Severity:         SeverityWarning,
		EnabledByDefault: true,
		Description:      "Methods that return awaitable types are recommended to use 'Async' at the end of the method name.",
	}
	spurious := &Rule{
		ID:               IDAsyncSuffixSpurious,
		Title:            "synchronous method names must not include the 'Async' suffix",
		Format:           "Synchronous method '%s' must not include the 'Async' suffix",
		Category:         categoryNaming,
		Severity:         SeverityWarning,
		EnabledByDefault: true,
		Description:      "Methods that return non-awaitable types are recommended not to use 'Async' at the end of the method name.",
	}
	return &Analyzer{
		Name:  AnalyzerAsyncNaming,
		Doc:   "Check that method names carry the 'Async' suffix exactly when they return an awaitable.\n\nAwaitable return types are Task, ValueTask, IAsyncEnumerable<T> and any type with a parameterless GetAwaiter method. Extension methods are not checked.",
		Rules: []*Rule{missing, spurious},
		Kinds: []syntax.Kind{syntax.KindMethod},
		Run: func(pass *Pass) error {
			method := pass.Node
			name := method.Child(syntax.RoleName)
			if name == nil || name.Text == "" {
				return nil
			}
			if analysis.IsExtensionMethod(method) {
				return nil
			}
			returnType := method.Child(syntax.RoleType)
			if returnType == nil {
				return nil
			}
			ret := pass.Resolver.TypeOf(returnType)
			if ret == nil {
				return nil
			}
			hasSuffix := strings.HasSuffix(name.Text, asyncSuffix)
			switch awaitable := analysis.IsAwaitable(ret); {
			case awaitable && !hasSuffix:
				pass.Report(missing, name, name.Text)
			case !awaitable && hasSuffix:
				pass.Report(spurious, name, name.Text)
			}
			return nil
		},
	}
}

// NewTaskBlockingAnalyzer returns the analyzer for BLA0021.
func NewTaskBlockingAnalyzer() *Analyzer {
	blocking := &Rule{
		ID:               IDBlockingTaskAccess,
		Title:            "Asynchronous code blocking operations should be avoided",
		Format:           "Using '%s' in asynchronous methods may cause deadlock",
		Category:         categoryUsage,
		Severity:         SeverityWarning,
		EnabledByDefault: true,
		Description:      "Task.Wait() and Task.Result block the calling thread until the task completes, which can deadlock asynchronous code.",
	}
	return &Analyzer{
		Name:  AnalyzerTaskBlocking,
		Doc:   "Warn on Task.Wait and Task.Result.\n\nBlocking synchronously on a task can deadlock when the task needs the blocked context to complete. Await the task instead.",
		Rules: []*Rule{blocking},
		Kinds: []syntax.Kind{syntax.KindMemberAccess},
		Run: func(pass *Pass) error {
			member := pass.Resolver.SymbolOf(pass.Node)
			if member == nil {
				return nil
			}
			if !analysis.IsType(member.ContainingType, analysis.NamespaceTasks, analysis.TypeTask) {
				return nil
			}
			if member.Name == memberWait || member.Name == memberResult {
				pass.ReportWithNotes(blocking, pass.Node, []string{noteAwait}, member.Name)
			}
			return nil
		},
	}
}

// DefaultAnalyzers returns a fresh copy of the built-in set of checks.
func DefaultAnalyzers() []*Analyzer {
	return []*Analyzer{
		NewCatchRethrowAnalyzer(CatchRethrowOptions{}),
		NewAsyncNamingAnalyzer(),
		NewTaskBlockingAnalyzer(),
	}
}

// DefaultRegistry returns a registry of DefaultAnalyzers.
func DefaultRegistry() *Registry {
	return MustRegistry(DefaultAnalyzers()...)
}

// AnalyzerNames returns a sorted list of all default analyzer names.
func AnalyzerNames() []string {
	analyzers := DefaultAnalyzers()
	names := make([]string, len(analyzers))
	for i, a := range analyzers {
		names[i] = a.Name
	}
	sort.Strings(names)
	return names
}

// AnalyzerDoc returns a formatted documentation string for all analyzers.
func AnalyzerDoc() string {
	var b strings.Builder
	for _, a := range DefaultAnalyzers() {
		ids := make([]string, len(a.Rules))
		for i, r := range a.Rules {
			ids[i] = r.ID
		}
		fmt.Fprintf(&b, "  %s (%s)\n", a.Name, strings.Join(ids, ", "))
		lines := strings.Split(a.Doc, "\n")
		fmt.Fprintf(&b, "    %s\n\n", lines[0])
	}
	return b.String()
}
