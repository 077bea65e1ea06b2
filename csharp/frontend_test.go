// Copyright © 2024 The ELPS authors

package csharp

import (
	"context"
	"strings"
	"testing"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/lint"
	"github.com/luthersystems/baseline/syntax"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lintSource(t *testing.T, src string) []lint.Diagnostic {
	t.Helper()
	l := &lint.Linter{Frontend: Frontend{}}
	diags, err := l.LintSource(context.Background(), []byte(src), "Test.cs")
	require.NoError(t, err)
	return diags
}

type finding struct {
	id   string
	line int
}

func findings(diags []lint.Diagnostic) []finding {
	out := []finding{}
	for _, d := range diags {
		out = append(out, finding{d.ID, d.Pos.Line})
	}
	return out
}

func TestFrontend_AsyncNaming(t *testing.T) {
	src := `using System.Threading.Tasks;

namespace App
{
    public class Service
    {
        public Task FetchData() { return Task.CompletedTask; }
        public async Task<int> FetchDataAsync() { await Task.Delay(1); return 1; }
        public int GetNumberAsync() { return 1; }
        public int GetNumber() { return 1; }
        public ValueTask<string> LoadName() { return default; }
    }
}
`
	diags := lintSource(t, src)
	assert.Equal(t, []finding{
		{lint.IDAsyncSuffixMissing, 7},
		{lint.IDAsyncSuffixSpurious, 9},
		{lint.IDAsyncSuffixMissing, 11},
	}, findings(diags))

	// Reported on the method name.
	line := strings.Split(src, "\n")[6]
	assert.Equal(t, strings.Index(line, "FetchData")+1, diags[0].Pos.Col)
	assert.Equal(t, diags[0].Pos.Col+len("FetchData"), diags[0].End.Col)
	assert.Equal(t, "Asynchronous method 'FetchData' must include the 'Async' suffix", diags[0].Message)
}

func TestFrontend_AsyncNamingUnresolved(t *testing.T) {
	// Without the using directive Task cannot be bound.
	diags := lintSource(t, `class C { Task FetchData() { return null; } }`)
	assert.Empty(t, diags)
}

func TestFrontend_ExtensionMethods(t *testing.T) {
	src := `using System.Collections.Generic;

static class Ext
{
    public static IAsyncEnumerable<int> Filter(this IAsyncEnumerable<int> source) { return source; }
    public static int CountAsync(this List<int> source) { return 0; }
    public static IAsyncEnumerable<int> Items() { return null; }
}
`
	assert.Equal(t, []finding{{lint.IDAsyncSuffixMissing, 7}}, findings(lintSource(t, src)))
}

func TestFrontend_DuckTypedAwaitable(t *testing.T) {
	src := `class Awaiter { }
class Awaitable { public Awaiter GetAwaiter() { return null; } }
class Holder { public Awaiter GetAwaiter(int n) { return null; } }
class User
{
    public Awaitable Run() { return null; }
    public Holder Hold() { return null; }
}
`
	assert.Equal(t, []finding{{lint.IDAsyncSuffixMissing, 6}}, findings(lintSource(t, src)))
}

func TestFrontend_CatchRethrow(t *testing.T) {
	src := `using System;

class C
{
    void Handle()
    {
        try { Work(); }
        catch (Exception ex) { Console.WriteLine(ex.Message); }
        try { Work(); }
        catch (Exception ex) { throw ex; }
        try { Work(); }
        catch (InvalidOperationException) { throw; }
        try { Work(); }
        catch { }
        try { Work(); }
        catch (Exception ex) { throw new InvalidOperationException("wrapped", ex); }
    }
    void Work() { }
}
`
	diags := lintSource(t, src)
	assert.Equal(t, []finding{
		{lint.IDCatchWithoutThrow, 8},
		{lint.IDRethrowCaught, 10},
		{lint.IDCatchWithoutThrow, 14},
	}, findings(diags))
	line := strings.Split(src, "\n")[9]
	assert.Equal(t, strings.Index(line, "throw ex;")+1, diags[1].Pos.Col)
	assert.Equal(t, "Avoid using 'throw ex;' in catch blocks, use 'throw;' instead to preserve stack trace", diags[1].Message)
}

func TestFrontend_NestedCatches(t *testing.T) {
	src := `using System;

class C
{
    void Nested(bool flag)
    {
        try
        {
            try { Work(); }
            catch (Exception ex)
            {
                if (flag) { throw; } else { Console.WriteLine(ex); }
            }
        }
        catch (Exception ex) { throw; }
    }

    void InnerSwallows(bool flag)
    {
        try { Work(); }
        catch (Exception ex)
        {
            try { Work(); }
            catch (Exception inner)
            {
                if (flag) { Console.WriteLine(inner); } else { Console.WriteLine(ex); }
            }
            throw;
        }
    }

    void InnerThrowsOnly()
    {
        try { Work(); }
        catch (Exception ex)
        {
            try { Work(); }
            catch (Exception inner) { throw; }
        }
    }
    void Work() { }
}
`
	assert.Equal(t, []finding{{lint.IDCatchWithoutThrow, 24}}, findings(lintSource(t, src)))

	l := &lint.Linter{Frontend: Frontend{}, Registry: lint.MustRegistry(
		lint.NewCatchRethrowAnalyzer(lint.CatchRethrowOptions{IsolateNestedCatches: true}),
	)}
	diags, err := l.LintSource(context.Background(), []byte(src), "Test.cs")
	require.NoError(t, err)
	assert.Equal(t, []finding{
		{lint.IDCatchWithoutThrow, 24},
		{lint.IDCatchWithoutThrow, 35},
	}, findings(diags))
}

func TestFrontend_TaskBlocking(t *testing.T) {
	src := `using System.IO;
using System.Threading;
using System.Threading.Tasks;

class C
{
    void Run(Stream stream, Task<int> pending, SemaphoreSlim gate)
    {
        stream.ReadAsync(new byte[1], 0, 1).Wait();
        var n = pending.Result;
        Task t = Task.Delay(5);
        t.Wait();
        gate.Wait();
        pending.ConfigureAwait(false);
        var s = new System.Threading.SemaphoreSlim(1);
        s.Wait();
        ValueTask<int> v = default;
        var r = v.Result;
    }
}
`
	diags := lintSource(t, src)
	assert.Equal(t, []finding{
		{lint.IDBlockingTaskAccess, 9},
		{lint.IDBlockingTaskAccess, 10},
		{lint.IDBlockingTaskAccess, 12},
	}, findings(diags))
	assert.Equal(t, "Using 'Wait' in asynchronous methods may cause deadlock", diags[0].Message)
	assert.Equal(t, "Using 'Result' in asynchronous methods may cause deadlock", diags[1].Message)
}

func TestFrontend_AllScenarios(t *testing.T) {
	src := `using System;
using System.Threading.Tasks;

namespace App;

public class Service
{
    public Task FetchData() { return Task.CompletedTask; }
    public Task FetchDataAsync() { return Task.CompletedTask; }
    public void Swallow() { try { } catch (Exception ex) { Console.WriteLine(ex); } }
    public void Rethrow() { try { } catch (Exception ex) { throw ex; } }
    public void Block(Task task) { task.Wait(); }
}
`
	assert.Equal(t, []finding{
		{lint.IDAsyncSuffixMissing, 8},
		{lint.IDCatchWithoutThrow, 10},
		{lint.IDRethrowCaught, 11},
		{lint.IDBlockingTaskAccess, 12},
	}, findings(lintSource(t, src)))
}

func findNode(root *syntax.Node, match func(*syntax.Node) bool) *syntax.Node {
	var found *syntax.Node
	syntax.Inspect(root, func(n *syntax.Node) bool {
		if found != nil {
			return false
		}
		if match(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

func methodNamed(root *syntax.Node, name string) *syntax.Node {
	return findNode(root, func(n *syntax.Node) bool {
		return n.Kind == syntax.KindMethod && n.Name() == name
	})
}

func TestFrontend_NamespaceLookup(t *testing.T) {
	src := `namespace App.Scheduling
{
    public class Task { public void Wait() { } }
}

namespace App.Scheduling.Jobs
{
    using System.Threading.Tasks;

    class Runner
    {
        Task Start() { return null; }
        void Go(Task t) { t.Wait(); }
    }
}
`
	tree, res, err := Frontend{}.Parse(context.Background(), "Jobs.cs", []byte(src))
	require.NoError(t, err)

	start := methodNamed(tree.Root, "Start")
	require.NotNil(t, start)
	ret := res.TypeOf(start.Child(syntax.RoleType))
	require.NotNil(t, ret)
	assert.Equal(t, "App.Scheduling.Task", ret.QualifiedName())
	assert.NotNil(t, ret.Decl)

	diags, err := (&lint.Linter{}).LintFile(context.Background(), tree, res)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

func TestFrontend_ResolvesMembersAndLocals(t *testing.T) {
	src := `using System.Threading.Tasks;

class Repo
{
    private Task<int> _pending;
    public Task<int> Pending => _pending;

    int Read()
    {
        var local = Pending;
        return local.Result;
    }
}
`
	tree, res, err := Frontend{}.Parse(context.Background(), "Repo.cs", []byte(src))
	require.NoError(t, err)

	access := findNode(tree.Root, func(n *syntax.Node) bool {
		return n.Kind == syntax.KindMemberAccess && n.Child(syntax.RoleName).Name() == "Result"
	})
	require.NotNil(t, access)
	member := res.SymbolOf(access)
	require.NotNil(t, member)
	assert.Equal(t, analysis.SymProperty, member.Kind)
	assert.True(t, analysis.IsType(member.ContainingType, analysis.NamespaceTasks, analysis.TypeTask))
	typ := res.TypeOf(access)
	require.NotNil(t, typ)
	assert.Equal(t, "System.Int32", typ.QualifiedName())
}

func TestFrontend_SyntaxErrorsTolerated(t *testing.T) {
	tree, res, err := Frontend{}.Parse(context.Background(), "Broken.cs", []byte("class C { void M( { }"))
	require.NoError(t, err)
	require.NotNil(t, tree.Root)
	assert.NotNil(t, res)
	assert.Equal(t, syntax.KindCompilationUnit, tree.Root.Kind)
}

func TestFrontend_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := Frontend{}.Parse(ctx, "C.cs", []byte("class C { }"))
	assert.Error(t, err)
}

func TestParse_Spans(t *testing.T) {
	src := "class C\n{\n    void M() { }\n}\n"
	tree, err := Parse(context.Background(), "C.cs", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, "C.cs", tree.Filename)

	m := methodNamed(tree.Root, "M")
	require.NotNil(t, m)
	name := m.Child(syntax.RoleName)
	require.NotNil(t, name)
	assert.Equal(t, "M", name.Text)
	assert.Equal(t, 3, name.Span.Start.Line)
	assert.Equal(t, 10, name.Span.Start.Col)
	assert.Equal(t, "M", tree.SourceText(name))
	assert.True(t, tree.Root.Span.Contains(m.Span))
}

func TestFrontend_ThisAndBaseReceivers(t *testing.T) {
	src := `using System.Threading.Tasks;

class Worker
{
    protected Task pending;
    public Task<int> Count => null;
}

class Job : Worker
{
    Task t;
    void Run()
    {
        this.t.Wait();
        var n = this.Count.Result;
        base.pending.Wait();
        this.pending.Wait();
    }
}
`
	assert.Equal(t, []finding{
		{lint.IDBlockingTaskAccess, 14},
		{lint.IDBlockingTaskAccess, 15},
		{lint.IDBlockingTaskAccess, 16},
		{lint.IDBlockingTaskAccess, 17},
	}, findings(lintSource(t, src)))
}

func TestFrontend_InheritedMembers(t *testing.T) {
	src := `using System.Threading.Tasks;

class Base { public Task Pending; }
class Derived : Base { }

class User
{
    void Run(Derived d) { d.Pending.Wait(); }
}
`
	tree, res, err := Frontend{}.Parse(context.Background(), "Derived.cs", []byte(src))
	require.NoError(t, err)
	derived := findNode(tree.Root, func(n *syntax.Node) bool {
		return n.Kind == syntax.KindTypeDeclaration && n.Name() == "Derived"
	})
	require.NotNil(t, derived)
	sym := res.SymbolOf(derived)
	require.NotNil(t, sym)
	require.Len(t, sym.Bases, 1)
	assert.Equal(t, "Base", sym.Base().Name)

	diags, err := (&lint.Linter{}).LintFile(context.Background(), tree, res)
	require.NoError(t, err)
	assert.Equal(t, []finding{{lint.IDBlockingTaskAccess, 8}}, findings(diags))
}

func TestFrontend_AliasesArraysAndTypeParameters(t *testing.T) {
	src := `using Job = System.Threading.Tasks.Task;

class Box<T>
{
    public T Value;
}

class Service
{
    public Job Start() { return null; }
    public Job[] AllAsync() { return null; }
    public T GetAsync<T>() { return default; }
    public Box<Job> Wrap() { return null; }
    void Use(Box<Job> box) { box.Value.Wait(); }
}
`
	assert.Equal(t, []finding{
		{lint.IDAsyncSuffixMissing, 10},
		{lint.IDAsyncSuffixSpurious, 11},
		{lint.IDAsyncSuffixSpurious, 12},
		{lint.IDBlockingTaskAccess, 14},
	}, findings(lintSource(t, src)))
}
