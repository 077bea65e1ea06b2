// Copyright © 2024 The ELPS authors

package csharp

import "github.com/luthersystems/baseline/analysis"

// typeTable indexes type symbols by namespace-qualified name.
type typeTable map[string]*analysis.Symbol

// add declares a type in namespace ns. Type parameter names make it a
// generic definition.
func (t typeTable) add(ns, name string, typeParams ...string) *analysis.Symbol {
	sym := &analysis.Symbol{Name: name, Kind: analysis.SymType, Namespace: ns}
	for _, p := range typeParams {
		sym.TypeArguments = append(sym.TypeArguments, &analysis.Symbol{Name: p, Kind: analysis.SymTypeParameter})
	}
	t[sym.QualifiedName()] = sym
	return sym
}

func method(owner *analysis.Symbol, name string, ret *analysis.Symbol, params ...*analysis.Symbol) *analysis.Symbol {
	return owner.AddMember(&analysis.Symbol{Name: name, Kind: analysis.SymMethod, Type: ret, Parameters: params})
}

func property(owner *analysis.Symbol, name string, typ *analysis.Symbol) *analysis.Symbol {
	return owner.AddMember(&analysis.Symbol{Name: name, Kind: analysis.SymProperty, Type: typ})
}

func param(name string, typ *analysis.Symbol) *analysis.Symbol {
	return &analysis.Symbol{Name: name, Kind: analysis.SymParameter, Type: typ}
}

// inherit gives derived the members of base. Inherited members keep base
// as their containing type.
func inherit(derived, base *analysis.Symbol) {
	derived.Members = append(derived.Members, base.Members...)
}

// typeArray is the type of every array. Element types are not tracked.
const typeArray = "System.Array"

// predefined maps C# keyword types onto their System types.
var predefined = map[string]string{
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"sbyte":   "System.SByte",
	"char":    "System.Char",
	"decimal": "System.Decimal",
	"double":  "System.Double",
	"float":   "System.Single",
	"int":     "System.Int32",
	"uint":    "System.UInt32",
	"nint":    "System.IntPtr",
	"nuint":   "System.UIntPtr",
	"long":    "System.Int64",
	"ulong":   "System.UInt64",
	"short":   "System.Int16",
	"ushort":  "System.UInt16",
	"object":  "System.Object",
	"string":  "System.String",
	"void":    "System.Void",
	"dynamic": "System.Object",
}

// builtins is the table of well-known library types. It is built once and
// never modified afterwards.
var builtins = newBuiltins()

func newBuiltins() typeTable {
	t := typeTable{}
	for _, qualified := range predefined {
		if _, ok := t[qualified]; !ok {
			t.add("System", qualified[len("System."):])
		}
	}
	sys := func(name string) *analysis.Symbol { return t["System."+name] }
	boolean, integer, str, void := sys("Boolean"), sys("Int32"), sys("String"), sys("Void")
	object := sys("Object")
	method(object, "ToString", str)
	method(object, "GetHashCode", integer)
	method(str, "Trim", str)
	property(str, "Length", integer)

	array := t.add("System", "Array")
	property(array, "Length", integer)

	exception := t.add("System", "Exception")
	property(exception, "Message", str)
	property(exception, "StackTrace", str)
	property(exception, "InnerException", exception)
	for _, name := range []string{"InvalidOperationException", "ArgumentException", "ArgumentNullException", "NotImplementedException", "NotSupportedException", "OperationCanceledException"} {
		inherit(t.add("System", name), exception)
	}

	console := t.add("System", "Console")
	method(console, "WriteLine", void, param("value", object))
	method(console, "Write", void, param("value", object))
	method(console, "ReadLine", str)

	token := t.add("System.Threading", "CancellationToken")
	property(token, "IsCancellationRequested", boolean)
	method(token, "ThrowIfCancellationRequested", void)
	thread := t.add("System.Threading", "Thread")
	method(thread, "Sleep", void, param("millisecondsTimeout", integer))
	semaphore := t.add("System.Threading", "SemaphoreSlim")
	method(semaphore, "Release", integer)

	awaiter := t.add("System.Runtime.CompilerServices", "TaskAwaiter", "TResult")
	method(awaiter, "GetResult", awaiter.TypeArguments[0])
	property(awaiter, "IsCompleted", boolean)

	task := t.add(analysis.NamespaceTasks, analysis.TypeTask, "TResult")
	result := task.TypeArguments[0]
	method(task, "Wait", void)
	property(task, "Result", result)
	method(task, analysis.MemberGetAwaiter, awaiter.Construct(result))
	method(task, "ConfigureAwait", task, param("continueOnCapturedContext", boolean))
	method(task, "ContinueWith", task)
	property(task, "IsCompleted", boolean)
	property(task, "IsFaulted", boolean)
	property(task, "CompletedTask", task)
	method(task, "Run", task)
	method(task, "Delay", task, param("millisecondsDelay", integer))
	method(task, "WhenAll", task)
	method(task, "WhenAny", task)
	method(task, "FromResult", task)
	method(task, "Yield", task)

	valueTask := t.add(analysis.NamespaceTasks, analysis.TypeValueTask, "TResult")
	vresult := valueTask.TypeArguments[0]
	property(valueTask, "Result", vresult)
	method(valueTask, analysis.MemberGetAwaiter, awaiter.Construct(vresult))
	method(valueTask, "AsTask", task.Construct(vresult))
	method(valueTask, "ConfigureAwait", valueTask, param("continueOnCapturedContext", boolean))
	property(valueTask, "IsCompleted", boolean)

	method(semaphore, "Wait", void)
	method(semaphore, "WaitAsync", task)

	enumerator := t.add(analysis.NamespaceGeneric, "IAsyncEnumerator", "T")
	property(enumerator, "Current", enumerator.TypeArguments[0])
	method(enumerator, "MoveNextAsync", valueTask.Construct(boolean))
	asyncEnum := t.add(analysis.NamespaceGeneric, analysis.TypeAsyncEnumerable, "T")
	method(asyncEnum, "GetAsyncEnumerator", enumerator.Construct(asyncEnum.TypeArguments[0]))

	enumerable := t.add(analysis.NamespaceGeneric, "IEnumerable", "T")
	list := t.add(analysis.NamespaceGeneric, "List", "T")
	method(list, "Add", void, param("item", list.TypeArguments[0]))
	property(list, "Count", integer)
	method(list, "ToArray", object)
	inherit(list, enumerable)

	stream := t.add("System.IO", "Stream")
	method(stream, "Read", integer)
	method(stream, "ReadAsync", task.Construct(integer))
	method(stream, "Write", void)
	method(stream, "WriteAsync", task)
	method(stream, "Flush", void)
	method(stream, "FlushAsync", task)
	method(stream, "CopyToAsync", task)
	method(stream, "Dispose", void)
	for _, name := range []string{"MemoryStream", "FileStream"} {
		inherit(t.add("System.IO", name), stream)
	}
	reader := t.add("System.IO", "StreamReader")
	method(reader, "ReadToEnd", str)
	method(reader, "ReadToEndAsync", task.Construct(str))
	method(reader, "ReadLine", str)
	method(reader, "ReadLineAsync", task.Construct(str))

	response := t.add("System.Net.Http", "HttpResponseMessage")
	method(response, "EnsureSuccessStatusCode", response)
	client := t.add("System.Net.Http", "HttpClient")
	method(client, "GetAsync", task.Construct(response))
	method(client, "GetStringAsync", task.Construct(str))
	method(client, "PostAsync", task.Construct(response))
	return t
}
