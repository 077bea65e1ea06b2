// Copyright © 2024 The ELPS authors

package lint

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// TracerName is the OpenTelemetry instrumentation name used for lint spans.
const TracerName = "baseline"

// ErrNoFrontend is returned by LintSource when the Linter has no Frontend.
var ErrNoFrontend = errors.New("lint: no frontend configured")

// ErrNoReporter is returned by Run when it is given no sink.
var ErrNoReporter = errors.New("lint: no reporter given")

// Frontend turns source text into a tree and a resolver for that tree.
type Frontend interface {
	Parse(ctx context.Context, filename string, src []byte) (*syntax.Tree, analysis.Resolver, error)
}

// Linter runs a registry of analyzers over trees.
type Linter struct {
	// Registry holds the analyzers to run. Nil means DefaultRegistry().
	Registry *Registry

	// Frontend parses source for LintSource.
	Frontend Frontend

	// Concurrency bounds the number of concurrent analyzer visits per tree.
	// Zero means GOMAXPROCS.
	Concurrency int

	// OnError, when set, is told about analyzer visits that failed for a
	// reason other than cancellation. Such failures are otherwise silent:
	// the visit's diagnostics are dropped and the traversal continues.
	OnError func(analyzer *Analyzer, node *syntax.Node, err error)
}

func (l *Linter) registry() *Registry {
	if l.Registry == nil {
		return DefaultRegistry()
	}
	return l.Registry
}

func (l *Linter) concurrency() int {
	if l.Concurrency > 0 {
		return l.Concurrency
	}
	return runtime.GOMAXPROCS(0)
}

type visit struct {
	analyzer *Analyzer
	node     *syntax.Node
}

// Run analyzes tree and forwards every enabled diagnostic to sink as soon as
// the visit that produced it completes. If ctx is cancelled Run returns
// ctx.Err(); visits that did not complete report nothing.
func (l *Linter) Run(ctx context.Context, tree *syntax.Tree, res analysis.Resolver, sink Reporter) error {
	if sink == nil {
		return ErrNoReporter
	}
	if tree == nil || tree.Root == nil {
		return nil
	}
	if res == nil {
		res = analysis.NopResolver{}
	}
	reg := l.registry()

	var visits []visit
	for _, a := range reg.document {
		visits = append(visits, visit{analyzer: a, node: tree.Root})
	}
	syntax.Walk(tree.Root, func(n, _ *syntax.Node, _ int) {
		for _, a := range reg.dispatch[n.Kind] {
			visits = append(visits, visit{analyzer: a, node: n})
		}
	})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency())
	for _, v := range visits {
		if gctx.Err() != nil {
			break
		}
		v := v
		g.Go(func() error {
			return l.visit(gctx, reg, tree, res, v, sink)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (l *Linter) visit(ctx context.Context, reg *Registry, tree *syntax.Tree, res analysis.Resolver, v visit, sink Reporter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	pass := &Pass{
		Analyzer: v.analyzer,
		Filename: tree.Filename,
		Tree:     tree,
		Node:     v.node,
		Resolver: res,
		ctx:      ctx,
	}
	if runErr := runPass(pass); runErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if l.OnError != nil {
			l.OnError(v.analyzer, v.node, runErr)
		}
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, d := range pass.diagnostics {
		if reg.Enabled(d.ID) {
			sink.Report(d)
		}
	}
	return nil
}

// runPass runs the analyzer, converting a panic on an unexpected node shape
// into an error local to the visit.
func runPass(pass *Pass) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analyzer %s panicked on %s: %v", pass.Analyzer.Name, pass.Node, r)
		}
	}()
	return pass.Analyzer.Run(pass)
}

// LintFile analyzes a parsed tree and returns its diagnostics sorted by
// position.
func (l *Linter) LintFile(ctx context.Context, tree *syntax.Tree, res analysis.Resolver) ([]Diagnostic, error) {
	filename := ""
	if tree != nil {
		filename = tree.Filename
	}
	ctx, span := tracer(ctx).Start(ctx, "lint.file", trace.WithAttributes(semconv.CodeFilepath(filename)))
	defer span.End()

	var c Collector
	if err := l.Run(ctx, tree, res, &c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	diags := c.Diagnostics()
	span.SetAttributes(attribute.Int("lint.diagnostics", len(diags)))
	return diags, nil
}

// LintSource parses src with the Linter's Frontend and analyzes the result.
func (l *Linter) LintSource(ctx context.Context, src []byte, filename string) ([]Diagnostic, error) {
	if l.Frontend == nil {
		return nil, ErrNoFrontend
	}
	pctx, span := tracer(ctx).Start(ctx, "lint.parse", trace.WithAttributes(semconv.CodeFilepath(filename)))
	tree, res, err := l.Frontend.Parse(pctx, filename, src)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	span.End()
	return l.LintFile(ctx, tree, res)
}

type tracerKey struct{}

// WithTracerName returns a context whose lint spans are started by the named
// tracer instead of TracerName.
func WithTracerName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, tracerKey{}, name)
}

func tracer(ctx context.Context) trace.Tracer {
	name, ok := ctx.Value(tracerKey{}).(string)
	if !ok {
		name = TracerName
	}
	return otel.GetTracerProvider().Tracer(name)
}
