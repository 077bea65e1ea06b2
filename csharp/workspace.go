// Copyright © 2024 The ELPS authors

package csharp

import (
	"context"
	"sort"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/syntax"
)

// Workspace holds the types declared across a project so that a file's
// resolver can bind names declared in other files. It is read-only once
// built and safe for concurrent use.
type Workspace struct {
	types typeTable
}

// BuildWorkspace parses sources (file name to content) and collects their
// type declarations. Every type symbol is created once. Member signatures
// are bound after all files are declared, so they may refer to types
// declared in any file. When two files declare the same type the one that
// sorts first wins.
//
// Files that fail to parse are skipped.
func BuildWorkspace(ctx context.Context, sources map[string][]byte) (*Workspace, error) {
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)

	w := &Workspace{types: make(typeTable)}
	var files []*Resolver
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tree, err := Parse(ctx, name, sources[name])
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			continue
		}
		r := declareTree(tree, w.types)
		for qualified, sym := range r.declared() {
			if _, dup := w.types[qualified]; !dup {
				w.types[qualified] = sym
			}
		}
		files = append(files, r)
	}
	for _, r := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r.bindSignatures()
	}
	return w, nil
}

// declared returns the top-level types declared in the resolver's file.
func (r *Resolver) declared() typeTable {
	out := make(typeTable)
	for name, sym := range r.known {
		if sym.Decl != nil {
			out[name] = sym
		}
	}
	return out
}

// Len returns the number of types in the workspace.
func (w *Workspace) Len() int {
	if w == nil {
		return 0
	}
	return len(w.types)
}

// Type returns the workspace type with the given namespace-qualified name.
func (w *Workspace) Type(qualified string) *analysis.Symbol {
	if w == nil {
		return nil
	}
	return w.types[qualified]
}

// NewResolver binds tree with the workspace types in view. The file's own
// declarations take precedence over the workspace's copy of them.
func (w *Workspace) NewResolver(tree *syntax.Tree) *Resolver {
	if w == nil {
		return NewResolver(tree)
	}
	return newResolver(tree, w.types)
}
