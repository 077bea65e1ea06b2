// Copyright © 2024 The ELPS authors

package csharp

import (
	"context"

	"github.com/luthersystems/baseline/analysis"
	"github.com/luthersystems/baseline/lint"
	"github.com/luthersystems/baseline/syntax"
)

// Extension is the file extension of C# sources.
const Extension = ".cs"

// Frontend parses C# for the lint driver.
type Frontend struct {
	// Workspace, when set, makes types declared in other files of the
	// project resolvable.
	Workspace *Workspace
}

var _ lint.Frontend = Frontend{}

// Parse parses src and binds the resulting tree.
func (f Frontend) Parse(ctx context.Context, filename string, src []byte) (*syntax.Tree, analysis.Resolver, error) {
	tree, err := Parse(ctx, filename, src)
	if err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return tree, f.Workspace.NewResolver(tree), nil
}
