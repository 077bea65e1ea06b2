// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/luthersystems/baseline/csharp"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
)

// expandArgs expands arguments into the list of sources to lint. A pattern
// ending with "/..." or a directory expands to every .cs file found
// recursively beneath it. Other arguments (files and URLs) pass through
// unchanged. Paths matching an exclude pattern are dropped.
func expandArgs(ctx context.Context, fs afs.Service, args []string, excludes []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		dir, recursive := strings.CutSuffix(arg, "/...")
		if recursive && dir == "" {
			dir = "."
		}
		if !recursive {
			if obj, err := fs.Object(ctx, location(arg)); err == nil && obj.IsDir() {
				dir, recursive = arg, true
			}
		}
		if !recursive {
			out = append(out, arg)
			continue
		}
		files, err := findSources(ctx, fs, dir)
		if err != nil {
			return nil, fmt.Errorf("expanding %s: %w", arg, err)
		}
		out = append(out, files...)
	}
	return filterExcludes(out, excludes), nil
}

// findSources returns the C# sources under root, sorted. Hidden and build
// output directories are not entered.
func findSources(ctx context.Context, fs afs.Service, root string) ([]string, error) {
	var files []string
	var visit storage.OnVisit = func(ctx context.Context, baseURL, parent string, info os.FileInfo, reader io.Reader) (bool, error) {
		if info.IsDir() {
			return !shouldSkipDir(info.Name()), nil
		}
		if filepath.Ext(info.Name()) == csharp.Extension {
			files = append(files, filepath.Join(root, filepath.FromSlash(parent), info.Name()))
		}
		return true, nil
	}
	if err := fs.Walk(ctx, location(root), visit); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// shouldSkipDir returns true for directories that should not be walked:
// hidden directories (e.g. .git, .vs) and build output.
func shouldSkipDir(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	if len(name) > 0 && name[0] == '.' {
		return true
	}
	switch name {
	case "bin", "obj", "node_modules":
		return true
	}
	return false
}

// location turns a local path into an absolute one for afs. URLs pass
// through.
func location(p string) string {
	if strings.Contains(p, "://") {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// filterExcludes removes paths that match any of the exclude patterns.
func filterExcludes(paths []string, excludes []string) []string {
	if len(excludes) == 0 {
		return paths
	}
	var out []string
	for _, p := range paths {
		if !matchesAny(p, excludes) {
			out = append(out, p)
		}
	}
	return out
}

// matchesAny reports whether path matches a pattern as a whole, by its
// base name, or by any of its directory components.
func matchesAny(path string, patterns []string) bool {
	path = filepath.ToSlash(path)
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		for _, c := range splitPath(path) {
			if ok, _ := filepath.Match(pat, c); ok {
				return true
			}
		}
	}
	return false
}

// splitPath returns the slash separated components of path.
func splitPath(path string) []string {
	var out []string
	for _, c := range strings.Split(filepath.ToSlash(path), "/") {
		if c != "" && c != "." {
			out = append(out, c)
		}
	}
	return out
}
