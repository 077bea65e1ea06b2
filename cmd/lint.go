// Copyright © 2024 The ELPS authors

package cmd

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/charmbracelet/log"
	"github.com/luthersystems/baseline/cache"
	"github.com/luthersystems/baseline/csharp"
	"github.com/luthersystems/baseline/diagnostic"
	"github.com/luthersystems/baseline/lint"
	"github.com/spf13/cobra"
	"github.com/viant/afs"
	"golang.org/x/sync/errgroup"
)

const stdinName = "<stdin>"

// Output formats accepted by --format.
const (
	formatText = "text"
	formatVet  = "vet"
	formatJSON = "json"
	formatYAML = "yaml"
)

// lintOptions is the resolved configuration of one lint invocation.
type lintOptions struct {
	Format               string
	Checks               []string
	List                 bool
	Excludes             []string
	Concurrency          int
	CacheDir             string
	IsolateNestedCatches bool
	Workspace            string
	Verbose              bool
	Color                diagnostic.ColorMode
}

func loadLintOptions(cmd *cobra.Command) (*lintOptions, error) {
	v, err := newConfig(cmd)
	if err != nil {
		return nil, err
	}
	opts := &lintOptions{
		Format:               v.GetString("format"),
		Checks:               listValue(v, "checks"),
		List:                 v.GetBool("list"),
		Excludes:             listValue(v, "exclude"),
		Concurrency:          v.GetInt("concurrency"),
		CacheDir:             v.GetString("cache-dir"),
		IsolateNestedCatches: v.GetBool("isolate-nested-catches"),
		Workspace:            v.GetString("workspace"),
		Verbose:              v.GetBool("verbose"),
	}
	switch opts.Format {
	case formatText, formatVet, formatJSON, formatYAML:
	default:
		return nil, fmt.Errorf("unknown format %q (want text, vet, json or yaml)", opts.Format)
	}
	if opts.Color, err = diagnostic.ParseColorMode(v.GetString("color")); err != nil {
		return nil, err
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = runtime.GOMAXPROCS(0)
	}
	return opts, nil
}

// registry builds the analyzers the options ask for.
func (o *lintOptions) registry() (*lint.Registry, error) {
	reg, err := lint.NewRegistry(
		lint.NewCatchRethrowAnalyzer(lint.CatchRethrowOptions{IsolateNestedCatches: o.IsolateNestedCatches}),
		lint.NewAsyncNamingAnalyzer(),
		lint.NewTaskBlockingAnalyzer(),
	)
	if err != nil {
		return nil, err
	}
	if len(o.Checks) == 0 {
		return reg, nil
	}
	return reg.Select(o.Checks...)
}

// cacheKeyParts identifies everything besides the source that changes the
// result of linting a file.
func (o *lintOptions) cacheKeyParts(reg *lint.Registry) []string {
	parts := reg.RuleIDs()
	if o.IsolateNestedCatches {
		parts = append(parts, "isolate-nested-catches")
	}
	return parts
}

// LintCommand returns the "lint" command.
func LintCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lint [flags] [files...]",
		Short: "Run static analysis checks on C# source files",
		Long: `Run static analysis checks on C# source files.

The linter reports likely mistakes in C# code, similar to "go vet" for Go.
Each check is an independent analyzer that examines the parsed syntax tree
and reports diagnostics. Names and types the file does not declare or import
are treated as unknown and never reported.

With no files, reads from stdin. A directory or a pattern ending in "/..."
lints every .cs file beneath it. Arguments may also be URLs
(file://, s3://, gs://).

Exit codes:
  0  No problems found
  1  One or more problems were reported
  2  Bad invocation (invalid flags, unreadable files)

Available checks (use --checks to select analyzers or rule IDs):
` + lint.AnalyzerDoc() + `Examples:
  baseline lint Service.cs                        # Lint a single file
  baseline lint ./src/...                         # Lint a tree
  baseline lint --format=json ./src/...           # Output diagnostics as JSON
  baseline lint --checks=BLA0021 Service.cs       # Run a single rule
  baseline lint --list                            # List available checks
  baseline lint --exclude='*.Designer.cs' ./...   # Exclude generated files
  cat Service.cs | baseline lint                  # Lint from stdin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadLintOptions(cmd)
			if err != nil {
				return usageError(err)
			}
			return runLint(cmd, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "Config file (default is .baseline.yaml in the working or home directory).")
	flags.String("format", formatText, "Output format: text, vet, json or yaml.")
	flags.String("checks", "", "Comma-separated analyzers or rule IDs to run (default: all enabled rules).")
	flags.Bool("list", false, "List available checks and exit.")
	flags.StringArray("exclude", nil, "Glob pattern for files to exclude (may be repeated).")
	flags.Int("concurrency", 0, "Number of files linted in parallel (default: GOMAXPROCS).")
	flags.String("cache-dir", "", "Directory for cached results (default: no cache).")
	flags.Bool("isolate-nested-catches", false, "Do not let a throw in a nested catch satisfy the outer catch.")
	flags.String("workspace", "", "Directory whose .cs files declare types the linted files may use.")
	flags.BoolP("verbose", "v", false, "Log progress to stderr.")
	flags.String("color", "auto", `Control colored output: "auto", "always", or "never".`)
	return cmd
}

// lintedFile is the outcome of linting one source.
type lintedFile struct {
	name   string
	src    []byte
	diags  []lint.Diagnostic
	cached bool
}

func runLint(cmd *cobra.Command, opts *lintOptions, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stdout, stderr := cmd.OutOrStdout(), cmd.ErrOrStderr()

	if opts.List {
		for _, name := range lint.AnalyzerNames() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	logger := newLogger(stderr, opts.Verbose)
	reg, err := opts.registry()
	if err != nil {
		return usageError(err)
	}
	var store *cache.Cache
	if opts.CacheDir != "" {
		if store, err = cache.Open(opts.CacheDir); err != nil {
			return usageError(err)
		}
	}
	fs := afs.New()
	frontend := csharp.Frontend{}
	keyParts := opts.cacheKeyParts(reg)
	if opts.Workspace != "" {
		var fingerprint []string
		if frontend.Workspace, fingerprint, err = loadWorkspace(ctx, fs, opts.Workspace); err != nil {
			return usageError(err)
		}
		keyParts = append(keyParts, fingerprint...)
		logger.Debug("workspace loaded", "dir", opts.Workspace, "types", frontend.Workspace.Len())
	}
	w := &worker{
		linter: &lint.Linter{Registry: reg, Frontend: frontend},
		cache:  store,
		key:    keyParts,
		log:    logger,
	}

	start := time.Now()
	var files []*lintedFile
	if len(args) == 0 {
		src, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return usageError(fmt.Errorf("reading stdin: %w", err))
		}
		f, err := w.lint(ctx, stdinName, src)
		if err != nil {
			return usageError(err)
		}
		files = append(files, f)
	} else {
		paths, err := expandArgs(ctx, fs, args, opts.Excludes)
		if err != nil {
			return usageError(err)
		}
		if files, err = w.lintAll(ctx, fs, paths, opts.Concurrency); err != nil {
			return usageError(err)
		}
	}

	var all []lint.Diagnostic
	sources := make(map[string][]byte, len(files))
	cached := 0
	for _, f := range files {
		all = append(all, f.diags...)
		sources[f.name] = f.src
		if f.cached {
			cached++
		}
	}
	logger.Debug("lint finished", "files", len(files), "cached", cached, "diagnostics", len(all), "elapsed", time.Since(start))

	switch opts.Format {
	case formatJSON:
		err = lint.FormatJSON(stdout, all)
	case formatYAML:
		err = lint.FormatYAML(stdout, all)
	case formatVet:
		lint.FormatText(stdout, all)
	default:
		r := &diagnostic.Renderer{Color: opts.Color, Sources: sources, Rules: reg}
		err = r.RenderAll(stderr, all, len(files))
	}
	if err != nil {
		return usageError(err)
	}
	if len(all) > 0 {
		return &exitError{code: exitFindings}
	}
	return nil
}

// loadWorkspace collects the types declared under dir. Unreadable files are
// skipped. The returned fingerprint changes whenever a workspace file does,
// so cached results computed against another workspace are not reused.
func loadWorkspace(ctx context.Context, fs afs.Service, dir string) (*csharp.Workspace, []string, error) {
	if ok, err := fs.Exists(ctx, location(dir)); err != nil || !ok {
		return nil, nil, fmt.Errorf("workspace %s: no such directory", dir)
	}
	paths, err := findSources(ctx, fs, dir)
	if err != nil {
		return nil, nil, fmt.Errorf("workspace %s: %w", dir, err)
	}
	sources := make(map[string][]byte, len(paths))
	var fingerprint []string
	for _, path := range paths {
		src, err := fs.DownloadWithURL(ctx, location(path))
		if err != nil {
			continue
		}
		sources[path] = src
		key, err := cache.Key(path, src, nil)
		if err != nil {
			return nil, nil, err
		}
		fingerprint = append(fingerprint, "workspace:"+key)
	}
	ws, err := csharp.BuildWorkspace(ctx, sources)
	if err != nil {
		return nil, nil, err
	}
	return ws, fingerprint, nil
}

func newLogger(w io.Writer, verbose bool) *log.Logger {
	logger := log.NewWithOptions(w, log.Options{Prefix: "baseline"})
	if verbose {
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}

// worker lints sources, consulting the cache first.
type worker struct {
	linter *lint.Linter
	cache  *cache.Cache
	key    []string
	log    *log.Logger
}

// lintAll lints paths with at most limit files in flight. Results keep the
// order of paths. The first unreadable or unparsable file fails the run.
func (w *worker) lintAll(ctx context.Context, fs afs.Service, paths []string, limit int) ([]*lintedFile, error) {
	files := make([]*lintedFile, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			src, err := fs.DownloadWithURL(gctx, location(path))
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			f, err := w.lint(gctx, path, src)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func (w *worker) lint(ctx context.Context, name string, src []byte) (*lintedFile, error) {
	key, err := cache.Key(name, src, w.key)
	if err != nil {
		return nil, err
	}
	if diags, ok := w.cache.Get(key); ok {
		w.log.Debug("linted", "file", name, "diagnostics", len(diags), "cached", true)
		return &lintedFile{name: name, src: src, diags: diags, cached: true}, nil
	}
	diags, err := w.linter.LintSource(ctx, src, name)
	if err != nil {
		return nil, err
	}
	if err := w.cache.Put(key, diags); err != nil {
		w.log.Warn("cache write failed", "file", name, "err", err)
	}
	w.log.Debug("linted", "file", name, "diagnostics", len(diags), "cached", false)
	return &lintedFile{name: name, src: src, diags: diags}, nil
}
