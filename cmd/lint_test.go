// Copyright © 2024 The ELPS authors

package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luthersystems/baseline/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const serviceSrc = `using System;
using System.Threading.Tasks;

namespace App;

public class Service
{
    public Task FetchData() { return Task.CompletedTask; }
    public void Rethrow() { try { } catch (Exception ex) { throw ex; } }
}
`

const cleanSrc = `using System.Threading.Tasks;

class Clean
{
    public Task FetchDataAsync() { return Task.CompletedTask; }
}
`

type cmdResult struct {
	stdout, stderr string
	code           int
}

func runLintCommand(t *testing.T, stdin string, args ...string) cmdResult {
	t.Helper()
	cmd := LintCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cmdResult{stdout: stdout.String(), stderr: stderr.String(), code: exitCode(err)}
}

func TestLintCommand_DefaultFlags(t *testing.T) {
	cmd := LintCommand()
	assert.Equal(t, "lint [flags] [files...]", cmd.Use)

	for _, name := range []string{"config", "format", "checks", "list", "exclude", "concurrency", "cache-dir", "isolate-nested-catches", "verbose", "color"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing flag: %s", name)
	}
	assert.Contains(t, cmd.Long, lint.AnalyzerCatchRethrow)
}

func TestLintCommand_Findings(t *testing.T) {
	root := writeTree(t, map[string]string{"Service.cs": serviceSrc})
	path := filepath.Join(root, "Service.cs")

	res := runLintCommand(t, "", "--color=never", path)
	assert.Equal(t, exitFindings, res.code)
	assert.Empty(t, res.stdout)
	assert.Contains(t, res.stderr, "warning[BLA0011]: Asynchronous method 'FetchData' must include the 'Async' suffix")
	assert.Contains(t, res.stderr, "warning[BLA0002]")
	assert.Contains(t, res.stderr, "--> "+path+":8:17")
	assert.Contains(t, res.stderr, "public Task FetchData()")
	assert.Contains(t, res.stderr, "2 warnings in 1 file")
	assert.Contains(t, res.stderr, "= help: asynchronous method names must include the 'Async' suffix (async-naming)")
	assert.Contains(t, res.stderr, "= note: use 'throw;' to rethrow and keep the original stack trace")
	assert.NotContains(t, res.stderr, "\x1b[")
}

func TestLintCommand_Clean(t *testing.T) {
	root := writeTree(t, map[string]string{"Clean.cs": cleanSrc})
	res := runLintCommand(t, "", filepath.Join(root, "Clean.cs"))
	assert.Equal(t, exitClean, res.code)
	assert.Empty(t, res.stderr)
}

func TestLintCommand_JSON(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/Service.cs": serviceSrc,
		"src/Clean.cs":   cleanSrc,
	})
	res := runLintCommand(t, "", "--format=json", "--concurrency=2", filepath.Join(root, "src")+"/...")
	assert.Equal(t, exitFindings, res.code)

	var diags []lint.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &diags))
	require.Len(t, diags, 2)
	assert.Equal(t, lint.IDAsyncSuffixMissing, diags[0].ID)
	assert.Equal(t, lint.IDRethrowCaught, diags[1].ID)
	assert.Equal(t, filepath.Join(root, "src", "Service.cs"), diags[0].Pos.File)
}

func TestLintCommand_YAMLAndVet(t *testing.T) {
	res := runLintCommand(t, serviceSrc, "--format=yaml")
	assert.Equal(t, exitFindings, res.code)
	var diags []lint.Diagnostic
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &diags))
	require.Len(t, diags, 2)
	assert.Equal(t, stdinName, diags[0].Pos.File)

	res = runLintCommand(t, serviceSrc, "--format=vet")
	assert.Equal(t, exitFindings, res.code)
	assert.Contains(t, res.stdout, "<stdin>:8:17: BLA0011: Asynchronous method 'FetchData'")
}

func TestLintCommand_Checks(t *testing.T) {
	res := runLintCommand(t, serviceSrc, "--format=json", "--checks=BLA0002")
	assert.Equal(t, exitFindings, res.code)
	var diags []lint.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, lint.IDRethrowCaught, diags[0].ID)

	res = runLintCommand(t, serviceSrc, "--checks", lint.AnalyzerTaskBlocking)
	assert.Equal(t, exitClean, res.code)

	res = runLintCommand(t, serviceSrc, "--checks=no-such-check")
	assert.Equal(t, exitUsage, res.code)
}

func TestLintCommand_BadInvocation(t *testing.T) {
	for name, args := range map[string][]string{
		"format":  {"--format=xml"},
		"color":   {"--color=sometimes"},
		"flag":    {"--no-such-flag"},
		"missing": {filepath.Join(t.TempDir(), "Missing.cs")},
		"config":  {"--config", filepath.Join(t.TempDir(), "absent.yaml")},
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, exitUsage, runLintCommand(t, cleanSrc, args...).code)
		})
	}
}

func TestLintCommand_List(t *testing.T) {
	res := runLintCommand(t, "", "--list")
	assert.Equal(t, exitClean, res.code)
	assert.Equal(t, strings.Join(lint.AnalyzerNames(), "\n")+"\n", res.stdout)
}

func TestLintCommand_Config(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "baseline.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("format: json\nchecks:\n  - BLA0011\n"), 0o600))

	res := runLintCommand(t, serviceSrc, "--config", cfg)
	assert.Equal(t, exitFindings, res.code)
	var diags []lint.Diagnostic
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &diags))
	require.Len(t, diags, 1)
	assert.Equal(t, lint.IDAsyncSuffixMissing, diags[0].ID)

	// Flags override the file.
	res = runLintCommand(t, serviceSrc, "--config", cfg, "--format=vet")
	assert.Contains(t, res.stdout, "BLA0011")
	assert.NotContains(t, res.stdout, "[")

	t.Setenv("BASELINE_CHECKS", "BLA0002")
	res = runLintCommand(t, serviceSrc, "--format=vet")
	assert.Contains(t, res.stdout, "BLA0002")
	assert.NotContains(t, res.stdout, "BLA0011")
}

func TestLintCommand_IsolateNestedCatches(t *testing.T) {
	src := `using System;

class C
{
    void Run()
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
	assert.Equal(t, exitClean, runLintCommand(t, src).code)
	res := runLintCommand(t, src, "--format=vet", "--isolate-nested-catches")
	assert.Equal(t, exitFindings, res.code)
	assert.Contains(t, res.stdout, "<stdin>:8:9: BLA0001")
}

func TestLintCommand_Cache(t *testing.T) {
	root := writeTree(t, map[string]string{"Service.cs": serviceSrc})
	path := filepath.Join(root, "Service.cs")
	cacheDir := filepath.Join(root, ".cache")

	first := runLintCommand(t, "", "--format=json", "--cache-dir", cacheDir, "--verbose", path)
	assert.Equal(t, exitFindings, first.code)
	assert.Contains(t, first.stderr, "cached=false")

	second := runLintCommand(t, "", "--format=json", "--cache-dir", cacheDir, "--verbose", path)
	assert.Equal(t, exitFindings, second.code)
	assert.Contains(t, second.stderr, "cached=true")
	assert.JSONEq(t, first.stdout, second.stdout)

	// A different rule selection is a different entry.
	third := runLintCommand(t, "", "--format=json", "--cache-dir", cacheDir, "--verbose", "--checks=BLA0011", path)
	assert.Contains(t, third.stderr, "cached=false")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitClean, exitCode(nil))
	assert.Equal(t, exitFindings, exitCode(&exitError{code: exitFindings}))
	assert.Equal(t, exitUsage, exitCode(errors.New("unknown flag")))

	err := usageError(lint.ErrUnknownCheck)
	assert.ErrorIs(t, err, lint.ErrUnknownCheck)
	assert.Equal(t, lint.ErrUnknownCheck.Error(), err.Error())
	assert.Equal(t, "exit status 1", (&exitError{code: 1}).Error())
}

func TestLintCommand_Workspace(t *testing.T) {
	root := writeTree(t, map[string]string{
		"lib/Jobs.cs": `namespace App.Jobs
{
    public class Awaiter { }
    public class Job { public Awaiter GetAwaiter() { return null; } }
}
`,
		"app/Runner.cs": `using App.Jobs;

class Runner
{
    public Job Start() { return null; }
}
`,
	})
	runner := filepath.Join(root, "app", "Runner.cs")
	cacheDir := filepath.Join(root, ".cache")

	res := runLintCommand(t, "", "--format=vet", "--cache-dir", cacheDir, runner)
	assert.Equal(t, exitClean, res.code, "Job is unknown without the workspace")

	res = runLintCommand(t, "", "--format=vet", "--cache-dir", cacheDir, "--workspace", filepath.Join(root, "lib"), runner)
	assert.Equal(t, exitFindings, res.code)
	assert.Contains(t, res.stdout, "Runner.cs:5:16: BLA0011: Asynchronous method 'Start'")

	res = runLintCommand(t, "", "--workspace", filepath.Join(root, "missing"), runner)
	assert.Equal(t, exitUsage, res.code)
}
