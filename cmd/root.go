// Copyright © 2018 The ELPS authors

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/luthersystems/baseline/cache"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Static analysis for C# sources",
	Long: `baseline reports likely mistakes in C# code: swallowed or badly
rethrown exceptions, async methods whose names disagree with their return
type, and blocking waits on tasks.

Getting started:
  baseline lint Service.cs          Lint a single file
  baseline lint ./src/...           Lint every .cs file under src
  baseline rules                    Describe every rule

Configuration is read from .baseline.yaml in the working directory or the
home directory, and from BASELINE_* environment variables (for example
BASELINE_FORMAT=json). Flags take precedence over both.`,
	Version:       cache.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	var exit *exitError
	if err != nil && (!errors.As(err, &exit) || exit.err != nil) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}

func init() {
	rootCmd.AddCommand(LintCommand())
	rootCmd.AddCommand(RulesCommand())
}

// Exit codes shared by all commands.
const (
	exitClean    = 0
	exitFindings = 1
	exitUsage    = 2
)

// exitError carries a process exit code out of a command. A nil err means
// there is nothing further to print.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func usageError(err error) error {
	return &exitError{code: exitUsage, err: err}
}

// exitCode maps a command error onto the process exit code. Errors that do
// not carry a code are invocation errors.
func exitCode(err error) int {
	if err == nil {
		return exitClean
	}
	var exit *exitError
	if errors.As(err, &exit) {
		return exit.code
	}
	return exitUsage
}
