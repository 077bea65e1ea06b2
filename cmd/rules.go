// Copyright © 2024 The ELPS authors

package cmd

import (
	"fmt"
	"strings"

	"github.com/luthersystems/baseline/lint"
	"github.com/spf13/cobra"
)

// RulesCommand returns the "rules" command.
func RulesCommand() *cobra.Command {
	var (
		width  int
		checks string
	)
	cmd := &cobra.Command{
		Use:   "rules [flags]",
		Short: "Describe the lint rules",
		Long: `Print the ID, title, category, default severity and description of
every lint rule. With --checks, rules outside the selection are shown as
disabled.

Examples:
  baseline rules
  baseline rules --checks=async-naming
  baseline rules --width=60`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg := lint.DefaultRegistry()
			if checks != "" {
				var err error
				if reg, err = reg.Select(strings.Split(checks, ",")...); err != nil {
					return usageError(err)
				}
			}
			_, err := fmt.Fprint(cmd.OutOrStdout(), lint.RuleDoc(reg, width))
			return err
		},
	}
	cmd.Flags().IntVar(&width, "width", 80, "Wrap descriptions at this many columns.")
	cmd.Flags().StringVar(&checks, "checks", "", "Comma-separated analyzers or rule IDs to mark enabled.")
	return cmd
}
