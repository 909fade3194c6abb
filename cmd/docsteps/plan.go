package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/docsteps/internal/exitcode"
	"github.com/felixgeelhaar/docsteps/internal/tui"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show the steps in execution order",
	Long: `Plan prints every step in the order a successful run executes it, with its
commands, dependency and readiness checks. Nothing is executed.

Examples:
  docsteps plan
  docsteps plan -f docsteps.toml`,
	RunE: runPlan,
}

var planFile string

func init() {
	rootCmd.AddCommand(planCmd)

	planCmd.Flags().StringVarP(&planFile, "file", "f", "README.md", "README or manifest to plan")
	_ = planCmd.RegisterFlagCompletionFunc("file", manifestFileCompletion)
}

func runPlan(cmd *cobra.Command, _ []string) error {
	steps, err := loadOrdered(planFile)
	if err != nil {
		return exitcode.WithCode(exitcode.ManifestError, err)
	}

	_, _ = fmt.Fprint(cmd.OutOrStdout(), tui.RenderPlan(steps, styles()))
	return nil
}
