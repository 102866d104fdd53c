// Package main provides the entry point for the tensorfang CLI tool.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tensorfang/cmd/tensorfang/commands"
	"github.com/Sumatoshi-tech/tensorfang/pkg/version"
)

// exitCodeInvalidProgram is the exit code for program validation failures.
const exitCodeInvalidProgram = 2

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "tensorfang",
		Short: "Tensorfang - scope-buffered tensor program runner",
		Long: `Tensorfang runs tensor dataflow programs with buffered execution
scopes: per-step intermediates are kept across steps and reclaimed in
bulk, while persistable variables survive in a shared persistent scope.

Commands:
  run       Execute a program for N steps
  validate  Check a program manifest against the schema`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		if errors.Is(err, commands.ErrProgramInvalid) {
			// The validate command already printed the issues.
			os.Exit(exitCodeInvalidProgram)
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "tensorfang %s (commit: %s, built: %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}
