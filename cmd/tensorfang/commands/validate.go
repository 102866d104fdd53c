package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/tensorfang/internal/program"
)

// ErrProgramInvalid indicates a program manifest failed validation.
// The CLI maps it to a dedicated exit code.
var ErrProgramInvalid = errors.New("program validation failed")

// ValidateCommand holds configuration for the validate command.
type ValidateCommand struct {
	noColor bool
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	vc := &ValidateCommand{}

	cmd := &cobra.Command{
		Use:   "validate <program.yaml>",
		Short: "Validate a program manifest against the program schema",
		Long: `Validate checks a program manifest against the embedded JSON schema
and the semantic rules (declared variables, operand references).

Examples:
  tensorfang validate examples/sgd.yaml
  tensorfang validate --no-color program.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return vc.run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&vc.noColor, "no-color", false, "disable colored output")

	return cmd
}

func (vc *ValidateCommand) run(cmd *cobra.Command, path string) error {
	if vc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	out := cmd.OutOrStdout()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read program: %w", err)
	}

	issues, err := program.CheckSchema(data)
	if err != nil {
		return err
	}

	if len(issues) > 0 {
		color.New(color.FgRed).Fprintf(out, "program is invalid (%s)\n", path)
		fmt.Fprintf(out, "\nSchema violations:\n")

		for _, issue := range issues {
			color.New(color.FgRed).Fprintf(out, "  - %s: %s\n", issue.Field, issue.Description)
		}

		return ErrProgramInvalid
	}

	_, err = program.Parse(data)
	if err != nil {
		color.New(color.FgRed).Fprintf(out, "program is invalid (%s)\n", path)
		color.New(color.FgRed).Fprintf(out, "  - %v\n", err)

		return ErrProgramInvalid
	}

	color.New(color.FgGreen).Fprintf(out, "program is valid (%s)\n", path)

	return nil
}
