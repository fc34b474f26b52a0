package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/validate"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run the traceability completeness checks",
		Long: `Run the full check suite against the store: parent linkage, LLR
decomposition depth, test coverage, requirement text hygiene, and
derivation rationale presence.

Violations are reported with the offending record ids; nothing is
repaired. Exits 1 when any check fails.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	report, err := validate.New(log).Run(cmd.Context(), s)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		if err := formatter.Success(report); err != nil {
			return err
		}
	} else {
		for _, c := range report.Checks {
			mark := "✓"
			if !c.Passed {
				mark = "✗"
			}
			fmt.Fprintf(formatter.Writer, "%s %s: %s\n", mark, c.Name, c.Description)
			for _, id := range c.Offending {
				fmt.Fprintf(formatter.Writer, "    %s\n", id)
			}
		}
	}

	if !report.Passed() {
		failed := 0
		for _, c := range report.Checks {
			if !c.Passed {
				failed++
			}
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed: %d check(s) failed", failed))
	}

	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✓ All checks passed")
	}
	return nil
}
