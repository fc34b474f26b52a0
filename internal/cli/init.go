package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// InitResult reports where the store was created.
type InitResult struct {
	Store string `json:"store"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create or upgrade the trace store",
		Long: `Create the SQLite trace store with the full traceability schema.

Opening an existing store applies any pending schema migrations. The
command is idempotent.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(rootOpts, cmd)
		},
	}
	return cmd
}

func runInit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if formatter.Format == "json" {
		return formatter.Success(InitResult{Store: opts.DB})
	}
	fmt.Fprintf(formatter.Writer, "✓ Store initialized at %s\n", opts.DB)
	return nil
}
