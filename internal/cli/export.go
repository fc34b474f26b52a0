package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/store"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export <table>",
		Short: "Export an entity table as CSV",
		Long: fmt.Sprintf(`Export one entity table as CSV, header row first.

Table keys: %s. Writes to stdout unless --out is given.`,
			strings.Join(store.TableKeys(), ", ")),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(rootOpts, args[0], out, cmd)
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")

	return cmd
}

func runExport(opts *RootOptions, tableKey, out string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	key := strings.ToUpper(tableKey)
	if _, ok := store.ResolveTable(key); !ok {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown table %q: must be one of %s", tableKey, strings.Join(store.TableKeys(), ", ")))
	}

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	w := formatter.Writer
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("cannot create %s", out), err)
		}
		defer f.Close()
		w = f
	}

	if err := s.ExportCSV(cmd.Context(), w, key); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(formatter.Writer, "✓ Exported %s to %s\n", key, out)
	}
	return nil
}
