package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	DB      string // trace store path
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the reqtrace CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cfg, cfgErr := config.Load()
	if cfg == nil {
		cfg = &config.Config{StorePath: "trace.db", ScriptsDir: "tests", OutputPath: "SDD.md"}
	}

	cmd := &cobra.Command{
		Use:   "reqtrace",
		Short: "reqtrace - requirements derivation and traceability pipeline",
		Long:  "Derives low- and high-level requirements from source code and maintains the full traceability chain in a single SQLite store.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgErr != nil {
				return cfgErr
			}
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.DB, "db", cfg.StorePath, "trace store path")

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewScanCommand(opts, cfg))
	cmd.AddCommand(NewDeriveCommand(opts))
	cmd.AddCommand(NewClusterCommand(opts))
	cmd.AddCommand(NewRefineCommand(opts))
	cmd.AddCommand(NewArchCommand(opts))
	cmd.AddCommand(NewTestgenCommand(opts, cfg))
	cmd.AddCommand(NewRenderCommand(opts, cfg))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewAuditCommand(opts))
	cmd.AddCommand(NewReqCommand(opts))
	cmd.AddCommand(NewSectionsCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
