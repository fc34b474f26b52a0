package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/arch"
	"github.com/reqtrace/reqtrace/internal/store"
)

// ArchResult summarizes one architecture extraction run.
type ArchResult struct {
	Components int `json:"components"`
	Edges      int `json:"edges"`
	Decisions  int `json:"decisions"`
}

// NewArchCommand creates the arch command.
func NewArchCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "arch <source-root>",
		Short: "Extract architecture decisions from the dependency graph",
		Long: `Group the source inventory into directory components, resolve local
import edges between them, and record partitioning, data-flow, and
interface decisions. Requires a completed cluster.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runArch(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runArch(opts *RootOptions, root string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	e := arch.New(root, log)

	var result ArchResult
	err = s.RunPhase(ctx, store.PhaseArch, func(ctx context.Context, tx *store.Tx) error {
		r, err := e.Run(ctx, tx)
		if err != nil {
			return err
		}
		result = ArchResult{Components: r.Components, Edges: r.Edges, Decisions: r.Decisions}
		return nil
	})
	if err != nil {
		return phaseErr(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Recorded %d decision(s) from %d component(s) and %d edge(s)\n",
		result.Decisions, result.Components, result.Edges)
	return nil
}
