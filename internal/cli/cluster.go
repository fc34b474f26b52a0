package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/cluster"
	"github.com/reqtrace/reqtrace/internal/store"
	"github.com/reqtrace/reqtrace/internal/taxonomy"
)

// ClusterResult summarizes one clustering run.
type ClusterResult struct {
	Systems            int  `json:"systems"`
	HLRs               int  `json:"hlrs"`
	ReparentedLLRs     int  `json:"reparented_llrs"`
	PlaceholderRemoved bool `json:"placeholder_removed"`
}

// NewClusterCommand creates the cluster command.
func NewClusterCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Cluster derived LLRs into high-level requirements",
		Long: `Group the inventoried units by behavioral domain, synthesize system
requirements and HLRs from the classification taxonomy, and re-parent
draft LLRs under their capability HLRs.

The unclustered placeholder is removed once it has no children left.
Requires a completed derive.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCluster(rootOpts, cmd)
		},
	}
	return cmd
}

func runCluster(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	tax, err := taxonomy.Load()
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot load taxonomy", err)
	}

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	c := cluster.New(tax, log)

	var result ClusterResult
	err = s.RunPhase(ctx, store.PhaseCluster, func(ctx context.Context, tx *store.Tx) error {
		r, err := c.Run(ctx, tx)
		if err != nil {
			return err
		}
		result = ClusterResult{
			Systems:            r.Systems,
			HLRs:               r.HLRs,
			ReparentedLLRs:     r.ReparentedLLRs,
			PlaceholderRemoved: r.PlaceholderRemoved,
		}
		return nil
	})
	if err != nil {
		return phaseErr(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Clustered into %d system requirement(s) and %d HLR(s), re-parented %d LLR(s)\n",
		result.Systems, result.HLRs, result.ReparentedLLRs)
	return nil
}
