package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/deriver"
	"github.com/reqtrace/reqtrace/internal/store"
)

// DeriveResult summarizes one derivation run.
type DeriveResult struct {
	Units int `json:"units"`
	LLRs  int `json:"llrs"`
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "derive <source-root>",
		Short: "Derive low-level requirements from inventoried units",
		Long: `Read the source of every inventoried unit that has no LLRs yet and
derive one low-level requirement per control-flow decision.

Fresh LLRs are parented to the unclustered placeholder until the cluster
phase assigns them to real HLRs. Requires a completed scan.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runDerive(opts *RootOptions, root string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	d := deriver.New(root, log)

	var result DeriveResult
	err = s.RunPhase(ctx, store.PhaseDerive, func(ctx context.Context, tx *store.Tx) error {
		units, err := tx.UnitsWithoutLLR(ctx)
		if err != nil {
			return err
		}
		llrs, covered, err := d.DeriveUnits(ctx, units)
		if err != nil {
			return err
		}

		if err := tx.EnsureUnclusteredHLR(ctx); err != nil {
			return err
		}
		for _, l := range llrs {
			if _, err := tx.UpsertLLR(ctx, l); err != nil {
				return err
			}
		}
		for _, id := range covered {
			if err := tx.MarkUnitCovered(ctx, id); err != nil {
				return err
			}
		}
		result = DeriveResult{Units: len(covered), LLRs: len(llrs)}
		return nil
	})
	if err != nil {
		return phaseErr(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Derived %d LLR(s) from %d unit(s)\n", result.LLRs, result.Units)
	return nil
}
