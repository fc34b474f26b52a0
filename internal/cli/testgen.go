package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/config"
	"github.com/reqtrace/reqtrace/internal/store"
	"github.com/reqtrace/reqtrace/internal/testgen"
)

// TestgenResult summarizes one generation run.
type TestgenResult struct {
	HLRs      int `json:"hlrs"`
	TestCases int `json:"test_cases"`
	Scripts   int `json:"scripts"`
}

// NewTestgenCommand creates the testgen command.
func NewTestgenCommand(rootOpts *RootOptions, cfg *config.Config) *cobra.Command {
	scriptsDir := cfg.ScriptsDir

	cmd := &cobra.Command{
		Use:   "testgen",
		Short: "Generate test cases and script skeletons for every HLR",
		Long: `Draft one normal-range test case per HLR plus one robustness case per
boundary literal found in its LLRs, and emit a runnable test skeleton
file per HLR.

Pass --scripts "" to skip script emission. Requires a completed refine.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTestgen(rootOpts, scriptsDir, cmd)
		},
	}

	cmd.Flags().StringVar(&scriptsDir, "scripts", scriptsDir, "directory for generated test skeletons (empty disables)")

	return cmd
}

func runTestgen(opts *RootOptions, scriptsDir string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	g := testgen.New(scriptsDir, log)

	var result TestgenResult
	err = s.RunPhase(ctx, store.PhaseTestgen, func(ctx context.Context, tx *store.Tx) error {
		r, err := g.Run(ctx, tx)
		if err != nil {
			return err
		}
		result = TestgenResult{HLRs: r.HLRs, TestCases: r.TestCases, Scripts: r.Scripts}
		return nil
	})
	if err != nil {
		return phaseErr(err)
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Generated %d test case(s) and %d script(s) for %d HLR(s)\n",
		result.TestCases, result.Scripts, result.HLRs)
	return nil
}
