package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

// PhaseStatus reports one phase's completion state.
type PhaseStatus struct {
	Phase     string `json:"phase"`
	Completed bool   `json:"completed"`
}

// StatusResult is the pipeline progress dashboard.
type StatusResult struct {
	Counts       map[string]int `json:"counts"`
	UnitsCovered int            `json:"units_covered"`
	UnitsTotal   int            `json:"units_total"`
	HLRsTested   int            `json:"hlrs_tested"`
	HLRsTotal    int            `json:"hlrs_total"`
	Phases       []PhaseStatus  `json:"phases"`
	NextAction   string         `json:"next_action"`
}

// statusPhases is the pipeline order the dashboard walks to suggest the
// next action.
var statusPhases = []store.Phase{
	store.PhaseScan,
	store.PhaseDerive,
	store.PhaseCluster,
	store.PhaseRefine,
	store.PhaseArch,
	store.PhaseTestgen,
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "status",
		Short:         "Show pipeline progress and the suggested next action",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}
	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	result, err := collectStatus(ctx, s)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "Pipeline status")
	for _, p := range result.Phases {
		mark := "✗"
		if p.Completed {
			mark = "✓"
		}
		fmt.Fprintf(formatter.Writer, "  %s %s\n", mark, p.Phase)
	}
	fmt.Fprintln(formatter.Writer, "Records")
	for _, key := range store.TableKeys() {
		fmt.Fprintf(formatter.Writer, "  %-5s %d\n", key, result.Counts[key])
	}
	fmt.Fprintf(formatter.Writer, "Coverage\n  units with LLRs: %d/%d (%s)\n  HLRs with tests: %d/%d (%s)\n",
		result.UnitsCovered, result.UnitsTotal, percent(result.UnitsCovered, result.UnitsTotal),
		result.HLRsTested, result.HLRsTotal, percent(result.HLRsTested, result.HLRsTotal))
	fmt.Fprintf(formatter.Writer, "Next: %s\n", result.NextAction)
	return nil
}

func collectStatus(ctx context.Context, s *store.Store) (*StatusResult, error) {
	result := &StatusResult{Counts: map[string]int{}}

	for _, key := range store.TableKeys() {
		n, err := s.CountRows(ctx, key)
		if err != nil {
			return nil, err
		}
		result.Counts[key] = n
	}

	units, err := s.ListSourceUnits(ctx)
	if err != nil {
		return nil, err
	}
	result.UnitsTotal = len(units)
	for _, u := range units {
		if u.HasLLR {
			result.UnitsCovered++
		}
	}

	hlrs, err := s.ListHLRs(ctx)
	if err != nil {
		return nil, err
	}
	untested, err := s.HLRsWithoutTests(ctx)
	if err != nil {
		return nil, err
	}
	missing := map[string]bool{}
	for _, h := range untested {
		missing[h.ID] = true
	}
	for _, h := range hlrs {
		if h.ID == ir.UnclusteredHLR {
			continue
		}
		result.HLRsTotal++
		if !missing[h.ID] {
			result.HLRsTested++
		}
	}

	result.NextAction = "reqtrace validate"
	for _, phase := range statusPhases {
		done, err := s.PhaseCompleted(ctx, phase)
		if err != nil {
			return nil, err
		}
		result.Phases = append(result.Phases, PhaseStatus{Phase: string(phase), Completed: done})
		if !done && result.NextAction == "reqtrace validate" {
			result.NextAction = "reqtrace " + string(phase)
		}
	}
	if result.NextAction == "reqtrace validate" && result.Counts["SEC"] == 0 {
		result.NextAction = "reqtrace sections load"
	}
	return result, nil
}

func percent(n, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%.0f%%", float64(n)/float64(total)*100)
}
