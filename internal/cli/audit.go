package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

// FileCoverage is the per-file LLR coverage verdict.
type FileCoverage struct {
	Path    string `json:"path"`
	Units   int    `json:"units"`
	Covered int    `json:"covered"`
	Status  string `json:"status"` // PASS | PARTIAL | FAIL
}

// HLRScript reports whether an HLR has a bound test script.
type HLRScript struct {
	HLR      string `json:"hlr"`
	Scripted bool   `json:"scripted"`
}

// AuditResult is the full coverage audit.
type AuditResult struct {
	Files   []FileCoverage `json:"files"`
	HLRs    []HLRScript    `json:"hlrs"`
	Passed  bool           `json:"passed"`
	Partial int            `json:"partial"`
	Failed  int            `json:"failed"`
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit per-file LLR coverage and HLR script presence",
		Long: `Report, per scanned file, how many inventoried units have derived LLRs
(PASS when all do, PARTIAL when some, FAIL when none), and whether every
clustered HLR has a bound test script. Exits 1 when any file or HLR
falls short.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAudit(rootOpts, cmd)
		},
	}
	return cmd
}

func runAudit(opts *RootOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := collectAudit(cmd.Context(), s)
	if err != nil {
		return err
	}

	if formatter.Format == "json" {
		if err := formatter.Success(result); err != nil {
			return err
		}
	} else {
		fmt.Fprintln(formatter.Writer, "File coverage")
		for _, f := range result.Files {
			fmt.Fprintf(formatter.Writer, "  %-7s %s (%d/%d)\n", f.Status, f.Path, f.Covered, f.Units)
		}
		fmt.Fprintln(formatter.Writer, "HLR test scripts")
		for _, h := range result.HLRs {
			mark := "✗"
			if h.Scripted {
				mark = "✓"
			}
			fmt.Fprintf(formatter.Writer, "  %s %s\n", mark, h.HLR)
		}
	}

	if !result.Passed {
		return NewExitError(ExitFailure,
			fmt.Sprintf("coverage audit failed: %d partial, %d failed", result.Partial, result.Failed))
	}
	if formatter.Format != "json" {
		fmt.Fprintln(formatter.Writer, "✓ Coverage audit passed")
	}
	return nil
}

func collectAudit(ctx context.Context, s *store.Store) (*AuditResult, error) {
	units, err := s.ListSourceUnits(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct{ units, covered int }
	byPath := map[string]*tally{}
	var paths []string
	for _, u := range units {
		t, ok := byPath[u.Path]
		if !ok {
			t = &tally{}
			byPath[u.Path] = t
			paths = append(paths, u.Path)
		}
		t.units++
		if u.HasLLR {
			t.covered++
		}
	}
	sort.Strings(paths)

	result := &AuditResult{Passed: true}
	for _, p := range paths {
		t := byPath[p]
		fc := FileCoverage{Path: p, Units: t.units, Covered: t.covered}
		switch {
		case t.covered == t.units:
			fc.Status = "PASS"
		case t.covered > 0:
			fc.Status = "PARTIAL"
			result.Partial++
			result.Passed = false
		default:
			fc.Status = "FAIL"
			result.Failed++
			result.Passed = false
		}
		result.Files = append(result.Files, fc)
	}

	hlrs, err := s.ListHLRs(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range hlrs {
		if h.ID == ir.UnclusteredHLR {
			continue
		}
		cases, err := s.TestCasesByHLR(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		scripted := false
		for _, tc := range cases {
			if tc.TestScriptRef != "" {
				scripted = true
				break
			}
		}
		result.HLRs = append(result.HLRs, HLRScript{HLR: h.ID, Scripted: scripted})
		if !scripted {
			result.Failed++
			result.Passed = false
		}
	}
	return result, nil
}
