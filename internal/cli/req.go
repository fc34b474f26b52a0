package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// NewReqCommand creates the req command group for manual record
// management. Manual records carry source "external" so they survive
// re-derivation untouched.
func NewReqCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "req",
		Short: "Manage requirement records manually",
		Long: `Add or update individual traceability records by hand.

All add commands upsert by id, so re-running with the same id rewrites
the record instead of duplicating it.`,
	}

	cmd.AddCommand(newReqAddSysCommand(rootOpts))
	cmd.AddCommand(newReqAddHLRCommand(rootOpts))
	cmd.AddCommand(newReqAddLLRCommand(rootOpts))
	cmd.AddCommand(newReqAddTCCommand(rootOpts))
	cmd.AddCommand(newReqAddArchCommand(rootOpts))
	cmd.AddCommand(newReqSetResultCommand(rootOpts))

	return cmd
}

func newReqAddSysCommand(rootOpts *RootOptions) *cobra.Command {
	var r ir.SystemRequirement

	cmd := &cobra.Command{
		Use:           "add-sys",
		Short:         "Add or update a system requirement",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return reqUpsert(rootOpts, cmd, r.ID, func(s reqStore) error {
				return s.UpsertSystemRequirement(cmd.Context(), r)
			})
		},
	}

	cmd.Flags().StringVar(&r.ID, "id", "", "record id (required)")
	cmd.Flags().StringVar(&r.Text, "text", "", "requirement text (required)")
	cmd.Flags().StringVar(&r.Source, "source", ir.SourceExternal, "requirement source")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("text")

	return cmd
}

func newReqAddHLRCommand(rootOpts *RootOptions) *cobra.Command {
	var h ir.HighLevelRequirement
	var category string

	cmd := &cobra.Command{
		Use:           "add-hlr",
		Short:         "Add or update a high-level requirement",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			h.Category = ir.HLRCategory(category)
			if h.IsDerived && h.DerivationRationale == "" {
				return NewExitError(ExitCommandError, "--derived requires --rationale")
			}
			return reqUpsert(rootOpts, cmd, h.ID, func(s reqStore) error {
				return s.UpsertHLR(cmd.Context(), h)
			})
		},
	}

	cmd.Flags().StringVar(&h.ID, "id", "", "record id (required)")
	cmd.Flags().StringVar(&h.Text, "text", "", "requirement text (required)")
	cmd.Flags().StringVar(&h.Source, "source", ir.SourceExternal, "requirement source")
	cmd.Flags().StringVar(&h.ParentSys, "parent-sys", "", "parent system requirement id")
	cmd.Flags().StringVar(&h.AllocatedTo, "allocated-to", "", "allocated component")
	cmd.Flags().BoolVar(&h.IsDerived, "derived", false, "mark as derived")
	cmd.Flags().StringVar(&h.DerivationRationale, "rationale", "", "derivation rationale")
	cmd.Flags().StringVar(&category, "category", string(ir.CategoryFunctional), "requirement category")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("text")

	return cmd
}

func newReqAddLLRCommand(rootOpts *RootOptions) *cobra.Command {
	var l ir.LowLevelRequirement
	var logicType string

	cmd := &cobra.Command{
		Use:           "add-llr",
		Short:         "Add or update a low-level requirement",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			l.LogicType = ir.LogicType(logicType)
			return reqUpsert(rootOpts, cmd, l.ID, func(s reqStore) error {
				_, err := s.UpsertLLR(cmd.Context(), l)
				return err
			})
		},
	}

	cmd.Flags().StringVar(&l.ID, "id", "", "record id (required)")
	cmd.Flags().StringVar(&l.Text, "text", "", "requirement text (required)")
	cmd.Flags().StringVar(&l.ParentHLR, "parent-hlr", "", "parent HLR id (required)")
	cmd.Flags().StringVar(&l.Source, "source", ir.SourceExternal, "requirement source")
	cmd.Flags().StringVar(&logicType, "logic-type", string(ir.LogicOther), "logic type")
	cmd.Flags().StringVar(&l.TraceToCode, "trace", "", "path:line code reference")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("text")
	cmd.MarkFlagRequired("parent-hlr")

	return cmd
}

func newReqAddTCCommand(rootOpts *RootOptions) *cobra.Command {
	var tc ir.TestCase
	var testType string

	cmd := &cobra.Command{
		Use:           "add-tc",
		Short:         "Add or update a test case",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc.TestType = ir.TestType(testType)
			return reqUpsert(rootOpts, cmd, tc.ID, func(s reqStore) error {
				return s.UpsertTestCase(cmd.Context(), tc)
			})
		},
	}

	cmd.Flags().StringVar(&tc.ID, "id", "", "record id (required)")
	cmd.Flags().StringVar(&tc.ParentHLR, "parent-hlr", "", "parent HLR id (required)")
	cmd.Flags().StringVar(&testType, "type", string(ir.TestIntegration), "test type")
	cmd.Flags().StringVar(&tc.Description, "description", "", "test description")
	cmd.Flags().StringVar(&tc.Procedure, "procedure", "", "numbered procedure steps")
	cmd.Flags().StringVar(&tc.InputData, "input", "", "input data")
	cmd.Flags().StringVar(&tc.ExpectedOutput, "expected", "", "expected output")
	cmd.Flags().StringVar(&tc.PassCriteria, "criteria", "", "pass criteria")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("parent-hlr")

	return cmd
}

func newReqAddArchCommand(rootOpts *RootOptions) *cobra.Command {
	var d ir.ArchitectureDecision
	var category string

	cmd := &cobra.Command{
		Use:           "add-arch",
		Short:         "Add or update an architecture decision",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			d.Category = ir.ArchCategory(category)
			return reqUpsert(rootOpts, cmd, d.ID, func(s reqStore) error {
				return s.UpsertArchDecision(cmd.Context(), d)
			})
		},
	}

	cmd.Flags().StringVar(&d.ID, "id", "", "record id (required)")
	cmd.Flags().StringVar(&d.Description, "description", "", "decision description (required)")
	cmd.Flags().StringVar(&d.Rationale, "rationale", "", "decision rationale")
	cmd.Flags().StringVar(&d.ParentHLR, "parent-hlr", "", "parent HLR id")
	cmd.Flags().StringVar(&category, "category", string(ir.ArchOther), "decision category")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("description")

	return cmd
}

func newReqSetResultCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "set-result <test-id> <PASS|FAIL|NOT_RUN>",
		Short:         "Record a test case execution result",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			result := ir.PassFail(args[1])
			switch result {
			case ir.ResultPass, ir.ResultFail, ir.ResultNotRun:
			default:
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid result %q: must be PASS, FAIL, or NOT_RUN", args[1]))
			}
			return reqUpsert(rootOpts, cmd, args[0], func(s reqStore) error {
				return s.SetTestResult(cmd.Context(), args[0], result)
			})
		},
	}
	return cmd
}

// reqStore is the store surface the req commands write through.
type reqStore interface {
	UpsertSystemRequirement(ctx context.Context, r ir.SystemRequirement) error
	UpsertHLR(ctx context.Context, h ir.HighLevelRequirement) error
	UpsertLLR(ctx context.Context, l ir.LowLevelRequirement) (bool, error)
	UpsertTestCase(ctx context.Context, t ir.TestCase) error
	UpsertArchDecision(ctx context.Context, d ir.ArchitectureDecision) error
	SetTestResult(ctx context.Context, testID string, result ir.PassFail) error
}

// reqUpsert opens the store, runs the write, and reports the touched id.
func reqUpsert(opts *RootOptions, cmd *cobra.Command, id string, fn func(s reqStore) error) error {
	formatter := newFormatter(opts, cmd)

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := fn(s); err != nil {
		return err
	}

	if formatter.Format == "json" {
		return formatter.Success(map[string]string{"id": id})
	}
	fmt.Fprintf(formatter.Writer, "✓ %s\n", id)
	return nil
}
