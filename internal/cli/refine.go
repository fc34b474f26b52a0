package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reqtrace/reqtrace/internal/refine"
	"github.com/reqtrace/reqtrace/internal/store"
)

// RefineChange is one proposed or applied text rewrite.
type RefineChange struct {
	ID  string `json:"id"`
	Old string `json:"old"`
	New string `json:"new"`
}

// RefineResult lists the rewrites from one refine run.
type RefineResult struct {
	Applied bool           `json:"applied"`
	Changes []RefineChange `json:"changes"`
}

// NewRefineCommand creates the refine command.
func NewRefineCommand(rootOpts *RootOptions) *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Normalize requirement text and inject tolerances",
		Long: `Rewrite HLR text to the "The software shall" form, strip file and path
tokens, and back-fill quantitative tolerances from child LLR bounds.

Without --apply the command previews the rewrites and changes nothing.
Requires a completed cluster.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(rootOpts, apply, cmd)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "write the rewrites instead of previewing them")

	return cmd
}

func runRefine(opts *RootOptions, apply bool, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	log := newLogger(opts)
	defer log.Sync()

	s, err := openStore(opts)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	r := refine.New(log)

	// Preview obeys the same ordering gate as apply.
	if err := s.CheckOrder(ctx, store.PhaseRefine); err != nil {
		return phaseErr(err)
	}

	var changes []refine.Change
	if apply {
		err = s.RunPhase(ctx, store.PhaseRefine, func(ctx context.Context, tx *store.Tx) error {
			changes, err = r.Apply(ctx, tx)
			return err
		})
	} else {
		changes, err = r.Plan(ctx, s)
	}
	if err != nil {
		return phaseErr(err)
	}

	result := RefineResult{Applied: apply, Changes: make([]RefineChange, 0, len(changes))}
	for _, ch := range changes {
		result.Changes = append(result.Changes, RefineChange{ID: ch.ID, Old: ch.Old, New: ch.New})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	verb := "Would rewrite"
	if apply {
		verb = "Rewrote"
	}
	fmt.Fprintf(formatter.Writer, "✓ %s %d requirement(s)\n", verb, len(changes))
	for _, ch := range changes {
		fmt.Fprintf(formatter.Writer, "  %s\n    - %s\n    + %s\n", ch.ID, ch.Old, ch.New)
	}
	if !apply && len(changes) > 0 {
		fmt.Fprintln(formatter.Writer, "Run again with --apply to commit.")
	}
	return nil
}
