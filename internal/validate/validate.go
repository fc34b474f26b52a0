// Package validate runs the completeness checks against a finished store.
// Each check reports pass or fail with the offending record ids; the
// pipeline counts as done only when every check passes. Violations are
// surfaced, never silently repaired.
package validate

import (
	"context"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/refine"
)

// Reader is the read-only store surface the validator needs.
type Reader interface {
	ListHLRs(ctx context.Context) ([]ir.HighLevelRequirement, error)
	ViolationIDs(ctx context.Context, view string) ([]string, error)
}

// Check is one validation verdict.
type Check struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Passed      bool     `json:"passed"`
	Offending   []string `json:"offending,omitempty"`
}

// Report holds every check's verdict.
type Report struct {
	Checks []Check `json:"checks"`
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// Validator runs the check suite.
type Validator struct {
	log *zap.Logger
}

// New returns a Validator.
func New(log *zap.Logger) *Validator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Validator{log: log}
}

// viewCheck pairs a check with the schema view that computes it.
type viewCheck struct {
	name        string
	description string
	view        string
}

// Run executes the full check suite and returns the report. The report is
// complete even when checks fail; only store errors abort.
func (v *Validator) Run(ctx context.Context, q Reader) (*Report, error) {
	report := &Report{}

	ordered := []viewCheck{
		{
			name:        "parent_linkage",
			description: "every HLR has a non-null parent system requirement",
			view:        "v_untraced_hlrs",
		},
		{
			name:        "decomposition",
			description: "every HLR decomposes into at least 2 LLRs",
			view:        "v_incomplete_decomposition",
		},
		{
			name:        "test_coverage",
			description: "every HLR has at least 1 test case",
			view:        "v_untested_hlrs",
		},
	}
	for _, vc := range ordered {
		ids, err := q.ViolationIDs(ctx, vc.view)
		if err != nil {
			return nil, err
		}
		report.Checks = append(report.Checks, Check{
			Name:        vc.name,
			Description: vc.description,
			Passed:      len(ids) == 0,
			Offending:   ids,
		})
	}

	hygiene, err := textHygiene(ctx, q)
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, hygiene)

	rationaleIDs, err := q.ViolationIDs(ctx, "v_missing_rationale")
	if err != nil {
		return nil, err
	}
	report.Checks = append(report.Checks, Check{
		Name:        "derivation_rationale",
		Description: "every derived HLR records a non-empty rationale",
		Passed:      len(rationaleIDs) == 0,
		Offending:   rationaleIDs,
	})

	for _, c := range report.Checks {
		if !c.Passed {
			v.log.Warn("validation check failed",
				zap.String("check", c.Name),
				zap.Strings("offending", c.Offending))
		}
	}
	v.log.Info("validation complete", zap.Bool("passed", report.Passed()))
	return report, nil
}

// textHygiene flags HLR text still carrying path-like or file-extension
// tokens.
func textHygiene(ctx context.Context, q Reader) (Check, error) {
	check := Check{
		Name:        "text_hygiene",
		Description: "no HLR text contains a path-like or file-extension token",
	}
	hlrs, err := q.ListHLRs(ctx)
	if err != nil {
		return check, err
	}
	for _, h := range hlrs {
		if refine.HasFileToken(h.Text) {
			check.Offending = append(check.Offending, h.ID)
		}
	}
	check.Passed = len(check.Offending) == 0
	return check, nil
}
