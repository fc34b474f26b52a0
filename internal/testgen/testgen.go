// Package testgen drafts verification artifacts for each HLR: one
// normal-range test case built from a value strictly inside every LLR
// boundary, one robustness case per distinct boundary literal, and a
// runnable Go test skeleton bound to the rows through test_script_ref.
package testgen

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

var (
	funcRef  = regexp.MustCompile(`Function '(\w+)'`)
	boundRef = regexp.MustCompile(`([><]=?|==)\s*(-?\d+\.?\d*)`)
	// Tolerance clause as the refiner writes it into HLR text.
	tolClause = regexp.MustCompile(`(?i)within (?:the range )?-?\d+\.?\d*(?:–-?\d+\.?\d*)? ?[%\w]*`)
)

// fallbackCriteria applies when the HLR text carries no tolerance.
const fallbackCriteria = "output is defined and does not raise"

// Generator drafts test cases and skeleton scripts. scriptsDir is where
// skeleton files land; empty disables script emission.
type Generator struct {
	scriptsDir string
	log        *zap.Logger
}

// New returns a Generator writing skeletons under scriptsDir.
func New(scriptsDir string, log *zap.Logger) *Generator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{scriptsDir: scriptsDir, log: log}
}

// Result summarizes one generation run.
type Result struct {
	HLRs      int
	TestCases int
	Scripts   int
}

// boundary is one numeric comparison literal lifted from LLR text. The
// literal keeps its source spelling; val is its parsed value.
type boundary struct {
	op  string
	lit string
	val float64
}

// Run drafts test cases for every clustered HLR. Case ids derive from the
// HLR id and a per-HLR ordinal, so re-running upserts the same rows.
func (g *Generator) Run(ctx context.Context, tx *store.Tx) (*Result, error) {
	hlrs, err := tx.ListHLRs(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, h := range hlrs {
		if h.ID == ir.UnclusteredHLR {
			continue
		}
		llrs, err := tx.LLRsByHLR(ctx, h.ID)
		if err != nil {
			return nil, err
		}

		cases := draftCases(h, llrs)
		for _, tc := range cases {
			if err := tx.UpsertTestCase(ctx, tc); err != nil {
				return nil, err
			}
		}
		res.TestCases += len(cases)
		res.HLRs++

		if g.scriptsDir != "" {
			ref, err := g.writeScript(h, cases, llrs)
			if err != nil {
				return nil, err
			}
			for _, tc := range cases {
				if err := tx.SetTestScriptRef(ctx, tc.ID, ref); err != nil {
					return nil, err
				}
			}
			res.Scripts++
		}
	}

	g.log.Info("test cases generated",
		zap.Int("hlrs", res.HLRs),
		zap.Int("cases", res.TestCases),
		zap.Int("scripts", res.Scripts))
	return res, nil
}

// draftCases builds the normal-range case plus one robustness case per
// distinct boundary literal for an HLR.
func draftCases(h ir.HighLevelRequirement, llrs []ir.LowLevelRequirement) []ir.TestCase {
	funcs := funcNames(llrs)
	bounds := boundaries(llrs)
	criteria := passCriteria(h.Text)

	cases := []ir.TestCase{normalCase(h, funcs, bounds, criteria)}
	for i, b := range bounds {
		cases = append(cases, robustnessCase(h, funcs, b, criteria, i+1, errorHandlers(llrs)))
	}
	return cases
}

// normalCase exercises the happy path with a representative value strictly
// inside every boundary.
func normalCase(h ir.HighLevelRequirement, funcs []string, bounds []boundary, criteria string) ir.TestCase {
	funcList := "functions under this requirement"
	if len(funcs) > 0 {
		funcList = strings.Join(funcs, ", ")
	}

	var input string
	if v, ok := insideValue(bounds); ok {
		input = fmt.Sprintf("representative in-range value: %s", v)
	} else {
		input = "representative valid input for " + funcList
	}

	procedure := strings.Join([]string{
		"1. Initialize the test environment with default configuration.",
		"2. Load the module(s) containing: " + funcList + ".",
		"3. Provide the input data listed below.",
		"4. Execute the primary function(s) with normal-range inputs.",
		"5. Capture the return value(s) and compare against expected_output.",
	}, "\n")

	return ir.TestCase{
		ID:          ir.TestCaseID(h.ID, "NR", 1),
		ParentHLR:   h.ID,
		TestType:    ir.TestIntegration,
		Description: fmt.Sprintf("Normal range test for %s: verify %s", h.ID, truncate(h.Text, 100)),
		Procedure:   procedure,
		InputData:   input,
		ExpectedOutput: fmt.Sprintf(
			"Functions (%s) complete without error; outputs satisfy: %s.", funcList, criteria),
		PassCriteria: criteria,
		PassFail:     ir.ResultNotRun,
	}
}

// robustnessCase probes one boundary with the boundary value itself and a
// value just outside it.
func robustnessCase(h ir.HighLevelRequirement, funcs []string, b boundary, criteria string, ordinal int, handlers []string) ir.TestCase {
	funcList := "functions under this requirement"
	if len(funcs) > 0 {
		funcList = strings.Join(funcs, ", ")
	}
	outside := outsideValue(b)

	steps := []string{
		"1. Initialize the test environment with default configuration.",
		"2. Load the module(s) containing: " + funcList + ".",
		fmt.Sprintf("3. Invoke with the exact boundary value %s.", b.lit),
		fmt.Sprintf("4. Invoke with the out-of-range value %s, violating the constraint %s %s.", outside, b.op, b.lit),
		"5. Verify robust error responses: no crashes, no unhandled failures.",
	}
	for i, handler := range handlers {
		if i >= 3 {
			break
		}
		steps = append(steps, fmt.Sprintf("%d. Force condition: %s", len(steps)+1, truncate(handler, 80)))
	}

	testType := ir.TestRegression
	if h.Category == ir.CategorySafety {
		testType = ir.TestSafety
	}

	return ir.TestCase{
		ID:        ir.TestCaseID(h.ID, "ROB", ordinal),
		ParentHLR: h.ID,
		TestType:  testType,
		Description: fmt.Sprintf(
			"Robustness test for %s: probe boundary %s %s.", h.ID, b.op, b.lit),
		Procedure: strings.Join(steps, "\n"),
		InputData: fmt.Sprintf("boundary value: %s\nout-of-range value: %s", b.lit, outside),
		ExpectedOutput: fmt.Sprintf(
			"Boundary input %s is accepted or rejected per the constraint; input %s is rejected without a crash.",
			b.lit, outside),
		PassCriteria: criteria,
		PassFail:     ir.ResultNotRun,
	}
}

// funcNames lifts distinct function names from LLR entry-point texts.
func funcNames(llrs []ir.LowLevelRequirement) []string {
	seen := map[string]bool{}
	var funcs []string
	for _, l := range llrs {
		if m := funcRef.FindStringSubmatch(l.Text); m != nil && !seen[m[1]] {
			seen[m[1]] = true
			funcs = append(funcs, m[1])
		}
	}
	sort.Strings(funcs)
	return funcs
}

// boundaries lifts distinct comparison literals from branch and validation
// LLRs, ordered by value then literal.
func boundaries(llrs []ir.LowLevelRequirement) []boundary {
	seen := map[string]bool{}
	var bounds []boundary
	for _, l := range llrs {
		if l.LogicType != ir.LogicBranch && l.LogicType != ir.LogicValidation {
			continue
		}
		for _, m := range boundRef.FindAllStringSubmatch(l.Text, -1) {
			if seen[m[2]] {
				continue
			}
			v, err := strconv.ParseFloat(m[2], 64)
			if err != nil {
				continue
			}
			seen[m[2]] = true
			bounds = append(bounds, boundary{op: m[1], lit: m[2], val: v})
		}
	}
	sort.Slice(bounds, func(i, j int) bool {
		if bounds[i].val != bounds[j].val {
			return bounds[i].val < bounds[j].val
		}
		return bounds[i].lit < bounds[j].lit
	})
	return bounds
}

// errorHandlers collects error-handler LLR texts.
func errorHandlers(llrs []ir.LowLevelRequirement) []string {
	var handlers []string
	for _, l := range llrs {
		if l.LogicType == ir.LogicErrorHandler {
			handlers = append(handlers, l.Text)
		}
	}
	return handlers
}

// passCriteria copies the tolerance clause out of the HLR text, falling
// back to the qualitative criterion when the HLR carries none.
func passCriteria(hlrText string) string {
	if m := tolClause.FindString(hlrText); m != "" {
		return strings.TrimRight(strings.TrimSpace(m), ".,")
	}
	return fallbackCriteria
}

// insideValue picks a representative value strictly inside every bound.
// Two or more distinct literals delimit a range; the midpoint of the
// extremes sits inside it whether the comparisons guard the valid range
// or the violation. A single literal is read as a constraint: its
// operator tells which side is in range.
func insideValue(bounds []boundary) (string, bool) {
	switch len(bounds) {
	case 0:
		return "", false
	case 1:
		b := bounds[0]
		switch b.op {
		case "<", "<=":
			return formatLike(b.lit, b.val-1), true
		case ">", ">=":
			return formatLike(b.lit, b.val+1), true
		default:
			return b.lit, true
		}
	default:
		// bounds are sorted by value; the extremes bracket the range.
		lo, hi := bounds[0], bounds[len(bounds)-1]
		return formatLike(hi.lit, (lo.val+hi.val)/2), true
	}
}

// outsideValue is one step past the boundary on the violating side.
func outsideValue(b boundary) string {
	switch b.op {
	case "<", "<=":
		return formatLike(b.lit, b.val+1)
	case ">", ">=":
		return formatLike(b.lit, b.val-1)
	default:
		return formatLike(b.lit, b.val+1)
	}
}

// formatLike renders v with the same decimal width as the source literal,
// so a 150.0 boundary yields 151.0 rather than 151.
func formatLike(lit string, v float64) string {
	decimals := -1
	if idx := strings.Index(lit, "."); idx >= 0 {
		decimals = len(lit) - idx - 1
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
