package validate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedComplete(t *testing.T, s *store.Store) {
	t.Helper()
	ctx := context.Background()

	require.NoError(t, s.UpsertSystemRequirement(ctx, ir.SystemRequirement{
		ID: "SYS_CORE_001", Text: "Core processing.", Source: ir.SourceSynthesized,
	}))
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_CORE_VALIDATE", Text: "The software shall validate inputs, within the range 0–1000 units.",
		Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
		IsDerived: true, DerivationRationale: "Synthesized from behavioral clustering.",
		Category: ir.CategoryFunctional,
	}))
	for i, text := range []string{
		"If value < 0, execute conditional block.",
		"If value > 1000, execute conditional block.",
	} {
		_, err := s.UpsertLLR(ctx, ir.LowLevelRequirement{
			ID: ir.LLRID("nav/geo.go", "validateInput", i+1), Text: text,
			ParentHLR: "HLR_CORE_VALIDATE", Source: ir.SourceDerived,
			LogicType: ir.LogicBranch, TraceToCode: "nav/geo.go:5",
		})
		require.NoError(t, err)
	}
	require.NoError(t, s.UpsertTestCase(ctx, ir.TestCase{
		ID: ir.TestCaseID("HLR_CORE_VALIDATE", "NR", 1), ParentHLR: "HLR_CORE_VALIDATE",
		TestType: ir.TestIntegration, Description: "Normal range.",
		Procedure: "1. Run.", InputData: "500", ExpectedOutput: "ok",
		PassCriteria: "within the range 0–1000 units",
	}))
}

func checkByName(t *testing.T, r *Report, name string) Check {
	t.Helper()
	for _, c := range r.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("no check named %q in report", name)
	return Check{}
}

func TestRun_AllChecksPassOnCompleteStore(t *testing.T) {
	s := openStore(t)
	seedComplete(t, s)

	report, err := New(nil).Run(context.Background(), s)
	require.NoError(t, err)

	require.Len(t, report.Checks, 5)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "check %s failed: %v", c.Name, c.Offending)
		assert.Empty(t, c.Offending)
	}
	assert.True(t, report.Passed())
}

func TestRun_ReportsMissingParent(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_ORPHAN", Text: "The software shall do work.",
		Source: ir.SourceSynthesized, Category: ir.CategoryFunctional,
	}))

	report, err := New(nil).Run(ctx, s)
	require.NoError(t, err)

	c := checkByName(t, report, "parent_linkage")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Offending, "HLR_ORPHAN")
	assert.False(t, report.Passed())
}

func TestRun_ReportsUnderDecomposedAndUntested(t *testing.T) {
	s := openStore(t)
	seedComplete(t, s)
	ctx := context.Background()

	// One extra HLR with a single LLR and no test case.
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_CORE_RENDER", Text: "The software shall render output.",
		Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
		Category: ir.CategoryFunctional,
	}))
	_, err := s.UpsertLLR(ctx, ir.LowLevelRequirement{
		ID: ir.LLRID("ui/draw.go", "render", 1), Text: "Iterate: tiles.",
		ParentHLR: "HLR_CORE_RENDER", Source: ir.SourceDerived,
		LogicType: ir.LogicLoop, TraceToCode: "ui/draw.go:8",
	})
	require.NoError(t, err)

	report, err := New(nil).Run(ctx, s)
	require.NoError(t, err)

	decomp := checkByName(t, report, "decomposition")
	assert.False(t, decomp.Passed)
	assert.Equal(t, []string{"HLR_CORE_RENDER"}, decomp.Offending)

	coverage := checkByName(t, report, "test_coverage")
	assert.False(t, coverage.Passed)
	assert.Equal(t, []string{"HLR_CORE_RENDER"}, coverage.Offending)
}

func TestRun_ReportsFileTokensInText(t *testing.T) {
	s := openStore(t)
	seedComplete(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_CORE_DIRTY", Text: "The software shall process nav/geo.go records.",
		Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
		Category: ir.CategoryFunctional,
	}))

	report, err := New(nil).Run(ctx, s)
	require.NoError(t, err)

	c := checkByName(t, report, "text_hygiene")
	assert.False(t, c.Passed)
	assert.Equal(t, []string{"HLR_CORE_DIRTY"}, c.Offending)
}

func TestRun_ReportsMissingRationale(t *testing.T) {
	s := openStore(t)
	seedComplete(t, s)
	ctx := context.Background()

	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_CORE_BARE", Text: "The software shall transform data.",
		Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
		IsDerived: true, Category: ir.CategoryFunctional,
	}))

	report, err := New(nil).Run(ctx, s)
	require.NoError(t, err)

	c := checkByName(t, report, "derivation_rationale")
	assert.False(t, c.Passed)
	assert.Contains(t, c.Offending, "HLR_CORE_BARE")
}

func TestReport_PassedIsConjunction(t *testing.T) {
	r := &Report{Checks: []Check{
		{Name: "a", Passed: true},
		{Name: "b", Passed: false},
	}}
	assert.False(t, r.Passed())

	r.Checks[1].Passed = true
	assert.True(t, r.Passed())
}
