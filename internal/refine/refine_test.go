package refine

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

func TestRefineHLRText_RangeInjection(t *testing.T) {
	llrs := []string{
		"If value < 0, execute conditional block.",
		"If value > 1000, execute conditional block.",
	}
	got := RefineHLRText("The software shall validate operational parameters against configured constraints.", llrs)
	assert.Equal(t,
		"The software shall validate operational parameters against configured constraints, within the range 0–1000 units.",
		got)

	// Re-refining the refined text is a no-op.
	assert.Equal(t, got, RefineHLRText(got, llrs))
}

func TestRefineHLRText_SingleBoundKeepsLiteral(t *testing.T) {
	llrs := []string{"If distance < 150.0, execute conditional block."}
	got := RefineHLRText("The software shall compute clearance margins.", llrs)
	assert.Contains(t, got, "within 150.0 units")
}

func TestRefineHLRText_UnitTaggedValuesWin(t *testing.T) {
	llrs := []string{
		"Poll the feed every 500 ms.",
		"Retry after 200 ms.",
		"If count > 3, execute conditional block.",
	}
	got := RefineHLRText("The software shall receive and buffer incoming sensor data feeds.", llrs)
	assert.Contains(t, got, "within the range 200–500 ms")
	assert.NotContains(t, got, "3 units")
}

func TestRefineHLRText_NormalizesSubjectAndTokens(t *testing.T) {
	got := RefineHLRText("The system shall process nav/geo.go data", nil)
	assert.Equal(t, "The software shall process data.", got)

	got = RefineHLRText("render map tiles", nil)
	assert.Equal(t, "The software shall render map tiles.", got)
}

func TestRefineHLRText_AlreadyQuantitativeUntouched(t *testing.T) {
	text := "The software shall compute positions within 5 meters."
	llrs := []string{"If x > 99, execute conditional block."}
	assert.Equal(t, text, RefineHLRText(text, llrs))
}

func TestRefineHLRText_DecimalLiteralSurvivesInjection(t *testing.T) {
	llrs := []string{"If pressure > 100, execute conditional block."}
	got := RefineHLRText("The software shall sample the barometric channel at 10.5 step intervals.", llrs)
	assert.Equal(t,
		"The software shall sample the barometric channel at 10.5 step intervals, within 100 units.",
		got)
	assert.Equal(t, got, RefineHLRText(got, llrs))
}

func TestRefineLLRText_StripsExtensions(t *testing.T) {
	assert.Equal(t,
		"Function 'main' entry point. Defined at app:10.",
		RefineLLRText("Function 'main' entry point. Defined at app.js:10."))
}

func TestApply_WritesChangesOnce(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.UpsertSystemRequirement(ctx, ir.SystemRequirement{
		ID: "SYS_OTHER_001", Text: "The system shall provide auxiliary software services.",
		Source: ir.SourceSynthesized,
	}))
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_OTHER_VALIDATE", Text: "The system shall validate inputs",
		Source: ir.SourceSynthesized, ParentSys: "SYS_OTHER_001",
		Category: ir.CategoryFunctional,
	}))
	_, err = s.UpsertLLR(ctx, ir.LowLevelRequirement{
		ID: "LLR_app_py__check__001", Text: "If value > 1000, execute conditional block.",
		ParentHLR: "HLR_OTHER_VALIDATE", Source: ir.SourceDerived,
		LogicType: ir.LogicBranch, TraceToCode: "app.py:4",
	})
	require.NoError(t, err)

	changes, err := New(nil).Apply(ctx, s)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, "HLR_OTHER_VALIDATE", changes[0].ID)
	assert.Contains(t, changes[0].New, "within 1000 units")

	// Second apply finds nothing to do.
	changes, err = New(nil).Apply(ctx, s)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestApply_ManualHLRIDRoutesToHLRTable(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	// Manually managed ids carry no table prefix.
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "REQ-7", Text: "The system shall validate operator inputs",
		Source: ir.SourceExternal, Category: ir.CategoryFunctional,
	}))

	changes, err := New(nil).Apply(ctx, s)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeHLR, changes[0].Kind)

	hlrs, err := s.ListHLRs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "The software shall validate operator inputs.", hlrs[0].Text)
}

func TestPlan_DoesNotWrite(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_X", Text: "do things", Source: ir.SourceSynthesized,
		Category: ir.CategoryFunctional,
	}))

	changes, err := New(nil).Plan(ctx, s)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	hlrs, err := s.ListHLRs(ctx)
	require.NoError(t, err)
	assert.Equal(t, "do things", hlrs[0].Text, "dry run must not mutate the store")
}
