package render

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

func seedDocument(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.UpsertSystemRequirement(ctx, ir.SystemRequirement{
		ID: "SYS_CORE_001", Text: "The system shall provide core navigation processing.",
		Source: ir.SourceSynthesized,
	}))
	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_CORE_VALIDATE", Text: "The software shall validate inputs, within the range 0–1000 units.",
		Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001", AllocatedTo: "nav",
		IsDerived: true, DerivationRationale: "Synthesized from behavioral clustering of 2 source units in the CORE domain.",
		Category: ir.CategoryFunctional,
	}))

	llrs := []ir.LowLevelRequirement{
		{
			ID:   "LLR_nav_geo_go__computeDistance__001",
			Text: "Function 'computeDistance' entry point. Defined at nav/geo:3.",
			LogicType: ir.LogicInitialization, TraceToCode: "nav/geo.go:3",
		},
		{
			ID:   "LLR_nav_geo_go__computeDistance__002",
			Text: "If value < 0, execute conditional block.",
			LogicType: ir.LogicBranch, TraceToCode: "nav/geo.go:5",
		},
	}
	for i := range llrs {
		llrs[i].ParentHLR = "HLR_CORE_VALIDATE"
		llrs[i].Source = ir.SourceDerived
		_, err := s.UpsertLLR(ctx, llrs[i])
		require.NoError(t, err)
	}

	require.NoError(t, s.UpsertTestCase(ctx, ir.TestCase{
		ID: "HTC_CORE_VALIDATE_NR_001", ParentHLR: "HLR_CORE_VALIDATE",
		TestType:    ir.TestIntegration,
		Description: "Normal range test for HLR_CORE_VALIDATE: verify input validation.",
		Procedure:   "1. Execute with in-range input.", InputData: "representative in-range value: 500",
		ExpectedOutput: "completes without error", PassCriteria: "within the range 0–1000 units",
		TestScriptRef: "tests/hlr_core_validate_test.go", PassFail: ir.ResultPass,
	}))

	sections := []ir.DocumentSection{
		{
			ID: "SEC_OVERVIEW", SectionNumber: "1", Title: "Requirements", SortOrder: 1,
			Content: "# Software Design Document\n\n## 1. Requirements\n\n" +
				"System requirement: {SYS.SYS_CORE_001.text}\n\n" +
				"### HLR_CORE_VALIDATE\n\n" +
				"{HLR.HLR_CORE_VALIDATE.text}\n\n" +
				"Allocated to: {HLR.HLR_CORE_VALIDATE.allocated_to}\n\n" +
				"{LIST_LLRS:HLR_CORE_VALIDATE}\n\n" +
				"{LIST_HTCS:HLR_CORE_VALIDATE}",
		},
		{
			ID: "SEC_TRACE", SectionNumber: "2", Title: "Traceability", SortOrder: 2,
			Content: "## 2. Traceability\n\n{TRACE_MATRIX}",
		},
	}
	for _, sec := range sections {
		require.NoError(t, s.UpsertSection(ctx, sec))
	}
	return s
}

func TestRender_FullDocument(t *testing.T) {
	s := seedDocument(t)

	res, err := New(nil).Render(context.Background(), s)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, 2, res.Rendered)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "full_document", []byte(res.Document))
}

func TestRender_DanglingRefIsolatesSection(t *testing.T) {
	s := seedDocument(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSection(ctx, ir.DocumentSection{
		ID: "SEC_BROKEN", SectionNumber: "1a", Title: "Broken", SortOrder: 10,
		Content: "Refers to {HLR.HLR_MISSING.text} which does not exist.",
	}))

	res, err := New(nil).Render(ctx, s)
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "SEC_BROKEN", res.Errors[0].SectionID)
	assert.Equal(t, "{HLR.HLR_MISSING.text}", res.Errors[0].Marker)
	assert.Contains(t, res.Errors[0].Err.Error(), "not found")

	// The healthy sections still rendered.
	assert.Equal(t, 2, res.Rendered)
	assert.Contains(t, res.Document, "core navigation processing")
	assert.NotContains(t, res.Document, "HLR_MISSING")
}

func TestRender_RejectsMarkerSyntaxInResolvedValue(t *testing.T) {
	s := seedDocument(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSystemRequirement(ctx, ir.SystemRequirement{
		ID: "SYS_EVIL_001", Text: "Expands to {SYS.SYS_EVIL_001.text} again.",
		Source: ir.SourceExternal,
	}))
	require.NoError(t, s.UpsertSection(ctx, ir.DocumentSection{
		ID: "SEC_EVIL", SectionNumber: "9", Title: "Cyclic", SortOrder: 20,
		Content: "{SYS.SYS_EVIL_001.text}",
	}))

	res, err := New(nil).Render(ctx, s)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "SEC_EVIL", res.Errors[0].SectionID)
	assert.Contains(t, res.Errors[0].Err.Error(), "marker syntax")
}

func TestRender_UnknownFieldFailsSection(t *testing.T) {
	s := seedDocument(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSection(ctx, ir.DocumentSection{
		ID: "SEC_BADFIELD", SectionNumber: "9", Title: "Bad field", SortOrder: 30,
		Content: "{HLR.HLR_CORE_VALIDATE.no_such_column}",
	}))

	res, err := New(nil).Render(ctx, s)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Err.Error(), "no field")
}

func TestRender_EmptyListsUsePlaceholders(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.UpsertHLR(ctx, ir.HighLevelRequirement{
		ID: "HLR_BARE", Text: "The software shall do something.",
		Source: ir.SourceSynthesized, Category: ir.CategoryFunctional,
	}))
	require.NoError(t, s.UpsertSection(ctx, ir.DocumentSection{
		ID: "SEC_1", SectionNumber: "1", Title: "Lists", SortOrder: 1,
		Content: "{LIST_LLRS:HLR_BARE}\n{LIST_HTCS:HLR_BARE}",
	}))

	res, err := New(nil).Render(ctx, s)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Contains(t, res.Document, "*(No LLRs found for HLR_BARE)*")
	assert.Contains(t, res.Document, "*(No test cases found for HLR_BARE)*")
}

func TestRender_PlainSectionPassesThrough(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.UpsertSection(ctx, ir.DocumentSection{
		ID: "SEC_PLAIN", SectionNumber: "1", Title: "Plain", SortOrder: 1,
		Content: "No markers here, just {braces} that match nothing.",
	}))

	res, err := New(nil).Render(ctx, s)
	require.NoError(t, err)
	require.Empty(t, res.Errors)
	assert.Equal(t, "No markers here, just {braces} that match nothing.\n", res.Document)
}
