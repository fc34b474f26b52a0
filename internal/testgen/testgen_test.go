package testgen

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

func seedRefined(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	require.NoError(t, s.RunPhase(ctx, store.PhaseScan, func(ctx context.Context, tx *store.Tx) error {
		_, err := tx.UpsertSourceUnit(ctx, ir.SourceUnit{
			ID: ir.UnitID("nav/geo.go", "computeDistance", 3), Path: "nav/geo.go",
			Language: ir.LangGo, UnitName: "computeDistance",
			LineStart: 3, LineEnd: 14, LineCount: 12,
		})
		return err
	}))
	require.NoError(t, s.RunPhase(ctx, store.PhaseDerive, func(ctx context.Context, tx *store.Tx) error { return nil }))
	require.NoError(t, s.RunPhase(ctx, store.PhaseCluster, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.UpsertSystemRequirement(ctx, ir.SystemRequirement{
			ID: "SYS_CORE_001", Text: "Core processing.", Source: ir.SourceSynthesized,
		}); err != nil {
			return err
		}
		if err := tx.UpsertHLR(ctx, ir.HighLevelRequirement{
			ID: "HLR_CORE_VALIDATE", Text: "The software shall validate inputs, within the range 0–1000 units.",
			Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
			IsDerived: true, DerivationRationale: "Synthesized from behavioral clustering.",
			Category: ir.CategoryFunctional,
		}); err != nil {
			return err
		}
		llrs := []ir.LowLevelRequirement{
			{
				ID:   ir.LLRID("nav/geo.go", "computeDistance", 1),
				Text: "Function 'computeDistance' entry point. Defined at nav/geo:3.",
				LogicType: ir.LogicInitialization,
			},
			{
				ID:   ir.LLRID("nav/geo.go", "computeDistance", 2),
				Text: "If value < 0, execute conditional block.", LogicType: ir.LogicBranch,
			},
			{
				ID:   ir.LLRID("nav/geo.go", "computeDistance", 3),
				Text: "If value > 1000, execute conditional block.", LogicType: ir.LogicBranch,
			},
			{
				ID:   ir.LLRID("nav/geo.go", "computeDistance", 4),
				Text: "Error check: if err != nil, handle error condition.", LogicType: ir.LogicErrorHandler,
			},
		}
		for i := range llrs {
			llrs[i].ParentHLR = "HLR_CORE_VALIDATE"
			llrs[i].Source = ir.SourceDerived
			llrs[i].TraceToCode = "nav/geo.go:3"
			if _, err := tx.UpsertLLR(ctx, llrs[i]); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, s.RunPhase(ctx, store.PhaseRefine, func(ctx context.Context, tx *store.Tx) error { return nil }))
	return s
}

func TestRun_GeneratesCasesAndScripts(t *testing.T) {
	s := seedRefined(t)
	ctx := context.Background()
	scriptsDir := filepath.Join(t.TempDir(), "tests")

	var res *Result
	require.NoError(t, s.RunPhase(ctx, store.PhaseTestgen, func(ctx context.Context, tx *store.Tx) error {
		var err error
		res, err = New(scriptsDir, nil).Run(ctx, tx)
		return err
	}))

	assert.Equal(t, 1, res.HLRs)
	// One normal-range case plus one robustness case per boundary literal.
	assert.Equal(t, 3, res.TestCases)
	assert.Equal(t, 1, res.Scripts)

	cases, err := s.TestCasesByHLR(ctx, "HLR_CORE_VALIDATE")
	require.NoError(t, err)
	require.Len(t, cases, 3)

	byID := map[string]ir.TestCase{}
	for _, tc := range cases {
		byID[tc.ID] = tc
	}

	nr := byID[ir.TestCaseID("HLR_CORE_VALIDATE", "NR", 1)]
	assert.Equal(t, ir.TestIntegration, nr.TestType)
	assert.Contains(t, nr.InputData, "500")
	assert.Equal(t, "within the range 0–1000 units", nr.PassCriteria)
	assert.Contains(t, nr.Procedure, "computeDistance")

	rob1 := byID[ir.TestCaseID("HLR_CORE_VALIDATE", "ROB", 1)]
	assert.Equal(t, ir.TestRegression, rob1.TestType)
	assert.Contains(t, rob1.InputData, "boundary value: 0")
	rob2 := byID[ir.TestCaseID("HLR_CORE_VALIDATE", "ROB", 2)]
	assert.Contains(t, rob2.InputData, "boundary value: 1000")
	assert.Contains(t, rob2.InputData, "out-of-range value: 999")

	script, err := os.ReadFile(filepath.Join(scriptsDir, ir.TestScriptName("HLR_CORE_VALIDATE")))
	require.NoError(t, err)
	content := string(script)
	assert.Contains(t, content, "package hlrtests")
	assert.Contains(t, content, "func TestHtcCoreValidateNr001(t *testing.T)")
	// The skeleton repeats the row's input and expected output verbatim.
	assert.Contains(t, content, nr.InputData)
	for _, tc := range cases {
		assert.Equal(t, "tests/"+ir.TestScriptName("HLR_CORE_VALIDATE"), tc.TestScriptRef)
	}
}

func TestRun_Idempotent(t *testing.T) {
	s := seedRefined(t)
	ctx := context.Background()
	scriptsDir := filepath.Join(t.TempDir(), "tests")

	for i := 0; i < 2; i++ {
		require.NoError(t, s.RunPhase(ctx, store.PhaseTestgen, func(ctx context.Context, tx *store.Tx) error {
			_, err := New(scriptsDir, nil).Run(ctx, tx)
			return err
		}))
	}

	cases, err := s.ListTestCases(ctx)
	require.NoError(t, err)
	assert.Len(t, cases, 3, "re-running must upsert the same case ids")
}

func TestDraftCases_SingleUpperBound(t *testing.T) {
	hlr := ir.HighLevelRequirement{
		ID: "HLR_TERRAIN_COMPUTE", Text: "The software shall compute clearance, within 150.0 units.",
		Category: ir.CategoryFunctional,
	}
	llrs := []ir.LowLevelRequirement{
		{Text: "Function 'clearance' entry point.", LogicType: ir.LogicInitialization},
		{Text: "If margin < 150.0, execute conditional block.", LogicType: ir.LogicBranch},
	}

	cases := draftCases(hlr, llrs)
	require.Len(t, cases, 2)

	assert.Contains(t, cases[0].InputData, "149.0", "normal value sits strictly below the bound")
	assert.Contains(t, cases[1].InputData, "boundary value: 150.0")
	assert.Contains(t, cases[1].InputData, "out-of-range value: 151.0")
	assert.Equal(t, "within 150.0 units", cases[1].PassCriteria)
}

func TestDraftCases_NoBoundsFallback(t *testing.T) {
	hlr := ir.HighLevelRequirement{
		ID: "HLR_UI_RENDER", Text: "The software shall render the operational display.",
		Category: ir.CategoryInterface,
	}
	cases := draftCases(hlr, nil)
	require.Len(t, cases, 1, "no boundaries means no robustness cases")
	assert.Equal(t, fallbackCriteria, cases[0].PassCriteria)
	assert.Contains(t, cases[0].ExpectedOutput, fallbackCriteria)
}

func TestDraftCases_SafetyRobustnessType(t *testing.T) {
	hlr := ir.HighLevelRequirement{
		ID: "HLR_SAFETY_MONITOR", Text: "The software shall monitor limits, within 5 units.",
		Category: ir.CategorySafety,
	}
	llrs := []ir.LowLevelRequirement{
		{Text: "If load > 5, execute conditional block.", LogicType: ir.LogicBranch},
	}
	cases := draftCases(hlr, llrs)
	require.Len(t, cases, 2)
	assert.Equal(t, ir.TestSafety, cases[1].TestType)
	assert.Contains(t, cases[1].InputData, "out-of-range value: 4")
	assert.Contains(t, cases[0].InputData, "6", "in-range value sits above a lower bound")
}

func TestExportedName(t *testing.T) {
	assert.Equal(t, "HtcCoreValidateNr001", exportedName("HTC_CORE_VALIDATE_NR_001"))
}

func TestScriptContent_EncodesRowData(t *testing.T) {
	hlr := ir.HighLevelRequirement{ID: "HLR_X", Text: "The software shall do the thing."}
	cases := []ir.TestCase{{
		ID: "HTC_X_NR_001", ParentHLR: "HLR_X", TestType: ir.TestIntegration,
		Description: "Normal range test.", InputData: "representative valid input",
		ExpectedOutput: "completes without error", PassCriteria: fallbackCriteria,
	}}
	content := scriptContent(hlr, cases)
	assert.True(t, strings.Contains(content, `input := "representative valid input"`))
	assert.True(t, strings.Contains(content, `expected := "completes without error"`))
	assert.Contains(t, content, "t.Skip(")
}
