package arch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

// writeTree lays out a small two-component source tree where the backend
// imports from core.
func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/backend/api.js": "import { clamp } from '../core/math';\nexport function apiHandler(req) { return clamp(req.v); }\n",
		"src/core/math.js":   "export function clamp(v) { return v; }\n",
	}
	for rel, content := range files {
		p := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return root
}

func seedInventory(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	units := []ir.SourceUnit{
		{
			ID: ir.UnitID("src/backend/api.js", "apiHandler", 2), Path: "src/backend/api.js",
			Language: ir.LangJavaScript, UnitName: "apiHandler",
			LineStart: 2, LineEnd: 2, LineCount: 1,
		},
		{
			ID: ir.UnitID("src/core/math.js", "clamp", 1), Path: "src/core/math.js",
			Language: ir.LangJavaScript, UnitName: "clamp",
			LineStart: 1, LineEnd: 1, LineCount: 1,
		},
	}
	require.NoError(t, s.RunPhase(ctx, store.PhaseScan, func(ctx context.Context, tx *store.Tx) error {
		for _, u := range units {
			if _, err := tx.UpsertSourceUnit(ctx, u); err != nil {
				return err
			}
		}
		return nil
	}))
	require.NoError(t, s.RunPhase(ctx, store.PhaseDerive, func(ctx context.Context, tx *store.Tx) error {
		return nil
	}))
	require.NoError(t, s.RunPhase(ctx, store.PhaseCluster, func(ctx context.Context, tx *store.Tx) error {
		if err := tx.UpsertSystemRequirement(ctx, ir.SystemRequirement{
			ID: "SYS_CORE_001", Text: "Core services.", Source: ir.SourceSynthesized,
		}); err != nil {
			return err
		}
		if err := tx.UpsertHLR(ctx, ir.HighLevelRequirement{
			ID: "HLR_CORE_COMPUTE", Text: "The software shall compute.",
			Source: ir.SourceSynthesized, ParentSys: "SYS_CORE_001",
			Category: ir.CategoryFunctional,
		}); err != nil {
			return err
		}
		return tx.SetUnitParentHLR(ctx, units[1].ID, "HLR_CORE_COMPUTE")
	}))
	return s
}

func TestRun_EmitsPartitionFlowAndInterfaceDecisions(t *testing.T) {
	root := writeTree(t)
	s := seedInventory(t)
	ctx := context.Background()

	var res *Result
	require.NoError(t, s.RunPhase(ctx, store.PhaseArch, func(ctx context.Context, tx *store.Tx) error {
		var err error
		res, err = New(root, nil).Run(ctx, tx)
		return err
	}))

	assert.Equal(t, 2, res.Components)
	assert.Equal(t, 1, res.Edges)
	// Two partitioning decisions, one data-flow edge, one interface layer.
	assert.Equal(t, 4, res.Decisions)

	decisions, err := s.ListArchDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, decisions, 4)

	byCat := map[ir.ArchCategory][]ir.ArchitectureDecision{}
	for _, d := range decisions {
		byCat[d.Category] = append(byCat[d.Category], d)
	}
	require.Len(t, byCat[ir.ArchPartitioning], 2)
	require.Len(t, byCat[ir.ArchDataFlow], 1)
	require.Len(t, byCat[ir.ArchInterface], 1)

	flow := byCat[ir.ArchDataFlow][0]
	assert.Contains(t, flow.Description, "'src/backend' depends on 'src/core'")
	assert.Empty(t, flow.ParentHLR)

	// The core component's partitioning decision is attributed to its HLR.
	var coreDecision *ir.ArchitectureDecision
	for i, d := range byCat[ir.ArchPartitioning] {
		if d.ParentHLR == "HLR_CORE_COMPUTE" {
			coreDecision = &byCat[ir.ArchPartitioning][i]
		}
	}
	require.NotNil(t, coreDecision)
	assert.Contains(t, coreDecision.Description, "'src/core'")
	assert.Contains(t, coreDecision.Description, "Service / Shared Library")

	iface := byCat[ir.ArchInterface][0]
	assert.Contains(t, iface.Description, "src/backend")
}

func TestRun_IdempotentOrdinals(t *testing.T) {
	root := writeTree(t)
	s := seedInventory(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, s.RunPhase(ctx, store.PhaseArch, func(ctx context.Context, tx *store.Tx) error {
			_, err := New(root, nil).Run(ctx, tx)
			return err
		}))
	}

	decisions, err := s.ListArchDecisions(ctx)
	require.NoError(t, err)
	assert.Len(t, decisions, 4, "re-running must rewrite the same ordinals, not append")
}

func TestRun_EmptyInventory(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	require.NoError(t, s.RunPhase(ctx, store.PhaseScan, func(ctx context.Context, tx *store.Tx) error { return nil }))
	require.NoError(t, s.RunPhase(ctx, store.PhaseDerive, func(ctx context.Context, tx *store.Tx) error { return nil }))
	require.NoError(t, s.RunPhase(ctx, store.PhaseCluster, func(ctx context.Context, tx *store.Tx) error { return nil }))

	err = s.RunPhase(ctx, store.PhaseArch, func(ctx context.Context, tx *store.Tx) error {
		_, err := New(t.TempDir(), nil).Run(ctx, tx)
		return err
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source inventory is empty")
}

func TestComponentName(t *testing.T) {
	cases := map[string]string{
		"src/backend/api.js":      "src/backend",
		"src/backend/deep/x.js":   "src/backend",
		"nav/geo.go":              "nav",
		"main.go":                 "root",
		"src\\backend\\win.js":    "src/backend",
	}
	for in, want := range cases {
		assert.Equal(t, want, componentName(in), "componentName(%q)", in)
	}
}

func TestClassifyRole(t *testing.T) {
	assert.Equal(t, "API Layer", classifyRole("src/api"))
	assert.Equal(t, "UI / Frontend", classifyRole("src/frontend"))
	assert.Equal(t, "Module", classifyRole("nav"))
}

func TestFileImports_FiltersExternal(t *testing.T) {
	root := t.TempDir()
	content := "import React from 'react';\nimport { a } from './local';\nconst b = require('../core/b');\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "m.js"), []byte(content), 0o644))

	imports, err := New(root, nil).fileImports("m.js")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"./local", "../core/b"}, imports)
}
