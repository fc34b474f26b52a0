// Package deriver generates draft low-level requirements from the scanned
// source inventory: one LLR per control-flow decision (branch, loop, error
// handler) plus an entry-point LLR per unit. Go units are analyzed
// structurally with tree-sitter; other languages use line heuristics.
package deriver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// Deriver produces LLR drafts for uncovered source units under root.
type Deriver struct {
	root string
	log  *zap.Logger
}

// New returns a Deriver reading sources under root.
func New(root string, log *zap.Logger) *Deriver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Deriver{root: root, log: log}
}

// DeriveUnits generates LLRs for the given inventory units, grouped by
// file. Units whose source cannot be read are logged and skipped; the
// returned covered list holds the inventory ids that produced at least
// one LLR. Every returned LLR is parented to the unclustered placeholder.
func (d *Deriver) DeriveUnits(ctx context.Context, units []ir.SourceUnit) ([]ir.LowLevelRequirement, []string, error) {
	byPath := make(map[string][]ir.SourceUnit)
	var paths []string
	for _, u := range units {
		if _, seen := byPath[u.Path]; !seen {
			paths = append(paths, u.Path)
		}
		byPath[u.Path] = append(byPath[u.Path], u)
	}

	var llrs []ir.LowLevelRequirement
	var covered []string

	for _, path := range paths {
		content, err := os.ReadFile(filepath.Join(d.root, filepath.FromSlash(path)))
		if err != nil {
			d.log.Warn("cannot read source for derivation",
				zap.String("path", path), zap.Error(err))
			continue
		}

		for _, u := range byPath[path] {
			unitLLRs, err := d.deriveUnit(ctx, content, u)
			if err != nil {
				d.log.Warn("derivation failed for unit",
					zap.String("unit", u.ID), zap.Error(err))
				continue
			}
			if len(unitLLRs) == 0 {
				unitLLRs = []ir.LowLevelRequirement{fallbackLLR(u)}
			}
			d.log.Debug("derived llrs",
				zap.String("unit", u.ID),
				zap.Int("count", len(unitLLRs)))
			llrs = append(llrs, unitLLRs...)
			covered = append(covered, u.ID)
		}
	}
	return llrs, covered, nil
}

func (d *Deriver) deriveUnit(ctx context.Context, content []byte, u ir.SourceUnit) ([]ir.LowLevelRequirement, error) {
	if u.Language == ir.LangGo {
		return goUnitLLRs(ctx, content, u)
	}
	return heuristicLLRs(content, u), nil
}

// fallbackLLR guarantees at least one LLR per unit.
func fallbackLLR(u ir.SourceUnit) ir.LowLevelRequirement {
	return ir.LowLevelRequirement{
		ID: ir.LLRID(u.Path, u.UnitName, 1),
		Text: fmt.Sprintf("Function '%s' at %s:%d-%d. Requires manual LLR derivation.",
			u.UnitName, u.Path, u.LineStart, u.LineEnd),
		ParentHLR:   ir.UnclusteredHLR,
		Source:      ir.SourceDerived,
		LogicType:   ir.LogicOther,
		TraceToCode: fmt.Sprintf("%s:%d-%d", u.Path, u.LineStart, u.LineEnd),
	}
}

// builder accumulates LLRs for one unit with per-unit ordinals.
type builder struct {
	unit ir.SourceUnit
	llrs []ir.LowLevelRequirement
}

func (b *builder) add(logicType ir.LogicType, text string, line int) {
	ordinal := len(b.llrs) + 1
	b.llrs = append(b.llrs, ir.LowLevelRequirement{
		ID:          ir.LLRID(b.unit.Path, b.unit.UnitName, ordinal),
		Text:        text,
		ParentHLR:   ir.UnclusteredHLR,
		Source:      ir.SourceDerived,
		LogicType:   logicType,
		TraceToCode: fmt.Sprintf("%s:%d", b.unit.Path, line),
	})
}

func (b *builder) addEntry() {
	b.add(ir.LogicInitialization,
		fmt.Sprintf("Function '%s' entry point. Defined at %s:%d.",
			b.unit.UnitName, b.unit.Path, b.unit.LineStart),
		b.unit.LineStart)
}

// splitCondition splits a boolean expression on top-level || and &&
// operators so each clause of a compound guard gets its own LLR. Operators
// inside parentheses, brackets, or string literals do not split.
func splitCondition(cond string) []string {
	var clauses []string
	depth := 0
	var quote byte
	start := 0

	flush := func(end int) {
		clause := strings.TrimSpace(cond[start:end])
		if clause != "" {
			clauses = append(clauses, clause)
		}
	}

	for i := 0; i < len(cond); i++ {
		c := cond[i]
		if quote != 0 {
			if c == quote && (i == 0 || cond[i-1] != '\\') {
				quote = 0
			}
			continue
		}
		switch c {
		case '\'', '"', '`':
			quote = c
		case '(', '[', '{':
			depth++
		case ')', ']', '}':
			depth--
		case '|', '&':
			if depth == 0 && i+1 < len(cond) && cond[i+1] == c {
				flush(i)
				i++
				start = i + 1
			}
		}
	}
	flush(len(cond))

	if len(clauses) == 0 {
		return []string{strings.TrimSpace(cond)}
	}
	return clauses
}
