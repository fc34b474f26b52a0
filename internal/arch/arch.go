// Package arch infers architecture decisions from the scanned inventory:
// component boundaries from directory structure, data-flow edges from the
// import graph, and an interface-layer decision when handler-style units
// are present. The extraction is heuristic; review prunes false edges.
package arch

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
)

// Extractor derives architecture decisions for a scanned tree rooted at
// root. The root must match the one the scanner ran against, since import
// resolution re-reads the source files.
type Extractor struct {
	root string
	log  *zap.Logger
}

// New returns an Extractor over the given source root.
func New(root string, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{root: root, log: log}
}

// Result summarizes one extraction run.
type Result struct {
	Components int
	Edges      int
	Decisions  int
}

// component is one directory boundary with its inventory slice.
type component struct {
	name      string
	files     []string
	unitCount int
	parentHLR string
}

// edge is one inter-component dependency with its import reference count.
type edge struct {
	src, dst string
	count    int
}

// Run builds the component map and import graph and upserts one
// ArchitectureDecision per component, per edge, and per detected
// interface layer. Decision ordinals are assigned in a fixed order so
// re-running on an unchanged inventory rewrites the same rows.
func (e *Extractor) Run(ctx context.Context, tx *store.Tx) (*Result, error) {
	units, err := tx.ListSourceUnits(ctx)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("source inventory is empty")
	}

	comps := buildComponents(units)
	edges := e.dataFlow(comps)

	res := &Result{Components: len(comps), Edges: len(edges)}
	idx := 1

	for _, c := range comps {
		role := classifyRole(c.name)
		d := ir.ArchitectureDecision{
			ID: ir.ArchID(idx),
			Description: fmt.Sprintf(
				"Component '%s' (%s): contains %d files with %d functions. Architectural role: %s.",
				c.name, role, len(c.files), c.unitCount, role),
			Rationale: fmt.Sprintf(
				"Partitioning decision: isolates %s concerns within the '%s' directory boundary.",
				strings.ToLower(role), c.name),
			ParentHLR: c.parentHLR,
			Category:  ir.ArchPartitioning,
		}
		if err := tx.UpsertArchDecision(ctx, d); err != nil {
			return nil, err
		}
		idx++
	}

	for _, ed := range edges {
		d := ir.ArchitectureDecision{
			ID: ir.ArchID(idx),
			Description: fmt.Sprintf(
				"Data flow: '%s' depends on '%s' (%d import reference(s)).",
				ed.src, ed.dst, ed.count),
			Rationale: fmt.Sprintf(
				"Component coupling: '%s' consumes services or types from '%s'. The dependency must hold for correct operation.",
				ed.src, ed.dst),
			Category: ir.ArchDataFlow,
		}
		if err := tx.UpsertArchDecision(ctx, d); err != nil {
			return nil, err
		}
		idx++
	}

	if d, ok := interfaceDecision(units, idx); ok {
		if err := tx.UpsertArchDecision(ctx, d); err != nil {
			return nil, err
		}
		idx++
	}

	res.Decisions = idx - 1
	e.log.Info("architecture extracted",
		zap.Int("components", res.Components),
		zap.Int("edges", res.Edges),
		zap.Int("decisions", res.Decisions))
	return res, nil
}

// buildComponents groups inventory units by directory, capped at two path
// levels. Root-level files fall into the "root" component. The first
// clustered parent HLR found among a component's units attributes the
// partitioning decision to that capability.
func buildComponents(units []ir.SourceUnit) []*component {
	byName := map[string]*component{}
	seenFile := map[string]bool{}

	for _, u := range units {
		name := componentName(u.Path)
		c, ok := byName[name]
		if !ok {
			c = &component{name: name}
			byName[name] = c
		}
		if !seenFile[u.Path] {
			seenFile[u.Path] = true
			c.files = append(c.files, u.Path)
		}
		c.unitCount++
		if c.parentHLR == "" && u.ParentHLR != "" && u.ParentHLR != ir.UnclusteredHLR {
			c.parentHLR = u.ParentHLR
		}
	}

	var comps []*component
	for _, c := range byName {
		sort.Strings(c.files)
		comps = append(comps, c)
	}
	sort.Slice(comps, func(i, j int) bool { return comps[i].name < comps[j].name })
	return comps
}

// componentName maps a file path to its component: the first two directory
// segments, or "root" for top-level files.
func componentName(p string) string {
	dir := path.Dir(strings.ReplaceAll(p, "\\", "/"))
	if dir == "." || dir == "/" {
		return "root"
	}
	parts := strings.Split(dir, "/")
	if len(parts) > 2 {
		parts = parts[:2]
	}
	return strings.Join(parts, "/")
}

// classifyRole names a component's architectural role from its path.
func classifyRole(name string) string {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "controller", "api", "route"):
		return "API Layer"
	case containsAny(lower, "service", "lib", "core", "util"):
		return "Service / Shared Library"
	case containsAny(lower, "frontend", "ui", "component", "view", "page"):
		return "UI / Frontend"
	case containsAny(lower, "backend", "server"):
		return "Backend"
	case containsAny(lower, "test", "spec", "fixture"):
		return "Testing"
	case containsAny(lower, "config", "setting"):
		return "Configuration"
	default:
		return "Module"
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// dataFlow counts import references between components. Edges come back
// ordered by descending count, then by source and target name.
func (e *Extractor) dataFlow(comps []*component) []edge {
	counts := map[[2]string]int{}

	for _, c := range comps {
		for _, fp := range c.files {
			imports, err := e.fileImports(fp)
			if err != nil {
				e.log.Warn("skipping unreadable file during import scan",
					zap.String("path", fp), zap.Error(err))
				continue
			}
			for _, imp := range imports {
				norm := strings.TrimLeft(strings.ReplaceAll(imp, "\\", "/"), "./")
				for _, other := range comps {
					if other.name == c.name {
						continue
					}
					base := other.name[strings.LastIndex(other.name, "/")+1:]
					if strings.HasPrefix(norm, base) {
						counts[[2]string{c.name, other.name}]++
						break
					}
				}
			}
		}
	}

	var edges []edge
	for k, n := range counts {
		edges = append(edges, edge{src: k[0], dst: k[1], count: n})
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].count != edges[j].count {
			return edges[i].count > edges[j].count
		}
		if edges[i].src != edges[j].src {
			return edges[i].src < edges[j].src
		}
		return edges[i].dst < edges[j].dst
	})
	return edges
}

// interfacePatterns mark a unit as part of an external-facing layer.
var interfacePatterns = []string{"handler", "controller", "route", "endpoint", "api"}

// interfaceDecision emits one decision when handler-style units exist.
func interfaceDecision(units []ir.SourceUnit, ordinal int) (ir.ArchitectureDecision, bool) {
	dirs := map[string]bool{}
	files := map[string]bool{}
	for _, u := range units {
		lower := strings.ToLower(u.UnitName)
		if containsAny(lower, interfacePatterns...) {
			files[u.Path] = true
			dirs[path.Dir(u.Path)] = true
		}
	}
	if len(files) == 0 {
		return ir.ArchitectureDecision{}, false
	}

	var dirList []string
	for d := range dirs {
		dirList = append(dirList, d)
	}
	sort.Strings(dirList)

	return ir.ArchitectureDecision{
		ID: ir.ArchID(ordinal),
		Description: fmt.Sprintf(
			"External interface layer: %d files define API handlers, controllers, or routes in directories: %s.",
			len(files), strings.Join(dirList, ", ")),
		Rationale: "Interface isolation: external-facing endpoints live in dedicated handler files and can be tested and modified independently.",
		Category:  ir.ArchInterface,
	}, true
}
