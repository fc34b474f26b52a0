// Package cluster groups scanned units into behavioral capability
// clusters. Units mapping to the same (domain, requirement template) pair
// merge into one high-level requirement; each domain gets a synthesized
// parent system requirement so no HLR is left without a parent.
package cluster

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
	"github.com/reqtrace/reqtrace/internal/store"
	"github.com/reqtrace/reqtrace/internal/taxonomy"
)

// Clusterer assigns units to capability clusters using the loaded
// taxonomy tables.
type Clusterer struct {
	tax *taxonomy.Taxonomy
	log *zap.Logger
}

// New returns a Clusterer over the given taxonomy.
func New(tax *taxonomy.Taxonomy, log *zap.Logger) *Clusterer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Clusterer{tax: tax, log: log}
}

// Result summarizes one clustering run.
type Result struct {
	Systems            int
	HLRs               int
	ReparentedLLRs     int
	PlaceholderRemoved bool
}

// capability is one (domain, template) cluster under construction.
type capability struct {
	hlrID    string
	domain   string
	category string
	template string
	units    []ir.SourceUnit
}

// Run clusters every inventoried unit, writes the synthesized system
// requirements and HLRs, and re-parents the draft LLRs. The unclustered
// placeholder is removed once it has no children left.
func (c *Clusterer) Run(ctx context.Context, tx *store.Tx) (*Result, error) {
	units, err := tx.ListSourceUnits(ctx)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("source inventory is empty")
	}

	llrs, err := tx.ListLLRs(ctx)
	if err != nil {
		return nil, err
	}
	profiles := profileByPrefix(llrs)

	caps := c.buildClusters(units)

	res := &Result{}

	// Parent system requirement per domain.
	domains := map[string]bool{}
	for _, cl := range caps {
		domains[cl.domain] = true
	}
	var domainList []string
	for d := range domains {
		domainList = append(domainList, d)
	}
	sort.Strings(domainList)

	for _, domain := range domainList {
		d := c.tax.DomainByName(domain)
		if err := tx.UpsertSystemRequirement(ctx, ir.SystemRequirement{
			ID:     ir.SysID(domain),
			Text:   d.SysText,
			Source: ir.SourceSynthesized,
		}); err != nil {
			return nil, err
		}
		res.Systems++
	}

	for _, cl := range caps {
		profile := map[ir.LogicType]int{}
		for _, u := range cl.units {
			for lt, n := range profiles[ir.LLRIDPrefix(u.Path, u.UnitName)] {
				profile[lt] += n
			}
		}

		hlr := ir.HighLevelRequirement{
			ID:          cl.hlrID,
			Text:        composeHLRText(cl.template, c.secondaryTemplate(cl), profile),
			Source:      ir.SourceSynthesized,
			ParentSys:   ir.SysID(cl.domain),
			AllocatedTo: allocatedTo(cl.units),
			IsDerived:   true,
			DerivationRationale: fmt.Sprintf(
				"Synthesized from behavioral clustering of %d source units in the %s domain.",
				len(cl.units), cl.domain),
			Category: categoryForDomain(cl.domain),
		}
		if err := tx.UpsertHLR(ctx, hlr); err != nil {
			return nil, err
		}
		res.HLRs++

		for _, u := range cl.units {
			moved, err := tx.ReparentUnclusteredLLRs(ctx, ir.LLRIDPrefix(u.Path, u.UnitName), cl.hlrID)
			if err != nil {
				return nil, err
			}
			res.ReparentedLLRs += moved
			if err := tx.SetUnitParentHLR(ctx, u.ID, cl.hlrID); err != nil {
				return nil, err
			}
		}

		c.log.Debug("clustered capability",
			zap.String("hlr", cl.hlrID),
			zap.String("domain", cl.domain),
			zap.Int("units", len(cl.units)))
	}

	removed, err := tx.DeleteHLRIfEmpty(ctx, ir.UnclusteredHLR)
	if err != nil {
		return nil, err
	}
	res.PlaceholderRemoved = removed

	c.log.Info("clustering complete",
		zap.Int("systems", res.Systems),
		zap.Int("hlrs", res.HLRs),
		zap.Int("reparented", res.ReparentedLLRs))
	return res, nil
}

// buildClusters assigns each unit a (domain, template) pair and merges
// units sharing the pair. Clusters come back ordered by HLR id.
func (c *Clusterer) buildClusters(units []ir.SourceUnit) []*capability {
	byID := map[string]*capability{}

	for _, u := range units {
		domain := c.tax.ClassifyDomain(u.Path)
		d := c.tax.DomainByName(domain)
		behaviors := c.tax.ClassifyBehaviors([]string{u.UnitName})
		template, _ := d.TemplateFor(behaviors)
		category := templateCategory(d, template)

		id := ir.HLRID(domain + "_" + category)
		cl, ok := byID[id]
		if !ok {
			cl = &capability{hlrID: id, domain: domain, category: category, template: template}
			byID[id] = cl
		}
		cl.units = append(cl.units, u)
	}

	var caps []*capability
	for _, cl := range byID {
		caps = append(caps, cl)
	}
	sort.Slice(caps, func(i, j int) bool { return caps[i].hlrID < caps[j].hlrID })
	return caps
}

// secondaryTemplate picks a distinct supplementary template from the
// cluster's aggregate behavior ranking.
func (c *Clusterer) secondaryTemplate(cl *capability) string {
	names := make([]string, len(cl.units))
	for i, u := range cl.units {
		names[i] = u.UnitName
	}
	d := c.tax.DomainByName(cl.domain)
	primary, secondary := d.TemplateFor(c.tax.ClassifyBehaviors(names))
	if primary != cl.template {
		// Aggregate ranking disagrees with the per-unit assignment; keep
		// the assignment and skip the supplement.
		return ""
	}
	return secondary
}

// templateCategory finds the verb category a template belongs to, or
// GENERAL for the domain fallback.
func templateCategory(d taxonomy.Domain, template string) string {
	for _, tpl := range d.Templates {
		if tpl.Text == template {
			return strings.ToUpper(tpl.Category)
		}
	}
	return "GENERAL"
}

// composeHLRText renders the final requirement sentence: the primary
// template, a structural qualifier from the LLR logic-type profile, and
// an optional supplementary clause.
func composeHLRText(primary, secondary string, profile map[ir.LogicType]int) string {
	total := 0
	for _, n := range profile {
		total += n
	}

	var qualifiers []string
	if total > 0 {
		pct := func(lt ir.LogicType) int { return profile[lt] * 100 / total }
		if pct(ir.LogicBranch) > 20 {
			qualifiers = append(qualifiers, "conditional logic paths")
		}
		if pct(ir.LogicErrorHandler) > 10 {
			qualifiers = append(qualifiers, "error detection and recovery")
		}
		if pct(ir.LogicValidation) > 10 {
			qualifiers = append(qualifiers, "input validation")
		}
		if profile[ir.LogicComputation] > 3 {
			qualifiers = append(qualifiers, "numerical computations")
		}
		if profile[ir.LogicLoop] > 3 {
			qualifiers = append(qualifiers, "iterative data processing")
		}
	}

	qualifier := ""
	if len(qualifiers) > 0 {
		if len(qualifiers) > 2 {
			qualifiers = qualifiers[:2]
		}
		qualifier = ", incorporating " + strings.Join(qualifiers, " and ")
	}

	text := fmt.Sprintf("The software shall %s%s.", primary, qualifier)
	if secondary != "" {
		text += fmt.Sprintf(" The software shall also %s.", secondary)
	}
	return text
}

// allocatedTo lists the distinct directories the cluster's units live in.
func allocatedTo(units []ir.SourceUnit) string {
	seen := map[string]bool{}
	var dirs []string
	for _, u := range units {
		dir := path.Dir(u.Path)
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return strings.Join(dirs, ", ")
}

// categoryForDomain maps behavioral domains to requirement categories.
func categoryForDomain(domain string) ir.HLRCategory {
	switch domain {
	case "SAFETY":
		return ir.CategorySafety
	case "UI":
		return ir.CategoryInterface
	default:
		return ir.CategoryFunctional
	}
}

// profileByPrefix groups LLR logic-type counts by their unit id prefix.
func profileByPrefix(llrs []ir.LowLevelRequirement) map[string]map[ir.LogicType]int {
	profiles := map[string]map[ir.LogicType]int{}
	for _, l := range llrs {
		idx := strings.LastIndex(l.ID, "__")
		if idx < 0 {
			continue
		}
		prefix := l.ID[:idx+2]
		if profiles[prefix] == nil {
			profiles[prefix] = map[ir.LogicType]int{}
		}
		profiles[prefix][l.LogicType]++
	}
	return profiles
}
