// Package taxonomy loads the behavioral classification tables: verb
// categories, behavioral domains, and the parameterized requirement
// templates used by the clusterer. The tables live in an embedded CUE
// file so the taxonomy stays data, not control flow.
package taxonomy

import (
	_ "embed"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"cuelang.org/go/cue/cuecontext"
)

//go:embed taxonomy.cue
var taxonomyCUE string

// VerbRule maps name tokens to one behavioral verb category.
type VerbRule struct {
	Category string   `json:"category"`
	Tokens   []string `json:"tokens"`
}

// Template is one parameterized requirement sentence for a (domain,
// category) pair.
type Template struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Domain is one behavioral domain: path keywords that select it, the
// synthesized system requirement text, and its requirement templates.
type Domain struct {
	Name      string     `json:"name"`
	Keywords  []string   `json:"keywords"`
	Subject   string     `json:"subject"`
	SysText   string     `json:"sysText"`
	Templates []Template `json:"templates"`
	Fallback  string     `json:"fallback"`
}

// Taxonomy holds the compiled classification tables in declaration order.
type Taxonomy struct {
	Verbs   []VerbRule `json:"verbs"`
	Domains []Domain   `json:"domains"`
}

// DefaultDomain receives every unit whose path matches no domain keyword.
const DefaultDomain = "OTHER"

// DefaultCategory receives every unit name with no matching verb token.
const DefaultCategory = "process"

// Load compiles the embedded CUE tables.
func Load() (*Taxonomy, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(taxonomyCUE)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compile taxonomy: %w", err)
	}

	var t Taxonomy
	if err := v.Decode(&t); err != nil {
		return nil, fmt.Errorf("decode taxonomy: %w", err)
	}
	if len(t.Verbs) == 0 || len(t.Domains) == 0 {
		return nil, fmt.Errorf("taxonomy tables are empty")
	}
	return &t, nil
}

// ClassifyDomain maps a file path to its behavioral domain by keyword
// match, first declared domain wins. Paths matching nothing fall through
// to DefaultDomain.
func (t *Taxonomy) ClassifyDomain(path string) string {
	lower := strings.ToLower(path)
	for _, d := range t.Domains {
		for _, kw := range d.Keywords {
			if strings.Contains(lower, kw) {
				return d.Name
			}
		}
	}
	return DefaultDomain
}

// DomainByName returns the named domain, falling back to DefaultDomain.
func (t *Taxonomy) DomainByName(name string) Domain {
	for _, d := range t.Domains {
		if d.Name == name {
			return d
		}
	}
	for _, d := range t.Domains {
		if d.Name == DefaultDomain {
			return d
		}
	}
	return Domain{Name: DefaultDomain}
}

var (
	camelBoundary = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	acronymTail   = regexp.MustCompile(`([A-Z]+)([A-Z][a-z])`)
	separators    = regexp.MustCompile(`[_\-]+`)
)

// SplitName splits camelCase, PascalCase, and snake_case identifiers into
// lowercase word tokens, dropping single-character fragments.
func SplitName(name string) []string {
	s := camelBoundary.ReplaceAllString(name, "${1}_${2}")
	s = acronymTail.ReplaceAllString(s, "${1}_${2}")
	var words []string
	for _, w := range separators.Split(s, -1) {
		if len(w) > 1 {
			words = append(words, strings.ToLower(w))
		}
	}
	return words
}

// CategoryForWord matches one word token against the verb rules. The
// longest matching token wins; equal lengths resolve by declaration
// order. Returns false when no token matches.
func (t *Taxonomy) CategoryForWord(word string) (string, bool) {
	best := ""
	bestLen := 0
	for _, rule := range t.Verbs {
		for _, tok := range rule.Tokens {
			if len(tok) > bestLen && strings.Contains(word, tok) {
				best = rule.Category
				bestLen = len(tok)
			}
		}
	}
	return best, best != ""
}

// BehaviorCount is one verb category with the number of unit names that
// exhibited it.
type BehaviorCount struct {
	Category string
	Count    int
}

// ClassifyBehaviors maps unit names to their dominant verb categories.
// Each name contributes at most once per category; names with no
// matching token count toward DefaultCategory. The result is sorted by
// count descending, ties broken by verb declaration order.
func (t *Taxonomy) ClassifyBehaviors(names []string) []BehaviorCount {
	counts := make(map[string]int)
	for _, name := range names {
		found := make(map[string]bool)
		for _, word := range SplitName(name) {
			if cat, ok := t.CategoryForWord(word); ok {
				found[cat] = true
			}
		}
		if len(found) == 0 {
			counts[DefaultCategory]++
			continue
		}
		for cat := range found {
			counts[cat]++
		}
	}

	order := make(map[string]int, len(t.Verbs))
	for i, rule := range t.Verbs {
		order[rule.Category] = i
	}

	var result []BehaviorCount
	for cat, n := range counts {
		result = append(result, BehaviorCount{Category: cat, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return order[result[i].Category] < order[result[j].Category]
	})
	return result
}

// TemplateFor selects the requirement template for a domain given the
// ranked behaviors: the highest-ranked category with a declared template
// wins, otherwise the domain fallback. The second return is a
// supplementary clause from the next distinct matching template, empty
// when none exists.
func (d Domain) TemplateFor(behaviors []BehaviorCount) (primary, secondary string) {
	byCategory := make(map[string]string, len(d.Templates))
	for _, tpl := range d.Templates {
		byCategory[tpl.Category] = tpl.Text
	}

	for _, b := range behaviors {
		if text, ok := byCategory[b.Category]; ok {
			primary = text
			break
		}
	}
	if primary == "" {
		primary = d.Fallback
		if primary == "" {
			primary = fmt.Sprintf("manage %s operations", d.Subject)
		}
	}

	for _, b := range behaviors {
		if text, ok := byCategory[b.Category]; ok && text != primary {
			secondary = text
			break
		}
	}
	return primary, secondary
}
