// Package refine normalizes requirement phrasing and back-fills missing
// quantitative tolerances. HLR text is rewritten to the "The software
// shall" form, stripped of file and path tokens, and extended with the
// tightest numeric bound found in its child LLRs. The rewrite is a
// fixpoint: refining already-refined text changes nothing.
package refine

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/reqtrace/reqtrace/internal/ir"
)

var (
	fileExts  = regexp.MustCompile(`(?i)\.(js|go|py|rs|ts|tsx|jsx|css|html|md|pb\.go|pb|proto)\b`)
	filePaths = regexp.MustCompile(`(?i)(\w+/)+\w+\.\w+`)

	genericSubject = regexp.MustCompile(`(?i)^(the system|it|the module|the component)\s+shall`)

	// Numeric literal with an optional unit, as it appears in LLR text.
	unitNumber = regexp.MustCompile(`(?i)(\d+\.?\d*)\s*(ms|seconds?|s|meters?|m|km|ft|feet|knots?|kts|kPa|Hz|%|bytes?|MB|GB)\b`)
	// Bare comparison against a literal, e.g. "value < 150.0".
	comparison = regexp.MustCompile(`(?:<=|>=|<|>|==)\s*(-?\d+\.?\d*)`)

	multiSpace = regexp.MustCompile(`\s{2,}`)
)

// quantKeywords mark an HLR as already quantitative.
var quantKeywords = []string{
	"accuracy", "tolerance", "latency", "within", "less than",
	"greater than", "maximum", "minimum", "ms", "seconds",
	"meters", "%", "knots", "feet", "km",
}

// Reader is the store surface the refiner needs; both Store and Tx
// satisfy it, so dry runs read outside a phase transaction.
type Reader interface {
	ListHLRs(ctx context.Context) ([]ir.HighLevelRequirement, error)
	LLRsByHLR(ctx context.Context, hlrID string) ([]ir.LowLevelRequirement, error)
	ListLLRs(ctx context.Context) ([]ir.LowLevelRequirement, error)
}

// Writer extends Reader with the text updates the apply mode commits.
type Writer interface {
	Reader
	UpdateHLRText(ctx context.Context, id, text string) error
	UpdateLLRText(ctx context.Context, id, text string) error
}

// ChangeKind names the table a rewrite targets. Manual record ids carry no
// reliable prefix, so the kind travels with the change instead of being
// inferred from the id.
type ChangeKind string

const (
	ChangeHLR ChangeKind = "HLR"
	ChangeLLR ChangeKind = "LLR"
)

// Change is one proposed text rewrite.
type Change struct {
	ID   string
	Kind ChangeKind
	Old  string
	New  string
}

// Refiner rewrites requirement text in the store.
type Refiner struct {
	log *zap.Logger
}

// New returns a Refiner.
func New(log *zap.Logger) *Refiner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Refiner{log: log}
}

// Plan computes every rewrite the refiner would make, without writing.
func (r *Refiner) Plan(ctx context.Context, q Reader) ([]Change, error) {
	var changes []Change

	hlrs, err := q.ListHLRs(ctx)
	if err != nil {
		return nil, err
	}
	for _, h := range hlrs {
		llrs, err := q.LLRsByHLR(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		texts := make([]string, len(llrs))
		for i, l := range llrs {
			texts[i] = l.Text
		}
		refined := RefineHLRText(h.Text, texts)
		if refined != h.Text {
			changes = append(changes, Change{ID: h.ID, Kind: ChangeHLR, Old: h.Text, New: refined})
		}
	}

	llrs, err := q.ListLLRs(ctx)
	if err != nil {
		return nil, err
	}
	for _, l := range llrs {
		refined := RefineLLRText(l.Text)
		if refined != l.Text {
			changes = append(changes, Change{ID: l.ID, Kind: ChangeLLR, Old: l.Text, New: refined})
		}
	}
	return changes, nil
}

// Apply computes and commits the rewrites. Returns the applied changes.
func (r *Refiner) Apply(ctx context.Context, w Writer) ([]Change, error) {
	changes, err := r.Plan(ctx, w)
	if err != nil {
		return nil, err
	}
	for _, ch := range changes {
		var err error
		switch ch.Kind {
		case ChangeHLR:
			err = w.UpdateHLRText(ctx, ch.ID, ch.New)
		case ChangeLLR:
			err = w.UpdateLLRText(ctx, ch.ID, ch.New)
		default:
			err = fmt.Errorf("change %s has unknown kind %q", ch.ID, ch.Kind)
		}
		if err != nil {
			return nil, err
		}
		r.log.Debug("refined requirement", zap.String("id", ch.ID))
	}
	r.log.Info("refinement applied", zap.Int("changes", len(changes)))
	return changes, nil
}

// RefineHLRText normalizes one HLR sentence and injects a tolerance
// inferred from the child LLR texts when the HLR has none.
func RefineHLRText(text string, llrTexts []string) string {
	refined := norm.NFC.String(text)
	refined = filePaths.ReplaceAllString(refined, "")
	refined = fileExts.ReplaceAllString(refined, "")

	if !strings.HasPrefix(strings.ToLower(refined), "the software shall") {
		refined = genericSubject.ReplaceAllString(refined, "The software shall")
		if !strings.HasPrefix(strings.ToLower(refined), "the software shall") {
			refined = strings.TrimSpace(refined)
			if refined != "" {
				refined = "The software shall " + strings.ToLower(refined[:1]) + refined[1:]
			}
		}
	}

	refined = strings.TrimSpace(multiSpace.ReplaceAllString(refined, " "))
	if refined != "" && !strings.HasSuffix(refined, ".") {
		refined += "."
	}

	if suffix := toleranceClause(refined, llrTexts); suffix != "" {
		refined = injectClause(refined, suffix)
	}
	return refined
}

// RefineLLRText strips file-extension tokens from LLR text.
func RefineLLRText(text string) string {
	return fileExts.ReplaceAllString(norm.NFC.String(text), "")
}

// HasFileToken reports whether text still carries a path-like or
// file-extension token. The validator uses the same patterns the refiner
// strips, so the two can never disagree.
func HasFileToken(text string) bool {
	return fileExts.MatchString(text) || filePaths.MatchString(text)
}

// toleranceClause derives the quantitative clause to inject, or empty
// when the HLR is already quantitative or the LLRs carry no bounds.
func toleranceClause(hlrText string, llrTexts []string) string {
	lower := strings.ToLower(hlrText)
	for _, kw := range quantKeywords {
		if strings.Contains(lower, kw) {
			return ""
		}
	}

	// Unit-tagged values take precedence over bare comparisons.
	byUnit := map[string][]bound{}
	for _, t := range llrTexts {
		for _, m := range unitNumber.FindAllStringSubmatch(t, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			u := strings.TrimSuffix(strings.ToLower(m[2]), "s")
			byUnit[u] = append(byUnit[u], bound{val: v, lit: m[1]})
		}
	}
	if len(byUnit) > 0 {
		var units []string
		for u := range byUnit {
			units = append(units, u)
		}
		sort.Slice(units, func(i, j int) bool {
			if len(byUnit[units[i]]) != len(byUnit[units[j]]) {
				return len(byUnit[units[i]]) > len(byUnit[units[j]])
			}
			return units[i] < units[j]
		})
		return boundClause(byUnit[units[0]], units[0])
	}

	var bounds []bound
	for _, t := range llrTexts {
		for _, m := range comparison.FindAllStringSubmatch(t, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			bounds = append(bounds, bound{val: v, lit: m[1]})
		}
	}
	if len(bounds) == 0 {
		return ""
	}
	return boundClause(bounds, "units")
}

// bound pairs a parsed literal with its source spelling so the injected
// clause repeats the code's own literal (150.0 stays 150.0).
type bound struct {
	val float64
	lit string
}

// boundClause renders a tolerance phrase from the collected literals:
// a single distinct value reads "within N unit", a spread reads
// "within the range MIN–MAX unit".
func boundClause(bounds []bound, unit string) string {
	mn, mx := bounds[0], bounds[0]
	for _, b := range bounds[1:] {
		if b.val < mn.val {
			mn = b
		}
		if b.val > mx.val {
			mx = b
		}
	}
	if mn.val == mx.val {
		return fmt.Sprintf("within %s %s", mn.lit, unit)
	}
	return fmt.Sprintf("within the range %s–%s %s", mn.lit, mx.lit, unit)
}

// injectClause appends the tolerance to the first sentence of the text.
// The insertion point is a dot-space boundary or the final terminator, so
// a decimal literal inside the sentence is never split.
func injectClause(text, clause string) string {
	idx := strings.Index(text, ". ")
	if idx < 0 {
		idx = strings.LastIndex(text, ".")
	}
	if idx < 0 {
		return text + ", " + clause + "."
	}
	return text[:idx] + ", " + clause + text[idx:]
}
