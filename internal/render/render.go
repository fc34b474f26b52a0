// Package render turns the ordered document sections into the final
// design document. Section content carries reference markers of the form
// {KIND.ID.FIELD}, {LIST_LLRS:hlr_id}, {LIST_HTCS:hlr_id}, and
// {TRACE_MATRIX}. Resolution is two-pass: markers are tokenized first,
// then each is substituted once against the store. Resolved values are
// never re-scanned, and a value that itself contains marker syntax is
// rejected, so expansion cannot recurse. A dangling reference aborts only
// its own section; the other sections still render.
package render

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// markerRe tokenizes every supported marker shape in one pass.
var markerRe = regexp.MustCompile(`\{(?:(\w+)\.(\w+)\.(\w+)|LIST_LLRS:(\w+)|LIST_HTCS:(\w+)|TRACE_MATRIX)\}`)

// Reader is the read-only store surface the renderer needs. Both Store
// and Tx satisfy it.
type Reader interface {
	ListSections(ctx context.Context) ([]ir.DocumentSection, error)
	Record(ctx context.Context, tableKey, id string) (map[string]string, error)
	LLRsByHLR(ctx context.Context, hlrID string) ([]ir.LowLevelRequirement, error)
	TestCasesByHLR(ctx context.Context, hlrID string) ([]ir.TestCase, error)
	TraceMatrix(ctx context.Context) ([]string, [][]string, error)
}

// SectionError records a section that failed to render, with the marker
// that caused it.
type SectionError struct {
	SectionID string
	Marker    string
	Err       error
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("section %s: marker %s: %v", e.SectionID, e.Marker, e.Err)
}

// Result is a finished render: the concatenated document and the errors
// of any sections left out of it.
type Result struct {
	Document string
	Rendered int
	Errors   []*SectionError
}

// Renderer resolves document sections against the store.
type Renderer struct {
	log *zap.Logger
}

// New returns a Renderer.
func New(log *zap.Logger) *Renderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Renderer{log: log}
}

// Render resolves every section in sort order. Failed sections are
// reported in Result.Errors and omitted from the document.
func (r *Renderer) Render(ctx context.Context, q Reader) (*Result, error) {
	sections, err := q.ListSections(ctx)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var parts []string
	for _, sec := range sections {
		rendered, serr := r.renderSection(ctx, q, sec)
		if serr != nil {
			res.Errors = append(res.Errors, serr)
			r.log.Warn("section failed to render",
				zap.String("section", sec.ID),
				zap.String("marker", serr.Marker),
				zap.Error(serr.Err))
			continue
		}
		parts = append(parts, rendered)
		res.Rendered++
	}

	res.Document = strings.Join(parts, "\n\n")
	if res.Document != "" {
		res.Document += "\n"
	}
	return res, nil
}

// renderSection substitutes every marker in one section's content. The
// first unresolvable marker fails the whole section.
func (r *Renderer) renderSection(ctx context.Context, q Reader, sec ir.DocumentSection) (string, *SectionError) {
	matches := markerRe.FindAllStringSubmatchIndex(sec.Content, -1)

	var b strings.Builder
	last := 0
	for _, m := range matches {
		b.WriteString(sec.Content[last:m[0]])
		marker := sec.Content[m[0]:m[1]]

		value, err := r.resolve(ctx, q, sec.Content, m)
		if err != nil {
			return "", &SectionError{SectionID: sec.ID, Marker: marker, Err: err}
		}
		if markerRe.MatchString(value) {
			return "", &SectionError{SectionID: sec.ID, Marker: marker,
				Err: errors.New("resolved value contains marker syntax")}
		}
		b.WriteString(value)
		last = m[1]
	}
	b.WriteString(sec.Content[last:])
	return b.String(), nil
}

// resolve dispatches one tokenized marker to its resolver. The submatch
// index layout follows markerRe's alternation: groups 1-3 are the field
// reference, group 4 the LLR list, group 5 the test case list.
func (r *Renderer) resolve(ctx context.Context, q Reader, content string, m []int) (string, error) {
	group := func(n int) (string, bool) {
		if m[2*n] < 0 {
			return "", false
		}
		return content[m[2*n]:m[2*n+1]], true
	}

	if kind, ok := group(1); ok {
		id, _ := group(2)
		field, _ := group(3)
		return r.fieldRef(ctx, q, kind, id, field)
	}
	if hlrID, ok := group(4); ok {
		return r.llrList(ctx, q, hlrID)
	}
	if hlrID, ok := group(5); ok {
		return r.testCaseList(ctx, q, hlrID)
	}
	return r.traceMatrix(ctx, q)
}

// fieldRef resolves {KIND.ID.FIELD} to one column value.
func (r *Renderer) fieldRef(ctx context.Context, q Reader, kind, id, field string) (string, error) {
	record, err := q.Record(ctx, kind, id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%s.%s not found", kind, id)
	}
	if err != nil {
		return "", err
	}
	value, ok := record[field]
	if !ok {
		return "", fmt.Errorf("%s.%s has no field %q", kind, id, field)
	}
	if value == "" {
		return "(empty)", nil
	}
	return value, nil
}

// llrList resolves {LIST_LLRS:hlr_id} to a bullet list. The HLR itself
// must exist; an empty list renders as an explicit placeholder.
func (r *Renderer) llrList(ctx context.Context, q Reader, hlrID string) (string, error) {
	if _, err := q.Record(ctx, "HLR", hlrID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("HLR %s not found", hlrID)
		}
		return "", err
	}
	llrs, err := q.LLRsByHLR(ctx, hlrID)
	if err != nil {
		return "", err
	}
	if len(llrs) == 0 {
		return fmt.Sprintf("*(No LLRs found for %s)*", hlrID), nil
	}

	lines := make([]string, len(llrs))
	for i, l := range llrs {
		logicType := string(l.LogicType)
		if logicType == "" {
			logicType = string(ir.LogicOther)
		}
		line := fmt.Sprintf("- **%s** [%s]: %s", l.ID, logicType, l.Text)
		if l.TraceToCode != "" {
			line += fmt.Sprintf(" → `%s`", l.TraceToCode)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}

// testCaseList resolves {LIST_HTCS:hlr_id} to a bullet list.
func (r *Renderer) testCaseList(ctx context.Context, q Reader, hlrID string) (string, error) {
	if _, err := q.Record(ctx, "HLR", hlrID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("HLR %s not found", hlrID)
		}
		return "", err
	}
	tcs, err := q.TestCasesByHLR(ctx, hlrID)
	if err != nil {
		return "", err
	}
	if len(tcs) == 0 {
		return fmt.Sprintf("*(No test cases found for %s)*", hlrID), nil
	}

	lines := make([]string, len(tcs))
	for i, tc := range tcs {
		line := fmt.Sprintf("- **%s** (%s): %s", tc.ID, tc.TestType, tc.Description)
		if tc.PassFail != "" && tc.PassFail != ir.ResultNotRun {
			line += fmt.Sprintf(" [%s]", tc.PassFail)
		}
		lines[i] = line
	}
	return strings.Join(lines, "\n"), nil
}

// traceMatrix resolves {TRACE_MATRIX} to a markdown table of the full
// traceability join.
func (r *Renderer) traceMatrix(ctx context.Context, q Reader) (string, error) {
	headers, rows, err := q.TraceMatrix(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "*(Trace matrix is empty)*", nil
	}

	var lines []string
	lines = append(lines, "| "+strings.Join(headers, " | ")+" |")
	separators := make([]string, len(headers))
	for i := range separators {
		separators[i] = "---"
	}
	lines = append(lines, "| "+strings.Join(separators, " | ")+" |")
	for _, row := range rows {
		lines = append(lines, "| "+strings.Join(row, " | ")+" |")
	}
	return strings.Join(lines, "\n"), nil
}
