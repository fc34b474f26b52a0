package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx. Store
// and Tx both embed queries over it, so every accessor below is available
// inside and outside a phase transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q dbtx
}

// entityTables maps the external table names accepted by exports and the
// renderer to their real schema names. The schema is a compatibility
// surface; this map is the only place the mapping lives.
var entityTables = map[string]string{
	"SYS":  "system_requirements",
	"HLR":  "high_level_requirements",
	"LLR":  "low_level_requirements",
	"HTC":  "hlr_test_cases",
	"ARCH": "architecture_decisions",
	"SEC":  "document_sections",
	"INV":  "source_inventory",
}

// ResolveTable maps an external table key (SYS, HLR, LLR, HTC, ARCH, SEC,
// INV) to the underlying table name.
func ResolveTable(key string) (string, bool) {
	name, ok := entityTables[key]
	return name, ok
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func fromNull(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// ListSourceUnits returns the full source inventory ordered by path and
// start line.
func (c *queries) ListSourceUnits(ctx context.Context) ([]ir.SourceUnit, error) {
	return c.listUnits(ctx, `
		SELECT id, path, language, unit_name, line_start, line_end, line_count, has_llr, parent_hlr
		FROM source_inventory
		ORDER BY path, line_start
	`)
}

// UnitsWithoutLLR returns inventory rows not yet covered by the deriver.
func (c *queries) UnitsWithoutLLR(ctx context.Context) ([]ir.SourceUnit, error) {
	return c.listUnits(ctx, `
		SELECT id, path, language, unit_name, line_start, line_end, line_count, has_llr, parent_hlr
		FROM source_inventory
		WHERE has_llr = 0
		ORDER BY path, line_start
	`)
}

func (c *queries) listUnits(ctx context.Context, query string) ([]ir.SourceUnit, error) {
	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list source units: %w", err)
	}
	defer rows.Close()

	var units []ir.SourceUnit
	for rows.Next() {
		var u ir.SourceUnit
		var hasLLR int
		var parentHLR sql.NullString
		if err := rows.Scan(&u.ID, &u.Path, &u.Language, &u.UnitName,
			&u.LineStart, &u.LineEnd, &u.LineCount, &hasLLR, &parentHLR); err != nil {
			return nil, fmt.Errorf("scan source unit: %w", err)
		}
		u.HasLLR = hasLLR != 0
		u.ParentHLR = fromNull(parentHLR)
		units = append(units, u)
	}
	return units, rows.Err()
}

// DistinctPaths returns every scanned file path, sorted.
func (c *queries) DistinctPaths(ctx context.Context) ([]string, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT DISTINCT path FROM source_inventory ORDER BY path
	`)
	if err != nil {
		return nil, fmt.Errorf("distinct paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// ListSystemRequirements returns all system requirements ordered by id.
func (c *queries) ListSystemRequirements(ctx context.Context) ([]ir.SystemRequirement, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, text, source FROM system_requirements ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list system requirements: %w", err)
	}
	defer rows.Close()

	var reqs []ir.SystemRequirement
	for rows.Next() {
		var r ir.SystemRequirement
		if err := rows.Scan(&r.ID, &r.Text, &r.Source); err != nil {
			return nil, fmt.Errorf("scan system requirement: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// ListHLRs returns all high-level requirements ordered by id.
func (c *queries) ListHLRs(ctx context.Context) ([]ir.HighLevelRequirement, error) {
	return c.listHLRs(ctx, `
		SELECT id, text, source, parent_sys, allocated_to, is_derived, derivation_rationale, category
		FROM high_level_requirements
		ORDER BY id
	`)
}

// HLRsWithoutTests returns HLRs with no test case, excluding the
// unclustered placeholder.
func (c *queries) HLRsWithoutTests(ctx context.Context) ([]ir.HighLevelRequirement, error) {
	return c.listHLRs(ctx, `
		SELECT hlr.id, hlr.text, hlr.source, hlr.parent_sys, hlr.allocated_to,
		       hlr.is_derived, hlr.derivation_rationale, hlr.category
		FROM high_level_requirements hlr
		LEFT JOIN hlr_test_cases htc ON htc.parent_hlr = hlr.id
		WHERE htc.id IS NULL AND hlr.id != '`+ir.UnclusteredHLR+`'
		ORDER BY hlr.id
	`)
}

func (c *queries) listHLRs(ctx context.Context, query string) ([]ir.HighLevelRequirement, error) {
	rows, err := c.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list hlrs: %w", err)
	}
	defer rows.Close()

	var hlrs []ir.HighLevelRequirement
	for rows.Next() {
		var h ir.HighLevelRequirement
		var parentSys, allocatedTo, rationale, category sql.NullString
		var derived int
		if err := rows.Scan(&h.ID, &h.Text, &h.Source, &parentSys, &allocatedTo,
			&derived, &rationale, &category); err != nil {
			return nil, fmt.Errorf("scan hlr: %w", err)
		}
		h.ParentSys = fromNull(parentSys)
		h.AllocatedTo = fromNull(allocatedTo)
		h.IsDerived = derived != 0
		h.DerivationRationale = fromNull(rationale)
		h.Category = ir.HLRCategory(fromNull(category))
		hlrs = append(hlrs, h)
	}
	return hlrs, rows.Err()
}

// GetHLR returns one HLR by id. Returns sql.ErrNoRows when absent.
func (c *queries) GetHLR(ctx context.Context, id string) (ir.HighLevelRequirement, error) {
	var h ir.HighLevelRequirement
	var parentSys, allocatedTo, rationale, category sql.NullString
	var derived int
	err := c.q.QueryRowContext(ctx, `
		SELECT id, text, source, parent_sys, allocated_to, is_derived, derivation_rationale, category
		FROM high_level_requirements WHERE id = ?
	`, id).Scan(&h.ID, &h.Text, &h.Source, &parentSys, &allocatedTo, &derived, &rationale, &category)
	if err != nil {
		return h, err
	}
	h.ParentSys = fromNull(parentSys)
	h.AllocatedTo = fromNull(allocatedTo)
	h.IsDerived = derived != 0
	h.DerivationRationale = fromNull(rationale)
	h.Category = ir.HLRCategory(fromNull(category))
	return h, nil
}

// ListLLRs returns all low-level requirements ordered by id.
func (c *queries) ListLLRs(ctx context.Context) ([]ir.LowLevelRequirement, error) {
	return c.listLLRs(ctx, `
		SELECT id, text, parent_hlr, source, logic_type, trace_to_code
		FROM low_level_requirements ORDER BY id
	`)
}

// LLRsByHLR returns the LLRs under one parent HLR ordered by id.
func (c *queries) LLRsByHLR(ctx context.Context, hlrID string) ([]ir.LowLevelRequirement, error) {
	return c.listLLRs(ctx, `
		SELECT id, text, parent_hlr, source, logic_type, trace_to_code
		FROM low_level_requirements WHERE parent_hlr = ? ORDER BY id
	`, hlrID)
}

func (c *queries) listLLRs(ctx context.Context, query string, args ...any) ([]ir.LowLevelRequirement, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list llrs: %w", err)
	}
	defer rows.Close()

	var llrs []ir.LowLevelRequirement
	for rows.Next() {
		var l ir.LowLevelRequirement
		var logicType, trace sql.NullString
		if err := rows.Scan(&l.ID, &l.Text, &l.ParentHLR, &l.Source, &logicType, &trace); err != nil {
			return nil, fmt.Errorf("scan llr: %w", err)
		}
		l.LogicType = ir.LogicType(fromNull(logicType))
		l.TraceToCode = fromNull(trace)
		llrs = append(llrs, l)
	}
	return llrs, rows.Err()
}

// TestCasesByHLR returns the test cases under one parent HLR ordered by id.
func (c *queries) TestCasesByHLR(ctx context.Context, hlrID string) ([]ir.TestCase, error) {
	return c.listTestCases(ctx, `
		SELECT id, parent_hlr, test_type, description, procedure, input_data,
		       expected_output, pass_criteria, test_script_ref, pass_fail
		FROM hlr_test_cases WHERE parent_hlr = ? ORDER BY id
	`, hlrID)
}

// ListTestCases returns all test cases ordered by parent HLR then id.
func (c *queries) ListTestCases(ctx context.Context) ([]ir.TestCase, error) {
	return c.listTestCases(ctx, `
		SELECT id, parent_hlr, test_type, description, procedure, input_data,
		       expected_output, pass_criteria, test_script_ref, pass_fail
		FROM hlr_test_cases ORDER BY parent_hlr, id
	`)
}

func (c *queries) listTestCases(ctx context.Context, query string, args ...any) ([]ir.TestCase, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list test cases: %w", err)
	}
	defer rows.Close()

	var tcs []ir.TestCase
	for rows.Next() {
		var t ir.TestCase
		var scriptRef sql.NullString
		if err := rows.Scan(&t.ID, &t.ParentHLR, &t.TestType, &t.Description, &t.Procedure,
			&t.InputData, &t.ExpectedOutput, &t.PassCriteria, &scriptRef, &t.PassFail); err != nil {
			return nil, fmt.Errorf("scan test case: %w", err)
		}
		t.TestScriptRef = fromNull(scriptRef)
		tcs = append(tcs, t)
	}
	return tcs, rows.Err()
}

// ListArchDecisions returns all architecture decisions ordered by id.
func (c *queries) ListArchDecisions(ctx context.Context) ([]ir.ArchitectureDecision, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, description, rationale, parent_hlr, category
		FROM architecture_decisions ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list arch decisions: %w", err)
	}
	defer rows.Close()

	var decisions []ir.ArchitectureDecision
	for rows.Next() {
		var d ir.ArchitectureDecision
		var rationale, parentHLR, category sql.NullString
		if err := rows.Scan(&d.ID, &d.Description, &rationale, &parentHLR, &category); err != nil {
			return nil, fmt.Errorf("scan arch decision: %w", err)
		}
		d.Rationale = fromNull(rationale)
		d.ParentHLR = fromNull(parentHLR)
		d.Category = ir.ArchCategory(fromNull(category))
		decisions = append(decisions, d)
	}
	return decisions, rows.Err()
}

// ListSections returns all document sections ordered by sort_order.
func (c *queries) ListSections(ctx context.Context) ([]ir.DocumentSection, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT id, section_number, title, content, sort_order
		FROM document_sections ORDER BY sort_order
	`)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	var sections []ir.DocumentSection
	for rows.Next() {
		var s ir.DocumentSection
		if err := rows.Scan(&s.ID, &s.SectionNumber, &s.Title, &s.Content, &s.SortOrder); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}
	return sections, rows.Err()
}

// Record fetches one row from an entity table as a column→value map. The
// table key must be one of the external keys accepted by ResolveTable.
// Returns sql.ErrNoRows when the id does not exist.
func (c *queries) Record(ctx context.Context, tableKey, id string) (map[string]string, error) {
	table, ok := ResolveTable(tableKey)
	if !ok {
		return nil, fmt.Errorf("unknown table key %q", tableKey)
	}

	rows, err := c.q.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s WHERE id = ?", table), id)
	if err != nil {
		return nil, fmt.Errorf("record %s.%s: %w", tableKey, id, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("record columns: %w", err)
	}

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, sql.ErrNoRows
	}

	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}

	record := make(map[string]string, len(cols))
	for i, col := range cols {
		record[col] = fromNull(values[i])
	}
	return record, nil
}

// TraceMatrix returns the trace_matrix view as ordered header and row
// slices, suitable for tabular rendering.
func (c *queries) TraceMatrix(ctx context.Context) ([]string, [][]string, error) {
	rows, err := c.q.QueryContext(ctx, `
		SELECT * FROM trace_matrix ORDER BY sys_req_id, hlr_id, llr_id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("trace matrix: %w", err)
	}
	defer rows.Close()

	headers, err := rows.Columns()
	if err != nil {
		return nil, nil, fmt.Errorf("trace matrix columns: %w", err)
	}

	var matrix [][]string
	for rows.Next() {
		values := make([]sql.NullString, len(headers))
		ptrs := make([]any, len(headers))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, fmt.Errorf("trace matrix scan: %w", err)
		}
		row := make([]string, len(headers))
		for i := range values {
			row[i] = fromNull(values[i])
		}
		matrix = append(matrix, row)
	}
	return headers, matrix, rows.Err()
}

// CountRows returns the row count of an entity table by external key.
func (c *queries) CountRows(ctx context.Context, tableKey string) (int, error) {
	table, ok := ResolveTable(tableKey)
	if !ok {
		return 0, fmt.Errorf("unknown table key %q", tableKey)
	}
	var count int
	if err := c.q.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count %s: %w", tableKey, err)
	}
	return count, nil
}

// validationViews whitelists the schema views the validator may query.
// Each returns offending record ids in its first column.
var validationViews = map[string]bool{
	"v_incomplete_decomposition": true,
	"v_untested_hlrs":            true,
	"v_orphaned_llrs":            true,
	"v_untraced_hlrs":            true,
	"v_missing_rationale":        true,
}

// ViolationIDs returns the record ids a validation view reports, sorted.
func (c *queries) ViolationIDs(ctx context.Context, view string) ([]string, error) {
	if !validationViews[view] {
		return nil, fmt.Errorf("unknown validation view %q", view)
	}
	rows, err := c.q.QueryContext(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY id", view))
	if err != nil {
		return nil, fmt.Errorf("validation view %s: %w", view, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan violation id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// TableKeys returns the external table keys in deterministic order.
func TableKeys() []string {
	keys := make([]string, 0, len(entityTables))
	for k := range entityTables {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
