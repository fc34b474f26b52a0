package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// All writes are upserts keyed on primary id. Re-running a phase against an
// unchanged input must converge to the same rows, so ON CONFLICT updates
// replace derived fields but never the fields a later phase owns
// (parent_hlr on LLRs and units, has_llr on units).

func (c *queries) exists(ctx context.Context, table, id string) (bool, error) {
	var one int
	err := c.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// UpsertSystemRequirement inserts or updates a system requirement.
func (c *queries) UpsertSystemRequirement(ctx context.Context, r ir.SystemRequirement) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO system_requirements (id, text, source)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source = excluded.source,
			updated_at = datetime('now')
	`, r.ID, r.Text, r.Source)
	if err != nil {
		return fmt.Errorf("upsert system requirement %s: %w", r.ID, err)
	}
	return nil
}

// UpsertSourceUnit inserts or updates an inventory row. Line fields refresh
// on every scan; has_llr and parent_hlr survive because later phases own
// them. Returns true when the row was newly inserted.
func (c *queries) UpsertSourceUnit(ctx context.Context, u ir.SourceUnit) (bool, error) {
	existed, err := c.exists(ctx, "source_inventory", u.ID)
	if err != nil {
		return false, fmt.Errorf("check source unit %s: %w", u.ID, err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO source_inventory (id, path, language, unit_name, line_start, line_end, line_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			path = excluded.path,
			language = excluded.language,
			unit_name = excluded.unit_name,
			line_start = excluded.line_start,
			line_end = excluded.line_end,
			line_count = excluded.line_count,
			scanned_at = datetime('now')
	`, u.ID, u.Path, string(u.Language), u.UnitName, u.LineStart, u.LineEnd, u.LineCount)
	if err != nil {
		return false, fmt.Errorf("upsert source unit %s: %w", u.ID, err)
	}
	return !existed, nil
}

// MarkUnitCovered records that the deriver produced at least one LLR for
// the unit.
func (c *queries) MarkUnitCovered(ctx context.Context, unitID string) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE source_inventory SET has_llr = 1 WHERE id = ?
	`, unitID)
	if err != nil {
		return fmt.Errorf("mark unit covered %s: %w", unitID, err)
	}
	return nil
}

// SetUnitParentHLR allocates an inventory unit to a clustered capability.
func (c *queries) SetUnitParentHLR(ctx context.Context, unitID, hlrID string) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE source_inventory SET parent_hlr = ? WHERE id = ?
	`, nullable(hlrID), unitID)
	if err != nil {
		return fmt.Errorf("set unit parent %s: %w", unitID, err)
	}
	return nil
}

// EnsureUnclusteredHLR creates the placeholder parent the deriver hangs
// fresh LLRs from. Safe to call on every derive run.
func (c *queries) EnsureUnclusteredHLR(ctx context.Context) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO high_level_requirements (id, text, source, category)
		VALUES (?, 'Placeholder for requirements pending clustering.', ?, 'functional')
		ON CONFLICT(id) DO NOTHING
	`, ir.UnclusteredHLR, ir.SourceSynthesized)
	if err != nil {
		return fmt.Errorf("ensure unclustered hlr: %w", err)
	}
	return nil
}

// UpsertLLR inserts or updates a low-level requirement. Text, logic type,
// and code trace refresh; parent_hlr is set only on insert so a re-derive
// never undoes clustering. Returns true when newly inserted.
func (c *queries) UpsertLLR(ctx context.Context, l ir.LowLevelRequirement) (bool, error) {
	existed, err := c.exists(ctx, "low_level_requirements", l.ID)
	if err != nil {
		return false, fmt.Errorf("check llr %s: %w", l.ID, err)
	}
	_, err = c.q.ExecContext(ctx, `
		INSERT INTO low_level_requirements (id, text, parent_hlr, source, logic_type, trace_to_code)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source = excluded.source,
			logic_type = excluded.logic_type,
			trace_to_code = excluded.trace_to_code,
			updated_at = datetime('now')
	`, l.ID, l.Text, l.ParentHLR, l.Source, string(l.LogicType), nullable(l.TraceToCode))
	if err != nil {
		return false, fmt.Errorf("upsert llr %s: %w", l.ID, err)
	}
	return !existed, nil
}

// ReparentUnclusteredLLRs moves every placeholder-parented LLR whose id
// starts with idPrefix under the given HLR. Returns the number of rows
// moved. LLRs already clustered are left alone.
func (c *queries) ReparentUnclusteredLLRs(ctx context.Context, idPrefix, hlrID string) (int, error) {
	res, err := c.q.ExecContext(ctx, `
		UPDATE low_level_requirements
		SET parent_hlr = ?, updated_at = datetime('now')
		WHERE parent_hlr = ? AND id LIKE ? || '%'
	`, hlrID, ir.UnclusteredHLR, idPrefix)
	if err != nil {
		return 0, fmt.Errorf("reparent llrs %s: %w", idPrefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reparent llrs %s: %w", idPrefix, err)
	}
	return int(n), nil
}

// SetLLRParent moves an LLR under a new parent HLR.
func (c *queries) SetLLRParent(ctx context.Context, llrID, hlrID string) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE low_level_requirements
		SET parent_hlr = ?, updated_at = datetime('now')
		WHERE id = ?
	`, hlrID, llrID)
	if err != nil {
		return fmt.Errorf("set llr parent %s: %w", llrID, err)
	}
	return nil
}

// UpsertHLR inserts or updates a high-level requirement.
func (c *queries) UpsertHLR(ctx context.Context, h ir.HighLevelRequirement) error {
	derived := 0
	if h.IsDerived {
		derived = 1
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO high_level_requirements
			(id, text, source, parent_sys, allocated_to, is_derived, derivation_rationale, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			text = excluded.text,
			source = excluded.source,
			parent_sys = excluded.parent_sys,
			allocated_to = excluded.allocated_to,
			is_derived = excluded.is_derived,
			derivation_rationale = excluded.derivation_rationale,
			category = excluded.category,
			updated_at = datetime('now')
	`, h.ID, h.Text, h.Source, nullable(h.ParentSys), nullable(h.AllocatedTo),
		derived, nullable(h.DerivationRationale), nullable(string(h.Category)))
	if err != nil {
		return fmt.Errorf("upsert hlr %s: %w", h.ID, err)
	}
	return nil
}

// UpdateHLRText replaces the text of an existing HLR. Used by the refiner,
// which owns text but nothing else on the row.
func (c *queries) UpdateHLRText(ctx context.Context, id, text string) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE high_level_requirements
		SET text = ?, updated_at = datetime('now')
		WHERE id = ?
	`, text, id)
	if err != nil {
		return fmt.Errorf("update hlr text %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update hlr text %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update hlr text: no such hlr %q", id)
	}
	return nil
}

// UpdateLLRText replaces the text of an existing LLR.
func (c *queries) UpdateLLRText(ctx context.Context, id, text string) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE low_level_requirements
		SET text = ?, updated_at = datetime('now')
		WHERE id = ?
	`, text, id)
	if err != nil {
		return fmt.Errorf("update llr text %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update llr text %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("update llr text: no such llr %q", id)
	}
	return nil
}

// DeleteHLRIfEmpty removes an HLR that has no child LLRs left. Returns true
// when a row was deleted.
func (c *queries) DeleteHLRIfEmpty(ctx context.Context, id string) (bool, error) {
	res, err := c.q.ExecContext(ctx, `
		DELETE FROM high_level_requirements
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM low_level_requirements WHERE parent_hlr = ?)
	`, id, id)
	if err != nil {
		return false, fmt.Errorf("delete hlr %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete hlr %s: %w", id, err)
	}
	return n > 0, nil
}

// UpsertTestCase inserts or updates a test case. The recorded pass_fail
// result and script binding survive regeneration.
func (c *queries) UpsertTestCase(ctx context.Context, t ir.TestCase) error {
	passFail := t.PassFail
	if passFail == "" {
		passFail = ir.ResultNotRun
	}
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO hlr_test_cases
			(id, parent_hlr, test_type, description, procedure, input_data,
			 expected_output, pass_criteria, test_script_ref, pass_fail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			parent_hlr = excluded.parent_hlr,
			test_type = excluded.test_type,
			description = excluded.description,
			procedure = excluded.procedure,
			input_data = excluded.input_data,
			expected_output = excluded.expected_output,
			pass_criteria = excluded.pass_criteria,
			updated_at = datetime('now')
	`, t.ID, t.ParentHLR, string(t.TestType), t.Description, t.Procedure,
		t.InputData, t.ExpectedOutput, t.PassCriteria, nullable(t.TestScriptRef), string(passFail))
	if err != nil {
		return fmt.Errorf("upsert test case %s: %w", t.ID, err)
	}
	return nil
}

// SetTestScriptRef binds a test case to its generated skeleton file.
func (c *queries) SetTestScriptRef(ctx context.Context, testID, ref string) error {
	_, err := c.q.ExecContext(ctx, `
		UPDATE hlr_test_cases
		SET test_script_ref = ?, updated_at = datetime('now')
		WHERE id = ?
	`, nullable(ref), testID)
	if err != nil {
		return fmt.Errorf("set test script ref %s: %w", testID, err)
	}
	return nil
}

// SetTestResult records the execution result of a test case.
func (c *queries) SetTestResult(ctx context.Context, testID string, result ir.PassFail) error {
	res, err := c.q.ExecContext(ctx, `
		UPDATE hlr_test_cases
		SET pass_fail = ?, updated_at = datetime('now')
		WHERE id = ?
	`, string(result), testID)
	if err != nil {
		return fmt.Errorf("set test result %s: %w", testID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set test result %s: %w", testID, err)
	}
	if n == 0 {
		return fmt.Errorf("set test result: no such test case %q", testID)
	}
	return nil
}

// UpsertArchDecision inserts or updates an architecture decision.
func (c *queries) UpsertArchDecision(ctx context.Context, d ir.ArchitectureDecision) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO architecture_decisions (id, description, rationale, parent_hlr, category)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			rationale = excluded.rationale,
			parent_hlr = excluded.parent_hlr,
			category = excluded.category
	`, d.ID, d.Description, nullable(d.Rationale), nullable(d.ParentHLR), nullable(string(d.Category)))
	if err != nil {
		return fmt.Errorf("upsert arch decision %s: %w", d.ID, err)
	}
	return nil
}

// UpsertSection inserts or updates a document section.
func (c *queries) UpsertSection(ctx context.Context, s ir.DocumentSection) error {
	_, err := c.q.ExecContext(ctx, `
		INSERT INTO document_sections (id, section_number, title, content, sort_order)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			section_number = excluded.section_number,
			title = excluded.title,
			content = excluded.content,
			sort_order = excluded.sort_order,
			updated_at = datetime('now')
	`, s.ID, s.SectionNumber, s.Title, s.Content, s.SortOrder)
	if err != nil {
		return fmt.Errorf("upsert section %s: %w", s.ID, err)
	}
	return nil
}
