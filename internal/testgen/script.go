package testgen

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// writeScript emits the Go test skeleton for one HLR and returns the
// reference stored in test_script_ref. The skeleton repeats each case's
// input_data and expected_output so the file and the rows cannot diverge
// without the mismatch being visible.
func (g *Generator) writeScript(h ir.HighLevelRequirement, cases []ir.TestCase, llrs []ir.LowLevelRequirement) (string, error) {
	if err := os.MkdirAll(g.scriptsDir, 0o755); err != nil {
		return "", fmt.Errorf("create scripts dir: %w", err)
	}

	name := ir.TestScriptName(h.ID)
	content := scriptContent(h, cases)

	if err := os.WriteFile(filepath.Join(g.scriptsDir, name), []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write test script %s: %w", name, err)
	}
	return filepath.ToSlash(filepath.Join(filepath.Base(g.scriptsDir), name)), nil
}

// scriptContent renders the skeleton source for one HLR's cases.
func scriptContent(h ir.HighLevelRequirement, cases []ir.TestCase) string {
	var b strings.Builder

	fmt.Fprintf(&b, "// Verification skeleton for %s.\n", h.ID)
	fmt.Fprintf(&b, "// %s\n", truncate(h.Text, 100))
	b.WriteString("//\n// Regenerated from the traceability store; edits to inputs or expected\n")
	b.WriteString("// outputs belong in the hlr_test_cases rows, not here.\n\n")
	b.WriteString("package hlrtests\n\nimport \"testing\"\n\n")

	for _, tc := range cases {
		fmt.Fprintf(&b, "func Test%s(t *testing.T) {\n", exportedName(tc.ID))
		fmt.Fprintf(&b, "\t// %s\n", truncate(tc.Description, 100))
		fmt.Fprintf(&b, "\tinput := %q\n", tc.InputData)
		fmt.Fprintf(&b, "\texpected := %q\n", tc.ExpectedOutput)
		fmt.Fprintf(&b, "\tpassCriteria := %q\n", tc.PassCriteria)
		b.WriteString("\tt.Log(\"input:\", input)\n")
		b.WriteString("\tt.Log(\"expected:\", expected)\n")
		b.WriteString("\tt.Log(\"pass criteria:\", passCriteria)\n")
		b.WriteString("\tt.Skip(\"pending: wire the unit under test\")\n")
		b.WriteString("}\n\n")
	}
	return b.String()
}

// exportedName turns a case id into an exported Go test suffix, e.g.
// HTC_CORE_VALIDATE_NR_001 becomes HtcCoreValidateNr001.
func exportedName(id string) string {
	parts := strings.Split(strings.ReplaceAll(id, "-", "_"), "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(strings.ToLower(p[1:]))
	}
	return b.String()
}
