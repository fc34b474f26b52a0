package ir

import (
	"fmt"
	"regexp"
	"strings"
)

// ID construction is deterministic: every phase derives identifiers purely
// from stable inputs (path, unit name, ordinal) so that re-running a phase
// upserts the same rows instead of appending new ones.

var (
	nonAlnum   = regexp.MustCompile(`[^a-zA-Z0-9]`)
	underscores = regexp.MustCompile(`_+`)
)

// sanitize converts an arbitrary string into an identifier-safe token:
// non-alphanumerics become underscores, runs collapse, edges trim.
func sanitize(s string) string {
	s = nonAlnum.ReplaceAllString(s, "_")
	s = underscores.ReplaceAllString(s, "_")
	return strings.Trim(s, "_")
}

// UnitID builds the source inventory ID for a declared unit. The start line
// disambiguates same-named declarations within one file.
func UnitID(path, unitName string, startLine int) string {
	return fmt.Sprintf("%s::%s:L%d", path, unitName, startLine)
}

// LLRID builds a stable LLR identifier from the originating file, unit name,
// and the unit-local ordinal of the control-flow decision.
func LLRID(path, unitName string, ordinal int) string {
	safePath := sanitize(path)
	if len(safePath) > 40 {
		safePath = safePath[:40]
	}
	return fmt.Sprintf("LLR_%s__%s__%03d", safePath, unitName, ordinal)
}

// LLRIDPrefix is the shared prefix of every LLR derived from one unit.
func LLRIDPrefix(path, unitName string) string {
	safePath := sanitize(path)
	if len(safePath) > 40 {
		safePath = safePath[:40]
	}
	return fmt.Sprintf("LLR_%s__%s__", safePath, unitName)
}

// HLRID builds the identifier for a clustered capability.
func HLRID(clusterName string) string {
	return "HLR_" + sanitize(strings.ToUpper(clusterName))
}

// SysID builds the identifier of the synthesized system requirement for a
// behavioral domain.
func SysID(domain string) string {
	return fmt.Sprintf("SYS_%s_001", sanitize(strings.ToUpper(domain)))
}

// TestCaseID builds a test case identifier under an HLR. kind is "NR" for
// normal-range and "ROB" for robustness cases.
func TestCaseID(hlrID, kind string, ordinal int) string {
	return fmt.Sprintf("HTC_%s_%s_%03d", strings.TrimPrefix(hlrID, "HLR_"), kind, ordinal)
}

// ArchID builds an architecture decision identifier from its ordinal.
func ArchID(ordinal int) string {
	return fmt.Sprintf("ARCH_%03d", ordinal)
}

// TestScriptName derives the generated test skeleton filename for an HLR.
// The name is a pure function of the HLR id so row and file never diverge.
func TestScriptName(hlrID string) string {
	return fmt.Sprintf("hlr_%s_test.go", strings.ToLower(strings.TrimPrefix(hlrID, "HLR_")))
}
