package deriver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// Line-based control-flow extraction for JavaScript/TypeScript, Python,
// and Rust. Each pattern's first group, when present, is the condition or
// clause text.

type flowPattern struct {
	logicType ir.LogicType
	re        *regexp.Regexp
	// render formats the LLR text from the captured condition and the
	// full trimmed line.
	render func(cond, line string) string
}

func branchText(cond, line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "switch") || strings.Contains(lower, "match"):
		return fmt.Sprintf("Switch/match on '%s'. Evaluate each arm/case.", cond)
	case strings.Contains(lower, "else if") || strings.Contains(lower, "elif"):
		return fmt.Sprintf("Else-if branch: when %s, execute the corresponding block.", cond)
	case strings.Contains(lower, "else") && cond == "":
		return "Else branch: execute default/fallthrough block."
	case strings.Contains(lower, "default"):
		return "Default case: execute fallback logic."
	case strings.HasPrefix(strings.TrimSpace(lower), "case"):
		return fmt.Sprintf("Case '%s': execute case-specific logic.", cond)
	default:
		return fmt.Sprintf("If %s, execute conditional block.", cond)
	}
}

func loopText(cond, line string) string {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "while"):
		return fmt.Sprintf("While %s, repeat loop body.", cond)
	case cond == "":
		return "Infinite loop (requires explicit break for termination)."
	default:
		return fmt.Sprintf("Iterate: %s.", cond)
	}
}

var jsFlow = []flowPattern{
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*try\s*\{`),
		func(_, line string) string { return fmt.Sprintf("Error handling: %s", line) }},
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*}?\s*catch\s*\((.+?)\)\s*\{`),
		func(cond, _ string) string { return fmt.Sprintf("Catch handler for '%s'. Process error.", cond) }},
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*}\s*finally\s*\{`),
		func(_, line string) string { return fmt.Sprintf("Error handling: %s", line) }},
	{ir.LogicBranch, regexp.MustCompile(`^\s*(?:} )?(?:else )?if\s*\((.+?)\)\s*\{`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*} else\s*\{`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*switch\s*\((.+?)\)\s*\{`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*case\s+(.+?):`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*default\s*:`), branchText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*for\s*\((.+?)\)\s*\{`), loopText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*while\s*\((.+?)\)\s*\{`), loopText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*do\s*\{`), loopText},
}

var pyFlow = []flowPattern{
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*try\s*:`),
		func(_, line string) string { return fmt.Sprintf("Error handling: %s", line) }},
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*except\b(.*?):`),
		func(cond, _ string) string {
			cond = strings.TrimSpace(cond)
			if cond == "" {
				cond = "Exception (bare)"
			}
			return fmt.Sprintf("Catch handler for '%s'. Process error.", cond)
		}},
	{ir.LogicErrorHandler, regexp.MustCompile(`^\s*finally\s*:`),
		func(_, line string) string { return fmt.Sprintf("Error handling: %s", line) }},
	{ir.LogicBranch, regexp.MustCompile(`^\s*(?:el)?if\s+(.+?)\s*:`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*else\s*:`), branchText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*for\s+(.+?)\s*:`), loopText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*while\s+(.+?)\s*:`), loopText},
	{ir.LogicComputation, regexp.MustCompile(`^\s*return\s+(.+)$`),
		func(cond, _ string) string { return fmt.Sprintf("Return %s.", cond) }},
}

var rustFlow = []flowPattern{
	{ir.LogicBranch, regexp.MustCompile(`^\s*}?\s*(?:else\s+)?if\s+(.+?)\s*\{`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*}\s*else\s*\{`), branchText},
	{ir.LogicBranch, regexp.MustCompile(`^\s*match\s+(.+?)\s*\{`), branchText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*for\s+\w+\s+in\s+(.+?)\s*\{`), loopText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*while\s+(.+?)\s*\{`), loopText},
	{ir.LogicLoop, regexp.MustCompile(`^\s*loop\s*\{`), loopText},
	{ir.LogicErrorHandler, regexp.MustCompile(`\?\s*;`),
		func(_, _ string) string { return "Propagate error via ? operator." }},
	{ir.LogicErrorHandler, regexp.MustCompile(`\.(?:unwrap\(\)|expect\()`),
		func(_, line string) string { return fmt.Sprintf("Unwrap/expect: panic on None/Err. %s", line) }},
}

var (
	rustMatchArm = regexp.MustCompile(`^\s+(\S.*?)\s*=>`)
	pyBoolOp     = regexp.MustCompile(`\s+(?:and|or)\s+`)
)

func flowForLanguage(lang ir.Language) []flowPattern {
	switch lang {
	case ir.LangJavaScript:
		return jsFlow
	case ir.LangPython:
		return pyFlow
	case ir.LangRust:
		return rustFlow
	default:
		return nil
	}
}

// heuristicLLRs scans the unit's line span and emits one LLR per matched
// control-flow pattern, splitting compound branch conditions into one LLR
// per clause. The entry-point LLR is always first.
func heuristicLLRs(content []byte, u ir.SourceUnit) []ir.LowLevelRequirement {
	patterns := flowForLanguage(u.Language)
	if patterns == nil {
		return nil
	}

	b := &builder{unit: u}
	b.addEntry()

	lines := strings.Split(string(content), "\n")
	start := u.LineStart
	end := u.LineEnd
	if start < 1 {
		start = 1
	}
	if end > len(lines) || end < start {
		end = len(lines)
	}

	for lineNum := start; lineNum <= end; lineNum++ {
		line := lines[lineNum-1]
		trimmed := strings.TrimSpace(line)

		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			cond := ""
			if len(m) > 1 {
				cond = strings.TrimSpace(m[1])
			}
			if p.logicType == ir.LogicBranch && cond != "" {
				for _, clause := range splitClauses(cond, u.Language) {
					b.add(p.logicType, p.render(clause, trimmed), lineNum)
				}
			} else {
				b.add(p.logicType, p.render(cond, trimmed), lineNum)
			}
			break
		}

		if u.Language == ir.LangRust {
			if m := rustMatchArm.FindStringSubmatch(line); m != nil {
				arm := strings.TrimSpace(m[1])
				if arm != "_" {
					b.add(ir.LogicBranch,
						fmt.Sprintf("Match arm '%s': execute arm-specific logic.", arm), lineNum)
				}
			}
		}
	}
	return b.llrs
}

// splitClauses splits a compound branch condition into one clause per
// boolean operand, honoring the language's operator spelling.
func splitClauses(cond string, lang ir.Language) []string {
	clauses := splitCondition(cond)
	if lang != ir.LangPython {
		return clauses
	}
	var out []string
	for _, c := range clauses {
		for _, part := range pyBoolOp.Split(c, -1) {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
