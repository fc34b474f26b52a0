package scanner

import (
	"regexp"
	"strconv"
	"strings"
)

// Heuristic declaration extraction for JavaScript/TypeScript, Python, and
// Rust. Patterns match one line at a time; the first group is the unit
// name.

var jsKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "while": true, "do": true,
	"switch": true, "case": true, "try": true, "catch": true,
	"finally": true, "throw": true, "return": true, "new": true,
	"delete": true, "typeof": true, "instanceof": true, "void": true,
	"with": true, "debugger": true, "yield": true, "await": true,
	"import": true, "export": true, "default": true, "break": true,
	"continue": true, "in": true, "of": true,
}

var jsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(`),
	regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s+)?\(?.*?\)?\s*=>`),
	regexp.MustCompile(`^\s+(?:async\s+)?(\w+)\s*\([^)]*\)\s*\{`),
	regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`),
}

var pyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*def\s+(\w+)\s*\(`),
	regexp.MustCompile(`^\s*class\s+(\w+)\s*[(:]`),
}

var rustPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:pub(?:\(crate\))?\s+)?(?:async\s+)?fn\s+(\w+)\s*[<(]`),
	regexp.MustCompile(`^\s*impl(?:<[^>]+>)?\s+(\w+)`),
	regexp.MustCompile(`^\s*(?:pub(?:\(crate\))?\s+)?(?:struct|enum|trait)\s+(\w+)`),
}

func patternsForExt(ext string) ([]*regexp.Regexp, bool) {
	switch ext {
	case ".js", ".jsx", ".ts", ".tsx":
		return jsPatterns, true
	case ".py":
		return pyPatterns, false
	case ".rs":
		return rustPatterns, false
	default:
		return nil, false
	}
}

// heuristicDecls scans content line by line against the language's
// patterns. End lines are left at zero for the caller to estimate.
func heuristicDecls(content []byte, ext string) []decl {
	patterns, isJS := patternsForExt(ext)
	if patterns == nil {
		return nil
	}

	var decls []decl
	seen := make(map[string]bool)

	for i, line := range strings.Split(string(content), "\n") {
		for _, pat := range patterns {
			m := pat.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := m[1]
			if isJS && jsKeywords[name] {
				break
			}
			key := name + ":" + strconv.Itoa(i+1)
			if !seen[key] {
				seen[key] = true
				decls = append(decls, decl{name: name, line: i + 1})
			}
			break
		}
	}
	return decls
}

// estimateEnd finds the last line of the unit starting at startLine
// (1-indexed): indentation scope for Python, brace balance otherwise.
func estimateEnd(lines []string, startLine int, ext string) int {
	total := len(lines)
	startIdx := startLine - 1
	if startIdx >= total {
		return startLine
	}

	if ext == ".py" {
		base := lines[startIdx]
		baseIndent := len(base) - len(strings.TrimLeft(base, " \t"))

		endIdx := startIdx + 1
		for endIdx < total {
			line := lines[endIdx]
			stripped := strings.TrimSpace(line)
			if stripped == "" || strings.HasPrefix(stripped, "#") {
				endIdx++
				continue
			}
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if indent <= baseIndent {
				break
			}
			endIdx++
		}
		return endIdx
	}

	braces := 0
	started := false
	for endIdx := startIdx; endIdx < total; endIdx++ {
		line := lines[endIdx]
		braces += strings.Count(line, "{") - strings.Count(line, "}")
		if strings.Contains(line, "{") {
			started = true
		}
		if started && braces <= 0 {
			return endIdx + 1
		}
	}
	return total
}
