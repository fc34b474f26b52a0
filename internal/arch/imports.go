package arch

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Import extraction mirrors the scanner's heuristic style: per-language
// regex tables over raw file content. Only intra-repository references
// survive the filter; package-manager and stdlib targets are dropped.

var (
	jsImportCall = regexp.MustCompile(`(?:import|require)\s*\(?['"]([^'"]+)['"]\)?`)
	jsImportFrom = regexp.MustCompile(`from\s+['"]([^'"]+)['"]`)
	goImportStr  = regexp.MustCompile(`"([^"]+)"`)
	pyImport     = regexp.MustCompile(`(?m)^(?:from|import)\s+([\w.]+)`)
	rsImport     = regexp.MustCompile(`(?m)(?:use|mod)\s+([\w:]+)`)
)

// fileImports reads one inventoried file and returns its distinct import
// targets, filtered to plausibly-local references.
func (e *Extractor) fileImports(rel string) ([]string, error) {
	content, err := os.ReadFile(filepath.Join(e.root, rel))
	if err != nil {
		return nil, err
	}
	text := string(content)
	ext := strings.ToLower(filepath.Ext(rel))

	seen := map[string]bool{}
	add := func(target string) {
		if localImport(target, ext) && !seen[target] {
			seen[target] = true
		}
	}

	switch ext {
	case ".js", ".jsx", ".ts", ".tsx":
		for _, m := range jsImportCall.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
		for _, m := range jsImportFrom.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	case ".go":
		for _, m := range goImportStr.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	case ".py":
		for _, m := range pyImport.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	case ".rs":
		for _, m := range rsImport.FindAllStringSubmatch(text, -1) {
			add(m[1])
		}
	}

	var imports []string
	for t := range seen {
		imports = append(imports, t)
	}
	return imports, nil
}

// localImport reports whether a target looks like an intra-repository
// reference for the given language.
func localImport(target, ext string) bool {
	if strings.HasPrefix(target, ".") || strings.HasPrefix(target, "/") || strings.HasPrefix(target, "@") {
		return true
	}
	switch ext {
	case ".py":
		return strings.Contains(target, ".")
	case ".rs":
		return strings.Contains(target, "::")
	case ".go":
		return strings.Contains(target, "/")
	}
	return false
}
