// Package scanner walks a source tree and produces the inventory of
// declared units (functions, methods, types) that seeds the traceability
// chain. Go files are parsed structurally with tree-sitter; the other
// supported languages use line-based heuristics.
package scanner

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/reqtrace/reqtrace/internal/ir"
)

// skipDirs are directory names never descended into.
var skipDirs = map[string]bool{
	"node_modules": true,
	".git":         true,
	"__pycache__":  true,
	"dist":         true,
	"build":        true,
	".next":        true,
	"coverage":     true,
	"vendor":       true,
	".venv":        true,
	"venv":         true,
}

// Scanner extracts source units from a tree of supported source files.
type Scanner struct {
	log  *zap.Logger
	skip map[string]bool
}

// New returns a Scanner logging through the given logger.
func New(log *zap.Logger) *Scanner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scanner{log: log, skip: map[string]bool{}}
}

// SkipDirs adds directory names to the built-in skip list.
func (s *Scanner) SkipDirs(names ...string) {
	for _, n := range names {
		s.skip[n] = true
	}
}

// ScanRoot walks root and returns every declared unit found in supported
// source files, ordered by path then start line. A missing or unreadable
// root is a hard error; an unreadable individual file is logged and
// skipped.
func (s *Scanner) ScanRoot(ctx context.Context, root string) ([]ir.SourceUnit, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan root %s: not a directory", root)
	}

	var units []ir.SourceUnit
	fileCount := 0

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.log.Warn("cannot walk path", zap.String("path", path), zap.Error(err))
			return walkSkip(d)
		}
		if d.IsDir() {
			if path != root && (skipDirs[d.Name()] || s.skip[d.Name()]) {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(d.Name()))
		lang, ok := ir.LanguageForExt(ext)
		if !ok {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		fileCount++

		content, err := os.ReadFile(path)
		if err != nil {
			s.log.Warn("cannot read source file", zap.String("path", rel), zap.Error(err))
			return nil
		}

		found, err := s.scanFile(ctx, rel, lang, ext, content)
		if err != nil {
			s.log.Warn("cannot parse source file", zap.String("path", rel), zap.Error(err))
			return nil
		}
		if len(found) > 0 {
			s.log.Debug("scanned file",
				zap.String("path", rel),
				zap.Int("units", len(found)))
			units = append(units, found...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan root %s: %w", root, err)
	}

	sort.Slice(units, func(i, j int) bool {
		if units[i].Path != units[j].Path {
			return units[i].Path < units[j].Path
		}
		return units[i].LineStart < units[j].LineStart
	})

	s.log.Info("scan complete",
		zap.Int("files", fileCount),
		zap.Int("units", len(units)))
	return units, nil
}

// scanFile dispatches to the structural Go parser or the heuristic
// extractor and assembles inventory records with stable ids.
func (s *Scanner) scanFile(ctx context.Context, rel string, lang ir.Language, ext string, content []byte) ([]ir.SourceUnit, error) {
	var decls []decl
	var err error
	if lang == ir.LangGo {
		decls, err = goDecls(ctx, content)
		if err != nil {
			return nil, err
		}
	} else {
		decls = heuristicDecls(content, ext)
	}
	if len(decls) == 0 {
		return nil, nil
	}

	sort.Slice(decls, func(i, j int) bool { return decls[i].line < decls[j].line })

	lines := strings.Split(string(content), "\n")
	units := make([]ir.SourceUnit, 0, len(decls))
	seen := make(map[string]bool, len(decls))

	for i, d := range decls {
		end := d.end
		if end == 0 {
			end = estimateEnd(lines, d.line, ext)
			if i+1 < len(decls) && decls[i+1].line-1 < end {
				end = decls[i+1].line - 1
			}
		}
		if end < d.line {
			end = d.line
		}

		id := ir.UnitID(rel, d.name, d.line)
		if seen[id] {
			continue
		}
		seen[id] = true

		units = append(units, ir.SourceUnit{
			ID:        id,
			Path:      rel,
			Language:  lang,
			UnitName:  d.name,
			LineStart: d.line,
			LineEnd:   end,
			LineCount: end - d.line + 1,
		})
	}
	return units, nil
}

// walkSkip converts a walk error into a skip so one unreadable entry never
// aborts the scan: SkipDir moves the walker past an unreadable directory
// subtree, nil moves past a single file.
func walkSkip(d fs.DirEntry) error {
	if d != nil && d.IsDir() {
		return filepath.SkipDir
	}
	return nil
}

// decl is one discovered declaration. end is zero when the extractor
// could not determine it and the line heuristics should run.
type decl struct {
	name string
	line int
	end  int
}
