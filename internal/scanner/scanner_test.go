package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reqtrace/reqtrace/internal/ir"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

const goSample = `package nav

func computeDistance(lat1, lon1, lat2, lon2 float64) float64 {
	if lat1 < 0 {
		return 0
	}
	return lat2 - lat1
}

type Tracker struct {
	id string
}

func (t *Tracker) validateInput(data float64) error {
	return nil
}
`

func TestScanRoot_GoUnits(t *testing.T) {
	root := writeTree(t, map[string]string{"nav/geo.go": goSample})

	units, err := New(nil).ScanRoot(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, units, 3)

	names := make(map[string]ir.SourceUnit, len(units))
	for _, u := range units {
		names[u.UnitName] = u
	}

	cd, ok := names["computeDistance"]
	require.True(t, ok, "computeDistance not found")
	assert.Equal(t, "nav/geo.go", cd.Path)
	assert.Equal(t, ir.LangGo, cd.Language)
	assert.Equal(t, 3, cd.LineStart)
	assert.Equal(t, 8, cd.LineEnd)
	assert.Equal(t, 6, cd.LineCount)
	assert.Equal(t, ir.UnitID("nav/geo.go", "computeDistance", 3), cd.ID)

	tr, ok := names["Tracker"]
	require.True(t, ok, "Tracker type not found")
	assert.Equal(t, 10, tr.LineStart)

	vi, ok := names["validateInput"]
	require.True(t, ok, "validateInput method not found")
	assert.Equal(t, 14, vi.LineStart)
	assert.Equal(t, 16, vi.LineEnd)
}

func TestScanRoot_SkipsExcludedDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/app.js":              "function main() {\n  run()\n}\n",
		"node_modules/dep/lib.js": "function hidden() {\n}\n",
		"vendor/pkg/util.go":      "package pkg\n\nfunc Hidden() {\n}\n",
	})

	units, err := New(nil).ScanRoot(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "main", units[0].UnitName)
	assert.Equal(t, "src/app.js", units[0].Path)
}

func TestScanRoot_MissingRoot(t *testing.T) {
	_, err := New(nil).ScanRoot(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestScanRoot_UnsupportedFilesIgnored(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":  "# readme\n",
		"data.json":  "{}\n",
		"script.py":  "def process_feed(data):\n    return data\n",
		"styles.css": "body {}\n",
	})

	units, err := New(nil).ScanRoot(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, units, 1)
	assert.Equal(t, "process_feed", units[0].UnitName)
	assert.Equal(t, ir.LangPython, units[0].Language)
}

func TestHeuristicDecls_JavaScript(t *testing.T) {
	src := `export function parseFeed(raw) {
  return JSON.parse(raw)
}

const renderPanel = (data) => {
  draw(data)
}

class FeedClient {
  connect() {
    this.open()
  }
  if (x) {
  }
}
`
	decls := heuristicDecls([]byte(src), ".js")
	var names []string
	for _, d := range decls {
		names = append(names, d.name)
	}
	// Keyword lines ("if") are filtered out.
	assert.Equal(t, []string{"parseFeed", "renderPanel", "FeedClient", "connect"}, names)
}

func TestHeuristicDecls_Rust(t *testing.T) {
	src := `pub struct Tile {
    data: Vec<u8>,
}

impl Tile {
    pub fn decode(&self) -> Result<(), Error> {
        Ok(())
    }
}

pub(crate) async fn fetch_tile<T>(url: T) {}
`
	decls := heuristicDecls([]byte(src), ".rs")
	var names []string
	for _, d := range decls {
		names = append(names, d.name)
	}
	assert.Equal(t, []string{"Tile", "Tile", "decode", "fetch_tile"}, names)
}

func TestEstimateEnd_PythonIndent(t *testing.T) {
	lines := []string{
		"def outer():",
		"    x = 1",
		"",
		"    # comment",
		"    return x",
		"def next_fn():",
		"    pass",
	}
	assert.Equal(t, 5, estimateEnd(lines, 1, ".py"))
}

func TestEstimateEnd_BraceBalance(t *testing.T) {
	lines := []string{
		"function f() {",
		"  if (a) {",
		"    b()",
		"  }",
		"}",
		"function g() {}",
	}
	assert.Equal(t, 5, estimateEnd(lines, 1, ".js"))
	assert.Equal(t, 6, estimateEnd(lines, 6, ".js"))
}

type stubEntry struct{ dir bool }

func (e stubEntry) Name() string               { return "blocked" }
func (e stubEntry) IsDir() bool                { return e.dir }
func (e stubEntry) Info() (fs.FileInfo, error) { return nil, fs.ErrInvalid }

func (e stubEntry) Type() fs.FileMode {
	if e.dir {
		return fs.ModeDir
	}
	return 0
}

func TestWalkSkip(t *testing.T) {
	assert.Equal(t, filepath.SkipDir, walkSkip(stubEntry{dir: true}))
	assert.NoError(t, walkSkip(stubEntry{dir: false}))

	// WalkDir hands the callback a nil entry when the root itself
	// cannot be statted.
	assert.NoError(t, walkSkip(nil))
}
