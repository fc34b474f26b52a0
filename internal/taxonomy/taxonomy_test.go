package taxonomy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_CompilesEmbeddedTables(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	assert.NotEmpty(t, tax.Verbs)
	assert.NotEmpty(t, tax.Domains)

	// Every domain carries a fallback template and a system requirement text.
	for _, d := range tax.Domains {
		assert.NotEmpty(t, d.Fallback, "domain %s missing fallback", d.Name)
		assert.NotEmpty(t, d.SysText, "domain %s missing sysText", d.Name)
	}

	// The default domain must exist and have no keywords of its own.
	def := tax.DomainByName(DefaultDomain)
	assert.Equal(t, DefaultDomain, def.Name)
	assert.Empty(t, def.Keywords)
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		name string
		want []string
	}{
		{"computeDistance", []string{"compute", "distance"}},
		{"validate_input", []string{"validate", "input"}},
		{"HTTPServerStart", []string{"http", "server", "start"}},
		{"fetchTerrainElevation", []string{"fetch", "terrain", "elevation"}},
		{"x", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SplitName(tt.name), "SplitName(%q)", tt.name)
	}
}

func TestCategoryForWord_LongestTokenWins(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	// "calculate" contains both "calculate" (compute) and no longer token
	// elsewhere; the compute rule must win.
	cat, ok := tax.CategoryForWord("calculate")
	require.True(t, ok)
	assert.Equal(t, "compute", cat)

	// "checkpoint" contains "check" (validate).
	cat, ok = tax.CategoryForWord("checkpoint")
	require.True(t, ok)
	assert.Equal(t, "validate", cat)

	_, ok = tax.CategoryForWord("zzz")
	assert.False(t, ok)
}

func TestClassifyBehaviors(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	// computeDistance and validateInput from the same cluster: compute and
	// validate each count once; nothing falls through to the default.
	behaviors := tax.ClassifyBehaviors([]string{"computeDistance", "validateInput"})
	require.Len(t, behaviors, 2)
	got := map[string]int{}
	for _, b := range behaviors {
		got[b.Category] = b.Count
	}
	assert.Equal(t, map[string]int{"compute": 1, "validate": 1}, got)

	// A name with no verb token counts toward the default category.
	behaviors = tax.ClassifyBehaviors([]string{"thing"})
	require.Len(t, behaviors, 1)
	assert.Equal(t, DefaultCategory, behaviors[0].Category)
}

func TestClassifyBehaviors_TieBrokenByDeclarationOrder(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	// compute is declared before validate; with equal counts it ranks first.
	behaviors := tax.ClassifyBehaviors([]string{"validateInput", "computeDistance"})
	require.Len(t, behaviors, 2)
	assert.Equal(t, "compute", behaviors[0].Category)
	assert.Equal(t, "validate", behaviors[1].Category)
}

func TestClassifyDomain(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	tests := []struct {
		path string
		want string
	}{
		{"services/ingest/feed.go", "INGEST"},
		{"internal/fusion/tracker.go", "FUSION"},
		{"web/ui/panel.js", "UI"},
		{"terrain/tiles.rs", "TERRAIN"},
		{"pkg/alerts/threshold.go", "SAFETY"},
		{"misc/notes.py", "OTHER"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tax.ClassifyDomain(tt.path), "path %q", tt.path)
	}
}

func TestTemplateFor(t *testing.T) {
	tax, err := Load()
	require.NoError(t, err)

	safety := tax.DomainByName("SAFETY")

	primary, secondary := safety.TemplateFor([]BehaviorCount{
		{Category: "validate", Count: 3},
		{Category: "monitor", Count: 1},
	})
	assert.Equal(t, "evaluate safety thresholds and trigger alerting when limits are exceeded", primary)
	assert.Equal(t, "continuously monitor safety-critical parameters against defined limits", secondary)

	// No matching category falls back to the domain default, no secondary.
	primary, secondary = safety.TemplateFor([]BehaviorCount{{Category: "render", Count: 2}})
	assert.Equal(t, safety.Fallback, primary)
	assert.Empty(t, secondary)
}
