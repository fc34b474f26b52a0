package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "trace.db", cfg.StorePath)
	assert.Equal(t, "tests", cfg.ScriptsDir)
	assert.Equal(t, "SDD.md", cfg.OutputPath)
	assert.Empty(t, cfg.SkipDirs)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	yaml := `store_path: project/trace.db
scripts_dir: verification
skip_dirs:
  - generated
  - third_party
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reqtrace.yaml"), []byte(yaml), 0o644))
	chdir(t, dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "project/trace.db", cfg.StorePath)
	assert.Equal(t, "verification", cfg.ScriptsDir)
	assert.Equal(t, "SDD.md", cfg.OutputPath)
	assert.Equal(t, []string{"generated", "third_party"}, cfg.SkipDirs)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reqtrace.yaml"),
		[]byte("store_path: from-file.db\n"), 0o644))
	chdir(t, dir)
	t.Setenv("REQTRACE_STORE_PATH", "from-env.db")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env.db", cfg.StorePath)
}

func TestLoad_MalformedFileIsError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "reqtrace.yaml"),
		[]byte(":\n  - not valid yaml"), 0o644))
	chdir(t, dir)

	_, err := Load()
	assert.Error(t, err)
}
