package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neurodesk/stringtemplate/internal/testutil"
	"github.com/neurodesk/stringtemplate/pkg/attrs"
	"github.com/neurodesk/stringtemplate/pkg/filterext"
)

func testFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("strtmpl", pflag.ContinueOnError)
	flags.String("config", defaultConfigFile, "")
	addConfigFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), testFlags(t))
	require.NoError(t, err)

	assert.Equal(t, conditionsTruth, cfg.Conditions)
	assert.False(t, cfg.TrimBlocks)
	assert.Equal(t, filterext.Names(), cfg.Extensions)
	assert.Empty(t, cfg.FilterScripts)
	assert.NotEmpty(t, cfg.CacheDir)
	assert.Empty(t, cfg.File)
}

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "strtmpl.yaml", `
templates_dir: from-file
trim_blocks: true
conditions: starlark
extensions: [trim]
cache_dir: file-cache
`)
	t.Setenv("STRTMPL_TEMPLATES_DIR", "from-env")
	t.Setenv("STRTMPL_CACHE_DIR", "env-cache")

	cfg, err := loadConfig(path, testFlags(t, "--config", path, "--templates-dir", "from-flag", "--strict-filters"))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.File)
	assert.Equal(t, "from-flag", cfg.TemplatesDir)
	assert.Equal(t, "env-cache", cfg.CacheDir)
	assert.True(t, cfg.TrimBlocks)
	assert.True(t, cfg.StrictFilters)
	assert.Equal(t, conditionsStarlark, cfg.Conditions)
	assert.Equal(t, []string{"trim"}, cfg.Extensions)
}

func TestLoadConfigFilterScriptFlag(t *testing.T) {
	cfg, err := loadConfig("", testFlags(t, "--filter-script", "a.star", "--filter-script", "b.star", "--extensions", "title,trim"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.star", "b.star"}, cfg.FilterScripts)
	assert.Equal(t, []string{"title", "trim"}, cfg.Extensions)
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope.yaml")

	_, err := loadConfig(missing, testFlags(t, "--config", missing))
	require.Error(t, err, "an explicit --config must exist")

	_, err = loadConfig("", testFlags(t, "--conditions", "lua"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conditions must be one of")

	bad := writeFile(t, dir, "bad.yaml", "extensions: [trim, shout]\n")
	_, err = loadConfig(bad, testFlags(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extensions")

	dup := writeFile(t, dir, "dup.yaml", "filter_scripts: [a.star, a.star]\n")
	_, err = loadConfig(dup, testFlags(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestConfigEnvironment(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tmpl/footer.txt", "-- {{ name|title }}\n")
	script := writeFile(t, dir, "filters.star", `
def shout(v):
    return v.upper() + "!"
`)

	cfg := &Config{
		TemplatesDir:  filepath.Join(dir, "tmpl"),
		TrimBlocks:    true,
		Conditions:    conditionsStarlark,
		CacheDir:      filepath.Join(dir, "cache"),
		Extensions:    []string{"title"},
		FilterScripts: []string{script},
	}
	s, err := cfg.newSession(context.Background(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	env := s.env
	assert.Nil(t, s.bundle)
	assert.Equal(t, []string{"shout", "title"}, env.Filters())
	assert.True(t, env.TrimBlocks())

	src := "{% if n > 2 %}\n{{ name|shout }}\n{% endif %}\n{% include footer.txt %}"
	out, err := env.NewTemplate("page", src).Render(attrs.FromMap(map[string]any{"n": 3, "name": "ada lovelace"}))
	require.NoError(t, err)
	assert.Equal(t, "ADA LOVELACE!\n-- Ada Lovelace\n", out)
}

func TestConfigEnvironmentMissingScript(t *testing.T) {
	cfg := &Config{
		Conditions:    conditionsTruth,
		CacheDir:      t.TempDir(),
		FilterScripts: []string{filepath.Join(t.TempDir(), "none.star")},
	}
	_, err := cfg.newSession(context.Background(), testutil.NewTestLogger(t))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestSessionBundleBeforeTemplatesDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bundles/site.yaml", `name: site
templates:
  header:
    arguments:
      defaults:
        title: Untitled
    source: "# {{ title }}"
`)
	writeFile(t, dir, "tmpl/header", "shadowed")
	writeFile(t, dir, "tmpl/footer", "-- end")

	cfg := &Config{
		TemplatesDir: filepath.Join(dir, "tmpl"),
		BundleDir:    filepath.Join(dir, "bundles"),
		Conditions:   conditionsTruth,
		CacheDir:     filepath.Join(dir, "cache"),
	}
	s, err := cfg.newSession(context.Background(), testutil.NewTestLogger(t))
	require.NoError(t, err)
	require.NotNil(t, s.bundle)

	out, err := s.env.NewTemplate("page", "{% include header %}\n{% include footer %}").Render(attrs.FromMap(map[string]any{"title": "Home"}))
	require.NoError(t, err)
	assert.Equal(t, "# Home\n-- end", out)

	cfg.BundleDir = filepath.Join(dir, "missing")
	_, err = cfg.newSession(context.Background(), testutil.NewTestLogger(t))
	require.Error(t, err)
}
