package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/retry"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoad_YAMLWithDefaults(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "docxref.yaml", `
content:
  root: docs
xref:
  maps:
    - maps/local.yml
    - https://example.com/xrefmap.json
monikers:
  order: [v1, v2]
  rules:
    - glob: "v1/**"
      monikers: [v1]
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, CurrentVersion, cfg.Version)
	assert.Equal(t, "_site", cfg.Output.Directory)
	assert.Equal(t, "xrefmap.yml", cfg.Output.XrefMap)
	assert.Equal(t, defaultCacheSize, cfg.Xref.CacheSize)
	assert.Positive(t, cfg.Build.Concurrency)
	assert.Contains(t, cfg.Content.Include, "**/*.md")
	require.Len(t, cfg.Monikers.Rules, 1)
	assert.Equal(t, []string{"v1"}, cfg.Monikers.Rules[0].Monikers)

	assert.Equal(t, filepath.Join(dir, "docs"), cfg.Path(cfg.Content.Root))
	assert.Equal(t, []string{filepath.Join(dir, "maps", "local.yml"), "https://example.com/xrefmap.json"}, cfg.MapSources())
}

func TestLoad_TOML(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "docxref.toml", `
version = "1"

[content]
root = "src"

[xref]
site_host = "docs.example.com"

[[schemas]]
name = "ManagedReference"
files = ["api/**/*.yml"]
items = ["$.items[*]"]

[build]
concurrency = 2
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "src", cfg.Content.Root)
	assert.Equal(t, "docs.example.com", cfg.Xref.SiteHost)
	assert.Equal(t, 2, cfg.Build.Concurrency)
	require.Contains(t, cfg.SchemaMap(), "ManagedReference")
	assert.Equal(t, []string{"api/**/*.yml"}, cfg.SchemaMap()["ManagedReference"].Files)
}

func TestLoad_ExpandsEnvFromDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCXREF_TEST_HOST", "")
	require.NoError(t, os.Unsetenv("DOCXREF_TEST_HOST"))
	writeFile(t, dir, ".env", "DOCXREF_TEST_HOST=from-dotenv.example.com\n")
	p := writeFile(t, dir, "docxref.yaml", "xref:\n  site_host: ${DOCXREF_TEST_HOST}\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv.example.com", cfg.Xref.SiteHost)
}

func TestLoad_DotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DOCXREF_TEST_HOST", "process.example.com")
	writeFile(t, dir, ".env", "DOCXREF_TEST_HOST=from-dotenv.example.com\n")
	p := writeFile(t, dir, "docxref.yaml", "xref:\n  site_host: ${DOCXREF_TEST_HOST}\n")

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "process.example.com", cfg.Xref.SiteHost)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))

	cases := map[string]string{
		"version":     "version: \"9\"\n",
		"glob":        "content:\n  include: [\"[\"]\n",
		"schema":      "schemas:\n  - name: \"\"\n",
		"dup schema":  "schemas:\n  - name: A\n  - name: A\n",
		"offline":     "xref:\n  offline: true\n  refresh: true\n",
		"same output": "content:\n  root: site\noutput:\n  directory: site\n",
		"moniker":     "monikers:\n  order: [v1, v1]\n",
		"bad yaml":    "content: [\n",
		"retries":     "xref:\n  fetch:\n    retries: -1\n",
		"backoff":     "xref:\n  fetch:\n    backoff: random\n",
		"delay":       "xref:\n  fetch:\n    initial_delay: soon\n",
		"brace glob":  "content:\n  exclude: [\"docs/{a,b\"]\n",
		"schema glob": "schemas:\n  - name: A\n    files: [\"api/[\"]\n",
		"rule glob":   "monikers:\n  rules:\n    - glob: \"v1/{a,b\"\n      monikers: [v1]\n",
	}
	for name, content := range cases {
		p := writeFile(t, dir, "bad.yaml", content)
		_, err := Load(p)
		require.Error(t, err, name)
		assert.True(t, errors.HasCategory(err, errors.CategoryConfig), name)
	}
}

func TestRetryPolicy(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Default(dir)
	require.NoError(t, err)
	assert.Equal(t, retry.DefaultPolicy(), cfg.RetryPolicy())

	p := writeFile(t, dir, "docxref.yaml",
		"xref:\n  fetch:\n    retries: 0\n    backoff: exponential\n    initial_delay: 250ms\n    max_delay: 2s\n")
	cfg, err = Load(p)
	require.NoError(t, err)
	policy := cfg.RetryPolicy()
	assert.Equal(t, 0, policy.MaxRetries)
	assert.Equal(t, retry.BackoffExponential, policy.Mode)
	assert.Equal(t, 250*time.Millisecond, policy.Initial)
	assert.Equal(t, 2*time.Second, policy.Max)
}

func TestInit_RoundTrips(t *testing.T) {
	for _, name := range []string{"docxref.yaml", "docxref.toml"} {
		t.Run(name, func(t *testing.T) {
			p := filepath.Join(t.TempDir(), name)
			require.NoError(t, Init(p, false))
			require.Error(t, Init(p, false))
			require.NoError(t, Init(p, true))

			cfg, err := Load(p)
			require.NoError(t, err)
			assert.Equal(t, Example().Xref.Maps, cfg.Xref.Maps)
			assert.Equal(t, "ManagedReference", cfg.Schemas[0].Name)
		})
	}
}
