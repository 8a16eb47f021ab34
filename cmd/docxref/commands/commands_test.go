package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/build"
	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

func init() {
	color.NoColor = true
}

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"docxref.yaml": "version: \"1\"\n" +
			"content:\n  root: docs\n" +
			"schemas:\n  - name: ManagedReference\n" +
			"output:\n  directory: site\n" +
			"build:\n  concurrency: 2\n  dependency_db: .docxref/deps.db\n",
		"docs/index.md":       "---\nuid: home\ntitle: Home\n---\nSee [](xref:api.Foo).\n",
		"docs/api/foo.yml":    "### YamlMime:ManagedReference\nitems:\n- uid: api.Foo\n  name: Foo\n  fullName: Api.Foo\n",
		"docs/toc.yml":        "- name: Home\n  href: index.md\n",
		"docs/guide/intro.md": "# Intro\n\n[broken](xref:missing)\n",
	}
	for rel, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	}
	return dir
}

func TestParseLogLevel(t *testing.T) {
	t.Setenv("DOCXREF_LOG_LEVEL", "")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
	assert.Equal(t, slog.LevelDebug, parseLogLevel(true))

	t.Setenv("DOCXREF_LOG_LEVEL", "warn")
	assert.Equal(t, slog.LevelWarn, parseLogLevel(true))

	t.Setenv("DOCXREF_LOG_LEVEL", "nonsense")
	assert.Equal(t, slog.LevelInfo, parseLogLevel(false))
}

func TestPrintSummary(t *testing.T) {
	rep := report.New("b1")
	rep.Issues = append(rep.Issues, report.Issue{
		Code:     report.IssueXrefNotFound,
		Severity: report.SeverityWarning,
		Message:  "unable to resolve xref:nope",
		File:     "index.md",
		Line:     4,
	})
	rep.Finish()

	var buf bytes.Buffer
	printSummary(&buf, rep)
	out := buf.String()
	assert.Contains(t, out, "warning XREF_NOT_FOUND index.md:4: unable to resolve xref:nope")
	assert.Contains(t, out, "outcome=warning")
}

func TestBuildCmd_Strict(t *testing.T) {
	dir := writeProject(t)
	root := &CLI{Config: filepath.Join(dir, "docxref.yaml")}

	require.NoError(t, (&BuildCmd{}).Run(&Global{}, root))
	assert.FileExists(t, filepath.Join(dir, "site", "index.html"))
	assert.FileExists(t, filepath.Join(dir, "site", "xrefmap.yml"))

	err := (&BuildCmd{Strict: true}).Run(&Global{}, root)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryBuild, errors.GetCategory(err))
}

func TestBuildCmd_OutputOverride(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(t.TempDir(), "public")
	root := &CLI{Config: filepath.Join(dir, "docxref.yaml")}

	require.NoError(t, (&BuildCmd{Output: out, Offline: true}).Run(&Global{}, root))
	assert.FileExists(t, filepath.Join(out, "api", "foo.html"))
}

func TestResolveCmd(t *testing.T) {
	dir := writeProject(t)
	cfg, err := config.Load(filepath.Join(dir, "docxref.yaml"))
	require.NoError(t, err)
	sess, err := build.NewService().Prepare(t.Context(), cfg)
	require.NoError(t, err)

	cmd := &ResolveCmd{Query: "api.Foo?displayProperty=fullName#members", Property: []string{"fullName", "absent"}}
	out, err := cmd.resolve(sess.Resolver)
	require.NoError(t, err)
	assert.Equal(t, "api/foo.html#members", out.Href)
	assert.Equal(t, "Api.Foo", out.Text)
	assert.Equal(t, "internal", out.Source)
	assert.Equal(t, "api/foo.yml", out.DeclaringFile)
	assert.Equal(t, map[string]any{"fullName": "Api.Foo"}, out.Properties)

	var buf bytes.Buffer
	require.NoError(t, cmd.print(&buf, out))
	assert.Contains(t, buf.String(), "href:   api/foo.html#members")
	assert.Contains(t, buf.String(), "fullName: Api.Foo")

	_, err = (&ResolveCmd{Query: "missing"}).resolve(sess.Resolver)
	require.Error(t, err)
	assert.Equal(t, errors.CategoryXref, errors.GetCategory(err))
}

func TestXrefmapCmd_Write(t *testing.T) {
	model := &xrefmap.Model{References: []map[string]any{{"uid": "a", "href": "a.html"}}}

	var buf bytes.Buffer
	require.NoError(t, (&XrefmapCmd{Format: "yaml"}).write(&buf, model))
	assert.Contains(t, buf.String(), "uid: a")

	buf.Reset()
	require.NoError(t, (&XrefmapCmd{Format: "json"}).write(&buf, model))
	assert.Contains(t, buf.String(), `"uid": "a"`)
}

func TestDepsCmd(t *testing.T) {
	dir := writeProject(t)
	root := &CLI{Config: filepath.Join(dir, "docxref.yaml")}

	err := (&DepsCmd{File: "api/foo.yml"}).Run(&Global{}, root)
	require.Error(t, err, "dependency database does not exist before the first build")

	require.NoError(t, (&BuildCmd{}).Run(&Global{}, root))
	require.NoError(t, (&DepsCmd{File: "api/foo.yml"}).Run(&Global{}, root))
	require.NoError(t, (&DepsCmd{File: "index.md", Uses: true}).Run(&Global{}, root))
}

func TestInitCmd(t *testing.T) {
	dir := t.TempDir()
	root := &CLI{Config: "docxref.yaml"}

	require.NoError(t, (&InitCmd{Output: dir, TOML: true}).Run(&Global{}, root))
	cfg, err := config.Load(filepath.Join(dir, "docxref.toml"))
	require.NoError(t, err)
	assert.Equal(t, config.CurrentVersion, cfg.Version)

	require.Error(t, (&InitCmd{Output: dir, TOML: true}).Run(&Global{}, root))
	require.NoError(t, (&InitCmd{Output: dir, TOML: true, Force: true}).Run(&Global{}, root))
}
