package htmlxref

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

type fakeResolver map[string][2]string

func (f fakeResolver) ResolveHref(href, _ string) (string, string, string, error) {
	q, err := xref.ParseQuery(href)
	if err != nil {
		return "", "", "", err
	}
	hit, ok := f[q.UID]
	if !ok {
		return "", q.UID, "", fmt.Errorf("%w: %s", xref.ErrXrefNotFound, q.UID)
	}
	text := hit[1]
	if q.Text != "" {
		text = q.Text
	}
	return hit[0], text, "decl.md", nil
}

var resolver = fakeResolver{
	"guide.intro": {"guide/intro.html", "Introduction"},
	"api.foo":     {"api/foo.html#api_foo", "Foo"},
	"ext":         {"https://example.com/ext.html", "External"},
}

func rewrite(t *testing.T, in, outputPath string) (string, Result) {
	t.Helper()
	out, res, err := RewriteBytes([]byte(in), Page{File: "src.md", OutputPath: outputPath}, resolver)
	require.NoError(t, err)
	return string(out), res
}

func TestRewrite_AnchorWithAuthorText(t *testing.T) {
	out, res := rewrite(t, `<p>See <a href="xref:guide.intro">the intro</a>.</p>`, "api/page.html")
	assert.Equal(t, `<p>See <a href="../guide/intro.html" class="xref">the intro</a>.</p>`, out)
	assert.Equal(t, 1, res.Resolved)
	assert.Empty(t, res.Issues)
}

func TestRewrite_AutolinkUsesDisplayText(t *testing.T) {
	out, _ := rewrite(t, `<p><a href="xref:api.foo">xref:api.foo</a></p>`, "index.html")
	assert.Equal(t, `<p><a href="api/foo.html#api_foo" class="xref">Foo</a></p>`, out)
}

func TestRewrite_XrefElement(t *testing.T) {
	out, res := rewrite(t, `<p><xref href="guide.intro?text=Start"></xref> and <xref uid="ext"/>done</p>`, "guide/other.html")
	assert.Equal(t, `<p><a class="xref" href="intro.html">Start</a> and <a class="xref" href="https://example.com/ext.html">External</a>done</p>`, out)
	assert.Equal(t, 2, res.Resolved)
}

func TestRewrite_UnresolvedDegradesToSpan(t *testing.T) {
	out, res := rewrite(t, `<p><a href="xref:missing">Missing link</a> <xref href="gone"></xref></p>`, "index.html")
	assert.Equal(t, `<p><span class="xref">Missing link</span> <span class="xref">gone</span></p>`, out)
	assert.Equal(t, 2, res.Unresolved)
	require.Len(t, res.Issues, 2)
	assert.Equal(t, report.IssueXrefNotFound, res.Issues[0].Code)
	assert.Equal(t, "src.md", res.Issues[0].File)
}

func TestRewrite_LeavesOtherLinksAlone(t *testing.T) {
	in := `<p><a href="https://example.com">x</a> <a href="other.html">y</a></p>`
	out, res := rewrite(t, in, "index.html")
	assert.Equal(t, in, out)
	assert.Zero(t, res.Resolved+res.Unresolved)
}

func TestRelativeHref(t *testing.T) {
	cases := []struct {
		page, target, want string
	}{
		{"index.html", "guide/intro.html", "guide/intro.html"},
		{"api/foo.html", "guide/intro.html#x", "../guide/intro.html#x"},
		{"a/b.html", "a/c.html", "c.html"},
		{"a/b.html", "a/b.html#frag", "#frag"},
		{"a/b.html", "/rooted.html", "/rooted.html"},
		{"a/b.html", "https://example.com/x", "https://example.com/x"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RelativeHref(tc.page, tc.target), "%s -> %s", tc.page, tc.target)
	}
}
