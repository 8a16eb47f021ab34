package xref

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

type fakeExternal map[string]*xrefmap.Record

func (f fakeExternal) Lookup(uid string) (*xrefmap.Record, bool, error) {
	rec, ok := f[uid]
	return rec, ok, nil
}

func newTestResolver(t *testing.T, ext ExternalSource, opts Options, recs ...*XrefRecord) *Resolver {
	t.Helper()
	reg, conflicts := freeze(t, moniker.VersionComparer{}, recs...)
	require.Empty(t, conflicts)
	r, err := NewResolver(reg, ext, opts)
	require.NoError(t, err)
	return r
}

func resolve(t *testing.T, r *Resolver, raw, from string) (*Resolved, error) {
	t.Helper()
	q, err := ParseQuery(raw)
	require.NoError(t, err)
	return r.Resolve(NewResolutionContext(from), q, from)
}

func TestResolve_MonikerSelection(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("x", "a.html", "a.md"),
		NewRecord("x", "b.html", "b.md").WithMonikers("v1"),
	)

	res, err := resolve(t, r, "x", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "a.html", res.Href)

	res, err = resolve(t, r, "x?view=v1", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "b.html", res.Href)

	// Unknown monikers fall back to the first record.
	res, err = resolve(t, r, "x?view=v9", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "a.html", res.Href)
}

func TestResolve_HighestConditionalWithoutUnconditional(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("c", "v1.html", "v1.md").WithMonikers("v1"),
		NewRecord("c", "v2.html", "v2.md").WithMonikers("v2"),
	)
	res, err := resolve(t, r, "c", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "v2.html", res.Href)
}

func TestResolve_InternalBeatsExternal(t *testing.T) {
	ext := fakeExternal{
		"shared": {UID: "shared", Href: "https://external.example.com/shared.html"},
		"ext":    {UID: "ext", Href: "https://external.example.com/ext.html", Properties: map[string]any{"name": "External"}},
	}
	r := newTestResolver(t, ext, Options{}, NewRecord("shared", "internal.html", "i.md"))

	res, err := resolve(t, r, "shared", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "internal.html", res.Href)
	assert.NotNil(t, res.Record)

	res, err = resolve(t, r, "ext", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "https://external.example.com/ext.html", res.Href)
	assert.Equal(t, "External", res.DisplayText)
	assert.Empty(t, res.DeclaringFile)
}

func TestResolve_NotFound(t *testing.T) {
	r := newTestResolver(t, fakeExternal{}, Options{})
	_, err := resolve(t, r, "missing", "page.md")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrXrefNotFound))
	assert.True(t, errors.HasCategory(err, errors.CategoryXref))
	assert.Equal(t, errors.SeverityWarning, errors.GetSeverity(err))
}

func TestResolve_QueryOverridesAndFragment(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("myUid", "page.html#frag", "p.md").WithMonikers("v2").Set("name", Literal("My Name")),
	)

	href, text, declaring, err := r.ResolveHref("xref:myUid?view=v2&text=Custom", "index.md")
	require.NoError(t, err)
	assert.Equal(t, "page.html#frag", href)
	assert.Equal(t, "Custom", text)
	assert.Equal(t, "p.md", declaring)
}

func TestResolve_DisplayTextChain(t *testing.T) {
	rec := NewRecord("t", "t.html", "t.md").
		Set("name", Literal("Name")).
		Set("fullName", Literal("Full.Name"))
	bare := NewRecord("bare", "bare.html", "bare.md")
	r := newTestResolver(t, nil, Options{}, rec, bare)

	tests := map[string]string{
		"t?text=Explicit":               "Explicit",
		"t?displayProperty=fullName":    "Full.Name",
		"t?displayProperty=nonexistent": "Name",
		"t":                             "Name",
		"bare":                          "bare",
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			res, err := resolve(t, r, raw, "page.md")
			require.NoError(t, err)
			assert.Equal(t, want, res.DisplayText)
		})
	}
}

func TestResolve_DeferredProperty(t *testing.T) {
	ext := fakeExternal{"System.String": {UID: "System.String", Properties: map[string]any{"name": "String"}}}
	r := newTestResolver(t, ext, Options{},
		NewRecord("alias", "alias.html", "alias.md").Set("name", Deferred("target", "fullName")),
		NewRecord("target", "target.html", "target.md").Set("fullName", Literal("Target.Full")),
		NewRecord("ext-alias", "e.html", "e.md").Set("name", Deferred("System.String", "name")),
		NewRecord("dangling", "d.html", "d.md").Set("name", Deferred("nowhere", "name")),
	)

	res, err := resolve(t, r, "alias", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "Target.Full", res.DisplayText)

	res, err = resolve(t, r, "ext-alias", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "String", res.DisplayText)

	res, err = resolve(t, r, "dangling", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "dangling", res.DisplayText)
}

func TestResolve_CircularDeferredProperty(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("A", "a.html", "a.md").Set("name", Deferred("B", "name")),
		NewRecord("B", "b.html", "b.md").Set("name", Deferred("A", "name")),
	)

	_, err := resolve(t, r, "A", "page.md")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, ErrCircularReference))
	assert.Contains(t, err.Error(), "name@A")
	assert.Contains(t, err.Error(), "name@B")

	// The explicit text override never evaluates properties.
	res, err := resolve(t, r, "A?text=ok", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "ok", res.DisplayText)
}

func TestResolve_SelfReferenceOnDifferentPropertyIsNotACycle(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("S", "s.html", "s.md").
			Set("name", Deferred("S", "fullName")).
			Set("fullName", Literal("S.Full")),
	)
	res, err := resolve(t, r, "S", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "S.Full", res.DisplayText)
}

func TestResolve_ConcurrentCycleDetectionDoesNotDeadlock(t *testing.T) {
	r := newTestResolver(t, nil, Options{CacheSize: 1},
		NewRecord("A", "a.html", "a.md").Set("name", Deferred("B", "name")),
		NewRecord("B", "b.html", "b.md").Set("name", Deferred("A", "name")),
	)

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			uid := "A"
			if i%2 == 1 {
				uid = "B"
			}
			_, _, _, err := r.ResolveHref(uid, fmt.Sprintf("p%d.md", i))
			assert.ErrorIs(t, err, ErrCircularReference)
		}(i)
	}
	wg.Wait()
}

func TestResolve_DependenciesRecordedOnCacheHits(t *testing.T) {
	deps := NewMemoryDependencies()
	r := newTestResolver(t, nil, Options{Dependencies: deps}, NewRecord("d", "d.html", "decl.md"))

	_, _, _, err := r.ResolveHref("d", "one.md")
	require.NoError(t, err)
	_, _, _, err = r.ResolveHref("d", "two.md")
	require.NoError(t, err)
	_, _, _, err = r.ResolveHref("d", "decl.md")
	require.NoError(t, err)

	assert.Equal(t, map[string][]string{"one.md": {"decl.md"}, "two.md": {"decl.md"}}, deps.Edges())
	assert.Equal(t, []string{"decl.md"}, deps.Targets("one.md"))
}

func TestResolveHref_FailureDegradesToUID(t *testing.T) {
	r := newTestResolver(t, nil, Options{})
	href, text, _, err := r.ResolveHref("xref:Gone?text=Shown", "page.md")
	require.Error(t, err)
	assert.Empty(t, href)
	assert.Equal(t, "Shown", text)

	_, text, _, err = r.ResolveHref("xref:Gone", "page.md")
	require.Error(t, err)
	assert.Equal(t, "Gone", text)
}

func TestResolve_SiteHostStripped(t *testing.T) {
	r := newTestResolver(t, nil, Options{SiteHost: "docs.example.com"},
		NewRecord("abs", "https://docs.example.com/api/abs.html#m", "abs.md"))
	href, _, _, err := r.ResolveHref("abs", "page.md")
	require.NoError(t, err)
	assert.Equal(t, "/api/abs.html#m", href)
}

func TestToXrefMapModel(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("b", "b.html", "b.md").Set("name", Deferred("a", "name")),
		NewRecord("a", "a.html", "a.md").Set("name", Literal("A")),
		NewRecord("a", "a1.html", "a1.md").WithMonikers("v1"),
	)

	model, err := r.ToXrefMapModel()
	require.NoError(t, err)
	require.Len(t, model.References, 3)
	assert.Equal(t, "a.html", model.References[0]["href"])
	assert.Equal(t, "a1.html", model.References[1]["href"])
	assert.Equal(t, []string{"v1"}, model.References[1]["monikers"])
	assert.Equal(t, "A", model.References[2]["name"])

	path := filepath.Join(t.TempDir(), "xrefmap.json")
	require.NoError(t, r.WriteXrefMap(path))

	m, err := xrefmap.NewLoader("").Load(context.Background(), []string{path})
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len()) // first reference per uid wins
	rec, ok, err := m.Lookup("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "A", rec.Properties["name"])
}

func TestToXrefMapModel_CycleReported(t *testing.T) {
	r := newTestResolver(t, nil, Options{},
		NewRecord("A", "a.html", "a.md").Set("name", Deferred("B", "name")),
		NewRecord("B", "b.html", "b.md").Set("name", Deferred("A", "name")),
	)
	model, err := r.ToXrefMapModel()
	require.ErrorIs(t, err, ErrCircularReference)
	require.Len(t, model.References, 2)
	assert.NotContains(t, model.References[0], "name")
}
