package xref

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/report"
)

func freeze(t *testing.T, cmp moniker.Comparer, recs ...*XrefRecord) (*Registry, []Conflict) {
	t.Helper()
	c := NewCollector()
	c.Add(recs...)
	return c.Freeze(cmp)
}

func TestFreeze_UnconditionalFirst(t *testing.T) {
	reg, conflicts := freeze(t, moniker.VersionComparer{},
		NewRecord("x", "b.html", "b.md").WithMonikers("v1"),
		NewRecord("x", "a.html", "a.md"),
	)
	require.Empty(t, conflicts)

	got := reg.Lookup("x")
	require.Len(t, got, 2)
	assert.Equal(t, "a.html", got[0].Href)
	assert.Equal(t, "b.html", got[1].Href)
}

func TestFreeze_DuplicateUnconditionalDropped(t *testing.T) {
	reg, conflicts := freeze(t, moniker.VersionComparer{},
		NewRecord("y", "f2.html", "F2.md"),
		NewRecord("y", "f1.html", "F1.md"),
		NewRecord("other", "o.html", "o.md"),
	)

	assert.False(t, reg.Has("y"))
	assert.True(t, reg.Has("other"))
	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, "y", c.UID)
	assert.Equal(t, ConflictUnconditional, c.Kind)
	assert.Equal(t, []string{"F1.md", "F2.md"}, c.Files)
	assert.True(t, stderrors.Is(c, ErrUIDConflict))
	assert.Contains(t, c.Error(), "F1.md")
	assert.Contains(t, c.Error(), "F2.md")
}

func TestFreeze_OverlappingMonikersDropped(t *testing.T) {
	reg, conflicts := freeze(t, moniker.VersionComparer{},
		NewRecord("z", "z1.html", "z1.md").WithMonikers("v1"),
		NewRecord("z", "z2.html", "z2.md").WithMonikers("v1", "v2"),
	)

	assert.False(t, reg.Has("z"))
	require.Len(t, conflicts, 1)
	assert.Equal(t, ConflictMonikers, conflicts[0].Kind)
	assert.Equal(t, []string{"v1"}, conflicts[0].Monikers)
	assert.Equal(t, []string{"z1.md", "z2.md"}, conflicts[0].Files)
	assert.Contains(t, conflicts[0].Error(), "v1")

	is := conflicts[0].Issue()
	assert.Equal(t, report.IssueUIDConflict, is.Code)
	assert.Equal(t, report.SeverityError, is.Severity)
	assert.Equal(t, "z1.md", is.File)
	assert.Equal(t, []string{"z1.md", "z2.md"}, is.Files)
}

func TestFreeze_OneConflictPerUID(t *testing.T) {
	_, conflicts := freeze(t, moniker.VersionComparer{},
		NewRecord("u", "1.html", "1.md"),
		NewRecord("u", "2.html", "2.md"),
		NewRecord("u", "3.html", "3.md").WithMonikers("v1"),
		NewRecord("u", "4.html", "4.md").WithMonikers("v1"),
	)
	require.Len(t, conflicts, 1)
	assert.Equal(t, []string{"1.md", "2.md", "3.md", "4.md"}, conflicts[0].Files)
}

func TestFreeze_ConditionalOrderedByRank(t *testing.T) {
	cmp := moniker.NewRankedComparer([]string{"v1", "v2", "v3"})
	reg, conflicts := freeze(t, cmp,
		NewRecord("api", "v1.html", "v1.md").WithMonikers("v1"),
		NewRecord("api", "v3.html", "v3.md").WithMonikers("v3"),
		NewRecord("api", "v2.html", "v2.md").WithMonikers("v2"),
	)
	require.Empty(t, conflicts)

	var hrefs []string
	for _, r := range reg.Lookup("api") {
		hrefs = append(hrefs, r.Href)
	}
	assert.Equal(t, []string{"v3.html", "v2.html", "v1.html"}, hrefs)
}

func TestFreeze_RankUsesHighestMoniker(t *testing.T) {
	reg, _ := freeze(t, moniker.VersionComparer{},
		NewRecord("m", "old.html", "old.md").WithMonikers("v1", "v2"),
		NewRecord("m", "new.html", "new.md").WithMonikers("v10"),
	)
	assert.Equal(t, "new.html", reg.Lookup("m")[0].Href)
}

func TestFreeze_DeterministicRegardlessOfInputOrder(t *testing.T) {
	recs := func() []*XrefRecord {
		return []*XrefRecord{
			NewRecord("d", "a.html", "a.md"),
			NewRecord("d", "c.html", "c.md").WithMonikers("unknown-b"),
			NewRecord("d", "b.html", "b.md").WithMonikers("unknown-a"),
		}
	}
	cmp := moniker.NewRankedComparer([]string{"known"})

	first, _ := freeze(t, cmp, recs()...)
	r := recs()
	second, _ := freeze(t, cmp, r[2], r[1], r[0])

	var a, b []string
	for _, rec := range first.Lookup("d") {
		a = append(a, rec.Href)
	}
	for _, rec := range second.Lookup("d") {
		b = append(b, rec.Href)
	}
	assert.Equal(t, a, b)
	assert.Equal(t, "a.html", a[0])
}

func TestCollector_IgnoresEmptyUID(t *testing.T) {
	c := NewCollector()
	c.Add(NewRecord("", "x.html", "x.md"), nil, NewRecord("ok", "ok.html", "ok.md"))
	assert.Equal(t, 1, c.Len())
}
