package moniker

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionComparer(t *testing.T) {
	c := VersionComparer{}
	tests := []struct {
		a, b string
		want int
	}{
		{"v2", "v10", -1},
		{"net6.0", "net8.0", -1},
		{"net8.0", "net6.0", 1},
		{"v1", "v1", 0},
		{"v1.2", "v1.10", -1},
		{"v1", "v1.1", -1},
		{"v01", "v1", -1}, // textual tie-break only
	}
	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			got := c.Compare(tt.a, tt.b)
			switch {
			case tt.want < 0:
				assert.Negative(t, got)
			case tt.want > 0:
				assert.Positive(t, got)
			default:
				assert.Zero(t, got)
			}
		})
	}
}

func TestVersionComparer_Sort(t *testing.T) {
	ms := []string{"v10", "v2", "v1", "vnext"}
	slices.SortFunc(ms, VersionComparer{}.Compare)
	assert.Equal(t, []string{"v1", "v2", "v10", "vnext"}, ms)
}

func TestRankedComparer(t *testing.T) {
	c := NewRankedComparer([]string{"legacy", "current", "preview"})

	assert.Positive(t, c.Compare("preview", "legacy"))
	assert.Negative(t, c.Compare("legacy", "current"))
	assert.Zero(t, c.Compare("current", "current"))

	// Unknown monikers rank below known ones.
	assert.Negative(t, c.Compare("v99", "legacy"))
	assert.Positive(t, c.Compare("legacy", "v99"))
	assert.Negative(t, c.Compare("v2", "v10"))
}

func TestHighest(t *testing.T) {
	assert.Equal(t, "", Highest(VersionComparer{}, nil))
	assert.Equal(t, "v10", Highest(VersionComparer{}, []string{"v2", "v10", "v1"}))
	assert.Equal(t, "a", Highest(NewRankedComparer([]string{"b", "a"}), []string{"a", "b"}))
}

func TestFromOrder(t *testing.T) {
	assert.IsType(t, VersionComparer{}, FromOrder(nil))
	assert.IsType(t, &RankedComparer{}, FromOrder([]string{"v1"}))
}

func TestProvider_FileMonikers(t *testing.T) {
	p, err := NewProvider([]Rule{
		{Glob: "v1/**", Monikers: []string{"v1"}},
		{Glob: "**/*.md", Monikers: []string{"docs"}},
		{Glob: "v1/api/*.yml", Monikers: []string{"v1", "api"}},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"v2"}, p.FileMonikers("v1/a.md", []string{"v2"}))
	assert.Equal(t, []string{"v1", "docs"}, p.FileMonikers("v1/a.md", nil))
	assert.Equal(t, []string{"v1", "api"}, p.FileMonikers("v1/api/x.yml", nil))
	assert.Empty(t, p.FileMonikers("other/x.yml", nil))
}

func TestNewProvider_InvalidGlob(t *testing.T) {
	for _, glob := range []string{"[", "v1/{api,cli", "v1/**/[a-"} {
		_, err := NewProvider([]Rule{{Glob: glob, Monikers: []string{"x"}}})
		require.Error(t, err, glob)
	}

	_, err := NewProvider([]Rule{{Glob: "v1/{api,cli}/**", Monikers: []string{"v1"}}})
	require.NoError(t, err)
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.Nil(t, p.FileMonikers("a.md", nil))
}
