package xref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	q, err := ParseQuery("xref:myUid?view=v2&text=Custom&tabs=1#frag")
	require.NoError(t, err)
	assert.Equal(t, "myUid", q.UID)
	assert.Equal(t, "v2", q.Moniker)
	assert.Equal(t, "Custom", q.Text)
	assert.Equal(t, "1", q.Params.Get("tabs"))
	assert.Empty(t, q.Params.Get("view"))
	assert.True(t, q.HasFragment)
	assert.Equal(t, "frag", q.Fragment)
}

func TestParseQuery_EscapedUID(t *testing.T) {
	q, err := ParseQuery("System.Collections.Generic.List%601")
	require.NoError(t, err)
	assert.Equal(t, "System.Collections.Generic.List`1", q.UID)
	assert.False(t, q.HasFragment)
}

func TestParseQuery_Errors(t *testing.T) {
	_, err := ParseQuery("xref:?text=x")
	require.Error(t, err)
	_, err = ParseQuery("uid?text=%zz")
	require.Error(t, err)
}

func TestMergeHref(t *testing.T) {
	tests := []struct {
		name   string
		href   string
		query  string
		host   string
		expect string
	}{
		{"keeps record fragment", "page.html#frag", "u?view=v2&text=Custom", "", "page.html#frag"},
		{"caller fragment wins", "page.html#frag", "u#other", "", "page.html#other"},
		{"passes extra params", "page.html?a=1#f", "u?b=2&view=v1", "", "page.html?a=1&b=2#f"},
		{"strips own host", "https://docs.example.com/a/b.html", "u", "docs.example.com", "/a/b.html"},
		{"keeps foreign host", "https://other.example.com/a.html", "u", "docs.example.com", "https://other.example.com/a.html"},
		{"empty caller fragment", "page.html#frag", "u#", "", "page.html#"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := ParseQuery(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.expect, mergeHref(tt.href, q, tt.host))
		})
	}
}
