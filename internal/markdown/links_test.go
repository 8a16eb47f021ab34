package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks_InlineLink(t *testing.T) {
	links := ExtractLinks([]byte("See [API](api.md) for details."), Options{})
	require.Len(t, links, 1)
	require.Equal(t, LinkKindInline, links[0].Kind)
	require.Equal(t, "api.md", links[0].Destination)
	require.Equal(t, "API", links[0].Text)
}

func TestExtractLinks_XrefLinks(t *testing.T) {
	src := []byte("Use [the string type](xref:System.String?displayProperty=fullName) or <xref:System.Int32>.\n")
	links := ExtractLinks(src, Options{})
	require.Len(t, links, 2)

	assert.Equal(t, LinkKindXref, links[0].Kind)
	assert.Equal(t, "System.String?displayProperty=fullName", XrefTarget(links[0].Destination))
	assert.Equal(t, "the string type", links[0].Text)

	assert.Equal(t, LinkKindXref, links[1].Kind)
	assert.Equal(t, "System.Int32", XrefTarget(links[1].Destination))
}

func TestExtractLinks_SkipsCode(t *testing.T) {
	src := []byte("Inline `[Link](xref:ignored)`\n\n```\n[Link](xref:fenced)\n```\n")
	assert.Empty(t, ExtractLinks(src, Options{}))
}

func TestExtractLinks_ImageIsNeverXref(t *testing.T) {
	links := ExtractLinks([]byte("![diagram](xref:not-a-uid)"), Options{})
	require.Len(t, links, 1)
	assert.Equal(t, LinkKindImage, links[0].Kind)
}

func TestIsXrefDestination(t *testing.T) {
	assert.True(t, IsXrefDestination("xref:a"))
	assert.True(t, IsXrefDestination("XREF:a"))
	assert.False(t, IsXrefDestination("xref:"))
	assert.False(t, IsXrefDestination("https://example.com"))
	assert.Empty(t, XrefTarget("a.md"))
}

func TestHeadings(t *testing.T) {
	src := []byte("# [Overview](overview.md)\n## Plain section\n### [String](xref:System.String)\n# <xref:System.Int32>\n")
	hs := Headings(src)
	require.Len(t, hs, 4)

	assert.Equal(t, Heading{Level: 1, Text: "Overview", Destination: "overview.md", Line: 1}, hs[0])
	assert.Equal(t, Heading{Level: 2, Text: "Plain section", Line: 2}, hs[1])
	assert.Equal(t, "xref:System.String", hs[2].Destination)
	assert.Equal(t, 3, hs[2].Level)
	assert.Equal(t, "xref:System.Int32", hs[3].Destination)
}

func TestFirstHeadingAndRender(t *testing.T) {
	body := []byte("Intro\n\n# Getting started\n\n<xref href=\"a\"/>\n")
	assert.Equal(t, "Getting started", FirstHeading(body))

	safe, err := Render(body, Options{})
	require.NoError(t, err)
	assert.NotContains(t, string(safe), "<xref")

	unsafe, err := Render(body, Options{Unsafe: true})
	require.NoError(t, err)
	assert.Contains(t, string(unsafe), `<xref href="a"/>`)
}
