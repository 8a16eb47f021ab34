package markdown

import "strings"

// Options controls how Markdown is parsed.
//
// Unsafe keeps raw HTML (such as <xref> tags) in rendered output so the
// HTML xref pass can see it.
type Options struct {
	Unsafe bool
}

type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindAuto   LinkKind = "auto"
	LinkKindXref   LinkKind = "xref"
)

// Link is a link-like construct found in a Markdown body.
type Link struct {
	Kind        LinkKind
	Destination string
	Text        string
}

// XrefPrefix marks link destinations that name a uid instead of a URL.
const XrefPrefix = "xref:"

// IsXrefDestination reports whether dest is an xref link (`xref:uid?query#frag`).
func IsXrefDestination(dest string) bool {
	return len(dest) > len(XrefPrefix) && strings.EqualFold(dest[:len(XrefPrefix)], XrefPrefix)
}

// XrefTarget strips the xref: scheme, returning the uid with any query/fragment.
func XrefTarget(dest string) string {
	if !IsXrefDestination(dest) {
		return ""
	}
	return dest[len(XrefPrefix):]
}
