package docmodel

import (
	"git.home.luguber.info/inful/docxref/internal/markdown"
)

// XrefRef is an xref link in the page together with its file line.
type XrefRef struct {
	Target   string // uid plus optional query and fragment
	Text     string
	FileLine int
}

// XrefRefs returns every xref: link of the body in document order.
func (d *ParsedDoc) XrefRefs() []XrefRef {
	links := markdown.ExtractLinks(d.body, markdown.Options{})
	finder := newLineFinder(d.body)

	refs := make([]XrefRef, 0, len(links))
	for _, link := range links {
		if link.Kind != markdown.LinkKindXref {
			continue
		}
		refs = append(refs, XrefRef{
			Target:   markdown.XrefTarget(link.Destination),
			Text:     link.Text,
			FileLine: d.LineOffset() + finder.next(link.Destination),
		})
	}
	return refs
}
