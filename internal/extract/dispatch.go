package extract

import (
	"path"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/xref"
)

// Dispatcher routes files to the extractor registered for their extension.
type Dispatcher struct {
	byExt map[string]xref.Extractor
}

// NewDispatcher routes Markdown to md and YAML/JSON to schema.
func NewDispatcher(md, schema xref.Extractor) *Dispatcher {
	d := &Dispatcher{byExt: make(map[string]xref.Extractor)}
	for _, ext := range []string{".md", ".markdown"} {
		d.byExt[ext] = md
	}
	for _, ext := range []string{".yml", ".yaml", ".json"} {
		d.byExt[ext] = schema
	}
	return d
}

// Extract implements xref.Extractor. Unknown extensions publish nothing.
func (d *Dispatcher) Extract(file xref.SourceFile) ([]*xref.XrefRecord, error) {
	ex, ok := d.byExt[strings.ToLower(path.Ext(file.Path))]
	if !ok || ex == nil {
		return nil, nil
	}
	return ex.Extract(file)
}
