package docmodel

import (
	"os"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/frontmatter"
	"git.home.luguber.info/inful/docxref/internal/markdown"
)

// ParsedDoc represents a Markdown page split into YAML frontmatter and body,
// with the frontmatter decoded into the metadata the xref pipeline reads.
type ParsedDoc struct {
	fmRaw    []byte
	body     []byte
	hadFM    bool
	metadata frontmatter.Metadata
}

// Parse parses raw file content into a ParsedDoc.
func Parse(content []byte) (*ParsedDoc, error) {
	fmRaw, body, had, err := frontmatter.Split(content)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "failed to split frontmatter").Build()
	}

	fields, err := frontmatter.ParseYAML(fmRaw)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid yaml frontmatter").
			At("", 2).
			Build()
	}
	md, err := frontmatter.MetadataFromFields(fields)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryValidation, "invalid frontmatter field").Build()
	}

	return &ParsedDoc{
		fmRaw:    append([]byte(nil), fmRaw...),
		body:     append([]byte(nil), body...),
		hadFM:    had,
		metadata: md,
	}, nil
}

// ParseFile reads a file from disk and parses it into a ParsedDoc.
func ParseFile(path string) (*ParsedDoc, error) {
	// #nosec G304 -- path comes from content discovery.
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read document").
			WithContext("path", path).
			Build()
	}

	doc, err := Parse(content)
	if err != nil {
		category, line := errors.CategoryValidation, 0
		if classified, ok := errors.AsClassified(err); ok {
			category = classified.Category()
			_, line = classified.Location()
		}
		return nil, errors.WrapError(err, category, "failed to parse document").
			WithContext(errors.ContextPath, path).
			At("", line).
			Build()
	}
	return doc, nil
}

// HadFrontmatter reports whether the original document contained a YAML frontmatter block.
func (d *ParsedDoc) HadFrontmatter() bool {
	return d.hadFM
}

// Metadata returns the decoded uid/title/monikers.
func (d *ParsedDoc) Metadata() frontmatter.Metadata {
	return d.metadata
}

// Body returns the Markdown body bytes (frontmatter removed).
func (d *ParsedDoc) Body() []byte {
	return append([]byte(nil), d.body...)
}

// Title returns the frontmatter title, falling back to the first H1.
func (d *ParsedDoc) Title() string {
	if d.metadata.Title != "" {
		return d.metadata.Title
	}
	return markdown.FirstHeading(d.body)
}

// LineOffset translates body line numbers into file line numbers:
// fileLine = LineOffset() + bodyLine.
func (d *ParsedDoc) LineOffset() int {
	if !d.hadFM {
		return 0
	}
	return 2 + strings.Count(string(d.fmRaw), "\n")
}
