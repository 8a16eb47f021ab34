package extract

import (
	"git.home.luguber.info/inful/docxref/internal/docmodel"
	"git.home.luguber.info/inful/docxref/internal/frontmatter"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

// MetadataProvider supplies the uid and title of a page.
type MetadataProvider interface {
	Metadata(file xref.SourceFile) (frontmatter.Metadata, string, error)
}

// MonikerProvider supplies the file-level monikers of a content file.
type MonikerProvider interface {
	FileMonikers(file string, frontMatter []string) []string
}

// FrontMatterMetadata reads metadata from YAML front matter, falling back to
// the first H1 for the title.
type FrontMatterMetadata struct{}

// Metadata returns the front matter metadata and the display title.
func (FrontMatterMetadata) Metadata(file xref.SourceFile) (frontmatter.Metadata, string, error) {
	doc, err := docmodel.ParseFile(file.FullPath)
	if err != nil {
		return frontmatter.Metadata{}, "", err
	}
	return doc.Metadata(), doc.Title(), nil
}

// MarkdownExtractor publishes the uid declared in a page's front matter.
type MarkdownExtractor struct {
	Metadata MetadataProvider
	Monikers MonikerProvider
}

// NewMarkdownExtractor returns an extractor reading front matter from disk.
func NewMarkdownExtractor(monikers MonikerProvider) *MarkdownExtractor {
	return &MarkdownExtractor{Metadata: FrontMatterMetadata{}, Monikers: monikers}
}

// Extract returns zero records when the page declares no uid.
func (e *MarkdownExtractor) Extract(file xref.SourceFile) ([]*xref.XrefRecord, error) {
	md, title, err := e.Metadata.Metadata(file)
	if err != nil {
		return nil, &FileError{Code: report.IssueExtractFailure, File: file.Path, Err: err}
	}
	if md.UID == "" {
		return nil, nil
	}

	name := title
	if name == "" {
		name = md.UID
	}
	rec := xref.NewRecord(md.UID, OutputPath(file.Path), file.Path).
		Set("name", xref.Literal(name))
	if e.Monikers != nil {
		rec.WithMonikers(e.Monikers.FileMonikers(file.Path, md.Monikers)...)
	} else {
		rec.WithMonikers(md.Monikers...)
	}
	return []*xref.XrefRecord{rec}, nil
}
