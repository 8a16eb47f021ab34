package xref

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/report"
)

type schemaParseError struct{ err error }

func (e schemaParseError) Error() string               { return e.err.Error() }
func (e schemaParseError) IssueCode() report.IssueCode { return report.IssueSchemaParse }

func TestBuildRegistry(t *testing.T) {
	var files []SourceFile
	for i := range 50 {
		files = append(files, SourceFile{Path: fmt.Sprintf("docs/p%02d.md", i)})
	}
	files = append(files,
		SourceFile{Path: "dup1.md"},
		SourceFile{Path: "dup2.md"},
		SourceFile{Path: "broken.yml"},
		SourceFile{Path: "failing.md"},
	)

	ex := ExtractorFunc(func(f SourceFile) ([]*XrefRecord, error) {
		switch f.Path {
		case "dup1.md", "dup2.md":
			return []*XrefRecord{{UID: "dup", Href: f.Path + ".html"}}, nil
		case "broken.yml":
			return nil, schemaParseError{err: stderrors.New("yaml: line 3: did not find expected key")}
		case "failing.md":
			return nil, stderrors.New("unreadable")
		}
		return []*XrefRecord{NewRecord("uid."+f.Path, f.Path+".html", "")}, nil
	})

	reg, issues, err := BuildRegistry(context.Background(), files, ex, moniker.VersionComparer{}, BuildOptions{Concurrency: 4})
	require.NoError(t, err)

	assert.Equal(t, 50, reg.Len())
	assert.False(t, reg.Has("dup"))
	rec, ok := reg.Select("uid.docs/p07.md", "")
	require.True(t, ok)
	assert.Equal(t, "docs/p07.md", rec.DeclaringFile)

	codes := map[report.IssueCode][]string{}
	for _, is := range issues {
		codes[is.Code] = append(codes[is.Code], is.File)
	}
	assert.Equal(t, []string{"broken.yml"}, codes[report.IssueSchemaParse])
	assert.Equal(t, []string{"failing.md"}, codes[report.IssueExtractFailure])
	assert.Equal(t, []string{"dup1.md"}, codes[report.IssueUIDConflict])
}

func TestBuildRegistry_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ex := ExtractorFunc(func(SourceFile) ([]*XrefRecord, error) { return nil, nil })
	_, _, err := BuildRegistry(ctx, []SourceFile{{Path: "a.md"}}, ex, moniker.VersionComparer{}, BuildOptions{})
	require.ErrorIs(t, err, context.Canceled)
}
