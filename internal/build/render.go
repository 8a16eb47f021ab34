package build

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"html/template"
	"os"
	"path"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/docmodel"
	"git.home.luguber.info/inful/docxref/internal/extract"
	"git.home.luguber.info/inful/docxref/internal/htmlxref"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/markdown"
	"git.home.luguber.info/inful/docxref/internal/observability"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xref"
)

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<main>
{{.Content}}
</main>
</body>
</html>
`))

var schemaTemplate = template.Must(template.New("schema").Parse(`<h1>{{.Title}}</h1>
{{range .Items}}<section id="{{.ID}}">
<h2>{{.Name}}</h2>
<p class="uid"><code>{{.UID}}</code></p>
</section>
{{end}}`))

type pageData struct {
	Title   string
	Content template.HTML
}

type schemaItem struct {
	ID, Name, UID string
}

type renderResult struct {
	issues   []report.Issue
	rendered bool
}

// renderPages renders every Markdown source and every structured document
// that declared records, writing HTML into outDir. Xref links are resolved
// per page with its own resolution context.
func renderPages(ctx context.Context, sess *Session, outDir string) (int, error) {
	cfg := sess.Config
	if cfg.Output.Clean {
		if err := os.RemoveAll(outDir); err != nil {
			return 0, fmt.Errorf("%w: clean %s: %w", ErrOutput, outDir, err)
		}
	}

	declared := recordsByFile(sess.Resolver.Registry())
	results := runOrdered(ctx, sess.Discovery.Sources, cfg.Build.Concurrency, func(ctx context.Context, f xref.SourceFile) (renderResult, error) {
		ctx = observability.WithFile(ctx, f.Path)
		switch strings.ToLower(path.Ext(f.Path)) {
		case ".md", ".markdown":
			return renderMarkdown(ctx, sess, f, outDir)
		default:
			recs := declared[f.Path]
			if len(recs) == 0 {
				return renderResult{}, nil
			}
			return renderSchemaPage(sess, f, recs, outDir)
		}
	})

	pages := 0
	for i, r := range results {
		if r.Err != nil {
			if ctx.Err() != nil {
				return pages, ctx.Err()
			}
			return pages, fmt.Errorf("%w: render %s: %w", ErrOutput, sess.Discovery.Sources[i].Path, r.Err)
		}
		sess.Report.Issues = append(sess.Report.Issues, r.Value.issues...)
		if r.Value.rendered {
			pages++
		}
	}
	return pages, nil
}

func renderMarkdown(ctx context.Context, sess *Session, f xref.SourceFile, outDir string) (renderResult, error) {
	doc, err := docmodel.ParseFile(f.FullPath)
	if err != nil {
		// Already reported during extraction.
		observability.DebugContext(ctx, "Skipping unparsable page", logfields.Error(err))
		return renderResult{}, nil
	}

	body, err := markdown.Render(doc.Body(), markdown.Options{Unsafe: true})
	if err != nil {
		return renderResult{issues: []report.Issue{{
			Code:     report.IssueExtractFailure,
			Severity: report.SeverityError,
			Message:  fmt.Sprintf("render markdown: %v", err),
			File:     f.Path,
		}}}, nil
	}

	outPath := extract.OutputPath(f.Path)
	rewritten, res, err := htmlxref.RewriteBytes(body, htmlxref.Page{File: f.Path, OutputPath: outPath}, sess.Resolver)
	if err != nil {
		return renderResult{}, err
	}
	title := doc.Title()
	if title == "" {
		title = strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
	}
	if err := writePage(outDir, outPath, title, rewritten); err != nil {
		return renderResult{}, err
	}
	return renderResult{issues: res.Issues, rendered: true}, nil
}

// propertyIssueCode classifies a failed property evaluation. Failures other
// than cycles and missing uids come from reading external map records.
func propertyIssueCode(err error) report.IssueCode {
	switch {
	case stderrors.Is(err, xref.ErrCircularReference):
		return report.IssueCircularReference
	case stderrors.Is(err, xref.ErrXrefNotFound):
		return report.IssueXrefNotFound
	default:
		return report.IssuePropertyEval
	}
}

func renderSchemaPage(sess *Session, f xref.SourceFile, recs []*xref.XrefRecord, outDir string) (renderResult, error) {
	rctx := xref.NewResolutionContext(f.Path)
	var issues []report.Issue
	items := make([]schemaItem, 0, len(recs))
	title := ""
	for _, rec := range recs {
		name := rec.UID
		v, ok, err := sess.Resolver.Property(rctx, rec, "name", f.Path)
		switch {
		case err != nil:
			issues = append(issues, report.Issue{
				Code:     propertyIssueCode(err),
				Severity: report.SeverityWarning,
				Message:  err.Error(),
				File:     f.Path,
			})
		case ok:
			name = fmt.Sprint(v)
		}
		if title == "" && !strings.Contains(rec.Href, "#") {
			title = name
		}
		items = append(items, schemaItem{ID: extract.Bookmark(rec.UID), Name: name, UID: rec.UID})
	}
	if title == "" {
		title = strings.TrimSuffix(path.Base(f.Path), path.Ext(f.Path))
	}

	var buf bytes.Buffer
	if err := schemaTemplate.Execute(&buf, struct {
		Title string
		Items []schemaItem
	}{title, items}); err != nil {
		return renderResult{}, err
	}
	if err := writePage(outDir, extract.OutputPath(f.Path), title, buf.Bytes()); err != nil {
		return renderResult{}, err
	}
	return renderResult{issues: issues, rendered: true}, nil
}

func writePage(outDir, outPath, title string, content []byte) error {
	var buf bytes.Buffer
	// #nosec G203 -- content is rendered by goldmark and rewritten by htmlxref
	if err := pageTemplate.Execute(&buf, pageData{Title: title, Content: template.HTML(content)}); err != nil {
		return fmt.Errorf("execute page template: %w", err)
	}
	target := filepath.Join(outDir, filepath.FromSlash(outPath))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return err
	}
	return os.WriteFile(target, buf.Bytes(), 0o600)
}

// recordsByFile groups the surviving records by declaring file, keeping
// registry order within a file.
func recordsByFile(reg *xref.Registry) map[string][]*xref.XrefRecord {
	out := make(map[string][]*xref.XrefRecord)
	for _, uid := range reg.UIDs() {
		for _, rec := range reg.Lookup(uid) {
			out[rec.DeclaringFile] = append(out[rec.DeclaringFile], rec)
		}
	}
	return out
}
