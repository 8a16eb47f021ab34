package build

import (
	"context"
	"fmt"
	"path"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/extract"
	"git.home.luguber.info/inful/docxref/internal/htmlxref"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/observability"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/toc"
)

// resolveTocs parses every discovered TOC file and resolves the set. Parse
// failures and resolution diagnostics are added to the report.
func resolveTocs(ctx context.Context, sess *Session) []*toc.Resolved {
	rep := sess.Report
	items := make(map[string]*toc.Item, len(sess.Discovery.Tocs))
	for _, f := range sess.Discovery.Tocs {
		it, err := toc.ParseFile(f.FullPath)
		if err != nil {
			rep.Issues = append(rep.Issues, report.Issue{
				Code:     report.IssueExtractFailure,
				Severity: report.SeverityError,
				Message:  fmt.Sprintf("parse toc: %v", err),
				File:     f.Path,
			})
			observability.WarnContext(ctx, "Failed to parse TOC", logfields.Toc(f.Path), logfields.Error(err))
			continue
		}
		items[f.Path] = it
	}

	r := toc.NewResolver(items, sess.Resolver, toc.Options{
		Roots:           sess.Config.Toc.Roots,
		CaseInsensitive: sess.Config.Toc.CaseInsensitive,
	})
	resolved := r.ResolveAll()
	rep.Issues = append(rep.Issues, r.Issues()...)
	return resolved
}

// tocOutputPath maps a TOC source path to its JSON output: guide/toc.yml ->
// guide/toc.json.
func tocOutputPath(rel string) string {
	return strings.TrimSuffix(rel, path.Ext(rel)) + ".json"
}

// tocForOutput clones a resolved tree and rewrites its hrefs to site URLs
// relative to the TOC's own output file.
func tocForOutput(res *toc.Resolved) *toc.Node {
	out := tocOutputPath(res.File)
	root := res.Root.Clone()
	root.Walk(func(n *toc.Node) {
		n.Href = outputHref(out, n.Href)
		n.TopicHref = outputHref(out, n.TopicHref)
		n.TocHref = outputHref(out, n.TocHref)
		n.AggregatedHref = outputHref(out, n.AggregatedHref)
		n.IncludedFrom = ""
	})
	return root
}

func outputHref(tocOut, href string) string {
	if href == "" {
		return ""
	}
	rest, rooted := strings.CutPrefix(href, toc.WorkingFolder)
	if !rooted {
		p := href
		if i := strings.IndexAny(p, "?#"); i >= 0 {
			p = p[:i]
		}
		if p = path.Clean(p); p == ".." || strings.HasPrefix(p, "../") {
			// Left the working folder; kept as authored.
			return href
		}
		// Already a site URL, taken from a resolved uid.
		return htmlxref.RelativeHref(tocOut, href)
	}
	p, suffix := rest, ""
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		p, suffix = rest[:i], rest[i:]
	}
	switch {
	case toc.IsTocFile(p):
		p = tocOutputPath(p)
	case strings.HasSuffix(p, "/"):
	default:
		p = extract.OutputPath(p)
	}
	return htmlxref.RelativeHref(tocOut, p+suffix)
}
