package xref

import (
	"context"
	stderrors "errors"
	"log/slog"
	"runtime"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/metrics"
	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/report"
)

// SourceFile is a content file handed to an Extractor.
type SourceFile struct {
	// Path is the content-root-relative slash path; it identifies the file in
	// records and diagnostics.
	Path string
	// FullPath is the location on disk.
	FullPath string
}

// Extractor turns one content file into zero or more records.
type Extractor interface {
	Extract(file SourceFile) ([]*XrefRecord, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(file SourceFile) ([]*XrefRecord, error)

func (f ExtractorFunc) Extract(file SourceFile) ([]*XrefRecord, error) { return f(file) }

// IssueCoder is implemented by extraction errors that map to a specific report code.
type IssueCoder interface {
	IssueCode() report.IssueCode
}

// BuildOptions tunes BuildRegistry.
type BuildOptions struct {
	// Concurrency bounds the number of files extracted in parallel; <= 0 uses GOMAXPROCS.
	Concurrency int
	Recorder    metrics.Recorder
}

// BuildRegistry extracts records from every file in parallel and freezes them
// into a Registry. Per-file failures and uid conflicts are returned as issues;
// only context cancellation aborts the build.
func BuildRegistry(ctx context.Context, files []SourceFile, ex Extractor, cmp moniker.Comparer, opts BuildOptions) (*Registry, []report.Issue, error) {
	recorder := metrics.OrNoop(opts.Recorder)
	limit := opts.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	collector := NewCollector()
	issues := report.NewCollector()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			recs, err := ex.Extract(f)
			if err != nil {
				recorder.IncExtractResult(false)
				issues.Add(extractIssue(f, err))
				slog.Warn("Extraction failed", logfields.File(f.Path), logfields.Error(err))
				return nil
			}
			recorder.IncExtractResult(true)
			for _, r := range recs {
				if r.DeclaringFile == "" {
					r.DeclaringFile = f.Path
				}
			}
			collector.Add(recs...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	reg, conflicts := collector.Freeze(cmp)
	for _, c := range conflicts {
		recorder.IncUIDConflict()
		issues.Add(c.Issue())
		slog.Error("Dropped conflicting uid", logfields.UID(c.UID), slog.Any("files", c.Files))
	}
	recorder.SetRegistrySize(reg.Len())
	return reg, issues.Issues(), nil
}

func extractIssue(f SourceFile, err error) report.Issue {
	code := report.IssueExtractFailure
	var coder IssueCoder
	if stderrors.As(err, &coder) {
		code = coder.IssueCode()
	}
	issue := report.Issue{
		Code:     code,
		Severity: report.SeverityError,
		Message:  err.Error(),
		File:     f.Path,
	}
	if classified, ok := errors.AsClassified(err); ok {
		_, issue.Line = classified.Location()
	}
	return issue
}
