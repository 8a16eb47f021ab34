package build

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docxref/internal/depgraph"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/observability"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/xref"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

// writeOutputs writes the published xref map, the top-level TOCs and the
// dependency database.
func writeOutputs(ctx context.Context, sess *Session, res *Result) error {
	cfg := sess.Config
	if err := os.MkdirAll(res.OutputDir, 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}

	model, evalErr := sess.Resolver.ToXrefMapModel()
	if evalErr != nil {
		sess.Report.Issues = append(sess.Report.Issues, report.Issue{
			Code:     propertyIssueCode(evalErr),
			Severity: report.SeverityWarning,
			Message:  fmt.Sprintf("xref map properties omitted: %v", evalErr),
		})
	}
	if err := xrefmap.Save(filepath.Join(res.OutputDir, cfg.Output.XrefMap), model); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}

	for _, t := range res.Tocs {
		if t.IsReferenceToc {
			continue
		}
		data, err := json.MarshalIndent(tocForOutput(t), "", "  ")
		if err != nil {
			return fmt.Errorf("%w: marshal toc %s: %w", ErrOutput, t.File, err)
		}
		target := filepath.Join(res.OutputDir, filepath.FromSlash(tocOutputPath(t.File)))
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("%w: %w", ErrOutput, err)
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("%w: write toc %s: %w", ErrOutput, t.File, err)
		}
	}

	if cfg.Build.DependencyDB == "" {
		return nil
	}
	return recordDependencies(ctx, sess, res)
}

// recordDependencies persists fingerprints and dependency edges and computes
// the files affected since the previous build.
func recordDependencies(ctx context.Context, sess *Session, res *Result) error {
	dbPath := sess.Config.Path(sess.Config.Build.DependencyDB)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	store, err := depgraph.Open(dbPath)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOutput, err)
	}
	defer func() { _ = store.Close() }()

	rep := sess.Report
	if err := store.BeginBuild(ctx, rep.BuildID, rep.Commit, rep.Start); err != nil {
		return err
	}

	files := append(append([]xref.SourceFile{}, sess.Discovery.Sources...), sess.Discovery.Tocs...)
	fingerprints := make(map[string]string, len(files))
	for _, f := range files {
		content, err := os.ReadFile(f.FullPath)
		if err != nil {
			return fmt.Errorf("%w: read %s: %w", ErrOutput, f.Path, err)
		}
		fingerprints[f.Path] = depgraph.Fingerprint(content)
	}

	changed, err := store.UpdateFingerprints(ctx, rep.BuildID, fingerprints)
	if err != nil {
		return err
	}
	if err := store.ReplaceEdges(ctx, rep.BuildID, sess.Dependencies.Edges()); err != nil {
		return err
	}
	affected, err := store.Affected(ctx, changed)
	if err != nil {
		return err
	}
	res.Changed, res.Affected = changed, affected
	observability.InfoContext(ctx, "Dependency graph updated",
		logfields.Count(len(changed)),
		slog.Int("affected", len(affected)))
	return nil
}
