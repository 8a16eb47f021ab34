package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/extract"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/git"
	"git.home.luguber.info/inful/docxref/internal/logfields"
	"git.home.luguber.info/inful/docxref/internal/metrics"
	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/observability"
	"git.home.luguber.info/inful/docxref/internal/report"
	"git.home.luguber.info/inful/docxref/internal/toc"
	"git.home.luguber.info/inful/docxref/internal/xref"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

// Result is the outcome of a build.
type Result struct {
	Report    *report.BuildReport
	OutputDir string
	Resolver  *xref.Resolver
	Tocs      []*toc.Resolved
	// Changed lists the sources whose fingerprint differs from the previous
	// build; empty when no dependency database is configured.
	Changed []string
	// Affected is Changed plus every file depending on a changed file.
	Affected []string
}

// Session holds the resolution state shared by the later stages: the frozen
// registry and the external maps behind one resolver.
type Session struct {
	Config       *config.Config
	Report       *report.BuildReport
	Discovery    *Discovery
	Resolver     *xref.Resolver
	External     *xrefmap.Map
	Dependencies *xref.MemoryDependencies
	Monikers     *moniker.Provider
}

// Service executes builds.
type Service struct {
	recorder metrics.Recorder
}

// NewService returns a Service without metrics.
func NewService() *Service {
	return &Service{recorder: metrics.NoopRecorder{}}
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	s.recorder = metrics.OrNoop(r)
	return s
}

// Run executes the full pipeline. The returned Result carries the report even
// when err is non-nil.
func (s *Service) Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	sess, err := s.Prepare(ctx, cfg)
	if sess == nil {
		return nil, err
	}
	res := &Result{
		Report:    sess.Report,
		OutputDir: cfg.Path(cfg.Output.Directory),
		Resolver:  sess.Resolver,
	}
	if err == nil {
		err = s.finish(ctx, sess, res)
	}
	s.complete(ctx, res.Report, res.OutputDir, start, err)
	return res, err
}

func (s *Service) finish(ctx context.Context, sess *Session, res *Result) error {
	rep := sess.Report
	if err := s.stage(ctx, rep, report.StageToc, func(ctx context.Context) error {
		res.Tocs = resolveTocs(ctx, sess)
		rep.Tocs = len(res.Tocs)
		return nil
	}); err != nil {
		return err
	}

	if err := s.stage(ctx, rep, report.StageRender, func(ctx context.Context) error {
		pages, err := renderPages(ctx, sess, res.OutputDir)
		rep.RenderedPages = pages
		return err
	}); err != nil {
		return err
	}

	return s.stage(ctx, rep, report.StageWrite, func(ctx context.Context) error {
		return writeOutputs(ctx, sess, res)
	})
}

// Prepare runs discovery, extraction, registry freezing and external map
// loading. A non-nil Session is returned whenever the report was created,
// including on error.
func (s *Service) Prepare(ctx context.Context, cfg *config.Config) (*Session, error) {
	if cfg == nil {
		return nil, errors.ConfigError("config required").Build()
	}

	buildID := uuid.NewString()
	ctx = observability.WithBuildID(ctx, buildID)
	rep := report.New(buildID)

	root := cfg.Path(cfg.Content.Root)
	commit, err := git.HeadCommit(root)
	if err != nil {
		observability.DebugContext(ctx, "No commit recorded", logfields.Error(err))
	}
	rep.Commit = commit

	monikers, err := moniker.NewProvider(cfg.Monikers.Rules)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid moniker rules").Build()
	}

	sess := &Session{
		Config:       cfg,
		Report:       rep,
		Dependencies: xref.NewMemoryDependencies(),
		Monikers:     monikers,
	}

	if err := s.stage(ctx, rep, report.StageDiscover, func(context.Context) error {
		d, err := Discover(root, cfg.Content.Include, cfg.Content.Exclude,
			cfg.Path(cfg.Output.Directory), cfg.Path(cfg.Xref.CacheDir))
		if err != nil {
			return errors.WrapError(err, errors.CategoryFileSystem, "content discovery failed").
				WithContext("root", root).
				Fatal().
				Build()
		}
		sess.Discovery = d
		rep.Files = len(d.Sources) + len(d.Tocs)
		return nil
	}); err != nil {
		rep.Fail(err)
		return sess, err
	}

	var reg *xref.Registry
	if err := s.stage(ctx, rep, report.StageExtract, func(ctx context.Context) error {
		ex, err := newExtractor(cfg, monikers)
		if err != nil {
			return err
		}
		var issues []report.Issue
		reg, issues, err = xref.BuildRegistry(ctx, sess.Discovery.Sources, ex, moniker.FromOrder(cfg.Monikers.Order), xref.BuildOptions{
			Concurrency: cfg.Build.Concurrency,
			Recorder:    s.recorder,
		})
		rep.Issues = append(rep.Issues, issues...)
		return err
	}); err != nil {
		rep.Fail(err)
		return sess, err
	}

	_ = s.stage(ctx, rep, report.StageRegistry, func(context.Context) error {
		rep.Records = reg.RecordCount()
		for _, is := range rep.Issues {
			if is.Code == report.IssueUIDConflict {
				rep.DroppedUIDs++
			}
		}
		return nil
	})

	if err := s.stage(ctx, rep, report.StageExternalMaps, func(ctx context.Context) error {
		if len(cfg.Xref.Maps) == 0 {
			return nil
		}
		loader := xrefmap.NewLoader(cfg.Path(cfg.Xref.CacheDir))
		loader.Offline = cfg.Xref.Offline
		loader.Refresh = cfg.Xref.Refresh
		loader.Sidecar = !cfg.Xref.NoSidecar
		loader.Retry = cfg.RetryPolicy()
		m, err := loader.Load(ctx, cfg.MapSources())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrExternalMaps, err)
		}
		sess.External = m
		rep.ExternalUIDs = m.Len()
		return nil
	}); err != nil {
		rep.Fail(err)
		return sess, err
	}

	var ext xref.ExternalSource
	if sess.External != nil {
		ext = sess.External
	}
	resolver, err := xref.NewResolver(reg, ext, xref.Options{
		SiteHost:     cfg.Xref.SiteHost,
		CacheSize:    cfg.Xref.CacheSize,
		Dependencies: sess.Dependencies,
		Recorder:     s.recorder,
	})
	if err != nil {
		err = errors.WrapError(err, errors.CategoryInternal, "failed to create resolver").Build()
		rep.Fail(err)
		return sess, err
	}
	sess.Resolver = resolver
	return sess, nil
}

func newExtractor(cfg *config.Config, monikers *moniker.Provider) (xref.Extractor, error) {
	schemas := make([]extract.Schema, 0, len(cfg.Schemas))
	for _, sc := range cfg.Schemas {
		schemas = append(schemas, extract.Schema{Name: sc.Name, Files: sc.Files, Items: sc.Items, Properties: sc.Properties})
	}
	schemaEx, err := extract.NewSchemaExtractor(schemas, monikers)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "invalid schema configuration").Build()
	}
	return extract.NewDispatcher(extract.NewMarkdownExtractor(monikers), schemaEx), nil
}

// stage times fn and records its duration and result.
func (s *Service) stage(ctx context.Context, rep *report.BuildReport, name report.StageName, fn func(context.Context) error) error {
	ctx = observability.WithStage(ctx, string(name))
	start := time.Now()
	err := fn(ctx)
	d := time.Since(start)

	rep.RecordStage(name, d)
	s.recorder.ObserveStageDuration(string(name), d)
	switch {
	case err == nil:
		s.recorder.IncStageResult(string(name), metrics.ResultSuccess)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		s.recorder.IncStageResult(string(name), metrics.ResultCanceled)
	default:
		s.recorder.IncStageResult(string(name), metrics.ResultFatal)
	}
	observability.DebugContext(ctx, "Stage finished", logfields.DurationMS(float64(d.Microseconds())/1000))
	return err
}

// complete finalizes the report, persists it next to the output and records
// the build outcome.
func (s *Service) complete(ctx context.Context, rep *report.BuildReport, outDir string, start time.Time, err error) {
	rep.Fail(err)
	rep.Finish()
	if stderrors.Is(err, context.Canceled) {
		rep.Outcome = report.OutcomeCanceled
	}
	if perr := rep.Persist(outDir); perr != nil {
		observability.WarnContext(ctx, "Failed to persist build report", logfields.Error(perr))
	}

	s.recorder.ObserveBuildDuration(time.Since(start))
	s.recorder.IncBuildOutcome(string(rep.Outcome))
	errs, warnings := rep.Counts()
	observability.InfoContext(ctx, "Build finished",
		slog.String("outcome", string(rep.Outcome)),
		slog.Int("errors", errs),
		slog.Int("warnings", warnings),
		logfields.Path(filepath.Clean(outDir)))
}
