package commands

import (
	"context"
	"net/http"
	"os"

	"git.home.luguber.info/inful/docxref/internal/build"
	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/metrics"
	"git.home.luguber.info/inful/docxref/internal/preview"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Addr   string `short:"a" default:"127.0.0.1:8080" help:"HTTP listen address for the site"`
	Output string `short:"o" help:"Output directory (overrides output.directory)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if err := outputOverride(cfg, s.Output); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	svc := build.NewService()
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		svc.WithRecorder(metrics.NewPrometheusRecorder(reg))
		metricsHandler = metrics.HTTPHandler(reg)
		stop := metrics.Serve(cfg.Metrics.Listen, metricsHandler)
		defer stop()
	}

	srv := preview.New(preview.Options{
		Addr:       s.Addr,
		ContentDir: cfg.Path(cfg.Content.Root),
		OutputDir:  cfg.Path(cfg.Output.Directory),
		Ignore:     []string{cfg.Path(cfg.Output.Directory), cfg.Path(cfg.Xref.CacheDir)},
		Metrics:    metricsHandler,
	}, func(ctx context.Context) error {
		res, err := svc.Run(ctx, cfg)
		if res != nil {
			printSummary(os.Stdout, res.Report)
		}
		return err
	})
	return srv.Run(ctx)
}
