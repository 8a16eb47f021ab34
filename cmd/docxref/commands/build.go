package commands

import (
	"os"

	"git.home.luguber.info/inful/docxref/internal/build"
	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/report"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	Output  string `short:"o" help:"Output directory (overrides output.directory)"`
	Clean   bool   `help:"Remove the output directory before rendering"`
	Offline bool   `help:"Use cached copies of remote xref maps only"`
	Refresh bool   `help:"Re-download remote xref maps"`
	Strict  bool   `help:"Fail when the build reports warnings"`
}

func (b *BuildCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	if err := b.apply(cfg); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := build.NewService().Run(ctx, cfg)
	if res != nil {
		printSummary(os.Stdout, res.Report)
	}
	if err != nil {
		return err
	}
	if b.Strict && res.Report.Outcome == report.OutcomeWarning {
		errs, warnings := res.Report.Counts()
		return errors.BuildError("build reported diagnostics in strict mode").
			WithContext("errors", errs).
			WithContext("warnings", warnings).
			Build()
	}
	return nil
}

func (b *BuildCmd) apply(cfg *config.Config) error {
	if err := outputOverride(cfg, b.Output); err != nil {
		return err
	}
	if b.Clean {
		cfg.Output.Clean = true
	}
	if b.Offline {
		cfg.Xref.Offline, cfg.Xref.Refresh = true, false
	}
	if b.Refresh {
		cfg.Xref.Refresh = true
	}
	return config.ValidateConfig(cfg)
}
