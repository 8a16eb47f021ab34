package commands

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/fatih/color"

	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/observability"
)

// Global context passed to subcommands.
type Global struct {
	Logger *slog.Logger
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"docxref.yaml" env:"DOCXREF_CONFIG"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	NoColor bool             `name:"no-color" help:"Disable colored output"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Resolve cross-references, render pages and write the xref map and TOCs"`
	Resolve ResolveCmd `cmd:"" help:"Resolve a single uid or xref query"`
	Xrefmap XrefmapCmd `cmd:"" help:"Print the xref map model of the content"`
	Deps    DepsCmd    `cmd:"" help:"List files depending on a file, from the last build"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve the site and rebuild on changes"`
	Init    InitCmd    `cmd:"" help:"Initialize a new configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(c.Verbose)})
	logger := slog.New(observability.NewContextHandler(handler))
	slog.SetDefault(logger)
	if c.NoColor {
		color.NoColor = true
	}
	return nil
}

// parseLogLevel maps -v to debug; DOCXREF_LOG_LEVEL overrides both.
func parseLogLevel(verbose bool) slog.Level {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if env := strings.TrimSpace(os.Getenv("DOCXREF_LOG_LEVEL")); env != "" {
		var parsed slog.Level
		if err := parsed.UnmarshalText([]byte(env)); err == nil {
			level = parsed
		}
	}
	return level
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// outputOverride resolves a CLI output path against the working directory.
func outputOverride(cfg *config.Config, output string) error {
	if output == "" {
		return nil
	}
	abs, err := filepath.Abs(output)
	if err != nil {
		return err
	}
	cfg.Output.Directory = abs
	return nil
}
