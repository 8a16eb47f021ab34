package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/depgraph"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
)

// DepsCmd implements the 'deps' command.
type DepsCmd struct {
	File string `arg:"" help:"Content file, relative to the content root"`
	Uses bool   `help:"List the files the file references instead of its dependents"`
}

func (d *DepsCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if cfg.Build.DependencyDB == "" {
		return errors.ConfigError("build.dependency_db is not configured").UserAction().Build()
	}
	dbPath := cfg.Path(cfg.Build.DependencyDB)
	if _, err := os.Stat(dbPath); err != nil {
		return errors.WrapError(err, errors.CategoryNotFound, "no dependency database; run 'docxref build' first").
			WithContext("path", dbPath).
			Build()
	}
	store, err := depgraph.Open(dbPath)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	file := filepath.ToSlash(filepath.Clean(d.File))
	var files []string
	if d.Uses {
		files, err = store.Dependencies(ctx, file)
	} else {
		files, err = store.Dependents(ctx, file)
	}
	if err != nil {
		return err
	}
	printLines(os.Stdout, files)
	return nil
}

func printLines(w io.Writer, lines []string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(w, l)
	}
}
