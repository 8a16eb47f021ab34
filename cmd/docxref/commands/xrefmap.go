package commands

import (
	"encoding/json"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docxref/internal/build"
	"git.home.luguber.info/inful/docxref/internal/config"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/xrefmap"
)

// XrefmapCmd implements the 'xrefmap' command.
type XrefmapCmd struct {
	Format string `short:"f" enum:"yaml,json" default:"yaml" help:"Output format (yaml|json)"`
}

func (x *XrefmapCmd) Run(_ *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	sess, err := build.NewService().Prepare(ctx, cfg)
	if err != nil {
		return err
	}
	model, err := sess.Resolver.ToXrefMapModel()
	if err != nil {
		return errors.WrapError(err, errors.CategoryXref, "xref map properties could not be evaluated").Build()
	}
	return x.write(os.Stdout, model)
}

func (x *XrefmapCmd) write(w io.Writer, model *xrefmap.Model) error {
	if x.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(model)
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(model); err != nil {
		return err
	}
	return enc.Close()
}
