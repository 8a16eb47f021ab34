package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/docxref/cmd/docxref/commands"
	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("docxref"),
		kong.Description("Resolve cross-references and tables of contents for documentation sites."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	err := parser.Run(&commands.Global{Logger: slog.Default()}, cli)
	os.Exit(errors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err))
}
