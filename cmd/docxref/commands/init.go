package commands

import (
	"fmt"
	"path/filepath"
	"strings"

	"git.home.luguber.info/inful/docxref/internal/config"
)

// InitCmd implements the 'init' command.
type InitCmd struct {
	Force  bool   `help:"Overwrite existing configuration file"`
	Output string `short:"o" name:"output" help:"Directory for the generated config file"`
	TOML   bool   `name:"toml" help:"Write docxref.toml instead of YAML"`
}

func (i *InitCmd) Run(_ *Global, root *CLI) error {
	cfgPath := root.Config
	if i.TOML && filepath.Ext(cfgPath) != ".toml" {
		cfgPath = strings.TrimSuffix(cfgPath, filepath.Ext(cfgPath)) + ".toml"
	}
	if i.Output != "" {
		cfgPath = filepath.Join(i.Output, filepath.Base(cfgPath))
	}
	fmt.Printf("Writing configuration to %s\n", cfgPath)
	return config.Init(cfgPath, i.Force)
}
