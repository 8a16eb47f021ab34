package moniker

import (
	"fmt"
	"path"
	"slices"

	"git.home.luguber.info/inful/docxref/internal/util/globs"
)

// Rule assigns monikers to files whose content-relative path matches Glob.
type Rule struct {
	Glob     string   `yaml:"glob" toml:"glob"`
	Monikers []string `yaml:"monikers" toml:"monikers"`
}

// Provider resolves the file-level monikers of a content file.
type Provider struct {
	rules []Rule
}

// NewProvider validates the glob patterns of rules.
func NewProvider(rules []Rule) (*Provider, error) {
	for _, r := range rules {
		if err := globs.Validate(r.Glob); err != nil {
			return nil, fmt.Errorf("moniker rule: %w", err)
		}
	}
	return &Provider{rules: slices.Clone(rules)}, nil
}

// FileMonikers returns the monikers that apply to file. Monikers declared in
// front matter win; otherwise the union of every matching rule is returned
// in rule order without duplicates.
func (p *Provider) FileMonikers(file string, frontMatter []string) []string {
	if len(frontMatter) > 0 {
		return slices.Clone(frontMatter)
	}
	if p == nil {
		return nil
	}

	file = path.Clean(file)
	var out []string
	for _, r := range p.rules {
		ok, err := globs.Match(r.Glob, file)
		if err != nil || !ok {
			continue
		}
		for _, m := range r.Monikers {
			if !slices.Contains(out, m) {
				out = append(out, m)
			}
		}
	}
	return out
}
