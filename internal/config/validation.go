package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/retry"
	"git.home.luguber.info/inful/docxref/internal/util/globs"
)

// ValidateConfig validates a defaulted configuration.
func ValidateConfig(cfg *Config) error {
	v := &configurationValidator{config: cfg}
	for _, check := range []func() error{
		v.validateContent,
		v.validateMonikers,
		v.validateSchemas,
		v.validateXref,
		v.validateOutput,
		v.validateBuild,
	} {
		if err := check(); err != nil {
			return err
		}
	}
	return nil
}

type configurationValidator struct {
	config *Config
}

func invalid(field, msg string) error {
	return errors.ConfigError(fmt.Sprintf("%s: %s", field, msg)).
		WithContext("field", field).
		UserAction().
		Build()
}

func (cv *configurationValidator) validateContent() error {
	for _, group := range [][]string{cv.config.Content.Include, cv.config.Content.Exclude} {
		for _, pattern := range group {
			if err := globs.Validate(pattern); err != nil {
				return invalid("content", err.Error())
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateMonikers() error {
	if _, err := moniker.NewProvider(cv.config.Monikers.Rules); err != nil {
		return invalid("monikers.rules", err.Error())
	}
	seen := make(map[string]bool, len(cv.config.Monikers.Order))
	for _, m := range cv.config.Monikers.Order {
		if seen[m] {
			return invalid("monikers.order", fmt.Sprintf("duplicate moniker %q", m))
		}
		seen[m] = true
	}
	return nil
}

func (cv *configurationValidator) validateSchemas() error {
	seen := make(map[string]bool, len(cv.config.Schemas))
	for _, s := range cv.config.Schemas {
		if strings.TrimSpace(s.Name) == "" {
			return invalid("schemas", "schema name cannot be empty")
		}
		if seen[s.Name] {
			return invalid("schemas", fmt.Sprintf("duplicate schema name: %s", s.Name))
		}
		seen[s.Name] = true
		for _, g := range s.Files {
			if err := globs.Validate(g); err != nil {
				return invalid("schemas", fmt.Sprintf("schema %s: %v", s.Name, err))
			}
		}
	}
	return nil
}

func (cv *configurationValidator) validateXref() error {
	for _, m := range cv.config.Xref.Maps {
		if strings.TrimSpace(m) == "" {
			return invalid("xref.maps", "map source cannot be empty")
		}
	}
	if cv.config.Xref.CacheSize < 0 {
		return invalid("xref.cache_size", "must not be negative")
	}
	if cv.config.Xref.Offline && cv.config.Xref.Refresh {
		return invalid("xref", "offline and refresh are mutually exclusive")
	}
	return cv.validateFetch()
}

func (cv *configurationValidator) validateFetch() error {
	f := cv.config.Xref.Fetch
	if f.Retries != nil && *f.Retries < 0 {
		return invalid("xref.fetch.retries", "must not be negative")
	}
	if f.Backoff != "" && !retry.ValidMode(f.Backoff) {
		return invalid("xref.fetch.backoff", fmt.Sprintf("unknown backoff %q (fixed, linear or exponential)", f.Backoff))
	}
	for _, d := range []struct{ field, value string }{
		{"initial_delay", f.InitialDelay},
		{"max_delay", f.MaxDelay},
	} {
		if d.value == "" {
			continue
		}
		if dur, err := time.ParseDuration(d.value); err != nil || dur <= 0 {
			return invalid("xref.fetch."+d.field, fmt.Sprintf("invalid duration %q", d.value))
		}
	}
	return nil
}

func (cv *configurationValidator) validateOutput() error {
	out := filepath.Clean(cv.config.Path(cv.config.Output.Directory))
	root := filepath.Clean(cv.config.Path(cv.config.Content.Root))
	if out == root {
		return invalid("output.directory", "must differ from content.root")
	}
	if strings.ContainsAny(cv.config.Output.XrefMap, `/\`) {
		return invalid("output.xrefmap", "must be a file name")
	}
	return nil
}

func (cv *configurationValidator) validateBuild() error {
	if cv.config.Build.Concurrency < 1 {
		return invalid("build.concurrency", "must be at least 1")
	}
	return nil
}
