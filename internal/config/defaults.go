package config

import (
	"runtime"
)

const (
	defaultCacheSize     = 4096
	defaultXrefMap       = "xrefmap.yml"
	defaultMetricsListen = ":9464"
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config) error
	Domain() string
}

// ContentDefaultApplier handles Content configuration defaults.
type ContentDefaultApplier struct{}

func (ContentDefaultApplier) Domain() string { return "content" }

func (ContentDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Content.Root == "" {
		cfg.Content.Root = "."
	}
	if len(cfg.Content.Include) == 0 {
		cfg.Content.Include = []string{"**/*.md", "**/*.markdown", "**/*.yml", "**/*.yaml", "**/*.json"}
	}
	return nil
}

// XrefDefaultApplier handles Xref configuration defaults.
type XrefDefaultApplier struct{}

func (XrefDefaultApplier) Domain() string { return "xref" }

func (XrefDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Xref.CacheDir == "" {
		cfg.Xref.CacheDir = ".docxref/cache"
	}
	if cfg.Xref.CacheSize == 0 {
		cfg.Xref.CacheSize = defaultCacheSize
	}
	return nil
}

// OutputDefaultApplier handles Output configuration defaults.
type OutputDefaultApplier struct{}

func (OutputDefaultApplier) Domain() string { return "output" }

func (OutputDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "_site"
	}
	if cfg.Output.XrefMap == "" {
		cfg.Output.XrefMap = defaultXrefMap
	}
	return nil
}

// BuildDefaultApplier handles Build configuration defaults.
type BuildDefaultApplier struct{}

func (BuildDefaultApplier) Domain() string { return "build" }

func (BuildDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Build.Concurrency <= 0 {
		cfg.Build.Concurrency = runtime.NumCPU()
	}
	return nil
}

// MetricsDefaultApplier handles Metrics configuration defaults.
type MetricsDefaultApplier struct{}

func (MetricsDefaultApplier) Domain() string { return "metrics" }

func (MetricsDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = defaultMetricsListen
	}
	return nil
}

// CompositeDefaultApplier runs every domain applier in order.
type CompositeDefaultApplier struct {
	appliers []DefaultApplier
}

// NewDefaultApplier returns the applier chain used by Load.
func NewDefaultApplier() *CompositeDefaultApplier {
	return &CompositeDefaultApplier{appliers: []DefaultApplier{
		ContentDefaultApplier{},
		XrefDefaultApplier{},
		OutputDefaultApplier{},
		BuildDefaultApplier{},
		MetricsDefaultApplier{},
	}}
}

func (c *CompositeDefaultApplier) ApplyDefaults(cfg *Config) error {
	if cfg.Version == "" {
		cfg.Version = CurrentVersion
	}
	for _, a := range c.appliers {
		if err := a.ApplyDefaults(cfg); err != nil {
			return err
		}
	}
	return nil
}

func applyDefaults(cfg *Config) error {
	return NewDefaultApplier().ApplyDefaults(cfg)
}
