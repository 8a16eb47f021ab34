package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/docxref/internal/foundation/errors"
	"git.home.luguber.info/inful/docxref/internal/moniker"
	"git.home.luguber.info/inful/docxref/internal/retry"
)

// CurrentVersion is the configuration format version written by Init.
const CurrentVersion = "1"

// Config is the docxref configuration, read from docxref.yaml or docxref.toml.
type Config struct {
	Version  string         `yaml:"version" toml:"version"`
	Content  ContentConfig  `yaml:"content" toml:"content"`
	Monikers MonikerConfig  `yaml:"monikers,omitempty" toml:"monikers,omitempty"`
	Schemas  []SchemaConfig `yaml:"schemas,omitempty" toml:"schemas,omitempty"`
	Xref     XrefConfig     `yaml:"xref" toml:"xref"`
	Toc      TocConfig      `yaml:"toc,omitempty" toml:"toc,omitempty"`
	Output   OutputConfig   `yaml:"output" toml:"output"`
	Build    BuildConfig    `yaml:"build" toml:"build"`
	Metrics  MetricsConfig  `yaml:"metrics,omitempty" toml:"metrics,omitempty"`

	// baseDir is the directory of the loaded file; relative paths are
	// resolved against it.
	baseDir string
}

// ContentConfig selects the source files.
type ContentConfig struct {
	Root    string   `yaml:"root" toml:"root"`
	Include []string `yaml:"include,omitempty" toml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" toml:"exclude,omitempty"`
}

// MonikerConfig configures file-level monikers and their ranking.
type MonikerConfig struct {
	// Order lists monikers from lowest to highest rank. When empty monikers
	// are ranked by natural version order.
	Order []string       `yaml:"order,omitempty" toml:"order,omitempty"`
	Rules []moniker.Rule `yaml:"rules,omitempty" toml:"rules,omitempty"`
}

// SchemaConfig describes a structured document type whose uids are published.
type SchemaConfig struct {
	Name string `yaml:"name" toml:"name"`
	// Files binds documents without a YamlMime header or $schema to this
	// schema by doublestar glob.
	Files      []string          `yaml:"files,omitempty" toml:"files,omitempty"`
	Items      []string          `yaml:"items,omitempty" toml:"items,omitempty"`
	Properties map[string]string `yaml:"properties,omitempty" toml:"properties,omitempty"`
}

// XrefConfig configures resolution and the external xref maps.
type XrefConfig struct {
	// Maps are local paths or http(s) URLs; earlier maps win on duplicate uids.
	Maps      []string `yaml:"maps,omitempty" toml:"maps,omitempty"`
	CacheDir  string   `yaml:"cache_dir" toml:"cache_dir"`
	Offline   bool     `yaml:"offline,omitempty" toml:"offline,omitempty"`
	Refresh   bool     `yaml:"refresh,omitempty" toml:"refresh,omitempty"`
	NoSidecar bool     `yaml:"no_sidecar,omitempty" toml:"no_sidecar,omitempty"`
	// SiteHost is stripped from absolute hrefs pointing at this site.
	SiteHost  string      `yaml:"site_host,omitempty" toml:"site_host,omitempty"`
	CacheSize int         `yaml:"cache_size" toml:"cache_size"`
	Fetch     FetchConfig `yaml:"fetch,omitempty" toml:"fetch,omitempty"`
}

// FetchConfig controls retries of remote xref map downloads.
type FetchConfig struct {
	// Retries after the first failed attempt; unset uses the default of 2.
	Retries      *int              `yaml:"retries,omitempty" toml:"retries,omitempty"`
	Backoff      retry.BackoffMode `yaml:"backoff,omitempty" toml:"backoff,omitempty"`
	InitialDelay string            `yaml:"initial_delay,omitempty" toml:"initial_delay,omitempty"`
	MaxDelay     string            `yaml:"max_delay,omitempty" toml:"max_delay,omitempty"`
}

// TocConfig configures TOC resolution.
type TocConfig struct {
	Roots           []string `yaml:"roots,omitempty" toml:"roots,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty" toml:"case_insensitive,omitempty"`
}

// OutputConfig configures the generated site.
type OutputConfig struct {
	Directory string `yaml:"directory" toml:"directory"`
	Clean     bool   `yaml:"clean,omitempty" toml:"clean,omitempty"`
	// XrefMap is the file name of the published xref map inside Directory.
	XrefMap string `yaml:"xrefmap" toml:"xrefmap"`
}

// BuildConfig tunes the build pipeline.
type BuildConfig struct {
	Concurrency int `yaml:"concurrency" toml:"concurrency"`
	// DependencyDB is the SQLite file holding dependency edges; empty disables it.
	DependencyDB string `yaml:"dependency_db,omitempty" toml:"dependency_db,omitempty"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty"`
	Listen  string `yaml:"listen,omitempty" toml:"listen,omitempty"`
}

// Load reads, expands, defaults and validates a configuration file. The
// format follows the extension: .toml is TOML, anything else YAML.
func Load(configPath string) (*Config, error) {
	loadEnvFiles(filepath.Dir(configPath))

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError(fmt.Sprintf("configuration file not found: %s", configPath)).
				WithContext("path", configPath).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to read config file").
			WithContext("path", configPath).
			Build()
	}

	cfg, err := Parse(configPath, []byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(filepath.Dir(configPath))
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to resolve config directory").Build()
	}
	cfg.baseDir = abs

	if err := applyDefaults(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes configuration content without defaults or validation.
func Parse(name string, data []byte) (*Config, error) {
	var cfg Config
	if isTOML(name) {
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse TOML config").
				WithContext("path", name).
				Build()
		}
	} else if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to parse YAML config").
			WithContext("path", name).
			Build()
	}
	if cfg.Version != "" && cfg.Version != CurrentVersion {
		return nil, errors.ConfigError(fmt.Sprintf("unsupported configuration version: %s (expected %s)", cfg.Version, CurrentVersion)).Build()
	}
	return &cfg, nil
}

// Default returns a configuration with every default applied, rooted at dir.
func Default(dir string) (*Config, error) {
	cfg := &Config{Version: CurrentVersion, baseDir: dir}
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Path resolves a configured path against the configuration directory.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) || c.baseDir == "" {
		return p
	}
	return filepath.Join(c.baseDir, filepath.FromSlash(p))
}

// MapSources returns the xref map sources with local paths resolved.
func (c *Config) MapSources() []string {
	out := make([]string, 0, len(c.Xref.Maps))
	for _, m := range c.Xref.Maps {
		if isRemote(m) {
			out = append(out, m)
			continue
		}
		out = append(out, c.Path(m))
	}
	return out
}

// RetryPolicy returns the backoff policy for remote xref map fetches.
// Delays are validated on load; unparsable values fall back to defaults.
func (c *Config) RetryPolicy() retry.Policy {
	retries := -1
	if c.Xref.Fetch.Retries != nil {
		retries = *c.Xref.Fetch.Retries
	}
	initial, _ := time.ParseDuration(c.Xref.Fetch.InitialDelay)
	maxDelay, _ := time.ParseDuration(c.Xref.Fetch.MaxDelay)
	return retry.NewPolicy(c.Xref.Fetch.Backoff, initial, maxDelay, retries)
}

// SchemaMap returns the schemas keyed by name.
func (c *Config) SchemaMap() map[string]SchemaConfig {
	out := make(map[string]SchemaConfig, len(c.Schemas))
	for _, s := range c.Schemas {
		out[s.Name] = s
	}
	return out
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return errors.ConfigError(fmt.Sprintf("configuration file already exists: %s (use --force to overwrite)", configPath)).Build()
	}

	example := Example()
	var buf bytes.Buffer
	if isTOML(configPath) {
		if err := toml.NewEncoder(&buf).Encode(example); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
	} else {
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(example); err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_ = enc.Close()
	}

	if err := os.WriteFile(configPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns the configuration written by Init.
func Example() *Config {
	return &Config{
		Version: CurrentVersion,
		Content: ContentConfig{
			Root:    "docs",
			Include: []string{"**/*.md", "**/*.yml"},
			Exclude: []string{"**/_drafts/**"},
		},
		Monikers: MonikerConfig{
			Order: []string{"v1", "v2"},
			Rules: []moniker.Rule{{Glob: "v1/**", Monikers: []string{"v1"}}},
		},
		Schemas: []SchemaConfig{{
			Name:       "ManagedReference",
			Files:      []string{"api/**/*.yml"},
			Items:      []string{"$.items[*]"},
			Properties: map[string]string{"summary": "$.summary"},
		}},
		Xref: XrefConfig{
			Maps:      []string{"https://learn.microsoft.com/en-us/dotnet/xrefmap.json"},
			CacheDir:  ".docxref/cache",
			SiteHost:  "docs.example.com",
			CacheSize: defaultCacheSize,
		},
		Toc:     TocConfig{Roots: []string{"toc.yml"}},
		Output:  OutputConfig{Directory: "_site", Clean: true, XrefMap: defaultXrefMap},
		Build:   BuildConfig{Concurrency: 4, DependencyDB: ".docxref/deps.db"},
		Metrics: MetricsConfig{Enabled: false, Listen: defaultMetricsListen},
	}
}

func isTOML(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".toml")
}

func isRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
