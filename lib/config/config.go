// Copyright 2026 The Bold Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultRoot is used when neither the caller nor BOLD_ROOT names
	// a root.
	DefaultRoot = "/bold"

	// FileName is the configuration file looked up inside the root.
	FileName = "config.toml"

	defaultHTTPTimeout = "5m"
)

// Config is bold's configuration.
type Config struct {
	// Root is the bold root directory. Set by Load; a root key in the
	// file overrides it.
	Root string `toml:"root" yaml:"root"`

	// Repo is the package repository tree, holding main.js.
	Repo string `toml:"repo" yaml:"repo"`

	// LocalRepo is the older spelling of Repo.
	LocalRepo string `toml:"localRepo" yaml:"localRepo"`

	// QuickJSPath is the directory containing the qjs evaluator. Empty
	// means qjs is looked up on PATH.
	QuickJSPath string `toml:"quickjsPath" yaml:"quickjsPath"`

	// SystemAlias names the entry of the repository's systems object
	// whose packages are tracked by update.
	SystemAlias string `toml:"systemAlias" yaml:"systemAlias"`

	// SystemName is the older spelling of SystemAlias.
	SystemName string `toml:"systemName" yaml:"systemName"`

	// SourceTree is where src:// externals are read from. Default:
	// <root>/src.
	SourceTree string `toml:"sourceTree" yaml:"sourceTree"`

	// BinaryCaches are remote binary cache base URLs in priority
	// order.
	BinaryCaches []string `toml:"binaryCaches" yaml:"binaryCaches"`

	// Jobs bounds concurrent package materializations. Default: the
	// number of CPUs.
	Jobs int `toml:"jobs" yaml:"jobs"`

	// HTTPTimeout bounds one download from a binary cache or an
	// https:// external, as a Go duration string. Default: 5m.
	HTTPTimeout string `toml:"httpTimeout" yaml:"httpTimeout"`

	// Path is the file the configuration was read from.
	Path string `toml:"-" yaml:"-"`
}

// Load reads the configuration for the given root. An empty root
// means BOLD_ROOT, then DefaultRoot. An empty path means BOLD_CONFIG,
// then <root>/config.toml.
func Load(root, path string) (*Config, error) {
	if root == "" {
		root = os.Getenv("BOLD_ROOT")
	}
	if root == "" {
		root = DefaultRoot
	}
	if path == "" {
		path = os.Getenv("BOLD_CONFIG")
	}
	if path == "" {
		path = filepath.Join(root, FileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}
	cfg, err := Parse(data, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	if cfg.Root == "" {
		cfg.Root = root
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a configuration document. The extension selects the
// format; anything other than .yaml and .yml is read as TOML. The
// result is not normalized.
func Parse(data []byte, extension string) (*Config, error) {
	var cfg Config
	switch strings.ToLower(extension) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing TOML: %w", err)
		}
	}
	return &cfg, nil
}

// normalize expands variables, folds the alternative spellings,
// resolves relative paths against the root and fills defaults.
func (c *Config) normalize() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}
	c.Root = filepath.Clean(expandVars(c.Root, vars))
	vars["BOLD_ROOT"] = c.Root

	if c.Repo == "" {
		c.Repo = c.LocalRepo
	}
	if c.SystemAlias == "" {
		c.SystemAlias = c.SystemName
	}

	c.Repo = c.resolve(expandVars(c.Repo, vars))
	c.LocalRepo = c.resolve(expandVars(c.LocalRepo, vars))
	c.QuickJSPath = c.resolve(expandVars(c.QuickJSPath, vars))
	c.SourceTree = expandVars(c.SourceTree, vars)
	if c.SourceTree == "" {
		c.SourceTree = filepath.Join(c.Root, "src")
	}
	c.SourceTree = c.resolve(c.SourceTree)

	if c.Jobs <= 0 {
		c.Jobs = runtime.NumCPU()
	}
	if c.HTTPTimeout == "" {
		c.HTTPTimeout = defaultHTTPTimeout
	}
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.Root, path)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, preferring
// vars over the process environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name := parts[1]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return parts[2]
	})
}

// Validate checks the configuration for errors and reports all of
// them.
func (c *Config) Validate() error {
	var errs []error
	if c.Repo == "" {
		errs = append(errs, errors.New("repo is required"))
	}
	if c.LocalRepo != "" && c.Repo != c.LocalRepo {
		errs = append(errs, fmt.Errorf("repo %q and localRepo %q disagree", c.Repo, c.LocalRepo))
	}
	if c.SystemName != "" && c.SystemAlias != c.SystemName {
		errs = append(errs, fmt.Errorf("systemAlias %q and systemName %q disagree", c.SystemAlias, c.SystemName))
	}
	for _, endpoint := range c.BinaryCaches {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			errs = append(errs, fmt.Errorf("binary cache %q is not an http(s) URL", endpoint))
		}
	}
	if _, err := time.ParseDuration(c.HTTPTimeout); err != nil {
		errs = append(errs, fmt.Errorf("httpTimeout: %w", err))
	}
	return errors.Join(errs...)
}

// Timeout returns HTTPTimeout as a duration.
func (c *Config) Timeout() time.Duration {
	timeout, err := time.ParseDuration(c.HTTPTimeout)
	if err != nil {
		timeout, _ = time.ParseDuration(defaultHTTPTimeout)
	}
	return timeout
}

// QuickJSBinary returns the evaluator binary, or "" when it should be
// looked up on PATH.
func (c *Config) QuickJSBinary() string {
	if c.QuickJSPath == "" {
		return ""
	}
	return filepath.Join(c.QuickJSPath, "qjs")
}

// InstalledDir holds one unpacked tree per installed package.
func (c *Config) InstalledDir() string { return filepath.Join(c.Root, "app") }

// BinaryCacheDir holds packed artifacts.
func (c *Config) BinaryCacheDir() string {
	return filepath.Join(c.Root, "cache", "bold", "bincache")
}

// BuildDir holds ephemeral build workspaces.
func (c *Config) BuildDir() string { return filepath.Join(c.Root, "cache", "bold", "build") }

// SnapshotDir holds the generations.
func (c *Config) SnapshotDir() string { return filepath.Join(c.Root, "snapshot") }

// EnsurePaths creates the derived directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.InstalledDir(), c.BinaryCacheDir(), c.BuildDir(), c.SnapshotDir()} {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
