// Package config loads monocrate.yaml, the optional per-workspace settings
// file, and applies environment overrides on top of it.
package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/integrations/crates"
	"github.com/matzehuels/monocrate/pkg/publish"
	"github.com/matzehuels/monocrate/pkg/vcs"
)

// FileName is the config file looked up in the workspace root.
const FileName = "monocrate.yaml"

// Environment variables that override file settings.
const (
	EnvRedisURL = "MONOCRATE_REDIS_URL"
	EnvIndexURL = "MONOCRATE_INDEX_URL"
	EnvCacheDir = "XDG_CACHE_HOME"
)

// PublishConfig controls the publish scheduler.
type PublishConfig struct {
	Delay     time.Duration `yaml:"delay"`
	Command   string        `yaml:"command"`
	ExtraArgs []string      `yaml:"extra_args,omitempty"`
}

// Registry sources.
const (
	SourceIndex = "index" // sparse index, one static file per crate
	SourceAPI   = "api"   // crates.io web API
)

// RegistryConfig controls registry lookups.
type RegistryConfig struct {
	Source    string        `yaml:"source"`
	IndexURL  string        `yaml:"index_url"`
	APIURL    string        `yaml:"api_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
	RedisURL  string        `yaml:"redis_url,omitempty"`
}

// FilterConfig controls which crates count as publishable.
type FilterConfig struct {
	// WildcardUnpublishable treats `publish = ["*"]` as "do not publish".
	WildcardUnpublishable bool `yaml:"wildcard_unpublishable"`
}

// GitConfig controls `bump --git`.
type GitConfig struct {
	CommitMessage string `yaml:"commit_message"`
}

// Config models monocrate.yaml.
type Config struct {
	Publish  PublishConfig  `yaml:"publish"`
	Registry RegistryConfig `yaml:"registry"`
	Filter   FilterConfig   `yaml:"filter"`
	Git      GitConfig      `yaml:"git"`

	// Path is the file the config was read from, empty for defaults.
	Path string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Publish: PublishConfig{
			Delay:   publish.DefaultDelay,
			Command: "cargo",
		},
		Registry: RegistryConfig{
			Source:    SourceIndex,
			IndexURL:  crates.DefaultIndexURL,
			APIURL:    crates.DefaultAPIURL,
			UserAgent: crates.DefaultUserAgent,
			Timeout:   30 * time.Second,
		},
		Filter: FilterConfig{WildcardUnpublishable: true},
		Git:    GitConfig{CommitMessage: vcs.DefaultMessage},
	}
}

// Load reads the config at path over the defaults. A missing file yields
// the defaults unless required is set, as it is for an explicit --config.
func Load(path string, required bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config: read %s", path)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config: parse %s", path)
	}
	cfg.Path = path
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "config: %s", path)
	}
	return cfg, nil
}

// LoadWorkspace loads FileName from the workspace root.
func LoadWorkspace(root string) (*Config, error) {
	return Load(filepath.Join(root, FileName), false)
}

// ApplyEnv overrides settings from the environment. getenv is usually
// os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := strings.TrimSpace(getenv(EnvRedisURL)); v != "" {
		c.Registry.RedisURL = v
	}
	if v := strings.TrimSpace(getenv(EnvIndexURL)); v != "" {
		c.Registry.IndexURL = strings.TrimRight(v, "/")
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Publish.Delay < 0 {
		return fmt.Errorf("publish.delay must not be negative")
	}
	if c.Publish.Command == "" {
		return fmt.Errorf("publish.command is required")
	}
	switch c.Registry.Source {
	case SourceIndex:
		if err := errors.ValidateURL(c.Registry.IndexURL); err != nil {
			return fmt.Errorf("registry.index_url: %w", err)
		}
	case SourceAPI:
		if err := errors.ValidateURL(c.Registry.APIURL); err != nil {
			return fmt.Errorf("registry.api_url: %w", err)
		}
	default:
		return fmt.Errorf("registry.source must be %q or %q", SourceIndex, SourceAPI)
	}
	if c.Registry.Timeout < 0 {
		return fmt.Errorf("registry.timeout must not be negative")
	}
	if c.Registry.CacheTTL < 0 {
		return fmt.Errorf("registry.cache_ttl must not be negative")
	}
	return nil
}

func (c *Config) normalize() {
	c.Publish.Command = strings.TrimSpace(c.Publish.Command)
	c.Registry.Source = strings.ToLower(strings.TrimSpace(c.Registry.Source))
	c.Registry.IndexURL = strings.TrimRight(strings.TrimSpace(c.Registry.IndexURL), "/")
	c.Registry.APIURL = strings.TrimRight(strings.TrimSpace(c.Registry.APIURL), "/")
	c.Registry.RedisURL = strings.TrimSpace(c.Registry.RedisURL)
	if strings.TrimSpace(c.Registry.UserAgent) == "" {
		c.Registry.UserAgent = crates.DefaultUserAgent
	}
	if strings.TrimSpace(c.Git.CommitMessage) == "" {
		c.Git.CommitMessage = vcs.DefaultMessage
	}
}

// CacheDir returns the registry response cache directory,
// $XDG_CACHE_HOME/monocrate or ~/.cache/monocrate.
func CacheDir(getenv func(string) string) (string, error) {
	if base := getenv(EnvCacheDir); base != "" {
		return filepath.Join(base, "monocrate"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", "monocrate"), nil
}
