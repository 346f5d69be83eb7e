package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/monocrate/pkg/errors"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func env(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadWorkspace(t.TempDir())
	if err != nil {
		t.Fatalf("LoadWorkspace() error: %v", err)
	}
	if cfg.Publish.Delay != 5*time.Second {
		t.Errorf("Delay = %v, want 5s", cfg.Publish.Delay)
	}
	if cfg.Publish.Command != "cargo" {
		t.Errorf("Command = %q", cfg.Publish.Command)
	}
	if cfg.Registry.IndexURL != "https://index.crates.io" {
		t.Errorf("IndexURL = %q", cfg.Registry.IndexURL)
	}
	if !cfg.Filter.WildcardUnpublishable {
		t.Error("WildcardUnpublishable should default to true")
	}
	if cfg.Git.CommitMessage != "Bump versions" {
		t.Errorf("CommitMessage = %q", cfg.Git.CommitMessage)
	}
	if cfg.Path != "" {
		t.Errorf("Path = %q, want empty", cfg.Path)
	}
}

func TestLoadMissingRequired(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), true)
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
publish:
  delay: 250ms
  extra_args: ["--registry", "internal"]
registry:
  index_url: https://index.example.com/
  source: API
  cache_ttl: 1h
filter:
  wildcard_unpublishable: false
git:
  commit_message: "chore: release"
`)
	cfg, err := Load(path, true)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Publish.Delay != 250*time.Millisecond {
		t.Errorf("Delay = %v", cfg.Publish.Delay)
	}
	if cfg.Publish.Command != "cargo" {
		t.Errorf("Command = %q, want default kept", cfg.Publish.Command)
	}
	if strings.Join(cfg.Publish.ExtraArgs, " ") != "--registry internal" {
		t.Errorf("ExtraArgs = %v", cfg.Publish.ExtraArgs)
	}
	if cfg.Registry.IndexURL != "https://index.example.com" {
		t.Errorf("IndexURL = %q, want trailing slash trimmed", cfg.Registry.IndexURL)
	}
	if cfg.Registry.Source != SourceAPI {
		t.Errorf("Source = %q, want normalized %q", cfg.Registry.Source, SourceAPI)
	}
	if cfg.Registry.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v", cfg.Registry.CacheTTL)
	}
	if cfg.Filter.WildcardUnpublishable {
		t.Error("WildcardUnpublishable should be false")
	}
	if cfg.Git.CommitMessage != "chore: release" {
		t.Errorf("CommitMessage = %q", cfg.Git.CommitMessage)
	}
	if cfg.Path != path {
		t.Errorf("Path = %q, want %q", cfg.Path, path)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad yaml", "publish: [", "parse"},
		{"negative delay", "publish:\n  delay: -1s\n", "publish.delay"},
		{"empty command", "publish:\n  command: \"  \"\n", "publish.command"},
		{"bad index", "registry:\n  index_url: ftp://x\n", "registry.index_url"},
		{"bad source", "registry:\n  source: git\n", "registry.source"},
		{"bad api url", "registry:\n  source: api\n  api_url: crates.io\n", "registry.api_url"},
		{"negative ttl", "registry:\n  cache_ttl: -5m\n", "registry.cache_ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body), true)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.ApplyEnv(env(map[string]string{
		EnvRedisURL: "redis://localhost:6379/0",
		EnvIndexURL: "http://127.0.0.1:8080/",
	}))
	if cfg.Registry.RedisURL != "redis://localhost:6379/0" {
		t.Errorf("RedisURL = %q", cfg.Registry.RedisURL)
	}
	if cfg.Registry.IndexURL != "http://127.0.0.1:8080" {
		t.Errorf("IndexURL = %q", cfg.Registry.IndexURL)
	}

	cfg = Default()
	cfg.ApplyEnv(env(nil))
	if cfg.Registry.RedisURL != "" || cfg.Registry.IndexURL != "https://index.crates.io" {
		t.Errorf("empty environment should change nothing: %+v", cfg.Registry)
	}
}

func TestCacheDir(t *testing.T) {
	dir, err := CacheDir(env(map[string]string{EnvCacheDir: "/tmp/xdg"}))
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join("/tmp/xdg", "monocrate") {
		t.Errorf("CacheDir() = %q", dir)
	}

	dir, err = CacheDir(env(nil))
	if err != nil {
		t.Fatalf("CacheDir() error: %v", err)
	}
	home, _ := os.UserHomeDir()
	if !strings.HasPrefix(dir, home) || filepath.Base(dir) != "monocrate" {
		t.Errorf("CacheDir() = %q, want under %q ending in monocrate", dir, home)
	}
}

func TestExampleConfigMatchesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "examples", FileName), true)
	if err != nil {
		t.Fatalf("Load(example) error: %v", err)
	}
	want := Default()
	if cfg.Publish.Delay != want.Publish.Delay || cfg.Publish.Command != want.Publish.Command {
		t.Errorf("publish = %+v, want %+v", cfg.Publish, want.Publish)
	}
	if cfg.Registry != want.Registry {
		t.Errorf("registry = %+v, want %+v", cfg.Registry, want.Registry)
	}
	if cfg.Filter != want.Filter || cfg.Git != want.Git {
		t.Errorf("filter/git = %+v %+v, want %+v %+v", cfg.Filter, cfg.Git, want.Filter, want.Git)
	}
}
