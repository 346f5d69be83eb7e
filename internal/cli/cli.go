// Package cli implements the monocrate command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/matzehuels/monocrate/internal/config"
	"github.com/matzehuels/monocrate/pkg/bump"
	"github.com/matzehuels/monocrate/pkg/buildinfo"
	"github.com/matzehuels/monocrate/pkg/cache"
	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/integrations/crates"
	"github.com/matzehuels/monocrate/pkg/observability"
	"github.com/matzehuels/monocrate/pkg/observability/prom"
	"github.com/matzehuels/monocrate/pkg/publish"
	"github.com/matzehuels/monocrate/pkg/registry"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = "monocrate"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	RunID  string

	// Global flags.
	dir         string
	configPath  string
	noCache     bool
	metricsFile string

	metrics *prom.Hooks

	// Collaborators, replaced in tests.
	loadWorkspace func(ctx context.Context, dir string) (*workspace.Workspace, error)
	source        registry.Source
	prompter      bump.Prompter
	publisher     publish.Publisher
	sleep         func(ctx context.Context, d time.Duration) error
}

// New creates a new CLI instance. Every log line carries the run ID so
// interleaved CI output can be told apart.
func New(w io.Writer, level log.Level) *CLI {
	runID := uuid.NewString()
	return &CLI{
		Logger:        newLogger(w, level).With("run", runID[:8]),
		RunID:         runID,
		loadWorkspace: loadCargoWorkspace,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Monocrate bumps and publishes the crates of a cargo workspace",
		Long: `Monocrate releases the crates of a cargo workspace. It bumps a crate and
the dependants that need a new version, rewrites every affected Cargo.toml,
and publishes crates to the registry in dependency order.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			if c.Logger.GetLevel() <= log.DebugLevel {
				observability.SetHTTPHooks(&httpLogHooks{logger: c.Logger})
			}
			if c.metricsFile != "" {
				c.metrics = prom.New()
				c.metrics.Register()
			}
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())

	flags := root.PersistentFlags()
	flags.StringVarP(&c.dir, "workspace", "C", "", "workspace directory (default: current directory)")
	flags.StringVar(&c.configPath, "config", "", "config file (default: <workspace>/"+config.FileName+")")
	flags.BoolVar(&c.noCache, "no-cache", false, "bypass the registry response cache")
	flags.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile when done")

	root.AddCommand(c.bumpCommand())
	root.AddCommand(c.publishCommand())
	root.AddCommand(c.checkCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Close flushes run-scoped output such as the metrics textfile. It is
// called after the command finished, whether or not it failed.
func (c *CLI) Close() error {
	if c.metrics == nil {
		return nil
	}
	defer observability.Reset()
	if err := c.metrics.WriteTextfile(c.metricsFile); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write metrics to %s", c.metricsFile)
	}
	c.Logger.Debug("wrote metrics", "path", c.metricsFile)
	return nil
}

// =============================================================================
// Session - the workspace and settings one command works on
// =============================================================================

type session struct {
	ws     *workspace.Workspace
	cfg    *config.Config
	filter workspace.Filter
	cache  cache.Cache
}

func (s *session) Close() error {
	return s.cache.Close()
}

// open loads the workspace and its config.
func (c *CLI) open(ctx context.Context) (*session, error) {
	ws, err := c.loadWorkspace(ctx, c.dir)
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if c.configPath != "" {
		cfg, err = config.Load(c.configPath, true)
	} else {
		cfg, err = config.LoadWorkspace(ws.Root)
	}
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if cfg.Path != "" {
		loggerFromContext(ctx).Debug("loaded config", "path", cfg.Path)
	}

	backend, err := c.newCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &session{
		ws:     ws,
		cfg:    cfg,
		filter: workspace.Filter{WildcardUnpublishable: cfg.Filter.WildcardUnpublishable},
		cache:  backend,
	}, nil
}

// lookup builds the registry lookup for this session. refresh bypasses
// cached registry responses.
func (c *CLI) lookup(ctx context.Context, s *session, allowNotFound, refresh bool) *registry.Lookup {
	return &registry.Lookup{
		Source:        c.registrySource(s),
		AllowNotFound: allowNotFound,
		Refresh:       refresh,
		Logger:        loggerFromContext(ctx),
	}
}

func (c *CLI) registrySource(s *session) registry.Source {
	if c.source != nil {
		return c.source
	}
	rc := s.cfg.Registry
	if rc.Source == config.SourceAPI {
		client := crates.NewAPIClient(s.cache, rc.CacheTTL, rc.APIURL, rc.UserAgent)
		client.SetTimeout(rc.Timeout)
		return client
	}
	client := crates.NewIndexClient(s.cache, rc.CacheTTL, rc.IndexURL, rc.UserAgent)
	client.SetTimeout(rc.Timeout)
	return client
}

// newCache picks the registry response cache. A zero TTL disables caching
// across runs.
func (c *CLI) newCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if c.noCache || cfg.Registry.CacheTTL == 0 {
		return cache.NewNullCache(), nil
	}
	if cfg.Registry.RedisURL != "" {
		return cache.NewRedisCache(ctx, cfg.Registry.RedisURL)
	}
	dir, err := config.CacheDir(os.Getenv)
	if err != nil {
		loggerFromContext(ctx).Warn("registry cache disabled", "error", err)
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

func loadCargoWorkspace(ctx context.Context, dir string) (*workspace.Workspace, error) {
	return (&workspace.CargoMetadata{Dir: dir}).Load(ctx)
}

// =============================================================================
// Argument Helpers
// =============================================================================

// splitCrates accepts "a b" as well as "a,b" and validates each name.
func splitCrates(args []string) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, arg := range args {
		for _, name := range strings.Split(arg, ",") {
			name = strings.TrimSpace(name)
			if name == "" || seen[name] {
				continue
			}
			if err := errors.ValidateCrateName(name); err != nil {
				return nil, err
			}
			seen[name] = true
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no crate names given")
	}
	return names, nil
}
