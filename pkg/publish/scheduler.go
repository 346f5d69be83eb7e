package publish

import (
	"context"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/monocrate/pkg/dag"
	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/observability"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// All selects every publishable crate in the workspace.
const All = "*"

// DefaultDelay is the pause before each publish, to stay under the
// registry's rate limit.
const DefaultDelay = 5 * time.Second

// Stage is a point in the scheduler's run.
type Stage int

const (
	StageBuilding Stage = iota
	StageSorted
	StagePublishing
	StageDone
	StageCycleError
)

func (s Stage) String() string {
	switch s {
	case StageBuilding:
		return "building"
	case StageSorted:
		return "sorted"
	case StagePublishing:
		return "publishing"
	case StageDone:
		return "done"
	case StageCycleError:
		return "cycle-error"
	default:
		return "unknown"
	}
}

// VersionSource batch-resolves published versions.
// *registry.Lookup satisfies it.
type VersionSource interface {
	Versions(ctx context.Context, names []string) (map[string]*semver.Version, error)
}

// Publisher uploads one crate and returns once the upload has finished.
type Publisher interface {
	Publish(ctx context.Context, pkg *workspace.Package, noVerify bool) error
}

// Options control one run.
type Options struct {
	Target        string        // crate name, or All
	AllowOnlyDeps bool          // publish dependencies even if the target is already published
	NoVerify      bool          // pass --no-verify to cargo
	Delay         time.Duration // pause before each publish
	DryRun        bool          // order and check, but never invoke the publisher
}

// Report describes what a run did.
type Report struct {
	Stage     Stage
	Order     []string // topological order of the graph
	Published []string
	Skipped   []string
}

// Scheduler publishes crates of one workspace.
type Scheduler struct {
	Packages  []workspace.Package
	Filter    workspace.Filter
	Versions  VersionSource
	Publisher Publisher
	Logger    *log.Logger // defaults to log.Default()

	// Sleep waits between publishes; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// BuildGraph returns the publish graph for target. For [All] it holds every
// publishable crate; otherwise the target plus the publishable local crates
// it transitively depends on. Edges point from dependency to dependant.
func (s *Scheduler) BuildGraph(target string) (*dag.DAG, error) {
	pkgs := s.Filter.Apply(s.Packages)
	byName := make(map[string]*workspace.Package, len(pkgs))
	for i := range pkgs {
		byName[pkgs[i].Name] = &pkgs[i]
	}

	include := func(string) bool { return true }
	if target != All {
		if _, err := workspace.Find(s.Packages, target); err != nil {
			return nil, err
		}
		if _, ok := byName[target]; !ok {
			return nil, errors.New(errors.ErrCodeInvalidPackage, "crate %s is not publishable", target)
		}
		feeding := dependencyClosure(byName, target)
		include = func(name string) bool { return feeding[name] }
	}

	g := dag.New(dag.Metadata{"target": target})
	for i := range pkgs {
		p := &pkgs[i]
		if !include(p.Name) {
			continue
		}
		node, err := g.EnsureNode(p.Name)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "add %s to publish graph", p.Name)
		}
		node.Meta["version"] = p.Version.String()

		for _, d := range p.Dependencies {
			if _, local := byName[d.Name]; !local || !include(d.Name) || d.Name == p.Name {
				continue
			}
			if _, err := g.EnsureNode(d.Name); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "add %s to publish graph", d.Name)
			}
			if err := g.AddEdge(dag.Edge{From: d.Name, To: p.Name}); err != nil {
				return nil, errors.Wrap(errors.ErrCodeInternal, err, "link %s -> %s", d.Name, p.Name)
			}
		}
	}
	return g, nil
}

// dependencyClosure returns target and every local crate reachable from it
// through declared dependencies.
func dependencyClosure(byName map[string]*workspace.Package, target string) map[string]bool {
	seen := map[string]bool{target: true}
	stack := []string{target}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, d := range byName[name].Dependencies {
			if _, local := byName[d.Name]; local && !seen[d.Name] {
				seen[d.Name] = true
				stack = append(stack, d.Name)
			}
		}
	}
	return seen
}

// Run builds, checks, sorts and publishes. The returned report is non-nil
// even on error and records how far the run got.
func (s *Scheduler) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Target == "" {
		opts.Target = All
	}
	logger := s.logger()
	report := &Report{Stage: StageBuilding}

	g, err := s.BuildGraph(opts.Target)
	if err != nil {
		return report, err
	}
	names := dag.NodeIDs(g.Nodes())
	logger.Debug("publish graph built", "target", opts.Target, "crates", g.NodeCount(), "edges", g.EdgeCount())

	published, err := s.Versions.Versions(ctx, names)
	if err != nil {
		return report, err
	}

	if opts.Target != All && !opts.AllowOnlyDeps {
		target, _ := workspace.Find(s.Packages, opts.Target)
		if !version.Newer(target.Version, published[target.Name]) {
			return report, errors.New(errors.ErrCodeAlreadyPublished,
				"%s %s is not ahead of the published version %s", target.Name, target.Version, published[target.Name])
		}
	}

	order, err := g.TopoSort()
	if err != nil {
		report.Stage = StageCycleError
		return report, errors.Wrap(errors.ErrCodeCycleDetected, err, "cannot order crates for publishing")
	}
	report.Order = order
	report.Stage = StageSorted
	logger.Debug("publish order", "order", order)

	report.Stage = StagePublishing
	for _, name := range order {
		pkg, _ := workspace.Find(s.Packages, name)
		if err := s.publishOne(ctx, pkg, published[name], opts, report); err != nil {
			return report, err
		}
	}
	report.Stage = StageDone
	return report, nil
}

func (s *Scheduler) publishOne(ctx context.Context, pkg *workspace.Package, published *semver.Version, opts Options, report *Report) error {
	logger := s.logger().With("crate", pkg.Name)
	hooks := observability.Release()

	if !version.Newer(pkg.Version, published) {
		logger.Info("already published, skipping", "version", pkg.Version, "published", published)
		hooks.OnPublishSkip(ctx, pkg.Name, pkg.Version.String())
		report.Skipped = append(report.Skipped, pkg.Name)
		return nil
	}

	if opts.DryRun {
		logger.Info("would publish", "version", pkg.Version, "published", published)
		report.Published = append(report.Published, pkg.Name)
		return nil
	}

	if opts.Delay > 0 {
		if err := s.sleep(ctx, opts.Delay); err != nil {
			return err
		}
	}

	logger.Info("publishing", "version", pkg.Version)
	hooks.OnPublishStart(ctx, pkg.Name, pkg.Version.String())
	start := time.Now()
	err := s.Publisher.Publish(ctx, pkg, opts.NoVerify)
	hooks.OnPublishComplete(ctx, pkg.Name, pkg.Version.String(), time.Since(start), err)
	if err != nil {
		if errors.GetCode(err) == "" {
			err = errors.Wrap(errors.ErrCodeSubprocessFailed, err, "publish %s %s", pkg.Name, pkg.Version)
		}
		return err
	}

	report.Published = append(report.Published, pkg.Name)
	return nil
}

func (s *Scheduler) sleep(ctx context.Context, d time.Duration) error {
	if s.Sleep != nil {
		return s.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
