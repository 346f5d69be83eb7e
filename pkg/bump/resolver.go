package bump

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/observability"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// VersionSource returns the published version of a crate.
// *registry.Lookup satisfies it.
type VersionSource interface {
	Version(ctx context.Context, name string) (*semver.Version, error)
}

// Options control one resolution.
type Options struct {
	Breaking       bool
	WithDependants bool
	Interactive    bool
}

// Plan is the set of crates to bump with their new versions.
type Plan struct {
	Next  map[string]*semver.Version // new version per crate
	Prev  map[string]*semver.Version // published version the bump started from
	Order []string                   // insertion order, for display only
}

// NewPlan returns an empty plan.
func NewPlan() *Plan {
	return &Plan{
		Next: make(map[string]*semver.Version),
		Prev: make(map[string]*semver.Version),
	}
}

// Has reports whether name is already planned.
func (p *Plan) Has(name string) bool {
	_, ok := p.Next[name]
	return ok
}

// Len returns the number of planned crates.
func (p *Plan) Len() int { return len(p.Order) }

func (p *Plan) add(name string, prev, next *semver.Version) {
	p.Next[name] = next
	p.Prev[name] = prev
	p.Order = append(p.Order, name)
}

// Resolver computes bump plans over one workspace.
type Resolver struct {
	Packages []workspace.Package
	Filter   workspace.Filter
	Versions VersionSource
	Prompter Prompter    // required when Options.Interactive is set
	Logger   *log.Logger // defaults to log.Default()
}

// Resolve adds start and the dependants it drags along to plan. Crates
// already in plan are left alone, so several starts can share one plan.
func (r *Resolver) Resolve(ctx context.Context, plan *Plan, start string, opts Options) error {
	pkg, err := workspace.Find(r.Packages, start)
	if err != nil {
		return err
	}
	if !r.Filter.CanPublish(pkg) {
		r.logger().Warn("crate is not publishable, nothing to bump", "crate", start)
		return nil
	}
	if opts.Interactive && r.Prompter == nil {
		return errors.New(errors.ErrCodeInvalidInput, "interactive bump requires a terminal prompt")
	}

	w := &walk{
		Resolver:    r,
		plan:        plan,
		publishable: r.Filter.Apply(r.Packages),
		visiting:    make(map[string]bool),
	}
	return w.resolve(ctx, start, opts)
}

type walk struct {
	*Resolver
	plan        *Plan
	publishable []workspace.Package
	visiting    map[string]bool
}

func (w *walk) resolve(ctx context.Context, start string, opts Options) error {
	if w.plan.Has(start) || w.visiting[start] {
		return nil
	}
	w.visiting[start] = true
	defer delete(w.visiting, start)

	var picked []string
	if opts.Interactive {
		var err error
		if opts.Breaking, picked, err = w.ask(ctx, start); err != nil {
			return err
		}
	}

	cascade := !opts.Interactive && (opts.Breaking || opts.WithDependants)
	for i := range w.publishable {
		p := &w.publishable[i]
		if p.Name == start {
			if err := w.bump(ctx, start, opts.Breaking); err != nil {
				return err
			}
			continue
		}
		if w.plan.Has(p.Name) {
			continue
		}
		if cascade && p.DependsOn(start) {
			if err := w.resolve(ctx, p.Name, opts); err != nil {
				return err
			}
		}
	}

	for _, name := range picked {
		if err := w.resolve(ctx, name, opts); err != nil {
			return err
		}
	}
	return nil
}

// ask runs the interactive step for start: the breaking question, then
// the choice of direct dependants when the answer is no.
func (w *walk) ask(ctx context.Context, start string) (bool, []string, error) {
	breaking, err := confirm(ctx, w.Prompter, fmt.Sprintf("Is the change to %s breaking?", start))
	if err != nil {
		return false, nil, err
	}

	dependants := w.directDependants(start)
	if breaking || len(dependants) == 0 {
		return breaking, dependants, nil
	}

	picked, err := choose(ctx, w.Prompter, fmt.Sprintf("Which dependants of %s should also be bumped?", start), dependants)
	if err != nil {
		return false, nil, err
	}
	return false, picked, nil
}

func (w *walk) directDependants(name string) []string {
	var out []string
	for i := range w.publishable {
		p := &w.publishable[i]
		if p.Name != name && !w.plan.Has(p.Name) && p.DependsOn(name) {
			out = append(out, p.Name)
		}
	}
	return out
}

func (w *walk) bump(ctx context.Context, name string, breaking bool) error {
	prev, err := w.Versions.Version(ctx, name)
	if err != nil {
		return err
	}
	next := version.Bump(prev, breaking)
	w.plan.add(name, prev, next)

	w.logger().Debug("planned bump", "crate", name, "from", prev, "to", next, "breaking", breaking)
	observability.Release().OnBump(ctx, name, prev.String(), next.String())
	return nil
}

func (r *Resolver) logger() *log.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return log.Default()
}
