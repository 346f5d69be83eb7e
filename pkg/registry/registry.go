// Package registry resolves the highest published version of workspace
// crates.
//
// A [Lookup] queries its [Source] once per name, concurrently, and fails
// the whole batch if any single query fails. The only recovered condition
// is a crate the registry has never seen, which resolves to 0.0.0 when
// [Lookup.AllowNotFound] is set.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	merrors "github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/integrations"
	"github.com/matzehuels/monocrate/pkg/observability"
	"github.com/matzehuels/monocrate/pkg/version"
)

// Source returns every version string a registry knows for a crate.
// A crate the registry has never seen yields [integrations.ErrNotFound].
type Source interface {
	FetchVersions(ctx context.Context, crate string, refresh bool) ([]string, error)
}

// Lookup batch-resolves published versions. Results are memoised per name
// for the lifetime of the Lookup, so a Lookup should live for one run.
type Lookup struct {
	Source        Source
	AllowNotFound bool        // resolve unknown crates to 0.0.0 instead of failing
	Refresh       bool        // bypass the source's response cache
	Logger        *log.Logger // defaults to log.Default()

	memo sync.Map // name -> *semver.Version
}

// Versions returns the highest published version of each name.
//
// All names are queried in parallel and the call returns once every query
// has finished. If any query fails the result is nil and the error joins
// every individual failure under [merrors.ErrCodeRegistryLookup].
func (l *Lookup) Versions(ctx context.Context, names []string) (map[string]*semver.Version, error) {
	type slot struct {
		v   *semver.Version
		err error
	}
	results := make([]slot, len(names))

	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			v, err := l.one(ctx, name)
			results[idx] = slot{v: v, err: err}
		}(i, name)
	}
	wg.Wait()

	var errs []error
	out := make(map[string]*semver.Version, len(names))
	for i, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		out[names[i]] = r.v
	}
	if len(errs) > 0 {
		return nil, merrors.Wrap(merrors.ErrCodeRegistryLookup, errors.Join(errs...), "registry lookup failed for %d of %d crates", len(errs), len(names))
	}
	return out, nil
}

// Version returns the highest published version of one crate.
func (l *Lookup) Version(ctx context.Context, name string) (*semver.Version, error) {
	vs, err := l.Versions(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	return vs[name], nil
}

func (l *Lookup) one(ctx context.Context, name string) (*semver.Version, error) {
	if v, ok := l.memo.Load(name); ok {
		return v.(*semver.Version), nil
	}

	start := time.Now()
	v, err := l.fetch(ctx, name)
	observability.Release().OnLookup(ctx, name, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	l.logger().Debug("registry version", "crate", name, "version", v)
	actual, _ := l.memo.LoadOrStore(name, v)
	return actual.(*semver.Version), nil
}

func (l *Lookup) fetch(ctx context.Context, name string) (*semver.Version, error) {
	raw, err := l.Source.FetchVersions(ctx, name, l.Refresh)
	if err != nil && !errors.Is(err, integrations.ErrNotFound) {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(raw) == 0 {
		if !l.AllowNotFound {
			return nil, fmt.Errorf("%s: no published versions (pass --allow-not-found for new crates)", name)
		}
		return version.Zero(), nil
	}

	parsed := make([]*semver.Version, 0, len(raw))
	for _, s := range raw {
		v, err := version.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		parsed = append(parsed, v)
	}
	return version.Max(parsed), nil
}

func (l *Lookup) logger() *log.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return log.Default()
}

// Static is a [Source] backed by a fixed table, for dry runs and tests.
// Names absent from the table are reported as not found.
type Static map[string][]string

func (s Static) FetchVersions(_ context.Context, crate string, _ bool) ([]string, error) {
	vs, ok := s[crate]
	if !ok {
		return nil, fmt.Errorf("%w: crate %s", integrations.ErrNotFound, crate)
	}
	return vs, nil
}
