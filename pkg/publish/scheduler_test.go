package publish

import (
	"context"
	stderrors "errors"
	"slices"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

type fakeVersions map[string]string

func (f fakeVersions) Versions(_ context.Context, names []string) (map[string]*semver.Version, error) {
	out := make(map[string]*semver.Version, len(names))
	for _, n := range names {
		v, ok := f[n]
		if !ok {
			v = "0.0.0"
		}
		out[n] = version.MustParse(v)
	}
	return out, nil
}

type failingVersions struct{}

func (failingVersions) Versions(context.Context, []string) (map[string]*semver.Version, error) {
	return nil, errors.New(errors.ErrCodeRegistryLookup, "index.crates.io unreachable")
}

type fakePublisher struct {
	calls    []string
	noVerify []bool
	fail     map[string]error
}

func (f *fakePublisher) Publish(_ context.Context, pkg *workspace.Package, noVerify bool) error {
	f.calls = append(f.calls, pkg.Name)
	f.noVerify = append(f.noVerify, noVerify)
	return f.fail[pkg.Name]
}

func pkg(name, ver string, deps ...string) workspace.Package {
	p := workspace.Package{Name: name, Version: version.MustParse(ver), ManifestPath: "/ws/" + name + "/Cargo.toml"}
	for _, d := range deps {
		p.Dependencies = append(p.Dependencies, workspace.Dependency{Name: d, Req: "0.1", Kind: workspace.KindNormal})
	}
	return p
}

func noSleep(context.Context, time.Duration) error { return nil }

// core <- parser <- bundler, all local.
func chain() []workspace.Package {
	return []workspace.Package{
		pkg("bundler", "0.1.0", "parser", "serde"),
		pkg("core", "0.1.0"),
		pkg("parser", "0.2.0", "core"),
	}
}

func TestRun_OrdersAndSkips(t *testing.T) {
	pub := &fakePublisher{}
	s := &Scheduler{
		Packages:  chain(),
		Filter:    workspace.DefaultFilter(),
		Versions:  fakeVersions{"core": "0.1.0", "parser": "0.1.0"},
		Publisher: pub,
		Sleep:     noSleep,
	}

	report, err := s.Run(context.Background(), Options{Target: All})
	if err != nil {
		t.Fatalf("Run error: %v", err)
	}
	if want := []string{"core", "parser", "bundler"}; !slices.Equal(report.Order, want) {
		t.Errorf("Order = %v, want %v", report.Order, want)
	}
	if want := []string{"parser", "bundler"}; !slices.Equal(pub.calls, want) {
		t.Errorf("published %v, want %v", pub.calls, want)
	}
	if !slices.Equal(report.Skipped, []string{"core"}) {
		t.Errorf("Skipped = %v", report.Skipped)
	}
	if report.Stage != StageDone {
		t.Errorf("Stage = %s, want done", report.Stage)
	}
}

func TestRun_Cycle(t *testing.T) {
	pub := &fakePublisher{}
	s := &Scheduler{
		Packages:  []workspace.Package{pkg("a", "0.2.0", "b"), pkg("b", "0.2.0", "a"), pkg("c", "0.2.0")},
		Versions:  fakeVersions{},
		Publisher: pub,
		Sleep:     noSleep,
	}

	report, err := s.Run(context.Background(), Options{})
	if !errors.Is(err, errors.ErrCodeCycleDetected) {
		t.Fatalf("expected CYCLE_DETECTED, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Errorf("no publish attempts expected, got %v", pub.calls)
	}
	if report.Stage != StageCycleError {
		t.Errorf("Stage = %s, want cycle-error", report.Stage)
	}
}

func TestRun_AlreadyPublishedTarget(t *testing.T) {
	pkgs := []workspace.Package{pkg("A", "0.1.0"), pkg("B", "0.1.0", "A")}
	reg := fakeVersions{"A": "0.1.0", "B": "0.1.0"}

	t.Run("guard fails fast", func(t *testing.T) {
		pub := &fakePublisher{}
		s := &Scheduler{Packages: pkgs, Versions: reg, Publisher: pub, Sleep: noSleep}
		_, err := s.Run(context.Background(), Options{Target: "A"})
		if !errors.Is(err, errors.ErrCodeAlreadyPublished) {
			t.Fatalf("expected ALREADY_PUBLISHED, got %v", err)
		}
		if len(pub.calls) != 0 {
			t.Errorf("expected zero publishes, got %v", pub.calls)
		}
	})

	t.Run("only deps skips", func(t *testing.T) {
		pub := &fakePublisher{}
		s := &Scheduler{Packages: pkgs, Versions: reg, Publisher: pub, Sleep: noSleep}
		report, err := s.Run(context.Background(), Options{Target: "A", AllowOnlyDeps: true})
		if err != nil {
			t.Fatal(err)
		}
		if len(pub.calls) != 0 {
			t.Errorf("expected zero publishes, got %v", pub.calls)
		}
		if !slices.Equal(report.Skipped, []string{"A"}) {
			t.Errorf("Skipped = %v, want [A]", report.Skipped)
		}
	})
}

func TestRun_TargetPublishesDependenciesFirst(t *testing.T) {
	pub := &fakePublisher{}
	pkgs := []workspace.Package{
		pkg("bundler", "0.3.0", "parser"),
		pkg("core", "0.3.0"),
		pkg("parser", "0.3.0", "core"),
		pkg("unrelated", "0.3.0"),
	}
	s := &Scheduler{Packages: pkgs, Versions: fakeVersions{}, Publisher: pub, Sleep: noSleep}

	report, err := s.Run(context.Background(), Options{Target: "parser", NoVerify: true})
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"core", "parser"}; !slices.Equal(pub.calls, want) {
		t.Errorf("published %v, want %v", pub.calls, want)
	}
	if !slices.Equal(report.Order, []string{"core", "parser"}) {
		t.Errorf("Order = %v", report.Order)
	}
	if !slices.Equal(pub.noVerify, []bool{true, true}) {
		t.Errorf("noVerify not passed through: %v", pub.noVerify)
	}
}

func TestRun_PublishFailureStops(t *testing.T) {
	pub := &fakePublisher{fail: map[string]error{"parser": stderrors.New("exit status 101")}}
	s := &Scheduler{Packages: chain(), Versions: fakeVersions{}, Publisher: pub, Sleep: noSleep}

	report, err := s.Run(context.Background(), Options{})
	if !errors.Is(err, errors.ErrCodeSubprocessFailed) {
		t.Fatalf("expected SUBPROCESS_FAILED, got %v", err)
	}
	if !slices.Equal(pub.calls, []string{"core", "parser"}) {
		t.Errorf("calls = %v, bundler must not be attempted", pub.calls)
	}
	if !slices.Equal(report.Published, []string{"core"}) {
		t.Errorf("Published = %v, earlier crates stay published", report.Published)
	}
	if report.Stage != StagePublishing {
		t.Errorf("Stage = %s", report.Stage)
	}
}

func TestRun_DelayBeforeEachPublish(t *testing.T) {
	var waits []time.Duration
	s := &Scheduler{
		Packages:  chain(),
		Versions:  fakeVersions{"core": "0.1.0"},
		Publisher: &fakePublisher{},
		Sleep: func(_ context.Context, d time.Duration) error {
			waits = append(waits, d)
			return nil
		},
	}
	if _, err := s.Run(context.Background(), Options{Delay: DefaultDelay}); err != nil {
		t.Fatal(err)
	}
	if want := []time.Duration{DefaultDelay, DefaultDelay}; !slices.Equal(waits, want) {
		t.Errorf("waits = %v, want %v (skipped crates do not wait)", waits, want)
	}
}

func TestRun_DelayHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub := &fakePublisher{}
	s := &Scheduler{Packages: chain(), Versions: fakeVersions{}, Publisher: pub}

	_, err := s.Run(ctx, Options{Delay: time.Hour})
	if !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(pub.calls) != 0 {
		t.Errorf("nothing should be published, got %v", pub.calls)
	}
}

func TestRun_DryRun(t *testing.T) {
	pub := &fakePublisher{}
	s := &Scheduler{Packages: chain(), Versions: fakeVersions{"core": "0.1.0"}, Publisher: pub, Sleep: noSleep}

	report, err := s.Run(context.Background(), Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.calls) != 0 {
		t.Errorf("dry run invoked publisher: %v", pub.calls)
	}
	if !slices.Equal(report.Published, []string{"parser", "bundler"}) {
		t.Errorf("Published = %v", report.Published)
	}
}

func TestRun_Errors(t *testing.T) {
	hidden := pkg("internal", "0.1.0")
	hidden.Publish = []string{}

	tests := []struct {
		name   string
		target string
		src    VersionSource
		code   errors.Code
	}{
		{"unknown target", "missing", fakeVersions{}, errors.ErrCodeWorkspaceNotFound},
		{"unpublishable target", "internal", fakeVersions{}, errors.ErrCodeInvalidPackage},
		{"registry failure", All, failingVersions{}, errors.ErrCodeRegistryLookup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			s := &Scheduler{
				Packages:  append(chain(), hidden),
				Filter:    workspace.DefaultFilter(),
				Versions:  tt.src,
				Publisher: pub,
				Sleep:     noSleep,
			}
			_, err := s.Run(context.Background(), Options{Target: tt.target})
			if !errors.Is(err, tt.code) {
				t.Errorf("expected %s, got %v", tt.code, err)
			}
			if len(pub.calls) != 0 {
				t.Errorf("no publishes expected, got %v", pub.calls)
			}
		})
	}
}

func TestBuildGraph_ExcludesUnpublishable(t *testing.T) {
	helper := pkg("testing", "0.1.0")
	helper.Publish = []string{}
	app := pkg("app", "0.1.0", "core")
	app.Dependencies = append(app.Dependencies, workspace.Dependency{Name: "testing", Req: "0.1", Kind: workspace.KindDev})

	s := &Scheduler{Packages: []workspace.Package{app, pkg("core", "0.1.0"), helper}, Filter: workspace.DefaultFilter()}
	g, err := s.BuildGraph(All)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := g.Node("testing"); ok {
		t.Error("unpublishable crate should not be in the graph")
	}
	if g.EdgeCount() != 1 {
		t.Errorf("EdgeCount = %d, want 1", g.EdgeCount())
	}
	if n, _ := g.Node("app"); n.Meta["version"] != "0.1.0" {
		t.Errorf("node metadata = %v", n.Meta)
	}
}

func TestStageString(t *testing.T) {
	want := map[Stage]string{
		StageBuilding: "building", StageSorted: "sorted", StagePublishing: "publishing",
		StageDone: "done", StageCycleError: "cycle-error", Stage(99): "unknown",
	}
	for s, w := range want {
		if s.String() != w {
			t.Errorf("%d.String() = %q, want %q", int(s), s.String(), w)
		}
	}
}
