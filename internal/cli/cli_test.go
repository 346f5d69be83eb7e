package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/monocrate/internal/config"
	"github.com/matzehuels/monocrate/pkg/bump"
	"github.com/matzehuels/monocrate/pkg/cache"
	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/registry"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

const manifestA = `[package]
name = "a"
version = "0.1.0"
edition = "2021"
`

const manifestB = `[package]
name = "b"
version = "0.1.0"
edition = "2021"

[dependencies]
a = { version = "0.1", path = "../a" }
`

type recordingPublisher struct {
	calls []string
}

func (r *recordingPublisher) Publish(_ context.Context, pkg *workspace.Package, _ bool) error {
	r.calls = append(r.calls, pkg.Name)
	return nil
}

type testEnv struct {
	dir       string
	cli       *CLI
	publisher *recordingPublisher
}

// newTestEnv writes a two-crate workspace where b depends on a.
func newTestEnv(t *testing.T, localB string, published registry.Static) *testEnv {
	t.Helper()
	dir := t.TempDir()
	for name, body := range map[string]string{"a": manifestA, "b": strings.Replace(manifestB, "0.1.0", localB, 1)} {
		if err := os.MkdirAll(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, name, "Cargo.toml"), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	ws := &workspace.Workspace{
		Root: dir,
		Packages: []workspace.Package{
			{Name: "a", Version: version.MustParse("0.1.0"), ManifestPath: filepath.Join(dir, "a", "Cargo.toml")},
			{
				Name: "b", Version: version.MustParse(localB), ManifestPath: filepath.Join(dir, "b", "Cargo.toml"),
				Dependencies: []workspace.Dependency{{Name: "a", Req: "0.1", Kind: workspace.KindNormal, Path: filepath.Join(dir, "a")}},
			},
		},
	}

	pub := &recordingPublisher{}
	c := New(io.Discard, LogInfo)
	c.loadWorkspace = func(context.Context, string) (*workspace.Workspace, error) { return ws, nil }
	c.source = published
	c.publisher = pub
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return &testEnv{dir: dir, cli: c, publisher: pub}
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	root := e.cli.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	if cerr := e.cli.Close(); cerr != nil {
		t.Fatalf("Close() error: %v", cerr)
	}
	return err
}

func (e *testEnv) read(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.dir, name, "Cargo.toml"))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}

func TestRootCommandSubcommands(t *testing.T) {
	root := New(io.Discard, LogInfo).RootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"bump", "publish", "check", "graph", "cache", "completion"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing subcommand %q (have %v)", want, names)
		}
	}
}

func TestSplitCrates(t *testing.T) {
	tests := []struct {
		args    []string
		want    []string
		wantErr bool
	}{
		{[]string{"a"}, []string{"a"}, false},
		{[]string{"a,b", "c"}, []string{"a", "b", "c"}, false},
		{[]string{"a, b,", "a"}, []string{"a", "b"}, false},
		{[]string{","}, nil, true},
		{[]string{"../etc"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			got, err := splitCrates(tt.args)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitCrates(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("splitCrates(%v) = %v, want %v", tt.args, got, tt.want)
			}
		})
	}
}

func TestBumpBreakingWithDependants(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})

	if err := env.run(t, "bump", "a", "--breaking", "--with-dependants"); err != nil {
		t.Fatalf("bump error: %v", err)
	}

	if a := env.read(t, "a"); !strings.Contains(a, `version = "0.2.0"`) {
		t.Errorf("a not bumped:\n%s", a)
	}
	b := env.read(t, "b")
	if !strings.Contains(b, "[package]\nname = \"b\"\nversion = \"0.2.0\"") {
		t.Errorf("b own version not bumped:\n%s", b)
	}
	if !strings.Contains(b, `a = { version = "0.2.0", path = "../a" }`) {
		t.Errorf("b requirement on a not rewritten:\n%s", b)
	}
}

func TestBumpPatchOnly(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})

	if err := env.run(t, "bump", "a"); err != nil {
		t.Fatalf("bump error: %v", err)
	}
	if a := env.read(t, "a"); !strings.Contains(a, `version = "0.1.1"`) {
		t.Errorf("a should get a patch bump:\n%s", a)
	}
	b := env.read(t, "b")
	if !strings.Contains(b, "version = \"0.1.0\"\nedition") {
		t.Errorf("b own version should be unchanged:\n%s", b)
	}
	if !strings.Contains(b, `a = { version = "0.1.1", path = "../a" }`) {
		t.Errorf("b requirement on a should follow the bump:\n%s", b)
	}
}

func TestBumpDryRunWritesNothing(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})

	if err := env.run(t, "bump", "a,b", "--dry-run"); err != nil {
		t.Fatalf("bump error: %v", err)
	}
	if a := env.read(t, "a"); a != manifestA {
		t.Errorf("dry run changed a:\n%s", a)
	}
}

func TestBumpInteractive(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})
	env.cli.prompter = promptFunc(func(q bump.Question) bump.Answer {
		if q.Kind == bump.YesNo {
			return bump.Confirmed(false)
		}
		return bump.Selection("b")
	})

	if err := env.run(t, "bump", "a", "-i"); err != nil {
		t.Fatalf("bump error: %v", err)
	}
	if b := env.read(t, "b"); !strings.Contains(b, "version = \"0.1.1\"\nedition") {
		t.Errorf("selected dependant b should get a patch bump:\n%s", b)
	}
}

func TestBumpUnknownCrate(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{})
	err := env.run(t, "bump", "zeta")
	if !errors.Is(err, errors.ErrCodeWorkspaceNotFound) {
		t.Fatalf("err = %v, want WORKSPACE_NOT_FOUND", err)
	}
}

func TestBumpRegistryMissing(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{})
	if err := env.run(t, "bump", "a"); !errors.Is(err, errors.ErrCodeRegistryLookup) {
		t.Fatalf("err = %v, want REGISTRY_LOOKUP_FAILED", err)
	}

	env = newTestEnv(t, "0.1.0", registry.Static{})
	if err := env.run(t, "bump", "a", "--allow-not-found"); err != nil {
		t.Fatalf("bump --allow-not-found error: %v", err)
	}
	if a := env.read(t, "a"); !strings.Contains(a, `version = "0.0.1"`) {
		t.Errorf("a should be bumped from 0.0.0:\n%s", a)
	}
}

func TestPublishTargetAlreadyPublished(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})

	err := env.run(t, "publish", "a")
	if !errors.Is(err, errors.ErrCodeAlreadyPublished) {
		t.Fatalf("err = %v, want ALREADY_PUBLISHED", err)
	}
	if len(env.publisher.calls) != 0 {
		t.Errorf("publisher called %v, want no calls", env.publisher.calls)
	}
}

func TestPublishWorkspaceSkipsPublished(t *testing.T) {
	env := newTestEnv(t, "0.2.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})

	if err := env.run(t, "publish"); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if !slices.Equal(env.publisher.calls, []string{"b"}) {
		t.Errorf("published %v, want [b]", env.publisher.calls)
	}
}

func TestPublishNewCrate(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}})

	if err := env.run(t, "publish", "*"); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if !slices.Equal(env.publisher.calls, []string{"b"}) {
		t.Errorf("published %v, want [b]", env.publisher.calls)
	}
}

func TestPublishDryRun(t *testing.T) {
	env := newTestEnv(t, "0.2.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})
	if err := env.run(t, "publish", "--dry-run"); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	if len(env.publisher.calls) != 0 {
		t.Errorf("dry run called publisher: %v", env.publisher.calls)
	}
}

func TestPublishMetricsFile(t *testing.T) {
	env := newTestEnv(t, "0.2.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})
	path := filepath.Join(t.TempDir(), "monocrate.prom")

	if err := env.run(t, "publish", "--metrics-file", path); err != nil {
		t.Fatalf("publish error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{
		`monocrate_publish_total{result="published"} 1`,
		`monocrate_publish_total{result="skipped"} 1`,
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q:\n%s", want, data)
		}
	}
}

func TestCheck(t *testing.T) {
	env := newTestEnv(t, "0.2.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})
	if err := env.run(t, "check"); err != nil {
		t.Fatalf("check error: %v", err)
	}

	env = newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0", "0.3.0"}})
	err := env.run(t, "check")
	if !errors.Is(err, errors.ErrCodeAlreadyPublished) {
		t.Fatalf("err = %v, want ALREADY_PUBLISHED", err)
	}
	if !strings.Contains(err.Error(), "b") {
		t.Errorf("error should name b: %v", err)
	}
}

func TestCompareVersions(t *testing.T) {
	pkgs := []workspace.Package{
		{Name: "a", Version: version.MustParse("0.2.0")},
		{Name: "b", Version: version.MustParse("0.1.0")},
		{Name: "c", Version: version.MustParse("1.0.0")},
	}
	published := map[string]*semver.Version{
		"a": version.MustParse("0.1.0"),
		"b": version.MustParse("0.1.0"),
		"c": version.MustParse("1.0.1"),
	}
	got := compareVersions(pkgs, published)
	want := []string{statusAhead, statusUnchanged, statusBehind}
	for i, st := range got {
		if st.Status != want[i] {
			t.Errorf("%s: status = %s, want %s", st.Name, st.Status, want[i])
		}
	}
}

func TestGraphWritesDOT(t *testing.T) {
	env := newTestEnv(t, "0.2.0", registry.Static{"a": {"0.1.0"}, "b": {"0.1.0"}})
	out := filepath.Join(t.TempDir(), "publish.dot")

	if err := env.run(t, "graph", "-o", out, "--registry"); err != nil {
		t.Fatalf("graph error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	dot := string(data)
	for _, want := range []string{`"a" -> "b";`, `"a" [label="a", style="rounded,filled,dashed"`, `"b" [label="b", fillcolor=`} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}

func TestGraphBadFormat(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{})
	err := env.run(t, "graph", "-o", filepath.Join(t.TempDir(), "g.jpg"))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestExplicitConfigMissing(t *testing.T) {
	env := newTestEnv(t, "0.1.0", registry.Static{"a": {"0.1.0"}})
	err := env.run(t, "--config", filepath.Join(env.dir, "nope.yaml"), "check")
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestNewCacheWithoutCacheDir(t *testing.T) {
	t.Setenv(config.EnvCacheDir, "")
	t.Setenv("HOME", "")

	var buf bytes.Buffer
	c := New(io.Discard, log.InfoLevel)
	ctx := withLogger(context.Background(), newLogger(&buf, log.InfoLevel))

	cfg := config.Default()
	cfg.Registry.CacheTTL = time.Hour
	backend, err := c.newCache(ctx, cfg)
	if err != nil {
		t.Fatalf("newCache error: %v", err)
	}
	if _, ok := backend.(*cache.NullCache); !ok {
		t.Errorf("backend = %T, want *cache.NullCache", backend)
	}
	if !strings.Contains(buf.String(), "registry cache disabled") {
		t.Errorf("expected a warning, got %q", buf.String())
	}
}

type promptFunc func(bump.Question) bump.Answer

func (f promptFunc) Ask(_ context.Context, q bump.Question) (bump.Answer, error) {
	return f(q), nil
}
