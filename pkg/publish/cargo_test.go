package publish

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/monocrate/pkg/errors"
)

// fakeCargo writes a shell script standing in for cargo.
func fakeCargo(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "cargo")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCargoPublisher_Args(t *testing.T) {
	p := pkg("core", "0.1.0")
	c := &CargoPublisher{ExtraArgs: []string{"--registry", "internal"}}

	want := []string{"publish", "--color", "always", "--manifest-path", p.ManifestPath, "--registry", "internal"}
	if got := c.Args(&p, false); !slices.Equal(got, want) {
		t.Errorf("Args = %v, want %v", got, want)
	}
	want = []string{"publish", "--no-verify", "--color", "always", "--manifest-path", p.ManifestPath}
	if got := (&CargoPublisher{}).Args(&p, true); !slices.Equal(got, want) {
		t.Errorf("Args(noVerify) = %v, want %v", got, want)
	}
}

func TestCargoPublisher_StreamsStderr(t *testing.T) {
	bin := fakeCargo(t, `echo "   Packaging $5" >&2
echo "   Uploading core" >&2
echo "stdout is captured, not streamed"`)
	var out bytes.Buffer
	c := &CargoPublisher{Command: bin, Output: &out}
	p := pkg("core", "0.1.0")

	if err := c.Publish(context.Background(), &p, false); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	want := "   Packaging " + p.ManifestPath + "\n   Uploading core\n"
	if out.String() != want {
		t.Errorf("streamed %q, want %q", out.String(), want)
	}
}

func TestCargoPublisher_Failure(t *testing.T) {
	bin := fakeCargo(t, `echo "error: crate version 0.1.0 is already uploaded" >&2
exit 101`)
	c := &CargoPublisher{Command: bin, Output: &bytes.Buffer{}}
	p := pkg("core", "0.1.0")

	err := c.Publish(context.Background(), &p, false)
	if !errors.Is(err, errors.ErrCodeSubprocessFailed) {
		t.Fatalf("expected SUBPROCESS_FAILED, got %v", err)
	}
	if !strings.Contains(err.Error(), "already uploaded") || !strings.Contains(err.Error(), "core") {
		t.Errorf("error should carry cargo's message and the crate: %v", err)
	}
}

func TestCargoPublisher_MissingBinary(t *testing.T) {
	c := &CargoPublisher{Command: filepath.Join(t.TempDir(), "no-such-cargo"), Output: &bytes.Buffer{}}
	p := pkg("core", "0.1.0")
	if err := c.Publish(context.Background(), &p, false); !errors.Is(err, errors.ErrCodeSubprocessFailed) {
		t.Errorf("expected SUBPROCESS_FAILED, got %v", err)
	}
}

func TestRing(t *testing.T) {
	r := &ring{max: 2}
	for _, s := range []string{"a", "b", "c"} {
		r.add(s)
	}
	if got := r.lines(); !slices.Equal(got, []string{"b", "c"}) {
		t.Errorf("lines = %v", got)
	}
}
