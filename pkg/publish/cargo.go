package publish

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// tailLines is how much of cargo's stderr is kept for error messages.
const tailLines = 8

// CargoPublisher runs `cargo publish` for one crate at a time.
type CargoPublisher struct {
	Command   string    // cargo binary, "cargo" if empty
	ExtraArgs []string  // appended after the standard arguments
	Output    io.Writer // receives cargo's stderr line by line, os.Stderr if nil
}

// Args returns the command line used to publish pkg, without the binary.
func (c *CargoPublisher) Args(pkg *workspace.Package, noVerify bool) []string {
	args := []string{"publish"}
	if noVerify {
		args = append(args, "--no-verify")
	}
	args = append(args, "--color", "always", "--manifest-path", pkg.ManifestPath)
	return append(args, c.ExtraArgs...)
}

// Publish runs cargo and streams its stderr to Output as it arrives. It
// returns once the stream is drained and the process has exited.
//
// The subprocess is deliberately not tied to ctx: an upload that is
// interrupted half way leaves the registry in an unknown state, so a hung
// publish has to be stopped by the operator.
func (c *CargoPublisher) Publish(_ context.Context, pkg *workspace.Package, noVerify bool) error {
	bin := c.Command
	if bin == "" {
		bin = "cargo"
	}
	out := c.Output
	if out == nil {
		out = os.Stderr
	}

	cmd := exec.Command(bin, c.Args(pkg, noVerify)...)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return errors.Wrap(errors.ErrCodeSubprocessFailed, err, "publish %s: open stderr", pkg.Name)
	}
	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.ErrCodeSubprocessFailed, err, "publish %s: failed to spawn %s", pkg.Name, bin)
	}

	tail := streamLines(stderr, out)
	if err := cmd.Wait(); err != nil {
		msg := strings.Join(tail.lines(), "\n")
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return errors.Wrap(errors.ErrCodeSubprocessFailed, err, "publish %s %s: %s", pkg.Name, pkg.Version, msg)
	}
	return nil
}

// streamLines copies r to w line by line until EOF and keeps the last
// lines seen.
func streamLines(r io.Reader, w io.Writer) *ring {
	tail := &ring{max: tailLines}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		fmt.Fprintln(w, line)
		tail.add(line)
	}
	if err := sc.Err(); err != nil {
		// Keep draining so the child never blocks on a full pipe.
		io.Copy(w, r)
	}
	return tail
}

type ring struct {
	max int
	buf []string
}

func (r *ring) add(s string) {
	r.buf = append(r.buf, s)
	if len(r.buf) > r.max {
		r.buf = r.buf[len(r.buf)-r.max:]
	}
}

func (r *ring) lines() []string { return r.buf }
