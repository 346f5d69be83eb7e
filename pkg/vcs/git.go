// Package vcs commits bumped manifests with git.
package vcs

import (
	"bytes"
	"context"
	stderrors "errors"
	"os/exec"
	"strings"

	"github.com/matzehuels/monocrate/pkg/errors"
)

// DefaultMessage is the commit message used when none is configured.
const DefaultMessage = "Bump versions"

// Git runs git in a working tree.
type Git struct {
	Dir     string // working tree, current directory if empty
	Command string // git binary, "git" if empty
}

// Ignored returns the subset of paths git ignores.
func (g *Git) Ignored(ctx context.Context, paths []string) ([]string, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	out, err := g.run(ctx, append([]string{"check-ignore", "--"}, paths...)...)
	if err != nil {
		// check-ignore exits 1 when nothing matched.
		if exitCode(err) == 1 {
			return nil, nil
		}
		return nil, err
	}
	return splitLines(out), nil
}

// Commit stages the paths git does not ignore and commits only them. It returns
// the staged paths; nothing is committed when that list is empty.
func (g *Git) Commit(ctx context.Context, paths []string, message string) ([]string, error) {
	if message == "" {
		message = DefaultMessage
	}
	ignored, err := g.Ignored(ctx, paths)
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool, len(ignored))
	for _, p := range ignored {
		skip[p] = true
	}
	var staged []string
	for _, p := range paths {
		if !skip[p] {
			staged = append(staged, p)
		}
	}
	if len(staged) == 0 {
		return nil, nil
	}

	if _, err := g.run(ctx, append([]string{"add", "--"}, staged...)...); err != nil {
		return nil, err
	}
	// Pathspecs restrict the commit to staged, leaving other index entries
	// for the operator.
	if _, err := g.run(ctx, append([]string{"commit", "-m", message, "--"}, staged...)...); err != nil {
		return nil, err
	}
	return staged, nil
}

func (g *Git) run(ctx context.Context, args ...string) (string, error) {
	bin := g.Command
	if bin == "" {
		bin = "git"
	}
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Dir = g.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", errors.Wrap(errors.ErrCodeSubprocessFailed, err, "git %s: %s", args[0], strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func exitCode(err error) int {
	var ee *exec.ExitError
	if stderrors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
