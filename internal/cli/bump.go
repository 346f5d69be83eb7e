package cli

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monocrate/pkg/bump"
	"github.com/matzehuels/monocrate/pkg/manifest"
	"github.com/matzehuels/monocrate/pkg/vcs"
)

type bumpOpts struct {
	breaking       bool
	withDependants bool
	interactive    bool
	git            bool
	message        string
	allowNotFound  bool
	dryRun         bool
}

func (c *CLI) bumpCommand() *cobra.Command {
	var opts bumpOpts

	cmd := &cobra.Command{
		Use:   "bump <crate>...",
		Short: "Bump crate versions and rewrite the affected manifests",
		Long: `Bump computes a new version for each named crate from its latest published
version: a patch bump, or a breaking bump (major, or minor before 1.0) with
--breaking. With --breaking or --with-dependants, every publishable crate
that depends on a bumped crate is bumped too. Every workspace manifest that
declares one of the bumped crates gets its requirement rewritten.

Crates may be given as separate arguments or comma separated.`,
		Example: `  monocrate bump parser
  monocrate bump parser,core --breaking
  monocrate bump core -D --git
  monocrate bump core -i`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := splitCrates(args)
			if err != nil {
				return err
			}
			return c.runBump(cmd.Context(), names, opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.breaking, "breaking", "b", false, "make a breaking bump and bump all dependants")
	cmd.Flags().BoolVarP(&opts.withDependants, "with-dependants", "D", false, "also bump crates that depend on the bumped crates")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "ask whether each change is breaking and which dependants to bump")
	cmd.Flags().BoolVar(&opts.git, "git", false, "commit the changed manifests and Cargo.lock")
	cmd.Flags().StringVarP(&opts.message, "message", "m", "", "commit message (default from config)")
	cmd.Flags().BoolVar(&opts.allowNotFound, "allow-not-found", false, "treat crates missing from the registry as 0.0.0")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the plan without writing manifests")

	return cmd
}

func (c *CLI) runBump(ctx context.Context, names []string, opts bumpOpts) error {
	logger := loggerFromContext(ctx)
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	resolver := &bump.Resolver{
		Packages: s.ws.Packages,
		Filter:   s.filter,
		Versions: c.lookup(ctx, s, opts.allowNotFound, false),
		Logger:   logger,
	}
	if opts.interactive {
		resolver.Prompter = c.prompter
		if resolver.Prompter == nil {
			resolver.Prompter = newTeaPrompter()
		}
	}

	ropts := bump.Options{
		Breaking:       opts.breaking,
		WithDependants: opts.withDependants,
		Interactive:    opts.interactive,
	}
	plan := bump.NewPlan()
	for _, name := range names {
		if err := resolver.Resolve(ctx, plan, name, ropts); err != nil {
			return err
		}
	}
	if plan.Len() == 0 {
		printInfo("Nothing to bump")
		return nil
	}

	printInfo("Bumping %d crates", plan.Len())
	for _, name := range plan.Order {
		printVersionChange(name, plan.Prev[name].String(), plan.Next[name].String())
	}
	if opts.dryRun {
		printDetail("dry run, no manifests written")
		return nil
	}

	changed, err := manifest.ApplyAll(s.ws.Packages, s.ws.RootManifest(), plan.Next,
		manifest.Options{KeepWildcards: s.filter.WildcardUnpublishable})
	for _, path := range changed {
		printFile(c.relative(s, path))
	}
	if err != nil {
		return err
	}
	printSuccess("Updated %d manifests", len(changed))

	if !opts.git {
		return nil
	}
	msg := opts.message
	if msg == "" {
		msg = s.cfg.Git.CommitMessage
	}
	paths := changed
	if lock := filepath.Join(s.ws.Root, "Cargo.lock"); fileExists(lock) {
		paths = append(paths, lock)
	}
	staged, err := (&vcs.Git{Dir: s.ws.Root}).Commit(ctx, paths, msg)
	if err != nil {
		return err
	}
	if len(staged) == 0 {
		printWarning("Nothing to commit, all changed files are ignored by git")
		return nil
	}
	printSuccess("Committed %d files: %s", len(staged), msg)
	return nil
}

// relative shortens path for display.
func (c *CLI) relative(s *session, path string) string {
	if rel, err := filepath.Rel(s.ws.Root, path); err == nil {
		return rel
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
