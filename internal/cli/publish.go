package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/publish"
)

type publishOpts struct {
	allowOnlyDeps bool
	noVerify      bool
	dryRun        bool
	delay         time.Duration
}

func (c *CLI) publishCommand() *cobra.Command {
	var opts publishOpts

	cmd := &cobra.Command{
		Use:   "publish [crate|*]",
		Short: "Publish crates to the registry in dependency order",
		Long: `Publish uploads crates whose local version is ahead of the registry, one at
a time, dependencies first. With a crate name only that crate and the local
crates it depends on are considered; "*" (the default) covers the whole
workspace. Crates that are already published are skipped, so an interrupted
run can simply be repeated.`,
		Example: `  monocrate publish
  monocrate publish bundler --no-verify
  monocrate publish core --allow-only-deps --dry-run`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := publish.All
			if len(args) == 1 && args[0] != publish.All {
				if err := errors.ValidateCrateName(args[0]); err != nil {
					return err
				}
				target = args[0]
			}
			return c.runPublish(cmd.Context(), target, opts, cmd.Flags().Changed("delay"))
		},
	}

	cmd.Flags().BoolVar(&opts.allowOnlyDeps, "allow-only-deps", false, "publish the dependencies even if the crate itself is already published")
	cmd.Flags().BoolVar(&opts.noVerify, "no-verify", false, "pass --no-verify to cargo publish")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print what would be published without running cargo")
	cmd.Flags().DurationVar(&opts.delay, "delay", publish.DefaultDelay, "pause before each publish (default from config)")

	return cmd
}

func (c *CLI) runPublish(ctx context.Context, target string, opts publishOpts, delaySet bool) error {
	logger := loggerFromContext(ctx)
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	delay := s.cfg.Publish.Delay
	if delaySet {
		delay = opts.delay
	}

	publisher := c.publisher
	if publisher == nil {
		publisher = &publish.CargoPublisher{
			Command:   s.cfg.Publish.Command,
			ExtraArgs: s.cfg.Publish.ExtraArgs,
		}
	}

	sched := &publish.Scheduler{
		Packages: s.ws.Packages,
		Filter:   s.filter,
		// A crate the registry has never seen is published for the first time.
		Versions:  c.lookup(ctx, s, true, true),
		Publisher: publisher,
		Logger:    logger,
		Sleep:     c.sleep,
	}

	prog := newProgress(logger)
	report, err := sched.Run(ctx, publish.Options{
		Target:        target,
		AllowOnlyDeps: opts.allowOnlyDeps,
		NoVerify:      opts.noVerify,
		Delay:         delay,
		DryRun:        opts.dryRun,
	})
	printPublishReport(report, opts.dryRun)
	if err != nil {
		if report != nil && report.Stage == publish.StagePublishing && len(report.Published) > 0 {
			printWarning("%d crates were published before the failure and stay published", len(report.Published))
		}
		return err
	}

	switch {
	case opts.dryRun:
		prog.done("Dry run finished")
	case len(report.Published) == 0:
		prog.done("Nothing to publish")
	default:
		prog.done("Publish finished")
	}
	return nil
}

func printPublishReport(r *publish.Report, dryRun bool) {
	if r == nil || len(r.Order) == 0 {
		return
	}
	verb := "Published"
	if dryRun {
		verb = "Would publish"
	}
	if len(r.Published) > 0 {
		printSuccess("%s %d crates", verb, len(r.Published))
		for _, name := range r.Published {
			printDetail("%s", name)
		}
	}
	for _, name := range r.Skipped {
		printSkipped(name, "already published")
	}
}
