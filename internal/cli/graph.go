package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/monocrate/pkg/dag"
	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/publish"
	"github.com/matzehuels/monocrate/pkg/render"
	"github.com/matzehuels/monocrate/pkg/version"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

type graphOpts struct {
	output   string
	detailed bool
	registry bool
}

func (c *CLI) graphCommand() *cobra.Command {
	var opts graphOpts

	cmd := &cobra.Command{
		Use:   "graph [crate|*]",
		Short: "Draw the publish graph",
		Long: `Graph draws the crates publish would consider, one row per publish wave,
with an arrow from each dependency to its dependants. The output format
follows the file extension of --output (dot, svg, png, pdf); without
--output the DOT source is printed.`,
		Example: `  monocrate graph
  monocrate graph bundler -o publish.svg --registry`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := publish.All
			if len(args) == 1 && args[0] != publish.All {
				target = args[0]
			}
			return c.runGraph(cmd.Context(), target, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (format from extension)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "show versions and publish wave in each node")
	cmd.Flags().BoolVar(&opts.registry, "registry", false, "look up registry versions and mark what would be published")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, target string, opts graphOpts) error {
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	sched := &publish.Scheduler{Packages: s.ws.Packages, Filter: s.filter}
	g, err := sched.BuildGraph(target)
	if err != nil {
		return err
	}
	if _, err := g.TopoSort(); err != nil {
		printWarning("%v", err)
	}
	g.AssignRows()

	if opts.registry {
		if err := c.markActions(ctx, s, g); err != nil {
			return err
		}
	}

	format := render.FormatDOT
	if opts.output != "" {
		if format, err = render.FormatFromPath(opts.output); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "graph output")
		}
	}
	data, err := render.Encode(ctx, g, format, render.Options{Detailed: opts.detailed})
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "render graph")
	}

	if opts.output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return err
	}
	printSuccess("Wrote %d crates, %d edges", g.NodeCount(), g.EdgeCount())
	printFile(opts.output)
	return nil
}

// markActions annotates each node with its registry version and whether
// publish would upload or skip it.
func (c *CLI) markActions(ctx context.Context, s *session, g *dag.DAG) error {
	published, err := c.lookup(ctx, s, true, true).Versions(ctx, dag.NodeIDs(g.Nodes()))
	if err != nil {
		return err
	}
	for _, n := range g.Nodes() {
		pub := published[n.ID]
		n.Meta["published"] = pub.String()
		pkg, err := workspace.Find(s.ws.Packages, n.ID)
		if err != nil {
			return err
		}
		if version.Newer(pkg.Version, pub) {
			n.Meta["action"] = render.ActionPublish
		} else {
			n.Meta["action"] = render.ActionSkip
		}
	}
	return nil
}
