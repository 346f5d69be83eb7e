package cli

import (
	"context"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/workspace"
)

// Crate states reported by `check`.
const (
	statusAhead     = "ahead"
	statusUnchanged = "unchanged"
	statusBehind    = "behind"
)

type crateStatus struct {
	Name      string
	Local     *semver.Version
	Published *semver.Version
	Status    string
}

func (c *CLI) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check [crate]",
		Short: "Compare local crate versions with the registry",
		Long: `Check looks up every publishable crate (or just the named one) and reports
whether its local version is ahead of the registry (will be published),
equal to it (unchanged) or behind it. Crates that are behind make the
command fail, since publishing them would be rejected.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			only := ""
			if len(args) == 1 {
				if err := errors.ValidateCrateName(args[0]); err != nil {
					return err
				}
				only = args[0]
			}
			return c.runCheck(cmd.Context(), only)
		},
	}
}

func (c *CLI) runCheck(ctx context.Context, only string) error {
	s, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	pkgs := s.filter.Apply(s.ws.Packages)
	if only != "" {
		pkg, err := workspace.Find(s.ws.Packages, only)
		if err != nil {
			return err
		}
		if !s.filter.CanPublish(pkg) {
			printInfo("%s is not publishable", only)
			return nil
		}
		pkgs = []workspace.Package{*pkg}
	}
	if len(pkgs) == 0 {
		printInfo("No publishable crates")
		return nil
	}

	spin := newSpinner(ctx, "Looking up registry versions")
	spin.Start()
	published, err := c.lookup(ctx, s, true, true).Versions(ctx, workspace.Names(pkgs))
	spin.Stop()
	if err != nil {
		return err
	}

	statuses := compareVersions(pkgs, published)
	var behind []string
	for _, st := range statuses {
		printCrateStatus(st.Name, st.Local.String(), st.Published.String(), st.Status)
		if st.Status == statusBehind {
			behind = append(behind, st.Name)
		}
	}
	if len(behind) > 0 {
		return errors.New(errors.ErrCodeAlreadyPublished,
			"local version is behind the registry for: %s", strings.Join(behind, ", "))
	}
	printSuccess("%d crates checked", len(statuses))
	return nil
}

func compareVersions(pkgs []workspace.Package, published map[string]*semver.Version) []crateStatus {
	out := make([]crateStatus, 0, len(pkgs))
	for _, p := range pkgs {
		st := crateStatus{Name: p.Name, Local: p.Version, Published: published[p.Name]}
		switch cmp := p.Version.Compare(st.Published); {
		case cmp > 0:
			st.Status = statusAhead
		case cmp == 0:
			st.Status = statusUnchanged
		default:
			st.Status = statusBehind
		}
		out = append(out, st)
	}
	return out
}
