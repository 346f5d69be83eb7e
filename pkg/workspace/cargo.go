package workspace

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/version"
)

// CargoMetadata loads workspace packages by running `cargo metadata`.
type CargoMetadata struct {
	Dir   string // Workspace directory (current directory if empty)
	Cargo string // Cargo binary (defaults to "cargo")
}

// Workspace is a decoded cargo workspace.
type Workspace struct {
	Root     string    // Directory holding the workspace's root Cargo.toml
	Packages []Package // Members sorted by name
}

// RootManifest returns the path of the workspace's root Cargo.toml. It may be
// a virtual manifest that belongs to no member.
func (w *Workspace) RootManifest() string {
	return filepath.Join(w.Root, "Cargo.toml")
}

// Packages returns the workspace members sorted by name.
func (c *CargoMetadata) Packages(ctx context.Context) ([]Package, error) {
	ws, err := c.Load(ctx)
	if err != nil {
		return nil, err
	}
	return ws.Packages, nil
}

// Load runs `cargo metadata --format-version 1 --no-deps` and decodes the
// workspace. Any failure is fatal since nothing can proceed without the
// workspace shape.
func (c *CargoMetadata) Load(ctx context.Context) (*Workspace, error) {
	bin := c.Cargo
	if bin == "" {
		bin = "cargo"
	}

	cmd := exec.CommandContext(ctx, bin, "metadata", "--format-version", "1", "--no-deps")
	cmd.Dir = c.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, errors.Wrap(errors.ErrCodeWorkspaceMetadata, err, "failed to run `cargo metadata`: %s", msg)
	}
	return DecodeWorkspace(&stdout)
}

// Decode parses `cargo metadata` JSON output into workspace members sorted by name.
func Decode(r io.Reader) ([]Package, error) {
	ws, err := DecodeWorkspace(r)
	if err != nil {
		return nil, err
	}
	return ws.Packages, nil
}

// DecodeWorkspace parses `cargo metadata` JSON output.
func DecodeWorkspace(r io.Reader) (*Workspace, error) {
	var meta metadataResponse
	if err := json.NewDecoder(r).Decode(&meta); err != nil {
		return nil, errors.Wrap(errors.ErrCodeWorkspaceMetadata, err, "decode cargo metadata")
	}

	pkgs := make([]Package, 0, len(meta.WorkspaceMembers))
	for _, raw := range meta.Packages {
		if !slices.Contains(meta.WorkspaceMembers, raw.ID) {
			continue
		}
		p, err := raw.toPackage()
		if err != nil {
			return nil, err
		}
		pkgs = append(pkgs, p)
	}

	slices.SortFunc(pkgs, func(a, b Package) int { return strings.Compare(a.Name, b.Name) })
	return &Workspace{Root: meta.WorkspaceRoot, Packages: pkgs}, nil
}

func (raw metadataPackage) toPackage() (Package, error) {
	v, err := version.Parse(raw.Version)
	if err != nil {
		return Package{}, errors.Wrap(errors.ErrCodeWorkspaceMetadata, err, "package %s", raw.Name)
	}

	deps := make([]Dependency, 0, len(raw.Dependencies))
	for _, d := range raw.Dependencies {
		kind := KindNormal
		if d.Kind != nil {
			switch *d.Kind {
			case "dev":
				kind = KindDev
			case "build":
				kind = KindBuild
			case "normal", "":
			default:
				return Package{}, errors.New(errors.ErrCodeWorkspaceMetadata,
					"package %s: unknown dependency kind %q for %s", raw.Name, *d.Kind, d.Name)
			}
		}
		deps = append(deps, Dependency{
			Name:   d.Name,
			Req:    d.Req,
			Kind:   kind,
			Path:   d.Path,
			Rename: d.Rename,
		})
	}

	return Package{
		Name:         raw.Name,
		Version:      v,
		ManifestPath: raw.ManifestPath,
		Publish:      raw.Publish,
		Dependencies: deps,
	}, nil
}

type metadataResponse struct {
	Packages         []metadataPackage `json:"packages"`
	WorkspaceMembers []string          `json:"workspace_members"`
	WorkspaceRoot    string            `json:"workspace_root"`
}

type metadataPackage struct {
	Name         string               `json:"name"`
	Version      string               `json:"version"`
	ID           string               `json:"id"`
	ManifestPath string               `json:"manifest_path"`
	Publish      []string             `json:"publish"`
	Dependencies []metadataDependency `json:"dependencies"`
}

type metadataDependency struct {
	Name   string  `json:"name"`
	Req    string  `json:"req"`
	Kind   *string `json:"kind"`
	Path   string  `json:"path"`
	Rename string  `json:"rename"`
}
