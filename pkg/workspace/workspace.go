package workspace

import (
	"context"
	"slices"

	"github.com/Masterminds/semver/v3"

	"github.com/matzehuels/monocrate/pkg/errors"
	"github.com/matzehuels/monocrate/pkg/version"
)

// DependencyKind is the manifest section a dependency was declared in.
type DependencyKind string

const (
	KindNormal DependencyKind = "normal"
	KindDev    DependencyKind = "dev"
	KindBuild  DependencyKind = "build"
)

// Kinds lists every dependency kind in manifest order.
var Kinds = []DependencyKind{KindNormal, KindDev, KindBuild}

// Section returns the manifest table holding dependencies of this kind.
func (k DependencyKind) Section() string {
	switch k {
	case KindDev:
		return "dev-dependencies"
	case KindBuild:
		return "build-dependencies"
	default:
		return "dependencies"
	}
}

// Dependency is one declared dependency of a package.
type Dependency struct {
	Name   string         // Name of the depended-on package
	Req    string         // Version requirement as written (e.g. "0.1", "*")
	Kind   DependencyKind // Section the dependency was declared in
	Path   string         // Local path for path dependencies (may be empty)
	Rename string         // Manifest key when the dependency is renamed (may be empty)
}

// Package is one workspace member.
//
// Publish mirrors the manifest's publish field: nil means unrestricted, an
// empty non-nil slice means `publish = false`.
type Package struct {
	Name         string
	Version      *semver.Version
	ManifestPath string
	Publish      []string
	Dependencies []Dependency
}

// DependsOn reports whether p declares a direct dependency on name in any section.
func (p *Package) DependsOn(name string) bool {
	return slices.ContainsFunc(p.Dependencies, func(d Dependency) bool { return d.Name == name })
}

// Provider returns the packages of the current workspace ordered by name.
type Provider interface {
	Packages(ctx context.Context) ([]Package, error)
}

// Find returns the workspace package named name.
func Find(pkgs []Package, name string) (*Package, error) {
	for i := range pkgs {
		if pkgs[i].Name == name {
			return &pkgs[i], nil
		}
	}
	return nil, errors.New(errors.ErrCodeWorkspaceNotFound, "package %s is not a member of the workspace", name)
}

// Names returns the names of pkgs in order.
func Names(pkgs []Package) []string {
	names := make([]string, len(pkgs))
	for i, p := range pkgs {
		names[i] = p.Name
	}
	return names
}

// Filter is the publishability predicate.
type Filter struct {
	// WildcardUnpublishable excludes packages with any "*" dependency requirement.
	WildcardUnpublishable bool
}

// DefaultFilter returns the filter with the wildcard convention enabled.
func DefaultFilter() Filter {
	return Filter{WildcardUnpublishable: true}
}

// CanPublish reports whether p is a candidate for bump and publish.
func (f Filter) CanPublish(p *Package) bool {
	if p.Publish != nil && len(p.Publish) == 0 {
		return false
	}
	if f.WildcardUnpublishable {
		for _, d := range p.Dependencies {
			if version.IsWildcard(d.Req) {
				return false
			}
		}
	}
	return true
}

// Apply returns the publishable subset of pkgs, preserving order.
func (f Filter) Apply(pkgs []Package) []Package {
	out := make([]Package, 0, len(pkgs))
	for i := range pkgs {
		if f.CanPublish(&pkgs[i]) {
			out = append(out, pkgs[i])
		}
	}
	return out
}

// CanPublish applies [DefaultFilter] to p.
func CanPublish(p *Package) bool {
	return DefaultFilter().CanPublish(p)
}
