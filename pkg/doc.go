// Package pkg holds the libraries behind monocrate, a release tool for cargo
// workspaces.
//
// # Overview
//
// The packages are organized by stage of a release:
//
//  1. [workspace] - workspace members from `cargo metadata` and the publishability filter
//  2. [registry] and [integrations/crates] - latest published versions from crates.io
//  3. [bump] - which crates need a new version and what it is ([version] holds the policy)
//  4. [manifest] - rewriting Cargo.toml files in place
//  5. [publish] - ordering crates with [dag] and running `cargo publish`
//
// Supporting packages: [cache] for registry responses, [errors] for coded
// errors, [observability] for hooks, [render] for drawing the publish graph,
// [vcs] for committing the result.
//
// # Data Flow
//
//	cargo metadata
//	      ↓
//	[workspace] packages ──→ [bump] plan ──→ [manifest] rewrite ──→ [vcs] commit
//	      ↓                     ↑
//	[publish] graph ←── [registry] versions
//	      ↓
//	cargo publish, dependencies first
//
// # Quick Start
//
//	ws, err := (&workspace.CargoMetadata{}).Load(ctx)
//	if err != nil {
//	    return err
//	}
//	lookup := &registry.Lookup{Source: crates.NewIndexClient(nil, 0, "", "")}
//
//	plan := bump.NewPlan()
//	r := &bump.Resolver{Packages: ws.Packages, Filter: workspace.DefaultFilter(), Versions: lookup}
//	if err := r.Resolve(ctx, plan, "parser", bump.Options{Breaking: true}); err != nil {
//	    return err
//	}
//	changed, err := manifest.ApplyAll(ws.Packages, ws.RootManifest(), plan.Next, manifest.Options{KeepWildcards: true})
//
// [workspace]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/workspace
// [registry]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/registry
// [integrations/crates]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/integrations/crates
// [bump]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/bump
// [version]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/version
// [manifest]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/manifest
// [publish]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/publish
// [dag]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/dag
// [cache]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/cache
// [errors]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/observability
// [render]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/render
// [vcs]: https://pkg.go.dev/github.com/matzehuels/monocrate/pkg/vcs
package pkg
