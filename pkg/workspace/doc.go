// Package workspace models the crates of a Cargo workspace.
//
// # Overview
//
// A [Package] is one workspace member: its name, local version, manifest
// path, publish allow-list and declared dependencies. Packages are read once
// per invocation through a [Provider]; [CargoMetadata] is the production
// provider and runs `cargo metadata --no-deps`.
//
// # Publishability
//
// [Filter] decides whether a package is a candidate for bumping and
// publishing at all. A package is excluded when its manifest sets
// `publish = false` (an empty registry allow-list) or, unless disabled, when
// any dependency requirement is the wildcard "*". Workspaces use wildcard
// path dependencies to mark crates that are not ready for release.
package workspace
