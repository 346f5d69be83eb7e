// Package integrations provides HTTP clients for package registries.
//
// The [Client] type carries the shared plumbing: default headers, a
// per-request timeout, response caching through [cache.Cache] and
// [observability] HTTP hooks. Registry-specific clients embed it; see
// [crates] for crates.io.
//
// Registry queries are issued once. A failure surfaces to the caller as
// [ErrNotFound] or [ErrNetwork] wrapped with context; there is no retry
// or backoff.
package integrations
