// Package crates reads published crate versions from crates.io.
//
// # Sources
//
// [IndexClient] reads the sparse index (https://index.crates.io), the same
// files cargo itself consults. Each crate has one file of newline-delimited
// JSON records, one per published version:
//
//	{"name":"serde","vers":"1.0.193","deps":[...],"cksum":"...","yanked":false}
//
// [APIClient] reads the crates.io web API instead. It is slower and rate
// limited, but useful behind proxies that only mirror the API.
//
// Both implement FetchVersions, which returns every version string the
// registry knows for a crate, including yanked ones: a yanked version can
// never be published again, so it still counts as taken.
//
// # Caching
//
// Responses go through [integrations.Client.Cached]. Pass refresh=true to
// bypass the cache; publishing always does.
//
// # User-Agent
//
// crates.io asks API consumers to identify themselves. [DefaultUserAgent]
// is sent unless the caller overrides it.
package crates
