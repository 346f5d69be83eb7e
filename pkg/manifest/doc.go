// Package manifest rewrites version fields in Cargo.toml files.
//
// A bump only ever changes version strings, so the patcher edits the
// original text in place instead of re-encoding the whole file: comments,
// key order, quoting style and blank lines all survive. The file is first
// decoded with github.com/BurntSushi/toml to learn the shape of every
// dependency entry; the textual edit is then located with a small TOML
// line scanner ([Document]) and the result is decoded again before it is
// written.
//
// Supported dependency forms:
//
//	[dependencies]
//	a = "0.1"                               # bare string
//	b = { version = "0.1", path = "../b" }  # inline table
//	c.version = "0.1"                       # dotted keys
//	d = { path = "../d" }                   # version is inserted
//
//	[dependencies.e]                        # sub-table
//	version = "0.1"
//
// Renamed dependencies (`package = "real-name"`) are matched by their real
// name. Entries with `workspace = true` inherit their requirement from the
// workspace root and are left alone; the root's [workspace.dependencies]
// table is patched instead.
package manifest
