// Package publish publishes workspace crates in dependency order.
//
// A [Scheduler] run moves through fixed stages:
//
//	Building -> Sorted -> Publishing -> Done
//	Building -> CycleError
//
// Building collects the publishable crates (all of them, or the target and
// the local crates it depends on) into a [dag.DAG] with an edge from each
// dependency to its dependant. Unless AllowOnlyDeps is set, the target must
// be ahead of its published version before anything else happens. Sorting
// fails on a cycle; nothing is published in that case.
//
// Publishing is strictly sequential. Each crate whose local version is not
// ahead of the registry is skipped, which makes re-running after a partial
// failure safe. Otherwise the scheduler waits the configured delay, invokes
// the [Publisher] and waits for it to finish before moving on. Crates that
// were already published are never rolled back.
package publish
