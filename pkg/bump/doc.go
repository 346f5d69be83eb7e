// Package bump decides which workspace crates need a new version when one
// crate changes, and what that version is.
//
// # Closure
//
// [Resolver.Resolve] starts from one crate and walks its dependants:
//
//   - The start crate is bumped from its published version with
//     [version.Bump].
//   - With Breaking or WithDependants set, every publishable crate that
//     declares a direct dependency on a bumped crate is bumped too,
//     transitively, so each dependant can carry a new requirement.
//   - In Interactive mode the operator is asked whether the change is
//     breaking. A yes bumps all direct dependants; a no offers them as a
//     multi-select list and bumps only the chosen ones.
//
// Each crate enters the [Plan] at most once. A crate already in the plan,
// or currently being resolved, is never revisited, so cyclic dependency
// declarations terminate.
//
// # Precedence
//
// The interactive answer replaces the Breaking flag, for the crate asked
// about and everything resolved beneath it, only when Interactive is set.
// Without Interactive the Breaking flag is used as given.
package bump
