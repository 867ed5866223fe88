// SPDX-License-Identifier: MPL-2.0

// Package modload resolves module requests to files on disk, loads each resolved
// file at most once, and hands back the value the module exported.
//
// An [Engine] owns every piece of mutable state: the module registry, the
// resolution memo, the package manifest memo and the per-load-tree stat cache.
// Embedders create one engine per context; tests create a fresh engine per case.
//
// # Resolution
//
// [Engine.Resolve] turns a request plus a parent [Module] into a canonical path:
//
//	require("a.sh")  -> a.sh
//	require("a")     -> a, a.<ext>, a/module.cue "main", a/index.<ext>
//	require("a/")    -> a/module.cue "main", a/index.<ext>
//
// Relative requests ("./x", "../x", "..") search only the parent's directory.
// Bare requests search the parent's modules-directory ancestry and then the
// global roots from [Options.Paths]. Built-in names never touch the filesystem.
//
// # Loading
//
// A registry miss creates a [Module], links it under its parent, inserts it into
// the registry and only then runs the extension pipeline, so a circular request
// observes the partially populated exports instead of recursing. A load that
// fails is evicted from the registry.
//
// # Pipeline
//
// Each extension owns an ordered list of [Transformer] values. A transformer
// returns [Continue], [Unchanged] or [Terminal]; the first terminal result
// becomes the exports and stops the chain. Otherwise the final content goes to
// the [Executor] registered for the extension, which receives the five
// [Bindings] and runs under the engine's [ExecutionScope].
//
// # Policy
//
// Nested requests pass through the blacklist, the whitelist and the external
// module restriction before resolution. An override registered for the exact
// request name short-circuits resolution and loading entirely.
//
// An Engine is not safe for concurrent use. Loading is synchronous and
// re-entrant only through recursion.
package modload
