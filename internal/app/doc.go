// SPDX-License-Identifier: MPL-2.0

// Package app assembles a module loader from configuration: global search
// roots, built-in modules, body executors, data transformers, overrides, the
// sandbox and the event listeners used by the CLI.
package app
