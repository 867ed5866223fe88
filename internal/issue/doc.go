// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError wraps a failure with the operation, the resource and
// suggestions. The issue catalog holds longer Markdown explanations, rendered
// with glamour, for each kind of load failure; ForError picks the entry for an
// error returned by the loader.
package issue
