// SPDX-License-Identifier: MPL-2.0

// Package transform is the catalog of named content transformers that
// configuration can attach to file extensions.
//
// Text transformers (crlf, trim, envsubst) rewrite module content and let the
// chain continue. Data transformers (json, yaml, toml, cue) parse the whole
// file and end the chain with the parsed value as the module's exports; a
// parse failure is reported as a *modload.DataParseError naming the file.
package transform
