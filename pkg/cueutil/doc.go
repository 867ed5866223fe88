// SPDX-License-Identifier: MPL-2.0

// Package cueutil compiles CUE documents against embedded schemas and decodes
// them into Go values.
//
// Three callers share it: package manifests (module.cue), ".cue" data modules
// and the modload.cue configuration file. Schema-backed documents go through
// [ParseAndDecode]; schemaless data goes through [DecodeValue].
//
//	//go:embed manifest_schema.cue
//	var schema []byte
//
//	res, err := cueutil.ParseAndDecode[Manifest](schema, data, "#Manifest",
//	    cueutil.WithFilename(path))
//
// Errors carry the file name and the JSON-style path of the offending field,
// for example "module.cue: main: conflicting values 3 and string".
package cueutil
