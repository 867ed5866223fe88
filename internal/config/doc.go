// SPDX-License-Identifier: MPL-2.0

// Package config handles modload configuration using Viper with CUE as the file format.
//
// The configuration file is modload.cue. It is looked up in the config directory
// (~/.config/modload on Linux or the XDG equivalent, ~/Library/Application Support/modload
// on macOS, %APPDATA%\modload on Windows) and then in the working directory, unless an
// explicit path is given. Values can be overridden through MODLOAD_* environment variables.
//
// Files are validated against an embedded CUE schema (config_schema.cue) before they are
// merged over the defaults.
package config
