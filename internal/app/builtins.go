// SPDX-License-Identifier: MPL-2.0

package app

import (
	"maps"
	"os"
	goruntime "runtime"
	"slices"
	"strings"

	"github.com/modload/modload/internal/runtime"
	"github.com/modload/modload/pkg/modload"
)

// Version is reported by the "engine" built-in. The CLI sets it at startup.
var Version = "dev"

// Built-in module names.
const (
	BuiltinEnv      = "env"
	BuiltinPlatform = "platform"
	BuiltinPath     = "path"
	BuiltinEngine   = "engine"
)

// Builtins returns the built-in module table. "env" snapshots env the first
// time it is required; the other tables are constant.
func Builtins(env *runtime.Environment) map[string]modload.BuiltinFunc {
	return map[string]modload.BuiltinFunc{
		BuiltinEnv: func() (any, error) {
			out := map[string]any{}
			for _, kv := range env.Environ() {
				name, value, _ := strings.Cut(kv, "=")
				out[name] = value
			}
			return out, nil
		},
		BuiltinPlatform: func() (any, error) {
			hostname, _ := os.Hostname()
			return map[string]any{
				"os":             goruntime.GOOS,
				"arch":           goruntime.GOARCH,
				"path_separator": string(os.PathSeparator),
				"list_separator": string(os.PathListSeparator),
				"hostname":       hostname,
			}, nil
		},
		BuiltinPath: func() (any, error) {
			return map[string]any{
				"sep":       string(os.PathSeparator),
				"delimiter": string(os.PathListSeparator),
			}, nil
		},
		BuiltinEngine: func() (any, error) {
			return map[string]any{
				"version":    Version,
				"go_version": goruntime.Version(),
			}, nil
		},
	}
}

// BuiltinNames returns the names of the built-in table, sorted.
func BuiltinNames(table map[string]modload.BuiltinFunc) []string {
	return slices.Sorted(maps.Keys(table))
}
