// SPDX-License-Identifier: MPL-2.0

package app

import (
	"os"
	"path/filepath"
	"strings"
)

// PathEnvVar lists extra global roots, separated by the OS list separator.
const PathEnvVar = "MODLOAD_PATH"

// DefaultPaths returns the global roots searched before the configured ones:
// MODLOAD_PATH entries, ~/.modload_modules, ~/.modload_libraries and
// <exe>/../../lib/modload. Roots whose base cannot be determined are skipped.
func DefaultPaths() []string {
	home, _ := os.UserHomeDir()
	exe, _ := os.Executable()
	return defaultPaths(os.Getenv(PathEnvVar), home, exe)
}

func defaultPaths(envPath, home, exe string) []string {
	var paths []string
	for _, p := range strings.Split(envPath, string(os.PathListSeparator)) {
		if p != "" {
			paths = append(paths, p)
		}
	}
	if home != "" {
		paths = append(paths,
			filepath.Join(home, ".modload_modules"),
			filepath.Join(home, ".modload_libraries"),
		)
	}
	if exe != "" {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "..", "..", "lib", "modload"))
	}
	return paths
}
