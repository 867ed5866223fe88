// SPDX-License-Identifier: MPL-2.0

package config

// configDirOverride replaces the platform config directory. os.UserHomeDir
// ignores HOME on some platforms, so tests point the lookup here instead.
var configDirOverride string

// SetConfigDirOverride makes ConfigDir return dir and returns a function that
// restores the previous value.
func SetConfigDirOverride(dir string) (restore func()) {
	prev := configDirOverride
	configDirOverride = dir
	return func() { configDirOverride = prev }
}

// Reset clears the config directory override.
func Reset() {
	configDirOverride = ""
}
