// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/modload/modload/pkg/modload"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultSandboxName names the sandbox when the config does not.
	DefaultSandboxName = "modload"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidSearchPath is the sentinel error wrapped by InvalidSearchPathError.
	ErrInvalidSearchPath = errors.New("invalid search path")
	// ErrInvalidUIConfig is the sentinel error wrapped by InvalidUIConfigError.
	ErrInvalidUIConfig = errors.New("invalid UI config")
	// ErrInvalidSandboxConfig is the sentinel error wrapped by InvalidSandboxConfigError.
	ErrInvalidSandboxConfig = errors.New("invalid sandbox config")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// SearchPath is a global root directory searched for modules.
	// A valid path must be non-empty and not whitespace-only.
	SearchPath string

	// InvalidSearchPathError is returned when a SearchPath is empty or
	// whitespace-only.
	InvalidSearchPathError struct {
		Value SearchPath
	}

	// InvalidUIConfigError collects field errors of a UIConfig.
	InvalidUIConfigError struct {
		FieldErrors []error
	}

	// InvalidSandboxConfigError collects field errors of a SandboxConfig.
	InvalidSandboxConfigError struct {
		FieldErrors []error
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Paths are global roots searched after the modules-dir walk.
		Paths []SearchPath `json:"paths" mapstructure:"paths"`
		// ModulesDir is the directory name probed in each ancestor.
		ModulesDir string `json:"modules_dir" mapstructure:"modules_dir"`
		// PreserveSymlinks keeps resolved filenames unresolved.
		PreserveSymlinks bool `json:"preserve_symlinks" mapstructure:"preserve_symlinks"`
		// Reload re-executes modules on every require.
		Reload bool `json:"reload" mapstructure:"reload"`
		// AllowExternalModules permits bare requests outside the built-in table.
		AllowExternalModules bool `json:"allow_external_modules" mapstructure:"allow_external_modules"`
		// Blacklist names requests that are always refused.
		Blacklist []string `json:"blacklist" mapstructure:"blacklist"`
		// Whitelist, when set, restricts bare requests to these names.
		Whitelist []string `json:"whitelist" mapstructure:"whitelist"`
		// CopyBuiltins hands out deep copies of built-in exports.
		CopyBuiltins bool `json:"copy_builtins" mapstructure:"copy_builtins"`

		// Extensions maps an extension to the transformer names applied to it.
		Extensions map[string][]string `json:"extensions" mapstructure:"-"`
		// Executors maps an extension to the body executor that runs it.
		Executors map[string]string `json:"executors" mapstructure:"-"`
		// Overrides maps request names to constant exports.
		Overrides map[string]any `json:"overrides" mapstructure:"-"`

		// Sandbox configures isolated execution.
		Sandbox SandboxConfig `json:"sandbox" mapstructure:"sandbox"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`

		// Source is the file the configuration was read from, if any.
		Source string `json:"-" mapstructure:"-"`
	}

	// SandboxConfig configures the isolated execution scope.
	SandboxConfig struct {
		// Enabled runs every body in the sandbox.
		Enabled bool `json:"enabled" mapstructure:"enabled"`
		// Name labels the sandbox in logs.
		Name string `json:"name" mapstructure:"name"`
		// Env seeds the sandbox environment.
		Env map[string]string `json:"env" mapstructure:"-"`
		// EnvFile is a shell assignment file evaluated into the sandbox
		// environment. A trailing '?' makes it optional.
		EnvFile string `json:"env_file" mapstructure:"env_file"`
		// Dir is the working directory of sandboxed shell bodies.
		Dir string `json:"dir" mapstructure:"dir"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables verbose output
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}

// String returns the string representation of the SearchPath.
func (p SearchPath) String() string { return string(p) }

// IsValid returns whether the SearchPath is non-empty.
func (p SearchPath) IsValid() (bool, []error) {
	if strings.TrimSpace(string(p)) == "" {
		return false, []error{&InvalidSearchPathError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSearchPathError.
func (e *InvalidSearchPathError) Error() string {
	return fmt.Sprintf("invalid search path %q: must be non-empty", e.Value)
}

// Unwrap returns ErrInvalidSearchPath for errors.Is() compatibility.
func (e *InvalidSearchPathError) Unwrap() error { return ErrInvalidSearchPath }

// IsValid returns whether the UIConfig has valid fields.
func (c UIConfig) IsValid() (bool, []error) {
	if valid, fieldErrs := c.ColorScheme.IsValid(); !valid {
		return false, []error{&InvalidUIConfigError{FieldErrors: fieldErrs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidUIConfigError.
func (e *InvalidUIConfigError) Error() string {
	return formatFieldErrors("invalid UI config", e.FieldErrors)
}

// Unwrap returns ErrInvalidUIConfig and the field errors.
func (e *InvalidUIConfigError) Unwrap() []error {
	return append([]error{ErrInvalidUIConfig}, e.FieldErrors...)
}

// IsValid returns whether the SandboxConfig has valid fields. Environment
// names must be non-empty and free of '='.
func (c SandboxConfig) IsValid() (bool, []error) {
	var errs []error
	for name := range c.Env {
		if name == "" || strings.ContainsRune(name, '=') {
			errs = append(errs, fmt.Errorf("sandbox env: invalid variable name %q", name))
		}
	}
	if c.Enabled && strings.TrimSpace(c.Name) == "" {
		errs = append(errs, errors.New("sandbox name must be non-empty when the sandbox is enabled"))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidSandboxConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidSandboxConfigError.
func (e *InvalidSandboxConfigError) Error() string {
	return formatFieldErrors("invalid sandbox config", e.FieldErrors)
}

// Unwrap returns ErrInvalidSandboxConfig and the field errors.
func (e *InvalidSandboxConfigError) Unwrap() []error {
	return append([]error{ErrInvalidSandboxConfig}, e.FieldErrors...)
}

// IsValid returns whether the Config has valid fields.
// It delegates to each path's IsValid(), Sandbox.IsValid() and UI.IsValid().
// Cross-field rules live in Validate.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	for _, p := range c.Paths {
		if valid, fieldErrs := p.IsValid(); !valid {
			errs = append(errs, fieldErrs...)
		}
	}
	if strings.TrimSpace(c.ModulesDir) == "" {
		errs = append(errs, errors.New("modules_dir must be non-empty"))
	}
	if valid, fieldErrs := c.Sandbox.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return formatFieldErrors("invalid config", e.FieldErrors)
}

// formatFieldErrors spells out a single field error and counts several.
func formatFieldErrors(prefix string, errs []error) string {
	if len(errs) == 1 {
		return fmt.Sprintf("%s: %v", prefix, errs[0])
	}
	return fmt.Sprintf("%s: %d field error(s)", prefix, len(errs))
}

// Unwrap returns ErrInvalidConfig followed by the field errors, so errors.Is
// matches the sentinel and any field-level cause.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// StringPaths returns Paths as plain strings.
func (c *Config) StringPaths() []string {
	out := make([]string, len(c.Paths))
	for i, p := range c.Paths {
		out[i] = string(p)
	}
	return out
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Paths:                []SearchPath{},
		ModulesDir:           modload.DefaultModulesDir,
		AllowExternalModules: true,
		Blacklist:            []string{},
		Whitelist:            []string{},
		Extensions:           map[string][]string{},
		Executors:            map[string]string{},
		Overrides:            map[string]any{},
		Sandbox: SandboxConfig{
			Name: DefaultSandboxName,
			Env:  map[string]string{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}
