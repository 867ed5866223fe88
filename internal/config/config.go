// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"github.com/spf13/viper"

	"github.com/modload/modload/internal/issue"
	"github.com/modload/modload/internal/transform"
	"github.com/modload/modload/pkg/cueutil"
	"github.com/modload/modload/pkg/platform"
)

const (
	// AppName is the application name.
	AppName = "modload"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "modload"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (MODLOAD_RELOAD, MODLOAD_UI_VERBOSE).
	EnvPrefix = "MODLOAD"
)

//go:embed config_schema.cue
var configSchema []byte

// ErrConfigNotFound is returned when an explicit config file does not exist.
var ErrConfigNotFound = errors.New("config file not found")

// sections holds the parts of a config file whose keys are extensions, module
// names or environment variables. Viper folds key case and splits keys on dots,
// so these are decoded from CUE directly and never pass through it.
type sections struct {
	Extensions map[string][]string
	Executors  map[string]string
	Overrides  map[string]any
	SandboxEnv map[string]string
}

// ConfigDir returns the modload configuration directory using platform-specific
// conventions: Windows uses %APPDATA%, macOS uses ~/Library/Application Support,
// and Linux/others use $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	if configDirOverride != "" {
		return configDirOverride, nil
	}

	var configDir string

	switch runtime.GOOS {
	case platform.Windows:
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case platform.Darwin:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("paths", defaults.StringPaths())
	v.SetDefault("modules_dir", defaults.ModulesDir)
	v.SetDefault("preserve_symlinks", defaults.PreserveSymlinks)
	v.SetDefault("reload", defaults.Reload)
	v.SetDefault("allow_external_modules", defaults.AllowExternalModules)
	v.SetDefault("blacklist", defaults.Blacklist)
	v.SetDefault("whitelist", defaults.Whitelist)
	v.SetDefault("copy_builtins", defaults.CopyBuiltins)
	v.SetDefault("sandbox.enabled", defaults.Sandbox.Enabled)
	v.SetDefault("sandbox.name", defaults.Sandbox.Name)
	v.SetDefault("sandbox.env_file", defaults.Sandbox.EnvFile)
	v.SetDefault("sandbox.dir", defaults.Sandbox.Dir)
	v.SetDefault("ui.color_scheme", defaults.UI.ColorScheme)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)

	path, err := locate(opts)
	if err != nil {
		return nil, err
	}

	if path == "" {
		slog.Debug("no configuration file found, using defaults", "workdir", opts.WorkDir)
	}

	sec := sections{}
	if path != "" {
		sec, err = loadCUEIntoViper(v, path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'modload config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.Extensions = orEmpty(sec.Extensions)
	cfg.Executors = orEmpty(sec.Executors)
	cfg.Overrides = orEmpty(sec.Overrides)
	cfg.Sandbox.Env = orEmpty(sec.SandboxEnv)
	cfg.Source = path

	if err := Validate(&cfg); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Run 'modload config show' to see the effective configuration").
			WithSuggestion("Transformer names: " + strings.Join(transform.Names(), ", ")).
			Wrap(err).
			BuildError()
	}

	return &cfg, nil
}

// locate returns the config file to load, or "" when none exists. An explicit
// path must exist; otherwise the config dir is tried before the work dir.
func locate(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Run 'modload config init' to create a configuration file").
				Wrap(fmt.Errorf("%w: %s", ErrConfigNotFound, opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", err
	}
	fileName := ConfigFileName + "." + ConfigFileExt
	if p := filepath.Join(cfgDir, fileName); fileExists(p) {
		return p, nil
	}
	if p := filepath.Join(opts.WorkDir, fileName); fileExists(p) {
		return p, nil
	}
	return "", nil
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// Viper. Config fields are optional, so the file is validated with
// Concrete(false).
func loadCUEIntoViper(v *viper.Viper, path string) (sections, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return sections{}, fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.ParseAndDecode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path), cueutil.WithConcrete(false))
	if err != nil {
		return sections{}, err
	}

	var sec sections
	for _, s := range []struct {
		path string
		dst  any
	}{
		{"extensions", &sec.Extensions},
		{"executors", &sec.Executors},
		{"overrides", &sec.Overrides},
		{"sandbox.env", &sec.SandboxEnv},
	} {
		field := res.Unified.LookupPath(cue.ParsePath(s.path))
		if !field.Exists() {
			continue
		}
		if err := field.Decode(s.dst); err != nil {
			return sections{}, cueutil.FormatError(err, path)
		}
	}

	configMap := *res.Value
	delete(configMap, "extensions")
	delete(configMap, "executors")
	delete(configMap, "overrides")
	if sb, ok := configMap["sandbox"].(map[string]any); ok {
		delete(sb, "env")
	}

	// Merge into Viper (preserves defaults, allows env overrides)
	if err := v.MergeConfigMap(configMap); err != nil {
		return sections{}, fmt.Errorf("failed to merge config: %w", err)
	}
	return sec, nil
}

// Validate checks the rules CUE cannot express: Config.IsValid, unique search
// paths, well-formed extension keys and known transformer names.
func Validate(cfg *Config) error {
	var errs []error
	if valid, fieldErrs := cfg.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}

	seen := make(map[string]int)
	for i, p := range cfg.Paths {
		clean := filepath.Clean(string(p))
		if first, dup := seen[clean]; dup {
			errs = append(errs, fmt.Errorf("paths[%d]: duplicate path %q (same as paths[%d])", i, p, first))
			continue
		}
		seen[clean] = i
	}

	known := transform.Names()
	for _, ext := range sortedKeys(cfg.Extensions) {
		if err := checkExtension(ext); err != nil {
			errs = append(errs, fmt.Errorf("extensions: %w", err))
		}
		for _, name := range cfg.Extensions[ext] {
			if !slices.Contains(known, name) {
				errs = append(errs, fmt.Errorf("extensions[%q]: %w: %q", ext, transform.ErrUnknownTransformer, name))
			}
		}
	}
	for _, ext := range sortedKeys(cfg.Executors) {
		if err := checkExtension(ext); err != nil {
			errs = append(errs, fmt.Errorf("executors: %w", err))
		}
	}

	return errors.Join(errs...)
}

func checkExtension(ext string) error {
	if len(ext) < 2 || ext[0] != '.' || strings.ContainsAny(ext[1:], `./\`) {
		return fmt.Errorf("invalid extension %q: must be a dot followed by a name", ext)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// EnsureConfigDir creates the config directory if it doesn't exist
func EnsureConfigDir() error {
	cfgDir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(cfgDir, 0o755)
}

// DefaultConfigPath returns the path of the config file in the config dir.
func DefaultConfigPath() (string, error) {
	cfgDir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt), nil
}

// CreateDefaultConfig writes the default configuration to path unless a file
// already exists there. An empty path selects DefaultConfigPath. It reports
// the path and whether a file was written.
func CreateDefaultConfig(path string) (string, bool, error) {
	if path == "" {
		var err error
		if path, err = DefaultConfigPath(); err != nil {
			return "", false, err
		}
	}

	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	}
	if err := WriteFile(path, DefaultConfig()); err != nil {
		return "", false, err
	}
	return path, true, nil
}

// Save writes cfg to the config file in the config dir.
func Save(cfg *Config) error {
	path, err := DefaultConfigPath()
	if err != nil {
		return err
	}
	return WriteFile(path, cfg)
}

// WriteFile writes cfg as CUE to path, creating parent directories.
func WriteFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// modload configuration file\n\n")

	writeList(&sb, "paths", cfg.StringPaths())
	fmt.Fprintf(&sb, "modules_dir: %q\n", cfg.ModulesDir)
	fmt.Fprintf(&sb, "preserve_symlinks: %v\n", cfg.PreserveSymlinks)
	fmt.Fprintf(&sb, "reload: %v\n", cfg.Reload)
	fmt.Fprintf(&sb, "allow_external_modules: %v\n", cfg.AllowExternalModules)
	writeList(&sb, "blacklist", cfg.Blacklist)
	writeList(&sb, "whitelist", cfg.Whitelist)
	fmt.Fprintf(&sb, "copy_builtins: %v\n", cfg.CopyBuiltins)

	if len(cfg.Extensions) > 0 {
		sb.WriteString("\nextensions: {\n")
		for _, ext := range sortedKeys(cfg.Extensions) {
			fmt.Fprintf(&sb, "\t%q: [%s]\n", ext, quoteAll(cfg.Extensions[ext]))
		}
		sb.WriteString("}\n")
	}

	if len(cfg.Executors) > 0 {
		sb.WriteString("\nexecutors: {\n")
		for _, ext := range sortedKeys(cfg.Executors) {
			fmt.Fprintf(&sb, "\t%q: %q\n", ext, cfg.Executors[ext])
		}
		sb.WriteString("}\n")
	}

	if len(cfg.Overrides) > 0 {
		sb.WriteString("\noverrides: {\n")
		for _, name := range sortedKeys(cfg.Overrides) {
			// JSON is a subset of CUE.
			data, err := json.Marshal(cfg.Overrides[name])
			if err != nil {
				data = []byte("null")
			}
			fmt.Fprintf(&sb, "\t%q: %s\n", name, data)
		}
		sb.WriteString("}\n")
	}

	sb.WriteString("\nsandbox: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Sandbox.Enabled)
	if cfg.Sandbox.Name != "" {
		fmt.Fprintf(&sb, "\tname: %q\n", cfg.Sandbox.Name)
	}
	if len(cfg.Sandbox.Env) > 0 {
		sb.WriteString("\tenv: {\n")
		for _, k := range sortedKeys(cfg.Sandbox.Env) {
			fmt.Fprintf(&sb, "\t\t%q: %q\n", k, cfg.Sandbox.Env[k])
		}
		sb.WriteString("\t}\n")
	}
	if cfg.Sandbox.EnvFile != "" {
		fmt.Fprintf(&sb, "\tenv_file: %q\n", cfg.Sandbox.EnvFile)
	}
	if cfg.Sandbox.Dir != "" {
		fmt.Fprintf(&sb, "\tdir: %q\n", cfg.Sandbox.Dir)
	}
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tcolor_scheme: %q\n", cfg.UI.ColorScheme)
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func writeList(sb *strings.Builder, key string, items []string) {
	fmt.Fprintf(sb, "%s: [%s]\n", key, quoteAll(items))
}

func quoteAll(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return strings.Join(quoted, ", ")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func orEmpty[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}
