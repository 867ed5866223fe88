// SPDX-License-Identifier: MPL-2.0

package app

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/modload/modload/internal/config"
	"github.com/modload/modload/internal/issue"
	"github.com/modload/modload/internal/runtime"
	"github.com/modload/modload/internal/transform"
	"github.com/modload/modload/pkg/modload"
)

// defaultExecutors binds the body extensions every engine understands.
var defaultExecutors = map[string]string{
	modload.DefaultExtension: runtime.ExecutorShell,
	".go":                    runtime.ExecutorGo,
}

// EngineOptions are the inputs of NewEngine besides the configuration.
type EngineOptions struct {
	// WorkDir anchors host requests. Empty means the process working directory.
	WorkDir string
	// FS overrides the filesystem modules are read from.
	FS afero.Fs
	// Environ seeds the ambient environment. Nil means os.Environ().
	Environ []string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Logger *log.Logger
	// Listeners receive engine events after the log listener.
	Listeners []modload.Listener
	// SkipDefaultPaths leaves out DefaultPaths, keeping only configured roots.
	SkipDefaultPaths bool
}

// NewEngine builds an engine from cfg. A nil cfg means config.DefaultConfig().
func NewEngine(ctx context.Context, cfg *config.Config, eo EngineOptions) (*modload.Engine, error) {
	opts, err := BuildOptions(ctx, cfg, eo)
	if err != nil {
		return nil, err
	}
	return modload.NewEngine(opts), nil
}

// BuildOptions translates cfg into loader options. Extensions are probed in
// the order .sh, .json, .so, .go, the data formats, then configured ones.
func BuildOptions(ctx context.Context, cfg *config.Config, eo EngineOptions) (*modload.Options, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	logger := eo.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	environ := eo.Environ
	if environ == nil {
		environ = os.Environ()
	}

	o := modload.NewOptions()
	o.WorkDir = eo.WorkDir
	if o.WorkDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		o.WorkDir = wd
	}
	o.FS = eo.FS
	o.ModulesDir = cfg.ModulesDir
	o.PreserveSymlinks = cfg.PreserveSymlinks
	o.Reload = cfg.Reload
	o.AllowExternalModules = cfg.AllowExternalModules
	o.Blacklist = append([]string(nil), cfg.Blacklist...)
	o.Whitelist = append([]string(nil), cfg.Whitelist...)
	o.Logger = logger
	o.NativeLoader = runtime.PluginLoader{}

	if !eo.SkipDefaultPaths {
		o.AddPath(DefaultPaths()...)
	}
	o.AddPath(cfg.StringPaths()...)

	env := runtime.NewEnvironment(environ)
	o.Builtins = Builtins(env)
	if cfg.CopyBuiltins {
		o.CopyBuiltins = BuiltinNames(o.Builtins)
	}

	shell := runtime.NewShellExecutor(env, eo.Stdout, eo.Stderr)
	shell.Stdin = eo.Stdin
	goExec := runtime.NewGoExecutor(env, eo.Stdout, eo.Stderr)
	goExec.Stdin = eo.Stdin
	executors := runtime.NewRegistry()
	executors.Register(shell)
	executors.Register(goExec)

	if err := executors.Bind(o, defaultExecutors); err != nil {
		return nil, err
	}
	if err := o.AddExtensionList(transform.DataExtensions()); err != nil {
		return nil, err
	}
	// Configured extensions take their lookup position from the sorted union
	// of both sections before transformers and executors are attached.
	for _, ext := range configuredExtensions(cfg) {
		if err := o.AddExtension(ext); err != nil {
			return nil, err
		}
	}
	if err := transform.Register(o, cfg.Extensions); err != nil {
		return nil, err
	}
	if err := executors.Bind(o, cfg.Executors); err != nil {
		return nil, err
	}

	for name, value := range cfg.Overrides {
		o.AddOverride(name, constant(value))
	}

	if cfg.Sandbox.Enabled {
		sb, err := newSandbox(ctx, cfg.Sandbox, o.WorkDir, eo)
		if err != nil {
			return nil, err
		}
		o.UseSandbox = true
		o.Sandbox = sb
	}

	o.Listener = append(Listeners{LogListener{Logger: logger}}, eo.Listeners...)

	logger.Debug("engine configured",
		"workdir", o.WorkDir,
		"paths", len(o.Paths),
		"extensions", o.Extensions(),
		"sandbox", o.UseSandbox,
	)
	return o, nil
}

// newSandbox seeds a sandbox from the configured variables and env file.
// Relative env file and dir paths resolve against workDir.
func newSandbox(ctx context.Context, sc config.SandboxConfig, workDir string, eo EngineOptions) (*modload.Sandbox, error) {
	env := make(map[string]string, len(sc.Env))
	for k, v := range sc.Env {
		env[k] = v
	}

	if sc.EnvFile != "" {
		if err := runtime.LoadEnvFile(ctx, env, sc.EnvFile, workDir); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load sandbox environment").
				WithResource(sc.EnvFile).
				WithSuggestion("Env files hold shell assignments such as NAME=value").
				WithSuggestion("Suffix the path with '?' to make the file optional").
				Wrap(err).
				BuildError()
		}
	}

	name := sc.Name
	if name == "" {
		name = config.DefaultSandboxName
	}
	sb := modload.NewSandbox(name, env)
	if eo.Stdout != nil {
		sb.Stdout = eo.Stdout
	}
	if eo.Stderr != nil {
		sb.Stderr = eo.Stderr
	}
	if sc.Dir != "" {
		sb.Dir = sc.Dir
		if !filepath.IsAbs(sb.Dir) {
			sb.Dir = filepath.Join(workDir, sb.Dir)
		}
	}
	return sb, nil
}

// configuredExtensions lists the extensions named by cfg.Extensions or
// cfg.Executors, sorted.
func configuredExtensions(cfg *config.Config) []string {
	exts := slices.Collect(maps.Keys(cfg.Extensions))
	for ext := range cfg.Executors {
		if !slices.Contains(exts, ext) {
			exts = append(exts, ext)
		}
	}
	slices.Sort(exts)
	return exts
}

func constant(v any) modload.OverrideFunc {
	return func(string) (any, error) { return v, nil }
}
