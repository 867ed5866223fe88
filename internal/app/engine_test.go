// SPDX-License-Identifier: MPL-2.0

package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	goruntime "runtime"
	"slices"
	"testing"

	"github.com/modload/modload/internal/config"
	"github.com/modload/modload/internal/issue"
	"github.com/modload/modload/internal/runtime"
	"github.com/modload/modload/internal/testutil"
	"github.com/modload/modload/internal/transform"
	"github.com/modload/modload/pkg/modload"
	"github.com/modload/modload/pkg/platform"
)

func testOptions(dir string) EngineOptions {
	return EngineOptions{WorkDir: dir, Environ: []string{}, SkipDefaultPaths: true}
}

func TestBuildOptions_Defaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	o, err := BuildOptions(context.Background(), nil, testOptions(dir))
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	wantExt := []string{".sh", ".json", ".so", ".go", ".cue", ".toml", ".yaml", ".yml"}
	if got := o.Extensions(); !slices.Equal(got, wantExt) {
		t.Errorf("Extensions() = %v, want %v", got, wantExt)
	}
	for _, ext := range []string{".sh", ".go"} {
		if o.Executors[ext] == nil {
			t.Errorf("no executor bound to %s", ext)
		}
	}
	if got := o.Transformers(".yml"); !slices.Equal(got, []string{"yaml"}) {
		t.Errorf("Transformers(.yml) = %v", got)
	}
	if got := BuiltinNames(o.Builtins); len(got) != 4 {
		t.Errorf("builtins = %v", got)
	}
	if len(o.CopyBuiltins) != 0 {
		t.Errorf("CopyBuiltins = %v, want none", o.CopyBuiltins)
	}
	if len(o.Paths) != 0 {
		t.Errorf("Paths = %v, want none", o.Paths)
	}
	if o.UseSandbox || o.Sandbox != nil {
		t.Error("sandbox enabled by default")
	}
	if o.WorkDir != dir || o.NativeLoader == nil || o.Listener == nil {
		t.Errorf("options not filled: %+v", o)
	}
}

func TestBuildOptions_FromConfig(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Paths = []config.SearchPath{"lib", config.SearchPath(filepath.Join(dir, "abs"))}
	cfg.ModulesDir = "vendor"
	cfg.Reload = true
	cfg.AllowExternalModules = false
	cfg.Blacklist = []string{"danger"}
	cfg.Whitelist = []string{"env"}
	cfg.CopyBuiltins = true
	cfg.Extensions = map[string][]string{".txt": {"crlf", "trim"}}
	cfg.Executors = map[string]string{".bash": runtime.ExecutorShell}

	o, err := BuildOptions(context.Background(), cfg, testOptions(dir))
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	wantPaths := []string{filepath.Join(dir, "lib"), filepath.Join(dir, "abs")}
	if !slices.Equal(o.Paths, wantPaths) {
		t.Errorf("Paths = %v, want %v", o.Paths, wantPaths)
	}
	if o.ModulesDir != "vendor" || !o.Reload || o.AllowExternalModules {
		t.Errorf("flags not copied: %+v", o)
	}
	if !slices.Equal(o.Blacklist, cfg.Blacklist) || !slices.Equal(o.Whitelist, cfg.Whitelist) {
		t.Errorf("lists = %v / %v", o.Blacklist, o.Whitelist)
	}
	if !slices.Equal(o.CopyBuiltins, BuiltinNames(o.Builtins)) {
		t.Errorf("CopyBuiltins = %v", o.CopyBuiltins)
	}

	ext := o.Extensions()
	if tail := ext[len(ext)-2:]; !slices.Equal(tail, []string{".bash", ".txt"}) {
		t.Errorf("Extensions() = %v, want configured ones last", ext)
	}
	if got := o.Transformers(".txt"); !slices.Equal(got, []string{"crlf", "trim"}) {
		t.Errorf("Transformers(.txt) = %v", got)
	}
	if o.Executors[".bash"] == nil {
		t.Error("no executor bound to .bash")
	}
}

func TestBuildOptions_ConfiguredLookupOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"tool.bash": "exports kind bash\n",
		"tool.txt":  `{"kind": "txt"}`,
		"tool.yaml": "kind: yaml\n",
	})

	tests := []struct {
		name       string
		extensions map[string][]string
		executors  map[string]string
		want       string
	}{
		{
			name:       "executor extension sorts before transformer extension",
			extensions: map[string][]string{".txt": {"json"}},
			executors:  map[string]string{".bash": runtime.ExecutorShell},
			want:       "tool.bash",
		},
		{
			name:       "transformer extension sorts before executor extension",
			extensions: map[string][]string{".bash": {"json"}},
			executors:  map[string]string{".txt": runtime.ExecutorShell},
			want:       "tool.bash",
		},
		{
			name:       "extension named by both sections",
			extensions: map[string][]string{".txt": {"trim"}},
			executors:  map[string]string{".txt": runtime.ExecutorShell, ".bash": runtime.ExecutorShell},
			want:       "tool.bash",
		},
		{
			name:       "built-in extensions keep their position",
			extensions: map[string][]string{".bash": {"json"}},
			want:       "tool.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Extensions = tt.extensions
			cfg.Executors = tt.executors

			e, err := NewEngine(context.Background(), cfg, testOptions(dir))
			if err != nil {
				t.Fatalf("NewEngine() error = %v", err)
			}
			got, err := e.Resolve("./tool", nil, false)
			if err != nil {
				t.Fatalf("Resolve(./tool) error = %v", err)
			}
			if want := filepath.Join(testutil.RealDir(t, dir), tt.want); got != want {
				t.Errorf("Resolve(./tool) = %s, want %s (extensions %v)", got, want, e.Extensions())
			}
		})
	}
}

func TestBuildOptions_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr error
	}{
		{
			name:    "unknown transformer",
			mutate:  func(c *config.Config) { c.Extensions = map[string][]string{".txt": {"rot13"}} },
			wantErr: transform.ErrUnknownTransformer,
		},
		{
			name:    "unknown executor",
			mutate:  func(c *config.Config) { c.Executors = map[string]string{".rb": "ruby"} },
			wantErr: runtime.ErrUnknownExecutor,
		},
		{
			name:    "invalid extension",
			mutate:  func(c *config.Config) { c.Extensions = map[string][]string{"txt": {"trim"}} },
			wantErr: modload.ErrInvalidExtension,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			tt.mutate(cfg)
			_, err := BuildOptions(context.Background(), cfg, testOptions(t.TempDir()))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("BuildOptions() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestBuildOptions_Sandbox(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{
		"sandbox.env": "GREETING=hello\nTARGET=\"$BASE/out\"\n",
	})

	cfg := config.DefaultConfig()
	cfg.Sandbox = config.SandboxConfig{
		Enabled: true,
		Env:     map[string]string{"BASE": "/srv"},
		EnvFile: "sandbox.env",
		Dir:     "run",
	}

	var stdout bytes.Buffer
	eo := testOptions(dir)
	eo.Stdout = &stdout
	o, err := BuildOptions(context.Background(), cfg, eo)
	if err != nil {
		t.Fatalf("BuildOptions() error = %v", err)
	}

	if !o.UseSandbox || o.Sandbox == nil {
		t.Fatal("sandbox not enabled")
	}
	sb := o.Sandbox
	if sb.Name != config.DefaultSandboxName {
		t.Errorf("Name = %q, want %q", sb.Name, config.DefaultSandboxName)
	}
	if sb.Dir != filepath.Join(dir, "run") {
		t.Errorf("Dir = %q", sb.Dir)
	}
	if sb.Stdout != &stdout {
		t.Error("sandbox stdout not wired")
	}
	for name, want := range map[string]string{"BASE": "/srv", "GREETING": "hello", "TARGET": "/srv/out"} {
		if got, _ := sb.Get(name); got != want {
			t.Errorf("sandbox %s = %q, want %q", name, got, want)
		}
	}
	if _, ok := cfg.Sandbox.Env["GREETING"]; ok {
		t.Error("env file leaked into the configuration")
	}
}

func TestBuildOptions_SandboxEnvFileErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		envFile string
		wantErr bool
	}{
		{name: "missing required file", envFile: "missing.env", wantErr: true},
		{name: "missing optional file", envFile: "missing.env?", wantErr: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := config.DefaultConfig()
			cfg.Sandbox.Enabled = true
			cfg.Sandbox.EnvFile = tt.envFile

			_, err := BuildOptions(context.Background(), cfg, testOptions(t.TempDir()))
			if !tt.wantErr {
				if err != nil {
					t.Fatalf("BuildOptions() error = %v", err)
				}
				return
			}

			var ae *issue.ActionableError
			if !errors.As(err, &ae) {
				t.Fatalf("BuildOptions() error = %v, want *issue.ActionableError", err)
			}
			if ae.Operation != "load sandbox environment" || !ae.HasSuggestions() {
				t.Errorf("error = %+v", ae)
			}
		})
	}
}

func TestNewEngine_LoadsModules(t *testing.T) {
	t.Parallel()
	if goruntime.GOOS == platform.Windows {
		t.Skip("shell bodies use POSIX paths")
	}

	dir := testutil.RealDir(t, t.TempDir())
	testutil.WriteTree(t, dir, map[string]string{
		"main.sh":         "exports kind shell\n",
		"tool.bash":       "exports kind bash\n",
		"settings.yaml":   "port: 8080\n",
		"notes.txt":       "  {\"msg\": \"hi\"}  \r\n",
		"modules/lib.cue": "name: \"lib\"\n",
	})

	cfg := config.DefaultConfig()
	cfg.Executors = map[string]string{".bash": runtime.ExecutorShell}
	cfg.Paths = []config.SearchPath{"modules"}
	cfg.Extensions = map[string][]string{".txt": {"crlf", "trim", "json"}}
	cfg.Overrides = map[string]any{"config": map[string]any{"port": int64(9090)}}

	e, err := NewEngine(context.Background(), cfg, testOptions(dir))
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	ctx := context.Background()

	tests := []struct {
		request string
		check   func(t *testing.T, v any)
	}{
		{request: "./main", check: wantField("kind", "shell")},
		{request: "./tool.bash", check: wantField("kind", "bash")},
		{request: "./settings", check: wantField("port", 8080)},
		{request: "lib", check: wantField("name", "lib")},
		{request: "config", check: wantField("port", int64(9090))},
		{request: "./notes.txt", check: wantField("msg", "hi")},
	}

	for _, tt := range tests {
		v, err := e.Require(ctx, nil, tt.request)
		if err != nil {
			t.Errorf("Require(%q) error = %v", tt.request, err)
			continue
		}
		tt.check(t, v)
	}
}

func TestNewEngine_SandboxedBody(t *testing.T) {
	t.Parallel()
	if goruntime.GOOS == platform.Windows {
		t.Skip("shell bodies use POSIX paths")
	}

	dir := testutil.RealDir(t, t.TempDir())
	testutil.WriteTree(t, dir, map[string]string{
		"main.sh": "exports greeting \"$GREETING\"\nexports host \"${HOST_ONLY:-unset}\"\n",
	})

	cfg := config.DefaultConfig()
	cfg.Sandbox.Enabled = true
	cfg.Sandbox.Env = map[string]string{"GREETING": "hi"}

	eo := testOptions(dir)
	eo.Environ = []string{"HOST_ONLY=1"}
	e, err := NewEngine(context.Background(), cfg, eo)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	if _, ok := e.Scope().(modload.Isolated); !ok {
		t.Fatalf("Scope() = %T, want modload.Isolated", e.Scope())
	}

	m, err := e.Main(context.Background(), "./main.sh")
	if err != nil {
		t.Fatalf("Main() error = %v", err)
	}
	wantField("greeting", "hi")(t, m.Exports)
	wantField("host", "unset")(t, m.Exports)
}

func wantField(key string, want any) func(t *testing.T, v any) {
	return func(t *testing.T, v any) {
		t.Helper()
		got, ok := v.(map[string]any)
		if !ok {
			t.Errorf("exports = %T, want map[string]any", v)
			return
		}
		if got[key] != want {
			t.Errorf("exports[%q] = %#v, want %#v", key, got[key], want)
		}
	}
}
