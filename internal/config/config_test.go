// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/modload/modload/internal/issue"
	"github.com/modload/modload/internal/transform"
	"github.com/modload/modload/pkg/modload"
	"github.com/modload/modload/pkg/platform"
)

// load writes content (when non-empty) as modload.cue into a fresh config dir
// and loads it with an empty work dir.
func load(t *testing.T, content string) (*Config, error) {
	t.Helper()
	cfgDir := t.TempDir()
	if content != "" {
		path := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: cfgDir, WorkDir: t.TempDir()})
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	if cfg.ModulesDir != modload.DefaultModulesDir {
		t.Errorf("ModulesDir = %q, want %q", cfg.ModulesDir, modload.DefaultModulesDir)
	}
	if !cfg.AllowExternalModules {
		t.Error("expected external modules to be allowed by default")
	}
	if cfg.Reload || cfg.PreserveSymlinks || cfg.CopyBuiltins || cfg.Sandbox.Enabled {
		t.Errorf("expected boolean switches off by default: %+v", cfg)
	}
	if cfg.UI.ColorScheme != ColorSchemeAuto {
		t.Errorf("expected default color scheme to be auto, got %s", cfg.UI.ColorScheme)
	}
	if valid, errs := cfg.IsValid(); !valid {
		t.Errorf("DefaultConfig().IsValid() = %v", errs)
	}
}

func TestConfigDir(t *testing.T) {
	if runtime.GOOS != platform.Linux {
		t.Skip("XDG lookup is Linux-only")
	}

	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	dir, err := ConfigDir()
	if err != nil {
		t.Fatalf("ConfigDir() returned error: %v", err)
	}
	if want := filepath.Join(xdg, AppName); dir != want {
		t.Errorf("ConfigDir() = %s, want %s", dir, want)
	}

	override := t.TempDir()
	restore := SetConfigDirOverride(override)
	if dir, _ := ConfigDir(); dir != override {
		t.Errorf("ConfigDir() = %s, want override %s", dir, override)
	}
	restore()
	if dir, _ := ConfigDir(); dir != filepath.Join(xdg, AppName) {
		t.Errorf("override not restored: %s", dir)
	}
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, "")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Source != "" {
		t.Errorf("Source = %q, want empty", cfg.Source)
	}
	if cfg.ModulesDir != modload.DefaultModulesDir || !cfg.AllowExternalModules {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Extensions == nil || cfg.Overrides == nil || cfg.Sandbox.Env == nil {
		t.Error("map sections should be empty, not nil")
	}
}

func TestLoad_FullFile(t *testing.T) {
	t.Parallel()

	cfg, err := load(t, `
paths: ["/opt/mods", "/srv/lib"]
modules_dir: "vendor_modules"
reload: true
allow_external_modules: false
whitelist: ["Lodash.Get"]
extensions: {
	".yaml": ["crlf", "yaml"]
	".txt": ["trim"]
}
executors: ".bash": "shell"
overrides: "Lodash.Get": {MixedCase: 1, list: ["a"]}
sandbox: {
	enabled: true
	env: {PATH: "/bin", Home_Dir: "/home/x"}
	env_file: ".env?"
}
ui: color_scheme: "dark"
`)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if want := []SearchPath{"/opt/mods", "/srv/lib"}; !slices.Equal(cfg.Paths, want) {
		t.Errorf("Paths = %v, want %v", cfg.Paths, want)
	}
	if cfg.ModulesDir != "vendor_modules" || !cfg.Reload || cfg.AllowExternalModules {
		t.Errorf("scalars = %q, %v, %v", cfg.ModulesDir, cfg.Reload, cfg.AllowExternalModules)
	}
	if !slices.Equal(cfg.Whitelist, []string{"Lodash.Get"}) {
		t.Errorf("Whitelist = %v", cfg.Whitelist)
	}
	if want := []string{"crlf", "yaml"}; !slices.Equal(cfg.Extensions[".yaml"], want) {
		t.Errorf("Extensions = %v", cfg.Extensions)
	}
	if cfg.Executors[".bash"] != "shell" {
		t.Errorf("Executors = %v", cfg.Executors)
	}

	want := map[string]any{"MixedCase": int64(1), "list": []any{"a"}}
	if got := cfg.Overrides["Lodash.Get"]; !reflect.DeepEqual(got, want) {
		t.Errorf("Overrides[Lodash.Get] = %#v, want %#v", got, want)
	}
	if cfg.Sandbox.Env["Home_Dir"] != "/home/x" || !cfg.Sandbox.Enabled || cfg.Sandbox.EnvFile != ".env?" {
		t.Errorf("Sandbox = %+v", cfg.Sandbox)
	}
	if cfg.Sandbox.Name != DefaultSandboxName {
		t.Errorf("Sandbox.Name = %q, want the default", cfg.Sandbox.Name)
	}
	if cfg.UI.ColorScheme != ColorSchemeDark {
		t.Errorf("ColorScheme = %q", cfg.UI.ColorScheme)
	}
}

func TestLoad_Lookup(t *testing.T) {
	t.Parallel()

	t.Run("work dir fallback", func(t *testing.T) {
		t.Parallel()

		work := t.TempDir()
		path := filepath.Join(work, "modload.cue")
		if err := os.WriteFile(path, []byte("reload: true\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: t.TempDir(), WorkDir: work})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !cfg.Reload || cfg.Source != path {
			t.Errorf("Reload = %v, Source = %q", cfg.Reload, cfg.Source)
		}
	})

	t.Run("config dir wins over work dir", func(t *testing.T) {
		t.Parallel()

		cfgDir, work := t.TempDir(), t.TempDir()
		if err := os.WriteFile(filepath.Join(cfgDir, "modload.cue"), []byte("modules_dir: \"from_dir\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(work, "modload.cue"), []byte("modules_dir: \"from_work\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := NewProvider().Load(context.Background(), LoadOptions{ConfigDirPath: cfgDir, WorkDir: work})
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.ModulesDir != "from_dir" {
			t.Errorf("ModulesDir = %q, want from_dir", cfg.ModulesDir)
		}
	})

	t.Run("explicit file must exist", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "nope.cue")
		_, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: missing})
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("Load() error = %v, want ErrConfigNotFound", err)
		}
		var ae *issue.ActionableError
		if !errors.As(err, &ae) || ae.Resource != missing || !ae.HasSuggestions() {
			t.Errorf("error is not an actionable error about %s: %v", missing, err)
		}
	})

	t.Run("canceled context", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := NewProvider().Load(ctx, LoadOptions{}); !errors.Is(err, context.Canceled) {
			t.Errorf("Load() error = %v, want context.Canceled", err)
		}
	})
}

func TestLoad_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		errLike string
	}{
		{name: "syntax", content: "paths: [\n", errLike: "modload.cue"},
		{name: "unknown field", content: "container_engine: \"docker\"\n", errLike: "container_engine"},
		{name: "color scheme", content: "ui: color_scheme: \"blue\"\n", errLike: "color_scheme"},
		{name: "executor name", content: "executors: \".py\": \"python\"\n", errLike: "executors"},
		{name: "extension key", content: "extensions: yaml: [\"yaml\"]\n", errLike: "extensions"},
		{name: "modules dir with separator", content: "modules_dir: \"a/b\"\n", errLike: "modules_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := load(t, tt.content)
			if err == nil {
				t.Fatal("Load() accepted an invalid file")
			}
			if !strings.Contains(err.Error(), tt.errLike) {
				t.Errorf("error %q does not mention %q", err, tt.errLike)
			}
			var ae *issue.ActionableError
			if !errors.As(err, &ae) || ae.Operation != "load configuration" {
				t.Errorf("error is not an actionable load error: %v", err)
			}
		})
	}
}

func TestLoad_UnknownTransformer(t *testing.T) {
	t.Parallel()

	_, err := load(t, "extensions: \".txt\": [\"rot13\"]\n")
	if !errors.Is(err, transform.ErrUnknownTransformer) {
		t.Fatalf("Load() error = %v, want ErrUnknownTransformer", err)
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) || ae.Operation != "load configuration" {
		t.Errorf("error is not an actionable load error: %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MODLOAD_RELOAD", "true")
	t.Setenv("MODLOAD_UI_VERBOSE", "true")
	t.Setenv("MODLOAD_MODULES_DIR", "env_modules")

	cfg, err := load(t, "modules_dir: \"file_modules\"\n")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Reload || !cfg.UI.Verbose {
		t.Errorf("Reload = %v, Verbose = %v, want both from the environment", cfg.Reload, cfg.UI.Verbose)
	}
	if cfg.ModulesDir != "env_modules" {
		t.Errorf("ModulesDir = %q, want the environment to win over the file", cfg.ModulesDir)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{
			name:   "duplicate paths",
			mutate: func(c *Config) { c.Paths = []SearchPath{"/a", "/b", "/a/"} },
			want:   errors.New("duplicate path"),
		},
		{
			name:   "blank path",
			mutate: func(c *Config) { c.Paths = []SearchPath{"  "} },
			want:   ErrInvalidSearchPath,
		},
		{
			name:   "extension without dot",
			mutate: func(c *Config) { c.Extensions = map[string][]string{"txt": {"trim"}} },
			want:   errors.New("invalid extension"),
		},
		{
			name:   "unknown transformer",
			mutate: func(c *Config) { c.Extensions = map[string][]string{".txt": {"nope"}} },
			want:   transform.ErrUnknownTransformer,
		},
		{
			name:   "bad executor extension",
			mutate: func(c *Config) { c.Executors = map[string]string{".a.b": "shell"} },
			want:   errors.New("invalid extension"),
		},
		{
			name:   "color scheme",
			mutate: func(c *Config) { c.UI.ColorScheme = "neon" },
			want:   ErrInvalidColorScheme,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)

			switch {
			case tt.want == nil:
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
			case err == nil:
				t.Errorf("Validate() = nil, want %v", tt.want)
			case !errors.Is(err, tt.want) && !strings.Contains(err.Error(), tt.want.Error()):
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestGenerateCUE_LoadsBack(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Paths = []SearchPath{"/opt/mods"}
	cfg.Blacklist = []string{"child_process"}
	cfg.CopyBuiltins = true
	cfg.Extensions = map[string][]string{".yml": {"yaml"}, ".txt": {"crlf", "trim"}}
	cfg.Executors = map[string]string{".bash": "shell"}
	cfg.Overrides = map[string]any{"answer": map[string]any{"Value": 42}}
	cfg.Sandbox = SandboxConfig{Enabled: true, Name: "tests", Env: map[string]string{"A": "1"}, Dir: "/tmp"}
	cfg.UI = UIConfig{ColorScheme: ColorSchemeLight, Verbose: true}

	path := filepath.Join(t.TempDir(), "nested", "modload.cue")
	if err := WriteFile(path, cfg); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	got, err := NewProvider().Load(context.Background(), LoadOptions{ConfigFilePath: path})
	if err != nil {
		t.Fatalf("Load() error = %v\n%s", err, GenerateCUE(cfg))
	}

	if !slices.Equal(got.Paths, cfg.Paths) || !slices.Equal(got.Blacklist, cfg.Blacklist) || !got.CopyBuiltins {
		t.Errorf("lists and switches did not survive: %+v", got)
	}
	if !reflect.DeepEqual(got.Extensions, cfg.Extensions) || !reflect.DeepEqual(got.Executors, cfg.Executors) {
		t.Errorf("Extensions = %v, Executors = %v", got.Extensions, got.Executors)
	}
	if v := got.Overrides["answer"].(map[string]any)["Value"]; v != int64(42) {
		t.Errorf("Overrides = %#v", got.Overrides)
	}
	if !reflect.DeepEqual(got.Sandbox, cfg.Sandbox) || got.UI != cfg.UI {
		t.Errorf("Sandbox = %+v, UI = %+v", got.Sandbox, got.UI)
	}
}

func TestCreateDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "modload.cue")
	got, written, err := CreateDefaultConfig(path)
	if err != nil || !written || got != path {
		t.Fatalf("CreateDefaultConfig() = %q, %v, %v", got, written, err)
	}

	if err := os.WriteFile(path, []byte("reload: true\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, written, err := CreateDefaultConfig(path); err != nil || written {
		t.Errorf("second CreateDefaultConfig() = %v, %v; want no write", written, err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "reload: true\n" {
		t.Error("CreateDefaultConfig() overwrote an existing file")
	}
}
