// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func TestPipeline_TerminalShortCircuits(t *testing.T) {
	t.Parallel()

	type widget struct{ Name string }
	obj := &widget{Name: "w"}
	secondRan := false

	e := newTestEngine(t, map[string]string{"thing.x": "raw"}, nil, func(o *Options) {
		err := o.AddExtension(".x",
			Transformer{Name: "first", Fn: func([]byte, string) (Result, error) { return Terminal(obj), nil }},
			Transformer{Name: "second", Fn: func([]byte, string) (Result, error) {
				secondRan = true
				return Unchanged(), nil
			}},
		)
		if err != nil {
			t.Fatalf("AddExtension() error = %v", err)
		}
	})

	v, err := e.Require(context.Background(), nil, "./thing.x")
	if err != nil {
		t.Fatalf("Require() error = %v", err)
	}
	if v != obj {
		t.Errorf("exports = %v, want the terminal value itself", v)
	}
	if secondRan {
		t.Error("transformer after a terminal result ran")
	}
	if m := e.Module("/work/thing.x"); m == nil || !m.Loaded {
		t.Error("terminal module not registered as loaded")
	}
}

func TestPipeline_ChainFeedsExecutor(t *testing.T) {
	t.Parallel()

	var got []byte
	var order []string
	e := newTestEngine(t, map[string]string{"m.up": "\xef\xbb\xbf#!/bin/modload\nhello"}, nil, func(o *Options) {
		_ = o.AddExtension(".up",
			Transformer{Name: "upper", Fn: func(c []byte, filename string) (Result, error) {
				order = append(order, "upper")
				if filepath.Base(filename) != "m.up" {
					t.Errorf("transformer got filename %q", filename)
				}
				return Continue(bytes.ToUpper(c)), nil
			}},
			Transformer{Name: "noop", Fn: func([]byte, string) (Result, error) {
				order = append(order, "noop")
				return Unchanged(), nil
			}},
			Transformer{Name: "suffix", Fn: func(c []byte, _ string) (Result, error) {
				order = append(order, "suffix")
				return Continue(append(c, '!')), nil
			}},
		)
		o.Executors[".up"] = ExecutorFunc(func(_ context.Context, _ ExecutionScope, content []byte, _ *Bindings) error {
			got = content
			return nil
		})
	})

	if _, err := e.Require(context.Background(), nil, "./m.up"); err != nil {
		t.Fatalf("Require() error = %v", err)
	}
	if want := "\nHELLO!"; string(got) != want {
		t.Errorf("executor content = %q, want %q", got, want)
	}
	if len(order) != 3 || order[0] != "upper" || order[2] != "suffix" {
		t.Errorf("transformer order = %v", order)
	}
}

func TestPipeline_TransformerErrorPropagates(t *testing.T) {
	t.Parallel()

	errBad := errors.New("bad content")
	e := newTestEngine(t, map[string]string{"m.y": ""}, nil, func(o *Options) {
		_ = o.AddExtension(".y", Transformer{Name: "fail", Fn: func([]byte, string) (Result, error) { return Result{}, errBad }})
	})
	if _, err := e.Require(context.Background(), nil, "./m.y"); err != errBad {
		t.Errorf("Require() error = %v, want %v", err, errBad)
	}
	if e.Module("/work/m.y") != nil {
		t.Error("module left registered after a transformer error")
	}
}

func TestPipeline_JSON(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, map[string]string{
		"good.json": "\xef\xbb\xbf{\"name\": \"x\", \"list\": [1, 2]}",
		"bad.json":  "{nope",
	}, nil)
	ctx := context.Background()

	v, err := e.Require(ctx, nil, "./good")
	if err != nil {
		t.Fatalf("Require(good) error = %v", err)
	}
	if v.(map[string]any)["name"] != "x" {
		t.Errorf("good exports = %v", v)
	}

	_, err = e.Require(ctx, nil, "./bad.json")
	wantKind(t, err, KindDataParse)
	var dpe *DataParseError
	if !errors.As(err, &dpe) || dpe.Path != "/work/bad.json" {
		t.Errorf("error = %v, want a DataParseError naming /work/bad.json", err)
	}
}

func TestPipeline_DefaultExtension(t *testing.T) {
	t.Parallel()

	ran := false
	bs := bodies{"script": func(context.Context, *Bindings) error {
		ran = true
		return nil
	}, "notes.unknown": set("ok", true)}
	e := newTestEngine(t, map[string]string{"script": "", "notes.unknown": ""}, bs)
	ctx := context.Background()

	if _, err := e.Require(ctx, nil, "./script"); err != nil {
		t.Fatalf("Require(script) error = %v", err)
	}
	if !ran {
		t.Error("extensionless file not executed by the default extension's executor")
	}
	v, err := e.Require(ctx, nil, "./notes.unknown")
	if err != nil {
		t.Fatalf("Require(notes.unknown) error = %v", err)
	}
	if v.(map[string]any)["ok"] != true {
		t.Errorf("unregistered extension exports = %v", v)
	}
}

func TestPipeline_NoExecutor(t *testing.T) {
	t.Parallel()

	e := newTestEngine(t, map[string]string{"a.sh": ""}, nil)
	_, err := e.Require(context.Background(), nil, "./a.sh")
	if !errors.Is(err, ErrNoExecutor) {
		t.Errorf("Require() error = %v, want ErrNoExecutor", err)
	}
}

func TestPipeline_Native(t *testing.T) {
	t.Parallel()

	t.Run("without loader", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, map[string]string{"lib.so": "\x7fELF"}, nil)
		_, err := e.Require(context.Background(), nil, "./lib")
		if !errors.Is(err, ErrNativeUnsupported) {
			t.Errorf("Require() error = %v, want ErrNativeUnsupported", err)
		}
	})

	t.Run("delegated", func(t *testing.T) {
		t.Parallel()

		e := newTestEngine(t, map[string]string{"lib.so": "\x7fELF"}, nil, func(o *Options) {
			o.NativeLoader = nativeFunc(func(_ context.Context, m *Module) (any, error) {
				return "native:" + filepath.Base(m.Filename), nil
			})
		})
		v, err := e.Require(context.Background(), nil, "./lib")
		if err != nil {
			t.Fatalf("Require() error = %v", err)
		}
		if v != "native:lib.so" {
			t.Errorf("exports = %v, want native:lib.so", v)
		}
	})
}

type nativeFunc func(ctx context.Context, m *Module) (any, error)

func (f nativeFunc) LoadNative(ctx context.Context, m *Module) (any, error) { return f(ctx, m) }

func TestBindings(t *testing.T) {
	t.Parallel()

	var got *Bindings
	bs := bodies{"mod.sh": func(_ context.Context, b *Bindings) error {
		got = b
		b.Module.Exports = "replaced"
		return nil
	}}
	e := newTestEngine(t, map[string]string{"sub/mod.sh": ""}, bs)

	v, err := e.Require(context.Background(), nil, "./sub/mod")
	if err != nil {
		t.Fatalf("Require() error = %v", err)
	}
	if got.Filename != "/work/sub/mod.sh" || got.Dirname != "/work/sub" {
		t.Errorf("Filename, Dirname = %q, %q", got.Filename, got.Dirname)
	}
	if got.Module == nil || got.Module.Filename != got.Filename {
		t.Error("Module binding does not describe the running module")
	}
	if got.Exports == nil || got.Require == nil {
		t.Error("exports or require binding missing")
	}
	if v != "replaced" {
		t.Errorf("exports = %v, want the value assigned to Module.Exports", v)
	}
}

func TestStripShebang(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "", want: ""},
		{in: "#", want: "#"},
		{in: "#!", want: ""},
		{in: "#!/usr/bin/env modload", want: ""},
		{in: "#!/usr/bin/env modload\necho hi", want: "\necho hi"},
		{in: "#!/bin/sh\r\necho hi", want: "\r\necho hi"},
		{in: "echo #!/bin/sh", want: "echo #!/bin/sh"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			if got := string(StripShebang([]byte(tt.in))); got != tt.want {
				t.Errorf("StripShebang(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
