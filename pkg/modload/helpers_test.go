// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"

	"github.com/modload/modload/internal/testutil"
	"github.com/modload/modload/pkg/platform"
)

const workDir = "/work"

type (
	// bodies runs Go closures in place of module source, keyed by file base name.
	bodies map[string]func(ctx context.Context, b *Bindings) error

	// recorder collects listener events in order.
	recorder struct {
		events []string
	}
)

func (bs bodies) Execute(ctx context.Context, _ ExecutionScope, _ []byte, b *Bindings) error {
	fn, ok := bs[filepath.Base(b.Filename)]
	if !ok {
		return fmt.Errorf("no body for %s", b.Filename)
	}
	return fn(ctx, b)
}

func (r *recorder) BeforeRequire(request string) {
	r.events = append(r.events, "before "+request)
}

func (r *recorder) Require(request, filename string) {
	r.events = append(r.events, "require "+request+" "+filename)
}

func (r *recorder) AfterRequire(request string, _ any) {
	r.events = append(r.events, "after "+request)
}

// newTestEngine writes files below /work on an in-memory filesystem and
// returns an engine whose ".sh" executor runs bs.
func newTestEngine(t *testing.T, files map[string]string, bs bodies, configure ...func(*Options)) *Engine {
	t.Helper()
	if runtime.GOOS == platform.Windows {
		t.Skip("in-memory trees use POSIX paths")
	}

	fs := afero.NewMemMapFs()
	testutil.WriteFsTree(t, fs, workDir, files)

	o := NewOptions()
	o.FS = fs
	o.WorkDir = workDir
	if bs != nil {
		o.Executors[".sh"] = bs
	}
	for _, fn := range configure {
		fn(o)
	}
	return NewEngine(o)
}

func set(key string, value any) func(ctx context.Context, b *Bindings) error {
	return func(_ context.Context, b *Bindings) error {
		b.Exports[key] = value
		return nil
	}
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	got, ok := KindOf(err)
	if !ok || got != kind {
		t.Fatalf("KindOf(%v) = %q, %v; want %q", err, got, ok, kind)
	}
}
