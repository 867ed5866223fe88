// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"

	"github.com/modload/modload/internal/testutil"
	"github.com/modload/modload/pkg/platform"
)

// linkTree writes real/dep.json and links to it: abs (absolute), rel and
// chain (relative), and real/up, which climbs out and back in.
func linkTree(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == platform.Windows {
		t.Skip("symlink layout uses POSIX paths")
	}

	root := testutil.RealDir(t, t.TempDir())
	testutil.WriteTree(t, root, map[string]string{"real/dep.json": `{"n": 1}`})
	testutil.MustSymlink(t, filepath.Join(root, "real"), filepath.Join(root, "abs"))
	testutil.MustSymlink(t, "real", filepath.Join(root, "rel"))
	testutil.MustSymlink(t, "rel", filepath.Join(root, "chain"))
	testutil.MustSymlink(t, filepath.Join("..", "real", "dep.json"), filepath.Join(root, "real", "up"))
	return root
}

func TestRealpath_WrappedFilesystems(t *testing.T) {
	t.Parallel()

	root := linkTree(t)
	want := filepath.Join(root, "real", "dep.json")

	filesystems := map[string]afero.Fs{
		"os":        afero.NewOsFs(),
		"read-only": afero.NewReadOnlyFs(afero.NewOsFs()),
		"base-path": afero.NewBasePathFs(afero.NewOsFs(), "/"),
	}
	paths := []string{
		filepath.Join(root, "real", "dep.json"),
		filepath.Join(root, "abs", "dep.json"),
		filepath.Join(root, "rel", "dep.json"),
		filepath.Join(root, "chain", "dep.json"),
		filepath.Join(root, "real", "up"),
	}

	for name, fs := range filesystems {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			for _, p := range paths {
				got, err := realpath(fs, p)
				if err != nil {
					t.Errorf("realpath(%s) error = %v", p, err)
					continue
				}
				if got != want {
					t.Errorf("realpath(%s) = %s, want %s", p, got, want)
				}
			}
		})
	}
}

func TestRealpath_BasePathFs(t *testing.T) {
	t.Parallel()

	root := linkTree(t)
	fs := afero.NewBasePathFs(afero.NewOsFs(), root)

	for _, p := range []string{"/rel/dep.json", "/chain/dep.json", "/real/up"} {
		got, err := realpath(fs, p)
		if err != nil {
			t.Errorf("realpath(%s) error = %v", p, err)
			continue
		}
		if want := filepath.FromSlash("/real/dep.json"); got != want {
			t.Errorf("realpath(%s) = %s, want %s", p, got, want)
		}
	}
}

func TestRealpath_LinkLoop(t *testing.T) {
	t.Parallel()

	root := linkTree(t)
	testutil.MustSymlink(t, "loop-b", filepath.Join(root, "loop-a"))
	testutil.MustSymlink(t, "loop-a", filepath.Join(root, "loop-b"))

	if _, err := realpath(afero.NewReadOnlyFs(afero.NewOsFs()), filepath.Join(root, "loop-a")); err == nil {
		t.Error("realpath() followed a link loop without error")
	}
}

func TestRealpath_WithoutLinkSupport(t *testing.T) {
	t.Parallel()

	got, err := realpath(afero.NewMemMapFs(), "/work/lib/../dep.sh")
	if err != nil {
		t.Fatalf("realpath() error = %v", err)
	}
	if want := filepath.Clean("/work/dep.sh"); got != want {
		t.Errorf("realpath() = %s, want %s", got, want)
	}
}

func TestResolve_WrappedFsSharesRecord(t *testing.T) {
	t.Parallel()

	root := linkTree(t)
	o := NewOptions()
	o.FS = afero.NewReadOnlyFs(afero.NewOsFs())
	o.WorkDir = root
	e := NewEngine(o)

	ctx := context.Background()
	for _, request := range []string{"./abs/dep.json", "./rel/dep.json", "./real/dep.json"} {
		if _, err := e.Require(ctx, nil, request); err != nil {
			t.Fatalf("Require(%s) error = %v", request, err)
		}
	}
	if n := len(e.Cache()); n != 1 {
		t.Errorf("len(Cache()) = %d, want 1", n)
	}
}
