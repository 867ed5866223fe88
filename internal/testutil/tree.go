// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/spf13/afero"
)

// WriteTree creates files under root. Keys are slash-separated relative
// paths; a key ending in "/" creates an empty directory.
func WriteTree(t testing.TB, root string, files map[string]string) {
	t.Helper()
	WriteFsTree(t, afero.NewOsFs(), root, files)
}

// WriteFsTree is WriteTree for an arbitrary afero filesystem.
func WriteFsTree(t testing.TB, fs afero.Fs, root string, files map[string]string) {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		p := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			if err := fs.MkdirAll(p, 0o755); err != nil {
				t.Fatalf("failed to create directory %s: %v", p, err)
			}
			continue
		}
		if err := fs.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create directory %s: %v", filepath.Dir(p), err)
		}
		if err := afero.WriteFile(fs, p, []byte(files[name]), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", p, err)
		}
	}
}

// MustSymlink creates newname pointing at oldname, skipping the test when the
// platform does not allow it.
func MustSymlink(t testing.TB, oldname, newname string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(newname), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", newname, err)
	}
	if err := os.Symlink(oldname, newname); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

// RealDir returns dir with symlinks resolved, so expectations match the
// canonical paths a loader reports (t.TempDir lives under a symlink on macOS).
func RealDir(t testing.TB, dir string) string {
	t.Helper()
	resolved, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("failed to resolve %s: %v", dir, err)
	}
	return resolved
}
