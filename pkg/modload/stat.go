// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	// StatMissing means nothing exists at the path, or it cannot be inspected.
	StatMissing StatKind = iota
	// StatFile is a regular file (or anything that is not a directory).
	StatFile
	// StatDirectory is a directory.
	StatDirectory
)

type (
	// StatKind classifies a filesystem path for the resolver.
	StatKind int

	// Realpather is implemented by filesystems that can resolve symbolic links.
	Realpather interface {
		Realpath(name string) (string, error)
	}

	// statCache memoizes path classifications for one top-level load. It is
	// active only between begin and reset; outside that window every query
	// goes to the filesystem.
	statCache struct {
		fs      afero.Fs
		entries map[string]StatKind
	}
)

// String returns the kind name.
func (k StatKind) String() string {
	switch k {
	case StatFile:
		return "file"
	case StatDirectory:
		return "directory"
	default:
		return "missing"
	}
}

func (c *statCache) begin() { c.entries = make(map[string]StatKind) }

func (c *statCache) reset() { c.entries = nil }

func (c *statCache) active() bool { return c.entries != nil }

func (c *statCache) stat(path string) StatKind {
	if c.entries != nil {
		if kind, ok := c.entries[path]; ok {
			return kind
		}
	}
	kind := statPath(c.fs, path)
	if c.entries != nil {
		c.entries[path] = kind
	}
	return kind
}

func statPath(fs afero.Fs, path string) StatKind {
	info, err := fs.Stat(path)
	if err != nil {
		return StatMissing
	}
	if info.IsDir() {
		return StatDirectory
	}
	return StatFile
}

// maxLinks bounds the symbolic links followed while resolving one path.
const maxLinks = 255

// realpath resolves every symbolic link in path. Filesystems that can report
// links through afero's Lstater and LinkReader are walked one component at a
// time; absolute link targets are read in the filesystem's own namespace.
// Filesystems without link support return the cleaned path.
func realpath(fs afero.Fs, path string) (string, error) {
	if f, ok := fs.(Realpather); ok {
		return f.Realpath(path)
	}
	if _, ok := fs.(*afero.OsFs); ok {
		resolved, err := filepath.EvalSymlinks(path)
		if err != nil {
			return "", err
		}
		return filepath.Abs(resolved)
	}

	lst, canLstat := fs.(afero.Lstater)
	lr, canReadlink := fs.(afero.LinkReader)
	if !canLstat || !canReadlink || !filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	return walkLinks(lst, lr, path)
}

func walkLinks(lst afero.Lstater, lr afero.LinkReader, path string) (string, error) {
	vol := filepath.VolumeName(path)
	resolved := vol + string(filepath.Separator)
	pending := splitPath(path[len(vol):])

	for links := 0; len(pending) > 0; {
		part := pending[0]
		pending = pending[1:]
		if part == "." {
			continue
		}
		if part == ".." {
			resolved = filepath.Dir(resolved)
			continue
		}

		next := filepath.Join(resolved, part)
		info, lstated, err := lst.LstatIfPossible(next)
		if err != nil {
			return "", err
		}
		if !lstated || info.Mode()&os.ModeSymlink == 0 {
			resolved = next
			continue
		}

		if links++; links > maxLinks {
			return "", &os.PathError{Op: "realpath", Path: path, Err: errors.New("too many links")}
		}
		target, err := lr.ReadlinkIfPossible(next)
		if err != nil {
			return "", err
		}
		if filepath.IsAbs(target) {
			vol = filepath.VolumeName(target)
			resolved = vol + string(filepath.Separator)
			target = target[len(vol):]
		}
		pending = append(splitPath(target), pending...)
	}
	return resolved, nil
}

// splitPath returns the non-empty components of p.
func splitPath(p string) []string {
	return strings.FieldsFunc(p, func(r rune) bool {
		return r == filepath.Separator || r == '/'
	})
}
