// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"encoding/json"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/modload/modload/pkg/platform"
)

// Resolve returns the canonical path request loads from parent. Built-in
// names are returned unchanged. A nil parent resolves relative requests
// against Options.WorkDir. isEntry exempts the result from PreserveSymlinks.
func (e *Engine) Resolve(request string, parent *Module, isEntry bool) (string, error) {
	e.enter()
	defer e.leave()

	_, filename, err := e.resolve(request, parent, isEntry)
	return filename, err
}

// resolve returns the logical id and the canonical path of request.
func (e *Engine) resolve(request string, parent *Module, isEntry bool) (id, filename string, err error) {
	if e.isBuiltin(request) {
		return request, request, nil
	}

	id, paths := e.lookupPaths(request, parent)
	filename, err = e.findPath(request, paths, isEntry)
	if err != nil {
		return "", "", err
	}
	if filename == "" {
		nf := &ModuleNotFoundError{Request: request}
		if parent != nil {
			nf.Parent = parent.Filename
		}
		return "", "", nf
	}
	if !isRelativeRequest(request) {
		id = filename
	}
	return id, filename, nil
}

// findPath searches paths in order and returns the first match, or "" when
// no root matches. Successful lookups are memoized for the engine's lifetime.
func (e *Engine) findPath(request string, paths []string, isEntry bool) (string, error) {
	if filepath.IsAbs(request) {
		paths = []string{""}
	} else if len(paths) == 0 {
		return "", nil
	}

	key := pathCacheKey(request, paths)
	if filename, ok := e.pathCache[key]; ok {
		return filename, nil
	}

	trailingSlash := hasTrailingSeparator(request)
	for _, root := range paths {
		if root != "" && e.stat.stat(root) != StatDirectory {
			continue
		}
		base := request
		if root != "" {
			base = filepath.Join(root, request)
		}

		filename, err := e.tryRoot(base, trailingSlash, isEntry)
		if err != nil {
			return "", err
		}
		if filename != "" {
			e.pathCache[key] = filename
			return filename, nil
		}
	}
	return "", nil
}

// tryRoot runs the four probe phases against base: the file itself (or the
// package it names), base plus each extension, base as a package, and
// base/index plus each extension.
func (e *Engine) tryRoot(base string, trailingSlash, isEntry bool) (string, error) {
	if !trailingSlash {
		switch e.stat.stat(base) {
		case StatFile:
			return e.toPath(base, isEntry), nil
		case StatDirectory:
			filename, err := e.tryPackage(base, isEntry)
			if err != nil || filename != "" {
				return filename, err
			}
		}
		if filename := e.tryExtensions(base, isEntry); filename != "" {
			return filename, nil
		}
	}

	filename, err := e.tryPackage(base, isEntry)
	if err != nil || filename != "" {
		return filename, err
	}
	return e.tryExtensions(filepath.Join(base, "index"), isEntry), nil
}

// tryPackage resolves the entry declared by the manifest in dir. The entry
// may name a file, a file without its extension, or a directory holding an
// index file; it never leads to another manifest.
func (e *Engine) tryPackage(dir string, isEntry bool) (string, error) {
	main, err := e.manifestMain(dir)
	if err != nil || main == "" {
		return "", err
	}

	entry := filepath.Join(dir, main)
	if filename := e.tryFile(entry, isEntry); filename != "" {
		return filename, nil
	}
	if filename := e.tryExtensions(entry, isEntry); filename != "" {
		return filename, nil
	}
	return e.tryExtensions(filepath.Join(entry, "index"), isEntry), nil
}

// tryFile returns the path of p when it exists and is not a directory.
func (e *Engine) tryFile(p string, isEntry bool) string {
	if e.stat.stat(p) != StatFile {
		return ""
	}
	return e.toPath(p, isEntry)
}

func (e *Engine) tryExtensions(p string, isEntry bool) string {
	for _, x := range e.opts.extensions {
		if filename := e.tryFile(p+x.name, isEntry); filename != "" {
			return filename
		}
	}
	return ""
}

// toPath applies the symlink policy to a matched file.
func (e *Engine) toPath(p string, isEntry bool) string {
	abs, err := filepath.Abs(p)
	if err != nil {
		abs = filepath.Clean(p)
	}
	if e.opts.PreserveSymlinks && !isEntry {
		return abs
	}
	resolved, err := realpath(e.opts.FS, abs)
	if err != nil {
		e.opts.Logger.Debug("realpath failed, keeping path", "path", abs, "err", err)
		return abs
	}
	return resolved
}

func hasTrailingSeparator(request string) bool {
	if strings.HasSuffix(request, "/") {
		return true
	}
	return runtime.GOOS == platform.Windows && strings.HasSuffix(request, `\`)
}

func pathCacheKey(request string, paths []string) string {
	key, _ := json.Marshal(struct {
		Request string   `json:"request"`
		Paths   []string `json:"paths"`
	}{request, paths})
	return string(key)
}
