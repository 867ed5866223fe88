// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"path"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/modload/modload/pkg/platform"
)

// modulePaths returns the modules directories of from and each of its
// ancestors, nearest first. A segment that is itself a modules directory does
// not get a nested one.
func (e *Engine) modulePaths(from string) []string {
	if !filepath.IsAbs(from) {
		from = filepath.Join(e.opts.WorkDir, from)
	}
	return modulePathsFor(runtime.GOOS, from, e.opts.ModulesDir)
}

func modulePathsFor(goos, from, dirName string) []string {
	if goos == platform.Windows {
		return windowsModulePaths(from, dirName)
	}
	from = path.Clean(from)
	if from == "/" {
		return []string{"/" + dirName}
	}
	segs := strings.Split(strings.TrimPrefix(from, "/"), "/")
	paths := make([]string, 0, len(segs))
	for i := len(segs); i >= 1; i-- {
		if segs[i-1] == dirName {
			continue
		}
		paths = append(paths, "/"+strings.Join(segs[:i], "/")+"/"+dirName)
	}
	return paths
}

func windowsModulePaths(from, dirName string) []string {
	from = strings.ReplaceAll(from, "/", `\`)
	if len(from) > 3 {
		from = strings.TrimRight(from, `\`)
	}
	// Drive root: "C:\".
	if len(from) <= 3 && strings.HasSuffix(strings.TrimSuffix(from, `\`), ":") {
		return []string{strings.TrimSuffix(from, `\`) + `\` + dirName}
	}
	parts := strings.Split(from, `\`)
	paths := make([]string, 0, len(parts))
	for i := len(parts); i >= 2; i-- {
		if parts[i-1] == dirName || parts[i-1] == "" {
			continue
		}
		paths = append(paths, strings.Join(parts[:i], `\`)+`\`+dirName)
	}
	return paths
}

// isRelativeRequest reports whether request is ".", "..", "./x" or "../x".
func isRelativeRequest(request string) bool {
	if request == "." {
		return true
	}
	if len(request) < 2 || request[0] != '.' {
		return false
	}
	switch request[1] {
	case '.', '/':
		return true
	case '\\':
		return runtime.GOOS == platform.Windows
	default:
		return false
	}
}

// isIndexID reports whether base names an index module: "index." followed by
// word characters only.
func isIndexID(base string) bool {
	rest, ok := strings.CutPrefix(base, "index.")
	if !ok {
		return false
	}
	for _, r := range rest {
		isWord := r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		if !isWord {
			return false
		}
	}
	return true
}

// lookupPaths returns the logical id of request and the roots it is searched in.
func (e *Engine) lookupPaths(request string, parent *Module) (string, []string) {
	if e.isBuiltin(request) {
		return request, nil
	}

	if !isRelativeRequest(request) {
		var paths []string
		if parent != nil {
			paths = append(paths, parent.Paths...)
		}
		paths = append(paths, e.opts.Paths...)
		return request, paths
	}

	if parent == nil || parent.ID == "" || parent.Filename == "" {
		paths := []string{e.opts.WorkDir}
		paths = append(paths, e.modulePaths(e.opts.WorkDir)...)
		paths = append(paths, e.opts.Paths...)
		return request, paths
	}

	idDir := path.Dir(parent.ID)
	if isIndexID(path.Base(filepath.ToSlash(parent.Filename))) {
		idDir = parent.ID
	}
	id := path.Join(idDir, filepath.ToSlash(request))
	if idDir == "." && !strings.Contains(id, "/") {
		id = "./" + id
	}
	return id, []string{parent.Dirname()}
}
