// SPDX-License-Identifier: MPL-2.0

package modload

import (
	_ "embed"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/modload/modload/pkg/cueutil"
)

//go:embed manifest_schema.cue
var manifestSchema []byte

// Manifest is the package manifest of a directory module.
type Manifest struct {
	Main    string `json:"main"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParseManifest decodes a manifest. The document may be JSON or CUE.
func ParseManifest(data []byte, path string) (*Manifest, error) {
	res, err := cueutil.ParseAndDecode[Manifest](manifestSchema, stripBOM(data), "#Manifest",
		cueutil.WithFilename(filepath.Base(path)))
	if err != nil {
		return nil, &ManifestParseError{Path: path, Cause: err}
	}
	return res.Value, nil
}

// manifestMain returns the declared entry of the package in dir, or "" when
// there is no manifest or it declares none. Parsed manifests are memoized for
// the engine's lifetime.
func (e *Engine) manifestMain(dir string) (string, error) {
	if main, ok := e.manifests[dir]; ok {
		return main, nil
	}

	path := filepath.Join(dir, e.opts.ManifestName)
	data, err := afero.ReadFile(e.opts.FS, path)
	if err != nil {
		return "", nil
	}

	m, err := ParseManifest(data, path)
	if err != nil {
		return "", err
	}
	e.manifests[dir] = m.Main
	return m.Main, nil
}
