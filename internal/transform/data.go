// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/modload/modload/pkg/cueutil"
	"github.com/modload/modload/pkg/modload"
)

// YAML parses YAML content into the module's exports.
func YAML() modload.Transformer {
	return modload.Transformer{Name: "yaml", Fn: func(content []byte, filename string) (modload.Result, error) {
		var v any
		if err := yaml.Unmarshal(content, &v); err != nil {
			return modload.Result{}, &modload.DataParseError{Path: filename, Cause: err}
		}
		return modload.Terminal(v), nil
	}}
}

// TOML parses TOML content into the module's exports.
func TOML() modload.Transformer {
	return modload.Transformer{Name: "toml", Fn: func(content []byte, filename string) (modload.Result, error) {
		v := map[string]any{}
		if err := toml.Unmarshal(content, &v); err != nil {
			return modload.Result{}, &modload.DataParseError{Path: filename, Cause: err}
		}
		return modload.Terminal(v), nil
	}}
}

// CUE evaluates CUE content and exports the concrete result.
func CUE() modload.Transformer {
	return modload.Transformer{Name: "cue", Fn: func(content []byte, filename string) (modload.Result, error) {
		v, err := cueutil.DecodeValue(content, cueutil.WithFilename(filepath.Base(filename)))
		if err != nil {
			return modload.Result{}, &modload.DataParseError{Path: filename, Cause: err}
		}
		return modload.Terminal(v), nil
	}}
}
