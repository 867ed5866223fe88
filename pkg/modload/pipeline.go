// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// run loads m through the pipeline of its extension. Unregistered
// extensions use the default extension's pipeline.
func (e *Engine) run(ctx context.Context, m *Module) error {
	if m.Loaded {
		return fmt.Errorf("module %s is already loaded", m.Filename)
	}
	m.Paths = e.modulePaths(m.Dirname())

	x := e.extensionOf(m.Filename)
	e.opts.Logger.Debug("loading module", "id", m.ID, "filename", m.Filename, "extension", x.name)

	if x.native {
		if e.opts.NativeLoader == nil {
			return fmt.Errorf("%s: %w", m.Filename, ErrNativeUnsupported)
		}
		exports, err := e.opts.NativeLoader.LoadNative(ctx, m)
		if err != nil {
			return err
		}
		m.Exports = exports
		m.Loaded = true
		return nil
	}

	content, err := afero.ReadFile(e.opts.FS, m.Filename)
	if err != nil {
		return err
	}
	content = stripBOM(content)

	for _, t := range x.transformers {
		res, err := t.Fn(content, m.Filename)
		if err != nil {
			return err
		}
		if res.IsTerminal() {
			m.Exports = res.Value()
			m.Loaded = true
			return nil
		}
		content = res.apply(content)
	}

	if err := e.compile(ctx, m, x.name, content); err != nil {
		return err
	}
	m.Loaded = true
	return nil
}

func (e *Engine) extensionOf(filename string) *extension {
	if x := e.opts.lookupExtension(filepath.Ext(filename)); x != nil {
		return x
	}
	return e.opts.lookupExtension(e.opts.DefaultExtension)
}

// JSONTransformer parses JSON content into the module's exports.
func JSONTransformer() Transformer {
	return Transformer{Name: "json", Fn: func(content []byte, filename string) (Result, error) {
		var v any
		if err := json.Unmarshal(stripBOM(content), &v); err != nil {
			return Result{}, &DataParseError{Path: filename, Cause: err}
		}
		return Terminal(v), nil
	}}
}

func stripBOM(content []byte) []byte {
	return bytes.TrimPrefix(content, utf8BOM)
}
