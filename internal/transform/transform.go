// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/modload/modload/pkg/modload"
)

// ErrUnknownTransformer is returned by Lookup for names not in the catalog.
var ErrUnknownTransformer = errors.New("unknown transformer")

// catalog holds the constructors of every named transformer.
var catalog = map[string]func() modload.Transformer{
	"crlf":     CRLF,
	"trim":     Trim,
	"envsubst": func() modload.Transformer { return Envsubst(os.LookupEnv) },
	"json":     modload.JSONTransformer,
	"yaml":     YAML,
	"toml":     TOML,
	"cue":      CUE,
}

// Names returns the catalog's transformer names, sorted.
func Names() []string {
	return slices.Sorted(maps.Keys(catalog))
}

// Lookup returns a new transformer by name.
func Lookup(name string) (modload.Transformer, error) {
	ctor, ok := catalog[name]
	if !ok {
		return modload.Transformer{}, fmt.Errorf("%w: %q", ErrUnknownTransformer, name)
	}
	return ctor(), nil
}

// Chain resolves names into an ordered transformer chain.
func Chain(names ...string) ([]modload.Transformer, error) {
	chain := make([]modload.Transformer, 0, len(names))
	for _, name := range names {
		t, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		chain = append(chain, t)
	}
	return chain, nil
}

// DataExtensions returns the structured-data extensions registered by
// default next to the loader's own ".json".
func DataExtensions() map[string][]modload.Transformer {
	return map[string][]modload.Transformer{
		".cue":  {CUE()},
		".toml": {TOML()},
		".yaml": {YAML()},
		".yml":  {YAML()},
	}
}

// Register resolves a configured extension table (extension → transformer
// names) and adds it to opts.
func Register(opts *modload.Options, table map[string][]string) error {
	list := make(map[string][]modload.Transformer, len(table))
	for ext, names := range table {
		chain, err := Chain(names...)
		if err != nil {
			return fmt.Errorf("extension %s: %w", ext, err)
		}
		list[ext] = chain
	}
	return opts.AddExtensionList(list)
}
