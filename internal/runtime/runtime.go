// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/modload/modload/pkg/modload"
)

const (
	// ExecutorShell names the mvdan/sh executor.
	ExecutorShell = "shell"
	// ExecutorGo names the yaegi executor.
	ExecutorGo = "go"
)

type (
	// NamedExecutor is an executor that can be registered by name.
	NamedExecutor interface {
		modload.Executor
		Name() string
	}

	// Registry holds the executors available to the loader.
	Registry struct {
		executors map[string]NamedExecutor
	}
)

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{executors: make(map[string]NamedExecutor)}
}

// DefaultRegistry returns a registry with the shell and Go executors. Both
// share env for their ambient bodies.
func DefaultRegistry(env *Environment, stdout, stderr io.Writer) *Registry {
	r := NewRegistry()
	r.Register(NewShellExecutor(env, stdout, stderr))
	r.Register(NewGoExecutor(env, stdout, stderr))
	return r
}

// Register adds an executor under its name, replacing any previous one.
func (r *Registry) Register(ex NamedExecutor) {
	r.executors[ex.Name()] = ex
}

// Get returns an executor by name.
func (r *Registry) Get(name string) (NamedExecutor, error) {
	ex, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownExecutor, name)
	}
	return ex, nil
}

// Available returns the registered executor names, sorted.
func (r *Registry) Available() []string {
	return slices.Sorted(maps.Keys(r.executors))
}

// Bind installs executors into opts for each extension → executor name pair.
func (r *Registry) Bind(opts *modload.Options, bindings map[string]string) error {
	if opts.Executors == nil {
		opts.Executors = map[string]modload.Executor{}
	}
	for _, ext := range slices.Sorted(maps.Keys(bindings)) {
		ex, err := r.Get(bindings[ext])
		if err != nil {
			return fmt.Errorf("extension %s: %w", ext, err)
		}
		if err := opts.AddExtension(ext); err != nil {
			return err
		}
		opts.Executors[ext] = ex
	}
	return nil
}
