// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"fmt"
)

type (
	// RequireFunc loads a module on behalf of the module being executed.
	RequireFunc func(ctx context.Context, request string) (any, error)

	// Bindings are the names a module body sees while it runs.
	Bindings struct {
		// Exports is the module's initial exports map. Bodies that need a
		// non-map value assign Module.Exports instead.
		Exports  map[string]any
		Require  RequireFunc
		Module   *Module
		Filename string
		Dirname  string
	}

	// Executor runs the content of a text module. Errors are returned to the
	// requester unchanged.
	Executor interface {
		Execute(ctx context.Context, scope ExecutionScope, content []byte, b *Bindings) error
	}

	// ExecutorFunc adapts a function to Executor.
	ExecutorFunc func(ctx context.Context, scope ExecutionScope, content []byte, b *Bindings) error

	// NativeLoader loads opaque binary modules and returns their exports.
	NativeLoader interface {
		LoadNative(ctx context.Context, m *Module) (any, error)
	}
)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, scope ExecutionScope, content []byte, b *Bindings) error {
	return f(ctx, scope, content, b)
}

// compile strips the interpreter line and hands the body to the executor of
// ext, falling back to the default extension's executor.
func (e *Engine) compile(ctx context.Context, m *Module, ext string, content []byte) error {
	exec := e.opts.Executors[ext]
	if exec == nil {
		exec = e.opts.Executors[e.opts.DefaultExtension]
	}
	if exec == nil {
		return fmt.Errorf("%s: %w for %s", m.Filename, ErrNoExecutor, ext)
	}

	exports, _ := m.Exports.(map[string]any)
	b := &Bindings{
		Exports:  exports,
		Require:  m.Require,
		Module:   m,
		Filename: m.Filename,
		Dirname:  m.Dirname(),
	}
	return exec.Execute(ctx, e.scope, StripShebang(content), b)
}

// StripShebang removes a leading "#!" line. The line terminator is kept so
// line numbers in the body stay unchanged.
func StripShebang(content []byte) []byte {
	if len(content) < 2 || content[0] != '#' || content[1] != '!' {
		return content
	}
	for i := 2; i < len(content); i++ {
		if content[i] == '\n' || content[i] == '\r' {
			return content[i:]
		}
	}
	return content[:0]
}
