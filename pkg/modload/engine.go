// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"fmt"
	"path/filepath"
)

// Engine resolves and loads modules. See the package documentation.
type Engine struct {
	opts     *Options
	scope    ExecutionScope
	stat     statCache
	registry *registry

	pathCache map[string]string
	manifests map[string]string
	overrides map[string]any

	main  *Module
	depth int
}

// NewEngine returns an engine configured by a copy of opts. A nil opts is
// the same as NewOptions().
func NewEngine(opts *Options) *Engine {
	if opts == nil {
		opts = NewOptions()
	}
	o := opts.clone().withDefaults()
	if abs, err := filepath.Abs(o.WorkDir); err == nil {
		o.WorkDir = abs
	}

	return &Engine{
		opts:      o,
		scope:     ScopeFor(o.UseSandbox, o.Sandbox),
		stat:      statCache{fs: o.FS},
		registry:  newRegistry(),
		pathCache: make(map[string]string),
		manifests: make(map[string]string),
		overrides: make(map[string]any),
	}
}

// Main loads request as the entry module. The entry is resolved relative to
// Options.WorkDir, always has the id "." and is not subject to policy.
func (e *Engine) Main(ctx context.Context, request string) (*Module, error) {
	if request == "" {
		return nil, ErrEmptyRequest
	}
	if e.isBuiltin(request) {
		return nil, fmt.Errorf("built-in %q cannot be loaded as the entry module", request)
	}

	e.enter()
	defer e.leave()

	m, _, err := e.load(ctx, request, nil, true)
	if err != nil {
		return nil, err
	}
	e.main = m
	return m, nil
}

// Require loads request on behalf of parent. A nil parent stands for the
// host: relative requests resolve against Options.WorkDir. Policy applies.
func (e *Engine) Require(ctx context.Context, parent *Module, request string) (any, error) {
	return e.require(ctx, parent, request)
}

// Entry returns the module loaded by the last Main call, or nil.
func (e *Engine) Entry() *Module { return e.main }

// Module returns the registered record for filename, or nil.
func (e *Engine) Module(filename string) *Module { return e.registry.get(filename) }

// Cache returns the registered modules sorted by filename.
func (e *Engine) Cache() []*Module { return e.registry.snapshot() }

// Evict drops filename from the registry so the next request loads it again.
// It reports whether a record was removed.
func (e *Engine) Evict(filename string) bool {
	if e.registry.get(filename) == nil {
		return false
	}
	e.registry.evict(filename)
	return true
}

// Extensions returns the registered extensions in probe order.
func (e *Engine) Extensions() []string { return e.opts.Extensions() }

// Scope returns the execution scope chosen at construction.
func (e *Engine) Scope() ExecutionScope { return e.scope }

// WorkDir returns the absolute directory host requests resolve against.
func (e *Engine) WorkDir() string { return e.opts.WorkDir }

// enter starts the stat cache when the outermost operation begins.
func (e *Engine) enter() {
	if e.depth == 0 {
		e.stat.begin()
	}
	e.depth++
}

// leave drops the stat cache when the outermost operation unwinds.
func (e *Engine) leave() {
	e.depth--
	if e.depth == 0 {
		e.stat.reset()
	}
}
