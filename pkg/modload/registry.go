// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"maps"
	"slices"
)

type (
	// registry maps canonical paths to module records. Built-in exports live
	// in their own namespace and are never reloaded.
	registry struct {
		modules  map[string]*Module
		builtins map[string]any
	}
)

func newRegistry() *registry {
	return &registry{
		modules:  make(map[string]*Module),
		builtins: make(map[string]any),
	}
}

func (r *registry) get(filename string) *Module { return r.modules[filename] }

func (r *registry) put(m *Module) { r.modules[m.Filename] = m }

func (r *registry) evict(filename string) { delete(r.modules, filename) }

// snapshot returns the registered modules sorted by filename.
func (r *registry) snapshot() []*Module {
	out := make([]*Module, 0, len(r.modules))
	for _, k := range slices.Sorted(maps.Keys(r.modules)) {
		out = append(out, r.modules[k])
	}
	return out
}

// load returns the exports of request as seen from parent. A registry hit
// returns the current exports, which are partial while the module is still
// executing. A miss inserts the new record before running the pipeline and
// evicts it again if the pipeline fails.
func (e *Engine) load(ctx context.Context, request string, parent *Module, isEntry bool) (*Module, any, error) {
	id, filename, err := e.resolve(request, parent, isEntry)
	if err != nil {
		return nil, nil, err
	}

	e.opts.Listener.Require(request, filename)

	if e.isBuiltin(filename) {
		exports, err := e.loadBuiltin(filename)
		return nil, exports, err
	}

	prev := e.registry.get(filename)
	if prev != nil && (!e.opts.Reload || !prev.Loaded) {
		return prev, prev.Exports, nil
	}

	m := newModule(e, id, parent)
	m.Filename = filename
	m.Role = RoleDependency
	if isEntry {
		m.ID = "."
		m.Role = RoleEntry
	}

	e.registry.put(m)
	if err := e.tryLoad(ctx, m); err != nil {
		if prev != nil {
			e.registry.put(prev)
		} else {
			e.registry.evict(filename)
		}
		return nil, nil, err
	}
	return m, m.Exports, nil
}

// tryLoad runs the pipeline and turns a panicking body into an error so the
// caller can evict the record.
func (e *Engine) tryLoad(ctx context.Context, m *Module) (err error) {
	threw := true
	defer func() {
		if threw {
			if r := recover(); r != nil {
				err = &PanicError{Filename: m.Filename, Value: r}
			}
		}
	}()

	err = e.run(ctx, m)
	threw = false
	return err
}

func (e *Engine) loadBuiltin(name string) (any, error) {
	exports, ok := e.registry.builtins[name]
	if !ok {
		var err error
		exports, err = e.opts.Builtins[name]()
		if err != nil {
			return nil, err
		}
		e.registry.builtins[name] = exports
	}
	if slices.Contains(e.opts.CopyBuiltins, name) {
		return deepCopy(exports), nil
	}
	return exports, nil
}

func (e *Engine) isBuiltin(name string) bool {
	_, ok := e.opts.Builtins[name]
	return ok
}
