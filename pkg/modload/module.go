// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"path/filepath"
)

const (
	// RoleDependency is a module loaded through a nested request.
	RoleDependency Role = iota
	// RoleEntry is the module loaded through Engine.Main.
	RoleEntry
)

type (
	// Role tells the entry module apart from its dependencies.
	Role int

	// Module is the registry record of one loaded file.
	Module struct {
		// ID is the logical identifier: "." for the entry, the parent-relative
		// id for relative requests and the canonical path otherwise.
		ID string
		// Filename is the canonical path and the registry key.
		Filename string
		Role     Role
		// Exports starts as an empty map[string]any. Bodies may fill it in
		// place or replace it.
		Exports any
		// Loaded becomes true once the pipeline finished and never reverts.
		Loaded bool
		// Children lists the modules first loaded on behalf of this one.
		Children []*Module
		// Paths is the modules-directory ancestry of the module's directory.
		Paths []string

		parent string
		engine *Engine
	}
)

// String returns the role name.
func (r Role) String() string {
	if r == RoleEntry {
		return "entry"
	}
	return "dependency"
}

func newModule(e *Engine, id string, parent *Module) *Module {
	m := &Module{
		ID:      id,
		Exports: map[string]any{},
		engine:  e,
	}
	if parent != nil {
		m.parent = parent.Filename
		parent.Children = append(parent.Children, m)
	}
	return m
}

// Parent returns the module that first loaded m, or nil when m was loaded by
// the host or its parent is no longer registered.
func (m *Module) Parent() *Module {
	if m.parent == "" || m.engine == nil {
		return nil
	}
	return m.engine.registry.get(m.parent)
}

// Dirname returns the directory of the module's file.
func (m *Module) Dirname() string {
	return filepath.Dir(m.Filename)
}

// Require loads request on behalf of m.
func (m *Module) Require(ctx context.Context, request string) (any, error) {
	return m.engine.require(ctx, m, request)
}

// Resolve returns the canonical path request would load from m, without
// loading it.
func (m *Module) Resolve(request string) (string, error) {
	return m.engine.Resolve(request, m, false)
}
