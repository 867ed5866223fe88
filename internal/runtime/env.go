// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"maps"
	"slices"
	"strings"
	"sync"

	"mvdan.cc/sh/v3/expand"
)

const (
	filenameVar = "__filename"
	dirnameVar  = "__dirname"
)

type (
	// Environment is the variable store shared by every body that runs in the
	// ambient scope of one engine.
	Environment struct {
		mu   sync.Mutex
		vars map[string]string
	}

	// envStore is where a body's exported variables are written back to.
	// Both Environment and modload.Sandbox satisfy it.
	envStore interface {
		Get(name string) (string, bool)
		Environ() []string
		Set(name, value string)
		Unset(name string)
	}
)

// writeBackSkip lists variables the interpreter manages itself.
var writeBackSkip = map[string]bool{
	filenameVar: true,
	dirnameVar:  true,
	"PWD":       true,
	"OLDPWD":    true,
}

// NewEnvironment returns an environment seeded from NAME=VALUE pairs, such as
// os.Environ(). Malformed pairs are ignored.
func NewEnvironment(environ []string) *Environment {
	env := &Environment{vars: make(map[string]string, len(environ))}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			continue
		}
		env.vars[name] = value
	}
	return env
}

// Get returns the value of a variable.
func (e *Environment) Get(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	return v, ok
}

// Set assigns a variable.
func (e *Environment) Set(name, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.vars == nil {
		e.vars = map[string]string{}
	}
	e.vars[name] = value
}

// Unset removes a variable.
func (e *Environment) Unset(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.vars, name)
}

// Environ returns the variables as sorted NAME=VALUE pairs.
func (e *Environment) Environ() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return EnvToSlice(e.vars)
}

// EnvToSlice converts a map of environment variables to a sorted slice.
func EnvToSlice(env map[string]string) []string {
	result := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		result = append(result, k+"="+env[k])
	}
	return result
}

// liveEnviron is the expand.Environ a body's interpreter reads. Lookups go
// to the store, so variables exported by a nested load are visible to the
// body that required it. extra holds the binding variables.
type liveEnviron struct {
	store envStore
	extra map[string]string
}

func (l liveEnviron) Get(name string) expand.Variable {
	if v, ok := l.extra[name]; ok {
		return expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: v}
	}
	if v, ok := l.store.Get(name); ok {
		return expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: v}
	}
	return expand.Variable{}
}

func (l liveEnviron) Each(fn func(name string, vr expand.Variable) bool) {
	for _, kv := range l.store.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if _, shadowed := l.extra[name]; shadowed {
			continue
		}
		if !fn(name, expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: value}) {
			return
		}
	}
	for _, name := range slices.Sorted(maps.Keys(l.extra)) {
		if !fn(name, expand.Variable{Set: true, Exported: true, Kind: expand.String, Str: l.extra[name]}) {
			return
		}
	}
}

// writeBack applies the exported variables a body left behind to store.
// Only values that differ from the store are written.
func writeBack(store envStore, vars map[string]expand.Variable) {
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		if writeBackSkip[name] {
			continue
		}
		vr := vars[name]
		old, had := store.Get(name)
		switch {
		case !vr.IsSet():
			if had {
				store.Unset(name)
			}
		case vr.Exported && vr.Kind == expand.String:
			if !had || old != vr.Str {
				store.Set(name, vr.Str)
			}
		}
	}
}
