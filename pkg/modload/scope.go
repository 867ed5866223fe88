// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"io"
	"maps"
	"slices"
	"sync"
)

type (
	// ExecutionScope is where module bodies run: [Ambient] shares the engine's
	// environment, [Isolated] confines bodies to a [Sandbox].
	ExecutionScope interface {
		isExecutionScope()
	}

	// Ambient runs bodies in the host's environment and stdio.
	Ambient struct{}

	// Isolated runs bodies inside a sandbox. Every body loaded by the engine
	// shares the same sandbox.
	Isolated struct {
		Sandbox *Sandbox
	}

	// Sandbox is the state an isolated body sees and mutates. Variables set by
	// one body are visible to the bodies loaded after it.
	Sandbox struct {
		// Name labels the sandbox in logs.
		Name string
		// Dir is the working directory of isolated bodies. Empty means the
		// directory of the module being run.
		Dir    string
		Stdout io.Writer
		Stderr io.Writer

		mu  sync.Mutex
		env map[string]string
	}
)

func (Ambient) isExecutionScope()  {}
func (Isolated) isExecutionScope() {}

// NewSandbox returns a sandbox seeded with env. The map is copied.
func NewSandbox(name string, env map[string]string) *Sandbox {
	sb := &Sandbox{Name: name, Stdout: io.Discard, Stderr: io.Discard, env: map[string]string{}}
	maps.Copy(sb.env, env)
	return sb
}

// ScopeFor picks the execution scope once per engine. An isolated scope is
// only chosen when useSandbox is set and a sandbox is supplied.
func ScopeFor(useSandbox bool, sb *Sandbox) ExecutionScope {
	if !useSandbox || sb == nil {
		return Ambient{}
	}
	return Isolated{Sandbox: sb}
}

// Get returns the value of a sandbox variable.
func (s *Sandbox) Get(name string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.env[name]
	return v, ok
}

// Set assigns a sandbox variable.
func (s *Sandbox) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil {
		s.env = map[string]string{}
	}
	s.env[name] = value
}

// Unset removes a sandbox variable.
func (s *Sandbox) Unset(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.env, name)
}

// Environ returns the sandbox variables as sorted NAME=VALUE pairs.
func (s *Sandbox) Environ() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.env))
	for _, k := range slices.Sorted(maps.Keys(s.env)) {
		out = append(out, k+"="+s.env[k])
	}
	return out
}

// Vars returns a copy of the sandbox variables.
func (s *Sandbox) Vars() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.env)
}
