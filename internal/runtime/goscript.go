// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/modload/modload/pkg/modload"
)

// goEntrypoint is the function a Go body must define:
//
//	func Module(exports map[string]any, require func(string) (any, error),
//		module *modload.Module, filename, dirname string) error
const goEntrypoint = "Module"

// symbols exposes the loader's types to interpreted bodies under the import
// path "modload".
var symbols = interp.Exports{
	"modload/modload": {
		"Module":         reflect.ValueOf((*modload.Module)(nil)),
		"Role":           reflect.ValueOf((*modload.Role)(nil)),
		"RoleEntry":      reflect.ValueOf(modload.RoleEntry),
		"RoleDependency": reflect.ValueOf(modload.RoleDependency),
	},
}

// GoExecutor interprets Go module bodies with yaegi. Each body gets a fresh
// interpreter restricted to the standard library and the modload symbols.
type GoExecutor struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	env *Environment
}

// NewGoExecutor returns an executor whose ambient bodies see env through
// os.Getenv. A nil env is seeded from the process environment.
func NewGoExecutor(env *Environment, stdout, stderr io.Writer) *GoExecutor {
	if env == nil {
		env = NewEnvironment(os.Environ())
	}
	return &GoExecutor{Stdout: stdout, Stderr: stderr, env: env}
}

// Name returns the registry name of the executor.
func (g *GoExecutor) Name() string { return "go" }

// Execute implements modload.Executor.
func (g *GoExecutor) Execute(ctx context.Context, scope modload.ExecutionScope, content []byte, b *modload.Bindings) (err error) {
	opts := interp.Options{
		Env:    g.env.Environ(),
		Stdin:  g.Stdin,
		Stdout: orDiscard(g.Stdout),
		Stderr: orDiscard(g.Stderr),
	}
	if iso, ok := scope.(modload.Isolated); ok {
		opts.Env = iso.Sandbox.Environ()
		opts.Stdin = nil
		opts.Stdout = orDiscard(iso.Sandbox.Stdout)
		opts.Stderr = orDiscard(iso.Sandbox.Stderr)
	}

	i := interp.New(opts)
	if err := i.Use(stdlib.Symbols); err != nil {
		return fmt.Errorf("failed to load stdlib symbols: %w", err)
	}
	if err := i.Use(symbols); err != nil {
		return fmt.Errorf("failed to load modload symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, string(content)); err != nil {
		return fmt.Errorf("interpret %s: %w", b.Filename, err)
	}
	fn, err := i.Eval(goEntrypoint)
	if err != nil {
		return fmt.Errorf("%s: %w: %v", b.Filename, ErrMissingEntrypoint, err)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic in %s: %v", b.Filename, goEntrypoint, r)
		}
	}()
	return invokeEntrypoint(ctx, fn, b)
}

// invokeEntrypoint calls Module with the body's bindings.
func invokeEntrypoint(ctx context.Context, fn reflect.Value, b *modload.Bindings) error {
	if !fn.IsValid() || fn.Kind() != reflect.Func {
		return fmt.Errorf("%s: %w: %s is not a function", b.Filename, ErrMissingEntrypoint, goEntrypoint)
	}
	if fn.Type().NumIn() != 5 {
		return fmt.Errorf("%s: %s must take (exports, require, module, filename, dirname)", b.Filename, goEntrypoint)
	}

	require := func(request string) (any, error) {
		return b.Require(ctx, request)
	}
	args := []reflect.Value{
		reflect.ValueOf(b.Exports),
		reflect.ValueOf(require),
		reflect.ValueOf(b.Module),
		reflect.ValueOf(b.Filename),
		reflect.ValueOf(b.Dirname),
	}
	for i, a := range args {
		if !a.Type().AssignableTo(fn.Type().In(i)) {
			return fmt.Errorf("%s: %s parameter %d has type %s, want %s", b.Filename, goEntrypoint, i+1, fn.Type().In(i), a.Type())
		}
	}

	results := fn.Call(args)
	if len(results) != 1 {
		return fmt.Errorf("%s: %s must return error", b.Filename, goEntrypoint)
	}
	if results[0].IsNil() {
		return nil
	}
	if e, ok := results[0].Interface().(error); ok {
		return e
	}
	return fmt.Errorf("%s: %s returned non-error value", b.Filename, goEntrypoint)
}

func orDiscard(w io.Writer) io.Writer {
	if w == nil {
		return io.Discard
	}
	return w
}
