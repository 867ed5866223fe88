// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"fmt"
	"plugin"
	"reflect"

	"github.com/modload/modload/pkg/modload"
)

// NativeSymbol is the symbol a native module exports. It is either a function
// of type func(context.Context, *modload.Module) (any, error) or a variable,
// whose value becomes the module's exports.
const NativeSymbol = "Exports"

// PluginLoader loads native modules built with -buildmode=plugin.
type PluginLoader struct{}

// LoadNative implements modload.NativeLoader.
func (PluginLoader) LoadNative(ctx context.Context, m *modload.Module) (any, error) {
	p, err := plugin.Open(m.Filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open native module: %w", err)
	}
	sym, err := p.Lookup(NativeSymbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.Filename, err)
	}
	return nativeExports(ctx, m, sym)
}

// nativeExports turns a looked-up plugin symbol into an exports value.
func nativeExports(ctx context.Context, m *modload.Module, sym any) (any, error) {
	switch s := sym.(type) {
	case func(context.Context, *modload.Module) (any, error):
		return s(ctx, m)
	case *func(context.Context, *modload.Module) (any, error):
		return (*s)(ctx, m)
	}

	v := reflect.ValueOf(sym)
	if v.Kind() == reflect.Func {
		return nil, fmt.Errorf("%s: %s has unsupported signature %s", m.Filename, NativeSymbol, v.Type())
	}
	// Plugin variables are looked up as pointers.
	if v.Kind() == reflect.Pointer && !v.IsNil() {
		return v.Elem().Interface(), nil
	}
	return sym, nil
}
