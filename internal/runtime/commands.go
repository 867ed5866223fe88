// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	"mvdan.cc/sh/v3/interp"

	"github.com/modload/modload/pkg/modload"
)

// errUsage marks a misused body command. The command fails with status 2 and
// the body keeps running, like any other failing shell command.
var errUsage = errors.New("usage")

// bodyCommands returns the exec middleware that implements the loader commands
// visible to a shell body.
func bodyCommands(b *modload.Bindings) func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
	return func(next interp.ExecHandlerFunc) interp.ExecHandlerFunc {
		return func(ctx context.Context, args []string) error {
			if len(args) == 0 {
				return next(ctx, args)
			}

			var err error
			switch args[0] {
			case "exports":
				err = exportsCommand(ctx, b, args[1:])
			case "require":
				err = requireCommand(ctx, b, args[1:])
			case "module":
				err = moduleCommand(ctx, b, args[1:])
			default:
				return next(ctx, args)
			}

			if errors.Is(err, errUsage) {
				hc := interp.HandlerCtx(ctx)
				fmt.Fprintf(hc.Stderr, "%s: %v\n", args[0], err)
				return interp.ExitStatus(2)
			}
			return err
		}
	}
}

// exportsCommand prints or assigns exports:
//
//	exports                  print all exports as JSON
//	exports NAME             print one export
//	exports [--json] NAME VALUE
func exportsCommand(ctx context.Context, b *modload.Bindings, args []string) error {
	asJSON := len(args) > 0 && args[0] == "--json"
	if asJSON {
		args = args[1:]
	}
	stdout := interp.HandlerCtx(ctx).Stdout

	switch len(args) {
	case 0:
		if asJSON {
			return fmt.Errorf("%w: exports --json NAME VALUE", errUsage)
		}
		return printValue(stdout, b.Module.Exports, true)
	case 1:
		if asJSON {
			return fmt.Errorf("%w: exports --json NAME VALUE", errUsage)
		}
		exports, err := exportsMap(b)
		if err != nil {
			return err
		}
		v, ok := exports[args[0]]
		if !ok {
			return interp.ExitStatus(1)
		}
		return printValue(stdout, v, false)
	case 2:
		exports, err := exportsMap(b)
		if err != nil {
			return err
		}
		v, err := parseValue(args[1], asJSON)
		if err != nil {
			return err
		}
		exports[args[0]] = v
		return nil
	default:
		return fmt.Errorf("%w: exports [[--json] NAME [VALUE]]", errUsage)
	}
}

// requireCommand loads a module and prints its exports, or one key of them.
// Load failures abort the body and reach the requester unchanged.
func requireCommand(ctx context.Context, b *modload.Bindings, args []string) error {
	if len(args) == 0 || len(args) > 2 {
		return fmt.Errorf("%w: require REQUEST [NAME]", errUsage)
	}

	v, err := b.Require(ctx, args[0])
	if err != nil {
		return err
	}

	stdout := interp.HandlerCtx(ctx).Stdout
	if len(args) == 1 {
		return printValue(stdout, v, false)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: exports of %s are not an object", errUsage, args[0])
	}
	field, ok := m[args[1]]
	if !ok {
		return interp.ExitStatus(1)
	}
	return printValue(stdout, field, false)
}

// moduleCommand prints facts about the running module or replaces its
// exports value.
func moduleCommand(ctx context.Context, b *modload.Bindings, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: module id|filename|dirname|loaded|parent|children|exports", errUsage)
	}
	stdout := interp.HandlerCtx(ctx).Stdout
	m := b.Module

	switch args[0] {
	case "id":
		return writeLine(stdout, m.ID)
	case "filename":
		return writeLine(stdout, m.Filename)
	case "dirname":
		return writeLine(stdout, m.Dirname())
	case "loaded":
		return writeLine(stdout, strconv.FormatBool(m.Loaded))
	case "parent":
		if p := m.Parent(); p != nil {
			return writeLine(stdout, p.Filename)
		}
		return nil
	case "children":
		for _, c := range m.Children {
			if err := writeLine(stdout, c.Filename); err != nil {
				return err
			}
		}
		return nil
	case "exports":
		rest := args[1:]
		asJSON := len(rest) > 0 && rest[0] == "--json"
		if asJSON {
			rest = rest[1:]
		}
		if len(rest) != 1 {
			return fmt.Errorf("%w: module exports [--json] VALUE", errUsage)
		}
		v, err := parseValue(rest[0], asJSON)
		if err != nil {
			return err
		}
		m.Exports = v
		return nil
	default:
		return fmt.Errorf("%w: unknown field %q", errUsage, args[0])
	}
}

func exportsMap(b *modload.Bindings) (map[string]any, error) {
	m, ok := b.Module.Exports.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: exports were replaced by a %T", errUsage, b.Module.Exports)
	}
	return m, nil
}

func parseValue(raw string, asJSON bool) (any, error) {
	if !asJSON {
		return raw, nil
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON value: %v", errUsage, err)
	}
	return v, nil
}

// printValue writes strings raw and everything else as JSON. When forceJSON
// is set strings are quoted too.
func printValue(w io.Writer, v any, forceJSON bool) error {
	if s, ok := v.(string); ok && !forceJSON {
		return writeLine(w, s)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	return writeLine(w, string(data))
}

func writeLine(w io.Writer, s string) error {
	_, err := io.WriteString(w, s+"\n")
	return err
}
