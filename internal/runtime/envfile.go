// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// LoadEnvFile reads a sandbox environment file and merges its variables into
// env. Relative paths are resolved against baseDir. A path suffixed with '?'
// is optional: a missing file is not an error.
func LoadEnvFile(ctx context.Context, env map[string]string, path, baseDir string) error {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")

	fullPath := filepath.FromSlash(path)
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(baseDir, fullPath)
	}

	content, err := os.ReadFile(fullPath)
	if err != nil {
		if optional && os.IsNotExist(err) {
			slog.Debug("optional env file not found", "path", fullPath)
			return nil
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}
	return ParseEnvFile(ctx, env, content, path)
}

// ParseEnvFile evaluates content as a list of shell assignments and merges
// the resulting variables into env. Quoting and expansion follow the shell;
// earlier assignments, and variables already in env, can be referenced.
// Running commands is refused. The filename parameter is used for error
// messages.
func ParseEnvFile(ctx context.Context, env map[string]string, content []byte, filename string) error {
	prog, err := syntax.NewParser().Parse(bytes.NewReader(content), filename)
	if err != nil {
		return fmt.Errorf("failed to parse env file: %w", err)
	}

	base := EnvToSlice(env)
	runner, err := interp.New(
		interp.Env(expand.ListEnviron(base...)),
		interp.StdIO(nil, nil, nil),
		interp.ExecHandlers(func(interp.ExecHandlerFunc) interp.ExecHandlerFunc {
			return func(ctx context.Context, args []string) error {
				return fmt.Errorf("%s: commands are not allowed in env files (%s)", filename, args[0])
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}
	if err := runner.Run(ctx, prog); err != nil {
		return err
	}

	for name, vr := range runner.Vars {
		if vr.Kind != expand.String || !vr.IsSet() || vr.ReadOnly || writeBackSkip[name] {
			continue
		}
		if old, ok := env[name]; ok && old == vr.Str {
			continue
		}
		if _, inherited := env[name]; !inherited && !declaredIn(prog, name) {
			continue
		}
		env[name] = vr.Str
	}
	return nil
}

// declaredIn reports whether prog assigns name, so interpreter defaults such
// as IFS and HOME are not mistaken for file content.
func declaredIn(prog *syntax.File, name string) bool {
	found := false
	syntax.Walk(prog, func(node syntax.Node) bool {
		if as, ok := node.(*syntax.Assign); ok && as.Name != nil && as.Name.Value == name {
			found = true
		}
		return !found
	})
	return found
}
