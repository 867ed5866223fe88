// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/modload/modload/pkg/modload"
)

// ShellExecutor runs shell module bodies with the embedded mvdan/sh
// interpreter. Bodies talk to the loader through the exports, require and
// module commands.
type ShellExecutor struct {
	// Stdin, Stdout and Stderr are used by ambient bodies. Nil writers discard.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	env *Environment
}

// NewShellExecutor returns an executor whose ambient bodies share env.
// A nil env is seeded from the process environment.
func NewShellExecutor(env *Environment, stdout, stderr io.Writer) *ShellExecutor {
	if env == nil {
		env = NewEnvironment(os.Environ())
	}
	return &ShellExecutor{Stdout: stdout, Stderr: stderr, env: env}
}

// Name returns the registry name of the executor.
func (s *ShellExecutor) Name() string { return "shell" }

// Environment returns the store ambient bodies read and write.
func (s *ShellExecutor) Environment() *Environment { return s.env }

// Execute implements modload.Executor.
func (s *ShellExecutor) Execute(ctx context.Context, scope modload.ExecutionScope, content []byte, b *modload.Bindings) error {
	prog, err := syntax.NewParser().Parse(bytes.NewReader(content), b.Filename)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", b.Filename, err)
	}

	var (
		store          envStore = s.env
		dir                     = b.Dirname
		stdin                   = s.Stdin
		stdout, stderr          = s.Stdout, s.Stderr
	)
	if iso, ok := scope.(modload.Isolated); ok {
		store = iso.Sandbox
		stdin = nil
		stdout, stderr = iso.Sandbox.Stdout, iso.Sandbox.Stderr
		if iso.Sandbox.Dir != "" {
			dir = iso.Sandbox.Dir
		}
	}

	env := liveEnviron{store: store, extra: map[string]string{
		filenameVar: b.Filename,
		dirnameVar:  b.Dirname,
	}}
	runner, err := interp.New(
		interp.Dir(dir),
		interp.Env(env),
		interp.StdIO(stdin, stdout, stderr),
		interp.ExecHandlers(bodyCommands(b)),
	)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	err = runner.Run(ctx, prog)
	writeBack(store, runner.Vars)
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ScriptError{Filename: b.Filename, Code: ExitCode(exitStatus)}
		}
		return err
	}
	return nil
}
