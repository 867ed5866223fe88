// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrScriptFailed is the sentinel error wrapped by ScriptError.
	ErrScriptFailed = errors.New("module body failed")

	// ErrMissingEntrypoint is returned when a Go body does not define Module.
	ErrMissingEntrypoint = errors.New("missing Module function")

	// ErrUnknownExecutor is returned by Registry.Get for unregistered names.
	ErrUnknownExecutor = errors.New("unknown executor")
)

type (
	// ExitCode represents the status a shell body exited with.
	// The zero value (0) means success.
	ExitCode int

	// ScriptError is returned when a shell body exits with a non-zero status.
	ScriptError struct {
		Filename string
		Code     ExitCode
	}
)

// Error implements the error interface.
func (e *ScriptError) Error() string {
	return fmt.Sprintf("%s: exit status %s", e.Filename, e.Code)
}

// Unwrap returns ErrScriptFailed so callers can use errors.Is for programmatic detection.
func (e *ScriptError) Unwrap() error { return ErrScriptFailed }

// IsSuccess returns true if the exit code indicates successful execution.
func (c ExitCode) IsSuccess() bool { return c == 0 }

// String returns the decimal string representation of the ExitCode.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
