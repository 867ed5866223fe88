// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"errors"
	"fmt"
)

const (
	// KindModuleNotFound marks a request that no candidate root could satisfy.
	KindModuleNotFound ErrorKind = "MODULE_NOT_FOUND"
	// KindPolicyViolation marks a request rejected by the blacklist, the
	// whitelist or the external module restriction.
	KindPolicyViolation ErrorKind = "POLICY_VIOLATION"
	// KindManifestParse marks a package manifest that could not be parsed.
	KindManifestParse ErrorKind = "MANIFEST_PARSE_ERROR"
	// KindDataParse marks a structured data module that could not be parsed.
	KindDataParse ErrorKind = "DATA_PARSE_ERROR"
)

const (
	// ReasonBlacklisted means the request is listed in Options.Blacklist.
	ReasonBlacklisted PolicyReason = iota + 1
	// ReasonNotWhitelisted means Options.Whitelist is non-empty and does not list the request.
	ReasonNotWhitelisted
	// ReasonExternalRestricted means external modules are disallowed and the request is not a built-in.
	ReasonExternalRestricted
)

var (
	// ErrModuleNotFound is the sentinel error wrapped by ModuleNotFoundError.
	ErrModuleNotFound = errors.New("module not found")
	// ErrPolicyViolation is the sentinel error wrapped by PolicyViolationError.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrManifestParse is the sentinel error wrapped by ManifestParseError.
	ErrManifestParse = errors.New("manifest parse error")
	// ErrDataParse is the sentinel error wrapped by DataParseError.
	ErrDataParse = errors.New("data parse error")
	// ErrNativeUnsupported is returned when a native module is loaded without a NativeLoader.
	ErrNativeUnsupported = errors.New("native modules are not supported")
	// ErrNoExecutor is returned when text content reaches the compile step of an
	// extension that has no Executor.
	ErrNoExecutor = errors.New("no executor registered")
	// ErrInvalidExtension is returned when an extension does not start with ".".
	ErrInvalidExtension = errors.New("invalid extension")
	// ErrEmptyRequest is returned when a nested load is issued with an empty request.
	ErrEmptyRequest = errors.New("request must be a non-empty string")
)

type (
	// ErrorKind is the stable, machine-readable kind carried by loader errors.
	ErrorKind string

	// PolicyReason tells which policy rule rejected a request.
	PolicyReason int

	// ModuleNotFoundError is returned when resolution exhausts every candidate root.
	// It wraps ErrModuleNotFound for errors.Is() compatibility.
	ModuleNotFoundError struct {
		Request string
		// Parent is the canonical path of the requesting module, empty for host requests.
		Parent string
	}

	// PolicyViolationError is returned when a request is rejected before resolution.
	// It wraps ErrPolicyViolation for errors.Is() compatibility.
	PolicyViolationError struct {
		Request string
		Reason  PolicyReason
	}

	// ManifestParseError is returned when a package manifest is malformed.
	// Path names the offending manifest file.
	ManifestParseError struct {
		Path  string
		Cause error
	}

	// DataParseError is returned when a structured data module cannot be decoded.
	// Path names the offending module file.
	DataParseError struct {
		Path  string
		Cause error
	}

	// PanicError is returned when a module body panics during its load.
	PanicError struct {
		Filename string
		Value    any
	}
)

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("cannot find module '%s'", e.Request)
}

// Unwrap returns ErrModuleNotFound for errors.Is() compatibility.
func (e *ModuleNotFoundError) Unwrap() error { return ErrModuleNotFound }

// Kind returns KindModuleNotFound.
func (e *ModuleNotFoundError) Kind() ErrorKind { return KindModuleNotFound }

func (e *PolicyViolationError) Error() string {
	switch e.Reason {
	case ReasonBlacklisted:
		return fmt.Sprintf("use of module (%s) is restricted", e.Request)
	case ReasonNotWhitelisted:
		return fmt.Sprintf("module (%s) is not available", e.Request)
	case ReasonExternalRestricted:
		return fmt.Sprintf("use of external modules is restricted, have (%s)", e.Request)
	default:
		return fmt.Sprintf("module (%s) rejected by policy", e.Request)
	}
}

// Unwrap returns ErrPolicyViolation for errors.Is() compatibility.
func (e *PolicyViolationError) Unwrap() error { return ErrPolicyViolation }

// Kind returns KindPolicyViolation.
func (e *PolicyViolationError) Kind() ErrorKind { return KindPolicyViolation }

func (e *ManifestParseError) Error() string {
	return fmt.Sprintf("error parsing %s: %v", e.Path, e.Cause)
}

// Unwrap returns both ErrManifestParse and the underlying parser error.
func (e *ManifestParseError) Unwrap() []error { return []error{ErrManifestParse, e.Cause} }

// Kind returns KindManifestParse.
func (e *ManifestParseError) Kind() ErrorKind { return KindManifestParse }

func (e *DataParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Cause)
}

// Unwrap returns both ErrDataParse and the underlying decoder error.
func (e *DataParseError) Unwrap() []error { return []error{ErrDataParse, e.Cause} }

// Kind returns KindDataParse.
func (e *DataParseError) Kind() ErrorKind { return KindDataParse }

func (e *PanicError) Error() string {
	return fmt.Sprintf("module %s panicked: %v", e.Filename, e.Value)
}

// String returns the rule name.
func (r PolicyReason) String() string {
	switch r {
	case ReasonBlacklisted:
		return "blacklisted"
	case ReasonNotWhitelisted:
		return "not-whitelisted"
	case ReasonExternalRestricted:
		return "external-restricted"
	default:
		return "unknown"
	}
}

// KindOf reports the ErrorKind of the first loader error found in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var kinded interface{ Kind() ErrorKind }
	if errors.As(err, &kinded) {
		return kinded.Kind(), true
	}
	return "", false
}
