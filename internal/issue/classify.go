// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"

	"github.com/modload/modload/internal/runtime"
	"github.com/modload/modload/pkg/modload"
)

var kindIssues = map[modload.ErrorKind]Id{
	modload.KindModuleNotFound:  ModuleNotFoundId,
	modload.KindPolicyViolation: PolicyViolationId,
	modload.KindManifestParse:   ManifestParseErrorId,
	modload.KindDataParse:       DataParseErrorId,
}

// ForError returns the catalog entry that explains a load failure. Typed loader
// errors are matched by kind, executor failures by sentinel.
func ForError(err error) (*Issue, bool) {
	if err == nil {
		return nil, false
	}
	if kind, ok := modload.KindOf(err); ok {
		return Get(kindIssues[kind]), true
	}

	switch {
	case errors.Is(err, runtime.ErrScriptFailed):
		return Get(ScriptFailedId), true
	case errors.Is(err, runtime.ErrMissingEntrypoint):
		return Get(MissingEntrypointId), true
	case errors.Is(err, modload.ErrNativeUnsupported):
		return Get(NativeUnsupportedId), true
	case errors.Is(err, modload.ErrNoExecutor):
		return Get(NoExecutorId), true
	}
	return nil, false
}
