// SPDX-License-Identifier: MPL-2.0

package modload

type (
	// Listener observes nested loads. Notifications are fire-and-forget: a
	// listener cannot fail a load.
	Listener interface {
		// BeforeRequire fires with the raw request before any policy check.
		BeforeRequire(request string)
		// Require fires once the request resolved, before the registry lookup.
		Require(request, filename string)
		// AfterRequire fires after a successful load with the exports handed back.
		AfterRequire(request string, exports any)
	}

	// ListenerFuncs adapts plain functions to Listener. Nil fields are skipped.
	ListenerFuncs struct {
		OnBeforeRequire func(request string)
		OnRequire       func(request, filename string)
		OnAfterRequire  func(request string, exports any)
	}

	nopListener struct{}
)

func (l ListenerFuncs) BeforeRequire(request string) {
	if l.OnBeforeRequire != nil {
		l.OnBeforeRequire(request)
	}
}

func (l ListenerFuncs) Require(request, filename string) {
	if l.OnRequire != nil {
		l.OnRequire(request, filename)
	}
}

func (l ListenerFuncs) AfterRequire(request string, exports any) {
	if l.OnAfterRequire != nil {
		l.OnAfterRequire(request, exports)
	}
}

func (nopListener) BeforeRequire(string)     {}
func (nopListener) Require(string, string)   {}
func (nopListener) AfterRequire(string, any) {}
