// SPDX-License-Identifier: MPL-2.0

package modload

import (
	"context"
	"slices"
)

// check applies the access rules to a nested request. The blacklist wins
// over the whitelist; the external restriction only admits built-ins.
func (e *Engine) check(request string) error {
	switch {
	case slices.Contains(e.opts.Blacklist, request):
		return &PolicyViolationError{Request: request, Reason: ReasonBlacklisted}
	case len(e.opts.Whitelist) > 0 && !slices.Contains(e.opts.Whitelist, request):
		return &PolicyViolationError{Request: request, Reason: ReasonNotWhitelisted}
	case !e.opts.AllowExternalModules && !e.isBuiltin(request):
		return &PolicyViolationError{Request: request, Reason: ReasonExternalRestricted}
	default:
		return nil
	}
}

// require is the nested load: listener notification, policy, override
// substitution, then the registry.
func (e *Engine) require(ctx context.Context, parent *Module, request string) (any, error) {
	if request == "" {
		return nil, ErrEmptyRequest
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.enter()
	defer e.leave()

	e.opts.Listener.BeforeRequire(request)

	if err := e.check(request); err != nil {
		e.opts.Logger.Debug("request rejected", "request", request, "reason", policyReason(err))
		return nil, err
	}

	if fn, ok := e.opts.Overrides[request]; ok {
		exports, err := e.override(request, fn)
		if err != nil {
			return nil, err
		}
		e.opts.Listener.AfterRequire(request, exports)
		return exports, nil
	}

	_, exports, err := e.load(ctx, request, parent, false)
	if err != nil {
		return nil, err
	}
	e.opts.Listener.AfterRequire(request, exports)
	return exports, nil
}

// override returns the substituted exports for request. The value is
// produced once per engine unless Reload is set.
func (e *Engine) override(request string, fn OverrideFunc) (any, error) {
	if !e.opts.Reload {
		if exports, ok := e.overrides[request]; ok {
			return exports, nil
		}
	}
	exports, err := fn(request)
	if err != nil {
		return nil, err
	}
	e.overrides[request] = exports
	return exports, nil
}

func policyReason(err error) string {
	if pv, ok := err.(*PolicyViolationError); ok {
		return pv.Reason.String()
	}
	return ""
}
