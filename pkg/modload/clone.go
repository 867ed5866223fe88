// SPDX-License-Identifier: MPL-2.0

package modload

import "maps"

// deepCopy copies the container types built-ins are expected to export.
// Other values, including pointers and functions, are shared.
func deepCopy(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for k, item := range typed {
			out[k] = deepCopy(item)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = deepCopy(item)
		}
		return out
	case map[string]string:
		return maps.Clone(typed)
	case []string:
		return append([]string(nil), typed...)
	case []byte:
		return append([]byte(nil), typed...)
	default:
		return v
	}
}
