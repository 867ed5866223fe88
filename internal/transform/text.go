// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bytes"
	"fmt"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/syntax"

	"github.com/modload/modload/pkg/modload"
)

// CRLF normalizes Windows line endings to "\n".
func CRLF() modload.Transformer {
	return modload.Transformer{Name: "crlf", Fn: func(content []byte, _ string) (modload.Result, error) {
		if !bytes.Contains(content, []byte("\r\n")) {
			return modload.Unchanged(), nil
		}
		return modload.Continue(bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))), nil
	}}
}

// Trim removes leading and trailing white space.
func Trim() modload.Transformer {
	return modload.Transformer{Name: "trim", Fn: func(content []byte, _ string) (modload.Result, error) {
		return modload.Continue(bytes.TrimSpace(content)), nil
	}}
}

// Envsubst expands $NAME and ${NAME} references using lookup, with the
// shell's parameter expansion rules (${NAME:-default} and friends). Unset
// names expand to the empty string. Command substitutions are rejected.
func Envsubst(lookup func(string) (string, bool)) modload.Transformer {
	cfg := &expand.Config{
		Env: expand.FuncEnviron(func(name string) string {
			v, _ := lookup(name)
			return v
		}),
	}
	return modload.Transformer{Name: "envsubst", Fn: func(content []byte, filename string) (modload.Result, error) {
		if !bytes.ContainsRune(content, '$') {
			return modload.Unchanged(), nil
		}
		word, err := syntax.NewParser().Document(bytes.NewReader(content))
		if err != nil {
			return modload.Result{}, fmt.Errorf("%s: envsubst: %w", filename, err)
		}
		out, err := expand.Document(cfg, word)
		if err != nil {
			return modload.Result{}, fmt.Errorf("%s: envsubst: %w", filename, err)
		}
		return modload.Continue([]byte(out)), nil
	}}
}
