// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"testing"

	"github.com/modload/modload/pkg/modload"
)

// apply runs tr and returns the content the next transformer would see.
func apply(t *testing.T, tr modload.Transformer, in string) string {
	t.Helper()

	r, err := tr.Fn([]byte(in), "/m/file.sh")
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", tr.Name, err)
	}
	if r.IsTerminal() {
		t.Fatalf("%s: text transformer returned a terminal result", tr.Name)
	}
	if c, ok := r.Content(); ok {
		return string(c)
	}
	return in
}

func TestCRLF(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"a\r\nb\r\n": "a\nb\n",
		"a\nb":       "a\nb",
		"a\rb":       "a\rb",
		"":           "",
	}
	for in, want := range tests {
		if got := apply(t, CRLF(), in); got != want {
			t.Errorf("crlf(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTrim(t *testing.T) {
	t.Parallel()

	if got := apply(t, Trim(), "\n\t body \n\n"); got != "body" {
		t.Errorf("trim = %q, want body", got)
	}
}

func TestEnvsubst(t *testing.T) {
	t.Parallel()

	env := map[string]string{"NAME": "modload", "EMPTY": ""}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	tests := []struct {
		in   string
		want string
	}{
		{in: "no references", want: "no references"},
		{in: "hello $NAME", want: "hello modload"},
		{in: "hello ${NAME}!", want: "hello modload!"},
		{in: "[$MISSING]", want: "[]"},
		{in: "${EMPTY:-fallback}", want: "fallback"},
		{in: "${MISSING-unset}", want: "unset"},
		{in: "'$NAME' \"$NAME\"", want: "'modload' \"modload\""},
	}
	for _, tt := range tests {
		if got := apply(t, Envsubst(lookup), tt.in); got != tt.want {
			t.Errorf("envsubst(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := Envsubst(lookup).Fn([]byte("$(rm -rf /)"), "/m/x"); err == nil {
		t.Error("envsubst ran a command substitution")
	}
}
