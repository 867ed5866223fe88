// SPDX-License-Identifier: MPL-2.0

package modload

const (
	resultUnchanged resultKind = iota
	resultContinue
	resultTerminal
)

type (
	resultKind uint8

	// Result is the outcome of one transformer stage. The zero value means the
	// content passes through unchanged.
	Result struct {
		kind    resultKind
		content []byte
		value   any
	}

	// TransformFunc rewrites the content of a module file, or produces the
	// module's exports directly by returning a Terminal result.
	TransformFunc func(content []byte, filename string) (Result, error)

	// Transformer is a named pipeline stage. The name identifies the stage
	// within an extension; registering the same name twice is a no-op.
	Transformer struct {
		Name string
		Fn   TransformFunc
	}
)

// Continue hands content to the next stage.
func Continue(content []byte) Result {
	return Result{kind: resultContinue, content: content}
}

// Unchanged hands the current content to the next stage as is.
func Unchanged() Result { return Result{} }

// Terminal stops the chain; v becomes the module's exports.
func Terminal(v any) Result {
	return Result{kind: resultTerminal, value: v}
}

// IsTerminal reports whether r stops the chain.
func (r Result) IsTerminal() bool { return r.kind == resultTerminal }

// Value returns the terminal value carried by r.
func (r Result) Value() any { return r.value }

// Content returns the replacement content of a Continue result.
func (r Result) Content() ([]byte, bool) {
	return r.content, r.kind == resultContinue
}

// apply returns the content the next stage receives.
func (r Result) apply(current []byte) []byte {
	if r.kind == resultContinue {
		return r.content
	}
	return current
}
