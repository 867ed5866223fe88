// SPDX-License-Identifier: MPL-2.0

package app

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/modload/modload/internal/dag"
	"github.com/modload/modload/pkg/modload"
)

type (
	// LogListener writes engine events to a logger at debug level.
	LogListener struct {
		Logger *log.Logger
	}

	// Listeners fans every event out to each listener in order.
	Listeners []modload.Listener

	// GraphRecorder builds the require graph from engine events. Loading is
	// synchronous, so the module that issued a request is the innermost
	// require still in flight, or the entry when none is. A failed require
	// leaves its frame behind, so a recorder describes successful loads only.
	GraphRecorder struct {
		graph *dag.Graph
		entry string
		// stack holds one frame per in-flight require: the resolved filename,
		// or "" until resolution completes.
		stack []string
	}
)

func (l LogListener) BeforeRequire(request string) {
	l.Logger.Debug("require", "request", request)
}

func (l LogListener) Require(request, filename string) {
	l.Logger.Debug("resolved", "request", request, "filename", filename)
}

func (l LogListener) AfterRequire(request string, exports any) {
	l.Logger.Debug("loaded", "request", request, "exports", fmt.Sprintf("%T", exports))
}

func (ls Listeners) BeforeRequire(request string) {
	for _, l := range ls {
		l.BeforeRequire(request)
	}
}

func (ls Listeners) Require(request, filename string) {
	for _, l := range ls {
		l.Require(request, filename)
	}
}

func (ls Listeners) AfterRequire(request string, exports any) {
	for _, l := range ls {
		l.AfterRequire(request, exports)
	}
}

// NewGraphRecorder returns an empty recorder.
func NewGraphRecorder() *GraphRecorder {
	return &GraphRecorder{graph: dag.New()}
}

// Graph returns the recorded graph. Nodes are canonical filenames, or
// built-in names.
func (g *GraphRecorder) Graph() *dag.Graph { return g.graph }

// Entry returns the filename of the entry module, once it resolved.
func (g *GraphRecorder) Entry() string { return g.entry }

func (g *GraphRecorder) BeforeRequire(string) {
	g.stack = append(g.stack, "")
}

func (g *GraphRecorder) Require(_, filename string) {
	if len(g.stack) == 0 {
		// The entry resolves without a BeforeRequire.
		g.entry = filename
		g.graph.AddNode(filename)
		return
	}
	g.stack[len(g.stack)-1] = filename
	if from := g.requester(); from != "" {
		g.graph.AddEdge(from, filename)
		return
	}
	g.graph.AddNode(filename)
}

func (g *GraphRecorder) AfterRequire(string, any) {
	if len(g.stack) > 0 {
		g.stack = g.stack[:len(g.stack)-1]
	}
}

// requester returns the module owning the innermost in-flight request.
func (g *GraphRecorder) requester() string {
	for i := len(g.stack) - 2; i >= 0; i-- {
		if g.stack[i] != "" {
			return g.stack[i]
		}
	}
	return g.entry
}
