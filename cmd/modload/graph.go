// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	loader "github.com/modload/modload/internal/app"
	"github.com/modload/modload/internal/dag"
	"github.com/modload/modload/internal/issue"
)

// newGraphCommand creates the `modload graph` command.
func newGraphCommand(a *App) *cobra.Command {
	var (
		order  bool
		strict bool
	)

	cmd := &cobra.Command{
		Use:   "graph <entry>",
		Short: "Show which module requires which",
		Long: `Load an entry module and print its require tree. Module output is
discarded.

A module already shown is marked (seen); a require that closes a cycle is
marked (cycle) and the cycle is reported. Cycles are legal: the module that
closes one receives partial exports.

Examples:
  modload graph ./main.sh
  modload graph ./main.sh --order     Print modules dependencies-first
  modload graph ./main.sh --strict    Fail when a cycle exists`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showGraph(cmd, a, args[0], order, strict)
		},
	}

	cmd.Flags().BoolVar(&order, "order", false, "print modules in dependency order instead of a tree")
	cmd.Flags().BoolVar(&strict, "strict", false, "exit with an error when the graph has a cycle")
	return cmd
}

func showGraph(cmd *cobra.Command, a *App, entry string, order, strict bool) error {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	rec := loader.NewGraphRecorder()
	e, err := a.newEngine(cmd, cfg, true, rec)
	if err != nil {
		return err
	}
	if _, err := e.Main(cmd.Context(), entry); err != nil {
		return a.fail(err)
	}

	g := rec.Graph()
	sorted, sortErr := g.TopologicalSort()
	var cycleErr *dag.CycleError
	if sortErr != nil && !errors.As(sortErr, &cycleErr) {
		return a.fail(sortErr)
	}

	out := cmd.OutOrStdout()
	switch {
	case order && cycleErr == nil:
		slices.Reverse(sorted)
		for _, node := range sorted {
			fmt.Fprintln(out, a.nodeLabel(node))
		}
	case order:
		// A cycle leaves no dependency order; only the report is printed.
	default:
		fmt.Fprintln(out, renderGraph(a, g, rec.Entry()))
	}

	if cycleErr == nil {
		return nil
	}
	labels := make([]string, len(cycleErr.Cycle))
	for i, node := range cycleErr.Cycle {
		labels[i] = a.displayPath(node)
	}
	msg := fmt.Sprintf("dependency cycle: %s", strings.Join(labels, " → "))
	if strict {
		return &ExitError{Code: ExitFailure, Err: errors.New(msg + issueHint(issue.Get(issue.DependencyCycleId)))}
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s %s%s\n", warningIcon, WarningStyle.Render(msg), issueHint(issue.Get(issue.DependencyCycleId)))
	return nil
}

// renderGraph draws the require tree below root. Each module is expanded
// once; later occurrences are marked (seen), back edges (cycle).
func renderGraph(a *App, g *dag.Graph, root string) string {
	expanded := map[string]bool{}
	onPath := map[string]bool{}

	var build func(node string) *tree.Tree
	build = func(node string) *tree.Tree {
		expanded[node] = true
		onPath[node] = true
		defer delete(onPath, node)

		t := tree.Root(a.nodeLabel(node))
		for _, child := range g.Requires(node) {
			switch {
			case onPath[child]:
				t.Child(a.nodeLabel(child) + " " + WarningStyle.Render("(cycle)"))
			case expanded[child]:
				t.Child(a.nodeLabel(child) + " " + VerboseStyle.Render("(seen)"))
			case len(g.Requires(child)) == 0:
				expanded[child] = true
				t.Child(a.nodeLabel(child))
			default:
				t.Child(build(child))
			}
		}
		return t
	}

	return build(root).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(SubtitleStyle).
		RootStyle(TitleStyle).
		String()
}

// nodeLabel names a graph node for display. Built-ins are the only nodes
// that are not absolute paths.
func (a *App) nodeLabel(node string) string {
	if !filepath.IsAbs(node) {
		return CmdStyle.Render(node) + " " + VerboseStyle.Render("(built-in)")
	}
	return CmdStyle.Render(a.displayPath(node))
}
