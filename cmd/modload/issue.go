// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modload/modload/internal/config"
	"github.com/modload/modload/internal/issue"
)

// newIssueCommand creates the `modload issue` command.
func newIssueCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "issue [name]",
		Short: "Explain a failure and how to fix it",
		Long: `Explain a failure and how to fix it. Without a name, list the known issues.
Failures that have an entry end with "Run 'modload issue <name>'".

Examples:
  modload issue
  modload issue module-not-found`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			return issueNames(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return listIssues(cmd)
			}
			return showIssue(cmd, a, args[0])
		},
	}
}

func listIssues(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	for _, is := range issue.Values() {
		fmt.Fprintln(out, CmdStyle.Render(is.Name()))
	}
	return nil
}

func showIssue(cmd *cobra.Command, a *App, name string) error {
	is := issue.Lookup(name)
	if is == nil {
		return a.usage(fmt.Errorf("unknown issue %q; known issues: %s", name, strings.Join(issueNames(), ", ")))
	}

	rendered, err := is.Render(glamourStyle(cmd, a))
	if err != nil {
		return a.fail(fmt.Errorf("failed to render issue %s: %w", name, err))
	}
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

// glamourStyle maps the configured color scheme to a glamour style. A broken
// configuration must not hide its own explanation, so load errors fall back
// to automatic detection.
func glamourStyle(cmd *cobra.Command, a *App) string {
	wd, err := a.workDir()
	if err != nil {
		return string(config.ColorSchemeAuto)
	}
	cfg, err := a.Config.Load(cmd.Context(), config.LoadOptions{ConfigFilePath: a.flags.configPath, WorkDir: wd})
	if err != nil || cfg.UI.ColorScheme == "" {
		return string(config.ColorSchemeAuto)
	}
	return string(cfg.UI.ColorScheme)
}

func issueNames() []string {
	values := issue.Values()
	names := make([]string, len(values))
	for i, is := range values {
		names[i] = is.Name()
	}
	return names
}
