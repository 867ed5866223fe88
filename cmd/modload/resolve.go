// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modload/modload/pkg/modload"
)

// newResolveCommand creates the `modload resolve` command.
func newResolveCommand(a *App) *cobra.Command {
	var (
		asEntry bool
		from    string
	)

	cmd := &cobra.Command{
		Use:   "resolve <request>...",
		Short: "Print the files requests resolve to",
		Long: `Print the canonical file each request resolves to, one per line, without
loading it. Built-in names print unchanged.

By default requests resolve as the host would require them: relative
requests against the working directory, bare names through the global roots.
With --from they resolve as the given module would require them; that
module is loaded first, with its output discarded.

Examples:
  modload resolve ./lib/util
  modload resolve --from ./src/main.sh lodash ./helpers`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return resolveRequests(cmd, a, args, from, asEntry)
		},
	}

	cmd.Flags().BoolVar(&asEntry, "entry", false, "resolve as an entry module (symlinks are always followed)")
	cmd.Flags().StringVar(&from, "from", "", "resolve from this module instead of the host")
	cmd.MarkFlagsMutuallyExclusive("entry", "from")
	return cmd
}

func resolveRequests(cmd *cobra.Command, a *App, requests []string, from string, asEntry bool) error {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	e, err := a.newEngine(cmd, cfg, from != "")
	if err != nil {
		return err
	}

	resolve := func(request string) (string, error) {
		return e.Resolve(request, nil, asEntry)
	}
	if from != "" {
		var parent *modload.Module
		if parent, err = e.Main(cmd.Context(), from); err != nil {
			return a.fail(err)
		}
		resolve = parent.Resolve
	}

	out := cmd.OutOrStdout()
	for _, request := range requests {
		filename, err := resolve(request)
		if err != nil {
			return a.fail(err)
		}
		fmt.Fprintln(out, filename)
	}
	return nil
}
