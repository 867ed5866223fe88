// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// newCheckCommand creates the `modload check` command.
func newCheckCommand(a *App) *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "check <entry>...",
		Short: "Load several entry modules in parallel",
		Long: `Load each entry module on its own engine, in parallel, and report which
ones load. Engines share nothing, so every entry runs its dependencies
afresh. Module output is discarded.

Examples:
  modload check ./bin/*.sh
  modload check -j 1 ./a.sh ./b.go`,
		Args: usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkEntries(cmd, a, args, jobs)
		},
	}

	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "number of entries loaded at once")
	return cmd
}

func checkEntries(cmd *cobra.Command, a *App, entries []string, jobs int) error {
	if jobs < 1 {
		return a.usage(fmt.Errorf("--jobs must be at least 1, got %d", jobs))
	}
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	results := make([]error, len(entries))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, entry := range entries {
		g.Go(func() error {
			e, err := a.newEngine(cmd, cfg, true)
			if err != nil {
				return err
			}
			_, results[i] = e.Main(ctx, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	failed := 0
	for i, entry := range entries {
		if results[i] == nil {
			fmt.Fprintf(out, "%s %s\n", successIcon, entry)
			continue
		}
		failed++
		fmt.Fprintf(out, "%s %s\n", errorIcon, entry)
		text := formatErrorForDisplay(results[i], a.flags.verbose)
		fmt.Fprintf(out, "    %s\n", strings.ReplaceAll(text, "\n", "\n    "))
	}

	if failed > 0 {
		return &ExitError{Code: ExitFailure, Err: fmt.Errorf("%d of %d entries failed to load", failed, len(entries))}
	}
	a.Logger.Debug("check passed", "entries", len(entries), "jobs", jobs)
	return nil
}
