// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// newRunCommand creates the `modload run` command.
func newRunCommand(a *App) *cobra.Command {
	var printExports bool

	cmd := &cobra.Command{
		Use:   "run <entry>",
		Short: "Load an entry module",
		Long: `Load an entry module and everything it requires.

The entry is resolved against the working directory (see --workdir) and is
not subject to the blacklist, whitelist or external-module policy. Module
bodies write to this process's standard streams.

Examples:
  modload run ./main.sh
  modload run ./app --print      Print the entry's exports as JSON`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEntry(cmd, a, args[0], printExports)
		},
	}

	cmd.Flags().BoolVarP(&printExports, "print", "p", false, "print the entry's exports as JSON")
	return cmd
}

func runEntry(cmd *cobra.Command, a *App, entry string, printExports bool) error {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	e, err := a.newEngine(cmd, cfg, false)
	if err != nil {
		return err
	}

	m, err := e.Main(cmd.Context(), entry)
	if err != nil {
		return a.fail(err)
	}
	a.Logger.Debug("entry loaded", "filename", m.Filename, "modules", len(e.Cache()))

	if !printExports {
		return nil
	}
	if err := writeJSON(cmd.OutOrStdout(), m.Exports); err != nil {
		return a.fail(fmt.Errorf("exports of %s: %w", a.displayPath(m.Filename), err))
	}
	return nil
}

// writeJSON prints v as indented JSON followed by a newline.
func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("not representable as JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}
