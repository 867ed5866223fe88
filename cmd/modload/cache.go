// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

// newCacheCommand creates the `modload cache` command.
func newCacheCommand(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "cache <entry>",
		Short: "Load an entry module and list the module registry",
		Long: `Load an entry module and list every module the registry holds afterwards:
its id, file, role, whether it finished loading and how many modules it
loaded first. Module output is discarded.

Examples:
  modload cache ./main.sh`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return listCache(cmd, a, args[0])
		},
	}
}

func listCache(cmd *cobra.Command, a *App, entry string) error {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}
	e, err := a.newEngine(cmd, cfg, true)
	if err != nil {
		return err
	}
	if _, err := e.Main(cmd.Context(), entry); err != nil {
		return a.fail(err)
	}

	var tableBuffer bytes.Buffer
	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"ID", "File", "Role", "Loaded", "Children"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetAutoWrapText(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_CENTER,
		tablewriter.ALIGN_RIGHT,
	})

	modules := e.Cache()
	for _, m := range modules {
		table.Append([]string{
			m.ID,
			a.displayPath(m.Filename),
			m.Role.String(),
			strconv.FormatBool(m.Loaded),
			strconv.Itoa(len(m.Children)),
		})
	}
	table.SetFooter([]string{fmt.Sprintf("%d modules", len(modules)), "", "", "", ""})
	table.Render()

	fmt.Fprint(cmd.OutOrStdout(), tableBuffer.String())
	return nil
}
