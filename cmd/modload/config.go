// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/modload/modload/internal/config"
)

// newConfigCommand creates the `modload config` command tree.
func newConfigCommand(a *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage modload configuration",
		Long: `Manage modload configuration.

The configuration file is the first of:
  - the file named by --config
  - modload.cue in the config directory
    (Linux: ~/.config/modload, macOS: ~/Library/Application Support/modload,
    Windows: %APPDATA%\modload)
  - modload.cue in the working directory

MODLOAD_* environment variables override scalar settings, for example
MODLOAD_RELOAD=true or MODLOAD_UI_VERBOSE=true.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd, a)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with the defaults",
		Long: `Create a configuration file with the defaults, at the path given by
--config or in the config directory. An existing file is left untouched.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, a)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show where configuration is looked up",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfigPath(cmd, a)
		},
	})

	return cfgCmd
}

func showConfig(cmd *cobra.Command, a *App) error {
	cfg, err := a.loadConfig(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, TitleStyle.Render("Current Configuration"))
	fmt.Fprintf(out, "%s: %s\n\n", CmdStyle.Render("Config file"), orDefaults(cfg.Source))
	fmt.Fprint(out, config.GenerateCUE(cfg))
	return nil
}

func initConfig(cmd *cobra.Command, a *App) error {
	path, created, err := config.CreateDefaultConfig(a.flags.configPath)
	if err != nil {
		return a.fail(fmt.Errorf("failed to create config: %w", err))
	}

	out := cmd.OutOrStdout()
	if !created {
		fmt.Fprintf(out, "%s Configuration already exists at %s\n", warningIcon, path)
		return nil
	}
	fmt.Fprintf(out, "%s Created default configuration at %s\n", successIcon, path)
	return nil
}

func showConfigPath(cmd *cobra.Command, a *App) error {
	out := cmd.OutOrStdout()
	if a.flags.configPath != "" {
		fmt.Fprintf(out, "Config file (--config): %s\n", a.flags.configPath)
	}

	cfgPath, err := config.DefaultConfigPath()
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(out, "Config directory: %s\n", filepath.Dir(cfgPath))
	fmt.Fprintf(out, "Config file: %s\n", cfgPath)

	wd, err := a.workDir()
	if err != nil {
		return a.usage(err)
	}
	fmt.Fprintf(out, "Working directory file: %s\n", filepath.Join(wd, config.ConfigFileName+"."+config.ConfigFileExt))
	return nil
}
