// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	loader "github.com/modload/modload/internal/app"
	"github.com/modload/modload/internal/config"
	"github.com/modload/modload/internal/issue"
	"github.com/modload/modload/pkg/modload"
)

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration and engines through it.
	App struct {
		Config config.Provider
		Logger *log.Logger

		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
		flags  rootFlags
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config config.Provider
		Logger *log.Logger
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	rootFlags struct {
		verbose    bool
		configPath string
		workDir    string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Logger == nil {
		deps.Logger = log.NewWithOptions(deps.Stderr, log.Options{
			Prefix: config.AppName,
			Level:  log.WarnLevel,
		})
	}

	return &App{
		Config: deps.Config,
		Logger: deps.Logger,
		stdin:  deps.Stdin,
		stdout: deps.Stdout,
		stderr: deps.Stderr,
	}
}

// setVerbose switches debug logging and the error chain display on.
func (a *App) setVerbose() {
	a.flags.verbose = true
	a.Logger.SetLevel(log.DebugLevel)
}

// workDir returns the absolute directory host requests resolve against.
func (a *App) workDir() (string, error) {
	dir := a.flags.workDir
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("invalid --workdir %q: %w", dir, err)
	}
	return abs, nil
}

// loadConfig loads the effective configuration. Load failures are returned
// ready for display.
func (a *App) loadConfig(ctx context.Context) (*config.Config, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, a.usage(err)
	}
	cfg, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: a.flags.configPath,
		WorkDir:        wd,
	})
	if err != nil {
		text := formatErrorForDisplay(err, a.flags.verbose) + issueHint(issue.Get(issue.ConfigLoadFailedId))
		return nil, &ExitError{Code: ExitFailure, Err: &displayError{text: text, cause: err}}
	}
	if cfg.UI.Verbose && !a.flags.verbose {
		a.setVerbose()
	}
	a.Logger.Debug("configuration loaded", "source", orDefaults(cfg.Source))
	return cfg, nil
}

// newEngine builds an engine for one command invocation. Module bodies use
// the command's streams unless quiet is set.
func (a *App) newEngine(cmd *cobra.Command, cfg *config.Config, quiet bool, listeners ...modload.Listener) (*modload.Engine, error) {
	wd, err := a.workDir()
	if err != nil {
		return nil, a.usage(err)
	}
	eo := loader.EngineOptions{
		WorkDir:   wd,
		Stdin:     cmd.InOrStdin(),
		Stdout:    cmd.OutOrStdout(),
		Stderr:    cmd.ErrOrStderr(),
		Logger:    a.Logger,
		Listeners: listeners,
	}
	if quiet {
		eo.Stdin, eo.Stdout, eo.Stderr = nil, io.Discard, io.Discard
	}
	e, err := loader.NewEngine(cmd.Context(), cfg, eo)
	if err != nil {
		return nil, a.fail(err)
	}
	return e, nil
}

// displayPath shortens filenames below the work directory.
func (a *App) displayPath(filename string) string {
	wd, err := a.workDir()
	if err != nil || !filepath.IsAbs(filename) {
		return filename
	}
	rel, err := filepath.Rel(wd, filename)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filename
	}
	return rel
}

func orDefaults(source string) string {
	if source == "" {
		return "(using defaults)"
	}
	return source
}
