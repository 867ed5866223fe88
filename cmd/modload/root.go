// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	loader "github.com/modload/modload/internal/app"
	"github.com/modload/modload/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

type displayError struct {
	text  string
	cause error
}

func (e *displayError) Error() string { return e.text }
func (e *displayError) Unwrap() error { return e.cause }

// NewRootCommand builds the command tree around a.
func NewRootCommand(a *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "modload",
		Short: "Resolve, load and inspect modules",
		Long: TitleStyle.Render("modload") + SubtitleStyle.Render(" - a module loader for shell, Go and data modules") + `

modload resolves requests the way a CommonJS loader does: relative paths
against the requiring module, bare names through 'modules' directories and
global roots. Each file is loaded at most once and its exports are cached.

` + SubtitleStyle.Render("Module kinds:") + `
  .sh              shell bodies run by an embedded POSIX interpreter
  .go              Go bodies interpreted with yaegi
  .json .yaml .toml .cue   data modules exporting their decoded value
  .so              Go plugins exporting a symbol named Exports

` + SubtitleStyle.Render("Examples:") + `
  modload run ./main.sh          Load an entry module
  modload resolve lib/util       Print the file a request resolves to
  modload graph ./main.sh        Show who requires what
  modload check ./a.sh ./b.sh    Load several entries in parallel
  modload config show            Show the effective configuration`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if a.flags.verbose {
				a.setVerbose()
			}
		},
	}

	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: ExitUsage, Err: err}
	})

	pf := root.PersistentFlags()
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "enable verbose output")
	pf.StringVar(&a.flags.configPath, "config", "", "config file (default is <config dir>/modload.cue, then ./modload.cue)")
	pf.StringVarP(&a.flags.workDir, "workdir", "C", "", "directory host requests resolve against")

	root.AddCommand(
		newRunCommand(a),
		newResolveCommand(a),
		newGraphCommand(a),
		newCacheCommand(a),
		newCheckCommand(a),
		newConfigCommand(a),
		newIssueCommand(a),
	)
	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits the process. It is called by main.main().
func Execute() {
	os.Exit(execute(context.Background(), NewApp(Dependencies{})))
}

func execute(ctx context.Context, a *App) int {
	slog.SetDefault(slog.New(a.Logger))
	loader.Version = Version

	// fang.WithVersion is required because fang overrides rootCmd.Version.
	err := fang.Execute(
		ctx,
		NewRootCommand(a),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(errorHandler),
	)
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorHandler prints err below fang's error header. The message is written
// as is: it names file paths and spans several lines.
func errorHandler(w io.Writer, styles fang.Styles, err error) {
	fmt.Fprintln(w, styles.ErrorHeader.String())
	fmt.Fprintln(w, styles.ErrorText.UnsetTransform().UnsetWidth().Render(err.Error()))
	fmt.Fprintln(w)

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == ExitUsage {
		fmt.Fprintln(w, "  Try 'modload --help' for usage.")
		fmt.Fprintln(w)
	}
}

// fail wraps err for display with the failure exit code.
func (a *App) fail(err error) error {
	return &ExitError{Code: ExitFailure, Err: &displayError{text: formatErrorForDisplay(err, a.flags.verbose), cause: err}}
}

// usage wraps err with the usage exit code.
func (a *App) usage(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// usageArgs makes argument validation failures exit with ExitUsage.
func usageArgs(fn cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := fn(cmd, args); err != nil {
			return &ExitError{Code: ExitUsage, Err: err}
		}
		return nil
	}
}

// formatErrorForDisplay formats an error for user display. ActionableErrors
// use their Format method; verbose mode adds the error chain. Errors with a
// catalog entry point to 'modload issue'.
func formatErrorForDisplay(err error, verboseMode bool) string {
	text := err.Error()
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		text = ae.Format(verboseMode)
	}
	if is, ok := issue.ForError(err); ok {
		text += issueHint(is)
	}
	return text
}

func issueHint(is *issue.Issue) string {
	return fmt.Sprintf("\n\nRun 'modload issue %s' for details.", is.Name())
}
