package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/docsteps/internal/adapters/logging"
	"github.com/felixgeelhaar/docsteps/internal/domain/failure"
	"github.com/felixgeelhaar/docsteps/internal/exitcode"
	"github.com/felixgeelhaar/docsteps/internal/ports"
	"github.com/felixgeelhaar/docsteps/internal/tui/ui"
)

var (
	// Global flags
	verbose   bool
	logLevel  string
	logFormat string
	noColor   bool
)

var rootCmd = &cobra.Command{
	Use:   "docsteps",
	Short: "Run the setup steps documented in a README",
	Long: `docsteps executes the steps annotated in a README (or an equivalent YAML/TOML
manifest) the way a new contributor would: requirements first, then each step
in dependency order, waiting for background services to become ready, and
finally tearing everything down again.

Steps are declared with HTML comments that render invisibly on GitHub:

  <!-- validate:step id="server" background=true validate_port="8080" -->
  ` + "```bash" + `
  npm start
  ` + "```",
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	registerFlagCompletions()

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the logger selected by the global flags.
func newLogger(w io.Writer) (ports.Logger, error) {
	level, err := logging.ParseLevel(logLevel)
	if err != nil {
		return nil, exitcode.WithCode(exitcode.ManifestError, err)
	}
	if verbose {
		level = ports.LevelDebug
	}

	var json bool
	switch logFormat {
	case "text":
	case "json":
		json = true
	default:
		return nil, exitcode.WithCode(exitcode.ManifestError, fmt.Errorf("unknown log format %q", logFormat))
	}

	return logging.NewConsoleLogger(
		logging.WithOutput(w),
		logging.WithLevel(level),
		logging.WithJSONFormat(json),
	), nil
}

// styles returns the output styles selected by the global flags.
func styles() ui.Styles {
	if noColor {
		return ui.PlainStyles()
	}
	return ui.DefaultStyles()
}

// formatError returns a user-friendly error message.
// With verbose=false: shows only the message and suggestion.
// With verbose=true: also shows the details and underlying error.
func formatError(err error) string {
	var fe *failure.Error
	if errors.As(err, &fe) {
		if verbose {
			return fe.Format()
		}
		msg := err.Error()
		if fe.Suggestion != "" {
			msg += fmt.Sprintf("\n\nSuggestion: %s", fe.Suggestion)
		}
		return msg
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
// Errors that only carry an exit code were already reported.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	var coded *exitcode.Error
	if errors.As(err, &coded) && coded.Err == nil {
		return
	}
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}

// registerFlagCompletions sets up custom completions for global flags.
func registerFlagCompletions() {
	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	_ = rootCmd.RegisterFlagCompletionFunc("log-format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{
			"text\tHuman-readable key=value lines",
			"json\tOne JSON object per line",
		}, cobra.ShellCompDirectiveNoFileComp
	})
}

// manifestFileCompletion completes manifest paths.
func manifestFileCompletion(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	return []string{"md", "markdown", "yaml", "yml", "toml"}, cobra.ShellCompDirectiveFilterFileExt
}
