package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/docsteps/internal/app"
	"github.com/felixgeelhaar/docsteps/internal/domain/execution"
	"github.com/felixgeelhaar/docsteps/internal/domain/readiness"
	"github.com/felixgeelhaar/docsteps/internal/exitcode"
	"github.com/felixgeelhaar/docsteps/internal/tui"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the documented steps and clean up",
	Long: `Run checks the declared requirements, executes every step in dependency
order and always runs the cleanup phase afterwards, even when a step fails or
the run is interrupted.

Exit codes:
  0 - All steps completed
  1 - A requirement, step or readiness check failed
  2 - The manifest could not be read or is invalid
  130 - Interrupted

Examples:
  docsteps run
  docsteps run -f docs/INSTALL.md --env-file .env.test
  docsteps run --port-timeout 2m --json
  docsteps run --tui`,
	RunE: runRun,
}

var (
	runFile             string
	runEnvFile          string
	runWorkDir          string
	runPortTimeout      time.Duration
	runPollInterval     time.Duration
	runGracePeriod      time.Duration
	runURLAttempts      int
	runCommandTimeout   time.Duration
	runSkipRequirements bool
	runJSON             bool
	runTUI              bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFile, "file", "f", "README.md", "README or manifest to run")
	runCmd.Flags().StringVar(&runEnvFile, "env-file", "", "KEY=VALUE file merged under the manifest environment")
	runCmd.Flags().StringVar(&runWorkDir, "workdir", "", "directory commands run in (default: current directory)")
	runCmd.Flags().DurationVar(&runPortTimeout, "port-timeout", execution.DefaultPortTimeout, "how long to wait for each readiness port")
	runCmd.Flags().DurationVar(&runPollInterval, "poll-interval", readiness.DefaultPollInterval, "delay between readiness probes")
	runCmd.Flags().DurationVar(&runGracePeriod, "grace-period", execution.DefaultGracePeriod, "wait after SIGTERM before SIGKILL during cleanup")
	runCmd.Flags().IntVar(&runURLAttempts, "url-attempts", readiness.DefaultURLAttempts, "attempts for readiness URL probes")
	runCmd.Flags().DurationVar(&runCommandTimeout, "command-timeout", 0, "bound for each foreground command (0 = unbounded)")
	runCmd.Flags().BoolVar(&runSkipRequirements, "skip-requirements", false, "do not check declared requirements")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "output the report as JSON")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show live progress")

	_ = runCmd.RegisterFlagCompletionFunc("file", manifestFileCompletion)
	runCmd.MarkFlagsMutuallyExclusive("json", "tui")
}

// runOptions builds engine options from the run flags.
func runOptions() app.Options {
	opts := app.DefaultOptions()
	opts.Execution.PortTimeout = runPortTimeout
	opts.Execution.GracePeriod = runGracePeriod
	opts.Execution.CommandTimeout = runCommandTimeout
	opts.Readiness.PollInterval = runPollInterval
	opts.Readiness.URLAttempts = runURLAttempts
	opts.SkipRequirements = runSkipRequirements
	opts.WorkDir = runWorkDir
	return opts
}

func runRun(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger, err := newLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	m, err := app.LoadManifest(runFile, runEnvFile)
	if err != nil {
		return exitcode.WithCode(exitcode.ManifestError, err)
	}

	engine := app.New(runOptions(), logger)

	var report *execution.Report
	if runTUI {
		report, err = tui.RunProgress(ctx, m.Len(), func(ctx context.Context, observer execution.Observer) (*execution.Report, error) {
			return engine.Run(ctx, m, observer)
		}, tui.NewProgressOptions().WithStyles(styles()))
	} else {
		report, err = engine.Run(ctx, m, nil)
	}

	if report == nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runJSON {
		if jsonErr := outputReportJSON(out, report); jsonErr != nil {
			return jsonErr
		}
	} else {
		_, _ = fmt.Fprint(out, tui.RenderReport(report, styles()))
	}

	if err != nil {
		// The report already names the failure.
		return exitcode.WithCode(exitcode.DetermineExitCode(err), nil)
	}
	return nil
}

func outputReportJSON(w io.Writer, report *execution.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
