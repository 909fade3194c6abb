package execution

import (
	"context"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/domain/manifest"
	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// CleanupSummary counts what a cleanup pass did.
type CleanupSummary struct {
	CommandsRun    int `json:"commands_run"`
	CommandsFailed int `json:"commands_failed"`
	Terminated     int `json:"terminated"`
	Killed         int `json:"killed"`
	AlreadyExited  int `json:"already_exited"`
}

// Cleanup runs the manifest's cleanup commands and stops every background
// process in the ProcessTable.
type Cleanup struct {
	shell  ports.ShellRunner
	table  *ProcessTable
	cfg    Config
	logger ports.Logger
}

// CleanupOption configures a Cleanup.
type CleanupOption func(*Cleanup)

// WithCleanupLogger sets the logger used when the context carries none.
func WithCleanupLogger(logger ports.Logger) CleanupOption {
	return func(c *Cleanup) {
		c.logger = logger
	}
}

// NewCleanup creates a Cleanup.
func NewCleanup(shell ports.ShellRunner, table *ProcessTable, cfg Config, opts ...CleanupOption) *Cleanup {
	c := &Cleanup{
		shell:  shell,
		table:  table,
		cfg:    cfg.withDefaults(),
		logger: ports.Discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run tears the run down. Cleanup commands run first, in order, with the
// manifest environment; then each live background process receives SIGTERM
// and, if it is still alive after the grace period, SIGKILL.
//
// Run never fails: every error is logged as a warning and skipped. It still
// runs when ctx is already canceled, and calling it again only repeats the
// cleanup commands because the process table is empty by then.
func (c *Cleanup) Run(ctx context.Context, m *manifest.Manifest) CleanupSummary {
	ctx = context.WithoutCancel(ctx)
	log := ports.LoggerFromContextOr(ctx, c.logger)

	var summary CleanupSummary
	env := m.Env()

	for _, command := range m.CleanupCommands() {
		summary.CommandsRun++
		log.Info(ctx, "running cleanup command", ports.F("command", command))

		result, err := c.runCommand(ctx, command, env)
		switch {
		case err != nil:
			summary.CommandsFailed++
			log.Warn(ctx, "cleanup command failed", ports.F("command", command), ports.Err(err))
		case !result.Success():
			summary.CommandsFailed++
			log.Warn(ctx, "cleanup command failed",
				ports.F("command", command),
				ports.F("exit_code", result.ExitCode),
				ports.F("stderr", result.Stderr))
		}
	}

	for _, owned := range c.table.Release() {
		c.stop(ctx, log, owned, &summary)
	}

	return summary
}

func (c *Cleanup) runCommand(ctx context.Context, command string, env map[string]string) (ports.CommandResult, error) {
	if c.cfg.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CommandTimeout)
		defer cancel()
	}
	return c.shell.Run(ctx, command, env)
}

func (c *Cleanup) stop(ctx context.Context, log ports.Logger, owned OwnedProcess, summary *CleanupSummary) {
	proc := owned.Process
	fields := []ports.Field{ports.Step(owned.StepID), ports.F("pid", proc.Pid())}

	if proc.Exited() {
		summary.AlreadyExited++
		log.Debug(ctx, "background process already exited", fields...)
		return
	}

	if err := proc.Terminate(); err != nil {
		log.Warn(ctx, "failed to terminate background process", append(fields, ports.Err(err))...)
	}
	if proc.Wait(c.cfg.GracePeriod) {
		summary.Terminated++
		log.Info(ctx, "background process terminated", fields...)
		return
	}

	log.Warn(ctx, "background process ignored SIGTERM, killing",
		append(fields, ports.F("grace_period", c.cfg.GracePeriod.String()))...)
	if err := proc.Kill(); err != nil {
		log.Warn(ctx, "failed to kill background process", append(fields, ports.Err(err))...)
	}
	proc.Wait(time.Second)
	summary.Killed++
}
