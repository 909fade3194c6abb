package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// DefaultWaitDelay bounds how long Wait keeps reading output pipes after the
// shell exited. Commands that leave a child holding stdout ("server &") would
// otherwise block a foreground step forever.
const DefaultWaitDelay = 2 * time.Second

// ShellRunner runs command lines through the platform shell.
// Every command runs in its own process group so that termination reaches
// the children the shell spawned.
type ShellRunner struct {
	shell     string
	shellFlag string
	dir       string
	waitDelay time.Duration
}

// NewShellRunner creates a ShellRunner using sh -c (cmd /C on Windows).
func NewShellRunner() *ShellRunner {
	r := &ShellRunner{
		shell:     "sh",
		shellFlag: "-c",
		waitDelay: DefaultWaitDelay,
	}
	if runtime.GOOS == "windows" {
		r.shell = "cmd"
		r.shellFlag = "/C"
	}
	return r
}

// WithDir returns a ShellRunner that runs commands in dir.
func (r *ShellRunner) WithDir(dir string) *ShellRunner {
	c := *r
	c.dir = dir
	return &c
}

// WithWaitDelay returns a ShellRunner with a different output drain bound.
func (r *ShellRunner) WithWaitDelay(d time.Duration) *ShellRunner {
	c := *r
	c.waitDelay = d
	return &c
}

// Run executes the command line and blocks until it exits.
// Cancelling ctx terminates the whole process group.
func (r *ShellRunner) Run(ctx context.Context, command string, env map[string]string) (ports.CommandResult, error) {
	cmd := r.command(command, env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return ports.CommandResult{ExitCode: -1}, fmt.Errorf("starting %q: %w", command, err)
	}

	waitErr := make(chan error, 1)
	go func() { waitErr <- cmd.Wait() }()

	var err error
	select {
	case err = <-waitErr:
	case <-ctx.Done():
		_ = killGroup(cmd.Process.Pid, cmd.Process)
		<-waitErr
		return ports.CommandResult{
			ExitCode: -1,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
		}, ctx.Err()
	}

	result := ports.CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		if errors.Is(err, exec.ErrWaitDelay) {
			// The shell exited cleanly but a child kept the pipes open.
			result.ExitCode = cmd.ProcessState.ExitCode()
			return result, nil
		}
		result.ExitCode = -1
		return result, err
	}

	return result, nil
}

// Start launches the command line and returns without waiting for it.
// The process is not tied to ctx: it lives until terminated explicitly.
func (r *ShellRunner) Start(_ context.Context, command string, env map[string]string) (ports.Process, error) {
	cmd := r.command(command, env)

	p := &shellProcess{
		cmd:  cmd,
		done: make(chan struct{}),
	}
	cmd.Stdout = &p.stdout
	cmd.Stderr = &p.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %q: %w", command, err)
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()

	return p, nil
}

func (r *ShellRunner) command(command string, env map[string]string) *exec.Cmd {
	cmd := exec.Command(r.shell, r.shellFlag, command)
	cmd.Dir = r.dir
	cmd.Env = mergeEnv(os.Environ(), env)
	cmd.WaitDelay = r.waitDelay
	configureProcessGroup(cmd)
	return cmd
}

// mergeEnv overlays env on base. Keys are appended in sorted order; later
// entries win in os/exec, so overlay values take precedence.
func mergeEnv(base []string, env map[string]string) []string {
	merged := make([]string, 0, len(base)+len(env))
	merged = append(merged, base...)

	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		merged = append(merged, k+"="+env[k])
	}
	return merged
}

// shellProcess is a background command started by ShellRunner.
type shellProcess struct {
	cmd     *exec.Cmd
	stdout  syncBuffer
	stderr  syncBuffer
	done    chan struct{}
	waitErr error
}

func (p *shellProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *shellProcess) Terminate() error {
	return terminateGroup(p.cmd.Process.Pid, p.cmd.Process)
}

func (p *shellProcess) Kill() error {
	return killGroup(p.cmd.Process.Pid, p.cmd.Process)
}

func (p *shellProcess) Wait(timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		if p.Exited() {
			return true
		}
		select {
		case <-deadline.C:
			return p.Exited()
		case <-ticker.C:
		}
	}
}

// Exited reports whether the shell has exited and no member of its process
// group is left running.
func (p *shellProcess) Exited() bool {
	select {
	case <-p.done:
	default:
		return false
	}
	return !groupAlive(p.cmd.Process.Pid)
}

func (p *shellProcess) Output() (string, string) {
	return p.stdout.String(), p.stderr.String()
}

// syncBuffer is a bytes.Buffer safe for the concurrent writes of os/exec's
// copying goroutines and reads from Output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// Ensure ShellRunner implements ports.ShellRunner.
var _ ports.ShellRunner = (*ShellRunner)(nil)
