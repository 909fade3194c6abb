package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// ShellCall records a shell command handed to the ShellRunner mock.
type ShellCall struct {
	Command    string
	Env        map[string]string
	Background bool
}

// ShellRunner is a thread-safe test double for ports.ShellRunner.
// Commands without a registered result succeed with empty output.
type ShellRunner struct {
	mu          sync.Mutex
	results     map[string]ports.CommandResult
	errors      map[string]error
	startErrors map[string]error
	onStart     map[string]func(*Process)
	calls       []ShellCall
	processes   []*Process
	nextPid     int
}

// NewShellRunner creates a new ShellRunner mock.
func NewShellRunner() *ShellRunner {
	return &ShellRunner{
		results:     make(map[string]ports.CommandResult),
		errors:      make(map[string]error),
		startErrors: make(map[string]error),
		onStart:     make(map[string]func(*Process)),
		nextPid:     1000,
	}
}

// AddResult registers the result of a foreground command.
func (m *ShellRunner) AddResult(command string, result ports.CommandResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[command] = result
}

// AddError registers a foreground command that fails to spawn.
func (m *ShellRunner) AddError(command string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[command] = err
}

// AddStartError registers a background command that fails to spawn.
func (m *ShellRunner) AddStartError(command string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startErrors[command] = err
}

// OnStart registers a hook applied to the process spawned for command.
func (m *ShellRunner) OnStart(command string, fn func(*Process)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStart[command] = fn
}

// Run records a foreground command and returns its registered result.
func (m *ShellRunner) Run(ctx context.Context, command string, env map[string]string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ShellCall{Command: command, Env: copyEnv(env)})

	if err := ctx.Err(); err != nil {
		return ports.CommandResult{}, err
	}
	if err, ok := m.errors[command]; ok {
		return ports.CommandResult{}, err
	}
	return m.results[command], nil
}

// Start records a background command and returns a live fake process.
func (m *ShellRunner) Start(_ context.Context, command string, env map[string]string) (ports.Process, error) {
	m.mu.Lock()
	m.calls = append(m.calls, ShellCall{Command: command, Env: copyEnv(env), Background: true})

	if err, ok := m.startErrors[command]; ok {
		m.mu.Unlock()
		return nil, err
	}

	m.nextPid++
	p := &Process{pid: m.nextPid, command: command}
	m.processes = append(m.processes, p)
	hook := m.onStart[command]
	m.mu.Unlock()

	if hook != nil {
		hook(p)
	}
	return p, nil
}

// Calls returns every recorded command in invocation order.
func (m *ShellRunner) Calls() []ShellCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]ShellCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

// Commands returns the recorded command lines in invocation order.
func (m *ShellRunner) Commands() []string {
	calls := m.Calls()
	commands := make([]string, len(calls))
	for i, c := range calls {
		commands[i] = c.Command
	}
	return commands
}

// Processes returns every process spawned by Start.
func (m *ShellRunner) Processes() []*Process {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Process(nil), m.processes...)
}

func copyEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	c := make(map[string]string, len(env))
	for k, v := range env {
		c[k] = v
	}
	return c
}

// Process is a fake ports.Process. It stays alive until terminated, killed
// or marked exited.
type Process struct {
	mu              sync.Mutex
	pid             int
	command         string
	exited          bool
	ignoreTerminate bool
	terminateCalls  int
	killCalls       int
	stdout          string
	stderr          string
}

// Pid returns the fake process id.
func (p *Process) Pid() int {
	return p.pid
}

// Command returns the command line the process was started with.
func (p *Process) Command() string {
	return p.command
}

// Terminate records a graceful stop request.
func (p *Process) Terminate() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.terminateCalls++
	if !p.ignoreTerminate {
		p.exited = true
	}
	return nil
}

// Kill records a forced stop.
func (p *Process) Kill() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killCalls++
	p.exited = true
	return nil
}

// Wait reports whether the process has exited. It never blocks.
func (p *Process) Wait(_ time.Duration) bool {
	return p.Exited()
}

// Exited reports whether the process has exited.
func (p *Process) Exited() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exited
}

// Output returns the configured output.
func (p *Process) Output() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stdout, p.stderr
}

// IgnoreTerminate makes the process survive Terminate, so only Kill stops it.
func (p *Process) IgnoreTerminate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ignoreTerminate = true
}

// Exit marks the process as exited on its own.
func (p *Process) Exit() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.exited = true
}

// SetOutput sets what Output returns.
func (p *Process) SetOutput(stdout, stderr string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stdout, p.stderr = stdout, stderr
}

// TerminateCalls returns how many times Terminate was called.
func (p *Process) TerminateCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.terminateCalls
}

// KillCalls returns how many times Kill was called.
func (p *Process) KillCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killCalls
}

var (
	_ ports.ShellRunner = (*ShellRunner)(nil)
	_ ports.Process     = (*Process)(nil)
)
