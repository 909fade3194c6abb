// Package mocks provides thread-safe test doubles for the ports interfaces.
package mocks

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/felixgeelhaar/docsteps/internal/ports"
)

// CommandRunner fakes the tool probes issued by the requirements checker.
// Commands that were never registered behave like tools missing from PATH.
type CommandRunner struct {
	mu        sync.Mutex
	responses map[string]response
	calls     []ports.CommandCall
}

type response struct {
	result ports.CommandResult
	err    error
}

// NewCommandRunner creates a CommandRunner with no installed tools.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{responses: make(map[string]response)}
}

// AddResult registers the result of running command with args.
func (m *CommandRunner) AddResult(command string, args []string, result ports.CommandResult) {
	m.set(command, args, response{result: result})
}

// AddError registers an error for running command with args.
func (m *CommandRunner) AddError(command string, args []string, err error) {
	m.set(command, args, response{err: err})
}

// AddVersion registers a tool whose --version prints output.
func (m *CommandRunner) AddVersion(tool, output string) {
	m.AddResult(tool, []string{"--version"}, ports.CommandResult{Stdout: output})
}

func (m *CommandRunner) set(command string, args []string, r response) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[key(command, args)] = r
}

// Run records the invocation and returns the registered response.
func (m *CommandRunner) Run(_ context.Context, command string, args ...string) (ports.CommandResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ports.CommandCall{Command: command, Args: args})

	r, ok := m.responses[key(command, args)]
	if !ok {
		return ports.CommandResult{ExitCode: -1}, fmt.Errorf("%w: %s", ports.ErrCommandNotFound, command)
	}
	return r.result, r.err
}

// Calls returns every recorded invocation in order.
func (m *CommandRunner) Calls() []ports.CommandCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.CommandCall(nil), m.calls...)
}

func key(command string, args []string) string {
	return command + "\x00" + strings.Join(args, "\x00")
}

var _ ports.CommandRunner = (*CommandRunner)(nil)
