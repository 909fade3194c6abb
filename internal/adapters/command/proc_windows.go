//go:build windows

package command

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// Windows has no SIGTERM; termination is a kill of the shell process.
func terminateGroup(_ int, proc *os.Process) error {
	return killGroup(0, proc)
}

func killGroup(_ int, proc *os.Process) error {
	if proc == nil {
		return nil
	}
	if err := proc.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

// Children are not tracked on Windows; the shell's own exit is authoritative.
func groupAlive(_ int) bool {
	return false
}
