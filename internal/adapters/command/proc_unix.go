//go:build !windows

package command

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func configureProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminateGroup sends SIGTERM to the process group led by pid.
// A group that no longer exists is not an error.
func terminateGroup(pid int, proc *os.Process) error {
	return signalGroup(pid, proc, syscall.SIGTERM)
}

// killGroup sends SIGKILL to the process group led by pid.
func killGroup(pid int, proc *os.Process) error {
	return signalGroup(pid, proc, syscall.SIGKILL)
}

func signalGroup(pid int, proc *os.Process, sig syscall.Signal) error {
	if pid <= 0 {
		return nil
	}
	// Negative pid targets the full process group (shell + spawned children).
	err := syscall.Kill(-pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	if proc != nil {
		if perr := proc.Signal(sig); perr != nil && !errors.Is(perr, os.ErrProcessDone) {
			return perr
		}
		return nil
	}
	return err
}

// groupAlive reports whether the process group led by pid still has a member
// that is not a zombie. Orphans reparented to an init that never reaps stay
// in the group as zombies and would otherwise keep it alive forever.
func groupAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(-pid, 0)
	if err != nil && !errors.Is(err, syscall.EPERM) {
		return false
	}
	return groupHasLiveMember(pid)
}
