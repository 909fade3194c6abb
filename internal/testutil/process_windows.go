//go:build windows

package testutil

import "os"

// ProcessAlive reports whether a process with pid exists.
func ProcessAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
