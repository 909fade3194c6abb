//go:build linux

package command

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
)

// groupHasLiveMember scans /proc for a member of process group pgid that is
// neither a zombie nor dead. When /proc cannot be read the group is assumed
// alive.
func groupHasLiveMember(pgid int) bool {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return true
	}
	for _, entry := range entries {
		if _, err := strconv.Atoi(entry.Name()); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join("/proc", entry.Name(), "stat"))
		if err != nil {
			continue
		}
		state, pgrp, ok := parseStat(data)
		if !ok || pgrp != pgid {
			continue
		}
		if state != 'Z' && state != 'X' {
			return true
		}
	}
	return false
}

// parseStat extracts the state and process group from a /proc/<pid>/stat
// line. The command name may contain spaces and parentheses, so fields are
// read after the last ')'.
func parseStat(data []byte) (state byte, pgrp int, ok bool) {
	end := bytes.LastIndexByte(data, ')')
	if end < 0 {
		return 0, 0, false
	}
	// state ppid pgrp ...
	fields := bytes.Fields(data[end+1:])
	if len(fields) < 3 || len(fields[0]) != 1 {
		return 0, 0, false
	}
	pgrp, err := strconv.Atoi(string(fields[2]))
	if err != nil {
		return 0, 0, false
	}
	return fields[0][0], pgrp, true
}
