//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"os"
	"strconv"

	"remotemem/process"
)

type procStat struct {
	Comm      string
	State     process.ProcessState
	PPID      int
	StartTime uint64
}

func readStat(pid int) (procStat, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return procStat{}, err
	}
	return parseStat(data)
}

// parseStat parses /proc/<pid>/stat. comm is enclosed in parentheses and may
// itself contain spaces and parentheses, so fields are counted from the last
// ')'.
func parseStat(data []byte) (procStat, error) {
	open := bytes.IndexByte(data, '(')
	end := bytes.LastIndexByte(data, ')')
	if open < 0 || end < open {
		return procStat{}, fmt.Errorf("malformed stat: %q", data)
	}

	// fields[0] is field 3 (state), fields[19] is field 22 (starttime)
	fields := bytes.Fields(data[end+1:])
	if len(fields) < 20 {
		return procStat{}, fmt.Errorf("malformed stat: %d fields after comm", len(fields))
	}

	ppid, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return procStat{}, fmt.Errorf("malformed stat ppid: %w", err)
	}

	startTime, err := strconv.ParseUint(string(fields[19]), 10, 64)
	if err != nil {
		return procStat{}, fmt.Errorf("malformed stat starttime: %w", err)
	}

	return procStat{
		Comm:      string(data[open+1 : end]),
		State:     process.ProcessState(fields[0]),
		PPID:      ppid,
		StartTime: startTime,
	}, nil
}
