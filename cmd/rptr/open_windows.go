//go:build windows

package main

import (
	"fmt"

	"remotemem/process"
	"remotemem/process_windows"
)

func openProcess(pid int, name string) (process.Process, error) {
	if name != "" {
		return nil, fmt.Errorf("--name is not supported on windows, use --pid")
	}

	p, err := process_windows.Open(process.ProcessID(pid))
	if err != nil {
		return nil, err
	}
	return p, nil
}
