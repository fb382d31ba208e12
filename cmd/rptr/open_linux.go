//go:build linux

package main

import (
	"remotemem/process"
	"remotemem/process_linux"
)

func openProcess(pid int, name string) (process.Process, error) {
	if name != "" {
		p, err := process_linux.OpenByName(name)
		if err != nil {
			return nil, err
		}
		return p, nil
	}

	p, err := process_linux.Open(process.ProcessID(pid))
	if err != nil {
		return nil, err
	}
	return p, nil
}
