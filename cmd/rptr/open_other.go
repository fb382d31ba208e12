//go:build !linux && !windows

package main

import (
	"fmt"
	"runtime"

	"remotemem/process"
)

func openProcess(pid int, name string) (process.Process, error) {
	return nil, fmt.Errorf("live processes are not supported on %s, use --from", runtime.GOOS)
}
