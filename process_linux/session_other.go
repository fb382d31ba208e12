//go:build linux && !amd64

package process_linux

import (
	"fmt"
	"runtime"

	"remotemem/process"
)

// Register-level injection is only implemented for amd64.
type session struct{}

func (t *tracer) begin() (*session, error) {
	return nil, fmt.Errorf("%w: no remote code support on linux/%s", process.ErrUnsupportedCallingConvention, runtime.GOARCH)
}

func (s *session) end() error {
	return nil
}

func (s *session) syscall(nr uint64, args ...uint64) (uint64, error) {
	return 0, fmt.Errorf("%w: linux/%s", process.ErrUnsupportedCallingConvention, runtime.GOARCH)
}

func (s *session) call(addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
	return process.Result{}, fmt.Errorf("%w: linux/%s", process.ErrUnsupportedCallingConvention, runtime.GOARCH)
}
