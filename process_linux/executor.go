//go:build linux

package process_linux

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"

	"remotemem/future"
	"remotemem/process"
	"remotemem/process/memory_map"
)

func (p *LinuxProcess) Executor() process.Executor {
	return p
}

// inSession attaches, runs fn with the tracee stopped, then restores its
// registers and detaches.
func (p *LinuxProcess) inSession(ctx context.Context, fn func(s *session) error) error {
	t, err := p.getTracer()
	if err != nil {
		return err
	}

	return t.do(ctx, func() error {
		s, err := t.begin()
		if err != nil {
			return err
		}
		return multierr.Append(fn(s), s.end())
	})
}

// Execute calls the function at addr on the main thread of the process,
// blocking until it returns. The thread's registers are restored afterwards.
func (p *LinuxProcess) Execute(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
	var r process.Result
	err := p.inSession(ctx, func(s *session) error {
		var err error
		r, err = s.call(addr, cc, args)
		return err
	})
	if err != nil {
		if errors.Is(err, process.ErrExecutionFailed) {
			return process.Result{}, err
		}
		return process.Result{}, fmt.Errorf("%w: %w", process.ErrExecutionFailed, err)
	}

	p.log.Debugln("Execute", addr, "returned", fmt.Sprintf("%#x", r.Integer))
	return r, nil
}

// ExecuteAsync queues the call and returns at once. Calls are serialized by
// the tracer but their order is not defined.
func (p *LinuxProcess) ExecuteAsync(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) *future.Future[process.Result] {
	return future.Go(ctx, p.limiter, func(ctx context.Context) (process.Result, error) {
		return p.Execute(ctx, addr, cc, args)
	})
}

// SetProtection runs mprotect inside the process over the pages covering
// [addr, addr+size). The previous protection is read from /proc/<pid>/maps.
func (p *LinuxProcess) SetProtection(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) ([]process.ProtectionRegion, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}

	start, length := pageAlign(uint64(addr), uint64(size))

	mm, err := memory_map.ReadMemoryMap(int(p.pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	previous, err := memory_map.Covering(start, length, mm)
	if err != nil {
		return nil, err
	}

	err = p.inSession(context.Background(), func(s *session) error {
		_, err := s.syscall(unix.SYS_MPROTECT, start, length, protFlags(flags))
		return err
	})
	switch {
	case errors.Is(err, unix.ENOMEM):
		return nil, fmt.Errorf("%w: mprotect %#x+%#x: %w", process.ErrAddressNotMapped, start, length, err)
	case errors.Is(err, unix.EACCES):
		return nil, fmt.Errorf("%w: mprotect %#x+%#x: %w", process.ErrAccessViolation, start, length, err)
	case err != nil:
		return nil, err
	}

	p.log.Debugln("SetProtection", fmt.Sprintf("%#x+%#x", start, length), flags)
	return previous, nil
}
