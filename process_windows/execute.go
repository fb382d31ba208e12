//go:build windows

package process_windows

import (
	"context"
	"fmt"
	"unsafe"

	"go.uber.org/multierr"
	"golang.org/x/sys/windows"

	"remotemem/future"
	"remotemem/process"
)

var (
	modkernel32            = windows.NewLazySystemDLL("kernel32.dll")
	procCreateRemoteThread = modkernel32.NewProc("CreateRemoteThread")
	procGetExitCodeThread  = modkernel32.NewProc("GetExitCodeThread")
	procVirtualAllocEx     = modkernel32.NewProc("VirtualAllocEx")
	procVirtualFreeEx      = modkernel32.NewProc("VirtualFreeEx")
)

func (p *WindowsProcess) Executor() process.Executor {
	return p
}

// threadParameter converts the argument list of a remote thread start
// routine. A thread receives exactly one pointer-sized parameter.
func threadParameter(cc process.CallingConvention, args []process.Argument) (process.Argument, error) {
	switch cc {
	case process.CallingConventionDefault, process.CallingConventionWin64, process.CallingConventionStdcall:
	default:
		return process.Argument{}, fmt.Errorf("%w: %s for a remote thread", process.ErrUnsupportedCallingConvention, cc)
	}

	switch len(args) {
	case 0:
		return process.Pointer(0), nil
	case 1:
	default:
		return process.Argument{}, fmt.Errorf("%w: a remote thread takes one argument, got %d", process.ErrUnsupportedArgument, len(args))
	}

	a := args[0]
	if a.IsFloat() {
		return process.Argument{}, fmt.Errorf("%w: %s for a remote thread", process.ErrUnsupportedArgument, a)
	}
	return a, nil
}

func (p *WindowsProcess) allocate(handle windows.Handle, data []byte) (uintptr, error) {
	mem, _, err := procVirtualAllocEx.Call(uintptr(handle), 0, uintptr(len(data)), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if mem == 0 {
		return 0, fmt.Errorf("VirtualAllocEx failed: %w", err)
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, mem, &data[0], uintptr(len(data)), &written); err != nil {
		return 0, multierr.Append(fmt.Errorf("WriteProcessMemory failed: %w", err), p.free(handle, mem))
	}
	return mem, nil
}

func (p *WindowsProcess) free(handle windows.Handle, mem uintptr) error {
	if ret, _, err := procVirtualFreeEx.Call(uintptr(handle), mem, 0, windows.MEM_RELEASE); ret == 0 {
		return fmt.Errorf("VirtualFreeEx failed: %w", err)
	}
	return nil
}

// Execute starts a remote thread at addr and waits for it to exit. The
// result is the thread's 32-bit exit code; there is no floating-point
// result.
func (p *WindowsProcess) Execute(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) (result process.Result, err error) {
	arg, err := threadParameter(cc, args)
	if err != nil {
		return result, fmt.Errorf("%w: %w", process.ErrExecutionFailed, err)
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	handle, err := p.getHandle()
	if err != nil {
		return result, fmt.Errorf("%w: %w", process.ErrExecutionFailed, err)
	}

	param := uintptr(arg.Bits)
	if arg.Kind == process.ArgumentAggregate && len(arg.Data) > 0 {
		mem, err := p.allocate(handle, arg.Data)
		if err != nil {
			return result, fmt.Errorf("%w: %w", process.ErrExecutionFailed, err)
		}
		defer func() {
			err = multierr.Append(err, p.free(handle, mem))
		}()
		param = mem
	}

	var threadID uint32
	thread, _, cerr := procCreateRemoteThread.Call(
		uintptr(handle),
		0,
		0,
		uintptr(addr),
		param,
		0,
		uintptr(unsafe.Pointer(&threadID)),
	)
	if thread == 0 {
		return result, fmt.Errorf("%w: CreateRemoteThread at %s: %w", process.ErrExecutionFailed, addr, cerr)
	}
	defer windows.CloseHandle(windows.Handle(thread))

	p.log.Debugln("Execute", addr, "thread", threadID)

	if _, err := windows.WaitForSingleObject(windows.Handle(thread), windows.INFINITE); err != nil {
		return result, fmt.Errorf("%w: WaitForSingleObject: %w", process.ErrExecutionFailed, err)
	}

	var code uint32
	if ret, _, gerr := procGetExitCodeThread.Call(thread, uintptr(unsafe.Pointer(&code))); ret == 0 {
		return result, fmt.Errorf("%w: GetExitCodeThread: %w", process.ErrExecutionFailed, gerr)
	}

	return process.Result{Integer: uint64(code)}, nil
}

func (p *WindowsProcess) ExecuteAsync(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) *future.Future[process.Result] {
	return future.Go(ctx, p.limiter, func(ctx context.Context) (process.Result, error) {
		return p.Execute(ctx, addr, cc, args)
	})
}
