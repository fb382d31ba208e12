// Package process defines the contracts a target process must satisfy and the
// types shared by every backend.
package process

import "errors"

// The contracts are split across files:
// - memory_types.go: ProcessID, ProcessMemoryAddress, ProcessMemorySize
// - process_state.go: ProcessState constants
// - protection.go: ProtectionFlags, ProtectionRegion
// - execution.go: CallingConvention, Argument, Result
// - process_interface.go: Handle, MemoryAccessor, MemoryProtector, Executor, Process

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrProcessNotRunning is returned when the target process has exited.
	ErrProcessNotRunning = errors.New("process not running")

	// ErrAccessViolation is returned when memory cannot be read or written with
	// its current protection.
	ErrAccessViolation = errors.New("access violation")

	ErrInvalidPointer = errors.New("invalid pointer read")

	// ErrExecutionFailed is returned when code in the target process could not
	// be invoked or did not return normally.
	ErrExecutionFailed = errors.New("remote execution failed")

	ErrUnsupportedCallingConvention = errors.New("unsupported calling convention")
	ErrUnsupportedArgument          = errors.New("unsupported argument")
)
