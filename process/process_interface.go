package process

import (
	"context"

	"remotemem/future"
	"remotemem/text_encoding"
)

// Handle identifies a live or dead target process
type Handle interface {
	// IsRunning reports whether the process is still executing. It is
	// evaluated on every call.
	IsRunning() bool

	// Equal reports whether other refers to the same process
	Equal(other Handle) bool

	// Hash returns a hash consistent with Equal
	Hash() uint64
}

// MemoryAccessor reads and writes raw bytes in the target process
type MemoryAccessor interface {
	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

	// WriteMemory writes data to the process memory at the specified address
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// DefaultEncoder is implemented by accessors that choose the text encoding
// used when a caller does not name one.
type DefaultEncoder interface {
	DefaultEncoding() text_encoding.Encoding
}

// DefaultEncoding returns the accessor's default text encoding, or UTF-8.
func DefaultEncoding(m MemoryAccessor) text_encoding.Encoding {
	if d, ok := m.(DefaultEncoder); ok {
		if enc := d.DefaultEncoding(); !enc.IsZero() {
			return enc
		}
	}
	return text_encoding.UTF8
}

// MemoryProtector changes the protection of memory in the target process
type MemoryProtector interface {
	// SetProtection applies flags to [addr, addr+size) and returns the
	// protection each covered region had before the change.
	SetProtection(addr ProcessMemoryAddress, size ProcessMemorySize, flags ProtectionFlags) ([]ProtectionRegion, error)
}

// ProtectionRestorer is implemented by protectors whose native protection
// carries more than ProtectionFlags can express. RestoreProtection puts a
// region recorded by SetProtection back exactly as it was.
type ProtectionRestorer interface {
	RestoreProtection(r ProtectionRegion) error
}

// Executor invokes code inside the target process
type Executor interface {
	// Execute calls the code at addr and blocks until it returns.
	Execute(ctx context.Context, addr ProcessMemoryAddress, cc CallingConvention, args []Argument) (Result, error)

	// ExecuteAsync starts the same call without blocking the caller.
	ExecuteAsync(ctx context.Context, addr ProcessMemoryAddress, cc CallingConvention, args []Argument) *future.Future[Result]
}

// Process is the interface that defines operations for interacting with a system process
type Process interface {
	Handle
	MemoryAccessor
	MemoryProtector

	// GetPID returns the process ID
	GetPID() ProcessID

	// Executor returns the component that runs code in the process
	Executor() Executor

	// Close closes the process and releases resources
	Close() error
}
