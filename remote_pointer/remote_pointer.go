// Package remote_pointer provides RemotePointer, a typed handle to a location
// in another process's address space.
//
// A RemotePointer binds a process and an address. Every operation resolves
// base+offset and hands the work to the process's accessor, protector or
// executor; results and errors come back unchanged.
package remote_pointer

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"remotemem/process"
)

// Kind distinguishes pointer variants. Pointers of different kinds are never
// equal, even when they share a process and address.
type Kind uint8

const (
	KindPlain Kind = iota
	// KindChain is a pointer produced by resolving a pointer chain.
	KindChain
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindChain:
		return "chain"
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// RemotePointer is an immutable value. The process is shared with the caller,
// who controls its lifetime.
type RemotePointer struct {
	proc process.Process
	base process.ProcessMemoryAddress
	kind Kind
}

// New returns a plain pointer to addr in proc.
func New(proc process.Process, addr process.ProcessMemoryAddress) RemotePointer {
	return RemotePointer{proc: proc, base: addr, kind: KindPlain}
}

func (p RemotePointer) Process() process.Process {
	return p.proc
}

// open returns the pointer's process. The zero RemotePointer has none and
// every memory or execute operation on it fails with ErrProcessNotOpen.
func (p RemotePointer) open() (process.Process, error) {
	if p.proc == nil {
		return nil, process.ErrProcessNotOpen
	}
	return p.proc, nil
}

// Base returns the address the pointer was created with.
func (p RemotePointer) Base() process.ProcessMemoryAddress {
	return p.base
}

func (p RemotePointer) Kind() Kind {
	return p.kind
}

// IsValid reports whether the process is running and the address is not
// null. It asks the process on every call.
func (p RemotePointer) IsValid() bool {
	return p.proc != nil && p.base != 0 && p.proc.IsRunning()
}

// String renders the address as 0x followed by uppercase hex digits.
func (p RemotePointer) String() string {
	return fmt.Sprintf("0x%X", uint64(p.base))
}

// Address resolves base+off. Negative offsets wrap in two's complement.
func (p RemotePointer) Address(off Offset) process.ProcessMemoryAddress {
	return p.base + process.ProcessMemoryAddress(off)
}

// Add returns a plain pointer to base+off in the same process.
func (p RemotePointer) Add(off Offset) RemotePointer {
	return New(p.proc, p.Address(off))
}

// Equal reports whether other has the same kind, an equal process and the
// same address.
func (p RemotePointer) Equal(other RemotePointer) bool {
	if p.kind != other.kind || p.base != other.base {
		return false
	}
	if p.proc == nil || other.proc == nil {
		return p.proc == nil && other.proc == nil
	}
	return p.proc.Equal(other.proc)
}

// Hash is consistent with Equal.
func (p RemotePointer) Hash() uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(p.base))

	h := xxhash.Sum64(b[:])
	if p.proc != nil {
		h ^= p.proc.Hash()
	}
	return h
}
