//go:build linux

package process_linux

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/sys/unix"

	"remotemem/process"
)

// System V AMD64 argument passing.
const (
	sysvIntRegs   = 6 // rdi, rsi, rdx, rcx, r8, r9
	sysvFloatRegs = 8 // xmm0-xmm7
	redZone       = 128
)

// callLayout is where each argument of a call goes.
type callLayout struct {
	ints   []uint64 // in register order
	floats []uint64 // low 64 bits of xmm0.. in order
	stack  []uint64 // first element at the lowest address
}

// layoutCall assigns arguments to registers and stack slots. Aggregates must
// already have been replaced by pointers.
func layoutCall(args []process.Argument) (callLayout, error) {
	var l callLayout
	for i, a := range args {
		switch a.Kind {
		case process.ArgumentInteger, process.ArgumentPointer:
			if len(l.ints) < sysvIntRegs {
				l.ints = append(l.ints, a.Bits)
			} else {
				l.stack = append(l.stack, a.Bits)
			}
		case process.ArgumentFloat32, process.ArgumentFloat64:
			if len(l.floats) < sysvFloatRegs {
				l.floats = append(l.floats, a.Bits)
			} else {
				l.stack = append(l.stack, a.Bits)
			}
		default:
			return callLayout{}, fmt.Errorf("%w: argument %d is %s", process.ErrUnsupportedArgument, i, a.Kind)
		}
	}
	return l, nil
}

// stackFrame builds the stack for a call made with the stack pointer at sp.
// It returns the stack pointer at function entry and the bytes to write
// there: a zero return address followed by the stack arguments. rsp+8 is
// 16-byte aligned at entry, as a call instruction would leave it.
func stackFrame(sp uint64, stack []uint64) (entry uint64, image []byte) {
	base := (sp - redZone - uint64(8*len(stack))) &^ 15
	entry = base - 8

	image = make([]byte, 8+8*len(stack))
	for i, v := range stack {
		binary.LittleEndian.PutUint64(image[8+8*i:], v)
	}
	return entry, image
}

// supportedConvention reports whether cc can be made with System V rules on
// this platform.
func supportedConvention(cc process.CallingConvention) bool {
	switch cc {
	case process.CallingConventionDefault, process.CallingConventionSystemV, process.CallingConventionCdecl:
		return true
	}
	return false
}

func pageAlign(addr, size uint64) (start, length uint64) {
	pageSize := uint64(unix.Getpagesize())
	start = addr &^ (pageSize - 1)
	end := (addr + size + pageSize - 1) &^ (pageSize - 1)
	return start, end - start
}

// protFlags converts protection flags to mmap/mprotect PROT_ bits.
func protFlags(f process.ProtectionFlags) uint64 {
	var prot uint64
	if f.CanRead() {
		prot |= unix.PROT_READ
	}
	if f.CanWrite() {
		prot |= unix.PROT_WRITE
	}
	if f.CanExecute() {
		prot |= unix.PROT_EXEC
	}
	return prot
}
