package process

import (
	"fmt"
)

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

// ToString renders the address as 0x followed by uppercase hex digits
func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// PointerSize is the size of a pointer in the target process. Only 64-bit
// targets are supported.
const PointerSize ProcessMemorySize = 8
