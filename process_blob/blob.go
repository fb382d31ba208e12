package process_blob

import (
	"remotemem/process"
)

// ProcessBlob is one contiguous region of an in-memory address space.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
	flags       process.ProtectionFlags
}

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte, flags process.ProtectionFlags) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
		flags:       flags,
	}
}

func (p *ProcessBlob) Address() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) Size() process.ProcessMemorySize {
	return process.ProcessMemorySize(len(p.data))
}

func (p *ProcessBlob) End() process.ProcessMemoryAddress {
	return p.baseaddress + process.ProcessMemoryAddress(len(p.data))
}

func (p *ProcessBlob) Flags() process.ProtectionFlags {
	return p.flags
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Contains(addr process.ProcessMemoryAddress) bool {
	return addr >= p.baseaddress && addr < p.End()
}

// split cuts the blob at addr and returns the upper half. The two halves share
// the original backing array but never overlap.
func (p *ProcessBlob) split(addr process.ProcessMemoryAddress) *ProcessBlob {
	offset := addr - p.baseaddress
	upper := NewProcessBlob(addr, p.data[offset:], p.flags)
	p.data = p.data[:offset:offset]
	return upper
}
