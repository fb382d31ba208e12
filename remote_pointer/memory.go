package remote_pointer

import (
	"encoding/binary"
	"fmt"

	"remotemem/pod"
	"remotemem/process"
	"remotemem/text_encoding"
)

// DefaultMaxStringLength bounds ReadStringDefault.
const DefaultMaxStringLength = 512

// ReadString reads in chunks aligned to stringChunk so that a read never
// crosses a page boundary the text itself does not reach.
const stringChunk = 64

// Read returns the value of type T at the pointer's base address.
func Read[T any](p RemotePointer) (T, error) {
	return ReadAt[T](p, 0)
}

// ReadAt returns the value of type T at base+off.
func ReadAt[T any](p RemotePointer, off Offset) (T, error) {
	var zero T
	if err := pod.Check[T](); err != nil {
		return zero, err
	}

	proc, err := p.open()
	if err != nil {
		return zero, err
	}
	data, err := proc.ReadMemory(p.Address(off), pod.SizeOf[T]())
	if err != nil {
		return zero, err
	}
	return pod.Decode[T](data)
}

// ReadSlice returns count contiguous values of type T starting at base+off.
func ReadSlice[T any](p RemotePointer, off Offset, count int) ([]T, error) {
	if err := pod.Check[T](); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, fmt.Errorf("ReadSlice: negative count %d", count)
	}
	if count == 0 {
		return []T{}, nil
	}

	proc, err := p.open()
	if err != nil {
		return nil, err
	}
	data, err := proc.ReadMemory(p.Address(off), pod.SizeOf[T]()*process.ProcessMemorySize(count))
	if err != nil {
		return nil, err
	}
	return pod.DecodeSlice[T](data, count)
}

// Write stores v at the pointer's base address.
func Write[T any](p RemotePointer, v T) error {
	return WriteAt(p, 0, v)
}

// WriteAt stores v at base+off.
func WriteAt[T any](p RemotePointer, off Offset, v T) error {
	proc, err := p.open()
	if err != nil {
		return err
	}
	data, err := pod.Encode(v)
	if err != nil {
		return err
	}
	return proc.WriteMemory(p.Address(off), data)
}

// WriteSlice stores vs contiguously starting at base+off.
func WriteSlice[T any](p RemotePointer, off Offset, vs []T) error {
	if err := pod.Check[T](); err != nil {
		return err
	}
	proc, err := p.open()
	if err != nil {
		return err
	}
	if len(vs) == 0 {
		return nil
	}

	data, err := pod.EncodeSlice(vs)
	if err != nil {
		return err
	}
	return proc.WriteMemory(p.Address(off), data)
}

// ReadPointer reads a pointer-sized value at base+off and returns a plain
// pointer to it in the same process.
func (p RemotePointer) ReadPointer(off Offset) (RemotePointer, error) {
	addr, err := p.readAddress(off)
	if err != nil {
		return RemotePointer{}, err
	}
	return New(p.proc, addr), nil
}

// readAddress reads process.PointerSize bytes at base+off as a little-endian
// address.
func (p RemotePointer) readAddress(off Offset) (process.ProcessMemoryAddress, error) {
	proc, err := p.open()
	if err != nil {
		return 0, err
	}
	data, err := proc.ReadMemory(p.Address(off), process.PointerSize)
	if err != nil {
		return 0, err
	}
	return decodeAddress(data)
}

func decodeAddress(data []byte) (process.ProcessMemoryAddress, error) {
	switch len(data) {
	case 8:
		return process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data)), nil
	case 4:
		return process.ProcessMemoryAddress(binary.LittleEndian.Uint32(data)), nil
	}
	return 0, fmt.Errorf("%w: pointer of %d bytes", pod.ErrShortBuffer, len(data))
}

// ReadString decodes text at base+off. It stops at the encoding's terminator
// or after maxLength bytes, whichever comes first; hitting the bound is not an
// error.
func (p RemotePointer) ReadString(off Offset, enc text_encoding.Encoding, maxLength int) (string, error) {
	if enc.IsZero() {
		return "", text_encoding.ErrUnknownEncoding
	}
	proc, err := p.open()
	if err != nil {
		return "", err
	}
	if maxLength <= 0 {
		return "", nil
	}

	addr := p.Address(off)
	data := make([]byte, 0, min(maxLength, stringChunk))
	for len(data) < maxLength {
		cur := addr + process.ProcessMemoryAddress(len(data))
		n := min(maxLength-len(data), stringChunk-int(cur%stringChunk))

		chunk, err := proc.ReadMemory(cur, process.ProcessMemorySize(n))
		if err != nil {
			return "", err
		}
		data = append(data, chunk...)

		if enc.Terminated(data) {
			break
		}
	}

	return enc.Decode(data, maxLength)
}

// ReadStringDefault reads UTF-8 text at the base address, up to
// DefaultMaxStringLength bytes.
func (p RemotePointer) ReadStringDefault() (string, error) {
	return p.ReadString(0, text_encoding.UTF8, DefaultMaxStringLength)
}

// WriteString writes text in enc followed by a terminator at base+off.
func (p RemotePointer) WriteString(off Offset, text string, enc text_encoding.Encoding) error {
	proc, err := p.open()
	if err != nil {
		return err
	}
	data, err := enc.Encode(text)
	if err != nil {
		return err
	}
	return proc.WriteMemory(p.Address(off), data)
}

// WriteStringDefault writes text in the process's default encoding.
func (p RemotePointer) WriteStringDefault(off Offset, text string) error {
	if p.proc == nil {
		return process.ErrProcessNotOpen
	}
	return p.WriteString(off, text, process.DefaultEncoding(p.proc))
}
