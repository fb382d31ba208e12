//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"remotemem/process"
	"remotemem/process/memory_map"
)

// process_vm_readv uses the process_vm_readv syscall to read memory from another process
func process_vm_readv(
	pid process.ProcessID,
	remoteAddr process.ProcessMemoryAddress,
	bytesToRead process.ProcessMemorySize,
) ([]byte, error) {
	localBuf := make([]byte, bytesToRead)

	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(bytesToRead),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  int(bytesToRead),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_READV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return nil, errno
	}

	// process_vm_readv stops at the first inaccessible page
	if int(n) != int(bytesToRead) {
		return nil, fmt.Errorf("partial read: %d of %d bytes: %w", n, bytesToRead, unix.EFAULT)
	}

	return localBuf, nil
}

// ReadMemory reads memory from the process at the specified address
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}

	data, err := process_vm_readv(p.pid, addr, size)
	if err != nil {
		return nil, p.classify(addr, size, process.ProtectionRead, err)
	}

	return data, nil
}

// classify turns a process_vm_readv/writev failure into one of the process
// sentinel errors.
func (p *LinuxProcess) classify(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, need process.ProtectionFlags, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("%w: %w", process.ErrProcessNotRunning, err)
	case errors.Is(err, unix.EFAULT):
		mm, mmErr := memory_map.ReadMemoryMap(int(p.pid))
		if mmErr != nil {
			return fmt.Errorf("%w: %s: %w", process.ErrAddressNotMapped, addr, err)
		}
		regions, cerr := memory_map.Covering(uint64(addr), uint64(size), mm)
		if cerr != nil {
			return fmt.Errorf("%s+%#x: %w", addr, uint64(size), cerr)
		}
		for _, r := range regions {
			if r.Flags&need != need {
				return fmt.Errorf("%w: %s is %s", process.ErrAccessViolation, r.Address, r.Flags)
			}
		}
		return fmt.Errorf("%w: %s: %w", process.ErrAccessViolation, addr, err)
	}
	return err
}
