//go:build linux

package process_linux

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"remotemem/process"
)

// process_vm_writev uses the process_vm_writev syscall to write memory to another process
func process_vm_writev(
	pid process.ProcessID,
	localBuf []byte,
	remoteAddr process.ProcessMemoryAddress,
) (int, error) {
	localIov := unix.Iovec{
		Base: &localBuf[0],
		Len:  uint64(len(localBuf)),
	}

	remoteIov := unix.RemoteIovec{
		Base: uintptr(remoteAddr),
		Len:  len(localBuf),
	}

	n, _, errno := unix.Syscall6(
		unix.SYS_PROCESS_VM_WRITEV,
		uintptr(pid),                        // Remote process PID
		uintptr(unsafe.Pointer(&localIov)),  // Local iovec
		uintptr(1),                          // Number of local iovecs
		uintptr(unsafe.Pointer(&remoteIov)), // Remote iovec
		uintptr(1),                          // Number of remote iovecs
		uintptr(0),                          // Flags (reserved for future use)
	)

	if errno != 0 {
		return 0, errno
	}

	return int(n), nil
}

// WriteMemory writes data to the process memory at the specified address.
// Protection is honoured: read-only pages fail with process.ErrAccessViolation.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if err := p.checkOpen(); err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	size := process.ProcessMemorySize(len(data))

	written, err := process_vm_writev(p.pid, data, addr)
	if err != nil {
		return p.classify(addr, size, process.ProtectionWrite, err)
	}

	if written != len(data) {
		return p.classify(addr, size, process.ProtectionWrite, fmt.Errorf("only wrote %d of %d bytes: %w", written, len(data), unix.EFAULT))
	}

	return nil
}
