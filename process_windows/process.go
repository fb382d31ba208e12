//go:build windows

package process_windows

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/cespare/xxhash/v2"
	"golang.org/x/sys/windows"

	"remotemem/future"
	"remotemem/process"
	"remotemem/process/memory_map"
	"remotemem/text_encoding"
)

// GetExitCodeProcess reports this while the process runs.
const stillActive = 259

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid          process.ProcessID
	creationTime int64
	log          *logger.Logger
	encoding     text_encoding.Encoding
	limiter      *future.Limiter

	mu     sync.Mutex
	handle windows.Handle
}

var _ process.Process = (*WindowsProcess)(nil)
var _ process.Executor = (*WindowsProcess)(nil)
var _ process.DefaultEncoder = (*WindowsProcess)(nil)

// Open opens the process with the given PID.
func Open(pid process.ProcessID, opts ...Option) (*WindowsProcess, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess failed: %w", err)
	}

	var creation, exit, kernel, user windows.Filetime
	if err := windows.GetProcessTimes(handle, &creation, &exit, &kernel, &user); err != nil {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("GetProcessTimes failed: %w", err)
	}

	o := newOptions(opts)
	p := &WindowsProcess{
		pid:          pid,
		creationTime: creation.Nanoseconds(),
		handle:       handle,
		log:          logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
		encoding:     o.encoding,
		limiter:      future.NewLimiter(o.asyncLimit),
	}

	p.log.Infoln("Process opened")
	return p, nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.log.Infoln("Process closed")

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	return p.pid
}

func (p *WindowsProcess) getHandle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, process.ErrProcessNotOpen
	}
	return p.handle, nil
}

// IsRunning asks GetExitCodeProcess on every call.
func (p *WindowsProcess) IsRunning() bool {
	handle, err := p.getHandle()
	if err != nil {
		return false
	}

	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return false
	}
	return code == stillActive
}

// Equal reports whether other is the same process instance: same PID and
// same creation time.
func (p *WindowsProcess) Equal(other process.Handle) bool {
	o, ok := other.(interface {
		identity() (process.ProcessID, int64)
	})
	if !ok {
		return false
	}
	pid, creationTime := o.identity()
	return pid == p.pid && creationTime == p.creationTime
}

// identity is promoted to types embedding *WindowsProcess.
func (p *WindowsProcess) identity() (process.ProcessID, int64) {
	return p.pid, p.creationTime
}

func (p *WindowsProcess) Hash() uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(p.pid))
	binary.LittleEndian.PutUint64(b[8:], uint64(p.creationTime))
	return xxhash.Sum64(b[:])
}

func (p *WindowsProcess) DefaultEncoding() text_encoding.Encoding {
	return p.encoding
}

// GetMemoryMap walks the address space with VirtualQueryEx and returns the
// committed regions.
func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	handle, err := p.getHandle()
	if err != nil {
		return nil, err
	}

	var mm []memory_map.MemoryMapItem
	var addr uintptr
	for {
		var mbi windows.MemoryBasicInformation
		if err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			break // end of the user address space
		}
		if mbi.RegionSize == 0 {
			break
		}

		if mbi.State == windows.MEM_COMMIT {
			mm = append(mm, memory_map.MemoryMapItem{
				Address: uint64(mbi.BaseAddress),
				Size:    uint(mbi.RegionSize),
				Perms:   fromPageProtect(mbi.Protect).String() + "p",
			})
		}

		next := mbi.BaseAddress + mbi.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	return mm, nil
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, p.classify(addr, "ReadProcessMemory", err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("%w: read incomplete: expected %d, got %d", process.ErrAddressNotMapped, size, bytesRead)
	}

	return buf, nil
}

// WriteMemory honours page protection: read-only pages fail with
// process.ErrAccessViolation.
func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	handle, err := p.getHandle()
	if err != nil {
		return err
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written); err != nil {
		return p.classify(addr, "WriteProcessMemory", err)
	}

	if written != uintptr(len(data)) {
		return fmt.Errorf("%w: only wrote %d of %d bytes", process.ErrAccessViolation, written, len(data))
	}

	return nil
}

func (p *WindowsProcess) classify(addr process.ProcessMemoryAddress, op string, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_PARTIAL_COPY), errors.Is(err, windows.ERROR_NOACCESS):
		return fmt.Errorf("%w: %s %s: %w", process.ErrAccessViolation, op, addr, err)
	case errors.Is(err, windows.ERROR_INVALID_ADDRESS):
		return fmt.Errorf("%w: %s %s: %w", process.ErrAddressNotMapped, op, addr, err)
	}
	if !p.IsRunning() {
		return fmt.Errorf("%w: %s: %w", process.ErrProcessNotRunning, op, err)
	}
	return fmt.Errorf("%s %s failed: %w", op, addr, err)
}
