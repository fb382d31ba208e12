//go:build windows

package process_windows

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"remotemem/process"
)

// toPageProtect maps flags to a PAGE_* constant. Write without read has no
// Windows equivalent and becomes read-write.
func toPageProtect(f process.ProtectionFlags) uint32 {
	switch {
	case f.CanExecute() && f.CanWrite():
		return windows.PAGE_EXECUTE_READWRITE
	case f.CanExecute() && f.CanRead():
		return windows.PAGE_EXECUTE_READ
	case f.CanExecute():
		return windows.PAGE_EXECUTE
	case f.CanWrite():
		return windows.PAGE_READWRITE
	case f.CanRead():
		return windows.PAGE_READONLY
	}
	return windows.PAGE_NOACCESS
}

// fromPageProtect drops the GUARD, NOCACHE and WRITECOMBINE modifiers and
// reports copy-on-write as writable. The raw value is kept in
// ProtectionRegion.Native so RestoreProtection can put it back.
func fromPageProtect(protect uint32) process.ProtectionFlags {
	switch protect &^ (windows.PAGE_GUARD | windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return process.ReadOnly
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return process.ReadWrite
	case windows.PAGE_EXECUTE:
		return process.ExecuteOnly
	case windows.PAGE_EXECUTE_READ:
		return process.ExecuteRead
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return process.ExecuteReadWrite
	}
	return process.NoAccess
}

// SetProtection queries every region in the range, then applies flags with a
// single VirtualProtectEx. Each returned region carries its PAGE_* value.
func (p *WindowsProcess) SetProtection(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) ([]process.ProtectionRegion, error) {
	handle, err := p.getHandle()
	if err != nil {
		return nil, err
	}

	end := uintptr(addr) + uintptr(size)
	var regions []process.ProtectionRegion

	for cursor := uintptr(addr); cursor < end; {
		var mbi windows.MemoryBasicInformation
		if err := windows.VirtualQueryEx(handle, cursor, &mbi, unsafe.Sizeof(mbi)); err != nil {
			return nil, fmt.Errorf("%w: VirtualQueryEx %#x: %w", process.ErrAddressNotMapped, cursor, err)
		}
		if mbi.State != windows.MEM_COMMIT {
			return nil, fmt.Errorf("%w: %#x is not committed", process.ErrAddressNotMapped, cursor)
		}

		stop := mbi.BaseAddress + mbi.RegionSize
		if stop > end {
			stop = end
		}
		regions = append(regions, process.ProtectionRegion{
			Address: process.ProcessMemoryAddress(cursor),
			Size:    process.ProcessMemorySize(stop - cursor),
			Flags:   fromPageProtect(mbi.Protect),
			Native:  mbi.Protect,
		})
		cursor = stop
	}

	var old uint32
	if err := windows.VirtualProtectEx(handle, uintptr(addr), uintptr(size), toPageProtect(flags), &old); err != nil {
		return nil, fmt.Errorf("%w: VirtualProtectEx %s: %w", process.ErrAccessViolation, addr, err)
	}

	p.log.Debugln("SetProtection", addr, size, flags)
	return regions, nil
}

// restoreProtect is the PAGE_* value that puts r back as it was recorded.
func restoreProtect(r process.ProtectionRegion) uint32 {
	if r.Native != 0 {
		return r.Native
	}
	return toPageProtect(r.Flags)
}

// RestoreProtection applies the exact protection SetProtection recorded,
// modifiers included.
func (p *WindowsProcess) RestoreProtection(r process.ProtectionRegion) error {
	handle, err := p.getHandle()
	if err != nil {
		return err
	}

	var old uint32
	if err := windows.VirtualProtectEx(handle, uintptr(r.Address), uintptr(r.Size), restoreProtect(r), &old); err != nil {
		return fmt.Errorf("%w: VirtualProtectEx %s: %w", process.ErrAccessViolation, r.Address, err)
	}

	p.log.Debugln("RestoreProtection", r.Address, r.Size, fmt.Sprintf("%#x", r.Native))
	return nil
}
