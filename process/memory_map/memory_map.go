package memory_map

import (
	"fmt"
	"sort"

	"remotemem/process"
)

// MemoryMapItem represents a memory region in a process's address space
type MemoryMapItem struct {
	Address uint64 // The starting address of the memory region
	Size    uint   // The size of the memory region in bytes
	Perms   string // Permissions (e.g., "r-xp" for read, execute, private)
}

// String returns a string representation of the memory map item
func (mmItem MemoryMapItem) String() string {
	return fmt.Sprintf("Address: %x, Size: %d, Perms: %s", mmItem.Address, mmItem.Size, mmItem.Perms)
}

func (mmItem MemoryMapItem) End() uint64 {
	return mmItem.Address + uint64(mmItem.Size)
}

func (mmItem MemoryMapItem) IsReadable() bool {
	return mmItem.Flags().CanRead()
}

func (mmItem MemoryMapItem) IsWritable() bool {
	return mmItem.Flags().CanWrite()
}

// Flags converts the permission string into protection flags
func (mmItem MemoryMapItem) Flags() process.ProtectionFlags {
	return process.ParsePerms(mmItem.Perms)
}

// Sort orders the memory map by address, as required by Find and Covering
func Sort(memoryMap []MemoryMapItem) {
	sort.Slice(memoryMap, func(i, j int) bool {
		return memoryMap[i].Address < memoryMap[j].Address
	})
}

// Find returns the region containing addr in a sorted memory map
func Find(addr uint64, memoryMap []MemoryMapItem) *MemoryMapItem {
	i := sort.Search(len(memoryMap), func(i int) bool {
		return memoryMap[i].End() > addr
	})
	if i < len(memoryMap) && memoryMap[i].Address <= addr {
		return &memoryMap[i]
	}

	return nil
}

// Covering returns the protection of every region overlapping
// [addr, addr+size), clipped to that range. It fails with
// process.ErrAddressNotMapped if any part of the range is unmapped.
func Covering(addr uint64, size uint64, memoryMap []MemoryMapItem) ([]process.ProtectionRegion, error) {
	if size == 0 {
		return nil, nil
	}

	end := addr + size
	cursor := addr
	var regions []process.ProtectionRegion

	for cursor < end {
		item := Find(cursor, memoryMap)
		if item == nil {
			return nil, fmt.Errorf("%w: %#x", process.ErrAddressNotMapped, cursor)
		}

		stop := item.End()
		if stop > end {
			stop = end
		}

		regions = append(regions, process.ProtectionRegion{
			Address: process.ProcessMemoryAddress(cursor),
			Size:    process.ProcessMemorySize(stop - cursor),
			Flags:   item.Flags(),
		})
		cursor = stop
	}

	return regions, nil
}
