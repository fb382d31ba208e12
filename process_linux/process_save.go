//go:build linux

package process_linux

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"remotemem/process"
)

// MaxSavedRegionSize is the largest region Save writes out; bigger regions
// are listed in the memory map without a blob.
var MaxSavedRegionSize uint = 100 * 1024 * 1024

// Save writes the readable memory of the process to dirname in the layout
// read by process_blob.Load.
func (p *LinuxProcess) Save(dirname string) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	p.log.Infoln("Saving process to directory:", dirname)

	metadata := struct {
		PID  process.ProcessID `json:"pid"`
		Name string            `json:"name"`
	}{
		PID:  p.pid,
		Name: p.name,
	}

	metadataJSON, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "metadata.json"), metadataJSON, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	memoryMapJSON, err := json.MarshalIndent(mm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory map: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "process_memory_map.json"), memoryMapJSON, 0644); err != nil {
		return fmt.Errorf("failed to write memory map file: %w", err)
	}

	savedCount := 0
	errorCount := 0

	for _, region := range mm {
		if !region.IsReadable() {
			continue
		}

		if region.Size > MaxSavedRegionSize {
			p.log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address), "(size:", region.Size/1024/1024, "MB)")
			continue
		}

		data, err := p.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			// [vvar] and friends are listed readable but refuse process_vm_readv
			p.log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			errorCount++
			continue
		}

		filename := filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size))
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return fmt.Errorf("failed to write blob %s: %w", filename, err)
		}
		savedCount++
	}

	p.log.Infoln("Process dump saved successfully:", savedCount, "regions saved,", errorCount, "errors")

	return nil
}
