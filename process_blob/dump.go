package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"remotemem/process"
	"remotemem/process/memory_map"
)

type metadata struct {
	PID  process.ProcessID `json:"pid"`
	Name string            `json:"name"`
}

func blobFilename(dirname string, addr uint64, size uint) string {
	return filepath.Join(dirname, fmt.Sprintf("blob_0x%x_%d.bin", addr, size))
}

// Save writes the address space to dirname: metadata.json,
// process_memory_map.json and one blob_0x<addr>_<size>.bin per region.
func (m *Memory) Save(dirname string) error {
	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create dump directory: %w", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	meta, err := json.MarshalIndent(metadata{PID: m.pid, Name: m.name}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "metadata.json"), meta, 0644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	mm := make([]memory_map.MemoryMapItem, 0, len(m.blobs))
	for _, b := range m.blobs {
		item := memory_map.MemoryMapItem{
			Address: uint64(b.baseaddress),
			Size:    uint(len(b.data)),
			Perms:   b.flags.String() + "p",
		}
		mm = append(mm, item)

		if err := os.WriteFile(blobFilename(dirname, item.Address, item.Size), b.data, 0644); err != nil {
			return fmt.Errorf("failed to write blob %s: %w", item, err)
		}
	}

	mmBytes, err := json.MarshalIndent(mm, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory map: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dirname, "process_memory_map.json"), mmBytes, 0644); err != nil {
		return fmt.Errorf("failed to write memory map: %w", err)
	}

	return nil
}

// Load reads a dump written by Save, or by a live backend using the same
// layout. Regions without a blob file are skipped. The loaded process is
// not running unless an option says otherwise.
func Load(dirname string, opts ...Option) (*Memory, error) {
	metaBytes, err := os.ReadFile(filepath.Join(dirname, "metadata.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var meta metadata
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, "process_memory_map.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	var mm []memory_map.MemoryMapItem
	if err := json.Unmarshal(mmBytes, &mm); err != nil {
		return nil, fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.Sort(mm)

	base := []Option{WithPID(int(meta.PID)), WithName(meta.Name), WithRunning(false)}
	m := New(append(base, opts...)...)

	for _, region := range mm {
		filename := blobFilename(dirname, region.Address, region.Size)
		data, err := os.ReadFile(filename)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read blob %s: %w", filename, err)
		}

		if _, err := m.MapData(process.ProcessMemoryAddress(region.Address), data, region.Flags()); err != nil {
			return nil, err
		}
	}

	return m, nil
}
