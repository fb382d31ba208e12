package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"remotemem/hexdump"
	"remotemem/process"
	"remotemem/process/memory_map"
	"remotemem/remote_pointer"
)

type memoryMapper interface {
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)
}

type regionLister interface {
	Regions() []process.ProtectionRegion
}

type saver interface {
	Save(dirname string) error
}

// targetMemoryMap returns the regions of proc in memory map form, or nil
// when the target cannot list them.
func targetMemoryMap(proc process.Process) []memory_map.MemoryMapItem {
	switch t := proc.(type) {
	case memoryMapper:
		mm, err := t.GetMemoryMap()
		if err != nil {
			return nil
		}
		return mm
	case regionLister:
		return regionsToMap(t.Regions())
	}
	return nil
}

func regionsToMap(regions []process.ProtectionRegion) []memory_map.MemoryMapItem {
	mm := make([]memory_map.MemoryMapItem, len(regions))
	for i, r := range regions {
		mm[i] = memory_map.MemoryMapItem{
			Address: uint64(r.Address),
			Size:    uint(r.Size),
			Perms:   r.Flags.String() + "p",
		}
	}
	return mm
}

// dumpAt hexdumps size bytes at p, marking words that point into the
// target's mapped memory.
func dumpAt(p remote_pointer.RemotePointer, size int) error {
	data, err := remote_pointer.ReadSlice[byte](p, 0, size)
	if err != nil {
		return err
	}
	fmt.Print(hexdump.HexdumpBasic(data, p.Base(), targetMemoryMap(p.Process())))
	return nil
}

var regions = cli.Command{
	Name:  "regions",
	Usage: "list the memory regions of the target",
	Action: func(c *cli.Context) error {
		if err := checkArgs(c, 0, exactArgs); err != nil {
			return err
		}

		proc, err := openTarget(c)
		if err != nil {
			return err
		}
		defer proc.Close()

		switch t := proc.(type) {
		case memoryMapper:
			mm, err := t.GetMemoryMap()
			if err != nil {
				return err
			}
			for _, region := range mm {
				fmt.Printf("  %016x - %016x (%s) %d bytes\n", region.Address, region.End(), region.Perms, region.Size)
			}
		case regionLister:
			for _, region := range t.Regions() {
				fmt.Printf("  %016x - %016x (%s) %d bytes\n", uint64(region.Address), uint64(region.End()), region.Flags, region.Size)
			}
		default:
			return fmt.Errorf("process %d cannot list its regions", proc.GetPID())
		}
		return nil
	},
}

var dump = cli.Command{
	Name:  "dump",
	Usage: "save the readable memory of the target to a directory",
	Flags: []cli.Flag{
		cli.StringFlag{Name: "output", Usage: "output directory for the dump"},
	},
	Action: func(c *cli.Context) error {
		output := c.String("output")
		if output == "" {
			return fmt.Errorf("--output is required")
		}
		if err := os.MkdirAll(output, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}

		proc, err := openTarget(c)
		if err != nil {
			return err
		}
		defer proc.Close()

		s, ok := proc.(saver)
		if !ok {
			return fmt.Errorf("process %d cannot be saved on this platform", proc.GetPID())
		}

		fmt.Printf("Saving dump of process %d to %s...\n", proc.GetPID(), output)
		if err := s.Save(output); err != nil {
			return fmt.Errorf("error saving dump: %w", err)
		}
		fmt.Println("Dump saved")
		return nil
	},
}
