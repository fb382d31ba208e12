package main

import (
	"context"
	"fmt"
	"math"

	"remotemem/pod"
	"remotemem/process"
	"remotemem/process_blob"
	"remotemem/remote_pointer"
	"remotemem/text_encoding"
)

// PlayerData represents the specific data for a player unit
type PlayerData struct {
	Name      [16]byte `pod:"char_array"`
	QuestPath uint64
}

// UnitAny is a generic game unit structure
type UnitAny struct {
	Type      uint32
	TxtFileNo uint32
	UnitID    uint32
	Mode      uint32
	Data      uint64 // address of a PlayerData
	Act       uint32
	_         uint32
	Seed      [2]uint32
}

const (
	unitAddr   process.ProcessMemoryAddress = 0x10000
	playerAddr process.ProcessMemoryAddress = 0x10100
	tableAddr  process.ProcessMemoryAddress = 0x20000
	codeAddr   process.ProcessMemoryAddress = 0x400000
)

// newTarget builds an in-memory process: a unit table pointing at a unit,
// which points at its player data, and one callable function.
func newTarget() (*process_blob.Memory, error) {
	m := process_blob.New(process_blob.WithName("example"), process_blob.WithRunning(true))

	if _, err := m.Map(unitAddr, 0x1000, process.ReadWrite); err != nil {
		return nil, err
	}
	if _, err := m.Map(tableAddr, 0x1000, process.ReadOnly); err != nil {
		return nil, err
	}
	if _, err := m.Map(codeAddr, 0x1000, process.ExecuteRead); err != nil {
		return nil, err
	}

	// GetUnitHealth(unitID) returns unitID * 10 as a double
	m.Register(codeAddr, func(ctx context.Context, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
		return process.Result{Float: math.Float64bits(float64(args[0].Bits) * 10)}, nil
	})

	return m, nil
}

func run() error {
	m, err := newTarget()
	if err != nil {
		return err
	}
	defer m.Close()

	unit := remote_pointer.New(m, unitAddr)
	player := remote_pointer.New(m, playerAddr)

	// 1. Write the structures
	if err := remote_pointer.Write(unit, UnitAny{Type: 0, UnitID: 7, Data: uint64(playerAddr), Seed: [2]uint32{1, 2}}); err != nil {
		return err
	}
	var pd PlayerData
	copy(pd.Name[:], "Amazon")
	if err := remote_pointer.Write(player, pd); err != nil {
		return err
	}

	// 2. The table is read-only; unprotect it for the write and restore it
	table := remote_pointer.New(m, tableAddr)
	err = table.WithProtection(0x1000, process.ReadWrite, func() error {
		return remote_pointer.WriteAt(table, remote_pointer.OffsetOf(uint8(3))*8, uint64(unitAddr))
	})
	if err != nil {
		return err
	}

	// 3. Read the unit back through the pointer chain table[3] -> unit -> Data
	dataField, err := remote_pointer.ToOffset(16)
	if err != nil {
		return err
	}
	chain := remote_pointer.NewChain(table, 3*8, dataField, 0)
	resolved, hops, err := chain.ResolveTrace()
	if err != nil {
		return err
	}
	for _, h := range hops {
		fmt.Println(h)
	}

	got, err := remote_pointer.Read[PlayerData](resolved)
	if err != nil {
		return err
	}
	name, err := resolved.ReadString(0, text_encoding.UTF8, len(got.Name))
	if err != nil {
		return err
	}
	fmt.Printf("Player at %s (%s): %q, struct size %d\n", resolved, resolved.Kind(), name, pod.SizeOf[PlayerData]())
	fmt.Println("same address as the plain pointer, different kind:", resolved.Equal(player))

	// 4. Call the function synchronously and asynchronously
	fn := remote_pointer.New(m, codeAddr)
	ctx := context.Background()

	health, err := remote_pointer.Execute[float64](ctx, fn, process.Uint32(7))
	if err != nil {
		return err
	}
	fmt.Printf("GetUnitHealth(7) = %v\n", health)

	f := remote_pointer.ExecuteAsync[float64](ctx, fn, process.Uint32(9))
	health, err = f.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("GetUnitHealth(9) = %v\n", health)

	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Printf("Example failed: %v\n", err)
	}
}
