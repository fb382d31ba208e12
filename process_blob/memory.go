package process_blob

import (
	"context"
	"encoding/binary"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"remotemem/future"
	"remotemem/process"
	"remotemem/text_encoding"
)

// Function is Go code standing in for machine code at an address of an
// in-memory process.
type Function func(ctx context.Context, cc process.CallingConvention, args []process.Argument) (process.Result, error)

var nextID atomic.Uint64

// Memory implements process.Process over an address space held in memory. It
// backs offline analysis of saved dumps and tests.
type Memory struct {
	id       uint64
	pid      process.ProcessID
	name     string
	encoding text_encoding.Encoding
	limiter  *future.Limiter
	running  atomic.Bool

	mu        sync.RWMutex
	blobs     []*ProcessBlob // sorted by address, non-overlapping
	functions map[process.ProcessMemoryAddress]Function
}

var _ process.Process = (*Memory)(nil)
var _ process.Executor = (*Memory)(nil)
var _ process.DefaultEncoder = (*Memory)(nil)

// New returns an empty in-memory process.
func New(opts ...Option) *Memory {
	o := newOptions(opts)

	m := &Memory{
		id:        nextID.Add(1),
		pid:       process.ProcessID(o.pid),
		name:      o.name,
		encoding:  o.encoding,
		limiter:   future.NewLimiter(o.asyncLimit),
		functions: make(map[process.ProcessMemoryAddress]Function),
	}
	m.running.Store(o.running)

	return m
}

func (m *Memory) Name() string {
	return m.name
}

func (m *Memory) GetPID() process.ProcessID {
	return m.pid
}

// IsRunning reports whether the process has not exited.
func (m *Memory) IsRunning() bool {
	return m.running.Load()
}

// Exit marks the process as no longer running. Memory stays readable.
func (m *Memory) Exit() {
	m.running.Store(false)
}

// Equal reports whether other is this same in-memory process. Types that
// embed *Memory compare equal to it.
func (m *Memory) Equal(other process.Handle) bool {
	o, ok := other.(interface{ identity() uint64 })
	return ok && o.identity() == m.id
}

func (m *Memory) identity() uint64 {
	return m.id
}

func (m *Memory) Hash() uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], m.id)
	return xxhash.Sum64(b[:])
}

func (m *Memory) DefaultEncoding() text_encoding.Encoding {
	return m.encoding
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.blobs = nil
	m.functions = make(map[process.ProcessMemoryAddress]Function)
	m.running.Store(false)
	return nil
}

// Map adds a zero-filled region. It fails if the region overlaps an existing
// one.
func (m *Memory) Map(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) (*ProcessBlob, error) {
	return m.MapData(addr, make([]byte, size), flags)
}

// MapData adds a region holding data.
func (m *Memory) MapData(addr process.ProcessMemoryAddress, data []byte, flags process.ProtectionFlags) (*ProcessBlob, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("MapData: empty region at %s", addr)
	}

	blob := NewProcessBlob(addr, data, flags)

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, b := range m.blobs {
		if blob.baseaddress < b.End() && b.baseaddress < blob.End() {
			return nil, fmt.Errorf("MapData: region %s+%#x overlaps %s+%#x", addr, len(data), b.baseaddress, len(b.data))
		}
	}

	m.blobs = append(m.blobs, blob)
	sort.Slice(m.blobs, func(i, j int) bool {
		return m.blobs[i].baseaddress < m.blobs[j].baseaddress
	})

	return blob, nil
}

// Regions returns the current protection of every mapped region.
func (m *Memory) Regions() []process.ProtectionRegion {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]process.ProtectionRegion, len(m.blobs))
	for i, b := range m.blobs {
		out[i] = process.ProtectionRegion{Address: b.baseaddress, Size: b.Size(), Flags: b.flags}
	}
	return out
}

// Protection returns the protection at addr.
func (m *Memory) Protection(addr process.ProcessMemoryAddress) (process.ProtectionFlags, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b := m.find(addr)
	if b == nil {
		return process.NoAccess, fmt.Errorf("%w: %s", process.ErrAddressNotMapped, addr)
	}
	return b.flags, nil
}

// find returns the blob containing addr. Callers hold mu.
func (m *Memory) find(addr process.ProcessMemoryAddress) *ProcessBlob {
	i := sort.Search(len(m.blobs), func(i int) bool {
		return m.blobs[i].End() > addr
	})
	if i < len(m.blobs) && m.blobs[i].Contains(addr) {
		return m.blobs[i]
	}
	return nil
}

// walk calls fn for each piece of [addr, addr+size), one per blob. It fails
// before calling fn if any piece is unmapped or lacks the required protection.
// Callers hold mu.
func (m *Memory) walk(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, need process.ProtectionFlags, fn func(b *ProcessBlob, lo, hi int)) error {
	type piece struct {
		b      *ProcessBlob
		lo, hi int
	}

	var pieces []piece
	cursor := addr
	end := addr + process.ProcessMemoryAddress(size)
	if end < addr {
		return fmt.Errorf("%w: range %s+%#x wraps", process.ErrAddressNotMapped, addr, uint64(size))
	}

	for cursor < end {
		b := m.find(cursor)
		if b == nil {
			return fmt.Errorf("%w: %s", process.ErrAddressNotMapped, cursor)
		}
		if b.flags&need != need {
			return fmt.Errorf("%w: %s is %s, need %s", process.ErrAccessViolation, cursor, b.flags, need)
		}

		stop := b.End()
		if stop > end {
			stop = end
		}
		pieces = append(pieces, piece{b, int(cursor - b.baseaddress), int(stop - b.baseaddress)})
		cursor = stop
	}

	for _, p := range pieces {
		fn(p.b, p.lo, p.hi)
	}
	return nil
}

func (m *Memory) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]byte, 0, size)
	err := m.walk(addr, size, process.ProtectionRead, func(b *ProcessBlob, lo, hi int) {
		result = append(result, b.data[lo:hi]...)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (m *Memory) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	written := 0
	return m.walk(addr, process.ProcessMemorySize(len(data)), process.ProtectionWrite, func(b *ProcessBlob, lo, hi int) {
		written += copy(b.data[lo:hi], data[written:])
	})
}

// SetProtection changes the protection of [addr, addr+size), splitting regions
// at the range boundaries, and returns the previous protection per region.
func (m *Memory) SetProtection(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) ([]process.ProtectionRegion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	end := addr + process.ProcessMemoryAddress(size)
	var previous []process.ProtectionRegion

	err := m.walk(addr, size, process.NoAccess, func(b *ProcessBlob, lo, hi int) {
		previous = append(previous, process.ProtectionRegion{
			Address: b.baseaddress + process.ProcessMemoryAddress(lo),
			Size:    process.ProcessMemorySize(hi - lo),
			Flags:   b.flags,
		})
	})
	if err != nil {
		return nil, err
	}

	m.splitAt(addr)
	m.splitAt(end)

	for _, b := range m.blobs {
		if b.baseaddress >= addr && b.End() <= end {
			b.flags = flags
		}
	}

	return previous, nil
}

// splitAt makes addr a region boundary. Callers hold mu.
func (m *Memory) splitAt(addr process.ProcessMemoryAddress) {
	b := m.find(addr)
	if b == nil || b.baseaddress == addr {
		return
	}

	upper := b.split(addr)
	m.blobs = append(m.blobs, upper)
	sort.Slice(m.blobs, func(i, j int) bool {
		return m.blobs[i].baseaddress < m.blobs[j].baseaddress
	})
}

// Register places fn at addr so that executing addr calls it. The region
// holding addr must be executable when the call is made.
func (m *Memory) Register(addr process.ProcessMemoryAddress, fn Function) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.functions[addr] = fn
}

func (m *Memory) Executor() process.Executor {
	return m
}

// Execute runs the function registered at addr.
func (m *Memory) Execute(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
	if !m.IsRunning() {
		return process.Result{}, fmt.Errorf("%w: %w", process.ErrExecutionFailed, process.ErrProcessNotRunning)
	}

	m.mu.RLock()
	fn, ok := m.functions[addr]
	b := m.find(addr)
	m.mu.RUnlock()

	if b == nil {
		return process.Result{}, fmt.Errorf("%w: %w: %s", process.ErrExecutionFailed, process.ErrAddressNotMapped, addr)
	}
	if !b.flags.CanExecute() {
		return process.Result{}, fmt.Errorf("%w: %w: %s is %s", process.ErrExecutionFailed, process.ErrAccessViolation, addr, b.flags)
	}
	if !ok {
		return process.Result{}, fmt.Errorf("%w: no code at %s", process.ErrExecutionFailed, addr)
	}

	return fn(ctx, cc, args)
}

// ExecuteAsync runs Execute on another goroutine.
func (m *Memory) ExecuteAsync(ctx context.Context, addr process.ProcessMemoryAddress, cc process.CallingConvention, args []process.Argument) *future.Future[process.Result] {
	return future.Go(ctx, m.limiter, func(ctx context.Context) (process.Result, error) {
		return m.Execute(ctx, addr, cc, args)
	})
}
