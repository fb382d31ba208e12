//go:build linux

package process_linux

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/cespare/xxhash/v2"

	"remotemem/future"
	"remotemem/process"
	"remotemem/process/memory_map"
	"remotemem/text_encoding"
)

// LinuxProcess implements the process.Process interface for Linux systems
type LinuxProcess struct {
	pid       process.ProcessID
	startTime uint64 // clock ticks after boot, distinguishes reused pids
	name      string
	log       *logger.Logger
	opts      options
	limiter   *future.Limiter

	mu     sync.Mutex
	tracer *tracer
	closed bool
}

var _ process.Process = (*LinuxProcess)(nil)
var _ process.Executor = (*LinuxProcess)(nil)
var _ process.DefaultEncoder = (*LinuxProcess)(nil)

// Open attaches to the process with the given PID. Memory access needs the
// same permissions as ptrace (CAP_SYS_PTRACE or a permissive ptrace_scope).
func Open(pid process.ProcessID, opts ...Option) (*LinuxProcess, error) {
	if !procExists(int(pid)) {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}

	st, err := readStat(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read process state: %w", err)
	}
	if !st.State.IsAlive() {
		return nil, fmt.Errorf("process %d: %w (state %s)", pid, process.ErrProcessNotRunning, st.State)
	}

	o := newOptions(opts)
	p := &LinuxProcess{
		pid:       pid,
		startTime: st.StartTime,
		name:      st.Comm,
		log:       logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
		opts:      o,
		limiter:   future.NewLimiter(o.asyncLimit),
	}

	p.log.Infoln("Process opened", p.name)

	return p, nil
}

// OpenByName opens the lowest PID whose comm or exe basename equals name.
func OpenByName(name string, opts ...Option) (*LinuxProcess, error) {
	found, err := OneByName(name)
	if err != nil {
		return nil, err
	}
	return Open(found.PID, opts...)
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.log.Infoln("Closing process")

	if p.tracer != nil {
		p.tracer.stop()
		p.tracer = nil
	}
	p.closed = true

	p.log.Infoln("Process closed")

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	return p.pid
}

func (p *LinuxProcess) Name() string {
	return p.name
}

// IsRunning reads /proc/<pid>/stat on every call. A PID that was reused by a
// new process reports false.
func (p *LinuxProcess) IsRunning() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return false
	}

	st, err := readStat(int(p.pid))
	if err != nil {
		return false
	}
	return st.StartTime == p.startTime && st.State.IsAlive()
}

// Equal reports whether other is the same process instance: same PID and
// same start time.
func (p *LinuxProcess) Equal(other process.Handle) bool {
	o, ok := other.(interface {
		identity() (process.ProcessID, uint64)
	})
	if !ok {
		return false
	}
	pid, startTime := o.identity()
	return pid == p.pid && startTime == p.startTime
}

// identity is promoted to types embedding *LinuxProcess.
func (p *LinuxProcess) identity() (process.ProcessID, uint64) {
	return p.pid, p.startTime
}

func (p *LinuxProcess) Hash() uint64 {
	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], uint64(p.pid))
	binary.LittleEndian.PutUint64(b[8:], p.startTime)
	return xxhash.Sum64(b[:])
}

func (p *LinuxProcess) DefaultEncoding() text_encoding.Encoding {
	return p.opts.encoding
}

// GetMemoryMap returns the current /proc/<pid>/maps, sorted by address.
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	return memory_map.ReadMemoryMap(int(p.pid))
}

func (p *LinuxProcess) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return process.ErrProcessNotOpen
	}
	return nil
}

// getTracer starts the ptrace goroutine on first use.
func (p *LinuxProcess) getTracer() (*tracer, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, process.ErrProcessNotOpen
	}
	if p.tracer == nil {
		p.tracer = newTracer(int(p.pid), p.opts.tracerQueue, p.log)
	}
	return p.tracer, nil
}
