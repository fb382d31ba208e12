//go:build linux

package process_linux

import (
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"remotemem/process"
)

func TestParseStat(t *testing.T) {
	line := "4242 (my (odd) prog) S 1 4242 4242 0 -1 4194560 100 0 0 0 1 2 0 0 20 0 1 0 98765 1234567 89 18446744073709551615\n"

	st, err := parseStat([]byte(line))
	require.NoError(t, err)
	assert.Equal(t, "my (odd) prog", st.Comm)
	assert.Equal(t, process.ProcessSleeping, st.State)
	assert.Equal(t, 1, st.PPID)
	assert.Equal(t, uint64(98765), st.StartTime)
	assert.True(t, st.State.IsAlive())
}

func TestParseStatZombie(t *testing.T) {
	line := "7 (defunct) Z 1 7 7 0 -1 0 0 0 0 0 0 0 0 0 20 0 1 0 555 0 0"

	st, err := parseStat([]byte(line))
	require.NoError(t, err)
	assert.False(t, st.State.IsAlive())
}

func TestParseStatMalformed(t *testing.T) {
	_, err := parseStat([]byte("garbage"))
	assert.Error(t, err)

	_, err = parseStat([]byte("1 (x) S 1 2"))
	assert.Error(t, err)
}

func TestReadStatSelf(t *testing.T) {
	st, err := readStat(os.Getpid())
	require.NoError(t, err)
	assert.True(t, st.State.IsAlive())
	assert.NotZero(t, st.StartTime)
}

func TestLayoutCallRegisters(t *testing.T) {
	l, err := layoutCall([]process.Argument{
		process.Int32(-1),
		process.Float64(2.5),
		process.Pointer(0x1000),
		process.Float32(1),
	})
	require.NoError(t, err)

	assert.Equal(t, []uint64{0xFFFFFFFFFFFFFFFF, 0x1000}, l.ints)
	assert.Equal(t, []uint64{process.Float64(2.5).Bits, process.Float32(1).Bits}, l.floats)
	assert.Empty(t, l.stack)
}

func TestLayoutCallSpillsToStack(t *testing.T) {
	var args []process.Argument
	for i := range 8 {
		args = append(args, process.Uint64(uint64(i)))
	}

	l, err := layoutCall(args)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1, 2, 3, 4, 5}, l.ints)
	assert.Equal(t, []uint64{6, 7}, l.stack)
}

func TestLayoutCallRejectsAggregate(t *testing.T) {
	_, err := layoutCall([]process.Argument{process.Aggregate([]byte{1})})
	assert.ErrorIs(t, err, process.ErrUnsupportedArgument)
}

func TestStackFrameAlignment(t *testing.T) {
	for _, sp := range []uint64{0x7ffc0000, 0x7ffc0008, 0x7ffc0003} {
		for n := range 4 {
			stack := make([]uint64, n)
			for i := range stack {
				stack[i] = uint64(0xA0 + i)
			}

			entry, image := stackFrame(sp, stack)
			assert.Zero(t, (entry+8)%16, "sp=%#x n=%d", sp, n)
			assert.LessOrEqual(t, entry+uint64(len(image)), sp-redZone)
			assert.Len(t, image, 8+8*n)
			assert.Equal(t, make([]byte, 8), image[:8], "return address is zero")
		}
	}
}

func TestSupportedConvention(t *testing.T) {
	assert.True(t, supportedConvention(process.CallingConventionDefault))
	assert.True(t, supportedConvention(process.CallingConventionSystemV))
	assert.False(t, supportedConvention(process.CallingConventionStdcall))
	assert.False(t, supportedConvention(process.CallingConventionWin64))
}

func TestPageAlign(t *testing.T) {
	page := uint64(unix.Getpagesize())

	start, length := pageAlign(page+1, 2)
	assert.Equal(t, page, start)
	assert.Equal(t, page, length)

	start, length = pageAlign(page-1, 2)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, 2*page, length)
}

func TestProtFlags(t *testing.T) {
	assert.Equal(t, uint64(unix.PROT_READ|unix.PROT_EXEC), protFlags(process.ExecuteRead))
	assert.Equal(t, uint64(0), protFlags(process.NoAccess))
}

func TestOpenSelfReadWrite(t *testing.T) {
	p, err := Open(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.IsRunning())
	assert.True(t, p.Equal(p))

	buf := []byte("remote bytes")
	addr := process.ProcessMemoryAddress(uintptrOf(buf))

	data, err := p.ReadMemory(addr, process.ProcessMemorySize(len(buf)))
	if err != nil {
		t.Skip("process_vm_readv not permitted:", err)
	}
	assert.Equal(t, buf, data)

	require.NoError(t, p.WriteMemory(addr, []byte("R")))
	assert.Equal(t, byte('R'), buf[0])

	require.NoError(t, p.Close())
	assert.False(t, p.IsRunning())
	_, err = p.ReadMemory(addr, 1)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)
}

type tracedProcess struct {
	*LinuxProcess
}

func TestEqualThroughEmbedding(t *testing.T) {
	p, err := Open(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer p.Close()

	w := tracedProcess{p}
	assert.True(t, w.Equal(w))
	assert.True(t, p.Equal(w))
	assert.Equal(t, p.Hash(), w.Hash())

	other := &LinuxProcess{pid: p.pid, startTime: p.startTime + 1}
	assert.False(t, p.Equal(other), "pid reused by a later process")
}

func TestCloseKeepsLogger(t *testing.T) {
	p, err := Open(process.ProcessID(os.Getpid()))
	require.NoError(t, err)

	log := p.log
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = p.Save(t.TempDir())
	}()
	require.NoError(t, p.Close())
	<-done

	assert.Same(t, log, p.log)
	require.NoError(t, p.Close())
}

func TestReadUnmapped(t *testing.T) {
	p, err := Open(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer p.Close()

	_, err = p.ReadMemory(0x10, 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}

func uintptrOf(b []byte) uintptr {
	return uintptr(unsafe.Pointer(&b[0]))
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(process.ProcessID(0x7FFFFFF0))
	assert.Error(t, err)
}

func TestMatchName(t *testing.T) {
	m := &Match{Comm: "short-comm", Exe: "/usr/bin/long-program-name"}
	assert.True(t, m.matches("short-comm"))
	assert.True(t, m.matches("long-program-name"))
	assert.False(t, m.matches("usr"))

	m.Exe = ""
	assert.False(t, m.matches(""))
}

func TestOneByNameNoMatch(t *testing.T) {
	_, err := OneByName("")
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = OneByName("no-such-process-name-0123456789")
	assert.ErrorIs(t, err, ErrNoMatch)
}
