//go:build windows

package process_windows

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/windows"

	"remotemem/process"
)

func TestPageProtectRoundTrip(t *testing.T) {
	for _, f := range []process.ProtectionFlags{
		process.NoAccess,
		process.ReadOnly,
		process.ReadWrite,
		process.ExecuteOnly,
		process.ExecuteRead,
		process.ExecuteReadWrite,
	} {
		assert.Equal(t, f, fromPageProtect(toPageProtect(f)), f.String())
	}
}

func TestPageProtectModifiers(t *testing.T) {
	assert.Equal(t, process.ReadWrite, fromPageProtect(windows.PAGE_WRITECOPY))
	assert.Equal(t, process.ReadOnly, fromPageProtect(windows.PAGE_READONLY|windows.PAGE_GUARD))
	assert.Equal(t, uint32(windows.PAGE_READWRITE), toPageProtect(process.ProtectionWrite))
}

func TestRestoreProtectKeepsModifiers(t *testing.T) {
	for _, tc := range []struct {
		name    string
		protect uint32
		flags   process.ProtectionFlags
	}{
		{"writecopy", windows.PAGE_WRITECOPY, process.ReadWrite},
		{"execute writecopy", windows.PAGE_EXECUTE_WRITECOPY, process.ExecuteReadWrite},
		{"guard", windows.PAGE_READONLY | windows.PAGE_GUARD, process.ReadOnly},
		{"nocache", windows.PAGE_READWRITE | windows.PAGE_NOCACHE, process.ReadWrite},
		{"writecombine", windows.PAGE_READWRITE | windows.PAGE_WRITECOMBINE, process.ReadWrite},
		{"plain", windows.PAGE_EXECUTE_READ, process.ExecuteRead},
	} {
		t.Run(tc.name, func(t *testing.T) {
			r := process.ProtectionRegion{Address: 0x1000, Size: 0x1000, Flags: fromPageProtect(tc.protect), Native: tc.protect}
			assert.Equal(t, tc.flags, r.Flags)
			assert.Equal(t, tc.protect, restoreProtect(r))
		})
	}

	r := process.ProtectionRegion{Address: 0x1000, Size: 0x1000, Flags: process.ExecuteRead}
	assert.Equal(t, uint32(windows.PAGE_EXECUTE_READ), restoreProtect(r), "no native value falls back to flags")
}

func TestThreadParameter(t *testing.T) {
	a, err := threadParameter(process.CallingConventionDefault, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), a.Bits)

	a, err = threadParameter(process.CallingConventionWin64, []process.Argument{process.Uint32(7)})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), a.Bits)

	_, err = threadParameter(process.CallingConventionDefault, []process.Argument{process.Int32(1), process.Int32(2)})
	assert.ErrorIs(t, err, process.ErrUnsupportedArgument)

	_, err = threadParameter(process.CallingConventionDefault, []process.Argument{process.Float64(1)})
	assert.ErrorIs(t, err, process.ErrUnsupportedArgument)

	_, err = threadParameter(process.CallingConventionSystemV, nil)
	assert.ErrorIs(t, err, process.ErrUnsupportedCallingConvention)
}

func TestOpenSelf(t *testing.T) {
	p, err := Open(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	defer p.Close()

	assert.True(t, p.IsRunning())
	assert.True(t, p.Equal(p))
	assert.True(t, p.Equal(struct{ *WindowsProcess }{p}), "embedding keeps identity")

	mm, err := p.GetMemoryMap()
	require.NoError(t, err)
	assert.NotEmpty(t, mm)

	_, err = p.Execute(context.Background(), 0, process.CallingConventionSystemV, nil)
	assert.ErrorIs(t, err, process.ErrExecutionFailed)

	require.NoError(t, p.Close())
	assert.False(t, p.IsRunning())
}
