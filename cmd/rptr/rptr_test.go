package main

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotemem/process"
	"remotemem/process_blob"
	"remotemem/remote_pointer"
)

func TestParseAddress(t *testing.T) {
	addr, err := parseAddress("0x7ffd1000")
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x7ffd1000), addr)

	_, err = parseAddress("-1")
	assert.Error(t, err)
}

func TestParseOffsets(t *testing.T) {
	offsets, err := parseOffsets([]string{"0x18", "-8", "0"})
	require.NoError(t, err)
	assert.Equal(t, []remote_pointer.Offset{0x18, -8, 0}, offsets)

	off, err := parseOffset("")
	require.NoError(t, err)
	assert.Zero(t, off)

	_, err = parseOffsets([]string{"bogus"})
	assert.Error(t, err)
}

func TestParseConvention(t *testing.T) {
	cc, err := parseConvention("")
	require.NoError(t, err)
	assert.Equal(t, process.CallingConventionDefault, cc)

	cc, err = parseConvention("sysv")
	require.NoError(t, err)
	assert.Equal(t, process.CallingConventionSystemV, cc)

	_, err = parseConvention("pascal")
	assert.ErrorIs(t, err, process.ErrUnsupportedCallingConvention)
}

func TestParseArgument(t *testing.T) {
	a, err := parseArgument("-3")
	require.NoError(t, err)
	assert.Equal(t, process.Int64(-3), a)

	a, err = parseArgument("0xffffffffffffffff")
	require.NoError(t, err)
	assert.Equal(t, process.Uint64(math.MaxUint64), a)

	a, err = parseArgument("1.5")
	require.NoError(t, err)
	assert.Equal(t, process.Float64(1.5), a)

	a, err = parseArgument("f32:2.5")
	require.NoError(t, err)
	assert.Equal(t, process.Float32(2.5), a)

	a, err = parseArgument("p:0x1000")
	require.NoError(t, err)
	assert.Equal(t, process.Pointer(0x1000), a)

	a, err = parseArgument("s:hi")
	require.NoError(t, err)
	assert.Equal(t, process.Aggregate([]byte("hi\x00")), a)

	_, err = parseArgument("nope")
	assert.Error(t, err)
}

func TestValueTypes(t *testing.T) {
	m := process_blob.New(process_blob.WithRunning(true))
	_, err := m.Map(0x1000, 0x100, process.ReadWrite)
	require.NoError(t, err)
	p := remote_pointer.New(m, 0x1000)

	for name, values := range map[string][]string{
		"i8":  {"-1", "127"},
		"u16": {"65535", "7"},
		"i32": {"-100000"},
		"u64": {"18446744073709551615"},
		"ptr": {"0xDEADBEEF"},
		"f32": {"1.5", "-0.25"},
		"f64": {"3.141592653589793"},
	} {
		vt, err := lookupType(name)
		require.NoError(t, err, name)

		require.NoError(t, vt.write(p, 0x10, values), name)
		got, err := vt.read(p, 0x10, len(values))
		require.NoError(t, err, name)
		assert.Equal(t, values, got, name)
	}

	_, err = lookupType("u128")
	assert.Error(t, err)

	vt, err := lookupType("u8")
	require.NoError(t, err)
	assert.Error(t, vt.write(p, 0, []string{"256"}))
}

func TestTargetMemoryMapFromRegions(t *testing.T) {
	m := process_blob.New()
	_, err := m.Map(0x1000, 0x100, process.ExecuteRead)
	require.NoError(t, err)

	mm := targetMemoryMap(m)
	require.Len(t, mm, 1)
	assert.Equal(t, uint64(0x1000), mm[0].Address)
	assert.Equal(t, uint(0x100), mm[0].Size)
	assert.Equal(t, process.ExecuteRead, mm[0].Flags())
}
