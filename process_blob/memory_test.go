package process_blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotemem/process"
)

func TestReadWriteAcrossRegions(t *testing.T) {
	m := New()
	_, err := m.MapData(0x1000, []byte{1, 2, 3, 4}, process.ReadWrite)
	require.NoError(t, err)
	_, err = m.MapData(0x1004, []byte{5, 6, 7, 8}, process.ReadWrite)
	require.NoError(t, err)

	data, err := m.ReadMemory(0x1002, 4)
	require.NoError(t, err)
	assert.Equal(t, []byte{3, 4, 5, 6}, data)

	require.NoError(t, m.WriteMemory(0x1003, []byte{0xAA, 0xBB}))
	data, err = m.ReadMemory(0x1000, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 0xAA, 0xBB, 6, 7, 8}, data)
}

func TestUnmappedAndProtected(t *testing.T) {
	m := New()
	_, err := m.Map(0x1000, 0x10, process.ReadOnly)
	require.NoError(t, err)

	_, err = m.ReadMemory(0x2000, 1)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = m.ReadMemory(0x1008, 0x10)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	err = m.WriteMemory(0x1000, []byte{1})
	assert.ErrorIs(t, err, process.ErrAccessViolation)

	data, err := m.ReadMemory(0x1000, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 0}, data, "failed write must not modify memory")
}

func TestMapOverlap(t *testing.T) {
	m := New()
	_, err := m.Map(0x1000, 0x100, process.ReadWrite)
	require.NoError(t, err)

	_, err = m.Map(0x10F0, 0x20, process.ReadWrite)
	assert.Error(t, err)

	_, err = m.Map(0x1100, 0x20, process.ReadWrite)
	assert.NoError(t, err)
}

func TestSetProtectionSplits(t *testing.T) {
	m := New()
	_, err := m.MapData(0x1000, []byte{0, 1, 2, 3, 4, 5, 6, 7}, process.ReadOnly)
	require.NoError(t, err)

	previous, err := m.SetProtection(0x1002, 4, process.ReadWrite)
	require.NoError(t, err)
	assert.Equal(t, []process.ProtectionRegion{{Address: 0x1002, Size: 4, Flags: process.ReadOnly}}, previous)

	assert.Equal(t, []process.ProtectionRegion{
		{Address: 0x1000, Size: 2, Flags: process.ReadOnly},
		{Address: 0x1002, Size: 4, Flags: process.ReadWrite},
		{Address: 0x1006, Size: 2, Flags: process.ReadOnly},
	}, m.Regions())

	require.NoError(t, m.WriteMemory(0x1002, []byte{9, 9, 9, 9}))
	assert.ErrorIs(t, m.WriteMemory(0x1006, []byte{9}), process.ErrAccessViolation)

	data, err := m.ReadMemory(0x1000, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 9, 9, 9, 9, 6, 7}, data)
}

func TestSetProtectionUnmapped(t *testing.T) {
	m := New()
	_, err := m.Map(0x1000, 0x10, process.ReadOnly)
	require.NoError(t, err)

	_, err = m.SetProtection(0x1008, 0x10, process.ReadWrite)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	flags, err := m.Protection(0x1008)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, flags)
}

func TestExecute(t *testing.T) {
	m := New()
	_, err := m.Map(0x4000, 0x100, process.ExecuteRead)
	require.NoError(t, err)

	m.Register(0x4010, func(ctx context.Context, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
		return process.Result{Integer: args[0].Bits + args[1].Bits}, nil
	})

	r, err := m.Execute(context.Background(), 0x4010, process.CallingConventionDefault, []process.Argument{process.Int64(2), process.Int64(40)})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), r.Integer)

	_, err = m.Execute(context.Background(), 0x4020, process.CallingConventionDefault, nil)
	assert.ErrorIs(t, err, process.ErrExecutionFailed)

	_, err = m.SetProtection(0x4000, 0x100, process.ReadOnly)
	require.NoError(t, err)
	_, err = m.Execute(context.Background(), 0x4010, process.CallingConventionDefault, nil)
	assert.ErrorIs(t, err, process.ErrAccessViolation)

	m.Exit()
	_, err = m.Execute(context.Background(), 0x4010, process.CallingConventionDefault, nil)
	assert.ErrorIs(t, err, process.ErrProcessNotRunning)
	assert.ErrorIs(t, err, process.ErrExecutionFailed)
}

func TestExecuteAsync(t *testing.T) {
	m := New(WithAsyncLimit(1))
	_, err := m.Map(0x4000, 0x10, process.ExecuteRead)
	require.NoError(t, err)

	release := make(chan struct{})
	m.Register(0x4000, func(ctx context.Context, cc process.CallingConvention, args []process.Argument) (process.Result, error) {
		<-release
		return process.Result{Integer: 7}, nil
	})

	f := m.ExecuteAsync(context.Background(), 0x4000, process.CallingConventionDefault, nil)
	assert.False(t, f.Ready())

	close(release)
	r, err := f.Get()
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r.Integer)
}

func TestIdentity(t *testing.T) {
	a := New(WithPID(10))
	b := New(WithPID(10))

	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b), "same pid is not the same in-memory process")
	assert.Equal(t, a.Hash(), a.Hash())
	assert.NotEqual(t, a.Hash(), b.Hash())

	assert.True(t, a.IsRunning())
	a.Exit()
	assert.False(t, a.IsRunning())
	assert.False(t, New(WithRunning(false)).IsRunning())
}

type wrappedMemory struct {
	*Memory
}

func TestIdentityThroughEmbedding(t *testing.T) {
	a := New()
	w := wrappedMemory{a}

	assert.True(t, w.Equal(w))
	assert.True(t, a.Equal(w))
	assert.True(t, w.Equal(a))
	assert.False(t, w.Equal(New()))
	assert.Equal(t, a.Hash(), w.Hash())
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()

	m := New(WithPID(1234), WithName("target"))
	_, err := m.MapData(0x1000, []byte("hello"), process.ReadOnly)
	require.NoError(t, err)
	_, err = m.MapData(0x2000, []byte{1, 2, 3}, process.ReadWrite)
	require.NoError(t, err)
	require.NoError(t, m.Save(dir))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessID(1234), loaded.GetPID())
	assert.Equal(t, "target", loaded.Name())
	assert.False(t, loaded.IsRunning())
	assert.Equal(t, m.Regions(), loaded.Regions())

	data, err := loaded.ReadMemory(0x1000, 5)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}
