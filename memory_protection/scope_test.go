package memory_protection

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotemem/process"
	"remotemem/process_blob"
)

type countingProtector struct {
	process.MemoryProtector
	calls int
	fail  error
}

func (c *countingProtector) SetProtection(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) ([]process.ProtectionRegion, error) {
	c.calls++
	if c.fail != nil && c.calls > 1 {
		return nil, c.fail
	}
	return c.MemoryProtector.SetProtection(addr, size, flags)
}

// nativeProtector records regions with a native value and expects it back.
type nativeProtector struct {
	process.MemoryProtector
	restored []process.ProtectionRegion
}

func (n *nativeProtector) SetProtection(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, flags process.ProtectionFlags) ([]process.ProtectionRegion, error) {
	previous, err := n.MemoryProtector.SetProtection(addr, size, flags)
	for i := range previous {
		previous[i].Native = 0x102 // read-only guard page
	}
	return previous, err
}

func (n *nativeProtector) RestoreProtection(r process.ProtectionRegion) error {
	n.restored = append(n.restored, r)
	_, err := n.MemoryProtector.SetProtection(r.Address, r.Size, r.Flags)
	return err
}

func newTarget(t *testing.T) *process_blob.Memory {
	m := process_blob.New()
	_, err := m.Map(0x1000, 0x2000, process.ReadOnly)
	require.NoError(t, err)
	return m
}

func TestScopedRestore(t *testing.T) {
	m := newTarget(t)

	scope, err := New(m, 0x1000, 0x1000, process.ReadWrite, ReleaseScoped)
	require.NoError(t, err)

	flags, err := m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadWrite, flags)
	assert.Equal(t, []process.ProtectionRegion{{Address: 0x1000, Size: 0x1000, Flags: process.ReadOnly}}, scope.Previous())

	require.NoError(t, scope.Release())
	assert.True(t, scope.Released())

	flags, err = m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, flags)
}

func TestReleaseUsesNativeProtection(t *testing.T) {
	p := &nativeProtector{MemoryProtector: newTarget(t)}

	scope, err := New(p, 0x1000, 0x10, process.ReadWrite, ReleaseScoped)
	require.NoError(t, err)
	require.NoError(t, scope.Release())

	require.Len(t, p.restored, 1)
	assert.Equal(t, process.ProtectionRegion{Address: 0x1000, Size: 0x10, Flags: process.ReadOnly, Native: 0x102}, p.restored[0])
}

func TestReleaseExactlyOnce(t *testing.T) {
	p := &countingProtector{MemoryProtector: newTarget(t)}

	scope, err := New(p, 0x1000, 0x10, process.ReadWrite, ReleaseScoped)
	require.NoError(t, err)

	require.NoError(t, scope.Release())
	require.NoError(t, scope.Close())
	require.NoError(t, scope.Release())
	assert.Equal(t, 2, p.calls)
}

func TestReleaseNever(t *testing.T) {
	m := newTarget(t)

	scope, err := New(m, 0x1000, 0x10, process.ReadWrite, ReleaseNever)
	require.NoError(t, err)
	require.NoError(t, scope.Release())
	assert.True(t, scope.Released())

	flags, err := m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadWrite, flags)
}

func TestNoPolicy(t *testing.T) {
	m := newTarget(t)

	_, err := New(m, 0x1000, 0x10, process.ReadWrite, 0)
	assert.ErrorIs(t, err, ErrNoReleasePolicy)

	flags, err := m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, flags, "rejected scope must not change protection")
}

func TestProtectorErrorForwarded(t *testing.T) {
	m := newTarget(t)

	_, err := New(m, 0x9000, 0x10, process.ReadWrite, ReleaseScoped)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}

func TestRestoreFailureReported(t *testing.T) {
	restoreErr := errors.New("restore failed")
	p := &countingProtector{MemoryProtector: newTarget(t), fail: restoreErr}

	scope, err := New(p, 0x1000, 0x10, process.ReadWrite, ReleaseScoped)
	require.NoError(t, err)

	assert.ErrorIs(t, scope.Release(), restoreErr)
	assert.ErrorIs(t, scope.Release(), restoreErr, "later calls return the first result")
}

func TestWith(t *testing.T) {
	m := newTarget(t)

	err := With(m, 0x1000, 0x10, process.ReadWrite, func() error {
		return m.WriteMemory(0x1000, []byte{1, 2})
	})
	require.NoError(t, err)

	assert.ErrorIs(t, m.WriteMemory(0x1000, []byte{3}), process.ErrAccessViolation)

	fnErr := errors.New("fn failed")
	err = With(m, 0x1000, 0x10, process.ReadWrite, func() error { return fnErr })
	assert.ErrorIs(t, err, fnErr)

	flags, err := m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, flags)
}

func TestWithPanicRestores(t *testing.T) {
	m := newTarget(t)

	assert.Panics(t, func() {
		_ = With(m, 0x1000, 0x10, process.ReadWrite, func() error {
			panic("boom")
		})
	})

	flags, err := m.Protection(0x1000)
	require.NoError(t, err)
	assert.Equal(t, process.ReadOnly, flags)
}
