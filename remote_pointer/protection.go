package remote_pointer

import (
	"remotemem/memory_protection"
	"remotemem/process"
)

// ChangeProtection applies flags to [base, base+size) and returns the scope
// that restores the previous protection. With ReleaseScoped the caller must
// call Release on every path.
func (p RemotePointer) ChangeProtection(size process.ProcessMemorySize, flags process.ProtectionFlags, policy memory_protection.ReleasePolicy) (*memory_protection.Scope, error) {
	proc, err := p.open()
	if err != nil {
		return nil, err
	}
	return memory_protection.New(proc, p.base, size, flags, policy)
}

// Unprotect makes [base, base+size) readable, writable and executable until
// the returned scope is released.
func (p RemotePointer) Unprotect(size process.ProcessMemorySize) (*memory_protection.Scope, error) {
	return p.ChangeProtection(size, process.ExecuteReadWrite, memory_protection.ReleaseScoped)
}

// WithProtection runs fn with flags applied to [base, base+size) and restores
// the previous protection afterwards, even if fn panics.
func (p RemotePointer) WithProtection(size process.ProcessMemorySize, flags process.ProtectionFlags, fn func() error) error {
	proc, err := p.open()
	if err != nil {
		return err
	}
	return memory_protection.With(proc, p.base, size, flags, fn)
}
