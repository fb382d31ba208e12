// Package memory_protection changes the protection of a range of memory in a
// target process and restores it afterwards.
package memory_protection

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	"remotemem/process"
)

// ReleasePolicy decides what Release does with the previous protection.
// There is no default; callers pick one.
type ReleasePolicy uint8

const (
	// ReleaseScoped restores the previous protection on Release. The caller
	// must release the scope on every path, normally with defer.
	ReleaseScoped ReleasePolicy = iota + 1

	// ReleaseNever leaves the new protection in place. Release only marks the
	// scope as finished.
	ReleaseNever
)

func (p ReleasePolicy) String() string {
	switch p {
	case ReleaseScoped:
		return "scoped"
	case ReleaseNever:
		return "never"
	}
	return fmt.Sprintf("ReleasePolicy(%d)", uint8(p))
}

var ErrNoReleasePolicy = errors.New("no release policy chosen")

// Scope is a protection change over [Address, Address+Size).
type Scope struct {
	protector process.MemoryProtector
	address   process.ProcessMemoryAddress
	size      process.ProcessMemorySize
	flags     process.ProtectionFlags
	policy    ReleasePolicy
	previous  []process.ProtectionRegion

	once     sync.Once
	released bool
	mu       sync.Mutex
	err      error
}

// New applies flags to the range immediately and returns the scope that
// remembers the previous protection. Errors from the protector are returned
// unchanged.
func New(
	protector process.MemoryProtector,
	addr process.ProcessMemoryAddress,
	size process.ProcessMemorySize,
	flags process.ProtectionFlags,
	policy ReleasePolicy,
) (*Scope, error) {
	if policy != ReleaseScoped && policy != ReleaseNever {
		return nil, fmt.Errorf("%w: %s", ErrNoReleasePolicy, policy)
	}

	previous, err := protector.SetProtection(addr, size, flags)
	if err != nil {
		return nil, err
	}

	return &Scope{
		protector: protector,
		address:   addr,
		size:      size,
		flags:     flags,
		policy:    policy,
		previous:  previous,
	}, nil
}

func (s *Scope) Address() process.ProcessMemoryAddress { return s.address }
func (s *Scope) Size() process.ProcessMemorySize       { return s.size }
func (s *Scope) Flags() process.ProtectionFlags        { return s.flags }
func (s *Scope) Policy() ReleasePolicy                 { return s.policy }

// Previous returns the protection recorded before the change, one entry per
// covered region.
func (s *Scope) Previous() []process.ProtectionRegion {
	out := make([]process.ProtectionRegion, len(s.previous))
	copy(out, s.previous)
	return out
}

// Release restores the previous protection exactly once. Later calls return
// the result of the first.
func (s *Scope) Release() error {
	s.once.Do(func() {
		var err error
		if s.policy == ReleaseScoped {
			for _, r := range s.previous {
				if rerr := s.restore(r); rerr != nil {
					err = multierr.Append(err, fmt.Errorf("restore %s at %s: %w", r.Flags, r.Address, rerr))
				}
			}
		}

		s.mu.Lock()
		s.released = true
		s.err = err
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scope) restore(r process.ProtectionRegion) error {
	if restorer, ok := s.protector.(process.ProtectionRestorer); ok {
		return restorer.RestoreProtection(r)
	}
	_, err := s.protector.SetProtection(r.Address, r.Size, r.Flags)
	return err
}

// Close is Release, so a Scope can be used as an io.Closer.
func (s *Scope) Close() error {
	return s.Release()
}

// Released reports whether Release has completed.
func (s *Scope) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *Scope) String() string {
	return fmt.Sprintf("%s+%#x %s (%s)", s.address, uint64(s.size), s.flags, s.policy)
}

// With changes the protection of the range, runs fn and restores the previous
// protection on every exit path, including a panic in fn.
func With(
	protector process.MemoryProtector,
	addr process.ProcessMemoryAddress,
	size process.ProcessMemorySize,
	flags process.ProtectionFlags,
	fn func() error,
) (err error) {
	scope, err := New(protector, addr, size, flags, ReleaseScoped)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, scope.Release())
	}()

	return fn()
}
