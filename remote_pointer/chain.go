package remote_pointer

import (
	"fmt"

	"remotemem/process"
)

// ChainPointer describes a pointer reached by following pointer fields from a
// root.
//
// Example:
//
//	// root -> [ +0 ]ptrA -> [ +24 ]ptrB -> [ +144 ]ptrC, field at ptrC+504
//	p, err := NewChain(root, 0, 24, 144, 504).Resolve()
type ChainPointer struct {
	root    RemotePointer
	offsets []Offset
}

// Hop is one dereference made while resolving a chain.
type Hop struct {
	From   process.ProcessMemoryAddress
	Offset Offset
	To     process.ProcessMemoryAddress
}

func (h Hop) String() string {
	return fmt.Sprintf("*(%s + %#x) => %s", h.From, int64(h.Offset), h.To)
}

func NewChain(root RemotePointer, offsets ...Offset) ChainPointer {
	return ChainPointer{root: root, offsets: append([]Offset(nil), offsets...)}
}

func (c ChainPointer) Root() RemotePointer {
	return c.root
}

func (c ChainPointer) Offsets() []Offset {
	return append([]Offset(nil), c.offsets...)
}

// Resolve reads a pointer at every offset except the last, which is added to
// the final pointer without a read. The result has KindChain, so it is never
// equal to a plain pointer at the same address. The chain itself is not
// modified.
func (c ChainPointer) Resolve() (RemotePointer, error) {
	p, _, err := c.resolve(false)
	return p, err
}

// ResolveTrace is Resolve and also returns every dereference made, including
// those before a failure.
func (c ChainPointer) ResolveTrace() (RemotePointer, []Hop, error) {
	return c.resolve(true)
}

func (c ChainPointer) resolve(trace bool) (RemotePointer, []Hop, error) {
	var hops []Hop
	current := c.root

	if len(c.offsets) == 0 {
		return RemotePointer{proc: current.proc, base: current.base, kind: KindChain}, hops, nil
	}

	for i, off := range c.offsets[:len(c.offsets)-1] {
		next, err := current.ReadPointer(off)
		if err != nil {
			return RemotePointer{}, hops, err
		}
		if trace {
			hops = append(hops, Hop{From: current.base, Offset: off, To: next.base})
		}
		if next.base == 0 {
			return RemotePointer{}, hops, fmt.Errorf("%w: null pointer at step %d (%s + %#x)", process.ErrInvalidPointer, i, current.base, int64(off))
		}
		current = next
	}

	last := c.offsets[len(c.offsets)-1]
	return RemotePointer{proc: current.proc, base: current.Address(last), kind: KindChain}, hops, nil
}
