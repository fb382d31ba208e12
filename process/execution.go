package process

import (
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// CallingConvention selects how arguments are passed to remote code.
type CallingConvention uint8

const (
	// CallingConventionDefault is mapped by each executor to the platform's
	// native convention.
	CallingConventionDefault CallingConvention = iota
	CallingConventionCdecl
	CallingConventionStdcall
	CallingConventionFastcall
	CallingConventionThiscall
	CallingConventionSystemV
	CallingConventionWin64
)

var callingConventionNames = map[CallingConvention]string{
	CallingConventionDefault:  "default",
	CallingConventionCdecl:    "cdecl",
	CallingConventionStdcall:  "stdcall",
	CallingConventionFastcall: "fastcall",
	CallingConventionThiscall: "thiscall",
	CallingConventionSystemV:  "sysv",
	CallingConventionWin64:    "win64",
}

func (cc CallingConvention) String() string {
	if name, ok := callingConventionNames[cc]; ok {
		return name
	}
	return fmt.Sprintf("CallingConvention(%d)", uint8(cc))
}

// ArgumentKind discriminates the value carried by an Argument.
type ArgumentKind uint8

const (
	ArgumentInteger ArgumentKind = iota
	ArgumentFloat32
	ArgumentFloat64
	ArgumentPointer
	// ArgumentAggregate is passed by reference: the executor copies Data into
	// the target process and passes its address.
	ArgumentAggregate
)

func (k ArgumentKind) String() string {
	switch k {
	case ArgumentInteger:
		return "integer"
	case ArgumentFloat32:
		return "float32"
	case ArgumentFloat64:
		return "float64"
	case ArgumentPointer:
		return "pointer"
	case ArgumentAggregate:
		return "aggregate"
	}
	return fmt.Sprintf("ArgumentKind(%d)", uint8(k))
}

// Argument is one value passed to remote code.
type Argument struct {
	Kind ArgumentKind
	// Size is the width in bytes of integer arguments.
	Size int
	// Bits holds integers sign- or zero-extended to 64 bits, and floats as
	// their IEEE-754 bit pattern.
	Bits uint64
	Data []byte
}

func Int8(v int8) Argument     { return Argument{Kind: ArgumentInteger, Size: 1, Bits: uint64(int64(v))} }
func Int16(v int16) Argument   { return Argument{Kind: ArgumentInteger, Size: 2, Bits: uint64(int64(v))} }
func Int32(v int32) Argument   { return Argument{Kind: ArgumentInteger, Size: 4, Bits: uint64(int64(v))} }
func Int64(v int64) Argument   { return Argument{Kind: ArgumentInteger, Size: 8, Bits: uint64(v)} }
func Uint8(v uint8) Argument   { return Argument{Kind: ArgumentInteger, Size: 1, Bits: uint64(v)} }
func Uint16(v uint16) Argument { return Argument{Kind: ArgumentInteger, Size: 2, Bits: uint64(v)} }
func Uint32(v uint32) Argument { return Argument{Kind: ArgumentInteger, Size: 4, Bits: uint64(v)} }
func Uint64(v uint64) Argument { return Argument{Kind: ArgumentInteger, Size: 8, Bits: v} }

func Float32(v float32) Argument {
	return Argument{Kind: ArgumentFloat32, Size: 4, Bits: uint64(math.Float32bits(v))}
}

func Float64(v float64) Argument {
	return Argument{Kind: ArgumentFloat64, Size: 8, Bits: math.Float64bits(v)}
}

func Pointer(addr ProcessMemoryAddress) Argument {
	return Argument{Kind: ArgumentPointer, Size: int(PointerSize), Bits: uint64(addr)}
}

// Aggregate passes a copy of data by reference.
func Aggregate(data []byte) Argument {
	return Argument{Kind: ArgumentAggregate, Size: len(data), Data: data}
}

// IsFloat reports whether the argument travels in a floating-point register.
func (a Argument) IsFloat() bool {
	return a.Kind == ArgumentFloat32 || a.Kind == ArgumentFloat64
}

func (a Argument) String() string {
	switch a.Kind {
	case ArgumentFloat32:
		return fmt.Sprintf("float32(%v)", math.Float32frombits(uint32(a.Bits)))
	case ArgumentFloat64:
		return fmt.Sprintf("float64(%v)", math.Float64frombits(a.Bits))
	case ArgumentPointer:
		return ProcessMemoryAddress(a.Bits).ToString()
	case ArgumentAggregate:
		return fmt.Sprintf("aggregate(%d bytes)", len(a.Data))
	}
	return fmt.Sprintf("int%d(%#x)", a.Size*8, a.Bits)
}

// Result holds the raw return registers of a remote call.
type Result struct {
	// Integer is the integer return register (rax on amd64).
	Integer uint64
	// Float is the bit pattern of the floating-point return register (low
	// 64 bits of xmm0 on amd64).
	Float uint64
}

// Address returns the integer result as an address-sized value.
func (r Result) Address() ProcessMemoryAddress {
	return ProcessMemoryAddress(r.Integer)
}

// Scalar is the set of types a remote call result can be decoded into.
type Scalar interface {
	constraints.Integer | constraints.Float
}

// DecodeResult converts r into T. Floating-point types are read from the
// floating-point return register, everything else from the integer register
// truncated to the width of T.
func DecodeResult[T Scalar](r Result) T {
	var zero T
	switch reflect.TypeOf(zero).Kind() {
	case reflect.Float32:
		return T(math.Float32frombits(uint32(r.Float)))
	case reflect.Float64:
		return T(math.Float64frombits(r.Float))
	}
	return T(r.Integer)
}
