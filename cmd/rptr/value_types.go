package main

import (
	"fmt"
	"sort"
	"strconv"
	"unsafe"

	"golang.org/x/exp/constraints"

	"remotemem/process"
	"remotemem/remote_pointer"
)

// valueType reads and writes arrays of one scalar type.
type valueType struct {
	size  int
	read  func(p remote_pointer.RemotePointer, off remote_pointer.Offset, count int) ([]string, error)
	write func(p remote_pointer.RemotePointer, off remote_pointer.Offset, values []string) error
}

var valueTypes = map[string]valueType{
	"i8":  signedType[int8](),
	"i16": signedType[int16](),
	"i32": signedType[int32](),
	"i64": signedType[int64](),
	"u8":  unsignedType[uint8](false),
	"u16": unsignedType[uint16](false),
	"u32": unsignedType[uint32](false),
	"u64": unsignedType[uint64](false),
	"ptr": unsignedType[uint64](true),
	"f32": floatType[float32](),
	"f64": floatType[float64](),
}

func lookupType(name string) (valueType, error) {
	vt, ok := valueTypes[name]
	if !ok {
		names := make([]string, 0, len(valueTypes))
		for n := range valueTypes {
			names = append(names, n)
		}
		sort.Strings(names)
		return valueType{}, fmt.Errorf("unknown type %q, want one of %v", name, names)
	}
	return vt, nil
}

func bitsOf[T any]() int {
	var zero T
	return int(unsafe.Sizeof(zero)) * 8
}

func parseAll[T any](values []string, parse func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(values))
	for _, s := range values {
		v, err := parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func newValueType[T any](format func(T) string, parse func(string) (T, error)) valueType {
	return valueType{
		size: bitsOf[T]() / 8,
		read: func(p remote_pointer.RemotePointer, off remote_pointer.Offset, count int) ([]string, error) {
			vs, err := remote_pointer.ReadSlice[T](p, off, count)
			if err != nil {
				return nil, err
			}
			out := make([]string, len(vs))
			for i, v := range vs {
				out[i] = format(v)
			}
			return out, nil
		},
		write: func(p remote_pointer.RemotePointer, off remote_pointer.Offset, values []string) error {
			vs, err := parseAll(values, parse)
			if err != nil {
				return err
			}
			return remote_pointer.WriteSlice(p, off, vs)
		},
	}
}

func signedType[T constraints.Signed]() valueType {
	return newValueType(
		func(v T) string { return strconv.FormatInt(int64(v), 10) },
		func(s string) (T, error) {
			v, err := strconv.ParseInt(s, 0, bitsOf[T]())
			return T(v), err
		},
	)
}

func unsignedType[T constraints.Unsigned](pointer bool) valueType {
	return newValueType(
		func(v T) string {
			if pointer {
				return process.ProcessMemoryAddress(v).String()
			}
			return strconv.FormatUint(uint64(v), 10)
		},
		func(s string) (T, error) {
			v, err := strconv.ParseUint(s, 0, bitsOf[T]())
			return T(v), err
		},
	)
}

func floatType[T constraints.Float]() valueType {
	return newValueType(
		func(v T) string { return strconv.FormatFloat(float64(v), 'g', -1, bitsOf[T]()) },
		func(s string) (T, error) {
			v, err := strconv.ParseFloat(s, bitsOf[T]())
			return T(v), err
		},
	)
}
