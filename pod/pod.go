// Package pod converts between plain-old-data Go values and their raw
// in-memory bytes.
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unsafe"

	"remotemem/process"
)

var (
	// ErrNotPOD is returned for types that contain Go pointers, slices, strings,
	// maps, channels, funcs or interfaces.
	ErrNotPOD = errors.New("type is not POD")

	ErrZeroSize    = errors.New("size of type is zero")
	ErrShortBuffer = errors.New("buffer too small")
)

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// Check reports whether T can be copied to and from raw memory.
func Check[T any]() error {
	var t T
	rt := reflect.TypeOf(t)
	if rt == nil {
		return fmt.Errorf("%w: nil interface type", ErrNotPOD)
	}
	if typeHasPointers(rt) {
		return fmt.Errorf("%w: %s", ErrNotPOD, rt)
	}
	if rt.Size() == 0 {
		return fmt.Errorf("%w: %s", ErrZeroSize, rt)
	}
	return nil
}

// Decode copies the first sizeof(T) bytes from data into a new T.
// T must be "POD": it and all of its fields/element types contain no pointers.
// Fields tagged `pod:"char_array"` are zeroed after their first NUL byte.
func Decode[T any](data []byte) (T, error) {
	var tmp T
	if err := Check[T](); err != nil {
		return tmp, err
	}

	size := int(unsafe.Sizeof(tmp))
	if len(data) < size {
		return tmp, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, size, len(data))
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size)
	copy(dst, data[:size])

	cleanTaggedFields(reflect.ValueOf(&tmp).Elem())

	return tmp, nil
}

// DecodeSlice decodes count consecutive values of T from data.
func DecodeSlice[T any](data []byte, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("DecodeSlice: count must not be negative")
	}
	if err := Check[T](); err != nil {
		return nil, err
	}

	elementSize := int(SizeOf[T]())
	if len(data) < elementSize*count {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, elementSize*count, len(data))
	}

	result := make([]T, count)
	for i := range count {
		element, err := Decode[T](data[i*elementSize : (i+1)*elementSize])
		if err != nil {
			return nil, fmt.Errorf("DecodeSlice: failed to parse element %d: %w", i, err)
		}
		result[i] = element
	}

	return result, nil
}

// Encode serializes a POD value T into a raw byte slice using the in-memory layout.
func Encode[T any](v T) ([]byte, error) {
	if err := Check[T](); err != nil {
		return nil, err
	}

	size := int(unsafe.Sizeof(v))
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out, nil
}

// EncodeSlice serializes vs as one contiguous block.
func EncodeSlice[T any](vs []T) ([]byte, error) {
	if err := Check[T](); err != nil {
		return nil, err
	}
	if len(vs) == 0 {
		return []byte{}, nil
	}

	size := int(SizeOf[T]()) * len(vs)
	src := unsafe.Slice((*byte)(unsafe.Pointer(&vs[0])), size)
	out := make([]byte, size)
	copy(out, src)
	return out, nil
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// bool, ints, uints, floats, complex, etc.
		return false
	}
}

// cleanTaggedFields applies `pod` struct tags to a decoded value
func cleanTaggedFields(v reflect.Value) {
	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		tag := t.Field(i).Tag.Get("pod")

		switch {
		case field.Kind() == reflect.Struct:
			cleanTaggedFields(field)
		case podTagType(tag) == "char_array":
			cleanCharArray(field)
		}
	}
}

func podTagType(tag string) string {
	kind, _, _ := strings.Cut(tag, ",")
	return kind
}

// cleanCharArray ensures proper null termination
func cleanCharArray(field reflect.Value) {
	if field.Kind() != reflect.Array || field.Type().Elem().Kind() != reflect.Uint8 {
		return
	}

	foundNull := false
	for i := 0; i < field.Len(); i++ {
		if foundNull {
			// Zero out everything after first null
			if field.Index(i).CanSet() {
				field.Index(i).SetUint(0)
			}
		} else if field.Index(i).Uint() == 0 {
			foundNull = true
		}
	}
}
