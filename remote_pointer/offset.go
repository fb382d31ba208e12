package remote_pointer

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"golang.org/x/exp/constraints"
)

// Offset is a signed distance from a pointer's base address.
type Offset int64

// ErrTypeConversion is returned when a value cannot be used as an offset.
var ErrTypeConversion = errors.New("cannot convert to offset")

// OffsetOf converts a symbolic offset, typically a named constant of a layout
// enumeration, to an Offset. Unsigned values above math.MaxInt64 wrap.
func OffsetOf[E constraints.Integer](e E) Offset {
	return Offset(e)
}

// ToOffset converts v to an Offset at run time. v must have an integer kind
// and fit in an int64.
func ToOffset(v any) (Offset, error) {
	switch o := v.(type) {
	case Offset:
		return o, nil
	case int:
		return Offset(o), nil
	case int64:
		return Offset(o), nil
	case int32:
		return Offset(o), nil
	case uint32:
		return Offset(o), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Offset(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, fmt.Errorf("%w: %v overflows int64", ErrTypeConversion, v)
		}
		return Offset(u), nil
	}

	return 0, fmt.Errorf("%w: %T", ErrTypeConversion, v)
}
