package pod

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type vec3 struct {
	X, Y, Z float32
}

type named struct {
	ID   int32
	Name [8]byte `pod:"char_array"`
}

type withPointer struct {
	Next *withPointer
}

func TestEncodeDecodeStruct(t *testing.T) {
	data, err := Encode(vec3{1, 2, 3})
	require.NoError(t, err)
	assert.Len(t, data, 12)

	v, err := Decode[vec3](data)
	require.NoError(t, err)
	assert.Equal(t, vec3{1, 2, 3}, v)
}

func TestDecodeLittleEndianLayout(t *testing.T) {
	v, err := Decode[uint32]([]byte{0x78, 0x56, 0x34, 0x12})
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), v)
}

func TestDecodeShortBuffer(t *testing.T) {
	_, err := Decode[uint64]([]byte{1, 2})
	assert.ErrorIs(t, err, ErrShortBuffer)
}

func TestRejectsNonPOD(t *testing.T) {
	_, err := Encode(withPointer{})
	assert.ErrorIs(t, err, ErrNotPOD)

	_, err = Decode[string](make([]byte, 16))
	assert.ErrorIs(t, err, ErrNotPOD)

	_, err = Decode[struct{}](nil)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestCharArrayCleaned(t *testing.T) {
	raw := []byte{1, 0, 0, 0, 'a', 'b', 0, 'x', 'y', 'z', 0, 0}

	v, err := Decode[named](raw)
	require.NoError(t, err)
	assert.Equal(t, int32(1), v.ID)
	assert.Equal(t, [8]byte{'a', 'b'}, v.Name)
}

func TestSliceRoundTrip(t *testing.T) {
	in := []int16{-1, 2, -3}

	data, err := EncodeSlice(in)
	require.NoError(t, err)
	assert.Len(t, data, 6)

	out, err := DecodeSlice[int16](data, 3)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeSlice[int16](data, 4)
	assert.ErrorIs(t, err, ErrShortBuffer)
}
