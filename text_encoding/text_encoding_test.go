package text_encoding

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStopsAtTerminator(t *testing.T) {
	s, err := UTF8.Decode([]byte("hello\x00world"), 512)
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
}

func TestDecodeTruncatesAtMaxLength(t *testing.T) {
	data := []byte(strings.Repeat("a", 600))

	s, err := UTF8.Decode(data, 512)
	require.NoError(t, err)
	assert.Len(t, s, 512)
}

func TestDecodeDropsPartialRune(t *testing.T) {
	// "é" is two bytes; cutting after the first leaves a partial sequence
	data := []byte("abé")

	s, err := UTF8.Decode(data, 3)
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
}

func TestDecodeUTF16(t *testing.T) {
	data, err := UTF16LE.Encode("héllo")
	require.NoError(t, err)
	assert.Len(t, data, 12)

	s, err := UTF16LE.Decode(data, 512)
	require.NoError(t, err)
	assert.Equal(t, "héllo", s)
}

func TestDecodeUTF16OddMaxLength(t *testing.T) {
	data, err := UTF16LE.Encode("abcd")
	require.NoError(t, err)

	s, err := UTF16LE.Decode(data, 5)
	require.NoError(t, err)
	assert.Equal(t, "ab", s)
}

func TestDecodeUTF16TerminatorMustBeAligned(t *testing.T) {
	// 0x0100 followed by 0x0041: the zero bytes straddle two units
	data := []byte{0x00, 0x01, 0x41, 0x00, 0x00, 0x00}

	s, err := UTF16LE.Decode(data, 512)
	require.NoError(t, err)
	assert.Equal(t, "ĀA", s)
}

func TestDecodeZeroMaxLength(t *testing.T) {
	s, err := UTF8.Decode([]byte("abc"), 0)
	require.NoError(t, err)
	assert.Empty(t, s)
}

func TestEncodeAppendsTerminator(t *testing.T) {
	data, err := Latin1.Encode("abc")
	require.NoError(t, err)
	assert.Equal(t, []byte{'a', 'b', 'c', 0}, data)
}

func TestEncodeUnrepresentable(t *testing.T) {
	_, err := Latin1.Encode("日本")
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	enc, err := Lookup("UTF-16LE")
	require.NoError(t, err)
	assert.Equal(t, 2, enc.UnitSize())

	_, err = Lookup("ebcdic")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestZeroEncoding(t *testing.T) {
	var enc Encoding
	assert.True(t, enc.IsZero())

	_, err := enc.Decode([]byte("a"), 1)
	assert.ErrorIs(t, err, ErrUnknownEncoding)
}

func TestTerminated(t *testing.T) {
	assert.True(t, UTF8.Terminated([]byte{'a', 0}))
	assert.False(t, UTF8.Terminated([]byte{'a', 'b'}))
	assert.False(t, UTF16LE.Terminated([]byte{'a', 0, 0, 'b'}), "zero bytes across a unit boundary")
	assert.True(t, UTF16LE.Terminated([]byte{'a', 0, 0, 0}))
}
