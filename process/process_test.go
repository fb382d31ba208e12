package process

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddressToString(t *testing.T) {
	assert.Equal(t, "0x0", ProcessMemoryAddress(0).ToString())
	assert.Equal(t, "0xFF", ProcessMemoryAddress(255).ToString())
	assert.Equal(t, "0x7FFDEADBEEF0", ProcessMemoryAddress(0x7ffdeadbeef0).String())
}

func TestParsePerms(t *testing.T) {
	assert.Equal(t, ExecuteRead, ParsePerms("r-xp"))
	assert.Equal(t, ReadWrite, ParsePerms("rw-p"))
	assert.Equal(t, NoAccess, ParsePerms("---p"))
	assert.Equal(t, NoAccess, ParsePerms(""))
	assert.Equal(t, "rwx", ExecuteReadWrite.String())
	assert.Equal(t, "r--", ReadOnly.String())
}

func TestProcessStateIsAlive(t *testing.T) {
	assert.True(t, ProcessRunning.IsAlive())
	assert.True(t, ProcessSleeping.IsAlive())
	assert.False(t, ProcessZombie.IsAlive())
	assert.False(t, ProcessDead.IsAlive())
}

func TestArgumentConstructors(t *testing.T) {
	assert.Equal(t, uint64(math.MaxUint64), Int32(-1).Bits)
	assert.Equal(t, uint64(0xFF), Uint8(0xFF).Bits)
	assert.True(t, Float64(1.5).IsFloat())
	assert.False(t, Pointer(0x1000).IsFloat())
	assert.Equal(t, ArgumentAggregate, Aggregate([]byte{1, 2}).Kind)
}

func TestDecodeResult(t *testing.T) {
	r := Result{
		Integer: 0xFFFFFFFF_FFFFFFFE,
		Float:   math.Float64bits(2.5),
	}

	assert.Equal(t, int64(-2), DecodeResult[int64](r))
	assert.Equal(t, int32(-2), DecodeResult[int32](r))
	assert.Equal(t, uint8(0xFE), DecodeResult[uint8](r))
	assert.Equal(t, 2.5, DecodeResult[float64](r))
	assert.Equal(t, ProcessMemoryAddress(0xFFFFFFFF_FFFFFFFE), DecodeResult[ProcessMemoryAddress](r))

	r32 := Result{Float: uint64(math.Float32bits(0.25))}
	assert.Equal(t, float32(0.25), DecodeResult[float32](r32))
}
