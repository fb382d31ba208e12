package memory_map

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotemem/process"
)

const maps = `7f0000003000-7f0000004000 rw-p 00000000 00:00 0
00400000-00401000 r-xp 00000000 08:01 1234 /usr/bin/target
00401000-00403000 rw-p 00001000 08:01 1234 /usr/bin/target
garbage line
7f0000000000-7f0000001000 r--p 00000000 00:00 0
`

func TestParseMapsSorts(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(maps))
	require.NoError(t, err)
	require.Len(t, mm, 4)

	assert.Equal(t, uint64(0x400000), mm[0].Address)
	assert.Equal(t, uint(0x1000), mm[0].Size)
	assert.Equal(t, process.ExecuteRead, mm[0].Flags())
	assert.Equal(t, uint64(0x7f0000003000), mm[3].Address)
}

func TestFind(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(maps))
	require.NoError(t, err)

	item := Find(0x401800, mm)
	require.NotNil(t, item)
	assert.True(t, item.IsWritable())

	assert.Nil(t, Find(0x500000, mm))
	assert.Nil(t, Find(0x3fffff, mm))
}

func TestCoveringSpansRegions(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(maps))
	require.NoError(t, err)

	regions, err := Covering(0x400800, 0x1000, mm)
	require.NoError(t, err)
	require.Len(t, regions, 2)

	assert.Equal(t, process.ProtectionRegion{Address: 0x400800, Size: 0x800, Flags: process.ExecuteRead}, regions[0])
	assert.Equal(t, process.ProtectionRegion{Address: 0x401000, Size: 0x800, Flags: process.ReadWrite}, regions[1])
}

func TestCoveringUnmapped(t *testing.T) {
	mm, err := ParseMaps(strings.NewReader(maps))
	require.NoError(t, err)

	_, err = Covering(0x402800, 0x1000, mm)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}
