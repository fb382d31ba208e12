package hexdump

import (
	"encoding/binary"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"remotemem/process"
	"remotemem/process/memory_map"
)

var testMap = []memory_map.MemoryMapItem{
	{Address: 0x7000, Size: 0x1000, Perms: "rw-p"},
	{Address: 0x1000, Size: 0x1000, Perms: "r-xp"},
}

func plain() *HexDump {
	return NewHexDump().SetColors(false)
}

func TestDumpLine(t *testing.T) {
	data := []byte("ABCDEFGH")
	data = binary.LittleEndian.AppendUint64(data, 0x1010)

	out := plain().SetAddress(0x2000).EnablePointerChecking(testMap).Dump(data)
	assert.Equal(t,
		"0000000000002000  41 42 43 44 45 46 47 48 | 10 10 00 00 00 00 00 00 | ABCDEFGH ........ | 0x1010 (r-x)\n",
		out)
}

func TestShortLineAligned(t *testing.T) {
	out := plain().SetAddress(0x2000).Dump([]byte("ABCDEFGHIJKLMNOPQRST"))
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[1], "0000000000002010  49 4a 4b 4c"))
	assert.Equal(t, strings.Index(lines[0], " | ABCDEFGH"), strings.Index(lines[1], " | IJKL"))
}

func TestMaxLines(t *testing.T) {
	out := plain().SetMaxLines(1).Dump(make([]byte, 40))
	assert.Contains(t, out, "... 24 more bytes")
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestNonPrintable(t *testing.T) {
	out := plain().SetBytesPerLine(4).Dump([]byte{0, 'a', 0x7f, 0xe9})
	assert.True(t, strings.HasSuffix(out, "| .a..\n"), out)
}

func TestPointersAligned(t *testing.T) {
	data := make([]byte, 24)
	binary.LittleEndian.PutUint64(data[4:], 0x7008)
	binary.LittleEndian.PutUint64(data[12:], 0x9000)
	binary.LittleEndian.PutUint64(data[16:], 0x1000)

	// addr 0x3004: words start at data[4] and data[12]
	ptrs := Pointers(data, 0x3004, testSorted())
	require.Len(t, ptrs, 1)
	assert.Equal(t, Pointer{At: 0x3008, Target: 0x7008, Flags: process.ReadWrite}, ptrs[0])

	assert.Nil(t, Pointers(data, 0x3004, nil))
}

func TestHexdumpBasicColours(t *testing.T) {
	out := HexdumpBasic([]byte("hi"), 0x10, nil)
	assert.Contains(t, out, "\x1b[")
}

func testSorted() []memory_map.MemoryMapItem {
	mm := append([]memory_map.MemoryMapItem(nil), testMap...)
	memory_map.Sort(mm)
	return mm
}
