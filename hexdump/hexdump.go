// Package hexdump renders remote memory as hex with an ASCII column and marks
// words that point into mapped regions of the target.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/Moonlight-Companies/gologger/coloransi"

	"remotemem/process"
	"remotemem/process/memory_map"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// GroupSize defines the grouping of bytes (usually 1, 2, 4, or 8)
	GroupSize int

	ShowASCII bool

	// Address is the remote address of the first byte
	Address process.ProcessMemoryAddress

	// OffsetWidth is the width of the address column in hex digits
	OffsetWidth int

	// Colors turns ANSI colouring on
	Colors bool

	OffsetColor       coloransi.ColorCode
	HexColor          coloransi.ColorCode
	ASCIIColor        coloransi.ColorCode
	NonPrintableColor coloransi.ColorCode
	ZeroColor         coloransi.ColorCode
	PointerColor      coloransi.ColorCode

	// MaxLines is the maximum number of lines to show (0 for no limit)
	MaxLines int

	// MemoryMap enables pointer annotation when set. Every aligned
	// pointer-sized word that falls inside a region is listed after the
	// ASCII column.
	MemoryMap []memory_map.MemoryMapItem
}

// DefaultOptions returns the default hexdump options
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine:      16,
		GroupSize:         1,
		ShowASCII:         true,
		OffsetWidth:       16,
		Colors:            true,
		OffsetColor:       coloransi.Cyan,
		HexColor:          coloransi.Green,
		ASCIIColor:        coloransi.White,
		NonPrintableColor: coloransi.Red,
		ZeroColor:         coloransi.BrightBlack,
		PointerColor:      coloransi.Yellow,
	}
}

// Dump creates a hex dump of the given data with specified options
func Dump(data []byte, options HexDumpOptions) string {
	var buffer bytes.Buffer
	DumpToWriter(&buffer, data, options)
	return buffer.String()
}

// DumpToWriter writes a hex dump of the given data to the specified writer
func DumpToWriter(writer io.Writer, data []byte, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.GroupSize <= 0 {
		options.GroupSize = 1
	}
	if options.OffsetWidth <= 0 {
		options.OffsetWidth = 16
	}
	if len(options.MemoryMap) > 0 {
		mm := append([]memory_map.MemoryMapItem(nil), options.MemoryMap...)
		memory_map.Sort(mm)
		options.MemoryMap = mm
	}

	for line, offset := 0, 0; offset < len(data); line, offset = line+1, offset+options.BytesPerLine {
		if options.MaxLines > 0 && line >= options.MaxLines {
			fmt.Fprintf(writer, "... %d more bytes\n", len(data)-offset)
			return
		}

		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], options.Address+process.ProcessMemoryAddress(offset), options)
	}
}

func (o HexDumpOptions) paint(fg coloransi.ColorCode, s string) string {
	if !o.Colors {
		return s
	}
	return coloransi.Foreground(fg, s)
}

// formatLine writes one line:
//
//	00007f0000001000  00 01 02 03 04 05 06 07 | 08 09 0a 0b 0c 0d 0e 0f | ........ ........ | 0x7f0000001040 (rw-)
func formatLine(writer io.Writer, data []byte, addr process.ProcessMemoryAddress, options HexDumpOptions) {
	fmt.Fprint(writer, options.paint(options.OffsetColor, fmt.Sprintf("%0*x", options.OffsetWidth, uint64(addr))), "  ")

	groups := formatHexValues(data, options)
	left := min(max(options.BytesPerLine/options.GroupSize/2, 1), len(groups))
	split := options.BytesPerLine >= 8 && len(data) > options.BytesPerLine/2 && left < len(groups)

	if split {
		fmt.Fprint(writer, strings.Join(groups[:left], " "), " | ", strings.Join(groups[left:], " "))
	} else {
		fmt.Fprint(writer, strings.Join(groups, " "))
	}

	// pad short lines so the ASCII column lines up
	if missing := options.BytesPerLine - len(data); missing > 0 {
		fullGroups := (options.BytesPerLine + options.GroupSize - 1) / options.GroupSize
		curGroups := (len(data) + options.GroupSize - 1) / options.GroupSize
		padding := missing*2 + (fullGroups - 1) - max(0, curGroups-1)
		if options.BytesPerLine >= 8 && !split {
			padding += 2 // " | " in place of one space
		}
		fmt.Fprint(writer, strings.Repeat(" ", max(padding, 0)))
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " | ")
		mid := options.BytesPerLine / 2
		if split && mid < len(data) {
			formatASCII(writer, data[:mid], options)
			fmt.Fprint(writer, " ")
			formatASCII(writer, data[mid:], options)
		} else {
			formatASCII(writer, data, options)
		}
	}

	if ptrs := Pointers(data, addr, options.MemoryMap); len(ptrs) > 0 {
		fmt.Fprint(writer, " |")
		for _, p := range ptrs {
			fmt.Fprint(writer, " ", options.paint(options.PointerColor, p.String()))
		}
	}

	fmt.Fprintln(writer)
}

func formatASCII(writer io.Writer, data []byte, options HexDumpOptions) {
	for _, b := range data {
		c := rune(b)
		switch {
		case b == 0:
			fmt.Fprint(writer, options.paint(options.ZeroColor, "."))
		case c > unicode.MaxASCII || !unicode.IsPrint(c):
			fmt.Fprint(writer, options.paint(options.NonPrintableColor, "."))
		default:
			fmt.Fprint(writer, options.paint(options.ASCIIColor, string(c)))
		}
	}
}

func formatHexValues(data []byte, options HexDumpOptions) []string {
	var result []string
	var group strings.Builder

	for i, b := range data {
		color := options.HexColor
		if b == 0 {
			color = options.ZeroColor
		}
		group.WriteString(options.paint(color, fmt.Sprintf("%02x", b)))

		if (i+1)%options.GroupSize == 0 || i == len(data)-1 {
			result = append(result, group.String())
			group.Reset()
		}
	}

	return result
}

// Pointer is a word in dumped memory whose value lies in a mapped region.
type Pointer struct {
	At     process.ProcessMemoryAddress
	Target process.ProcessMemoryAddress
	Flags  process.ProtectionFlags
}

func (p Pointer) String() string {
	return fmt.Sprintf("%s (%s)", p.Target, p.Flags)
}

// Pointers returns the pointer-sized words of data, aligned to the remote
// address, whose values fall inside a region of the sorted memory map.
func Pointers(data []byte, addr process.ProcessMemoryAddress, mm []memory_map.MemoryMapItem) []Pointer {
	if len(mm) == 0 {
		return nil
	}

	const word = int(process.PointerSize)
	var out []Pointer
	first := int((word - int(addr%process.ProcessMemoryAddress(word))) % word)
	for i := first; i+word <= len(data); i += word {
		v := binary.LittleEndian.Uint64(data[i : i+word])
		if v == 0 {
			continue
		}
		if item := memory_map.Find(v, mm); item != nil {
			out = append(out, Pointer{
				At:     addr + process.ProcessMemoryAddress(i),
				Target: process.ProcessMemoryAddress(v),
				Flags:  item.Flags(),
			})
		}
	}
	return out
}

// HexDump is a convenient wrapper around the Dump function with default options
type HexDump struct {
	Options HexDumpOptions
}

// NewHexDump creates a new HexDump with default options
func NewHexDump() *HexDump {
	return &HexDump{
		Options: DefaultOptions(),
	}
}

func (h *HexDump) SetBytesPerLine(value int) *HexDump {
	h.Options.BytesPerLine = value
	return h
}

func (h *HexDump) SetGroupSize(value int) *HexDump {
	h.Options.GroupSize = value
	return h
}

func (h *HexDump) SetShowASCII(value bool) *HexDump {
	h.Options.ShowASCII = value
	return h
}

// SetAddress sets the remote address of the first dumped byte.
func (h *HexDump) SetAddress(addr process.ProcessMemoryAddress) *HexDump {
	h.Options.Address = addr
	return h
}

func (h *HexDump) SetColors(enabled bool) *HexDump {
	h.Options.Colors = enabled
	return h
}

func (h *HexDump) SetMaxLines(value int) *HexDump {
	h.Options.MaxLines = value
	return h
}

// EnablePointerChecking annotates words that point into memoryMap.
func (h *HexDump) EnablePointerChecking(memoryMap []memory_map.MemoryMapItem) *HexDump {
	h.Options.MemoryMap = memoryMap
	return h
}

func (h *HexDump) Dump(data []byte) string {
	return Dump(data, h.Options)
}

func (h *HexDump) DumpToWriter(writer io.Writer, data []byte) {
	DumpToWriter(writer, data, h.Options)
}

// HexdumpBasic dumps data read from addr, annotating pointers into mm.
func HexdumpBasic(data []byte, addr process.ProcessMemoryAddress, mm []memory_map.MemoryMapItem) string {
	return NewHexDump().SetAddress(addr).EnablePointerChecking(mm).Dump(data)
}
