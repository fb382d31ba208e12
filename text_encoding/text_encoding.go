// Package text_encoding decodes and encodes terminated strings stored in
// another process's memory.
package text_encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

var ErrUnknownEncoding = errors.New("unknown text encoding")

// Encoding pairs a character encoding with the size of its code unit, which is
// also the size of its zero terminator.
type Encoding struct {
	name      string
	codec     encoding.Encoding
	unit      int
	utf8      bool
	bigEndian bool
}

var (
	UTF8    = Encoding{name: "utf-8", codec: unicode.UTF8, unit: 1, utf8: true}
	UTF16LE = Encoding{name: "utf-16le", codec: unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), unit: 2}
	UTF16BE = Encoding{name: "utf-16be", codec: unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM), unit: 2, bigEndian: true}
	Latin1  = Encoding{name: "latin1", codec: charmap.ISO8859_1, unit: 1}
	CP1252  = Encoding{name: "windows-1252", codec: charmap.Windows1252, unit: 1}
)

var byName = map[string]Encoding{
	"utf8":         UTF8,
	"utf-8":        UTF8,
	"utf16":        UTF16LE,
	"utf-16":       UTF16LE,
	"utf16le":      UTF16LE,
	"utf-16le":     UTF16LE,
	"utf16be":      UTF16BE,
	"utf-16be":     UTF16BE,
	"latin1":       Latin1,
	"iso-8859-1":   Latin1,
	"cp1252":       CP1252,
	"windows-1252": CP1252,
}

// Lookup returns the encoding registered under name (case-insensitive).
func Lookup(name string) (Encoding, error) {
	enc, ok := byName[strings.ToLower(name)]
	if !ok {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return enc, nil
}

func (e Encoding) Name() string {
	return e.name
}

// UnitSize returns the size in bytes of one code unit.
func (e Encoding) UnitSize() int {
	return e.unit
}

// IsZero reports whether e is the zero Encoding.
func (e Encoding) IsZero() bool {
	return e.codec == nil
}

func (e Encoding) String() string {
	return e.name
}

// Decode converts at most maxLength bytes of data into text. Decoding stops at
// the first zero code unit. When no terminator is found the text is cut at
// maxLength and any trailing partial character is dropped; this truncation is
// not an error.
func (e Encoding) Decode(data []byte, maxLength int) (string, error) {
	if e.IsZero() {
		return "", ErrUnknownEncoding
	}
	if maxLength <= 0 || len(data) == 0 {
		return "", nil
	}

	if len(data) > maxLength {
		data = data[:maxLength]
	}
	data = data[:len(data)-len(data)%e.unit]

	if i := e.terminator(data); i >= 0 {
		data = data[:i]
	} else {
		data = e.trimPartial(data)
	}

	out, err := e.codec.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", e.name, err)
	}
	return string(out), nil
}

// Encode converts text into bytes followed by a single zero terminator.
func (e Encoding) Encode(text string) ([]byte, error) {
	if e.IsZero() {
		return nil, ErrUnknownEncoding
	}

	out, err := e.codec.NewEncoder().Bytes([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.name, err)
	}
	return append(out, make([]byte, e.unit)...), nil
}

// Terminated reports whether data contains a terminator at a code unit
// boundary.
func (e Encoding) Terminated(data []byte) bool {
	return !e.IsZero() && e.terminator(data) >= 0
}

// terminator returns the offset of the first aligned zero code unit, or -1.
func (e Encoding) terminator(data []byte) int {
	for i := 0; i+e.unit <= len(data); i += e.unit {
		zero := true
		for _, b := range data[i : i+e.unit] {
			if b != 0 {
				zero = false
				break
			}
		}
		if zero {
			return i
		}
	}
	return -1
}

func (e Encoding) trimPartial(data []byte) []byte {
	switch {
	case e.utf8:
		for i := len(data) - 1; i >= 0 && i >= len(data)-utf8.UTFMax; i-- {
			if utf8.RuneStart(data[i]) {
				if !utf8.FullRune(data[i:]) {
					return data[:i]
				}
				return data
			}
		}
	case e.unit == 2 && len(data) >= 2:
		last := data[len(data)-2:]
		var u uint16
		if e.bigEndian {
			u = uint16(last[0])<<8 | uint16(last[1])
		} else {
			u = uint16(last[1])<<8 | uint16(last[0])
		}
		// lone high surrogate
		if u >= 0xD800 && u <= 0xDBFF {
			return data[:len(data)-2]
		}
	}
	return data
}
