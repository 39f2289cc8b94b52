package parser

// encoding.go normalizes raw file bytes to UTF-8 before parsing.
//
// Spreadsheet exports arrive in a handful of encodings: UTF-8 (with or
// without BOM), UTF-16 (either endianness, BOM-marked), and Latin-1 from
// older Windows tooling. DecodeToUTF8 handles all of them and guarantees
// the returned string is valid UTF-8.

import (
	"bytes"
	"encoding/binary"
	"unicode/utf8"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeToUTF8 detects the encoding of data, strips any BOM, and returns
// the content as UTF-8 along with the detected encoding name. Input that
// is neither BOM-marked nor valid UTF-8 falls back to Latin-1, which
// cannot fail: every byte maps directly to a code point.
func DecodeToUTF8(data []byte) (string, string) {
	if len(data) == 0 {
		return "", "utf-8"
	}

	if bytes.HasPrefix(data, bomUTF8) {
		return string(sanitizeUTF8(data[3:])), "utf-8-bom"
	}
	if bytes.HasPrefix(data, bomUTF16LE) {
		return decodeUTF16(data[2:], binary.LittleEndian), "utf-16le"
	}
	if bytes.HasPrefix(data, bomUTF16BE) {
		return decodeUTF16(data[2:], binary.BigEndian), "utf-16be"
	}
	if utf8.Valid(data) {
		return string(data), "utf-8"
	}

	return decodeLatin1(data), "latin-1"
}

// sanitizeUTF8 replaces invalid UTF-8 sequences with the replacement
// character. Valid input is returned unchanged without copying.
func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('�')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}
	return buf.Bytes()
}

// decodeLatin1 converts Latin-1 (ISO 8859-1) bytes to UTF-8. Byte values
// 0x80-0xFF map directly to U+0080-U+00FF.
func decodeLatin1(data []byte) string {
	var buf bytes.Buffer
	buf.Grow(len(data) * 2)
	for _, b := range data {
		if b < 0x80 {
			buf.WriteByte(b)
		} else {
			buf.WriteRune(rune(b))
		}
	}
	return buf.String()
}

// decodeUTF16 converts UTF-16 bytes of the given endianness to UTF-8.
// Truncated trailing bytes are dropped and broken surrogates become the
// replacement character.
func decodeUTF16(data []byte, order binary.ByteOrder) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for i := 0; i < len(data); i += 2 {
		unit := order.Uint16(data[i : i+2])

		if unit >= 0xD800 && unit <= 0xDBFF {
			// High surrogate, needs a low surrogate to follow
			if i+3 < len(data) {
				low := order.Uint16(data[i+2 : i+4])
				if low >= 0xDC00 && low <= 0xDFFF {
					codePoint := 0x10000 + (rune(unit-0xD800)<<10 | rune(low-0xDC00))
					buf.WriteRune(codePoint)
					i += 2
					continue
				}
			}
			buf.WriteRune('�')
			continue
		}

		if unit >= 0xDC00 && unit <= 0xDFFF {
			// Lone low surrogate
			buf.WriteRune('�')
			continue
		}

		buf.WriteRune(rune(unit))
	}

	return buf.String()
}
