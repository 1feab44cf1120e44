package field

import (
	"encoding/binary"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// ASCII reads up to n bytes, stopping at the first pad byte
func ASCII(b []byte, off, n int, pad byte) string {
	var sb strings.Builder
	for i := 0; i < n; i++ {
		c := b[off+i]
		if c == pad {
			break
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// SetASCII writes s truncated to n bytes and pads the remainder. Characters
// outside 7-bit ASCII are replaced by '?'.
func SetASCII(b []byte, off, n int, pad byte, s string) {
	i := 0
	for _, r := range s {
		if i >= n {
			break
		}
		if r > 0x7e || r < 0x20 {
			r = '?'
		}
		b[off+i] = byte(r)
		i++
	}
	for ; i < n; i++ {
		b[off+i] = pad
	}
}

// UTF16 reads up to n little-endian UTF-16 code units, stopping at 0x0000
func UTF16(b []byte, off, n int) string {
	end := off
	for i := 0; i < n; i++ {
		if binary.LittleEndian.Uint16(b[off+2*i:]) == 0x0000 {
			break
		}
		end += 2
	}
	s, _, err := transform.Bytes(utf16le.NewDecoder(), b[off:end])
	if err != nil {
		return ""
	}
	return string(s)
}

// SetUTF16 writes s as little-endian UTF-16, truncated to n code units and
// padded with 0x0000. A surrogate pair is never split by the truncation.
func SetUTF16(b []byte, off, n int, s string) {
	enc, _, err := transform.Bytes(utf16le.NewEncoder(), []byte(s))
	if err != nil {
		enc = nil
	}
	units := len(enc) / 2
	if units > n {
		units = n
		last := binary.LittleEndian.Uint16(enc[2*(units-1):])
		if last >= 0xd800 && last < 0xdc00 {
			units--
		}
	}
	copy(b[off:off+2*units], enc[:2*units])
	Fill(b, off+2*units, 2*(n-units), 0x00)
}
