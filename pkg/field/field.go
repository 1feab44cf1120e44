// Package field holds the byte-level transcoders used by codeplug records.
// The helpers are stateless and never apply business rules; callers pass a
// record buffer and an offset relative to it.
package field

import (
	"encoding/binary"
	"errors"
	"time"
)

// ErrNegativeDuration is returned when a negative duration is encoded
var ErrNegativeDuration = errors.New("negative duration cannot be encoded")

// Uint8 reads a single byte
func Uint8(b []byte, off int) uint8 {
	return b[off]
}

// SetUint8 writes a single byte
func SetUint8(b []byte, off int, v uint8) {
	b[off] = v
}

// Uint16 reads a 16-bit integer in the given byte order
func Uint16(b []byte, off int, order binary.ByteOrder) uint16 {
	return order.Uint16(b[off : off+2])
}

// SetUint16 writes a 16-bit integer in the given byte order
func SetUint16(b []byte, off int, order binary.ByteOrder, v uint16) {
	order.PutUint16(b[off:off+2], v)
}

// Uint24LE reads a little-endian 24-bit integer
func Uint24LE(b []byte, off int) uint32 {
	return uint32(b[off]) | uint32(b[off+1])<<8 | uint32(b[off+2])<<16
}

// SetUint24LE writes a little-endian 24-bit integer, dropping the high byte
func SetUint24LE(b []byte, off int, v uint32) {
	b[off] = byte(v)
	b[off+1] = byte(v >> 8)
	b[off+2] = byte(v >> 16)
}

// Uint32 reads a 32-bit integer in the given byte order
func Uint32(b []byte, off int, order binary.ByteOrder) uint32 {
	return order.Uint32(b[off : off+4])
}

// SetUint32 writes a 32-bit integer in the given byte order
func SetUint32(b []byte, off int, order binary.ByteOrder, v uint32) {
	order.PutUint32(b[off:off+4], v)
}

// Bit reports whether bit (0 = LSB) of the byte at off is set
func Bit(b []byte, off int, bit uint) bool {
	return b[off]&(1<<bit) != 0
}

// SetBit sets or clears a single bit
func SetBit(b []byte, off int, bit uint, v bool) {
	if v {
		b[off] |= 1 << bit
	} else {
		b[off] &^= 1 << bit
	}
}

// Bits reads a width-bit unsigned field starting at bit position shift
func Bits(b []byte, off int, shift, width uint) uint8 {
	mask := byte(1<<width) - 1
	return (b[off] >> shift) & mask
}

// SetBits writes a width-bit unsigned field, masking v to the field width
func SetBits(b []byte, off int, shift, width uint, v uint8) {
	mask := byte(1<<width) - 1
	b[off] = b[off]&^(mask<<shift) | (v&mask)<<shift
}

// Fill sets n bytes starting at off to v
func Fill(b []byte, off, n int, v byte) {
	for i := off; i < off+n; i++ {
		b[i] = v
	}
}

// BCD2 decodes one byte holding two packed decimal digits
func BCD2(b []byte, off int) uint8 {
	return (b[off]>>4)*10 + b[off]&0x0f
}

// SetBCD2 encodes a value 0..99 as two packed decimal digits
func SetBCD2(b []byte, off int, v uint8) {
	v %= 100
	b[off] = (v/10)<<4 | v%10
}

// BCD4 decodes four packed decimal digits stored as a 16-bit word
func BCD4(b []byte, off int, order binary.ByteOrder) uint16 {
	return uint16(decodeBCD(uint32(order.Uint16(b[off:off+2])), 4))
}

// SetBCD4 encodes a value 0..9999 as four packed decimal digits
func SetBCD4(b []byte, off int, order binary.ByteOrder, v uint16) {
	order.PutUint16(b[off:off+2], uint16(encodeBCD(uint32(v)%10000, 4)))
}

// BCD8 decodes eight packed decimal digits stored as a 32-bit word.
// Big-endian order is the DMR-ID layout where the first byte holds the most
// significant digits.
func BCD8(b []byte, off int, order binary.ByteOrder) uint32 {
	return decodeBCD(order.Uint32(b[off:off+4]), 8)
}

// SetBCD8 encodes a value as eight packed decimal digits, clamping at 99999999
func SetBCD8(b []byte, off int, order binary.ByteOrder, v uint32) {
	if v > 99999999 {
		v = 99999999
	}
	order.PutUint32(b[off:off+4], encodeBCD(v, 8))
}

// DMRID reads a DMR ID stored as 8 BCD digits, most significant byte first
func DMRID(b []byte, off int) uint32 {
	return BCD8(b, off, binary.BigEndian)
}

// SetDMRID writes a DMR ID as 8 BCD digits, most significant byte first
func SetDMRID(b []byte, off int, id uint32) {
	SetBCD8(b, off, binary.BigEndian, id)
}

// Frequency reads a frequency in Hz stored as 8 little-endian BCD digits in
// units of 10 Hz
func Frequency(b []byte, off int) uint64 {
	return uint64(BCD8(b, off, binary.LittleEndian)) * 10
}

// SetFrequency writes a frequency in Hz rounded to the nearest 10 Hz
func SetFrequency(b []byte, off int, hz uint64) {
	units := (hz + 5) / 10
	if units > 99999999 {
		units = 99999999
	}
	SetBCD8(b, off, binary.LittleEndian, uint32(units))
}

// Tone reads a CTCSS tone in 0.1 Hz units from a little-endian BCD word.
// 0xffff and DCS-tagged codes read as 0 (no tone).
func Tone(b []byte, off int) uint16 {
	raw := binary.LittleEndian.Uint16(b[off : off+2])
	if raw == 0xffff || raw>>14 != 0 {
		return 0
	}
	return uint16(decodeBCD(uint32(raw), 4))
}

// SetTone writes a CTCSS tone in 0.1 Hz units; 0 writes the "none" marker
func SetTone(b []byte, off int, tenths uint16) {
	if tenths == 0 {
		binary.LittleEndian.PutUint16(b[off:off+2], 0xffff)
		return
	}
	binary.LittleEndian.PutUint16(b[off:off+2], uint16(encodeBCD(uint32(tenths)%10000, 4)))
}

// ScaledDuration converts a stored unit count back into a duration
func ScaledDuration(raw uint, unit time.Duration) time.Duration {
	return time.Duration(raw) * unit
}

// DurationUnits converts d into a count of unit, rounding to the nearest unit
// and clamping at max.
func DurationUnits(d, unit time.Duration, max uint) (uint, error) {
	if d < 0 {
		return 0, ErrNegativeDuration
	}
	n := uint((d + unit/2) / unit)
	if n > max {
		n = max
	}
	return n, nil
}

func decodeBCD(v uint32, digits int) uint32 {
	var res, mul uint32 = 0, 1
	for i := 0; i < digits; i++ {
		res += (v & 0x0f) * mul
		v >>= 4
		mul *= 10
	}
	return res
}

func encodeBCD(v uint32, digits int) uint32 {
	var res uint32
	for i := 0; i < digits; i++ {
		res |= (v % 10) << (4 * uint(i))
		v /= 10
	}
	return res
}
