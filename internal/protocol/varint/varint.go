// Package varint packs unsigned integers into 7-bit groups, least
// significant group first, with the high bit of each byte flagging that
// another group follows.
package varint

import "github.com/cockroachdb/errors"

const (
	// MaxLen32 is the longest encoding of a 32-bit value.
	MaxLen32 = 5
	// MaxLen64 is the longest encoding of a 64-bit value. The ninth byte
	// carries a full 8 bits, so no tenth byte is ever needed.
	MaxLen64 = 9
)

var (
	ErrTruncated = errors.New("varint: truncated sequence")
	ErrOverflow  = errors.New("varint: value overflows target width")
)

// Append appends the plain group encoding of v to dst.
func Append(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Len returns the number of bytes Append writes for v.
func Len(v uint64) int {
	n := 1
	for ; v >= 0x80; v >>= 7 {
		n++
	}
	return n
}

// Append64 appends v using at most MaxLen64 bytes. After eight continuation
// bytes the remaining 8 bits are written as-is.
func Append64(dst []byte, v uint64) []byte {
	for i := 0; v >= 0x80 && i < MaxLen64-1; i++ {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// Len64 returns the number of bytes Append64 writes for v.
func Len64(v uint64) int {
	n := 1
	for ; v >= 0x80 && n < MaxLen64; v >>= 7 {
		n++
	}
	return n
}

// Read32 decodes a value of at most 32 bits starting at src[pos] and
// returns it with the position just past the last byte read.
func Read32(src []byte, pos int) (uint32, int, error) {
	var x uint32
	for i := 0; i < MaxLen32; i++ {
		if pos >= len(src) {
			return 0, pos, ErrTruncated
		}
		b := src[pos]
		pos++
		if i == MaxLen32-1 {
			// 4 groups hold 28 bits; the fifth may only add the top 4.
			if b > 0x0f {
				return 0, pos, ErrOverflow
			}
			return x | uint32(b)<<28, pos, nil
		}
		x |= uint32(b&0x7f) << (7 * i)
		if b < 0x80 {
			return x, pos, nil
		}
	}
	return 0, pos, ErrOverflow
}

// Read64 decodes a value written by Append or Append64 starting at src[pos].
func Read64(src []byte, pos int) (uint64, int, error) {
	var x uint64
	for i := 0; i < MaxLen64; i++ {
		if pos >= len(src) {
			return 0, pos, ErrTruncated
		}
		b := src[pos]
		pos++
		if i == MaxLen64-1 {
			return x | uint64(b)<<56, pos, nil
		}
		x |= uint64(b&0x7f) << (7 * i)
		if b < 0x80 {
			return x, pos, nil
		}
	}
	return 0, pos, ErrOverflow
}
