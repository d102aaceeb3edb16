// Package tag packs a field index and a layout flag into the one-byte header
// that precedes every encoded field.
package tag

// Sentinel terminates every encoded struct. Index 127 is therefore never
// assigned to a field.
const Sentinel byte = 0x7f

const (
	// MaxIndex is the highest usable field index.
	MaxIndex uint8 = 126

	FlagBit   byte = 0x80
	IndexMask byte = 0x7f
)

// Encode builds the field header byte for index, setting the high bit when
// flag is true.
func Encode(index uint8, flag bool) byte {
	b := index & IndexMask
	if flag {
		b |= FlagBit
	}
	return b
}

// Decode splits a header byte into field index and flag.
func Decode(b byte) (uint8, bool) {
	return b & IndexMask, b&FlagBit != 0
}

func IsSentinel(b byte) bool {
	return b == Sentinel
}
