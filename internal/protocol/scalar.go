package protocol

import (
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/danmuck/wirecodec/internal/protocol/varint"
)

const (
	// uint32 values from here on take 5 varint bytes, so the 4-byte form wins.
	uint32FixedFrom = 1 << 28
	// uint64 values from here on take 8 or more varint bytes.
	uint64FixedFrom = 1 << 49

	uint16CompactMax = math.MaxUint8
)

// fieldCodec encodes one non-list field kind. Each implementation owns the
// meaning of the tag flag for its type. fieldLen and appendField include the
// tag byte; readField starts right after it.
type fieldCodec interface {
	fieldLen(v any) int
	appendField(dst []byte, index uint8, v any) []byte
	readField(d *decoder, pos int, flag bool) (any, int, error)
}

// valueCodecs is indexed by declared type. Struct fields recurse through the
// struct codec and have no entry.
var valueCodecs = [...]fieldCodec{
	schema.TypeBool:      boolCodec{},
	schema.TypeUint8:     uint8Codec{},
	schema.TypeUint16:    uint16Codec{},
	schema.TypeUint32:    uint32Codec{},
	schema.TypeUint64:    uint64Codec{},
	schema.TypeInt32:     int32Codec{},
	schema.TypeInt64:     int64Codec{},
	schema.TypeFloat32:   float32Codec{},
	schema.TypeFloat64:   float64Codec{},
	schema.TypeTimestamp: timestampCodec{},
	schema.TypeText:      textCodec{},
	schema.TypeBinary:    binaryCodec{},
	schema.TypeStruct:    nil,
}

func errUnusedFlag(pos int) error {
	return errors.Wrapf(ErrInvalidValue, "offset %d: flag set on a type without a flagged layout", pos-1)
}

type boolCodec struct{}

func (boolCodec) fieldLen(any) int { return 1 }

// Only true is ever written; the tag alone carries it.
func (boolCodec) appendField(dst []byte, index uint8, _ any) []byte {
	return append(dst, tag.Encode(index, false))
}

func (boolCodec) readField(_ *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	return true, pos, nil
}

type uint8Codec struct{}

func (uint8Codec) fieldLen(any) int { return 2 }

func (uint8Codec) appendField(dst []byte, index uint8, v any) []byte {
	return append(dst, tag.Encode(index, false), v.(uint8))
}

func (uint8Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	b, next, err := d.take(pos, 1)
	if err != nil {
		return nil, pos, err
	}
	return b[0], next, nil
}

// uint16Codec: flag selects the one-byte form for values that fit.
type uint16Codec struct{}

func (uint16Codec) fieldLen(v any) int {
	if v.(uint16) <= uint16CompactMax {
		return 2
	}
	return 3
}

func (uint16Codec) appendField(dst []byte, index uint8, v any) []byte {
	x := v.(uint16)
	if x <= uint16CompactMax {
		return append(dst, tag.Encode(index, true), byte(x))
	}
	dst = append(dst, tag.Encode(index, false))
	return binary.BigEndian.AppendUint16(dst, x)
}

func (uint16Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		b, next, err := d.take(pos, 1)
		if err != nil {
			return nil, pos, err
		}
		return uint16(b[0]), next, nil
	}
	b, next, err := d.take(pos, 2)
	if err != nil {
		return nil, pos, err
	}
	return binary.BigEndian.Uint16(b), next, nil
}

// uint32Codec: flag selects the fixed 4-byte fallback.
type uint32Codec struct{}

func (uint32Codec) fieldLen(v any) int {
	x := v.(uint32)
	if x >= uint32FixedFrom {
		return 5
	}
	return 1 + varint.Len(uint64(x))
}

func (uint32Codec) appendField(dst []byte, index uint8, v any) []byte {
	x := v.(uint32)
	if x >= uint32FixedFrom {
		dst = append(dst, tag.Encode(index, true))
		return binary.BigEndian.AppendUint32(dst, x)
	}
	dst = append(dst, tag.Encode(index, false))
	return varint.Append(dst, uint64(x))
}

func (uint32Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		b, next, err := d.take(pos, 4)
		if err != nil {
			return nil, pos, err
		}
		return binary.BigEndian.Uint32(b), next, nil
	}
	x, next, err := d.uvarint32(pos)
	if err != nil {
		return nil, pos, err
	}
	return x, next, nil
}

// uint64Codec: flag selects the fixed 8-byte fallback.
type uint64Codec struct{}

func (uint64Codec) fieldLen(v any) int {
	x := v.(uint64)
	if x >= uint64FixedFrom {
		return 9
	}
	return 1 + varint.Len(x)
}

func (uint64Codec) appendField(dst []byte, index uint8, v any) []byte {
	x := v.(uint64)
	if x >= uint64FixedFrom {
		dst = append(dst, tag.Encode(index, true))
		return binary.BigEndian.AppendUint64(dst, x)
	}
	dst = append(dst, tag.Encode(index, false))
	return varint.Append(dst, x)
}

func (uint64Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		b, next, err := d.take(pos, 8)
		if err != nil {
			return nil, pos, err
		}
		return binary.BigEndian.Uint64(b), next, nil
	}
	x, next, err := d.uvarint64(pos)
	if err != nil {
		return nil, pos, err
	}
	return x, next, nil
}

// int32Codec: flag marks a negative value; the magnitude is always a varint.
type int32Codec struct{}

func magnitude32(x int32) (uint64, bool) {
	if x < 0 {
		return uint64(-int64(x)), true
	}
	return uint64(x), false
}

func (int32Codec) fieldLen(v any) int {
	mag, _ := magnitude32(v.(int32))
	return 1 + varint.Len(mag)
}

func (int32Codec) appendField(dst []byte, index uint8, v any) []byte {
	mag, neg := magnitude32(v.(int32))
	dst = append(dst, tag.Encode(index, neg))
	return varint.Append(dst, mag)
}

func (int32Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	x, next, err := d.uvarint32(pos)
	if err != nil {
		return nil, pos, err
	}
	if flag {
		if x > 1<<31 {
			return nil, pos, errors.Wrapf(ErrMalformedVarInt, "offset %d: int32 magnitude %d out of range", pos, x)
		}
		return int32(-int64(x)), next, nil
	}
	if x > math.MaxInt32 {
		return nil, pos, errors.Wrapf(ErrMalformedVarInt, "offset %d: int32 magnitude %d out of range", pos, x)
	}
	return int32(x), next, nil
}

// int64Codec: as int32, with the 9-byte varint so 2^63 still fits.
type int64Codec struct{}

func magnitude64(x int64) (uint64, bool) {
	if x < 0 {
		return -uint64(x), true
	}
	return uint64(x), false
}

func (int64Codec) fieldLen(v any) int {
	mag, _ := magnitude64(v.(int64))
	return 1 + varint.Len64(mag)
}

func (int64Codec) appendField(dst []byte, index uint8, v any) []byte {
	mag, neg := magnitude64(v.(int64))
	dst = append(dst, tag.Encode(index, neg))
	return varint.Append64(dst, mag)
}

func (int64Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	mag, next, err := d.uvarint64(pos)
	if err != nil {
		return nil, pos, err
	}
	if flag {
		if mag > 1<<63 {
			return nil, pos, errors.Wrapf(ErrMalformedVarInt, "offset %d: int64 magnitude %d out of range", pos, mag)
		}
		return int64(-mag), next, nil
	}
	if mag > math.MaxInt64 {
		return nil, pos, errors.Wrapf(ErrMalformedVarInt, "offset %d: int64 magnitude %d out of range", pos, mag)
	}
	return int64(mag), next, nil
}

type float32Codec struct{}

func (float32Codec) fieldLen(any) int { return 5 }

func (float32Codec) appendField(dst []byte, index uint8, v any) []byte {
	dst = append(dst, tag.Encode(index, false))
	return binary.BigEndian.AppendUint32(dst, math.Float32bits(v.(float32)))
}

func (float32Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	b, next, err := d.take(pos, 4)
	if err != nil {
		return nil, pos, err
	}
	return math.Float32frombits(binary.BigEndian.Uint32(b)), next, nil
}

type float64Codec struct{}

func (float64Codec) fieldLen(any) int { return 9 }

func (float64Codec) appendField(dst []byte, index uint8, v any) []byte {
	dst = append(dst, tag.Encode(index, false))
	return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.(float64)))
}

func (float64Codec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	b, next, err := d.take(pos, 8)
	if err != nil {
		return nil, pos, err
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b)), next, nil
}

// timestampCodec: flag selects signed 64-bit seconds for times before the
// epoch or past 2106.
type timestampCodec struct{}

func wideSeconds(s int64) bool {
	return s < 0 || s > math.MaxUint32
}

func (timestampCodec) fieldLen(v any) int {
	if wideSeconds(v.(Timestamp).Normalize().Seconds) {
		return 13
	}
	return 9
}

func (timestampCodec) appendField(dst []byte, index uint8, v any) []byte {
	ts := v.(Timestamp).Normalize()
	if wideSeconds(ts.Seconds) {
		dst = append(dst, tag.Encode(index, true))
		dst = binary.BigEndian.AppendUint64(dst, uint64(ts.Seconds))
	} else {
		dst = append(dst, tag.Encode(index, false))
		dst = binary.BigEndian.AppendUint32(dst, uint32(ts.Seconds))
	}
	return binary.BigEndian.AppendUint32(dst, ts.Nanos)
}

func (timestampCodec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	width := 8
	if flag {
		width = 12
	}
	b, next, err := d.take(pos, width)
	if err != nil {
		return nil, pos, err
	}
	var ts Timestamp
	if flag {
		ts.Seconds = int64(binary.BigEndian.Uint64(b))
	} else {
		ts.Seconds = int64(binary.BigEndian.Uint32(b))
	}
	ts.Nanos = binary.BigEndian.Uint32(b[width-4:])
	if ts.Nanos >= nanosPerSecond {
		return nil, pos, errors.Wrapf(ErrInvalidValue, "offset %d: timestamp nanoseconds %d", pos, ts.Nanos)
	}
	return ts, next, nil
}
