package protocol

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/danmuck/wirecodec/internal/protocol/varint"
)

// Text and binary share the length-prefixed layout and never set the flag.
type textCodec struct{}

func (textCodec) fieldLen(v any) int {
	n := len(v.(string))
	return 1 + varint.Len(uint64(n)) + n
}

func (textCodec) appendField(dst []byte, index uint8, v any) []byte {
	s := v.(string)
	dst = append(dst, tag.Encode(index, false))
	dst = varint.Append(dst, uint64(len(s)))
	return append(dst, s...)
}

func (textCodec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	b, next, err := d.chunk(pos)
	if err != nil {
		return nil, pos, err
	}
	return string(b), next, nil
}

type binaryCodec struct{}

func (binaryCodec) fieldLen(v any) int {
	n := len(v.([]byte))
	return 1 + varint.Len(uint64(n)) + n
}

func (binaryCodec) appendField(dst []byte, index uint8, v any) []byte {
	b := v.([]byte)
	dst = append(dst, tag.Encode(index, false))
	dst = varint.Append(dst, uint64(len(b)))
	return append(dst, b...)
}

func (binaryCodec) readField(d *decoder, pos int, flag bool) (any, int, error) {
	if flag {
		return nil, pos, errUnusedFlag(pos)
	}
	b, next, err := d.chunk(pos)
	if err != nil {
		return nil, pos, err
	}
	return bytes.Clone(b), next, nil
}

// listCodec frames the elements of a list field after its tag and count.
// Elements carry no tag, so each type has a single bare layout.
type listCodec interface {
	count(v any) int
	elemsLen(v any) int
	// minWidth is the smallest encoded element, used to reject declared
	// counts the remaining input cannot hold.
	minWidth() int
	appendElems(dst []byte, v any) []byte
	readElems(d *decoder, pos, n int) (any, int, error)
}

// listCodecs is indexed by element type. Struct lists recurse through the
// struct codec and have no entry.
var listCodecs = [...]listCodec{
	schema.TypeBool:      boolList,
	schema.TypeUint8:     uint8List,
	schema.TypeUint16:    uint16List,
	schema.TypeUint32:    uint32List,
	schema.TypeUint64:    uint64List,
	schema.TypeInt32:     int32List,
	schema.TypeInt64:     int64List,
	schema.TypeFloat32:   float32List,
	schema.TypeFloat64:   float64List,
	schema.TypeTimestamp: timestampList,
	schema.TypeText:      textList{},
	schema.TypeBinary:    binaryList{},
	schema.TypeStruct:    nil,
}

type fixedList[T any] struct {
	width int
	put   func(dst []byte, v T) []byte
	get   func(b []byte) (T, error)
}

func (c fixedList[T]) count(v any) int    { return len(v.([]T)) }
func (c fixedList[T]) elemsLen(v any) int { return c.width * len(v.([]T)) }
func (c fixedList[T]) minWidth() int      { return c.width }

func (c fixedList[T]) appendElems(dst []byte, v any) []byte {
	for _, e := range v.([]T) {
		dst = c.put(dst, e)
	}
	return dst
}

func (c fixedList[T]) readElems(d *decoder, pos, n int) (any, int, error) {
	b, next, err := d.take(pos, n*c.width)
	if err != nil {
		return nil, pos, err
	}
	out := make([]T, n)
	for i := range out {
		e, err := c.get(b[i*c.width:])
		if err != nil {
			return nil, pos, errors.Wrapf(err, "offset %d: element %d", pos+i*c.width, i)
		}
		out[i] = e
	}
	return out, next, nil
}

var (
	boolList = fixedList[bool]{
		width: 1,
		put: func(dst []byte, v bool) []byte {
			if v {
				return append(dst, 1)
			}
			return append(dst, 0)
		},
		get: func(b []byte) (bool, error) {
			switch b[0] {
			case 0:
				return false, nil
			case 1:
				return true, nil
			}
			return false, errors.Wrapf(ErrInvalidValue, "bool byte 0x%02x", b[0])
		},
	}
	uint8List = fixedList[uint8]{
		width: 1,
		put:   func(dst []byte, v uint8) []byte { return append(dst, v) },
		get:   func(b []byte) (uint8, error) { return b[0], nil },
	}
	uint16List = fixedList[uint16]{
		width: 2,
		put:   binary.BigEndian.AppendUint16,
		get:   func(b []byte) (uint16, error) { return binary.BigEndian.Uint16(b), nil },
	}
	uint32List = fixedList[uint32]{
		width: 4,
		put:   binary.BigEndian.AppendUint32,
		get:   func(b []byte) (uint32, error) { return binary.BigEndian.Uint32(b), nil },
	}
	uint64List = fixedList[uint64]{
		width: 8,
		put:   binary.BigEndian.AppendUint64,
		get:   func(b []byte) (uint64, error) { return binary.BigEndian.Uint64(b), nil },
	}
	int32List = fixedList[int32]{
		width: 4,
		put:   func(dst []byte, v int32) []byte { return binary.BigEndian.AppendUint32(dst, uint32(v)) },
		get:   func(b []byte) (int32, error) { return int32(binary.BigEndian.Uint32(b)), nil },
	}
	int64List = fixedList[int64]{
		width: 8,
		put:   func(dst []byte, v int64) []byte { return binary.BigEndian.AppendUint64(dst, uint64(v)) },
		get:   func(b []byte) (int64, error) { return int64(binary.BigEndian.Uint64(b)), nil },
	}
	float32List = fixedList[float32]{
		width: 4,
		put: func(dst []byte, v float32) []byte {
			return binary.BigEndian.AppendUint32(dst, math.Float32bits(v))
		},
		get: func(b []byte) (float32, error) {
			return math.Float32frombits(binary.BigEndian.Uint32(b)), nil
		},
	}
	float64List = fixedList[float64]{
		width: 8,
		put: func(dst []byte, v float64) []byte {
			return binary.BigEndian.AppendUint64(dst, math.Float64bits(v))
		},
		get: func(b []byte) (float64, error) {
			return math.Float64frombits(binary.BigEndian.Uint64(b)), nil
		},
	}
	// Timestamps in lists always use the wide form: 8 signed seconds, 4 nanos.
	timestampList = fixedList[Timestamp]{
		width: 12,
		put: func(dst []byte, v Timestamp) []byte {
			v = v.Normalize()
			dst = binary.BigEndian.AppendUint64(dst, uint64(v.Seconds))
			return binary.BigEndian.AppendUint32(dst, v.Nanos)
		},
		get: func(b []byte) (Timestamp, error) {
			ts := Timestamp{
				Seconds: int64(binary.BigEndian.Uint64(b)),
				Nanos:   binary.BigEndian.Uint32(b[8:]),
			}
			if ts.Nanos >= nanosPerSecond {
				return Timestamp{}, errors.Wrapf(ErrInvalidValue, "timestamp nanoseconds %d", ts.Nanos)
			}
			return ts, nil
		},
	}
)

type textList struct{}

func (textList) count(v any) int { return len(v.([]string)) }
func (textList) minWidth() int   { return 1 }

func (textList) elemsLen(v any) int {
	n := 0
	for _, s := range v.([]string) {
		n += varint.Len(uint64(len(s))) + len(s)
	}
	return n
}

func (textList) appendElems(dst []byte, v any) []byte {
	for _, s := range v.([]string) {
		dst = varint.Append(dst, uint64(len(s)))
		dst = append(dst, s...)
	}
	return dst
}

func (textList) readElems(d *decoder, pos, n int) (any, int, error) {
	out := make([]string, n)
	for i := range out {
		b, next, err := d.chunk(pos)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "element %d", i)
		}
		out[i] = string(b)
		pos = next
	}
	return out, pos, nil
}

type binaryList struct{}

func (binaryList) count(v any) int { return len(v.([][]byte)) }
func (binaryList) minWidth() int   { return 1 }

func (binaryList) elemsLen(v any) int {
	n := 0
	for _, b := range v.([][]byte) {
		n += varint.Len(uint64(len(b))) + len(b)
	}
	return n
}

func (binaryList) appendElems(dst []byte, v any) []byte {
	for _, b := range v.([][]byte) {
		dst = varint.Append(dst, uint64(len(b)))
		dst = append(dst, b...)
	}
	return dst
}

func (binaryList) readElems(d *decoder, pos, n int) (any, int, error) {
	out := make([][]byte, n)
	for i := range out {
		b, next, err := d.chunk(pos)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "element %d", i)
		}
		out[i] = append([]byte{}, b...)
		pos = next
	}
	return out, pos, nil
}
