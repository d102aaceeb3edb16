package protocol

import (
	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/danmuck/wirecodec/internal/protocol/varint"
	"github.com/rs/zerolog/log"
)

// Unmarshal decodes exactly one message of kind desc from data. Bytes left
// after the closing sentinel fail with ErrTrailingBytes.
func Unmarshal(data []byte, desc *schema.Struct, limits Limits) (*Message, error) {
	m, n, err := UnmarshalPrefix(data, desc, limits)
	if err != nil {
		return nil, err
	}
	if n != len(data) {
		err = errors.Wrapf(ErrTrailingBytes, "unmarshal %s: %d bytes after offset %d", desc.Name(), len(data)-n, n)
		logDecodeFailure(desc, err)
		return nil, err
	}
	return m, nil
}

// UnmarshalPrefix decodes one message from the front of data and returns it
// with the number of bytes consumed.
func UnmarshalPrefix(data []byte, desc *schema.Struct, limits Limits) (*Message, int, error) {
	if desc == nil {
		return nil, 0, errors.Wrap(ErrInvalidValue, "unmarshal: nil descriptor")
	}
	d := newDecoder(data, limits)
	m, n, err := d.message(desc, 0, 1)
	if err != nil {
		err = errors.Wrapf(err, "unmarshal %s", desc.Name())
		logDecodeFailure(desc, err)
		return nil, 0, err
	}
	return m, n, nil
}

func logDecodeFailure(desc *schema.Struct, err error) {
	log.Debug().
		Str("struct", desc.Name()).
		Str("kind", Kind(err)).
		Err(err).
		Msg("unmarshal failed")
}

// decoder reads from a buffer cut to the size limit. Hitting the cut is a
// size error; hitting the true end of input is an EOF error.
type decoder struct {
	buf     []byte
	limited bool
	limits  Limits
}

func newDecoder(data []byte, limits Limits) *decoder {
	limits = limits.normalize()
	d := &decoder{buf: data, limits: limits}
	if len(data) > limits.MaxSize {
		d.buf = data[:limits.MaxSize]
		d.limited = true
	}
	return d
}

func (d *decoder) short(pos int) error {
	if d.limited {
		return errors.Wrapf(ErrSizeLimitExceeded, "offset %d: input exceeds %d bytes", pos, d.limits.MaxSize)
	}
	return errors.Wrapf(ErrUnexpectedEOF, "offset %d", pos)
}

func (d *decoder) take(pos, n int) ([]byte, int, error) {
	if n < 0 || n > len(d.buf)-pos {
		return nil, pos, d.short(pos)
	}
	return d.buf[pos : pos+n], pos + n, nil
}

func (d *decoder) varintErr(err error, start, next int) error {
	// Nothing read at all, or cut off by the size limit.
	if errors.Is(err, varint.ErrTruncated) && (next == start || d.limited) {
		return d.short(start)
	}
	return errors.Wrapf(ErrMalformedVarInt, "offset %d: %v", start, err)
}

func (d *decoder) uvarint32(pos int) (uint32, int, error) {
	v, next, err := varint.Read32(d.buf, pos)
	if err != nil {
		return 0, pos, d.varintErr(err, pos, next)
	}
	return v, next, nil
}

func (d *decoder) uvarint64(pos int) (uint64, int, error) {
	v, next, err := varint.Read64(d.buf, pos)
	if err != nil {
		return 0, pos, d.varintErr(err, pos, next)
	}
	return v, next, nil
}

// chunk reads a varint length followed by that many bytes.
func (d *decoder) chunk(pos int) ([]byte, int, error) {
	n, next, err := d.uvarint64(pos)
	if err != nil {
		return nil, pos, err
	}
	if n > uint64(d.limits.MaxSize) {
		return nil, pos, errors.Wrapf(ErrSizeLimitExceeded, "offset %d: length %d, max %d", pos, n, d.limits.MaxSize)
	}
	return d.take(next, int(n))
}

// count reads a list element count and checks it against MaxList and the
// room left for elements of at least minWidth bytes.
func (d *decoder) count(pos, minWidth int) (int, int, error) {
	n, next, err := d.uvarint64(pos)
	if err != nil {
		return 0, pos, err
	}
	if n > uint64(d.limits.MaxList) {
		return 0, pos, errors.Wrapf(ErrSizeLimitExceeded, "offset %d: %d elements, max %d", pos, n, d.limits.MaxList)
	}
	if n > uint64((len(d.buf)-next)/minWidth) {
		return 0, pos, d.short(next)
	}
	return int(n), next, nil
}

func (d *decoder) message(desc *schema.Struct, pos, depth int) (*Message, int, error) {
	if depth > d.limits.MaxDepth {
		return nil, pos, errors.Wrapf(ErrDepthLimitExceeded, "offset %d: struct %s at depth %d, max %d", pos, desc.Name(), depth, d.limits.MaxDepth)
	}
	m := NewMessage(desc)
	last := -1
	for {
		b, next, err := d.take(pos, 1)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "struct %s", desc.Name())
		}
		if tag.IsSentinel(b[0]) {
			return m, next, nil
		}
		index, flag := tag.Decode(b[0])
		f, ok := desc.Field(index)
		if !ok {
			return nil, pos, errors.Wrapf(ErrUnknownField, "offset %d: struct %s has no index %d", pos, desc.Name(), index)
		}
		v, after, err := d.field(f, next, flag, depth)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "struct %s field %s", desc.Name(), f.Name)
		}
		if int(index) <= last {
			return nil, pos, errors.Wrapf(ErrOutOfOrderField, "offset %d: struct %s index %d after %d", pos, desc.Name(), index, last)
		}
		last = int(index)
		if !isDefault(f, v) {
			m.values[index] = v
		}
		pos = after
	}
}

func (d *decoder) field(f schema.Field, pos int, flag bool, depth int) (any, int, error) {
	switch {
	case f.List:
		if flag {
			return nil, pos, errUnusedFlag(pos)
		}
		return d.list(f, pos, depth)
	case f.Type == schema.TypeStruct:
		if flag {
			return nil, pos, errUnusedFlag(pos)
		}
		m, next, err := d.message(f.Ref, pos, depth+1)
		if err != nil {
			return nil, pos, err
		}
		return m, next, nil
	default:
		return valueCodecs[f.Type].readField(d, pos, flag)
	}
}

func (d *decoder) list(f schema.Field, pos, depth int) (any, int, error) {
	if f.Type != schema.TypeStruct {
		c := listCodecs[f.Type]
		n, next, err := d.count(pos, c.minWidth())
		if err != nil {
			return nil, pos, err
		}
		return c.readElems(d, next, n)
	}
	n, next, err := d.count(pos, 1)
	if err != nil {
		return nil, pos, err
	}
	out := make([]*Message, n)
	for i := range out {
		e, after, err := d.message(f.Ref, next, depth+1)
		if err != nil {
			return nil, pos, errors.Wrapf(err, "element %d", i)
		}
		out[i] = e
		next = after
	}
	return out, next, nil
}
