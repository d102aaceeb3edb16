package protocol

import (
	"slices"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/danmuck/wirecodec/internal/protocol/varint"
)

// Marshal encodes m. Every limit is checked before the output buffer is
// allocated, so a failed call writes nothing.
func Marshal(m *Message, limits Limits) ([]byte, error) {
	n, err := MarshalLen(m, limits)
	if err != nil {
		return nil, err
	}
	return appendMessage(make([]byte, 0, n), m), nil
}

// Append encodes m onto dst. On error dst is returned unchanged.
func Append(dst []byte, m *Message, limits Limits) ([]byte, error) {
	n, err := MarshalLen(m, limits)
	if err != nil {
		return dst, err
	}
	return appendMessage(slices.Grow(dst, n), m), nil
}

// MarshalLen returns the exact number of bytes Marshal produces for m.
func MarshalLen(m *Message, limits Limits) (int, error) {
	if m == nil || m.desc == nil {
		return 0, errors.Wrap(ErrInvalidValue, "marshal: nil message")
	}
	limits = limits.normalize()
	n, err := messageLen(m, limits, 1)
	if err != nil {
		return 0, errors.Wrapf(err, "marshal %s", m.desc.Name())
	}
	return n, nil
}

func messageLen(m *Message, limits Limits, depth int) (int, error) {
	if depth > limits.MaxDepth {
		return 0, errors.Wrapf(ErrDepthLimitExceeded, "struct %s at depth %d, max %d", m.desc.Name(), depth, limits.MaxDepth)
	}
	n := 1
	var err error
	m.Range(func(f schema.Field, v any) bool {
		var l int
		l, err = fieldLen(f, v, limits, depth)
		if err != nil {
			err = errors.Wrapf(err, "field %s", f.Name)
			return false
		}
		n += l
		if n > limits.MaxSize {
			err = errors.Wrapf(ErrSizeLimitExceeded, "struct %s: more than %d bytes", m.desc.Name(), limits.MaxSize)
			return false
		}
		return true
	})
	return n, err
}

func fieldLen(f schema.Field, v any, limits Limits, depth int) (int, error) {
	switch {
	case f.List && f.Type == schema.TypeStruct:
		list := v.([]*Message)
		if len(list) > limits.MaxList {
			return 0, errors.Wrapf(ErrSizeLimitExceeded, "%d elements, max %d", len(list), limits.MaxList)
		}
		n := 1 + varint.Len(uint64(len(list)))
		for i, e := range list {
			l, err := messageLen(e, limits, depth+1)
			if err != nil {
				return 0, errors.Wrapf(err, "element %d", i)
			}
			n += l
		}
		return n, nil
	case f.List:
		c := listCodecs[f.Type]
		count := c.count(v)
		if count > limits.MaxList {
			return 0, errors.Wrapf(ErrSizeLimitExceeded, "%d elements, max %d", count, limits.MaxList)
		}
		return 1 + varint.Len(uint64(count)) + c.elemsLen(v), nil
	case f.Type == schema.TypeStruct:
		l, err := messageLen(v.(*Message), limits, depth+1)
		if err != nil {
			return 0, err
		}
		return 1 + l, nil
	default:
		return valueCodecs[f.Type].fieldLen(v), nil
	}
}

// appendMessage writes fields in ascending index order and closes with the
// sentinel. Callers have already validated m through messageLen.
func appendMessage(dst []byte, m *Message) []byte {
	m.Range(func(f schema.Field, v any) bool {
		dst = appendField(dst, f, v)
		return true
	})
	return append(dst, tag.Sentinel)
}

func appendField(dst []byte, f schema.Field, v any) []byte {
	switch {
	case f.List && f.Type == schema.TypeStruct:
		list := v.([]*Message)
		dst = append(dst, tag.Encode(f.Index, false))
		dst = varint.Append(dst, uint64(len(list)))
		for _, e := range list {
			dst = appendMessage(dst, e)
		}
		return dst
	case f.List:
		c := listCodecs[f.Type]
		dst = append(dst, tag.Encode(f.Index, false))
		dst = varint.Append(dst, uint64(c.count(v)))
		return c.appendElems(dst, v)
	case f.Type == schema.TypeStruct:
		dst = append(dst, tag.Encode(f.Index, false))
		return appendMessage(dst, v.(*Message))
	default:
		return valueCodecs[f.Type].appendField(dst, f.Index, v)
	}
}
