package protocol

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrMalformedVarInt    = errors.New("protocol: malformed varint")
	ErrUnexpectedEOF      = errors.New("protocol: unexpected end of input")
	ErrUnknownField       = errors.New("protocol: unknown field")
	ErrOutOfOrderField    = errors.New("protocol: field out of order")
	ErrSizeLimitExceeded  = errors.New("protocol: size limit exceeded")
	ErrDepthLimitExceeded = errors.New("protocol: depth limit exceeded")
	ErrInvalidValue       = errors.New("protocol: invalid value")
	ErrTrailingBytes      = errors.New("protocol: trailing bytes after message")
	ErrFieldTypeMismatch  = errors.New("protocol: field type mismatch")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrMalformedVarInt, "malformed_varint"},
	{ErrUnexpectedEOF, "unexpected_eof"},
	{ErrUnknownField, "unknown_field"},
	{ErrOutOfOrderField, "out_of_order_field"},
	{ErrSizeLimitExceeded, "size_limit_exceeded"},
	{ErrDepthLimitExceeded, "depth_limit_exceeded"},
	{ErrInvalidValue, "invalid_value"},
	{ErrTrailingBytes, "trailing_bytes"},
	{ErrFieldTypeMismatch, "field_type_mismatch"},
}

// Kind returns a stable label for err: "ok" for nil, "other" when err is
// not one of the package errors.
func Kind(err error) string {
	if err == nil {
		return "ok"
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "other"
}
