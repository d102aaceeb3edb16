// Package transcode renders protocol messages as generic maps so they can be
// shown or authored as JSON or CBOR. It is a debugging view: the binary
// encoding in internal/protocol is the only wire format.
package transcode

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/samber/lo"
)

// Non-finite floats have no JSON form and travel as these strings.
const (
	nanText    = "NaN"
	posInfText = "+Inf"
	negInfText = "-Inf"
)

// ToMap converts m into field name -> value. Timestamps become RFC 3339
// strings, or a seconds/nanos map outside years 0-9999. Binary stays
// []byte, nested structs become maps and every list becomes []any.
func ToMap(m *protocol.Message) map[string]any {
	out := make(map[string]any, m.Len())
	m.Range(func(f schema.Field, v any) bool {
		if f.List {
			out[f.Name] = listToAny(v)
		} else {
			out[f.Name] = valueToAny(v)
		}
		return true
	})
	return out
}

func valueToAny(v any) any {
	switch x := v.(type) {
	case float32:
		return floatToAny(float64(x))
	case float64:
		return floatToAny(x)
	case protocol.Timestamp:
		t := x.Time()
		if t.Year() < 0 || t.Year() > 9999 {
			return map[string]any{"seconds": x.Seconds, "nanos": x.Nanos}
		}
		return t.Format(time.RFC3339Nano)
	case *protocol.Message:
		return ToMap(x)
	}
	return v
}

func floatToAny(x float64) any {
	switch {
	case math.IsNaN(x):
		return nanText
	case math.IsInf(x, 1):
		return posInfText
	case math.IsInf(x, -1):
		return negInfText
	}
	return x
}

func listToAny(v any) []any {
	switch list := v.(type) {
	case []bool:
		return each(list)
	case []uint8:
		return each(list)
	case []uint16:
		return each(list)
	case []uint32:
		return each(list)
	case []uint64:
		return each(list)
	case []int32:
		return each(list)
	case []int64:
		return each(list)
	case []float32:
		return each(list)
	case []float64:
		return each(list)
	case []protocol.Timestamp:
		return each(list)
	case []string:
		return each(list)
	case [][]byte:
		return each(list)
	case []*protocol.Message:
		return each(list)
	}
	return nil
}

func each[T any](list []T) []any {
	return lo.Map(list, func(e T, _ int) any { return valueToAny(e) })
}

// FromMap builds a message of kind desc from the shape ToMap produces. It
// also accepts what JSON and CBOR decoders yield for those shapes: numbers
// as json.Number, float64, int64 or uint64, and binary as base64 text.
// Keys are applied in sorted order so the first error is stable.
func FromMap(desc *schema.Struct, in map[string]any) (*protocol.Message, error) {
	m := protocol.NewMessage(desc)
	keys := lo.Keys(in)
	slices.Sort(keys)
	for _, name := range keys {
		raw := in[name]
		if raw == nil {
			continue
		}
		f, ok := desc.FieldByName(name)
		if !ok {
			return nil, errors.Wrapf(protocol.ErrUnknownField, "struct %s: name %q", desc.Name(), name)
		}
		var (
			v   any
			err error
		)
		if f.List {
			v, err = listFromAny(f, raw)
		} else {
			v, err = valueFromAny(f, raw)
		}
		if err != nil {
			return nil, errors.Wrapf(err, "struct %s field %s", desc.Name(), name)
		}
		if err := m.Set(f.Index, v); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func mismatch(f schema.Field, raw any) error {
	return errors.Wrapf(protocol.ErrFieldTypeMismatch, "cannot use %T as %s", raw, f.Type)
}

func valueFromAny(f schema.Field, raw any) (any, error) {
	switch f.Type {
	case schema.TypeBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, mismatch(f, raw)
		}
		return b, nil
	case schema.TypeUint8:
		x, err := toUint(f, raw, 8)
		return uint8(x), err
	case schema.TypeUint16:
		x, err := toUint(f, raw, 16)
		return uint16(x), err
	case schema.TypeUint32:
		x, err := toUint(f, raw, 32)
		return uint32(x), err
	case schema.TypeUint64:
		return toUint(f, raw, 64)
	case schema.TypeInt32:
		x, err := toInt(f, raw, 32)
		return int32(x), err
	case schema.TypeInt64:
		return toInt(f, raw, 64)
	case schema.TypeFloat32:
		x, err := toFloat(f, raw, 32)
		return float32(x), err
	case schema.TypeFloat64:
		return toFloat(f, raw, 64)
	case schema.TypeTimestamp:
		return toTimestamp(f, raw)
	case schema.TypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, mismatch(f, raw)
		}
		return s, nil
	case schema.TypeBinary:
		switch x := raw.(type) {
		case []byte:
			return x, nil
		case string:
			b, err := base64.StdEncoding.DecodeString(x)
			if err != nil {
				return nil, errors.Wrapf(protocol.ErrInvalidValue, "base64: %v", err)
			}
			return b, nil
		}
		return nil, mismatch(f, raw)
	case schema.TypeStruct:
		in, ok := raw.(map[string]any)
		if !ok {
			return nil, mismatch(f, raw)
		}
		return FromMap(f.Ref, in)
	}
	return nil, mismatch(f, raw)
}

func toUint(f schema.Field, raw any, bits int) (uint64, error) {
	var (
		x   uint64
		err error
	)
	switch n := raw.(type) {
	case json.Number:
		x, err = strconv.ParseUint(n.String(), 10, bits)
	case float64:
		if n < 0 || n != math.Trunc(n) || n >= math.Ldexp(1, bits) {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%v out of range for %s", n, f.Type)
		}
		return uint64(n), nil
	case uint64:
		x = n
	case uint32:
		x = uint64(n)
	case uint16:
		x = uint64(n)
	case uint8:
		x = uint64(n)
	case int64:
		if n < 0 {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%d out of range for %s", n, f.Type)
		}
		x = uint64(n)
	case int:
		if n < 0 {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%d out of range for %s", n, f.Type)
		}
		x = uint64(n)
	default:
		return 0, mismatch(f, raw)
	}
	if err != nil {
		return 0, errors.Wrapf(protocol.ErrInvalidValue, "%v", err)
	}
	if bits < 64 && x >= 1<<bits {
		return 0, errors.Wrapf(protocol.ErrInvalidValue, "%d out of range for %s", x, f.Type)
	}
	return x, nil
}

func toInt(f schema.Field, raw any, bits int) (int64, error) {
	var (
		x   int64
		err error
	)
	switch n := raw.(type) {
	case json.Number:
		x, err = strconv.ParseInt(n.String(), 10, bits)
	case float64:
		limit := math.Ldexp(1, bits-1)
		if n != math.Trunc(n) || n < -limit || n >= limit {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%v out of range for %s", n, f.Type)
		}
		return int64(n), nil
	case int64:
		x = n
	case int32:
		x = int64(n)
	case int:
		x = int64(n)
	case uint64:
		if n > math.MaxInt64 {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%d out of range for %s", n, f.Type)
		}
		x = int64(n)
	default:
		return 0, mismatch(f, raw)
	}
	if err != nil {
		return 0, errors.Wrapf(protocol.ErrInvalidValue, "%v", err)
	}
	if bits == 32 && (x < math.MinInt32 || x > math.MaxInt32) {
		return 0, errors.Wrapf(protocol.ErrInvalidValue, "%d out of range for %s", x, f.Type)
	}
	return x, nil
}

func toFloat(f schema.Field, raw any, bits int) (float64, error) {
	switch n := raw.(type) {
	case json.Number:
		x, err := strconv.ParseFloat(n.String(), bits)
		if err != nil {
			return 0, errors.Wrapf(protocol.ErrInvalidValue, "%v", err)
		}
		return x, nil
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case string:
		switch n {
		case nanText:
			return math.NaN(), nil
		case posInfText:
			return math.Inf(1), nil
		case negInfText:
			return math.Inf(-1), nil
		}
	}
	return 0, mismatch(f, raw)
}

func toTimestamp(f schema.Field, raw any) (protocol.Timestamp, error) {
	switch x := raw.(type) {
	case time.Time:
		return protocol.FromTime(x), nil
	case string:
		t, err := time.Parse(time.RFC3339Nano, x)
		if err != nil {
			return protocol.Timestamp{}, errors.Wrapf(protocol.ErrInvalidValue, "timestamp: %v", err)
		}
		return protocol.FromTime(t), nil
	case map[string]any:
		secs, err := toInt(f, lo.ValueOr[string, any](x, "seconds", int64(0)), 64)
		if err != nil {
			return protocol.Timestamp{}, err
		}
		nanos, err := toUint(f, lo.ValueOr[string, any](x, "nanos", uint64(0)), 32)
		if err != nil {
			return protocol.Timestamp{}, err
		}
		return protocol.Timestamp{Seconds: secs, Nanos: uint32(nanos)}, nil
	}
	return protocol.Timestamp{}, mismatch(f, raw)
}

func listFromAny(f schema.Field, raw any) (any, error) {
	items, ok := raw.([]any)
	if !ok {
		return nil, mismatch(f, raw)
	}
	switch f.Type {
	case schema.TypeBool:
		return collect[bool](f, items)
	case schema.TypeUint8:
		return collect[uint8](f, items)
	case schema.TypeUint16:
		return collect[uint16](f, items)
	case schema.TypeUint32:
		return collect[uint32](f, items)
	case schema.TypeUint64:
		return collect[uint64](f, items)
	case schema.TypeInt32:
		return collect[int32](f, items)
	case schema.TypeInt64:
		return collect[int64](f, items)
	case schema.TypeFloat32:
		return collect[float32](f, items)
	case schema.TypeFloat64:
		return collect[float64](f, items)
	case schema.TypeTimestamp:
		return collect[protocol.Timestamp](f, items)
	case schema.TypeText:
		return collect[string](f, items)
	case schema.TypeBinary:
		return collect[[]byte](f, items)
	case schema.TypeStruct:
		return collect[*protocol.Message](f, items)
	}
	return nil, mismatch(f, raw)
}

func collect[T any](f schema.Field, items []any) ([]T, error) {
	out := make([]T, len(items))
	for i, item := range items {
		if item == nil {
			return nil, errors.Wrapf(protocol.ErrInvalidValue, "element %d is null", i)
		}
		v, err := valueFromAny(f, item)
		if err != nil {
			return nil, errors.Wrapf(err, "element %d", i)
		}
		e, ok := v.(T)
		if !ok {
			return nil, mismatch(f, item)
		}
		out[i] = e
	}
	return out, nil
}
