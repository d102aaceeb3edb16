package protocol

import (
	"bytes"
	"math"
	"reflect"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
)

const nanosPerSecond = 1_000_000_000

// Timestamp is a point in time as seconds since the Unix epoch plus
// nanoseconds. The zero value is the epoch and is never written.
type Timestamp struct {
	Seconds int64
	Nanos   uint32
}

func FromTime(t time.Time) Timestamp {
	return Timestamp{Seconds: t.Unix(), Nanos: uint32(t.Nanosecond())}
}

func (ts Timestamp) Time() time.Time {
	return time.Unix(ts.Seconds, int64(ts.Nanos)).UTC()
}

// Normalize carries whole seconds out of Nanos.
func (ts Timestamp) Normalize() Timestamp {
	ts.Seconds += int64(ts.Nanos / nanosPerSecond)
	ts.Nanos %= nanosPerSecond
	return ts
}

// carryOverflows reports whether Normalize would push Seconds past MaxInt64.
func (ts Timestamp) carryOverflows() bool {
	carry := int64(ts.Nanos / nanosPerSecond)
	return carry > 0 && ts.Seconds > math.MaxInt64-carry
}

func (ts Timestamp) IsZero() bool {
	n := ts.Normalize()
	return n.Seconds == 0 && n.Nanos == 0
}

// Message is a struct value bound to its descriptor. Fields hold Go values
// by declared type:
//
//	bool, uint8, uint16, uint32, uint64, int32, int64, float32, float64,
//	Timestamp, string (text), []byte (binary), *Message (struct)
//
// and lists as the matching slice type ([]bool ... []Timestamp, []string,
// [][]byte, []*Message). A field holding its type's default value is absent.
// A Message is not safe for concurrent mutation; the codec only reads it.
type Message struct {
	desc   *schema.Struct
	values map[uint8]any
}

// NewMessage returns an empty message of the given kind. desc must not be nil.
func NewMessage(desc *schema.Struct) *Message {
	return &Message{desc: desc, values: make(map[uint8]any)}
}

func (m *Message) Descriptor() *schema.Struct { return m.desc }

// Len returns the number of present fields.
func (m *Message) Len() int { return len(m.values) }

// Set stores v at field index. Setting the type's default value clears the
// field. The message takes ownership of slices passed in.
func (m *Message) Set(index uint8, v any) error {
	f, ok := m.desc.Field(index)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "struct %s: index %d", m.desc.Name(), index)
	}
	return m.set(f, v)
}

func (m *Message) SetByName(name string, v any) error {
	f, ok := m.desc.FieldByName(name)
	if !ok {
		return errors.Wrapf(ErrUnknownField, "struct %s: name %q", m.desc.Name(), name)
	}
	return m.set(f, v)
}

func (m *Message) set(f schema.Field, v any) error {
	if v == nil {
		delete(m.values, f.Index)
		return nil
	}
	if err := checkValue(f, v); err != nil {
		return err
	}
	switch x := v.(type) {
	case Timestamp:
		if x.carryOverflows() {
			return errors.Wrapf(ErrInvalidValue, "field %s: seconds overflow normalizing %d nanos", f.Name, x.Nanos)
		}
		v = x.Normalize()
	case []Timestamp:
		for i, ts := range x {
			if ts.carryOverflows() {
				return errors.Wrapf(ErrInvalidValue, "field %s element %d: seconds overflow normalizing %d nanos", f.Name, i, ts.Nanos)
			}
		}
	}
	if isDefault(f, v) {
		delete(m.values, f.Index)
		return nil
	}
	m.values[f.Index] = v
	return nil
}

func (m *Message) Get(index uint8) (any, bool) {
	v, ok := m.values[index]
	return v, ok
}

func (m *Message) GetByName(name string) (any, bool) {
	f, ok := m.desc.FieldByName(name)
	if !ok {
		return nil, false
	}
	return m.Get(f.Index)
}

func (m *Message) Clear(index uint8) {
	delete(m.values, index)
}

// Range calls fn for each present field in ascending index order until fn
// returns false.
func (m *Message) Range(fn func(f schema.Field, v any) bool) {
	for i := 0; i < m.desc.NumFields(); i++ {
		f := m.desc.FieldAt(i)
		v, ok := m.values[f.Index]
		if !ok {
			continue
		}
		if !fn(f, v) {
			return
		}
	}
}

// Equal reports whether both messages share a descriptor and hold the same
// values. Floats compare by bit pattern so NaN payloads round-trip.
func (m *Message) Equal(o *Message) bool {
	if m == nil || o == nil {
		return m == o
	}
	if m.desc != o.desc || len(m.values) != len(o.values) {
		return false
	}
	for index, a := range m.values {
		b, ok := o.values[index]
		if !ok || !valueEqual(a, b) {
			return false
		}
	}
	return true
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case float32:
		y, ok := b.(float32)
		return ok && math.Float32bits(x) == math.Float32bits(y)
	case float64:
		y, ok := b.(float64)
		return ok && math.Float64bits(x) == math.Float64bits(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case *Message:
		y, ok := b.(*Message)
		return ok && x.Equal(y)
	case []float32:
		y, ok := b.([]float32)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float32bits(x[i]) != math.Float32bits(y[i]) {
				return false
			}
		}
		return true
	case []float64:
		y, ok := b.([]float64)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float64bits(x[i]) != math.Float64bits(y[i]) {
				return false
			}
		}
		return true
	case [][]byte:
		y, ok := b.([][]byte)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !bytes.Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case []*Message:
		y, ok := b.([]*Message)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !x[i].Equal(y[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(a, b)
	}
}

func checkValue(f schema.Field, v any) error {
	var ok bool
	if f.List {
		switch f.Type {
		case schema.TypeBool:
			_, ok = v.([]bool)
		case schema.TypeUint8:
			_, ok = v.([]uint8)
		case schema.TypeUint16:
			_, ok = v.([]uint16)
		case schema.TypeUint32:
			_, ok = v.([]uint32)
		case schema.TypeUint64:
			_, ok = v.([]uint64)
		case schema.TypeInt32:
			_, ok = v.([]int32)
		case schema.TypeInt64:
			_, ok = v.([]int64)
		case schema.TypeFloat32:
			_, ok = v.([]float32)
		case schema.TypeFloat64:
			_, ok = v.([]float64)
		case schema.TypeTimestamp:
			_, ok = v.([]Timestamp)
		case schema.TypeText:
			_, ok = v.([]string)
		case schema.TypeBinary:
			_, ok = v.([][]byte)
		case schema.TypeStruct:
			var list []*Message
			list, ok = v.([]*Message)
			for i, e := range list {
				if e == nil || e.desc != f.Ref {
					return errors.Wrapf(ErrFieldTypeMismatch, "field %s: element %d is not a %s", f.Name, i, f.Ref.Name())
				}
			}
		}
	} else {
		switch f.Type {
		case schema.TypeBool:
			_, ok = v.(bool)
		case schema.TypeUint8:
			_, ok = v.(uint8)
		case schema.TypeUint16:
			_, ok = v.(uint16)
		case schema.TypeUint32:
			_, ok = v.(uint32)
		case schema.TypeUint64:
			_, ok = v.(uint64)
		case schema.TypeInt32:
			_, ok = v.(int32)
		case schema.TypeInt64:
			_, ok = v.(int64)
		case schema.TypeFloat32:
			_, ok = v.(float32)
		case schema.TypeFloat64:
			_, ok = v.(float64)
		case schema.TypeTimestamp:
			_, ok = v.(Timestamp)
		case schema.TypeText:
			_, ok = v.(string)
		case schema.TypeBinary:
			_, ok = v.([]byte)
		case schema.TypeStruct:
			var msg *Message
			msg, ok = v.(*Message)
			ok = ok && (msg == nil || msg.desc == f.Ref)
		}
	}
	if !ok {
		return errors.Wrapf(ErrFieldTypeMismatch, "field %s: want %s, got %T", f.Name, f.TypeName(), v)
	}
	return nil
}

// isDefault reports whether v is the zero value of its field type. Lists
// are only default when nil: an empty list is written with count 0.
func isDefault(f schema.Field, v any) bool {
	if f.List {
		return reflect.ValueOf(v).IsNil()
	}
	switch x := v.(type) {
	case bool:
		return !x
	case uint8:
		return x == 0
	case uint16:
		return x == 0
	case uint32:
		return x == 0
	case uint64:
		return x == 0
	case int32:
		return x == 0
	case int64:
		return x == 0
	case float32:
		return x == 0
	case float64:
		return x == 0
	case Timestamp:
		return x.IsZero()
	case string:
		return x == ""
	case []byte:
		return len(x) == 0
	case *Message:
		return x == nil
	}
	return false
}
