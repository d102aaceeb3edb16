package schema

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// Type IDs for field descriptors.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeBool
	TypeUint8
	TypeUint16
	TypeUint32
	TypeUint64
	TypeInt32
	TypeInt64
	TypeFloat32
	TypeFloat64
	TypeTimestamp
	TypeText
	TypeBinary
	TypeStruct
)

var typeNames = map[Type]string{
	TypeBool:      "bool",
	TypeUint8:     "uint8",
	TypeUint16:    "uint16",
	TypeUint32:    "uint32",
	TypeUint64:    "uint64",
	TypeInt32:     "int32",
	TypeInt64:     "int64",
	TypeFloat32:   "float32",
	TypeFloat64:   "float64",
	TypeTimestamp: "timestamp",
	TypeText:      "text",
	TypeBinary:    "binary",
	TypeStruct:    "struct",
}

var typeAliases = map[string]Type{
	"u8":     TypeUint8,
	"u16":    TypeUint16,
	"u32":    TypeUint32,
	"u64":    TypeUint64,
	"i32":    TypeInt32,
	"i64":    TypeInt64,
	"f32":    TypeFloat32,
	"f64":    TypeFloat64,
	"string": TypeText,
	"bytes":  TypeBinary,
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

func (t Type) Valid() bool {
	return t >= TypeBool && t <= TypeStruct
}

// ParseType resolves a primitive type name. Struct references are resolved
// by the loader, not here.
func ParseType(name string) (Type, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if t, ok := typeAliases[name]; ok {
		return t, true
	}
	for t, n := range typeNames {
		if n == name && t != TypeStruct {
			return t, true
		}
	}
	return TypeInvalid, false
}

// Field describes one struct member.
type Field struct {
	Index uint8
	Name  string
	Type  Type
	List  bool
	// Ref is the nested struct kind when Type is TypeStruct.
	Ref *Struct
}

func (f Field) TypeName() string {
	name := f.Type.String()
	if f.Type == TypeStruct && f.Ref != nil {
		name = f.Ref.Name()
	}
	if f.List {
		return "list<" + name + ">"
	}
	return name
}

func (f Field) String() string {
	return fmt.Sprintf("%s(%d) %s", f.Name, f.Index, f.TypeName())
}

// Struct is the descriptor of one struct kind: its fields in ascending
// index order. It is immutable once defined and may be shared freely.
type Struct struct {
	name    string
	fields  []Field
	slots   [tag.MaxIndex + 1]uint8 // position+1, zero when absent
	defined bool
}

// NewStruct returns an undefined struct kind. Call Define to attach fields;
// the split allows fields to reference their own struct.
func NewStruct(name string) *Struct {
	return &Struct{name: name}
}

// Define validates fields and freezes the struct.
func Define(name string, fields ...Field) (*Struct, error) {
	s := NewStruct(name)
	if err := s.Define(fields...); err != nil {
		return nil, err
	}
	return s, nil
}

// MustDefine is Define for static schemas; it panics on error.
func MustDefine(name string, fields ...Field) *Struct {
	s, err := Define(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

type ValidationError struct {
	Struct string
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("schema: struct=%s: %s", e.Struct, e.Reason)
	}
	return fmt.Sprintf("schema: struct=%s field=%s: %s", e.Struct, e.Field, e.Reason)
}

func (s *Struct) Define(fields ...Field) error {
	log.Debug().Str("struct", s.name).Int("fields", len(fields)).Msg("schema.Define")
	if s.defined {
		return ValidationError{Struct: s.name, Reason: "already defined"}
	}
	if strings.TrimSpace(s.name) == "" {
		return ValidationError{Reason: "missing struct name"}
	}
	for _, f := range fields {
		if err := validateField(s.name, f); err != nil {
			log.Error().Err(err).Msg("schema.Define rejected field")
			return err
		}
	}
	if dups := lo.FindDuplicatesBy(fields, func(f Field) uint8 { return f.Index }); len(dups) > 0 {
		return ValidationError{Struct: s.name, Field: dups[0].Name, Reason: fmt.Sprintf("duplicate index %d", dups[0].Index)}
	}
	if dups := lo.FindDuplicatesBy(fields, func(f Field) string { return f.Name }); len(dups) > 0 {
		return ValidationError{Struct: s.name, Field: dups[0].Name, Reason: "duplicate name"}
	}

	sorted := slices.Clone(fields)
	slices.SortFunc(sorted, func(a, b Field) int { return int(a.Index) - int(b.Index) })
	for i, f := range sorted {
		s.slots[f.Index] = uint8(i + 1)
	}
	s.fields = sorted
	s.defined = true
	return nil
}

func validateField(structName string, f Field) error {
	fail := func(reason string) error {
		return ValidationError{Struct: structName, Field: f.Name, Reason: reason}
	}
	switch {
	case strings.TrimSpace(f.Name) == "":
		return ValidationError{Struct: structName, Field: fmt.Sprintf("#%d", f.Index), Reason: "missing field name"}
	case f.Index > tag.MaxIndex:
		return fail(fmt.Sprintf("index %d out of range 0..%d", f.Index, tag.MaxIndex))
	case !f.Type.Valid():
		return fail("unknown type")
	case f.Type == TypeStruct && f.Ref == nil:
		return fail("struct field without reference")
	case f.Type != TypeStruct && f.Ref != nil:
		return fail("reference on " + f.Type.String() + " field")
	}
	return nil
}

func (s *Struct) Name() string { return s.name }

func (s *Struct) Defined() bool { return s.defined }

func (s *Struct) NumFields() int { return len(s.fields) }

// FieldAt returns the i-th field in ascending index order.
func (s *Struct) FieldAt(i int) Field { return s.fields[i] }

// Fields returns a copy of the field list in ascending index order.
func (s *Struct) Fields() []Field { return slices.Clone(s.fields) }

// Field looks up a field by wire index.
func (s *Struct) Field(index uint8) (Field, bool) {
	if index > tag.MaxIndex {
		return Field{}, false
	}
	slot := s.slots[index]
	if slot == 0 {
		return Field{}, false
	}
	return s.fields[slot-1], true
}

func (s *Struct) FieldByName(name string) (Field, bool) {
	return lo.Find(s.fields, func(f Field) bool { return f.Name == name })
}
