package schema

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol/tag"
	"github.com/rs/zerolog/log"
)

// Set is a named collection of struct kinds, typically one schema file.
type Set struct {
	structs map[string]*Struct
	order   []string
}

func NewSet(structs ...*Struct) (*Set, error) {
	set := &Set{structs: make(map[string]*Struct, len(structs))}
	for _, s := range structs {
		if !s.Defined() {
			return nil, ValidationError{Struct: s.Name(), Reason: "struct not defined"}
		}
		if _, ok := set.structs[s.Name()]; ok {
			return nil, ValidationError{Struct: s.Name(), Reason: "duplicate struct name"}
		}
		set.structs[s.Name()] = s
		set.order = append(set.order, s.Name())
	}
	return set, nil
}

func (s *Set) Lookup(name string) (*Struct, bool) {
	st, ok := s.structs[name]
	return st, ok
}

// Names lists the struct kinds in declaration order.
func (s *Set) Names() []string {
	return append([]string(nil), s.order...)
}

// schema.toml key mapping.
type fileSchema struct {
	Structs []fileStruct `toml:"struct"`
}

type fileStruct struct {
	Name   string      `toml:"name"`
	Fields []fileField `toml:"field"`
}

type fileField struct {
	Name  string `toml:"name"`
	Index int    `toml:"index"`
	Type  string `toml:"type"`
	List  bool   `toml:"list"`
}

// LoadFile reads a TOML schema file.
func LoadFile(path string) (*Set, error) {
	var raw fileSchema
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %s", path)
	}
	set, err := build(raw, meta)
	if err != nil {
		return nil, errors.Wrapf(err, "load schema %s", path)
	}
	log.Info().Str("path", path).Strs("structs", set.Names()).Msg("schema loaded")
	return set, nil
}

// Parse reads a TOML schema document.
func Parse(doc string) (*Set, error) {
	var raw fileSchema
	meta, err := toml.Decode(doc, &raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse schema")
	}
	return build(raw, meta)
}

func build(raw fileSchema, meta toml.MetaData) (*Set, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.Newf("unknown schema keys: %s", strings.Join(keys, ", "))
	}
	if len(raw.Structs) == 0 {
		return nil, errors.New("schema declares no structs")
	}

	// Allocate every kind first so fields can reference any struct in the
	// file, including their own.
	kinds := make(map[string]*Struct, len(raw.Structs))
	ordered := make([]*Struct, 0, len(raw.Structs))
	for _, rs := range raw.Structs {
		name := strings.TrimSpace(rs.Name)
		if _, ok := kinds[name]; ok {
			return nil, ValidationError{Struct: name, Reason: "duplicate struct name"}
		}
		st := NewStruct(name)
		kinds[name] = st
		ordered = append(ordered, st)
	}

	for i, rs := range raw.Structs {
		st := ordered[i]
		fields := make([]Field, 0, len(rs.Fields))
		for _, rf := range rs.Fields {
			f, err := resolveField(st.Name(), rf, kinds)
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		if err := st.Define(fields...); err != nil {
			return nil, err
		}
	}
	return NewSet(ordered...)
}

func resolveField(structName string, rf fileField, kinds map[string]*Struct) (Field, error) {
	name := strings.TrimSpace(rf.Name)
	if rf.Index < 0 || rf.Index > int(tag.MaxIndex) {
		return Field{}, ValidationError{Struct: structName, Field: name, Reason: fmt.Sprintf("index %d out of range 0..%d", rf.Index, tag.MaxIndex)}
	}
	f := Field{Index: uint8(rf.Index), Name: name, List: rf.List}
	if t, ok := ParseType(rf.Type); ok {
		f.Type = t
		return f, nil
	}
	ref, ok := kinds[strings.TrimSpace(rf.Type)]
	if !ok {
		return Field{}, ValidationError{Struct: structName, Field: name, Reason: fmt.Sprintf("unknown type %q", rf.Type)}
	}
	f.Type = TypeStruct
	f.Ref = ref
	return f, nil
}
