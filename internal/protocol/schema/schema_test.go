package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/danmuck/wirecodec/internal/testutil/testlog"
)

func TestDefineOrdersFieldsByIndex(t *testing.T) {
	testlog.Start(t)
	s, err := Define("point",
		Field{Index: 4, Name: "label", Type: TypeText},
		Field{Index: 0, Name: "x", Type: TypeInt64},
		Field{Index: 1, Name: "y", Type: TypeInt64},
	)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	if s.NumFields() != 3 {
		t.Fatalf("expected 3 fields, got %d", s.NumFields())
	}
	for i, want := range []uint8{0, 1, 4} {
		if got := s.FieldAt(i).Index; got != want {
			t.Fatalf("field %d index=%d want %d", i, got, want)
		}
	}
	f, ok := s.Field(4)
	if !ok || f.Name != "label" {
		t.Fatalf("lookup index 4: %+v %v", f, ok)
	}
	if _, ok := s.Field(2); ok {
		t.Fatalf("index 2 must be absent")
	}
	if _, ok := s.Field(127); ok {
		t.Fatalf("sentinel index must never resolve")
	}
	if f, ok := s.FieldByName("y"); !ok || f.Index != 1 {
		t.Fatalf("lookup by name: %+v %v", f, ok)
	}
}

func TestDefineRejectsReservedIndex(t *testing.T) {
	testlog.Start(t)
	_, err := Define("bad", Field{Index: 127, Name: "end", Type: TypeBool})
	var ve ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if ve.Field != "end" {
		t.Fatalf("unexpected validation error: %+v", ve)
	}
}

func TestDefineRejectsDuplicatesDeterministic(t *testing.T) {
	testlog.Start(t)
	_, err := Define("dup",
		Field{Index: 1, Name: "a", Type: TypeBool},
		Field{Index: 1, Name: "b", Type: TypeBool},
	)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Reason != "duplicate index 1" {
		t.Fatalf("expected duplicate index error, got %v", err)
	}

	_, err = Define("dup",
		Field{Index: 1, Name: "a", Type: TypeBool},
		Field{Index: 2, Name: "a", Type: TypeBool},
	)
	if !errors.As(err, &ve) || ve.Reason != "duplicate name" {
		t.Fatalf("expected duplicate name error, got %v", err)
	}
}

func TestDefineRejectsBadReferences(t *testing.T) {
	testlog.Start(t)
	if _, err := Define("s", Field{Index: 0, Name: "child", Type: TypeStruct}); err == nil {
		t.Fatalf("expected error for struct field without reference")
	}
	other := MustDefine("other")
	if _, err := Define("s", Field{Index: 0, Name: "n", Type: TypeUint8, Ref: other}); err == nil {
		t.Fatalf("expected error for reference on scalar field")
	}
	if _, err := Define("s", Field{Index: 0, Name: "n"}); err == nil {
		t.Fatalf("expected error for missing type")
	}
}

func TestDefineTwiceFails(t *testing.T) {
	testlog.Start(t)
	s := NewStruct("once")
	if err := s.Define(); err != nil {
		t.Fatalf("first define: %v", err)
	}
	if err := s.Define(Field{Index: 0, Name: "a", Type: TypeBool}); err == nil {
		t.Fatalf("expected error on second define")
	}
}

func TestSelfReferenceViaTwoStepDefine(t *testing.T) {
	testlog.Start(t)
	node := NewStruct("node")
	err := node.Define(
		Field{Index: 0, Name: "value", Type: TypeInt32},
		Field{Index: 1, Name: "next", Type: TypeStruct, Ref: node},
		Field{Index: 2, Name: "children", Type: TypeStruct, Ref: node, List: true},
	)
	if err != nil {
		t.Fatalf("define: %v", err)
	}
	f, _ := node.Field(2)
	if f.Ref != node || f.TypeName() != "list<node>" {
		t.Fatalf("unexpected field: %s", f)
	}
}

func TestParseTypeAliases(t *testing.T) {
	testlog.Start(t)
	cases := map[string]Type{
		"bool": TypeBool, "u16": TypeUint16, "uint64": TypeUint64, "i32": TypeInt32,
		"float64": TypeFloat64, "timestamp": TypeTimestamp, "text": TypeText, "bytes": TypeBinary,
	}
	for name, want := range cases {
		got, ok := ParseType(name)
		if !ok || got != want {
			t.Fatalf("ParseType(%q) = %v, %v", name, got, ok)
		}
	}
	if _, ok := ParseType("struct"); ok {
		t.Fatalf("struct must be resolved by reference, not by name")
	}
}

const sampleSchema = `
[[struct]]
name = "o"
  [[struct.field]]
  name = "b"
  index = 0
  type = "bool"
  [[struct.field]]
  name = "o"
  index = 10
  type = "o"
  [[struct.field]]
  name = "ss"
  index = 12
  type = "text"
  list = true

[[struct]]
name = "wrapper"
  [[struct.field]]
  name = "inner"
  index = 0
  type = "o"
`

func TestParseResolvesStructReferences(t *testing.T) {
	testlog.Start(t)
	set, err := Parse(sampleSchema)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if names := set.Names(); len(names) != 2 || names[0] != "o" || names[1] != "wrapper" {
		t.Fatalf("unexpected names: %v", names)
	}
	o, _ := set.Lookup("o")
	wrapper, _ := set.Lookup("wrapper")
	self, _ := o.Field(10)
	if self.Type != TypeStruct || self.Ref != o {
		t.Fatalf("self reference not resolved: %s", self)
	}
	inner, _ := wrapper.Field(0)
	if inner.Ref != o {
		t.Fatalf("cross reference not resolved: %s", inner)
	}
	ss, _ := o.Field(12)
	if !ss.List || ss.Type != TypeText {
		t.Fatalf("list field not parsed: %s", ss)
	}
}

func TestParseRejectsUnknownKeysAndTypes(t *testing.T) {
	testlog.Start(t)
	if _, err := Parse("[[struct]]\nname = \"a\"\ncolor = \"red\"\n"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
	doc := "[[struct]]\nname = \"a\"\n[[struct.field]]\nname = \"x\"\nindex = 0\ntype = \"nope\"\n"
	if _, err := Parse(doc); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	doc = "[[struct]]\nname = \"a\"\n[[struct.field]]\nname = \"x\"\nindex = 127\ntype = \"bool\"\n"
	_, err := Parse(doc)
	var ve ValidationError
	if !errors.As(err, &ve) || ve.Reason != "index 127 out of range 0..126" {
		t.Fatalf("expected reserved index error, got %v", err)
	}
	doc = "[[struct]]\nname = \"a\"\n[[struct.field]]\nname = \"x\"\nindex = 126\ntype = \"bool\"\n"
	if _, err := Parse(doc); err != nil {
		t.Fatalf("highest index rejected: %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "schema.toml")
	if err := os.WriteFile(path, []byte(sampleSchema), 0o600); err != nil {
		t.Fatalf("write schema: %v", err)
	}
	set, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := set.Lookup("wrapper"); !ok {
		t.Fatalf("expected wrapper struct")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
