package protocol

import (
	"encoding/hex"
	"math"
	"strings"
	"testing"

	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/danmuck/wirecodec/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

// goldenStruct is the self-referential kind the golden vectors are written
// against.
var goldenStruct = func() *schema.Struct {
	o := schema.NewStruct("o")
	if err := o.Define(
		schema.Field{Index: 0, Name: "b", Type: schema.TypeBool},
		schema.Field{Index: 1, Name: "u32", Type: schema.TypeUint32},
		schema.Field{Index: 2, Name: "u64", Type: schema.TypeUint64},
		schema.Field{Index: 3, Name: "i32", Type: schema.TypeInt32},
		schema.Field{Index: 4, Name: "i64", Type: schema.TypeInt64},
		schema.Field{Index: 5, Name: "f32", Type: schema.TypeFloat32},
		schema.Field{Index: 6, Name: "f64", Type: schema.TypeFloat64},
		schema.Field{Index: 7, Name: "t", Type: schema.TypeTimestamp},
		schema.Field{Index: 8, Name: "s", Type: schema.TypeText},
		schema.Field{Index: 9, Name: "a", Type: schema.TypeBinary},
		schema.Field{Index: 10, Name: "o", Type: schema.TypeStruct, Ref: o},
		schema.Field{Index: 11, Name: "os", Type: schema.TypeStruct, List: true, Ref: o},
		schema.Field{Index: 12, Name: "ss", Type: schema.TypeText, List: true},
		schema.Field{Index: 13, Name: "as", Type: schema.TypeBinary, List: true},
		schema.Field{Index: 14, Name: "u8", Type: schema.TypeUint8},
		schema.Field{Index: 15, Name: "u16", Type: schema.TypeUint16},
		schema.Field{Index: 16, Name: "f32s", Type: schema.TypeFloat32, List: true},
		schema.Field{Index: 17, Name: "f64s", Type: schema.TypeFloat64, List: true},
	); err != nil {
		panic(err)
	}
	return o
}()

type goldenCase struct {
	name string
	hex  string
	set  map[string]any
}

func withO(fields map[string]any) *Message {
	m := NewMessage(goldenStruct)
	for name, v := range fields {
		if err := m.SetByName(name, v); err != nil {
			panic(err)
		}
	}
	return m
}

var goldenCases = []goldenCase{
	{"empty", "7f", nil},
	{"bool", "007f", map[string]any{"b": true}},
	{"u32 one", "01017f", map[string]any{"u32": uint32(1)}},
	{"u32 255", "01ff017f", map[string]any{"u32": uint32(math.MaxUint8)}},
	{"u32 65535", "01ffff037f", map[string]any{"u32": uint32(math.MaxUint16)}},
	{"u32 max", "81ffffffff7f", map[string]any{"u32": uint32(math.MaxUint32)}},
	{"u64 u32 max", "02ffffffff0f7f", map[string]any{"u64": uint64(math.MaxUint32)}},
	{"u64 max", "82ffffffffffffffff7f", map[string]any{"u64": uint64(math.MaxUint64)}},
	{"i32 minus one", "83017f", map[string]any{"i32": int32(-1)}},
	{"i32 min", "8380808080087f", map[string]any{"i32": int32(math.MinInt32)}},
	{"i32 max", "03ffffffff077f", map[string]any{"i32": int32(math.MaxInt32)}},
	{"i64 max", "04ffffffffffffffff7f7f", map[string]any{"i64": int64(math.MaxInt64)}},
	{"i64 min", "848080808080808080807f", map[string]any{"i64": int64(math.MinInt64)}},
	{"f32 denormal", "05000000017f", map[string]any{"f32": math.Float32frombits(1)}},
	{"f32 max", "057f7fffff7f", map[string]any{"f32": float32(math.MaxFloat32)}},
	{"f32 nan", "057fc000007f", map[string]any{"f32": math.Float32frombits(0x7fc00000)}},
	{"f64 denormal", "0600000000000000017f", map[string]any{"f64": math.Float64frombits(1)}},
	{"f64 max", "067fefffffffffffff7f", map[string]any{"f64": math.MaxFloat64}},
	{"f64 nan", "067ff80000000000007f", map[string]any{"f64": math.Float64frombits(0x7ff8000000000000)}},
	{"timestamp", "0755ef312a2e5da4e77f", map[string]any{"t": Timestamp{Seconds: 1441739050, Nanos: 777888999}}},
	{"timestamp far future", "87000007dba8218000000003e87f", map[string]any{"t": Timestamp{Seconds: 864e10, Nanos: 1000}}},
	{"timestamp far past", "87fffff82457de8000000003e97f", map[string]any{"t": Timestamp{Seconds: -864e10, Nanos: 1001}}},
	{"timestamp before epoch", "87ffffffffffffffff2e5da4e77f", map[string]any{"t": Timestamp{Seconds: -1, Nanos: 777888999}}},
	{"text", "0801417f", map[string]any{"s": "A"}},
	{"text nul", "080261007f", map[string]any{"s": "a\x00"}},
	{"text multibyte", "0809c280e0a080f09080807f", map[string]any{"s": "\u0080\u0800\U00010000"}},
	{"text two byte length", "088001" + strings.Repeat("20", 128) + "7f", map[string]any{"s": strings.Repeat(" ", 128)}},
	{"binary", "0901ff7f", map[string]any{"a": []byte{0xff}}},
	{"binary two", "090202007f", map[string]any{"a": []byte{2, 0}}},
	{"binary two byte length", "09c001" + strings.Repeat("09", 192) + "7f", map[string]any{"a": []byte(strings.Repeat("\t", 192))}},
	{"nested empty", "0a7f7f", map[string]any{"o": NewMessage(goldenStruct)}},
	{"nested bool", "0a007f7f", map[string]any{"o": withO(map[string]any{"b": true})}},
	{"struct list one", "0b01007f7f", map[string]any{"os": []*Message{withO(map[string]any{"b": true})}}},
	{"struct list empties", "0b027f7f7f", map[string]any{"os": []*Message{NewMessage(goldenStruct), NewMessage(goldenStruct)}}},
	{"text list", "0c0300016101627f", map[string]any{"ss": []string{"", "a", "b"}}},
	{"binary list", "0d0201000201027f", map[string]any{"as": [][]byte{{0}, {1, 2}}}},
	{"u8 one", "0e017f", map[string]any{"u8": uint8(1)}},
	{"u8 max", "0eff7f", map[string]any{"u8": uint8(math.MaxUint8)}},
	{"u16 one", "8f017f", map[string]any{"u16": uint16(1)}},
	{"u16 max", "0fffff7f", map[string]any{"u16": uint16(math.MaxUint16)}},
	{"f32 list", "1002000000003f8000007f", map[string]any{"f32s": []float32{0, 1}}},
	{"f64 list", "11014058c000000000007f", map[string]any{"f64s": []float64{99}}},
}

func mustHex(t testing.TB, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

func TestGoldenMarshal(t *testing.T) {
	testlog.Start(t)
	for _, tc := range goldenCases {
		t.Run(tc.name, func(t *testing.T) {
			m := withO(tc.set)
			got, err := Marshal(m, DefaultLimits())
			require.NoError(t, err)
			require.Equal(t, tc.hex, hex.EncodeToString(got))

			n, err := MarshalLen(m, DefaultLimits())
			require.NoError(t, err)
			require.Equal(t, len(got), n)
		})
	}
}

func TestGoldenUnmarshal(t *testing.T) {
	testlog.Start(t)
	for _, tc := range goldenCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Unmarshal(mustHex(t, tc.hex), goldenStruct, DefaultLimits())
			require.NoError(t, err)
			require.True(t, withO(tc.set).Equal(got), "decoded message differs for %s", tc.hex)
		})
	}
}
