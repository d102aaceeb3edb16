package transcode

import (
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/danmuck/wirecodec/internal/protocol"
	"github.com/danmuck/wirecodec/internal/protocol/schema"
	"github.com/fxamacker/cbor/v2"
	jsoniter "github.com/json-iterator/go"
)

// Format names a text or binary rendering of a message.
type Format string

const (
	FormatJSON Format = "json"
	FormatCBOR Format = "cbor"
)

func ParseFormat(raw string) (Format, error) {
	switch f := Format(raw); f {
	case FormatJSON, FormatCBOR:
		return f, nil
	}
	return "", errors.Newf("transcode: unknown format %q", raw)
}

// jsonAPI sorts map keys so output is stable and keeps numbers as
// json.Number so 64-bit integers survive decoding.
var jsonAPI = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	UseNumber:              true,
	ValidateJsonRawMessage: true,
}.Froze()

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: sorted keys, shortest integer forms.
	cborEnc, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("transcode: CBOR encoder initialization failed: " + err.Error())
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("transcode: CBOR decoder initialization failed: " + err.Error())
	}
}

// Encode renders m in format f.
func Encode(m *protocol.Message, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return EncodeJSON(m)
	case FormatCBOR:
		return EncodeCBOR(m)
	}
	return nil, errors.Newf("transcode: unknown format %q", string(f))
}

// Decode parses data in format f into a message of kind desc.
func Decode(data []byte, desc *schema.Struct, f Format) (*protocol.Message, error) {
	switch f {
	case FormatJSON:
		return DecodeJSON(data, desc)
	case FormatCBOR:
		return DecodeCBOR(data, desc)
	}
	return nil, errors.Newf("transcode: unknown format %q", string(f))
}

func EncodeJSON(m *protocol.Message) ([]byte, error) {
	out, err := jsonAPI.MarshalIndent(ToMap(m), "", "  ")
	if err != nil {
		return nil, errors.Wrapf(err, "transcode: json %s", m.Descriptor().Name())
	}
	return out, nil
}

func DecodeJSON(data []byte, desc *schema.Struct) (*protocol.Message, error) {
	var in map[string]any
	if err := jsonAPI.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrapf(err, "transcode: json %s", desc.Name())
	}
	return FromMap(desc, in)
}

func EncodeCBOR(m *protocol.Message) ([]byte, error) {
	out, err := cborEnc.Marshal(ToMap(m))
	if err != nil {
		return nil, errors.Wrapf(err, "transcode: cbor %s", m.Descriptor().Name())
	}
	return out, nil
}

func DecodeCBOR(data []byte, desc *schema.Struct) (*protocol.Message, error) {
	var in map[string]any
	if err := cborDec.Unmarshal(data, &in); err != nil {
		return nil, errors.Wrapf(err, "transcode: cbor %s", desc.Name())
	}
	return FromMap(desc, in)
}
