//go:build fuzz

package protocol

import (
	"testing"
)

func FuzzUnmarshal(f *testing.F) {
	for _, tc := range goldenCases {
		b, err := Marshal(withO(tc.set), DefaultLimits())
		if err != nil {
			f.Fatalf("seed %s: %v", tc.name, err)
		}
		f.Add(b)
	}
	f.Add([]byte{0x0b, 0x02, 0x00, 0x7f})
	f.Add([]byte{0x84, 0x80, 0x80})

	limits := Limits{MaxSize: 4096, MaxList: 64, MaxDepth: 8}
	f.Fuzz(func(t *testing.T, data []byte) {
		m, err := Unmarshal(data, goldenStruct, limits)
		if err != nil {
			if Kind(err) == "other" {
				t.Fatalf("unclassified error: %v", err)
			}
			return
		}
		out, err := Marshal(m, limits)
		if err != nil {
			t.Fatalf("re-marshal: %v", err)
		}
		again, err := Unmarshal(out, goldenStruct, limits)
		if err != nil {
			t.Fatalf("decode of re-marshal %x: %v", out, err)
		}
		if !m.Equal(again) {
			t.Fatalf("re-marshal of %x changed the message", data)
		}
	})
}
