package varint

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestAppendKnownEncodings(t *testing.T) {
	cases := []struct {
		v    uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{255, []byte{0xff, 0x01}},
		{math.MaxUint16, []byte{0xff, 0xff, 0x03}},
		{math.MaxUint32, []byte{0xff, 0xff, 0xff, 0xff, 0x0f}},
		{1<<49 - 1, []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}},
	}
	for _, tc := range cases {
		got := Append(nil, tc.v)
		if !bytes.Equal(got, tc.want) {
			t.Fatalf("Append(%d) = % x, want % x", tc.v, got, tc.want)
		}
		if Len(tc.v) != len(tc.want) {
			t.Fatalf("Len(%d) = %d, want %d", tc.v, Len(tc.v), len(tc.want))
		}
	}
}

func TestAppend64UsesFullNinthByte(t *testing.T) {
	got := Append64(nil, 1<<63)
	want := []byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80}
	if !bytes.Equal(got, want) {
		t.Fatalf("Append64(1<<63) = % x, want % x", got, want)
	}
	if Len64(math.MaxUint64) != MaxLen64 {
		t.Fatalf("Len64(max) = %d, want %d", Len64(math.MaxUint64), MaxLen64)
	}

	got = Append64(nil, math.MaxInt64)
	want = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f}
	if !bytes.Equal(got, want) {
		t.Fatalf("Append64(MaxInt64) = % x, want % x", got, want)
	}
}

func TestAppend64MatchesAppendBelow56Bits(t *testing.T) {
	for _, v := range []uint64{0, 1, 300, 1 << 35, 1<<56 - 1} {
		if !bytes.Equal(Append(nil, v), Append64(nil, v)) {
			t.Fatalf("encodings diverge for %d", v)
		}
	}
}

func TestRead64RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 16383, 16384, 1 << 28, 1 << 49, 1<<63 - 1, 1 << 63, math.MaxUint64}
	for _, v := range values {
		buf := Append64([]byte{0xaa}, v)
		got, pos, err := Read64(buf, 1)
		if err != nil {
			t.Fatalf("Read64(%d): %v", v, err)
		}
		if got != v || pos != len(buf) {
			t.Fatalf("Read64 = (%d, %d), want (%d, %d)", got, pos, v, len(buf))
		}
	}
}

func TestRead32RoundTrip(t *testing.T) {
	for _, v := range []uint32{0, 1, 127, 128, 1<<21 - 1, 1 << 21, 1<<28 - 1, 1 << 28, math.MaxUint32} {
		buf := Append(nil, uint64(v))
		got, pos, err := Read32(buf, 0)
		if err != nil {
			t.Fatalf("Read32(%d): %v", v, err)
		}
		if got != v || pos != len(buf) {
			t.Fatalf("Read32 = (%d, %d), want (%d, %d)", got, pos, v, len(buf))
		}
	}
}

func TestRead32OverflowIsDeterministic(t *testing.T) {
	// 2^32 needs a fifth group above 0x0f
	_, _, err := Read32([]byte{0x80, 0x80, 0x80, 0x80, 0x10}, 0)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
	// continuation bit on the fifth byte
	_, _, err = Read32([]byte{0xff, 0xff, 0xff, 0xff, 0x8f, 0x01}, 0)
	if !errors.Is(err, ErrOverflow) {
		t.Fatalf("expected ErrOverflow, got %v", err)
	}
}

func TestReadTruncatedIsDeterministic(t *testing.T) {
	if _, _, err := Read32([]byte{0x80, 0x80}, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Read32: expected ErrTruncated, got %v", err)
	}
	if _, _, err := Read64([]byte{0xff}, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Read64: expected ErrTruncated, got %v", err)
	}
	if _, _, err := Read64(nil, 0); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Read64 empty: expected ErrTruncated, got %v", err)
	}
}
