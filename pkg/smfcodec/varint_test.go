package smfcodec

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestVarLenKnownEncodings(t *testing.T) {
	tests := []struct {
		n    uint32
		want []byte
	}{
		{0x00, []byte{0x00}},
		{0x40, []byte{0x40}},
		{0x7F, []byte{0x7F}},
		{0x80, []byte{0x81, 0x00}},
		{0x2000, []byte{0xC0, 0x00}},
		{0x3FFF, []byte{0xFF, 0x7F}},
		{0x4000, []byte{0x81, 0x80, 0x00}},
		{0x0FFFFFFF, []byte{0xFF, 0xFF, 0xFF, 0x7F}},
	}
	for _, tt := range tests {
		got := writeVarLen(nil, tt.n)
		if string(got) != string(tt.want) {
			t.Errorf("writeVarLen(%#x) = %#v, want %#v", tt.n, got, tt.want)
		}
		n, consumed, err := readVarLen(got)
		if err != nil {
			t.Fatalf("readVarLen(%#v) error: %v", got, err)
		}
		if n != tt.n || consumed != len(tt.want) {
			t.Errorf("readVarLen(%#v) = (%#x, %d), want (%#x, %d)", got, n, consumed, tt.n, len(tt.want))
		}
	}
}

func TestReadVarLenTruncated(t *testing.T) {
	_, _, err := readVarLen([]byte{0x81})
	if err != ErrVarLenTruncated {
		t.Errorf("expected ErrVarLenTruncated, got %v", err)
	}
}

func TestReadVarLenTooLong(t *testing.T) {
	_, _, err := readVarLen([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0x00})
	if err != ErrVarLenTooLong {
		t.Errorf("expected ErrVarLenTooLong, got %v", err)
	}
}

func TestVarLenRoundTripProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	properties := gopter.NewProperties(parameters)

	properties.Property("read_varlen(write_varlen(n)) == n for 0 <= n < 2^28", prop.ForAll(
		func(n uint32) bool {
			n &= 0x0FFFFFFF
			encoded := writeVarLen(nil, n)
			got, consumed, err := readVarLen(encoded)
			return err == nil && got == n && consumed == len(encoded)
		},
		gen.UInt32(),
	))

	properties.TestingRun(t)
}
