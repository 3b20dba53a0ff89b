package arch

import (
	"testing"

	"bass/common"
)

type stubEvaluator struct {
	value int64
	err   error
}

func (s stubEvaluator) Evaluate(text string, mode common.Mode) (int64, error) {
	return s.value, s.err
}

func TestDecimalBitsZero(t *testing.T) {
	if got := decimalBits("0"); got != 1 {
		t.Errorf("decimalBits(\"0\") = %d, want 1", got)
	}
}

func TestDecimalBitsNotANumber(t *testing.T) {
	if got := decimalBits("0x1"); got != 0 {
		t.Errorf("decimalBits(\"0x1\") = %d, want 0", got)
	}
}

func TestDecimalBitsOverflow(t *testing.T) {
	if got := decimalBits("999999999999999999999"); got != 65 {
		t.Errorf("decimalBits(huge) = %d, want 65", got)
	}
}

func TestBitLengthSigils(t *testing.T) {
	cases := []struct {
		arg      string
		wantBits uint
	}{
		{"<42", 8},
		{">42", 16},
		{"^42", 24},
		{"?42", 32},
		{":42", 64},
	}
	for _, c := range cases {
		_, bits := BitLength(c.arg, stubEvaluator{})
		if bits != c.wantBits {
			t.Errorf("BitLength(%q) bits = %d, want %d", c.arg, bits, c.wantBits)
		}
	}
}

func TestBitLengthBases(t *testing.T) {
	cases := []struct {
		arg      string
		wantBits uint
	}{
		{"$ff", 8},
		{"0xff", 8},
		{"%1010", 4},
		{"0b1010", 4},
		{"255", 8},
		{"256", 9},
	}
	for _, c := range cases {
		_, bits := BitLength(c.arg, stubEvaluator{})
		if bits != c.wantBits {
			t.Errorf("BitLength(%q) bits = %d, want %d", c.arg, bits, c.wantBits)
		}
	}
}

func TestBitLengthFallthroughEvaluates(t *testing.T) {
	_, bits := BitLength("label", stubEvaluator{value: 300})
	if bits != 9 {
		t.Errorf("BitLength fallthrough bits = %d, want 9", bits)
	}

	_, bits = BitLength("label", stubEvaluator{value: -1})
	if bits != 64 {
		t.Errorf("BitLength fallthrough negative bits = %d, want 64", bits)
	}
}
