package arch

import (
	"strconv"
	"strings"
	"testing"

	"bass/common"
)

func newTestArchitecture(t *testing.T, table string, emit *captureEmitter, strict bool) *Architecture {
	a := NewArchitecture(stubEvaluator{}, emit, strict)
	if err := a.ParseTable(table, nil); err != nil {
		t.Fatalf("ParseTable: %v", err)
	}
	return a
}

// S1 — Static only.
func TestAssembleStaticOnly(t *testing.T) {
	emit := &captureEmitter{}
	a := newTestArchitecture(t, `nop; $ea`, emit, false)

	matched, err := a.Assemble("nop", nil)
	if err != nil || !matched {
		t.Fatalf("Assemble(nop) = %v, %v", matched, err)
	}
	if len(emit.bytes) != 1 || emit.bytes[0] != 0xEA {
		t.Errorf("bytes = %v, want [0xEA]", emit.bytes)
	}
}

// S2 — Absolute 8-bit, plus the Strong-mode width rejection.
func TestAssembleAbsoluteEightBit(t *testing.T) {
	emit := &captureEmitter{}
	a := newTestArchitecture(t, `lda #*08; $a9 =a`, emit, false)
	a.Eval = literalEvaluator{}

	matched, err := a.Assemble("lda #$42", nil)
	if err != nil || !matched {
		t.Fatalf("Assemble(lda #$42) = %v, %v", matched, err)
	}
	if got := emit.bytes; len(got) != 2 || got[0] != 0xA9 || got[1] != 0x42 {
		t.Errorf("bytes = %v, want [0xA9 0x42]", got)
	}

	emit2 := &captureEmitter{}
	a2 := newTestArchitecture(t, `lda #*08; $a9 =a`, emit2, false)
	a2.Eval = literalEvaluator{}
	matched, err = a2.Assemble("lda #$1234", nil)
	if err != nil {
		t.Fatalf("Assemble(lda #$1234): %v", err)
	}
	if matched {
		t.Errorf("Assemble(lda #$1234) matched, want NoMatch (width 16 > declared 8)")
	}
}

// Width-sigil'd Absolute argument: the leading '<' forces an 8-bit
// width read without needing the literal text to prove it, and must
// still reach evalArg as parseable text rather than the bare sigil.
func TestAssembleAbsoluteWidthSigilStripped(t *testing.T) {
	emit := &captureEmitter{}
	a := newTestArchitecture(t, `ldb #*08; $99 =a`, emit, false)
	a.Eval = literalEvaluator{}

	matched, err := a.Assemble("ldb #<255", nil)
	if err != nil || !matched {
		t.Fatalf("Assemble(ldb #<255) = %v, %v", matched, err)
	}
	if got := emit.bytes; len(got) != 2 || got[0] != 0x99 || got[1] != 0xFF {
		t.Errorf("bytes = %v, want [0x99 0xFF]", got)
	}
}

// S3 — Relative 8-bit branch.
func TestAssembleRelativeBranch(t *testing.T) {
	emit := &captureEmitter{pc: 0x8000}
	a := newTestArchitecture(t, `beq *08; $f0 +1a`, emit, false)
	a.Eval = literalEvaluator{}

	matched, err := a.Assemble("beq 32768", nil) // 0x8000 in decimal
	if err != nil || !matched {
		t.Fatalf("Assemble(beq) = %v, %v", matched, err)
	}
	if got := emit.bytes; len(got) != 2 || got[0] != 0xF0 || got[1] != 0xFF {
		t.Errorf("bytes = %v, want [0xF0 0xFF]", got)
	}
}

// S4 — Branch out of bounds.
func TestAssembleBranchOutOfBounds(t *testing.T) {
	emit := &captureEmitter{pc: 0}
	a := newTestArchitecture(t, `beq *08; $f0 +1a`, emit, false)
	a.Eval = literalEvaluator{}

	_, err := a.Assemble("beq 512", nil) // displacement 0x1FF > 127
	if err == nil {
		t.Fatal("Assemble(beq 512) expected BranchOutOfBounds")
	}
}

// S5 — Endian-sensitive relative shift.
func TestAssembleRelativeShiftRightMSB(t *testing.T) {
	emit := &captureEmitter{pc: 0x100}
	a := newTestArchitecture(t, "#endian msb\njmp *24; $4c +0>>02a", emit, false)
	a.Eval = literalEvaluator{}

	matched, err := a.Assemble("jmp 516", nil) // 0x204
	if err != nil || !matched {
		t.Fatalf("Assemble(jmp) = %v, %v", matched, err)
	}
	// 8 static bits + 22 post-shift bits = 30 bits -> 3 whole bytes
	// flushed low-byte-of-accumulator-first, 6 bits left pending.
	want := []byte{0x4c, 0x00, 0x00}
	if len(emit.bytes) != len(want) {
		t.Fatalf("bytes = %v, want %v", emit.bytes, want)
	}
	for i := range want {
		if emit.bytes[i] != want[i] {
			t.Errorf("bytes[%d] = %#x, want %#x", i, emit.bytes[i], want[i])
		}
	}
	if a.bitpos != 6 {
		t.Errorf("bitpos = %d, want 6 pending bits", a.bitpos)
	}
	if a.bitval != 1 {
		t.Errorf("bitval = %#x, want 1 (the swapped 0x41's low six bits, 0b000001, not yet flushed)", a.bitval)
	}
}

// literalEvaluator evaluates simple "$hex" and decimal literals the
// way Assemble's test scenarios need, without pulling in the full
// eval package (kept dependency-free to isolate arch's own tests).
type literalEvaluator struct{}

func (literalEvaluator) Evaluate(text string, mode common.Mode) (int64, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "$") {
		v, err := strconv.ParseInt(text[1:], 16, 64)
		return v, err
	}
	v, err := strconv.ParseInt(text, 10, 64)
	return v, err
}
