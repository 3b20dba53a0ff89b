package driver

import (
	"os"
	"path/filepath"
	"testing"

	"bass/source"
)

const testTable = `nop; $ea
jmp *08; $4c =a`

func program(statements ...string) []source.Instruction {
	instructions := make([]source.Instruction, len(statements))
	for i, s := range statements {
		instructions[i] = source.Instruction{
			Statement:   s,
			FileNumber:  0,
			LineNumber:  i + 1,
			BlockNumber: 1,
		}
	}
	return instructions
}

// TestAssembleConvergesOnForwardLabelReference exercises the full
// Analyze -> Query -> Refine* -> Write loop against a label used
// before its own declaration, the scenario spec.md calls out as
// needing more than one pass to stabilize.
func TestAssembleConvergesOnForwardLabelReference(t *testing.T) {
	instrument := "instrument \"" + testTable + "\""
	prog := program(
		instrument,
		"jmp target",
		"nop",
		"target: nop",
	)

	d := New(prog, []string{"test.asm"}, nil)

	out := filepath.Join(t.TempDir(), "out.bin")
	if err := d.Target.Open(out, false); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := d.Assemble(); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if err := d.Target.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := []byte{0x4c, 0x03, 0xea, 0xea}
	if len(data) != len(want) {
		t.Fatalf("output = %v, want %v", data, want)
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("output[%d] = %#x, want %#x", i, data[i], want[i])
		}
	}
}

// TestAssembleInstrumentSurvivesRealSourceLoad feeds an
// instrument "nop; $ea" statement through the real source.Load,
// rather than the program() helper, to confirm the loader's
// quote-aware ';' splitting keeps the table text intact: a naive
// split would cut it into `instrument "nop` and `$ea"`, neither of
// which matches instrumentText's closing-quote check.
func TestAssembleInstrumentSurvivesRealSourceLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "main.asm")
	contents := "instrument \"nop; $ea\"\nnop\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	prog, filenames, err := source.Load([]string{path})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(prog) != 2 {
		t.Fatalf("program = %v, want 2 intact statements", prog)
	}
	want := `instrument "nop; $ea"`
	if prog[0].Statement != want {
		t.Fatalf("program[0].Statement = %q, want %q", prog[0].Statement, want)
	}

	d := New(prog, filenames, nil)
	if err := d.Target.Open("", false); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := d.Assemble(); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
}

// TestAssembleFailsWhenNoOpcodeMatches checks the NoMatch path
// unwinds the pass as a fatal error in non-strict mode too, since
// NoMatch is not a Warning kind.
func TestAssembleFailsWhenNoOpcodeMatches(t *testing.T) {
	instrument := "instrument \"" + testTable + "\""
	prog := program(instrument, "xyzzy")

	d := New(prog, []string{"test.asm"}, nil)
	if err := d.Target.Open("", false); err != nil {
		t.Fatalf("Open: %v", err)
	}

	if err := d.Assemble(); err == nil {
		t.Fatal("Assemble expected a NoMatch error for an unrecognized instruction")
	}
}

