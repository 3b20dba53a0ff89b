// Package arch implements the architecture/instruction table: the
// declarative grammar that maps textual opcode patterns to bit-level
// encodings (table parsing), and the per-statement matcher/encoder that
// performs argument substitution, relative addressing, endian swapping,
// and variable-bit-width emission.
package arch

import "bass/common"

// Endian selects LSB-first or MSB-first emission for multi-byte
// primitives and for RelativeShiftRight's post-shift byte swap.
type Endian int

const (
	LSB Endian = iota
	MSB
)

// FormatKind tags one Format encoding directive.
type FormatKind int

const (
	FormatStatic FormatKind = iota
	FormatAbsolute
	FormatRelative
	FormatRepeat
	FormatShiftRight
	FormatShiftLeft
	FormatRelativeShiftRight
	FormatNegative
	FormatNegativeShiftRight
	FormatCompliment
	FormatComplimentShiftRight
	FormatDecrement
	FormatDecrementShiftRight
	FormatIncrement
	FormatIncrementShiftRight
)

// MatchMode is the width-check policy applied to an Absolute format's
// argument literal against its descriptor's declared width.
type MatchMode int

const (
	MatchWeak MatchMode = iota
	MatchStrong
	MatchExact
)

// Format is one encoding directive within an Opcode. It is a flat
// struct carrying only the fields each FormatKind uses, dispatched with
// an exhaustive switch in the encoder — a Go rendition of the tagged
// variant spec.md §9 calls for.
type Format struct {
	Kind         FormatKind
	Argument     int       // index into Opcode.Number; unused by Static
	Data         uint64    // Static/Repeat literal; shift amount for *ShiftRight/*ShiftLeft kinds
	Bits         uint      // Static's declared bit width
	Displacement int       // Relative/RelativeShiftRight displacement from pc
	Match        MatchMode // meaningful only for Absolute
}

// NumberDesc describes one wildcard argument slot: its declared bit width.
type NumberDesc struct {
	Bits uint
}

// PrefixFrag is one literal text fragment of an opcode's LHS pattern.
type PrefixFrag struct {
	Text   string
	Length uint
}

// Opcode is one row of the instruction table.
type Opcode struct {
	Prefix  []PrefixFrag
	Number  []NumberDesc
	Pattern string
	Format  []Format
}

// Directive is a registered "#directive <name> <byte_size>" entry.
// The core only stores these; acting on them (e.g. dc.b-style emission)
// is left to the surrounding source-language directive handling, which
// is out of scope per spec.md §1.
type Directive struct {
	Name       string
	DataLength uint
}

// ReadArchitecture resolves a "#include <path>" reference to table text.
type ReadArchitecture func(path string) (string, error)

// Emitter is what the bit writer flushes completed bytes through, and
// what Relative formats snapshot the program counter from. The driver
// passes its target file in as the Emitter; spec.md assigns pc() and the
// byte sink to Bass, the driver-level object that owns the target file
// and outlives every pass's Architecture.
type Emitter interface {
	PC() uint64
	WriteByte(b byte) error
}

// Architecture is the per-pass state: declared endian, the parsed
// opcode list, the directive registry, and the bit accumulator. The
// driver constructs a fresh Architecture at the start of each pass and
// drops it at pass end (spec.md §3's "Architecture state" lifetime).
type Architecture struct {
	Endian     Endian
	Opcodes    []Opcode
	Directives map[string]*Directive

	Eval   common.Evaluator
	Emit   Emitter
	Strict bool

	bitval uint64
	bitpos uint
}

// NewArchitecture creates an empty Architecture ready for ParseTable.
func NewArchitecture(eval common.Evaluator, emit Emitter, strict bool) *Architecture {
	return &Architecture{
		Endian:     LSB,
		Directives: make(map[string]*Directive),
		Eval:       eval,
		Emit:       emit,
		Strict:     strict,
	}
}
