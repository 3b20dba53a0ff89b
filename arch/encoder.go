package arch

import (
	"strings"

	"bass/common"
)

// Assemble matches statement against the table in declaration order and
// emits the first opcode whose pattern and width checks succeed.
// "instrument \"<text>\"" is handled first as an escape hatch that lets
// source augment the table in place (spec.md §4.2 step 1).
func (a *Architecture) Assemble(statement string, read ReadArchitecture) (bool, error) {
	if text, ok := instrumentText(statement); ok {
		if err := a.ParseTable(text, read); err != nil {
			return false, err
		}
		return true, nil
	}

	pc := a.Emit.PC()

	for i := range a.Opcodes {
		opcode := &a.Opcodes[i]

		args, ok := tokenize(statement, opcode.Pattern)
		if !ok || len(args) != len(opcode.Number) {
			continue
		}

		if a.widthMismatch(opcode, args) {
			continue
		}

		if err := a.emit(opcode, args, pc); err != nil {
			return false, err
		}
		return true, nil
	}

	return false, nil
}

func instrumentText(statement string) (string, bool) {
	const prefix = `instrument "`
	if !strings.HasPrefix(statement, prefix) || !strings.HasSuffix(statement, `"`) {
		return "", false
	}
	return statement[len(prefix) : len(statement)-1], true
}

// tokenize matches s against a pattern built from literal fragments
// joined by '*' wildcards (an optional trailing '*' consumes the rest
// of the string). It returns the text captured by each wildcard in
// left-to-right order, or ok=false if s does not match the pattern.
func tokenize(s, pattern string) (args []string, ok bool) {
	parts := strings.Split(pattern, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return nil, false
	}
	pos := len(parts[0])

	for _, part := range parts[1:] {
		if part == "" {
			args = append(args, s[pos:])
			pos = len(s)
			continue
		}
		idx := strings.Index(s[pos:], part)
		if idx < 0 {
			return nil, false
		}
		args = append(args, s[pos:pos+idx])
		pos += idx + len(part)
	}

	if pos != len(s) {
		return nil, false
	}
	return args, true
}

// widthMismatch runs the Strong/Exact width checks spec.md §4.2 step c
// describes. Weak-matched and non-Absolute formats are skipped. A
// width sigil (<,>,^,?,:) on the argument is stripped here and the
// stripped text written back into args so the later evalArg call
// evaluates it instead of choking on the sigil.
func (a *Architecture) widthMismatch(opcode *Opcode, args []string) bool {
	for _, format := range opcode.Format {
		if format.Kind != FormatAbsolute || format.Match == MatchWeak {
			continue
		}
		stripped, bits := BitLength(args[format.Argument], a.Eval)
		args[format.Argument] = stripped
		declared := opcode.Number[format.Argument].Bits
		switch format.Match {
		case MatchStrong:
			if bits > declared {
				return true
			}
		case MatchExact:
			if bits != declared {
				return true
			}
		}
	}
	return false
}

// mode returns the evaluation mode this Architecture was configured
// with: Strict rejects undefined symbols where Default resolves them
// to zero (spec.md §4.4).
func (a *Architecture) mode() common.Mode {
	if a.Strict {
		return common.Strict
	}
	return common.Default
}

func (a *Architecture) evalArg(args []string, i int) (int64, error) {
	return a.Eval.Evaluate(args[i], a.mode())
}

func (a *Architecture) emit(opcode *Opcode, args []string, pc uint64) error {
	for _, format := range opcode.Format {
		if err := a.emitFormat(opcode, format, args, pc); err != nil {
			return err
		}
	}
	return nil
}

func (a *Architecture) emitFormat(opcode *Opcode, format Format, args []string, pc uint64) error {
	switch format.Kind {
	case FormatStatic:
		return a.writeBits(format.Data, format.Bits)

	case FormatAbsolute:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data), opcode.Number[format.Argument].Bits)

	case FormatRelative:
		return a.emitRelative(opcode, format, args, pc)

	case FormatRepeat:
		count, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		for n := int64(0); n < count; n++ {
			if err := a.writeBits(format.Data, opcode.Number[format.Argument].Bits); err != nil {
				return err
			}
		}
		return nil

	case FormatShiftRight:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data)>>format.Data, opcode.Number[format.Argument].Bits)

	case FormatShiftLeft:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data)<<format.Data, opcode.Number[format.Argument].Bits)

	case FormatRelativeShiftRight:
		return a.emitRelativeShiftRight(opcode, format, args, pc)

	case FormatNegative:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(-data), opcode.Number[format.Argument].Bits)

	case FormatNegativeShiftRight:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(-data)>>format.Data, opcode.Number[format.Argument].Bits)

	case FormatCompliment:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(^uint64(data), opcode.Number[format.Argument].Bits)

	case FormatComplimentShiftRight:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(^uint64(data)>>format.Data, opcode.Number[format.Argument].Bits)

	case FormatDecrement:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data-1), opcode.Number[format.Argument].Bits)

	case FormatDecrementShiftRight:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data-1)>>format.Data, opcode.Number[format.Argument].Bits)

	case FormatIncrement:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data+1), opcode.Number[format.Argument].Bits)

	case FormatIncrementShiftRight:
		data, err := a.evalArg(args, format.Argument)
		if err != nil {
			return err
		}
		return a.writeBits(uint64(data+1)>>format.Data, opcode.Number[format.Argument].Bits)
	}
	return common.Errorf(common.SyntaxError, "unknown format kind %d", format.Kind)
}

func (a *Architecture) emitRelative(opcode *Opcode, format Format, args []string, pc uint64) error {
	target, err := a.evalArg(args, format.Argument)
	if err != nil {
		return err
	}
	bits := opcode.Number[format.Argument].Bits
	value := target - (int64(pc) + int64(format.Displacement))
	if err := checkBranchRange(value, bits); err != nil {
		return err
	}
	return a.writeBits(uint64(value), bits)
}

func (a *Architecture) emitRelativeShiftRight(opcode *Opcode, format Format, args []string, pc uint64) error {
	target, err := a.evalArg(args, format.Argument)
	if err != nil {
		return err
	}
	bits := opcode.Number[format.Argument].Bits
	value := target - (int64(pc) + int64(format.Displacement))
	if err := checkBranchRange(value, bits); err != nil {
		return err
	}

	shifted := value >> format.Data
	resultBits := bits - uint(format.Data)

	if a.Endian == LSB {
		return a.writeBits(uint64(shifted), resultBits)
	}

	swapped, err := SwapEndian(uint64(shifted), resultBits)
	if err != nil {
		return err
	}
	return a.writeBits(swapped, resultBits)
}

func checkBranchRange(value int64, bits uint) error {
	min := -(int64(1) << (bits - 1))
	max := int64(1)<<(bits-1) - 1
	if value < min || value > max {
		return common.Errorf(common.BranchOutOfBounds, "branch out of bounds: %d", value)
	}
	return nil
}
