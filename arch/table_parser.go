package arch

import (
	"strconv"
	"strings"

	"bass/common"
)

// ParseTable parses an architecture description (spec.md §4.1) into
// a's opcode list and directive registry. It recurses through
// "#include <path>" via read, which the caller supplies so this
// package never touches the filesystem directly.
func (a *Architecture) ParseTable(text string, read ReadArchitecture) error {
	for _, rawLine := range strings.Split(text, "\n") {
		line := rawLine
		if idx := strings.Index(line, "//"); idx >= 0 {
			line = line[:idx]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if trimmed[0] == '#' {
			if err := a.parseDirectiveLine(trimmed, read); err != nil {
				return err
			}
			continue
		}

		lhs, rhs, ok := strings.Cut(trimmed, ";")
		if !ok {
			continue
		}
		lhs, rhs = strings.TrimSpace(lhs), strings.TrimSpace(rhs)

		opcode, err := assembleTableLHS(lhs)
		if err != nil {
			return err
		}
		if err := assembleTableRHS(&opcode, rhs); err != nil {
			return err
		}
		a.Opcodes = append(a.Opcodes, opcode)
	}
	return nil
}

func (a *Architecture) parseDirectiveLine(line string, read ReadArchitecture) error {
	switch {
	case line == "#endian lsb":
		a.Endian = LSB
	case line == "#endian msb":
		a.Endian = MSB
	case strings.HasPrefix(line, "#include "):
		path := strings.TrimSpace(strings.TrimPrefix(line, "#include "))
		if read == nil {
			return common.Errorf(common.SyntaxError, "#include %q with no architecture reader configured", path)
		}
		included, err := read(path)
		if err != nil {
			return common.Errorf(common.SyntaxError, "#include %q: %v", path, err)
		}
		return a.ParseTable(included, read)
	case strings.HasPrefix(line, "#directive "):
		return a.parseDirective(line)
	}
	return nil
}

// #directive <name> <byte_size>
func (a *Architecture) parseDirective(line string) error {
	rest := strings.TrimSpace(strings.TrimPrefix(line, "#directive "))
	items := strings.Split(rest, " ")
	if len(items) != 2 {
		return common.Errorf(common.SyntaxError, "wrong syntax: %q", line)
	}

	name := items[0]
	size, err := strconv.Atoi(items[1])
	if err != nil {
		return common.Errorf(common.SyntaxError, "wrong syntax: %q", line)
	}

	if existing, ok := a.Directives[name]; ok {
		existing.DataLength = uint(size)
		return nil
	}
	a.Directives[name] = &Directive{Name: name, DataLength: uint(size)}
	return nil
}

// assembleTableLHS parses the pattern side of an opcode line: literal
// text fragments interleaved with *NN wildcards.
func assembleTableLHS(text string) (Opcode, error) {
	var opcode Opcode
	offset := 0

	for offset < len(text) {
		start := offset
		for offset < len(text) && text[offset] != '*' {
			offset++
		}
		size := offset - start
		opcode.Prefix = append(opcode.Prefix, PrefixFrag{Text: text[start:offset], Length: uint(size)})

		if offset >= len(text) || text[offset] != '*' {
			continue
		}
		if offset+2 >= len(text) || !isDigit(text[offset+1]) || !isDigit(text[offset+2]) {
			return Opcode{}, common.Errorf(common.SyntaxError, "malformed wildcard in pattern %q", text)
		}
		bits := 10*int(text[offset+1]-'0') + int(text[offset+2]-'0')
		opcode.Number = append(opcode.Number, NumberDesc{Bits: uint(bits)})
		offset += 3
	}

	var pattern strings.Builder
	for _, prefix := range opcode.Prefix {
		if pattern.Len() > 0 {
			pattern.WriteByte('*')
		}
		pattern.WriteString(prefix.Text)
	}
	if len(opcode.Number) == len(opcode.Prefix) {
		pattern.WriteByte('*')
	}
	opcode.Pattern = pattern.String()
	return opcode, nil
}

// assembleTableRHS parses the encoding side of an opcode line: a
// whitespace-separated list of format tokens, dispatched by prefix
// per spec.md §4.1's first-match rules.
func assembleTableRHS(opcode *Opcode, text string) error {
	for _, item := range strings.Fields(text) {
		format, err := parseFormatToken(item)
		if err != nil {
			return err
		}
		opcode.Format = append(opcode.Format, format)
	}
	return nil
}

func parseFormatToken(item string) (Format, error) {
	if item == "" {
		return Format{}, common.Errorf(common.SyntaxError, "empty format token")
	}

	switch {
	case item[0] == '$':
		digits := item[1:]
		data, err := strconv.ParseUint(digits, 16, 64)
		if err != nil {
			return Format{}, common.Errorf(common.SyntaxError, "bad hex literal %q", item)
		}
		return Format{Kind: FormatStatic, Data: data, Bits: uint(4 * len(digits))}, nil

	case item[0] == '%':
		digits := item[1:]
		data, err := strconv.ParseUint(digits, 2, 64)
		if err != nil {
			return Format{}, common.Errorf(common.SyntaxError, "bad binary literal %q", item)
		}
		return Format{Kind: FormatStatic, Data: data, Bits: uint(len(digits))}, nil

	case strings.HasPrefix(item, ">>"):
		shift, arg, err := parseShiftArg(item, 2)
		return Format{Kind: FormatShiftRight, Data: shift, Argument: arg, Match: MatchWeak}, err

	case strings.HasPrefix(item, "<<"):
		shift, arg, err := parseShiftArg(item, 2)
		return Format{Kind: FormatShiftLeft, Data: shift, Argument: arg, Match: MatchWeak}, err

	case item[0] == '+' && len(item) >= 4 && item[2] == '>' && item[3] == '>':
		disp := int(item[1] - '0')
		shift, arg, err := parseShiftArg(item[2:], 2)
		if err != nil {
			return Format{}, err
		}
		return Format{Kind: FormatRelativeShiftRight, Displacement: disp, Data: shift, Argument: arg, Match: MatchWeak}, nil

	case strings.HasPrefix(item, "N>>"):
		shift, arg, err := parseShiftArg(item[1:], 2)
		return Format{Kind: FormatNegativeShiftRight, Data: shift, Argument: arg, Match: MatchWeak}, err

	case item[0] == 'N':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatNegative, Argument: arg, Match: MatchWeak}, err

	case strings.HasPrefix(item, "C>>"):
		shift, arg, err := parseShiftArg(item[1:], 2)
		return Format{Kind: FormatComplimentShiftRight, Data: shift, Argument: arg, Match: MatchWeak}, err

	case item[0] == 'C':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatCompliment, Argument: arg, Match: MatchWeak}, err

	case strings.HasPrefix(item, "D>>"):
		shift, arg, err := parseShiftArg(item[1:], 2)
		return Format{Kind: FormatDecrementShiftRight, Data: shift, Argument: arg, Match: MatchWeak}, err

	case item[0] == 'D':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatDecrement, Argument: arg, Match: MatchWeak}, err

	case strings.HasPrefix(item, "I>>"):
		shift, arg, err := parseShiftArg(item[1:], 2)
		return Format{Kind: FormatIncrementShiftRight, Data: shift, Argument: arg, Match: MatchWeak}, err

	case item[0] == 'I':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatIncrement, Argument: arg, Match: MatchWeak}, err

	case item[0] == '!':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatAbsolute, Argument: arg, Match: MatchExact}, err

	case item[0] == '=':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatAbsolute, Argument: arg, Match: MatchStrong}, err

	case item[0] == '~':
		arg, err := argIndex(item[1:])
		return Format{Kind: FormatAbsolute, Argument: arg, Match: MatchWeak}, err

	case item[0] == '+':
		if len(item) < 3 || !isDigit(item[1]) {
			return Format{}, common.Errorf(common.SyntaxError, "bad relative token %q", item)
		}
		arg, err := argIndex(item[2:])
		return Format{Kind: FormatRelative, Displacement: int(item[1] - '0'), Argument: arg}, err

	case item[0] == '-':
		if len(item) < 3 || !isDigit(item[1]) {
			return Format{}, common.Errorf(common.SyntaxError, "bad relative token %q", item)
		}
		arg, err := argIndex(item[2:])
		return Format{Kind: FormatRelative, Displacement: -int(item[1] - '0'), Argument: arg}, err

	case item[0] == '*':
		if len(item) < 4 {
			return Format{}, common.Errorf(common.SyntaxError, "bad repeat token %q", item)
		}
		arg, err := argIndex(item[1:2])
		if err != nil {
			return Format{}, err
		}
		data, err := strconv.ParseUint(item[2:], 16, 64)
		if err != nil {
			return Format{}, common.Errorf(common.SyntaxError, "bad repeat literal %q", item)
		}
		return Format{Kind: FormatRepeat, Argument: arg, Data: data}, nil
	}

	return Format{}, common.Errorf(common.SyntaxError, "unrecognized format token %q", item)
}

// parseShiftArg parses the "DDa" suffix of a shift/negate/compliment/
// decrement/increment family token, where prefixLen is the number of
// characters already consumed (e.g. 2 for ">>").
func parseShiftArg(item string, prefixLen int) (shift uint64, arg int, err error) {
	rest := item[prefixLen:]
	if len(rest) < 3 || !isDigit(rest[0]) || !isDigit(rest[1]) {
		return 0, 0, common.Errorf(common.SyntaxError, "bad shift token %q", item)
	}
	shift = uint64(10*int(rest[0]-'0') + int(rest[1]-'0'))
	arg, err = argIndex(rest[2:])
	return shift, arg, err
}

// argIndex maps an argument letter to its 0-based index using the
// case-sensitive a..z -> 0..25, A..Z -> 26..51 scheme from spec.md §4.1.
func argIndex(letter string) (int, error) {
	if len(letter) != 1 {
		return 0, common.Errorf(common.SyntaxError, "bad argument letter %q", letter)
	}
	c := letter[0]
	switch {
	case c >= 'a' && c <= 'z':
		return int(c - 'a'), nil
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 26, nil
	default:
		return 0, common.Errorf(common.SyntaxError, "bad argument letter %q", letter)
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
