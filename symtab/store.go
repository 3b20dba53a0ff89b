// Package symtab implements the concrete symbol store bass's core
// treats as an external collaborator (spec §6): label/constant
// resolution with the three-valued pass-convergence latch spec.md §3
// and §4.5 describe, plus textual define substitution.
package symtab

import (
	"strconv"
	"strings"

	"bass/common"
	"bass/eval"
)

// Record is one constant or label entry participating in pass
// convergence. Held means it was assigned at least once during the
// pass that just finished; Changed means its value differs from the
// previous pass's; Indeterminate means a dependency of its value was
// itself unresolved this pass; Unknown means it was referenced before
// being defined at all.
type Record struct {
	Value         int64
	Held          bool
	Changed       bool
	Indeterminate bool
	Unknown       bool
}

var _ common.SymbolStore = (*Store)(nil)

// Store is the default common.SymbolStore and eval.Resolver.
type Store struct {
	eval    common.Evaluator
	defines map[string]string
	names   []string // declaration order, for driver convergence iteration
	records map[string]*Record

	// target names the constant currently being assigned via
	// Constant, so Resolve can mark it Indeterminate when it
	// depends on another unresolved reference. Empty outside a
	// Constant call.
	target string
}

func NewStore() *Store {
	s := &Store{
		defines: make(map[string]string),
		records: make(map[string]*Record),
	}
	s.eval = eval.NewParser(s)
	return s
}

// Names returns a snapshot of constant/label names in first-
// declaration order, the iteration order the pass driver's
// convergence loop uses (spec §4.5). The driver may call Forget
// while iterating the returned slice; Names always returns a fresh
// copy so that is safe.
func (s *Store) Names() []string {
	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

// Forget removes name's record entirely, used when a constant was
// never held during a pass (spec.md §4.5's "never set" cleanup).
func (s *Store) Forget(name string) {
	delete(s.records, name)
	for i, n := range s.names {
		if n == name {
			s.names = append(s.names[:i], s.names[i+1:]...)
			break
		}
	}
}

func (s *Store) Record(name string) (*Record, bool) {
	r, ok := s.records[name]
	return r, ok
}

// Define installs a textual macro substitution: Evaluate replaces
// whole-word occurrences of name with value before parsing, the way
// the source language's "define"/"equ"-as-text directives behave.
func (s *Store) Define(name, value string) {
	s.defines[name] = value
}

// Constant assigns name's value, participating in the convergence
// protocol described in spec.md §4.5: the record is marked Held; if
// the computed value differs from its previous value (or this is the
// first assignment), Changed is set too. Label addresses are
// registered through this same entry point with their decimal
// address text as value, per spec.md §4.6.
func (s *Store) Constant(name, value string) error {
	previous, existed := s.records[name]
	record := previous
	if !existed {
		// Registered before evaluating so Resolve can mark a first
		// assignment Indeterminate too.
		record = &Record{}
		s.records[name] = record
		s.names = append(s.names, name)
	}

	s.target = name
	result, err := s.Evaluate(value, common.Default)
	s.target = ""
	if err != nil {
		if !existed {
			s.Forget(name)
		}
		return err
	}

	record.Held = true
	record.Unknown = false
	if !existed || previous.Value != result {
		record.Changed = true
	}
	record.Value = result
	return nil
}

// Evaluate expands defines textually, then delegates arithmetic to
// the injected recursive-descent evaluator, which calls back into
// Resolve for bare symbol atoms.
func (s *Store) Evaluate(text string, mode common.Mode) (int64, error) {
	return s.eval.Evaluate(s.expandDefines(text), mode)
}

// Resolve implements eval.Resolver. An undeclared or still-unknown
// name is recorded (creating a placeholder record if necessary) so
// the pass driver's convergence loop sees it next pass, and marks the
// constant currently being assigned (if any) Indeterminate, since its
// value transitively depends on something not yet resolved.
func (s *Store) Resolve(name string) (int64, bool) {
	record, ok := s.records[name]
	if !ok {
		record = &Record{Unknown: true}
		s.records[name] = record
		s.names = append(s.names, name)
	}

	if record.Unknown {
		if s.target != "" && s.target != name {
			if t, ok := s.records[s.target]; ok {
				t.Indeterminate = true
			}
		}
		return 0, false
	}

	return record.Value, true
}

// expandDefines substitutes whole-word occurrences of each defined
// name with its replacement text, repeating until a pass makes no
// further substitution (bounded to guard against a cyclic define).
func (s *Store) expandDefines(text string) string {
	for pass := 0; pass < 8; pass++ {
		changed := false
		for name, value := range s.defines {
			replaced := replaceWord(text, name, value)
			if replaced != text {
				text = replaced
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return text
}

func replaceWord(text, name, value string) string {
	if name == "" {
		return text
	}
	var b strings.Builder
	for {
		idx := strings.Index(text, name)
		if idx < 0 {
			b.WriteString(text)
			break
		}
		before := idx == 0 || !isWordByte(text[idx-1])
		after := idx+len(name) >= len(text) || !isWordByte(text[idx+len(name)])
		if before && after {
			b.WriteString(text[:idx])
			b.WriteString(value)
			text = text[idx+len(name):]
		} else {
			b.WriteString(text[:idx+1])
			text = text[idx+1:]
		}
	}
	return b.String()
}

func isWordByte(c byte) bool {
	return c == '_' || c == '.' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// Label registers name's value as the decimal text of addr, going
// through Constant exactly as any other constant would (spec.md
// §4.6: "label definitions go through the same store as constants").
func (s *Store) Label(name string, addr uint64) error {
	return s.Constant(name, strconv.FormatUint(addr, 10))
}
