// Package driver implements the pass driver (spec §4.5): the
// Analyze → Query → Refine* → Write convergence sequence that repeats
// assembly of the whole program until every constant stabilizes,
// bounded at ten Query/Refine passes before the final Write pass.
package driver

import (
	"log"
	"os"
	"strings"

	"github.com/k0kubun/pp/v3"

	"bass/arch"
	"bass/common"
	"bass/source"
	"bass/symtab"
	"bass/target"
)

// Driver owns everything that outlives a single pass: the program,
// the symbol store, and the target file. It constructs a fresh
// *arch.Architecture at the start of every pass and drops it at pass
// end, per spec.md §3's "Architecture state" lifetime.
type Driver struct {
	Program   []source.Instruction
	Filenames []string
	Store     *symtab.Store
	Target    *target.File

	ReadArchitecture arch.ReadArchitecture
	TablePath        string

	Strict bool
	Debug  bool

	phase   common.Phase
	current *source.Instruction
}

func New(program []source.Instruction, filenames []string, readArch arch.ReadArchitecture) *Driver {
	return &Driver{
		Program:          program,
		Filenames:        filenames,
		Store:            symtab.NewStore(),
		Target:           target.NewFile(),
		ReadArchitecture: readArch,
	}
}

// Assemble runs the full convergence sequence and returns an error
// only for a fatal, pass-aborting condition (spec.md §7). A
// successful return always means the Write phase executed.
func (d *Driver) Assemble() error {
	d.phase = common.Analyze
	d.debugPhase()
	d.analyze()

	d.phase = common.Query
	d.debugPhase()
	if err := d.runPass(); err != nil {
		return err
	}

	passes := 2
	for ; passes <= 10; passes++ {
		anyChanged, anyUnset := d.inspectConstants()

		if !anyChanged {
			if anyUnset {
				return common.Errorf(common.ConstantNeverDetermined, "failed to determine a constant after %d passes", passes)
			}
			d.forceResolve()
			break
		}

		d.phase = common.Refine
		d.debugPhaseNumbered(passes)
		if err := d.runPass(); err != nil {
			return err
		}
	}

	d.phase = common.Write
	d.debugPhase()
	d.Target.WritePhase = true
	return d.runPass()
}

// analyze makes a first, inert traversal that only registers label
// names as forward declarations, so the first real pass (Query) does
// not treat every label as a brand-new unknown discovered mid-scan.
func (d *Driver) analyze() {
	for i := range d.Program {
		if name, _, ok := splitLabel(d.Program[i].Statement); ok {
			if _, exists := d.Store.Record(name); !exists {
				d.Store.Resolve(name)
			}
		}
	}
}

// inspectConstants runs the per-pass flag transition spec.md §4.5
// describes and reports whether any constant changed or was unset.
func (d *Driver) inspectConstants() (anyChanged, anyUnset bool) {
	for _, name := range d.Store.Names() {
		record, ok := d.Store.Record(name)
		if !ok {
			continue
		}

		switch {
		case !record.Held:
			d.Store.Forget(name)
			anyUnset = true
			continue
		case record.Indeterminate:
			record.Indeterminate = false
			record.Held = false
		case record.Unknown:
			record.Unknown = false
		}

		if record.Changed && record.Held {
			anyChanged = true
		}
		record.Changed = false
	}
	return anyChanged, anyUnset
}

func (d *Driver) forceResolve() {
	for _, name := range d.Store.Names() {
		if record, ok := d.Store.Record(name); ok {
			record.Indeterminate = false
			record.Unknown = false
			record.Held = true
		}
	}
}

// runPass constructs a fresh Architecture, preloads the table, and
// assembles every instruction in order.
func (d *Driver) runPass() error {
	d.Target.BeginPass()
	architecture := arch.NewArchitecture(d.Store, d.Target, d.Strict)

	if d.TablePath != "" && d.ReadArchitecture != nil {
		text, err := d.ReadArchitecture(d.TablePath)
		if err != nil {
			return common.Errorf(common.TargetUnavailable, "unable to read architecture table %q: %v", d.TablePath, err)
		}
		if err := architecture.ParseTable(text, d.ReadArchitecture); err != nil {
			return err
		}
	}

	for i := range d.Program {
		instr := &d.Program[i]
		d.current = instr

		statement := instr.Statement
		if name, rest, ok := splitLabel(statement); ok {
			if err := d.Store.Label(name, architecture.Emit.PC()); err != nil {
				return d.fail(err)
			}
			statement = rest
		}
		if statement == "" {
			continue
		}

		matched, err := architecture.Assemble(statement, d.ReadArchitecture)
		if err != nil {
			if err := d.fail(err); err != nil {
				return err
			}
			continue
		}
		if !matched {
			if err := d.fail(common.Errorf(common.NoMatch, "unrecognized instruction: %s", statement)); err != nil {
				return err
			}
		}

		if d.Debug {
			pp.Fprintf(os.Stderr, "%s:%d:%d: %q -> matched=%v\n",
				d.filename(instr.FileNumber), instr.LineNumber, instr.BlockNumber, statement, matched)
		}
	}

	d.current = nil
	return nil
}

// fail classifies err per spec.md §7: a Warning is reported and
// assembly continues unless Strict promotes it to fatal; any other
// kind unwinds the current pass immediately.
func (d *Driver) fail(err error) error {
	asmErr, ok := err.(*common.AsmError)
	if !ok {
		return err
	}

	// TargetUnavailable is always demoted to a warning regardless of
	// strict mode (spec.md §7 calls this demotion out explicitly).
	if asmErr.Kind == common.TargetUnavailable || (asmErr.Warning && !d.Strict) {
		log.Printf("warning: %s", asmErr.Message)
		d.printInstruction()
		return nil
	}

	log.Printf("error: %s", asmErr.Message)
	d.printInstruction()
	return asmErr
}

func (d *Driver) printInstruction() {
	if d.current == nil {
		return
	}
	log.Printf("  %s:%d:%d: %s", d.filename(d.current.FileNumber), d.current.LineNumber, d.current.BlockNumber, d.current.Statement)
}

func (d *Driver) filename(n int) string {
	if n < 0 || n >= len(d.Filenames) {
		return "<unknown>"
	}
	return d.Filenames[n]
}

func (d *Driver) debugPhase() {
	if !d.Debug {
		return
	}
	log.Printf("================= BEGINNING %s =================", strings.ToUpper(d.phase.String()))
}

func (d *Driver) debugPhaseNumbered(n int) {
	if !d.Debug {
		return
	}
	log.Printf("================= BEGINNING PASS %d (%s) =================", n, strings.ToUpper(d.phase.String()))
}

// splitLabel recognizes a leading "name:" label declaration and
// returns the name and the remaining statement text.
func splitLabel(statement string) (name, rest string, ok bool) {
	idx := strings.IndexByte(statement, ':')
	if idx <= 0 {
		return "", "", false
	}
	candidate := statement[:idx]
	for i := 0; i < len(candidate); i++ {
		c := candidate[i]
		isWord := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9' && i > 0)
		if !isWord {
			return "", "", false
		}
	}
	return candidate, strings.TrimSpace(statement[idx+1:]), true
}
