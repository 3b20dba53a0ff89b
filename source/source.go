// Package source implements the statement loader: reading one or
// more source files, stripping comments, splitting into ';'-delimited
// statements, and expanding "include "<path>"" recursively (spec §6).
package source

import (
	"log"
	"os"
	"path/filepath"
	"strings"

	"bass/common"
)

// Instruction is a source statement tagged with its origin, as
// spec.md §3 describes: immutable once the loader produces it.
type Instruction struct {
	Statement   string
	FileNumber  int
	LineNumber  int
	BlockNumber int
}

type loader struct {
	filenames []string
	fileIndex map[string]int
	visiting  map[string]bool
	program   []Instruction
}

// Load reads every path in order, appending their statements to one
// flat program and returning the ordered list of filenames indexed by
// each Instruction's FileNumber.
func Load(paths []string) ([]Instruction, []string, error) {
	l := &loader{
		fileIndex: make(map[string]int),
		visiting:  make(map[string]bool),
	}
	for _, path := range paths {
		if err := l.loadOrWarn(path); err != nil {
			return nil, nil, err
		}
	}
	return l.program, l.filenames, nil
}

// loadOrWarn loads path, demoting a Warning-flagged error (a missing
// file) to a logged message and skipping that file rather than
// aborting the whole load, matching core.cpp's warn-and-skip-file
// behavior. Any other error still aborts.
func (l *loader) loadOrWarn(path string) error {
	err := l.loadFile(path)
	if asmErr, ok := err.(*common.AsmError); ok && asmErr.Warning {
		log.Printf("warning: %s", asmErr.Message)
		return nil
	}
	return err
}

func (l *loader) loadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if l.visiting[abs] {
		return common.Errorf(common.SyntaxError, "circular include of %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return common.Warnf(common.TargetUnavailable, "source file not found: %s", path)
	}

	l.visiting[abs] = true
	defer delete(l.visiting, abs)

	fileNumber, ok := l.fileIndex[path]
	if !ok {
		fileNumber = len(l.filenames)
		l.filenames = append(l.filenames, path)
		l.fileIndex[path] = fileNumber
	}

	text := strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\r':
			return ' '
		}
		return r
	}, string(data))

	dir := filepath.Dir(path)
	for lineIdx, line := range strings.Split(text, "\n") {
		if idx := qfind(line, "//"); idx >= 0 {
			line = line[:idx]
		}

		for blockIdx, block := range qsplit(line, ";") {
			statement := strings.TrimSpace(block)
			if statement == "" {
				continue
			}

			if included, ok := includePath(statement); ok {
				resolved := included
				if !filepath.IsAbs(resolved) {
					resolved = filepath.Join(dir, included)
				}
				if err := l.loadOrWarn(resolved); err != nil {
					return err
				}
				continue
			}

			l.program = append(l.program, Instruction{
				Statement:   statement,
				FileNumber:  fileNumber,
				LineNumber:  lineIdx + 1,
				BlockNumber: blockIdx + 1,
			})
		}
	}
	return nil
}

// qfind returns the index of sep's first occurrence in s that falls
// outside any double-quoted span, or -1 if there is none. Quoting is
// not escape-aware, matching nall's qfind: a '"' always toggles the
// quoted state.
func qfind(s, sep string) int {
	inQuotes := false
	for i := 0; i+len(sep) <= len(s); i++ {
		if s[i] == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes && s[i:i+len(sep)] == sep {
			return i
		}
	}
	return -1
}

// qsplit splits s on every occurrence of sep that falls outside a
// double-quoted span, matching nall's qsplit. A ';' inside
// "..." (as in instrument "nop; $ea") is not a statement boundary.
func qsplit(s, sep string) []string {
	var parts []string
	for {
		idx := qfind(s, sep)
		if idx < 0 {
			return append(parts, s)
		}
		parts = append(parts, s[:idx])
		s = s[idx+len(sep):]
	}
}

func includePath(statement string) (string, bool) {
	const prefix = `include "`
	if !strings.HasPrefix(statement, prefix) || !strings.HasSuffix(statement, `"`) {
		return "", false
	}
	return statement[len(prefix) : len(statement)-1], true
}
