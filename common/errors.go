// Package common holds the contracts and error taxonomy shared by every
// bass package: the core never imports target, symtab, or eval directly,
// only the interfaces declared here.
package common

import "fmt"

// Kind tags the unrecoverable-within-a-statement error taxonomy.
type Kind int

const (
	SyntaxError Kind = iota
	NoMatch
	BranchOutOfBounds
	OverwriteDetected
	InvalidWidthForSwap
	TargetUnavailable
	ConstantNeverDetermined
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case NoMatch:
		return "unrecognized instruction"
	case BranchOutOfBounds:
		return "branch out of bounds"
	case OverwriteDetected:
		return "overwrite detected"
	case InvalidWidthForSwap:
		return "invalid width for swap"
	case TargetUnavailable:
		return "target unavailable"
	case ConstantNeverDetermined:
		return "constant never determined"
	default:
		return "unknown error"
	}
}

// AsmError is the single error type every core package returns. Warning
// errors are reported and assembly continues unless running in strict
// mode, where they are promoted to fatal; TargetUnavailable is always a
// warning regardless of strict mode.
type AsmError struct {
	Kind    Kind
	Message string
	Warning bool
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func Errorf(kind Kind, format string, args ...any) *AsmError {
	return &AsmError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Warnf(kind Kind, format string, args ...any) *AsmError {
	return &AsmError{Kind: kind, Message: fmt.Sprintf(format, args...), Warning: true}
}
