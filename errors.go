package timelimit

import (
	"errors"
	"fmt"
)

// Kind classifies a module failure.
type Kind int

const (
	// KindConfig covers malformed limits tables, malformed limit
	// expressions and unknown module arguments.
	KindConfig Kind = iota + 1

	// KindSystem covers I/O failures on the state file (open, lock, read,
	// write), privilege failures and failures publishing session data.
	KindSystem

	// KindSession covers missing or inconsistent session context: an absent
	// start time, or a start time in the future.
	KindSession
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindSystem:
		return "system"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Error is a classified module failure. The admission path maps every Error
// to a denial (fail closed); the kind and wrapped cause are for the
// operational log only.
type Error struct {
	Kind Kind
	Op   string // lifecycle phase: check-account, open-session, close-session
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("timelimit: %s: %s error: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the Kind from err, or 0 when err is not a module Error.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return 0
}

func configErr(op string, format string, args ...any) *Error {
	return &Error{Kind: KindConfig, Op: op, Err: fmt.Errorf(format, args...)}
}

func systemErr(op string, format string, args ...any) *Error {
	return &Error{Kind: KindSystem, Op: op, Err: fmt.Errorf(format, args...)}
}

func sessionErr(op string, format string, args ...any) *Error {
	return &Error{Kind: KindSession, Op: op, Err: fmt.Errorf(format, args...)}
}
