// Package errs implements colpress's kinded-error taxonomy (spec.md §7):
// every public entry point returns an error tagged with one of a fixed set
// of Kinds, chained to its underlying cause the way grailbio/base/errors
// tags a wrapped error with an operation and a Kind rather than letting
// callers grep error strings. The chain-of-context formatting itself
// reuses github.com/pkg/errors, already the teacher's own idiom for
// wrapping (pamreader.go, pamwriter.go); Kind is colpress's addition since
// spec.md's six kinds don't correspond to any generic kind enum in the
// examples.
package errs

import (
	"errors"
	"fmt"

	pkgerrors "github.com/pkg/errors"
)

// Kind classifies why an operation failed, independent of where. Recovery
// policy (spec.md §7) dispatches on Kind, never on error text.
type Kind int

const (
	Other Kind = iota
	// InvalidArgument: caller passed an inconsistent DType, an
	// out-of-bounds index, a wrong-length mask, a duplicate struct
	// field, etc.
	InvalidArgument
	// InvalidSerde: malformed on-disk bytes — bad magic, unknown
	// encoding id, buffer count mismatch, flatbuffer parse failure.
	InvalidSerde
	// MismatchedTypes: an operation expected DType X and got Y.
	MismatchedTypes
	// ComputeError: arithmetic overflow in a non-wrapping context,
	// cast loss, an unsatisfiable search.
	ComputeError
	// OutOfBounds: an index or slice range outside the logical range.
	OutOfBounds
	// IoError: the underlying reader/writer failed.
	IoError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "InvalidArgument"
	case InvalidSerde:
		return "InvalidSerde"
	case MismatchedTypes:
		return "MismatchedTypes"
	case ComputeError:
		return "ComputeError"
	case OutOfBounds:
		return "OutOfBounds"
	case IoError:
		return "IoError"
	default:
		return "Other"
	}
}

// Error pairs a Kind with the wrapped cause, so a caller can recover by
// Kind (errs.Is) while a human still sees the full context chain.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a Kind-tagged error from a format string, the same call
// shape as fmt.Errorf.
func New(kind Kind, format string, args ...interface{}) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind and a chain-of-context message, via
// github.com/pkg/errors so %+v still prints a full stack-annotated chain.
func Wrap(kind Kind, err error, op string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: pkgerrors.Wrap(err, op)}
}

// Wrapf is Wrap with a formatted op.
func Wrapf(kind Kind, err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(kind, err, fmt.Sprintf(format, args...))
}

// Is reports whether err's chain contains an *Error tagged with kind.
func Is(kind Kind, err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns err's Kind, or Other if err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Other
}
