package failure

import (
	"errors"
	"fmt"
)

// Kind names a failure category.
type Kind int

const (
	// Input covers malformed tags, ranges, flags and missing or unreadable files.
	Input Kind = iota + 1
	// Contract covers oracle output that is not valid, complete JSON of the
	// expected shape, including invented or omitted change ids.
	Contract
	// Rule covers oracle output that is well formed but breaks release policy.
	Rule
	// Integrity covers published artifacts that no longer match their manifest.
	Integrity
)

func (k Kind) String() string {
	switch k {
	case Input:
		return "invalid input"
	case Contract:
		return "oracle contract violation"
	case Rule:
		return "rule violation"
	case Integrity:
		return "integrity check failed"
	default:
		return "error"
	}
}

// Error is a classified failure.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Kind.String() + ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Inputf returns an Input failure.
func Inputf(format string, args ...any) error { return newf(Input, format, args...) }

// Contractf returns a Contract failure.
func Contractf(format string, args ...any) error { return newf(Contract, format, args...) }

// Rulef returns a Rule failure.
func Rulef(format string, args ...any) error { return newf(Rule, format, args...) }

// Integrityf returns an Integrity failure.
func Integrityf(format string, args ...any) error { return newf(Integrity, format, args...) }

// Wrap classifies err under kind with a message. A nil err yields nil.
func Wrap(kind Kind, err error, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of the first classified failure in err's chain, or
// zero when err is unclassified.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err carries a failure of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
