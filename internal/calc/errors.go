package calc

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedExpression matches every structural failure: unbalanced
	// parentheses, dangling operators, empty input and malformed literals.
	ErrMalformedExpression = errors.New("malformed expression")
	// ErrDivisionByZero matches a division whose right operand is exactly 0.
	ErrDivisionByZero = errors.New("division by zero")
)

// Kind classifies an evaluation failure.
type Kind int

const (
	KindMalformed Kind = iota
	KindDivisionByZero
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindMalformed:
		return "MalformedExpression"
	case KindDivisionByZero:
		return "DivisionByZero"
	default:
		return "Unknown"
	}
}

// Error is the failure returned by Evaluate. Pos is a byte offset into the
// sanitized formula, or -1 when the failure is not tied to a position.
type Error struct {
	Kind Kind
	Pos  int
	Msg  string
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%s at %d: %s", e.sentinel().Error(), e.Pos, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.sentinel().Error(), e.Msg)
}

// Is lets errors.Is match the package sentinels.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

func (e *Error) sentinel() error {
	if e.Kind == KindDivisionByZero {
		return ErrDivisionByZero
	}
	return ErrMalformedExpression
}

func malformed(pos int, format string, args ...interface{}) *Error {
	return &Error{Kind: KindMalformed, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// KindOf reports the failure kind of err and whether err is an evaluation error.
func KindOf(err error) (Kind, bool) {
	var evalErr *Error
	if errors.As(err, &evalErr) {
		return evalErr.Kind, true
	}
	return 0, false
}
