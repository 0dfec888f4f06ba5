// Package errs carries the error taxonomy shared by every territory component.
//
// Every failure is an *Error with a machine-readable Code. Callers match on the
// sentinels with errors.Is; the Op and Msg fields are for humans and logs.
package errs

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeNotAMember        Code = "E_NOT_A_MEMBER"
	CodeInvalidState      Code = "E_INVALID_STATE"
	CodeInsufficientFunds Code = "E_INSUFFICIENT_FUNDS"
	CodeQueryFailed       Code = "E_QUERY_FAILED"
	CodeDisbanded         Code = "E_DISBANDED"
	CodeValidation        Code = "E_VALIDATION"
)

var knownCodes = map[Code]struct{}{
	CodeNotAMember:        {},
	CodeInvalidState:      {},
	CodeInsufficientFunds: {},
	CodeQueryFailed:       {},
	CodeDisbanded:         {},
	CodeValidation:        {},
}

func IsKnownCode(code Code) bool {
	_, ok := knownCodes[code]
	return ok
}

type Error struct {
	Code Code
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := string(e.Code)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error carrying the same code, so the package sentinels work
// with errors.Is regardless of Op/Msg.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return e.Code == t.Code
}

var (
	ErrNotAMember        = &Error{Code: CodeNotAMember}
	ErrInvalidState      = &Error{Code: CodeInvalidState}
	ErrInsufficientFunds = &Error{Code: CodeInsufficientFunds}
	ErrQueryFailed       = &Error{Code: CodeQueryFailed}
	ErrDisbanded         = &Error{Code: CodeDisbanded}
	ErrValidation        = &Error{Code: CodeValidation}
)

func newf(code Code, op, format string, args ...any) error {
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	return &Error{Code: code, Op: op, Msg: msg}
}

func NotAMember(op, format string, args ...any) error {
	return newf(CodeNotAMember, op, format, args...)
}

func InvalidState(op, format string, args ...any) error {
	return newf(CodeInvalidState, op, format, args...)
}

func InsufficientFunds(op, format string, args ...any) error {
	return newf(CodeInsufficientFunds, op, format, args...)
}

func Validation(op, format string, args ...any) error {
	return newf(CodeValidation, op, format, args...)
}

func Disbanded(op string) error {
	return &Error{Code: CodeDisbanded, Op: op, Msg: "territory has been disbanded"}
}

// QueryFailed wraps a failure of an external collaborator (scanner, entity
// counter, persistence). A cause that already is a QueryFailed error is
// returned unchanged.
func QueryFailed(op string, cause error) error {
	if cause == nil {
		return nil
	}
	if errors.Is(cause, ErrQueryFailed) {
		return cause
	}
	return &Error{Code: CodeQueryFailed, Op: op, Err: cause}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e.Code
	}
	return ""
}
