package errors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-readable error kind for the transaction
// workflow. Callers branch on codes, never on message text.
type Code int

const (
	CodeSuccess             Code = 0
	CodeInternal            Code = 1
	CodeParse               Code = 2
	CodeValidation          Code = 3
	CodeInsufficientBalance Code = 4
	CodeQuoteUnavailable    Code = 5
	CodeQuoteExpired        Code = 6
	CodeNetwork             Code = 7
	CodeExecution           Code = 8
	CodeCancelled           Code = 9
	CodeNothingPending      Code = 10
	CodeInProgress          Code = 11
	CodeUnsupported         Code = 12
	CodeAuth                Code = 13
	CodeRateLimited         Code = 14
)

func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "success"
	case CodeInternal:
		return "internal"
	case CodeParse:
		return "parse"
	case CodeValidation:
		return "validation"
	case CodeInsufficientBalance:
		return "insufficient_balance"
	case CodeQuoteUnavailable:
		return "quote_unavailable"
	case CodeQuoteExpired:
		return "quote_expired"
	case CodeNetwork:
		return "network"
	case CodeExecution:
		return "execution"
	case CodeCancelled:
		return "cancelled"
	case CodeNothingPending:
		return "nothing_pending"
	case CodeInProgress:
		return "in_progress"
	case CodeUnsupported:
		return "unsupported"
	case CodeAuth:
		return "auth"
	case CodeRateLimited:
		return "rate_limited"
	default:
		return fmt.Sprintf("code_%d", int(c))
	}
}

// Error is a typed engine error that carries a stable code.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code carried by err, or CodeInternal for untyped errors.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	if typed, ok := As(err); ok {
		return typed.Code
	}
	return CodeInternal
}

// IsTransient reports whether err is worth retrying against the same
// dependency. Parse and validation failures are always terminal.
func IsTransient(err error) bool {
	switch CodeOf(err) {
	case CodeNetwork, CodeRateLimited:
		return true
	default:
		return false
	}
}

func ExitCode(err error) int {
	if err == nil {
		return int(CodeSuccess)
	}
	return int(CodeOf(err))
}
