package connector

import (
	"errors"
	"fmt"
)

// Code classifies connector errors. UI layers branch on codes, never on
// message text; cancellation in particular is a structured signal so it can
// be suppressed without string matching.
type Code string

const (
	CodeNotConnected        Code = "NOT_CONNECTED"
	CodeWalletNotFound      Code = "WALLET_NOT_FOUND"
	CodeConnectionCancelled Code = "CONNECTION_CANCELLED"
	CodeInvalidAccount      Code = "INVALID_ACCOUNT"
	CodeProviderError       Code = "PROVIDER_ERROR"
	CodeStorageError        Code = "STORAGE_ERROR"
	CodeValidationError     Code = "VALIDATION_ERROR"
)

// Error is a coded connector error, optionally wrapping an underlying
// cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same code, so
// errors.Is(err, ErrCancelled) works regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// Sentinel values for errors.Is matching by code.
var (
	ErrNotConnected   = &Error{Code: CodeNotConnected, Message: "no active wallet session"}
	ErrWalletNotFound = &Error{Code: CodeWalletNotFound, Message: "wallet not found"}
	ErrCancelled      = &Error{Code: CodeConnectionCancelled, Message: "connection cancelled"}
	ErrInvalidAccount = &Error{Code: CodeInvalidAccount, Message: "account not in session"}
)

func newError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func wrapError(code Code, err error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf extracts the code from a connector error, or empty for foreign
// errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
