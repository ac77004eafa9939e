package tdf

import (
	"errors"
	"fmt"
)

// ErrorCode classifies codec failures.
type ErrorCode int

const (
	// ErrTruncated indicates the input ended before a header, length or body
	// was fully read. The stream is no longer aligned and cannot be resumed.
	ErrTruncated ErrorCode = iota + 1

	// ErrInvalidEncoding indicates well-framed bytes with an invalid payload,
	// such as a string that is not UTF-8 or is missing its terminator.
	ErrInvalidEncoding

	// ErrStructural indicates a value of the wrong shape: a missing label,
	// a type mismatch when projecting a value, or an inconsistent composite
	// (union discriminant vs payload, map keys vs values).
	ErrStructural

	// ErrUnknownType indicates a type byte outside the known tag set.
	ErrUnknownType

	// ErrLimitExceeded indicates a configured bound was hit (nesting depth,
	// VarInt width, content size).
	ErrLimitExceeded
)

// String returns the metric-friendly name of the code.
func (c ErrorCode) String() string {
	switch c {
	case ErrTruncated:
		return "truncated"
	case ErrInvalidEncoding:
		return "invalid_encoding"
	case ErrStructural:
		return "structural"
	case ErrUnknownType:
		return "unknown_type"
	case ErrLimitExceeded:
		return "limit_exceeded"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Error is the error type returned by every codec operation.
type Error struct {
	Code    ErrorCode
	Message string

	// Label is the label of the innermost labeled value being processed
	// when the failure happened, if any.
	Label string

	// Err is the underlying cause (usually an io error), may be nil.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("tdf %s: %s", e.Code, e.Message)
	if e.Label != "" {
		msg += fmt.Sprintf(" (label: %s)", e.Label)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so callers can write
// errors.Is(err, &tdf.Error{Code: tdf.ErrTruncated}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// NewError creates an Error with a formatted message.
func NewError(code ErrorCode, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// CodeOf returns the ErrorCode carried by err, or 0 if err is not a codec error.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// IsCode reports whether err is a codec error with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// withLabel attaches label to a codec error that does not carry one yet.
// Inner labels win, so the reported label is the deepest value that failed.
func withLabel(err error, label string) error {
	var e *Error
	if errors.As(err, &e) && e.Label == "" {
		e.Label = label
	}
	return err
}
