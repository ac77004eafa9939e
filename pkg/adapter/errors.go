package adapter

import "fmt"

// ProtocolError is a failure that is reported to the client in the error
// field of a reply rather than by closing the connection.
//
// Handlers return a ProtocolError to request an error reply. Unwrap exposes
// the underlying cause so errors.Is still matches it.
type ProtocolError interface {
	error

	// Code is the wire error code.
	Code() uint16

	// Message is a human-readable description used in logs.
	Message() string

	Unwrap() error
}

type protocolError struct {
	code uint16
	msg  string
	err  error
}

// NewProtocolError returns a ProtocolError with the given code.
func NewProtocolError(code uint16, cause error, format string, args ...any) ProtocolError {
	return &protocolError{code: code, msg: fmt.Sprintf(format, args...), err: cause}
}

func (e *protocolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("protocol error 0x%04x: %s: %v", e.code, e.msg, e.err)
	}
	return fmt.Sprintf("protocol error 0x%04x: %s", e.code, e.msg)
}

func (e *protocolError) Code() uint16    { return e.code }
func (e *protocolError) Message() string { return e.msg }
func (e *protocolError) Unwrap() error   { return e.err }
