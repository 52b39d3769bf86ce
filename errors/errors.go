package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Op names the public operation that produced an error.
type Op string

const (
	OpInit     Op = "init"
	OpShutdown Op = "shutdown"
	OpCreate   Op = "create"
	OpBind     Op = "bind"
	OpListen   Op = "listen"
	OpAccept   Op = "accept"
	OpConnect  Op = "connect"
	OpClose    Op = "close"
	OpSend     Op = "send"
	OpRecv     Op = "recv"
	OpSendTo   Op = "sendto"
	OpRecvFrom Op = "recvfrom"
	OpParse    Op = "parse"
	OpResize   Op = "resize"
	OpInfo     Op = "info"
	OpTimeout  Op = "timeout"
)

// Code is the numeric result code carried by every Error. The values and
// descriptions are fixed; OK is never carried by a non-nil Error.
type Code int

const (
	OK             Code = 0
	CodeGeneric    Code = -1
	CodeWouldBlock Code = -2
	CodeInvalid    Code = -3
	CodeAddrInUse  Code = -4
	CodeRefused    Code = -5
	CodeTimedOut   Code = -6
)

// String returns the fixed human-readable description for the code.
func (c Code) String() string {
	switch c {
	case OK:
		return "success"
	case CodeGeneric:
		return "generic socket error"
	case CodeWouldBlock:
		return "resource temporarily unavailable"
	case CodeInvalid:
		return "invalid argument"
	case CodeAddrInUse:
		return "address already in use"
	case CodeRefused:
		return "connection refused"
	case CodeTimedOut:
		return "connection timed out"
	default:
		return "unknown error"
	}
}

// Error is the structured error returned by every socket operation.
// The Code travels with the result, so callers never consult a global
// or thread-local error slot.
type Error struct {
	Value  any
	Cause  error
	Op     Op
	Code   Code
	Detail string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Op))
	b.WriteString("] ")
	b.WriteString(e.Code.String())

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Value != nil {
		fmt.Fprintf(&b, " (value: %v)", e.Value)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error: codes must be equal, and
// when target names an op, ops must match too.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Op != "" && t.Op != e.Op {
		return false
	}
	return e.Code == t.Code
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(op Op, code Code) *Builder {
	return &Builder{
		err: Error{
			Op:   op,
			Code: code,
		},
	}
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// Invalid creates an invalid-argument error
func Invalid(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   CodeInvalid,
		Detail: detail,
	}
}

// NotFound creates an invalid-argument error for an unresolvable handle
func NotFound(op Op, handle any) *Error {
	return &Error{
		Op:     op,
		Code:   CodeInvalid,
		Detail: fmt.Sprintf("socket %v not found", handle),
		Value:  handle,
	}
}

// WouldBlock creates a would-block result value
func WouldBlock(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   CodeWouldBlock,
		Detail: detail,
	}
}

// AddrInUse creates an address-conflict error
func AddrInUse(op Op, addr any) *Error {
	return &Error{
		Op:    op,
		Code:  CodeAddrInUse,
		Value: addr,
	}
}

// Refused creates a connection-refused error
func Refused(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   CodeRefused,
		Detail: detail,
	}
}

// TimedOut creates a timeout error
func TimedOut(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   CodeTimedOut,
		Detail: detail,
	}
}

// Generic creates a generic socket error
func Generic(op Op, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   CodeGeneric,
		Detail: detail,
	}
}

// Wrap wraps an existing error with an operation and code
func Wrap(op Op, code Code, cause error, detail string) *Error {
	return &Error{
		Op:     op,
		Code:   code,
		Detail: detail,
		Cause:  cause,
	}
}

// CodeOf extracts the code embedded in err. A nil error is OK; an error
// from outside this package maps to CodeGeneric.
func CodeOf(err error) Code {
	if err == nil {
		return OK
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return CodeGeneric
}

// IsCode reports whether err carries the given code.
func IsCode(err error, c Code) bool {
	return CodeOf(err) == c
}

// IsWouldBlock reports whether err is the would-block result value,
// the "no data / no space right now" condition distinct from failure.
func IsWouldBlock(err error) bool {
	return IsCode(err, CodeWouldBlock)
}
