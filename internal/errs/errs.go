// Package errs defines the structured error taxonomy shared by the
// allocator's internal handlers and its public client API. It lives
// below internal/node in the dependency graph so node can report a
// structured cause without importing the root package.
package errs

import (
	"errors"
	"fmt"
)

// Code is the high-level error taxonomy a handler or client call can
// surface.
type Code string

const (
	CodeUnknownHandler      Code = "unknown handler"
	CodeAllocationExhausted Code = "allocation exhausted"
	CodeVidNotFound         Code = "vid not found"
	CodeIndexOutOfRange     Code = "index out of range"
	CodeStaleWrite          Code = "stale write"
	CodeTransport           Code = "transport"
	CodeWorldAborted        Code = "world aborted"
)

// Error is a structured allocator error: the operation that failed, its
// category, and an optional wrapped cause.
type Error struct {
	Op    string
	Code  Code
	Vid   string
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Vid != "" {
		return fmt.Sprintf("dalloc: %s: %s (vid=%s)", e.Op, msg, e.Vid)
	}
	return fmt.Sprintf("dalloc: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// New builds a structured error for op/code with the given message.
func New(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// NewVidError builds a structured error tagged with the vid it concerns.
func NewVidError(op string, code Code, vid fmt.Stringer, msg string) *Error {
	return &Error{Op: op, Code: code, Vid: vid.String(), Msg: msg}
}

// Wrap tags inner with an operation name, preserving its code if it is
// already a structured Error.
func Wrap(op string, inner error) *Error {
	if inner == nil {
		return nil
	}
	if e, ok := inner.(*Error); ok {
		return &Error{Op: op, Code: e.Code, Vid: e.Vid, Msg: e.Msg, Inner: e.Inner}
	}
	return &Error{Op: op, Code: CodeTransport, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err (or any error it wraps) carries code.
func IsCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}
