package dalloc

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/algorep/dalloc/internal/errs"
)

// ErrCode is the high-level error taxonomy a handler or client call can
// surface. It is an alias for the internal taxonomy internal/node
// reports against, so a *dalloc.Error returned at the client boundary
// carries the same code a handler panicked with.
type ErrCode = errs.Code

const (
	ErrCodeUnknownHandler      = errs.CodeUnknownHandler
	ErrCodeAllocationExhausted = errs.CodeAllocationExhausted
	ErrCodeVidNotFound         = errs.CodeVidNotFound
	ErrCodeIndexOutOfRange     = errs.CodeIndexOutOfRange
	ErrCodeStaleWrite          = errs.CodeStaleWrite
	ErrCodeTransport           = errs.CodeTransport
	ErrCodeWorldAborted        = errs.CodeWorldAborted
)

// Error is a structured allocator error: the operation that failed, its
// category, and an optional wrapped cause.
type Error = errs.Error

// NewError builds a structured error for op/code with the given message.
func NewError(op string, code ErrCode, msg string) *Error {
	return errs.New(op, code, msg)
}

// NewVidError builds a structured error tagged with the vid it concerns.
func NewVidError(op string, code ErrCode, vid fmt.Stringer, msg string) *Error {
	return errs.NewVidError(op, code, vid, msg)
}

// WrapError tags inner with an operation name, preserving its code if it
// is already a structured Error.
func WrapError(op string, inner error) *Error {
	return errs.Wrap(op, inner)
}

// IsCode reports whether err (or any error it wraps) carries code.
func IsCode(err error, code ErrCode) bool {
	return errs.IsCode(err, code)
}

// CombineErrors aggregates zero or more errors, dropping nils, into a
// single hashicorp/go-multierror value. Cluster.Err uses this to
// combine the terminal error (if any) reported by every allocator node.
func CombineErrors(errors ...error) error {
	var result *multierror.Error
	for _, e := range errors {
		if e != nil {
			result = multierror.Append(result, e)
		}
	}
	return result.ErrorOrNil()
}
