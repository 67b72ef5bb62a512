// Package errors defines the fixed set of error kinds the mass attacher
// can fail with, and the AttacherError type that carries one of them plus
// enough context (operation, kernel function, detail, cause) for a caller
// to dispatch on errors.Is/As without caring which package produced it.
package errors

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an AttacherError. The orchestrator's phase-ordering
// checks, the filter's glob validation, and every package that reads an
// external source (kallsyms, available_filter_functions, BTF) all report
// through this fixed set rather than ad hoc error values.
type ErrorKind int

const (
	ErrNotFound ErrorKind = iota
	ErrInvalidGlob
	ErrInvalidState
	ErrInvalidConfig
	ErrResourceLimit
	ErrMissingSource
	ErrCloneFailed
	ErrAttachFailed
	ErrInternal
)

// kindNames indexes directly by ErrorKind; String falls back to "unknown
// error" for any value outside this range, including future kinds added
// without a matching entry.
var kindNames = [...]string{
	ErrNotFound:      "not found",
	ErrInvalidGlob:   "invalid glob",
	ErrInvalidState:  "invalid state",
	ErrInvalidConfig: "invalid config",
	ErrResourceLimit: "resource limit",
	ErrMissingSource: "missing source",
	ErrCloneFailed:   "clone failed",
	ErrAttachFailed:  "attach failed",
	ErrInternal:      "internal error",
}

// String returns a human-readable name for the error kind.
func (k ErrorKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown error"
	}
	return kindNames[k]
}

// AttacherError reports a failure tagged with a Kind, the operation that
// was attempted, and optionally the kernel function it concerns and a
// wrapped cause.
type AttacherError struct {
	Op     string
	Func   string
	Err    error
	Kind   ErrorKind
	Detail string
}

// Error renders "function F: op: detail: cause", omitting an empty
// function, op or cause; an empty detail is replaced by the kind's name.
func (e *AttacherError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var msg string
	if e.Func != "" {
		msg = fmt.Sprintf("function %s: ", e.Func)
	}
	if e.Op != "" {
		msg += fmt.Sprintf("%s: ", e.Op)
	}
	if e.Detail != "" {
		msg += e.Detail
	} else {
		msg += e.Kind.String()
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the wrapped cause, if any.
func (e *AttacherError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *AttacherError with the same Kind; this is what lets
// every sentinel in sentinel.go double as a errors.Is() target regardless
// of the Op/Func/Detail/Err it was originally constructed with.
func (e *AttacherError) Is(target error) bool {
	if e == nil {
		return target == nil
	}
	if t, ok := target.(*AttacherError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// option applies an optional field during construction; New and Wrap both
// take the same set so "clone failed for function X" and "clone failed
// with detail Y" share one builder instead of one function per field
// combination.
type option func(*AttacherError)

// WithFunc attaches the kernel function name an error concerns.
func WithFunc(name string) option {
	return func(e *AttacherError) { e.Func = name }
}

// WithDetail attaches free-form detail text, shown instead of the kind's
// default description.
func WithDetail(detail string) option {
	return func(e *AttacherError) { e.Detail = detail }
}

// New builds an AttacherError with no wrapped cause.
func New(kind ErrorKind, op, detail string, opts ...option) *AttacherError {
	e := &AttacherError{Op: op, Kind: kind, Detail: detail}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Wrap builds an AttacherError around an existing error.
func Wrap(err error, kind ErrorKind, op string, opts ...option) *AttacherError {
	e := &AttacherError{Op: op, Kind: kind, Err: err}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WrapWithFunc is Wrap plus WithFunc, kept as its own entry point since
// nearly every clone/attach failure in this codebase names the function
// that failed.
func WrapWithFunc(err error, kind ErrorKind, op, funcName string) *AttacherError {
	return Wrap(err, kind, op, WithFunc(funcName))
}

// WrapWithDetail is Wrap plus WithDetail.
func WrapWithDetail(err error, kind ErrorKind, op, detail string) *AttacherError {
	return Wrap(err, kind, op, WithDetail(detail))
}

// IsKind reports whether err's chain contains an AttacherError of kind.
func IsKind(err error, kind ErrorKind) bool {
	var aerr *AttacherError
	if errors.As(err, &aerr) {
		return aerr.Kind == kind
	}
	return false
}

// GetKind returns the kind of the first AttacherError in err's chain.
func GetKind(err error) (ErrorKind, bool) {
	var aerr *AttacherError
	if errors.As(err, &aerr) {
		return aerr.Kind, true
	}
	return 0, false
}

// Re-exported so callers only need to import one errors package.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)
