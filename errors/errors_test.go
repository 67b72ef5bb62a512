package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind_String(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		expected string
	}{
		{ErrNotFound, "not found"},
		{ErrInvalidGlob, "invalid glob"},
		{ErrInvalidState, "invalid state"},
		{ErrInvalidConfig, "invalid config"},
		{ErrResourceLimit, "resource limit"},
		{ErrMissingSource, "missing source"},
		{ErrCloneFailed, "clone failed"},
		{ErrAttachFailed, "attach failed"},
		{ErrInternal, "internal error"},
		{ErrorKind(999), "unknown error"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("ErrorKind.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAttacherError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AttacherError
		expected string
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: "<nil>",
		},
		{
			name: "full error",
			err: &AttacherError{
				Op:     "prepare",
				Func:   "do_sys_open",
				Kind:   ErrNotFound,
				Detail: "symbol not found",
				Err:    fmt.Errorf("lookup miss"),
			},
			expected: "function do_sys_open: prepare: symbol not found: lookup miss",
		},
		{
			name: "without func",
			err: &AttacherError{
				Op:     "load",
				Kind:   ErrCloneFailed,
				Detail: "clone prototype failed",
			},
			expected: "load: clone prototype failed",
		},
		{
			name: "kind only",
			err: &AttacherError{
				Kind: ErrResourceLimit,
			},
			expected: "resource limit",
		},
		{
			name: "with underlying error",
			err: &AttacherError{
				Op:   "attach",
				Kind: ErrAttachFailed,
				Err:  fmt.Errorf("device busy"),
			},
			expected: "attach: attach failed: device busy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("AttacherError.Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAttacherError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	err := &AttacherError{
		Op:   "test",
		Kind: ErrInternal,
		Err:  underlying,
	}

	if got := err.Unwrap(); got != underlying {
		t.Errorf("Unwrap() = %v, want %v", got, underlying)
	}

	var nilErr *AttacherError
	if got := nilErr.Unwrap(); got != nil {
		t.Errorf("nil.Unwrap() = %v, want nil", got)
	}
}

func TestAttacherError_Is(t *testing.T) {
	err1 := &AttacherError{Kind: ErrNotFound, Op: "test1"}
	err2 := &AttacherError{Kind: ErrNotFound, Op: "test2"}
	err3 := &AttacherError{Kind: ErrResourceLimit, Op: "test3"}

	if !err1.Is(err2) {
		t.Error("err1.Is(err2) should be true (same kind)")
	}

	if err1.Is(err3) {
		t.Error("err1.Is(err3) should be false (different kind)")
	}

	if err1.Is(fmt.Errorf("some error")) {
		t.Error("err1.Is(fmt.Errorf(...)) should be false")
	}

	var nilErr *AttacherError
	if !nilErr.Is(nil) {
		t.Error("nil.Is(nil) should be true")
	}
}

func TestNew(t *testing.T) {
	err := New(ErrInvalidConfig, "validate", "max-func-cnt must be >= 0")

	if err.Kind != ErrInvalidConfig {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrInvalidConfig)
	}
	if err.Op != "validate" {
		t.Errorf("Op = %q, want %q", err.Op, "validate")
	}
	if err.Detail != "max-func-cnt must be >= 0" {
		t.Errorf("Detail = %q, want %q", err.Detail, "max-func-cnt must be >= 0")
	}
}

func TestWrap(t *testing.T) {
	underlying := fmt.Errorf("permission denied")
	err := Wrap(underlying, ErrResourceLimit, "setrlimit")

	if err.Err != underlying {
		t.Error("Wrapped error should preserve underlying error")
	}
	if err.Kind != ErrResourceLimit {
		t.Errorf("Kind = %v, want %v", err.Kind, ErrResourceLimit)
	}
	if err.Op != "setrlimit" {
		t.Errorf("Op = %q, want %q", err.Op, "setrlimit")
	}
}

func TestWrapWithFunc(t *testing.T) {
	underlying := fmt.Errorf("not found")
	err := WrapWithFunc(underlying, ErrNotFound, "load", "do_sys_open")

	if err.Func != "do_sys_open" {
		t.Errorf("Func = %q, want %q", err.Func, "do_sys_open")
	}
}

func TestWrapWithDetail(t *testing.T) {
	underlying := fmt.Errorf("syscall failed")
	err := WrapWithDetail(underlying, ErrAttachFailed, "raw_tracepoint_open", "invalid fd")

	if err.Detail != "invalid fd" {
		t.Errorf("Detail = %q, want %q", err.Detail, "invalid fd")
	}
}

func TestIsKind(t *testing.T) {
	err := &AttacherError{Kind: ErrNotFound}
	wrapped := fmt.Errorf("wrapped: %w", err)

	if !IsKind(err, ErrNotFound) {
		t.Error("IsKind(err, ErrNotFound) should be true")
	}
	if !IsKind(wrapped, ErrNotFound) {
		t.Error("IsKind(wrapped, ErrNotFound) should be true")
	}
	if IsKind(err, ErrResourceLimit) {
		t.Error("IsKind(err, ErrResourceLimit) should be false")
	}
	if IsKind(fmt.Errorf("plain error"), ErrNotFound) {
		t.Error("IsKind(plain error, ErrNotFound) should be false")
	}
}

func TestGetKind(t *testing.T) {
	err := &AttacherError{Kind: ErrCloneFailed}
	wrapped := fmt.Errorf("wrapped: %w", err)

	kind, ok := GetKind(err)
	if !ok || kind != ErrCloneFailed {
		t.Errorf("GetKind(err) = (%v, %v), want (%v, true)", kind, ok, ErrCloneFailed)
	}

	kind, ok = GetKind(wrapped)
	if !ok || kind != ErrCloneFailed {
		t.Errorf("GetKind(wrapped) = (%v, %v), want (%v, true)", kind, ok, ErrCloneFailed)
	}

	_, ok = GetKind(fmt.Errorf("plain error"))
	if ok {
		t.Error("GetKind(plain error) should return false")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  *AttacherError
		kind ErrorKind
	}{
		{"ErrNoMatchingFunctions", ErrNoMatchingFunctions, ErrNotFound},
		{"ErrEmptyGlob", ErrEmptyGlob, ErrInvalidGlob},
		{"ErrInteriorStar", ErrInteriorStar, ErrInvalidGlob},
		{"ErrDoubleStarGlob", ErrDoubleStarGlob, ErrInvalidGlob},
		{"ErrAlreadyPrepared", ErrAlreadyPrepared, ErrInvalidState},
		{"ErrPrepareNotCalled", ErrPrepareNotCalled, ErrInvalidState},
		{"ErrKallsymsUnavailable", ErrKallsymsUnavailable, ErrMissingSource},
		{"ErrBTFUnavailable", ErrBTFUnavailable, ErrMissingSource},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Kind != tt.kind {
				t.Errorf("%s.Kind = %v, want %v", tt.name, tt.err.Kind, tt.kind)
			}
			wrapped := Wrap(fmt.Errorf("underlying"), tt.kind, "test")
			if !errors.Is(wrapped, tt.err) {
				t.Errorf("errors.Is(wrapped, %s) should be true", tt.name)
			}
		})
	}
}

func TestErrorChain(t *testing.T) {
	underlying := fmt.Errorf("kallsyms read failed")
	err1 := Wrap(underlying, ErrMissingSource, "load kallsyms")
	err2 := fmt.Errorf("prepare failed: %w", err1)

	if !errors.Is(err2, ErrKallsymsUnavailable) {
		t.Error("errors.Is should find ErrKallsymsUnavailable in chain")
	}

	var aerr *AttacherError
	if !errors.As(err2, &aerr) {
		t.Error("errors.As should find AttacherError in chain")
	}
	if aerr.Op != "load kallsyms" {
		t.Errorf("aerr.Op = %q, want %q", aerr.Op, "load kallsyms")
	}

	if errors.Unwrap(err1) != underlying {
		t.Error("Unwrap should return underlying error")
	}
}
