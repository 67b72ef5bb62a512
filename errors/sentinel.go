// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Glob and filter errors.
var (
	// ErrEmptyGlob indicates an empty or nil glob pattern was supplied.
	ErrEmptyGlob = &AttacherError{
		Kind:   ErrInvalidGlob,
		Detail: "glob pattern is empty",
	}

	// ErrInteriorStar indicates '*' appeared somewhere other than the
	// first or last position of a glob pattern.
	ErrInteriorStar = &AttacherError{
		Kind:   ErrInvalidGlob,
		Detail: "'*' allowed only at the beginning or end of a glob",
	}

	// ErrDoubleStarGlob indicates the literal pattern "**" was supplied.
	ErrDoubleStarGlob = &AttacherError{
		Kind:   ErrInvalidGlob,
		Detail: "'**' is not a supported glob",
	}
)

// Phase-ordering errors.
var (
	// ErrAlreadyPrepared indicates allow/deny rules were added after prepare().
	ErrAlreadyPrepared = &AttacherError{
		Kind:   ErrInvalidState,
		Detail: "rules can only be added before prepare",
	}

	// ErrPrepareNotCalled indicates load() was called before prepare() succeeded.
	ErrPrepareNotCalled = &AttacherError{
		Kind:   ErrInvalidState,
		Detail: "prepare must succeed before load",
	}

	// ErrLoadNotCalled indicates attach() was called before load() succeeded.
	ErrLoadNotCalled = &AttacherError{
		Kind:   ErrInvalidState,
		Detail: "load must succeed before attach",
	}

	// ErrAttachNotCalled indicates activate() was called before attach() succeeded.
	ErrAttachNotCalled = &AttacherError{
		Kind:   ErrInvalidState,
		Detail: "attach must succeed before activate",
	}
)

// Source and planning errors.
var (
	// ErrNoMatchingFunctions indicates the attach plan ended up empty.
	ErrNoMatchingFunctions = &AttacherError{
		Kind:   ErrNotFound,
		Detail: "no matching functions found",
	}

	// ErrKallsymsUnavailable indicates /proc/kallsyms could not be read.
	ErrKallsymsUnavailable = &AttacherError{
		Kind:   ErrMissingSource,
		Detail: "failed to read kernel symbol table",
	}

	// ErrTraceableListUnavailable indicates available_filter_functions
	// could not be read.
	ErrTraceableListUnavailable = &AttacherError{
		Kind:   ErrMissingSource,
		Detail: "failed to read list of available kprobes",
	}

	// ErrBTFUnavailable indicates the kernel BTF could not be loaded.
	ErrBTFUnavailable = &AttacherError{
		Kind:   ErrMissingSource,
		Detail: "failed to load vmlinux BTF",
	}
)
