// Package abi implements the ABI compatibility check that decides whether
// a kernel function's prototype can be traced by fentry/fexit programs.
package abi

import (
	"massattach/btfview"

	"github.com/cilium/ebpf/btf"
)

// MaxArgs is the largest argument count the tracer ABI supports.
const MaxArgs = 11

// Check decides whether fn's prototype is traceable. It returns the
// function's argument count alongside the verdict so callers don't need a
// second pass over fn.Params.
//
// Functions declared to return void are rejected. This preserves the
// original tool's behavior for compatibility even though the underlying
// tracer could support void-returning functions; it remains an open
// question whether a future option should allow it.
func Check(fn btfview.FuncInfo) (ok bool, argCount int) {
	argCount = fn.ArgCount()
	if argCount > MaxArgs {
		return false, argCount
	}

	if fn.ReturnType == nil {
		return false, argCount
	}
	if !returnTypeOK(fn.ReturnType) {
		return false, argCount
	}

	for _, p := range fn.Params {
		if p == nil {
			// vararg parameter: the kernel represents it as a type-less param.
			return false, argCount
		}
		if !argTypeOK(p) {
			return false, argCount
		}
	}

	return true, argCount
}

func returnTypeOK(t btf.Type) bool {
	kind, resolved, ok := btfview.Classify(t)
	if !ok {
		return false
	}

	switch kind {
	case btfview.KindInt, btfview.KindEnum:
		return true
	case btfview.KindPointer:
		ptr := resolved.(*btf.Pointer)
		return pointerTargetOK(ptr.Target)
	default:
		return false
	}
}

// pointerTargetOK allows pointer-to-void and pointer-to-struct/union return
// types, rejecting pointers to anything else.
func pointerTargetOK(target btf.Type) bool {
	if _, isVoid := target.(*btf.Void); isVoid {
		return true
	}

	kind, _, ok := btfview.Classify(target)
	if !ok {
		return false
	}
	return kind == btfview.KindComposite
}

func argTypeOK(t btf.Type) bool {
	kind, _, ok := btfview.Classify(t)
	if !ok {
		return false
	}

	switch kind {
	case btfview.KindInt, btfview.KindPointer, btfview.KindEnum:
		return true
	default:
		return false
	}
}
