// Package btfview iterates the kernel's BTF (BPF Type Format) database and
// exposes function prototypes for the ABI compatibility check and attach
// planner. It is a thin, read-only wrapper around
// github.com/cilium/ebpf/btf.
package btfview

import (
	"massattach/errors"

	"github.com/cilium/ebpf/btf"
)

// MaxStripDepth bounds how many modifier/typedef hops Underlying will
// follow before giving up, guarding against cyclic type-db references.
const MaxStripDepth = 32

// FuncInfo describes one kernel function entry found in the BTF database.
type FuncInfo struct {
	ID         btf.TypeID
	Name       string
	ReturnType btf.Type
	Params     []btf.Type
}

// ArgCount returns the number of formal parameters.
func (f FuncInfo) ArgCount() int {
	return len(f.Params)
}

// View is an iterable, read-only handle onto the kernel's BTF database.
type View struct {
	spec *btf.Spec
}

// Load loads the running kernel's BTF database.
func Load() (*View, error) {
	spec, err := btf.LoadKernelSpec()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMissingSource, "load vmlinux BTF")
	}
	return &View{spec: spec}, nil
}

// Spec returns the underlying cilium/ebpf BTF spec, for callers (the
// program multiplexer, the ABI checker) that need to resolve attach-target
// type IDs or follow type references directly.
func (v *View) Spec() *btf.Spec {
	return v.spec
}

// Each calls fn once per function type found in the database, in ascending
// type-ID order, until fn returns false or the database is exhausted.
func (v *View) Each(fn func(FuncInfo) bool) error {
	it := v.spec.Iterate()
	for it.Next() {
		fnType, ok := it.Type.(*btf.Func)
		if !ok {
			continue
		}
		proto, ok := fnType.Type.(*btf.FuncProto)
		if !ok {
			continue
		}

		params := make([]btf.Type, len(proto.Params))
		for i, p := range proto.Params {
			params[i] = p.Type
		}

		info := FuncInfo{
			ID:         fnType.TypeID,
			Name:       fnType.Name,
			ReturnType: proto.Return,
			Params:     params,
		}
		if !fn(info) {
			break
		}
	}
	return it.Err()
}

// Underlying strips Typedef/Volatile/Const/Restrict modifiers from t,
// returning the first non-modifier type reached. ok is false if the chain
// exceeds MaxStripDepth, which callers must treat as "not acceptable" per
// the ABI check's cyclic-reference guard.
func Underlying(t btf.Type) (resolved btf.Type, ok bool) {
	for i := 0; i < MaxStripDepth; i++ {
		switch v := t.(type) {
		case *btf.Typedef:
			t = v.Type
		case *btf.Volatile:
			t = v.Type
		case *btf.Const:
			t = v.Type
		case *btf.Restrict:
			t = v.Type
		default:
			return t, true
		}
	}
	return nil, false
}

// Kind classifies a (presumed already-stripped) BTF type.
type Kind int

const (
	KindUnknown Kind = iota
	KindVoid
	KindInt
	KindEnum
	KindPointer
	KindComposite // struct or union
)

// Classify strips modifiers from t and classifies the result.
func Classify(t btf.Type) (Kind, btf.Type, bool) {
	resolved, ok := Underlying(t)
	if !ok {
		return KindUnknown, nil, false
	}

	switch resolved.(type) {
	case *btf.Void:
		return KindVoid, resolved, true
	case *btf.Int:
		return KindInt, resolved, true
	case *btf.Enum:
		return KindEnum, resolved, true
	case *btf.Pointer:
		return KindPointer, resolved, true
	case *btf.Struct, *btf.Union:
		return KindComposite, resolved, true
	default:
		return KindUnknown, resolved, true
	}
}
