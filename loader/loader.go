// Package loader implements the program-loader contract named in §6:
// loading the template collection (after the mux package has captured the
// prototypes' bytecode and removed them from the spec), cloning
// per-function programs from captured bytecode, and opening the resulting
// attachment.
package loader

import (
	"massattach/errors"
	"massattach/template"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/btf"
	"github.com/cilium/ebpf/link"
)

// Load instantiates a template's collection spec in the kernel. The
// multiplexer must have already armed and, where arities are unused,
// disabled programs on the spec before calling this.
func Load(asset *template.Asset) (*template.Instance, error) {
	coll, err := ebpf.NewCollection(asset.Spec())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCloneFailed, "load template collection")
	}
	return template.NewInstance(coll), nil
}

// Clone loads a fresh program sharing progType, attachType, name, and
// license with its prototype, using bytecode captured by the multiplexer
// during the arm/intercept step, but targeting one specific kernel
// function identified by attachTargetID.
//
// This is the core of §4.8's clone step: within an arity bucket the
// bytecode is identical across every target function, and only the
// attach target changes per clone.
func Clone(
	progType ebpf.ProgramType,
	attachType ebpf.AttachType,
	name string,
	insns asm.Instructions,
	license string,
	attachTargetID btf.TypeID,
) (*ebpf.Program, error) {
	spec := &ebpf.ProgramSpec{
		Name:         name,
		Type:         progType,
		AttachType:   attachType,
		License:      license,
		Instructions: insns,
		AttachTo:     "",
	}

	prog, err := ebpf.NewProgramWithOptions(spec, ebpf.ProgramOptions{
		KernelTypeID: attachTargetID,
	})
	if err != nil {
		return nil, errors.WrapWithFunc(err, errors.ErrCloneFailed, "clone program", name)
	}
	return prog, nil
}

// RawTracepointOpen opens a raw-tracepoint style attachment on a cloned
// fentry/fexit program. cilium/ebpf's tracing link type is the concrete
// mechanism backing the §6 contract's raw_tracepoint_open name.
func RawTracepointOpen(prog *ebpf.Program) (link.Link, error) {
	l, err := link.AttachTracing(link.TracingOptions{Program: prog})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrAttachFailed, "open raw tracepoint")
	}
	return l, nil
}
