// Package mux implements the program multiplexer (§4.8): it arms the
// template's 24 prototype programs against one representative target per
// arity, captures their finalized bytecode, and clones one program pair
// per accepted attach entry from that captured bytecode.
//
// The object file's prototype programs already carry fully relocated
// bytecode once massattach/template loads their CollectionSpec, so the
// "prep hook" the original tool installs at load time to intercept
// in-kernel relocation has no counterpart here: bytecode capture happens
// by reading ProgramSpec.Instructions directly from the armed spec, before
// any prototype program is ever submitted to the kernel. The prototype
// programs are then deleted from the spec rather than loaded and aborted,
// since cilium/ebpf only submits programs present in the collection.
package mux

import (
	"log/slog"

	"massattach/errors"
	"massattach/loader"
	"massattach/plan"
	"massattach/template"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
)

// Multiplexer arms a template against a plan's arity buckets and clones
// per-function programs from the captured bytecode.
type Multiplexer struct {
	plan  *plan.Plan
	asset *template.Asset
}

// New returns a Multiplexer ready to arm asset against p.
func New(p *plan.Plan, asset *template.Asset) *Multiplexer {
	return &Multiplexer{plan: p, asset: asset}
}

// Arm implements §4.8 step 1 (arm) and step 2 (intercept), collapsed: for
// every arity with at least one accepted function, it points the
// prototype's AttachTo at the arity's first entry (the sole attach target
// that makes the prototype verifiable), captures its instructions into
// the bucket, and removes the prototype from the spec so it is never
// itself submitted to the kernel. Arities with zero accepted functions
// have their prototypes removed without capturing anything. When debug is
// true, the prototype programs are left in the spec so their verifier
// output can be inspected during Load, matching the original debug-mode
// escape hatch.
func (m *Multiplexer) Arm(debug bool) error {
	for k := 0; k <= plan.MaxArgs; k++ {
		bucket := m.plan.Bucket(uint8(k))
		entryName := template.EntryProgramName(k)
		exitName := template.ExitProgramName(k)

		if bucket.Count == 0 {
			m.asset.DisableProgram(entryName)
			m.asset.DisableProgram(exitName)
			continue
		}

		first := m.plan.Entry(int(*bucket.FirstIndex))
		if first == nil {
			return errors.New(errors.ErrInternal, "arm multiplexer", "bucket first_index has no entry")
		}

		entrySpec := m.asset.EntryProgramSpec(k)
		exitSpec := m.asset.ExitProgramSpec(k)
		if entrySpec == nil || exitSpec == nil {
			return errors.New(errors.ErrInternal, "arm multiplexer", "prototype program missing for armed arity")
		}

		entrySpec.AttachTo = first.Name
		exitSpec.AttachTo = first.Name

		bucket.SetInsns(copyInsns(entrySpec.Instructions), copyInsns(exitSpec.Instructions))

		if !debug {
			m.asset.DisableProgram(entryName)
			m.asset.DisableProgram(exitName)
		}
	}
	return nil
}

// copyInsns deep-copies insns so later mutation of the template's own
// spec (or its eventual garbage collection) cannot alter a bucket's
// already-captured bytecode.
func copyInsns(insns asm.Instructions) asm.Instructions {
	out := make(asm.Instructions, len(insns))
	copy(out, insns)
	return out
}

// Clone implements §4.8 step 3: for every attach entry, clone fresh entry
// and exit programs from the arity bucket's captured bytecode, targeting
// the entry's own type id. A clone failure is fatal for the whole load
// per §7; the first failure aborts and is returned wrapped with the
// function name that failed.
func (m *Multiplexer) Clone(progType ebpf.ProgramType, entryAttachType, exitAttachType ebpf.AttachType, license string, log *slog.Logger) error {
	for _, e := range m.plan.Entries() {
		bucket := m.plan.Bucket(e.ArgCount)

		fentry, err := loader.Clone(progType, entryAttachType, template.EntryProgramName(int(e.ArgCount)), bucket.EntryInsns, license, e.TypeID)
		if err != nil {
			log.Error("clone entry program failed", "func", e.Name, "error", err)
			return errors.WrapWithFunc(err, errors.ErrCloneFailed, "clone entry program", e.Name)
		}

		fexit, err := loader.Clone(progType, exitAttachType, template.ExitProgramName(int(e.ArgCount)), bucket.ExitInsns, license, e.TypeID)
		if err != nil {
			log.Error("clone exit program failed", "func", e.Name, "error", err)
			return errors.WrapWithFunc(err, errors.ErrCloneFailed, "clone exit program", e.Name)
		}

		e.SetPrograms(fentry, fexit)
	}
	return nil
}
