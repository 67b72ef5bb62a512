// Package plan builds the attach-entry list and per-arity bucket table
// that the program multiplexer and orchestrator consume.
package plan

import (
	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/asm"
	"github.com/cilium/ebpf/btf"
)

// MaxArgs is the largest argument count the tracer ABI supports, and the
// highest index into Buckets.
const MaxArgs = 11

// Entry is one accepted attach target: a kernel function that passed the
// filter, the ABI check, and any user predicate.
type Entry struct {
	Index    uint32
	Name     string
	Address  uint64
	ArgCount uint8
	TypeID   btf.TypeID
	Fentry   *ebpf.Program
	Fexit    *ebpf.Program
	attached bool
}

// SetPrograms records the cloned entry and exit programs produced by the
// multiplexer during the load phase.
func (e *Entry) SetPrograms(fentry, fexit *ebpf.Program) {
	e.Fentry = fentry
	e.Fexit = fexit
}

// HasPrograms reports whether both the entry and exit programs have been
// cloned for this entry.
func (e *Entry) HasPrograms() bool {
	return e.Fentry != nil && e.Fexit != nil
}

// FentryFD returns the entry program's file descriptor, or -1 if it has
// not been cloned yet.
func (e *Entry) FentryFD() int {
	if e.Fentry == nil {
		return -1
	}
	return e.Fentry.FD()
}

// FexitFD returns the exit program's file descriptor, or -1 if it has not
// been cloned yet.
func (e *Entry) FexitFD() int {
	if e.Fexit == nil {
		return -1
	}
	return e.Fexit.FD()
}

// MarkAttached records that a raw-tracepoint attachment succeeded for this
// entry's programs.
func (e *Entry) MarkAttached() {
	e.attached = true
}

// Attached reports whether this entry's programs are wired.
func (e *Entry) Attached() bool {
	return e.attached
}

// Bucket groups every accepted function sharing one argument count, plus
// the single captured bytecode pair the multiplexer clones per function
// in that arity.
type Bucket struct {
	Count      uint32
	FirstIndex *uint32
	EntryInsns asm.Instructions
	ExitInsns  asm.Instructions
}

// Plan accumulates attach entries during the type-database walk and
// groups them into MaxArgs+1 arity buckets. Once built it is append-only
// until teardown, per the orchestrator's prepare/free lifecycle.
type Plan struct {
	entries []Entry
	buckets [MaxArgs + 1]Bucket
}

// New returns an empty Plan.
func New() *Plan {
	return &Plan{}
}

// Add appends a new attach entry for a function that has already passed
// the filter, ABI check, and user predicate, assigning it the next dense
// index and updating its arity bucket's count and first_index.
func (p *Plan) Add(name string, address uint64, argCount uint8, typeID btf.TypeID) *Entry {
	idx := uint32(len(p.entries))
	p.entries = append(p.entries, Entry{
		Index:    idx,
		Name:     name,
		Address:  address,
		ArgCount: argCount,
		TypeID:   typeID,
	})

	b := &p.buckets[argCount]
	b.Count++
	if b.FirstIndex == nil {
		first := idx
		b.FirstIndex = &first
	}

	return &p.entries[idx]
}

// Len returns the number of accepted entries, i.e. func_count.
func (p *Plan) Len() int {
	return len(p.entries)
}

// Entries returns the dense, append-only entry list in index order.
func (p *Plan) Entries() []*Entry {
	out := make([]*Entry, len(p.entries))
	for i := range p.entries {
		out[i] = &p.entries[i]
	}
	return out
}

// Entry returns the entry at index i, or nil if i is out of range.
func (p *Plan) Entry(i int) *Entry {
	if i < 0 || i >= len(p.entries) {
		return nil
	}
	return &p.entries[i]
}

// Bucket returns the arity bucket for argCount. argCount must be
// 0..=MaxArgs; callers that derive argCount from the ABI check already
// have this guarantee.
func (p *Plan) Bucket(argCount uint8) *Bucket {
	return &p.buckets[argCount]
}

// Buckets returns all MaxArgs+1 arity buckets, indexed by argument count.
func (p *Plan) Buckets() *[MaxArgs + 1]Bucket {
	return &p.buckets
}

// SetInsns records the bytecode the multiplexer captured for arity k's
// prep hook. It is an invariant violation to call this with a zero-length
// slice for either argument: the arity bucket's entry_insns/exit_insns
// must be present iff count > 0.
func (b *Bucket) SetInsns(entryInsns, exitInsns asm.Instructions) {
	b.EntryInsns = entryInsns
	b.ExitInsns = exitInsns
}
