// Package template wraps the compiled tracing program template: a
// collection of prototype fentry/fexit programs (one pair per argument
// count 0..=11), a shared "ready" flag, and an address→index map. It is
// the external contract named in §6 ("Template asset"), backed by a real
// github.com/cilium/ebpf collection.
package template

import (
	"fmt"

	"massattach/errors"

	"github.com/cilium/ebpf"
)

// MaxArgs mirrors plan.MaxArgs; duplicated here so that template does not
// depend on plan.
const MaxArgs = 11

// entryProgName and exitProgName follow the template authoring convention
// named in §6: one program per arity, named fentryK / fexitK.
func entryProgName(arity int) string { return fmt.Sprintf("fentry%d", arity) }
func exitProgName(arity int) string  { return fmt.Sprintf("fexit%d", arity) }

// readyVarName and ipToIDMapName are the two pieces of template shared
// state the orchestrator touches directly.
const (
	readyVarName  = "ready"
	ipToIDMapName = "ip_to_id"
)

// Asset is a loaded, not-yet-instantiated template: a CollectionSpec plus
// the accessors the multiplexer and orchestrator need, without committing
// any program to the kernel.
type Asset struct {
	spec *ebpf.CollectionSpec
}

// Load reads a compiled object file and validates that it carries the
// 24 prototype programs and the ip_to_id map. The ready variable is not
// checked here; its absence surfaces only when Instance.SetReady runs.
func Load(objectPath string) (*Asset, error) {
	spec, err := ebpf.LoadCollectionSpec(objectPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrMissingSource, "load template object")
	}

	return FromSpec(spec)
}

// FromSpec wraps an already-parsed CollectionSpec, validating it the same
// way Load does. Exported for callers (tests, alternative asset sources)
// that already hold a spec rather than an object file path.
func FromSpec(spec *ebpf.CollectionSpec) (*Asset, error) {
	a := &Asset{spec: spec}
	if err := a.validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *Asset) validate() error {
	for k := 0; k <= MaxArgs; k++ {
		if _, ok := a.spec.Programs[entryProgName(k)]; !ok {
			return errors.New(errors.ErrMissingSource, "load template object",
				fmt.Sprintf("missing program %s", entryProgName(k)))
		}
		if _, ok := a.spec.Programs[exitProgName(k)]; !ok {
			return errors.New(errors.ErrMissingSource, "load template object",
				fmt.Sprintf("missing program %s", exitProgName(k)))
		}
	}
	if _, ok := a.spec.Maps[ipToIDMapName]; !ok {
		return errors.New(errors.ErrMissingSource, "load template object", "missing map ip_to_id")
	}
	return nil
}

// Spec returns the underlying collection spec, for the loader package to
// instantiate and for the multiplexer to arm prototype programs on.
func (a *Asset) Spec() *ebpf.CollectionSpec {
	return a.spec
}

// EntryProgramSpec returns the prototype entry ProgramSpec for arity k.
func (a *Asset) EntryProgramSpec(k int) *ebpf.ProgramSpec {
	return a.spec.Programs[entryProgName(k)]
}

// ExitProgramSpec returns the prototype exit ProgramSpec for arity k.
func (a *Asset) ExitProgramSpec(k int) *ebpf.ProgramSpec {
	return a.spec.Programs[exitProgName(k)]
}

// DisableProgram removes a prototype program from the spec so the loader
// never attempts to load it, used for arities with zero accepted
// functions per §4.8's arm step.
func (a *Asset) DisableProgram(name string) {
	delete(a.spec.Programs, name)
}

// SetIPToIDCapacity sizes the ip_to_id map to funcCount entries before the
// collection is loaded, instead of relying on the object file's
// compile-time default.
func (a *Asset) SetIPToIDCapacity(funcCount uint32) {
	a.spec.Maps[ipToIDMapName].MaxEntries = funcCount
}

// EntryProgramName and ExitProgramName expose the naming convention to
// the multiplexer, which must identify a loaded program by name.
func EntryProgramName(k int) string { return entryProgName(k) }
func ExitProgramName(k int) string  { return exitProgName(k) }

// IPToIDMapName is the name of the map the orchestrator populates with
// {address -> index} pairs before activation.
func IPToIDMapName() string { return ipToIDMapName }

// ReadyVarName is the name of the shared-memory boolean flipped by
// Instance.SetReady.
func ReadyVarName() string { return readyVarName }

// Instance is a collection instantiated in the kernel: the loaded
// counterpart of Asset, holding live maps and the ready variable.
type Instance struct {
	collection *ebpf.Collection
}

// NewInstance wraps an already-loaded collection, produced by the loader
// package's Load call.
func NewInstance(c *ebpf.Collection) *Instance {
	return &Instance{collection: c}
}

// IPToIDMap returns the live ip_to_id map for population before activate.
func (i *Instance) IPToIDMap() *ebpf.Map {
	return i.collection.Maps[ipToIDMapName]
}

// SetReady flips the template's shared ready flag, the final step of the
// activate phase.
func (i *Instance) SetReady(ready bool) error {
	v, ok := i.collection.Variables[readyVarName]
	if !ok {
		return errors.New(errors.ErrInternal, "activate", "template has no ready variable")
	}
	if err := v.Set(ready); err != nil {
		return errors.Wrap(err, errors.ErrInternal, "set ready flag")
	}
	return nil
}

// Close releases every kernel resource the instance holds: the
// collection's maps and programs.
func (i *Instance) Close() error {
	return i.collection.Close()
}
