// Package attacher implements the orchestrator (§4.9): it wires together
// the symbol index, traceable-name set, type database, filter policy, ABI
// check, attach planner and program multiplexer into the four-phase
// sequence prepare -> load -> attach -> activate, and exposes
// introspection over the result.
package attacher

import (
	"log/slog"

	"massattach/abi"
	"massattach/btfview"
	"massattach/errors"
	"massattach/filter"
	"massattach/ksym"
	"massattach/loader"
	"massattach/logging"
	"massattach/metrics"
	"massattach/mux"
	"massattach/plan"
	"massattach/policy"
	"massattach/template"
	"massattach/traceable"

	"github.com/cilium/ebpf"
	"github.com/cilium/ebpf/btf"
	"github.com/cilium/ebpf/link"
)

// license is the license string every cloned program is loaded with,
// matching the template's own prototype programs.
const license = "Dual BSD/GPL"

// FuncFilter is a user-supplied final gate consulted after the built-in
// filter policy and ABI check accept a candidate function.
type FuncFilter func(db *btfview.View, typeID btf.TypeID, name string, acceptedSoFar int) bool

// Options configures an Attacher. The zero value is valid and selects
// every documented default.
type Options struct {
	// MaxFuncCnt caps the number of accepted functions; 0 means unlimited.
	MaxFuncCnt uint32
	// MaxFilenoRlimit overrides the open-files limit raised during
	// Prepare; 0 means the default of 300,000.
	MaxFilenoRlimit uint64
	// Verbose logs each function skipped during planning for having no
	// live kernel symbol, not being in the traceable-name set, or failing
	// the ABI check. Deny-rule rejections are logged only under
	// DebugExtra; rejections for matching no allow rule, and by the user
	// predicate, are not logged.
	Verbose bool
	// Debug implies Verbose, and keeps the multiplexer's prototype
	// programs loaded (rather than removed) so their verifier output can
	// be inspected.
	Debug bool
	// DebugExtra additionally logs the per-glob match-count summary once
	// planning completes.
	DebugExtra bool
	// FuncFilter, if set, is consulted as the final gate for every
	// function that already passed the built-in filter and ABI check.
	FuncFilter FuncFilter
	// SkipRlimits disables the memlock/open-files rlimit raise that
	// Prepare otherwise performs as a side effect.
	SkipRlimits bool
	// PolicyFile, if set, is a YAML allow/deny file loaded into the
	// filter policy by New, before any subsequent AllowGlob/DenyGlob call
	// adds further rules (see the policy package).
	PolicyFile string
	// Metrics receives phase-outcome observations; nil selects a no-op
	// recorder that discards everything.
	Metrics metrics.Recorder
	// Progress, if set, is called with (done, total) as Load writes each
	// entry's address into the ip_to_id map and as Attach attaches each
	// entry. Cloning itself runs as one pass after the map is populated and
	// reports no progress.
	Progress func(done, total int)
}

func (o Options) metrics() metrics.Recorder {
	if o.Metrics != nil {
		return o.Metrics
	}
	return metrics.NewNoop()
}

func (o Options) reportProgress(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}

func (o Options) verbose() bool { return o.Verbose || o.Debug }

// phase tracks which orchestrator phase has last completed, enforcing the
// phase-ordering preconditions from §4.9's table.
type phase int

const (
	phaseNew phase = iota
	phasePrepared
	phaseLoaded
	phaseAttached
	phaseActivated
	phaseFreed
)

// Attacher is the orchestrator. It is driven by a single goroutine
// through its phases; nothing here is safe for concurrent use, matching
// §5's single-threaded cooperative scheduling model.
type Attacher struct {
	opts Options
	log  *slog.Logger

	phase phase

	policy    *filter.Policy
	symbols   *ksym.Index
	traceable *traceable.Set
	typeDB    *btfview.View
	plan      *plan.Plan
	asset     *template.Asset
	instance  *template.Instance
	mplex     *mux.Multiplexer
	metrics   metrics.Recorder

	skipped uint64
	links   []link.Link
}

// New builds an empty orchestrator over the template asset at objectPath,
// with the enforced deny list already installed and Options.PolicyFile
// (if set) applied. It accepts further allow/deny additions until Prepare
// is called.
func New(objectPath string, opts Options, log *slog.Logger) (*Attacher, error) {
	if log == nil {
		log = logging.Default()
	}

	asset, err := template.Load(objectPath)
	if err != nil {
		return nil, err
	}

	p := filter.NewPolicy()
	if opts.PolicyFile != "" {
		if err := policy.LoadAndApply(opts.PolicyFile, p); err != nil {
			return nil, err
		}
	}

	return &Attacher{
		opts:    opts,
		log:     log,
		phase:   phaseNew,
		policy:  p,
		asset:   asset,
		metrics: opts.metrics(),
	}, nil
}

// SetProgress installs a callback invoked with (done, total) as Load and
// Attach make progress, replacing whatever Options.Progress held.
func (a *Attacher) SetProgress(fn func(done, total int)) {
	a.opts.Progress = fn
}

// AllowGlob adds an allow rule. Valid only before Prepare.
func (a *Attacher) AllowGlob(pattern string) error {
	if a.phase != phaseNew {
		return errors.ErrAlreadyPrepared
	}
	return a.policy.Allow(pattern)
}

// DenyGlob adds a deny rule. Valid only before Prepare.
func (a *Attacher) DenyGlob(pattern string) error {
	if a.phase != phaseNew {
		return errors.ErrAlreadyPrepared
	}
	return a.policy.Deny(pattern)
}

// Prepare loads the symbol index and traceable-name set, raises resource
// limits, loads the type database, walks it applying the filter policy,
// ABI check, and optional user predicate, and arms the program
// multiplexer against the resulting plan.
func (a *Attacher) Prepare() error {
	if a.phase != phaseNew {
		return errors.ErrAlreadyPrepared
	}

	symbols, err := ksym.Load(ksym.DefaultPath)
	if err != nil {
		return err
	}

	if !a.opts.SkipRlimits {
		if err := raiseRlimits(a.opts.MaxFilenoRlimit); err != nil {
			return err
		}
	}

	names, err := traceable.Load(traceable.DefaultPath)
	if err != nil {
		return err
	}

	typeDB, err := btfview.Load()
	if err != nil {
		return err
	}

	log := logging.WithPhase(a.log, "prepare")

	p := plan.New()
	walkErr := typeDB.Each(func(fn btfview.FuncInfo) bool {
		if a.opts.MaxFuncCnt > 0 && uint32(p.Len()) >= a.opts.MaxFuncCnt {
			return false
		}

		sym, ok := symbols.Get(fn.Name)
		if !ok {
			a.skipped++
			a.metrics.FunctionSkipped("no_kernel_symbol")
			if a.opts.verbose() {
				logging.WithFunction(log, fn.Name).Info("skipping function: no live kernel symbol")
			}
			return true
		}

		if accepted, denyPattern := a.policy.Evaluate(fn.Name); !accepted {
			a.skipped++
			if denyPattern != "" {
				a.metrics.FunctionDenied(denyPattern)
				if a.opts.DebugExtra {
					logging.WithGlob(logging.WithFunction(log, fn.Name), denyPattern).Info("function denied by glob")
				}
			} else {
				a.metrics.FunctionSkipped("no_allow_match")
			}
			return true
		}

		if !names.Contains(fn.Name) {
			a.skipped++
			a.metrics.FunctionSkipped("not_traceable")
			if a.opts.verbose() {
				logging.WithFunction(log, fn.Name).Info("skipping function: not in traceable-name set")
			}
			return true
		}

		ok, argCount := abi.Check(fn)
		if !ok {
			a.skipped++
			a.metrics.FunctionSkipped("abi_incompatible")
			if a.opts.verbose() {
				logging.WithArity(logging.WithFunction(log, fn.Name), argCount).Info("skipping function: ABI incompatible")
			}
			return true
		}

		if a.opts.FuncFilter != nil && !a.opts.FuncFilter(typeDB, fn.ID, fn.Name, p.Len()) {
			a.skipped++
			a.metrics.FunctionSkipped("user_filter_rejected")
			return true
		}

		a.metrics.FunctionAccepted(argCount)
		p.Add(fn.Name, sym.Address, uint8(argCount), fn.ID)
		return true
	})
	if walkErr != nil {
		return errors.Wrap(walkErr, errors.ErrMissingSource, "walk type database")
	}

	if p.Len() == 0 {
		return errors.ErrNoMatchingFunctions
	}

	a.asset.SetIPToIDCapacity(uint32(p.Len()))

	mplex := mux.New(p, a.asset)
	if err := mplex.Arm(a.opts.Debug); err != nil {
		return err
	}

	if a.opts.DebugExtra {
		a.logMatchSummary()
	}

	a.symbols = symbols
	a.traceable = names
	a.typeDB = typeDB
	a.plan = p
	a.mplex = mplex
	a.phase = phasePrepared
	return nil
}

// logMatchSummary logs each registered rule's final match count, the
// debug_extra supplement named in the configuration section.
func (a *Attacher) logMatchSummary() {
	log := logging.WithPhase(a.log, "prepare")
	for _, r := range a.policy.Allows() {
		logging.WithGlob(log, r.Pattern()).Info("allow rule summary", "matches", r.Matches())
	}
	for _, r := range a.policy.Denies() {
		logging.WithGlob(log, r.Pattern()).Info("deny rule summary", "matches", r.Matches())
	}
	for _, r := range a.policy.Enforced() {
		if r.Matches() > 0 {
			logging.WithGlob(log, r.Pattern()).Info("enforced deny rule summary", "matches", r.Matches())
		}
	}
}

// Load instantiates the template collection (its maps, plus the armed
// prototype programs only when Debug kept them in the spec), populates the ip_to_id map with
// every accepted entry's address, and clones the per-entry program pairs.
func (a *Attacher) Load() error {
	if a.phase != phasePrepared {
		return errors.ErrPrepareNotCalled
	}

	instance, err := loader.Load(a.asset)
	if err != nil {
		return err
	}
	a.instance = instance

	ipToID := instance.IPToIDMap()
	total := len(a.plan.Entries())
	for i, e := range a.plan.Entries() {
		if err := ipToID.Put(e.Address, e.Index); err != nil {
			return errors.WrapWithFunc(err, errors.ErrInternal, "populate ip_to_id map", e.Name)
		}
		a.opts.reportProgress(i+1, total)
	}

	a.metrics.CloneAttempted()
	if err := a.mplex.Clone(ebpf.Tracing, ebpf.AttachTraceFEntry, ebpf.AttachTraceFExit, license, logging.WithPhase(a.log, "load")); err != nil {
		a.metrics.CloneFailed()
		return err
	}

	a.phase = phaseLoaded
	return nil
}

// Attach opens a raw-tracepoint attachment on every entry's cloned
// programs. Per-function failures are logged and non-fatal; Attach
// returns the count of entries for which at least one attachment failed,
// alongside a nil error, preserving the permissive behavior §9 leaves as
// an open question.
func (a *Attacher) Attach() (failed int, err error) {
	if a.phase != phaseLoaded {
		return 0, errors.ErrLoadNotCalled
	}

	log := logging.WithPhase(a.log, "attach")
	total := len(a.plan.Entries())
	for i, e := range a.plan.Entries() {
		entryLink, err := loader.RawTracepointOpen(e.Fentry)
		if err != nil {
			logging.WithFunction(log, e.Name).Warn("attach entry program failed", "error", err)
			a.metrics.AttachFailed(e.Name)
			failed++
			a.opts.reportProgress(i+1, total)
			continue
		}
		exitLink, err := loader.RawTracepointOpen(e.Fexit)
		if err != nil {
			logging.WithFunction(log, e.Name).Warn("attach exit program failed", "error", err)
			a.metrics.AttachFailed(e.Name)
			entryLink.Close()
			failed++
			a.opts.reportProgress(i+1, total)
			continue
		}

		a.links = append(a.links, entryLink, exitLink)
		e.MarkAttached()
		a.opts.reportProgress(i+1, total)
	}

	a.phase = phaseAttached
	return failed, nil
}

// Activate flips the template's shared ready flag, making tracing live.
func (a *Attacher) Activate() error {
	if a.phase != phaseAttached {
		return errors.ErrAttachNotCalled
	}
	if err := a.instance.SetReady(true); err != nil {
		return err
	}
	a.phase = phaseActivated
	return nil
}

// Free clears the ready flag (if set) and releases every resource this
// orchestrator holds: attachment links, the cloned entry/exit programs,
// the template instance, and the type database. Free is valid from any
// phase and is idempotent.
func (a *Attacher) Free() error {
	if a.phase == phaseFreed {
		return nil
	}

	if a.instance != nil && a.phase >= phaseActivated {
		_ = a.instance.SetReady(false)
	}

	for _, l := range a.links {
		_ = l.Close()
	}
	a.links = nil

	if a.plan != nil {
		for _, e := range a.plan.Entries() {
			if e.Fentry != nil {
				_ = e.Fentry.Close()
			}
			if e.Fexit != nil {
				_ = e.Fexit.Close()
			}
		}
	}

	if a.instance != nil {
		_ = a.instance.Close()
		a.instance = nil
	}
	a.typeDB = nil

	a.phase = phaseFreed
	return nil
}

// FuncCount returns func_count: the number of accepted attach entries.
func (a *Attacher) FuncCount() int {
	if a.plan == nil {
		return 0
	}
	return a.plan.Len()
}

// Func returns the attach entry at index i, or nil if out of range or
// Prepare has not yet run.
func (a *Attacher) Func(i int) *plan.Entry {
	if a.plan == nil {
		return nil
	}
	return a.plan.Entry(i)
}

// Template returns the template asset.
func (a *Attacher) Template() *template.Asset {
	return a.asset
}

// TypeDB returns the type database view, or nil before Prepare and after
// Free.
func (a *Attacher) TypeDB() *btfview.View {
	return a.typeDB
}

// SkippedCount returns the number of candidate functions skipped during
// planning, for any reason (filtered, missing symbol, untraceable, ABI
// mismatch, or user predicate rejection).
func (a *Attacher) SkippedCount() uint64 {
	return a.skipped
}

// Policy returns the filter policy, for callers that want to add rules
// before Prepare or inspect match counters after it.
func (a *Attacher) Policy() *filter.Policy {
	return a.policy
}
