// Package filter implements the allow/deny policy that decides which
// kernel functions are candidates for attachment. Enforced denies always
// take precedence over caller-supplied rules.
package filter

import "massattach/glob"

// enforcedDenyGlobs are denied unconditionally, before any caller-supplied
// rule is consulted. These functions are either called from inside the
// tracer's own entry/exit path (rcu_read_lock*, __bpf_prog_enter*) or are
// syscalls that can block for a long time waiting on file descriptors
// (select, epoll_wait, ppoll).
var enforcedDenyGlobs = []string{
	"bpf_get_smp_processor_id",
	"migrate_enable",
	"migrate_disable",
	"rcu_read_lock*",
	"rcu_read_unlock*",
	"__bpf_prog_enter*",
	"__bpf_prog_exit*",
	"*_sys_select",
	"*_sys_epoll_wait",
	"*_sys_ppoll",
}

// Policy holds ordered allow and deny rule lists plus the enforced denies.
// Decide resolves a candidate name against all three in the order: enforced
// deny, caller deny, caller allow.
type Policy struct {
	enforced []*glob.Rule
	denies   []*glob.Rule
	allows   []*glob.Rule
}

// NewPolicy returns a Policy with the enforced deny list pre-populated.
func NewPolicy() *Policy {
	p := &Policy{}
	for _, pattern := range enforcedDenyGlobs {
		r, err := glob.NewRule(pattern)
		if err != nil {
			// enforcedDenyGlobs is a fixed, valid literal; a failure here
			// means the literal itself was edited to something invalid.
			panic("filter: invalid enforced deny pattern " + pattern + ": " + err.Error())
		}
		p.enforced = append(p.enforced, r)
	}
	return p
}

// Allow adds a caller allow rule. Once any allow rule exists, Decide
// requires a name to match at least one to be accepted.
func (p *Policy) Allow(pattern string) error {
	r, err := glob.NewRule(pattern)
	if err != nil {
		return err
	}
	p.allows = append(p.allows, r)
	return nil
}

// Deny adds a caller deny rule, consulted after the enforced deny list and
// before the allow list.
func (p *Policy) Deny(pattern string) error {
	r, err := glob.NewRule(pattern)
	if err != nil {
		return err
	}
	p.denies = append(p.denies, r)
	return nil
}

// Decide reports whether name is accepted by the policy:
//
//  1. If any enforced or caller deny rule matches name, it is rejected.
//  2. Otherwise, if at least one allow rule exists, name is accepted only
//     if some allow rule matches it.
//  3. Otherwise (no allow rules registered), name is accepted by default.
//
// The first matching rule in each list decides the outcome and is the only
// one whose match counter is incremented; later rules in the same list are
// never consulted once one has matched, so match counters sum to at most
// the number of candidate names.
func (p *Policy) Decide(name string) bool {
	accepted, _ := p.decide(name)
	return accepted
}

// Evaluate resolves name exactly as Decide does, additionally reporting
// the pattern of the deny rule that rejected it when rejection came from
// an explicit enforced or caller deny rule rather than from no allow rule
// matching. It shares Decide's single decision pass rather than re-testing
// rules, so callers that want the denying pattern for reporting should
// call this instead of calling Decide and then searching the deny lists
// themselves.
func (p *Policy) Evaluate(name string) (accepted bool, denyPattern string) {
	accepted, rule := p.decide(name)
	if rule == nil {
		return accepted, ""
	}
	return accepted, rule.Pattern()
}

// decide runs the deny-then-allow resolution once, stopping at the first
// matching rule in each list, and reports which deny rule (if any) decided
// a rejection.
func (p *Policy) decide(name string) (accepted bool, matchedDeny *glob.Rule) {
	for _, r := range p.enforced {
		if r.Test(name) {
			return false, r
		}
	}
	for _, r := range p.denies {
		if r.Test(name) {
			return false, r
		}
	}

	if len(p.allows) == 0 {
		return true, nil
	}

	for _, r := range p.allows {
		if r.Test(name) {
			return true, nil
		}
	}
	return false, nil
}

// Allows returns the caller-supplied allow rules, for reporting.
func (p *Policy) Allows() []*glob.Rule {
	return p.allows
}

// Denies returns the caller-supplied deny rules, for reporting.
func (p *Policy) Denies() []*glob.Rule {
	return p.denies
}

// Enforced returns the built-in enforced deny rules, for reporting.
func (p *Policy) Enforced() []*glob.Rule {
	return p.enforced
}
