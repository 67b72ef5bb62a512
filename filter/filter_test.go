package filter

import "testing"

func TestNewPolicy_EnforcedDeniesAlwaysWin(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("rcu_read_lock_held"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	if p.Decide("rcu_read_lock_held") {
		t.Error("expected rcu_read_lock_held to be denied by the enforced list")
	}
}

func TestDecide_DefaultAcceptWithNoAllows(t *testing.T) {
	p := NewPolicy()
	if !p.Decide("do_sys_open") {
		t.Error("expected default accept with zero allow rules")
	}
}

func TestDecide_RequiresAllowMatchOnceAllowsExist(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("do_sys_*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	if !p.Decide("do_sys_open") {
		t.Error("expected do_sys_open to match the allow rule")
	}
	if p.Decide("vfs_read") {
		t.Error("expected vfs_read to be rejected: no allow rule matches and allows exist")
	}
}

func TestDecide_CallerDenyOverridesAllow(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("do_sys_*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if err := p.Deny("do_sys_open"); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	if p.Decide("do_sys_open") {
		t.Error("expected do_sys_open to be denied despite matching the allow rule")
	}
	if !p.Decide("do_sys_close") {
		t.Error("expected do_sys_close to still be accepted")
	}
}

func TestDecide_StopsAtFirstAllowMatch(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("do_sys_*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if err := p.Allow("do_sys_*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	if !p.Decide("do_sys_open") {
		t.Fatal("expected do_sys_open to be accepted")
	}

	allows := p.Allows()
	if len(allows) != 2 {
		t.Fatalf("len(Allows()) = %d, want 2", len(allows))
	}
	if allows[0].Matches() != 1 {
		t.Errorf("allows[0].Matches() = %d, want 1 (first match decides)", allows[0].Matches())
	}
	if allows[1].Matches() != 0 {
		t.Errorf("allows[1].Matches() = %d, want 0: second identical rule must not be consulted once the first matched", allows[1].Matches())
	}
}

func TestDecide_StopsAtFirstDenyMatch(t *testing.T) {
	p := NewPolicy()
	if err := p.Deny("do_sys_*"); err != nil {
		t.Fatalf("Deny: %v", err)
	}
	if err := p.Deny("do_sys_*"); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	if p.Decide("do_sys_open") {
		t.Fatal("expected do_sys_open to be denied")
	}

	denies := p.Denies()
	if denies[0].Matches() != 1 {
		t.Errorf("denies[0].Matches() = %d, want 1 (first match decides)", denies[0].Matches())
	}
	if denies[1].Matches() != 0 {
		t.Errorf("denies[1].Matches() = %d, want 0: second identical rule must not be consulted once the first matched", denies[1].Matches())
	}
}

func TestEvaluate_ReportsMatchingDenyPattern(t *testing.T) {
	p := NewPolicy()
	if err := p.Deny("*_sys_open"); err != nil {
		t.Fatalf("Deny: %v", err)
	}

	accepted, pattern := p.Evaluate("do_sys_open")
	if accepted {
		t.Fatal("expected do_sys_open to be denied")
	}
	if pattern != "*_sys_open" {
		t.Errorf("pattern = %q, want %q", pattern, "*_sys_open")
	}

	accepted, pattern = p.Evaluate("vfs_read")
	if !accepted {
		t.Errorf("expected vfs_read to be accepted, got denied by %q", pattern)
	}
	if pattern != "" {
		t.Errorf("pattern = %q, want empty string when accepted", pattern)
	}
}

func TestEvaluate_EmptyPatternWhenRejectedByMissingAllowMatch(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("do_sys_*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	accepted, pattern := p.Evaluate("vfs_read")
	if accepted {
		t.Fatal("expected vfs_read to be rejected: no allow rule matches")
	}
	if pattern != "" {
		t.Errorf("pattern = %q, want empty string: rejection wasn't from a deny rule", pattern)
	}
}

func TestDecide_InvalidPatternRejected(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("a*b"); err == nil {
		t.Error("expected error for interior star")
	}
	if err := p.Deny(""); err == nil {
		t.Error("expected error for empty pattern")
	}
}

func TestDecide_CounterSumBoundedByCandidateCount(t *testing.T) {
	p := NewPolicy()
	if err := p.Allow("*"); err != nil {
		t.Fatalf("Allow: %v", err)
	}

	names := []string{"a", "b", "c"}
	for _, n := range names {
		p.Decide(n)
	}

	var total uint64
	for _, r := range p.Allows() {
		total += r.Matches()
	}
	if total > uint64(len(names)) {
		t.Errorf("total matches %d exceeds candidate count %d", total, len(names))
	}
}

func TestEnforced_ListedAndCounted(t *testing.T) {
	p := NewPolicy()
	if len(p.Enforced()) != 10 {
		t.Fatalf("len(Enforced()) = %d, want 10", len(p.Enforced()))
	}

	p.Decide("migrate_enable")

	var hit bool
	for _, r := range p.Enforced() {
		if r.Pattern() == "migrate_enable" && r.Matches() == 1 {
			hit = true
		}
	}
	if !hit {
		t.Error("expected migrate_enable's enforced rule counter to increment")
	}
}
