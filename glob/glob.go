// Package glob implements the restricted glob syntax used to allow/deny
// kernel function names: '*' is honored only at the start and/or end of a
// pattern. No other metacharacters are interpreted.
package glob

import (
	"strings"

	"massattach/errors"
)

// Validate reports whether glob is a well-formed pattern: non-empty, with
// '*' appearing only at position 0 and/or the last position, and not equal
// to the literal "**".
func Validate(pattern string) error {
	if pattern == "" {
		return errors.ErrEmptyGlob
	}

	n := len(pattern)
	for i := 0; i < n; i++ {
		if pattern[i] == '*' && i != 0 && i != n-1 {
			return errors.ErrInteriorStar
		}
	}

	if pattern == "**" {
		return errors.ErrDoubleStarGlob
	}

	return nil
}

// Match reports whether s matches the validated glob pattern.
//
//   - "*"        matches everything
//   - "*x*"      substring match on "x"
//   - "*x"       suffix match on "x"
//   - "x*"       prefix match on "x"
//   - "x"        exact match
//
// Match does not itself validate pattern; callers should validate once at
// rule-construction time via Validate or NewRule.
func Match(pattern, s string) bool {
	n := len(pattern)
	if n == 1 && pattern[0] == '*' {
		return true
	}

	first, last := pattern[0] == '*', pattern[n-1] == '*'
	switch {
	case first && last:
		return strings.Contains(s, pattern[1:n-1])
	case first:
		return strings.HasSuffix(s, pattern[1:])
	case last:
		return strings.HasPrefix(s, pattern[:n-1])
	default:
		return pattern == s
	}
}

// Rule pairs a validated pattern with a monotonic match counter and a
// precomputed inner slice, so substring matching never needs to mutate or
// reallocate the pattern string on the hot path.
type Rule struct {
	pattern string
	inner   string
	matches uint64
}

// NewRule validates pattern and returns a Rule ready for repeated matching.
func NewRule(pattern string) (*Rule, error) {
	if err := Validate(pattern); err != nil {
		return nil, err
	}

	r := &Rule{pattern: pattern}
	n := len(pattern)
	if n > 1 && pattern[0] == '*' && pattern[n-1] == '*' {
		r.inner = pattern[1 : n-1]
	} else if n > 1 && pattern[0] == '*' {
		r.inner = pattern[1:]
	} else if n > 1 && pattern[n-1] == '*' {
		r.inner = pattern[:n-1]
	}
	return r, nil
}

// Pattern returns the original pattern string.
func (r *Rule) Pattern() string {
	return r.pattern
}

// Matches returns how many times Test has returned true for this rule.
func (r *Rule) Matches() uint64 {
	return r.matches
}

// Test reports whether name matches the rule's pattern, incrementing the
// rule's match counter when it does.
func (r *Rule) Test(name string) bool {
	n := len(r.pattern)
	var matched bool
	switch {
	case n == 1 && r.pattern[0] == '*':
		matched = true
	case r.pattern[0] == '*' && r.pattern[n-1] == '*':
		matched = strings.Contains(name, r.inner)
	case r.pattern[0] == '*':
		matched = strings.HasSuffix(name, r.inner)
	case r.pattern[n-1] == '*':
		matched = strings.HasPrefix(name, r.inner)
	default:
		matched = r.pattern == name
	}
	if matched {
		r.matches++
	}
	return matched
}
