// Package traceable loads the kernel's list of attachable function names
// and exposes it as a sorted set queryable by exact membership.
package traceable

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"massattach/errors"
)

// DefaultPath is the standard tracefs location listing every function the
// kernel will accept a dynamic probe on.
const DefaultPath = "/sys/kernel/tracing/available_filter_functions"

// Set is an immutable, sorted collection of traceable kernel function names.
type Set struct {
	names []string
}

// Load reads and sorts the traceable-function list at path. Pass "" to use
// DefaultPath. Each line begins with a function name, optionally followed
// by whitespace-separated tokens that are ignored (e.g. module names or
// addresses appended by some kernels).
func Load(path string) (*Set, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrMissingSource, "load available kprobes", path)
	}
	defer f.Close()

	var names []string
	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) == 0 {
			continue
		}
		names = append(names, fields[0])
	}
	if err := s.Err(); err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrMissingSource, "scan available kprobes", path)
	}

	sort.Strings(names)

	return &Set{names: names}, nil
}

// Contains reports whether name is attachable, via binary search over the
// sorted set.
func (s *Set) Contains(name string) bool {
	i := sort.SearchStrings(s.names, name)
	return i < len(s.names) && s.names[i] == name
}

// Len returns the number of traceable names.
func (s *Set) Len() int {
	return len(s.names)
}
