// Package ksym loads a snapshot of the running kernel's symbol table and
// exposes it as a name-to-address index.
package ksym

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"massattach/errors"
)

// DefaultPath is the standard procfs location for the kernel symbol table.
const DefaultPath = "/proc/kallsyms"

// Symbol is a single resolved kernel symbol.
type Symbol struct {
	Name    string
	Address uint64
}

// Index is an immutable snapshot of kernel symbols, queryable by exact name.
type Index struct {
	byName map[string]Symbol
}

// functionTypes are the kallsyms type letters that denote text (code)
// symbols; only these are retained, matching the original tool's use of
// the symbol table purely to resolve traceable function addresses.
var functionTypes = map[byte]bool{
	't': true, 'T': true, 'w': true, 'W': true,
}

// Load reads and indexes the kernel symbol table at path. Pass "" to use
// DefaultPath.
func Load(path string) (*Index, error) {
	if path == "" {
		path = DefaultPath
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrMissingSource, "load kallsyms", path)
	}
	defer f.Close()

	idx := &Index{byName: make(map[string]Symbol)}

	s := bufio.NewScanner(f)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) < 3 {
			continue
		}

		typ := fields[1]
		if len(typ) != 1 || !functionTypes[typ[0]] {
			continue
		}

		addr, err := strconv.ParseUint(fields[0], 16, 64)
		if err != nil {
			continue
		}

		name := fields[2]
		idx.byName[name] = Symbol{Name: name, Address: addr}
	}
	if err := s.Err(); err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrMissingSource, "scan kallsyms", path)
	}

	return idx, nil
}

// Get looks up a symbol by exact name. A miss means the name exists in the
// type database but has no live kernel symbol.
func (idx *Index) Get(name string) (Symbol, bool) {
	sym, ok := idx.byName[name]
	return sym, ok
}

// Len returns the number of indexed symbols.
func (idx *Index) Len() int {
	return len(idx.byName)
}
