// Package policy loads allow/deny glob rules from a YAML file into a
// filter.Policy, an alternative to passing them individually on the
// command line.
package policy

import (
	"os"

	"massattach/errors"
	"massattach/filter"

	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a policy file:
//
//	allow:
//	  - "do_sys_*"
//	  - "vfs_*"
//	deny:
//	  - "*_sys_select"
type File struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// Load reads and parses a policy file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrMissingSource, "read policy file", path)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.WrapWithDetail(err, errors.ErrInvalidConfig, "parse policy file", path)
	}
	return &f, nil
}

// Apply adds every rule in f to p, in the order the file declares them,
// so insertion-order-sensitive behavior (match counters, first-match
// precedence within the allow list) matches the file's own rule order.
func (f *File) Apply(p *filter.Policy) error {
	for _, pattern := range f.Allow {
		if err := p.Allow(pattern); err != nil {
			return errors.WrapWithDetail(err, errors.ErrInvalidGlob, "apply policy file allow rule", pattern)
		}
	}
	for _, pattern := range f.Deny {
		if err := p.Deny(pattern); err != nil {
			return errors.WrapWithDetail(err, errors.ErrInvalidGlob, "apply policy file deny rule", pattern)
		}
	}
	return nil
}

// LoadAndApply is a convenience wrapper combining Load and Apply.
func LoadAndApply(path string, p *filter.Policy) error {
	f, err := Load(path)
	if err != nil {
		return err
	}
	return f.Apply(p)
}
