package policy

import (
	"os"
	"path/filepath"
	"testing"

	"massattach/filter"

	"github.com/stretchr/testify/require"
)

func writePolicyFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad_ParsesAllowAndDeny(t *testing.T) {
	path := writePolicyFile(t, "allow:\n  - do_sys_*\n  - vfs_*\ndeny:\n  - \"*_sys_select\"\n")

	f, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"do_sys_*", "vfs_*"}, f.Allow)
	require.Equal(t, []string{"*_sys_select"}, f.Deny)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/policy.yaml")
	require.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writePolicyFile(t, "allow: [this is not\n  valid yaml")
	_, err := Load(path)
	require.Error(t, err)
}

func TestApply_AddsRulesToPolicy(t *testing.T) {
	f := &File{Allow: []string{"do_sys_*"}, Deny: []string{"*_sys_select"}}
	p := filter.NewPolicy()

	require.NoError(t, f.Apply(p))
	require.True(t, p.Decide("do_sys_open"))
	require.False(t, p.Decide("old_sys_select"))
}

func TestApply_InvalidPatternPropagatesError(t *testing.T) {
	f := &File{Allow: []string{"a*b"}}
	p := filter.NewPolicy()

	require.Error(t, f.Apply(p))
}

func TestLoadAndApply(t *testing.T) {
	path := writePolicyFile(t, "allow:\n  - do_sys_*\n")
	p := filter.NewPolicy()

	require.NoError(t, LoadAndApply(path, p))
	require.True(t, p.Decide("do_sys_open"))
}
