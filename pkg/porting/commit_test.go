package porting_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/addon"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

func TestNewCommitPaths(t *testing.T) {
	t.Parallel()

	c := porting.NewCommit("abc", author(0), "[FIX] my_module: crash\n\nDetails", nil,
		[]string{"my_module/models/a.py", "my_module/__init__.py", "requirements.txt", "setup/my_module/setup.py"})

	assert.Equal(t, "[FIX] my_module: crash", c.Summary)
	assert.Equal(t, []addon.CommitPath{
		{Name: "my_module", IsDir: true},
		{Name: "requirements.txt"},
		{Name: "setup", IsDir: true},
	}, c.Paths)
	assert.Equal(t, []string{"my_module", "requirements.txt", "setup"}, c.PathNames().Sorted())
	assert.Equal(t, []string{"my_module", "requirements.txt"}, c.PortablePaths().Sorted())
	assert.False(t, c.IsMerge())
}

func TestCommitEqualStrict(t *testing.T) {
	t.Parallel()

	a := porting.NewCommit("a", author(1), "[IMP] my_module: x", nil, []string{"my_module/a.py"})
	b := porting.NewCommit("b", author(1), "[IMP] my_module: x", nil, []string{"my_module/b.py"})

	assert.True(t, a.Equal(b, porting.Strict), "SHA and file names inside a path do not matter")
	assert.False(t, a.Equal(nil, porting.Strict))

	otherPaths := porting.NewCommit("c", author(1), "[IMP] my_module: x", nil, []string{"my_module/a.py", "other/a.py"})
	assert.False(t, a.Equal(otherPaths, porting.Strict))
	assert.True(t, a.Equal(otherPaths, porting.Lazy))

	otherTime := porting.NewCommit("d", author(2), "[IMP] my_module: x", nil, []string{"my_module/a.py"})
	assert.False(t, a.Equal(otherTime, porting.Lazy))
}

func TestCommitEqualIgnoresZone(t *testing.T) {
	t.Parallel()

	utc := author(0)
	shifted := utc
	shifted.When = time.Date(2023, time.March, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	a := porting.NewCommit("a", utc, "msg", nil, []string{"m/a.py"})
	b := porting.NewCommit("b", shifted, "msg", nil, []string{"m/a.py"})

	assert.True(t, a.Equal(b, porting.Strict))
}

func TestCommitEqualLazyMessage(t *testing.T) {
	t.Parallel()

	a := porting.NewCommit("a", author(1), "[FIX] my_module: wrong total\n\nsee 14.0", nil, []string{"my_module/a.py"})
	b := porting.NewCommit("b", author(1), "[16.0][FIX] my_module: wrong total  see", nil, []string{"my_module/a.py"})

	assert.False(t, a.Equal(b, porting.Strict))
	assert.True(t, a.Equal(b, porting.Lazy))
}

func TestPathsToPort(t *testing.T) {
	t.Parallel()

	c := porting.NewCommit("a", author(1), "msg", nil, []string{
		"my_module/models/a.py",
		"my_module/i18n/fr.po",
		"other/models/b.py",
		"setup/other/setup.py",
	})

	assert.Equal(t, []string{"my_module/models/a.py", "other/models/b.py"}, c.PathsToPort())

	ported := porting.NewCommit("p", author(1), "msg", nil, []string{"other/models/b.py"})
	c.LinkPorted(ported)
	c.LinkPorted(ported)

	require.Len(t, c.PortedCommits, 1)
	assert.Equal(t, []string{"my_module/models/a.py"}, c.PathsToPort())
}

func TestShortSHA(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0123abcd", porting.NewCommit("0123abcdef", author(0), "m", nil, nil).ShortSHA())
	assert.Equal(t, "abc", porting.NewCommit("abc", author(0), "m", nil, nil).ShortSHA())
}

func TestPathSet(t *testing.T) {
	t.Parallel()

	s := porting.NewPathSet("a", "b")
	s.Add(porting.NewPathSet("c"))

	assert.True(t, s.Has("c"))
	assert.Equal(t, []string{"a"}, s.Minus(porting.NewPathSet("b", "c")).Sorted())

	clone := s.Clone()
	clone.Remove(porting.NewPathSet("a"))

	assert.True(t, s.Has("a"))
	assert.False(t, clone.Has("a"))
	assert.True(t, porting.NewPathSet("x", "y").Equal(porting.NewPathSet("y", "x")))
	assert.False(t, porting.NewPathSet("x").Equal(porting.NewPathSet("y")))
}
