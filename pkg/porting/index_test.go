package porting_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

func TestBuildIndex(t *testing.T) {
	t.Parallel()

	h := newFakeHistory()
	first := h.add("15.0", author(0), "[ADD] my_module", "my_module/__init__.py")
	h.add("15.0", author(1), "[IMP] other", "other/__init__.py")
	known := h.add("15.0", author(2), "[IMP] my_module: known", "my_module/a.py")
	h.addMerge("15.0", author(3), "my_module/b.py")
	last := h.add("15.0", author(4), "[FIX] my_module", "my_module/c.py")

	cache := newMemCache()
	cache.ported[known] = true

	ix, err := porting.BuildIndex(context.Background(), h, cache, porting.DefaultFilter(), "15.0", "my_module")
	require.NoError(t, err)

	require.Equal(t, 2, ix.Len())
	assert.Equal(t, first, ix.Commits[0].SHA, "oldest first")
	assert.Equal(t, last, ix.Commits[1].SHA)
	assert.Contains(t, ix.BySHA, last)
	assert.NotContains(t, ix.BySHA, known)
}

func TestBuildIndexSkipsNoiseOnEveryBranch(t *testing.T) {
	t.Parallel()

	h := newFakeHistory()
	h.add("15.0", author(0), "[ADD] my_module", "my_module/__init__.py")
	h.fork("15.0", "16.0")

	bot := author(1)
	bot.Email = "oca-git-bot@odoo-community.org"

	for _, branch := range []string{"15.0", "16.0"} {
		h.add(branch, bot, "[UPD] README.rst", "my_module/README.rst")
		h.add(branch, author(2), "Translated using Weblate (German)", "my_module/i18n/de.po")
		h.add(branch, author(3), "[ADD] setup.py", "setup/my_module/setup.py")
	}

	for _, branch := range []string{"15.0", "16.0"} {
		for _, path := range []string{"", "my_module"} {
			ix, err := porting.BuildIndex(context.Background(), h, newMemCache(), porting.DefaultFilter(), branch, path)
			require.NoError(t, err)

			assert.Equal(t, 1, ix.Len(), "%s %q", branch, path)
		}
	}
}

func TestIndexMatches(t *testing.T) {
	t.Parallel()

	h := newFakeHistory()
	h.add("16.0", author(1), "[IMP] m: x", "m/a.py")
	h.add("16.0", author(1), "[16.0][IMP] m: x", "n/a.py")
	h.add("16.0", author(2), "[IMP] m: x", "m/a.py")

	ix, err := porting.BuildIndex(context.Background(), h, newMemCache(), porting.DefaultFilter(), "16.0", "")
	require.NoError(t, err)

	probe := porting.NewCommit("zz", author(1), "[IMP] m: x", nil, []string{"m/b.py", "n/b.py"})

	assert.False(t, ix.Contains(probe, porting.Strict))
	assert.True(t, ix.Contains(probe, porting.Lazy))
	assert.Len(t, ix.Matches(probe, porting.Lazy), 2)
}

func TestBuildIndexUnknownRevision(t *testing.T) {
	t.Parallel()

	_, err := porting.BuildIndex(context.Background(), newFakeHistory(), newMemCache(), porting.DefaultFilter(), "17.0", "")
	require.Error(t, err)
}
