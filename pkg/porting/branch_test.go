package porting_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

func TestParseBranchRef(t *testing.T) {
	t.Parallel()

	remotes := []string{"origin", "camptocamp"}

	ref, err := porting.ParseBranchRef("origin/15.0", "", remotes, false)
	require.NoError(t, err)
	assert.Equal(t, porting.BranchRef{Remote: "origin", Name: "15.0"}, ref)
	assert.Equal(t, "origin/15.0", ref.Ref())

	ref, err = porting.ParseBranchRef("16.0", "origin", remotes, false)
	require.NoError(t, err)
	assert.Equal(t, "origin/16.0", ref.String())

	ref, err = porting.ParseBranchRef("16.0", "", remotes, false)
	require.NoError(t, err)
	assert.Equal(t, "16.0", ref.Ref())

	ref, err = porting.ParseBranchRef("feature/x", "", remotes, false)
	require.NoError(t, err)
	assert.Equal(t, "feature/x", ref.Ref())
}

func TestParseBranchRefUnknownRemote(t *testing.T) {
	t.Parallel()

	_, err := porting.ParseBranchRef("upstream/15.0", "", []string{"origin"}, true)
	require.ErrorIs(t, err, porting.ErrUnknownRemote)

	_, err = porting.ParseBranchRef("15.0", "upstream", []string{"origin"}, false)
	require.ErrorIs(t, err, porting.ErrUnknownRemote)
}
