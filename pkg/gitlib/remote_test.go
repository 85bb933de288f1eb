package gitlib_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
)

func TestParseRemoteURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want gitlib.RemoteLocation
	}{
		{"https://github.com/OCA/edi.git", gitlib.RemoteLocation{Host: "github.com", Owner: "OCA", Repo: "edi"}},
		{"https://github.com/OCA/edi", gitlib.RemoteLocation{Host: "github.com", Owner: "OCA", Repo: "edi"}},
		{"git@github.com:camptocamp/edi.git", gitlib.RemoteLocation{Host: "github.com", Owner: "camptocamp", Repo: "edi"}},
		{"ssh://git@GitHub.com/OCA/server-tools.git", gitlib.RemoteLocation{Host: "github.com", Owner: "OCA", Repo: "server-tools"}},
		{"https://gitlab.example.com/acme/addons/", gitlib.RemoteLocation{Host: "gitlab.example.com", Owner: "acme", Repo: "addons"}},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			t.Parallel()

			got, err := gitlib.ParseRemoteURL(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, raw := range []string{"/tmp/upstream", "https://github.com/OCA", "https://github.com/a/b/c"} {
		_, err := gitlib.ParseRemoteURL(raw)
		require.ErrorIs(t, err, gitlib.ErrUnsupportedURL, raw)
	}
}

func TestRemoteLocationIsGitHub(t *testing.T) {
	t.Parallel()

	assert.True(t, gitlib.RemoteLocation{Host: "github.com"}.IsGitHub())
	assert.False(t, gitlib.RemoteLocation{Host: "gitlab.com"}.IsGitHub())
}

func TestRemotes(t *testing.T) {
	t.Parallel()

	tr := gitlib.NewTestRepo(t)
	tr.AddRemote("origin", "https://github.com/OCA/test.git")
	tr.AddRemote("fork", "git@github.com:me/test.git")

	repo := tr.Open()

	remotes, err := repo.Remotes()
	require.NoError(t, err)
	assert.ElementsMatch(t, []gitlib.Remote{
		{Name: "origin", URL: "https://github.com/OCA/test.git"},
		{Name: "fork", URL: "git@github.com:me/test.git"},
	}, remotes)

	_, err = repo.LookupRemote("upstream")
	require.ErrorIs(t, err, gitlib.ErrRemoteNotFound)
}
