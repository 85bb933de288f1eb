package porting

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
)

// GitHistory reads commits from a local repository. Changed files are
// memoized in the cache, keyed by SHA, since computing them needs a tree diff.
type GitHistory struct {
	Repo  *gitlib.Repository
	Cache Cache
}

// NewGitHistory returns a History over repo.
func NewGitHistory(repo *gitlib.Repository, cache Cache) *GitHistory {
	return &GitHistory{Repo: repo, Cache: cache}
}

// Log implements History.
func (h *GitHistory) Log(ctx context.Context, rev, path string) ([]string, error) {
	hashes, err := h.Repo.Log(ctx, rev, &gitlib.LogOptions{Path: path})
	if err != nil {
		return nil, err
	}

	shas := make([]string, len(hashes))
	for i, hash := range hashes {
		shas[i] = hash.String()
	}

	return shas, nil
}

// Commit implements History.
func (h *GitHistory) Commit(ctx context.Context, sha string) (*Commit, error) {
	hash, err := gitlib.ParseHash(sha)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, sha)
	}

	native, err := h.Repo.LookupCommit(ctx, hash)
	if errors.Is(err, gitlib.ErrCommitNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, sha)
	}

	if err != nil {
		return nil, err
	}
	defer native.Free()

	files, err := h.files(sha, native)
	if err != nil {
		return nil, err
	}

	parents := make([]string, native.NumParents())
	for i := range parents {
		parents[i] = native.ParentHash(i).String()
	}

	sig := native.Author()

	return NewCommit(sha, Author{Name: sig.Name, Email: sig.Email, When: sig.When}, native.Message(), parents, files), nil
}

func (h *GitHistory) files(sha string, native *gitlib.Commit) ([]string, error) {
	if files, ok := h.Cache.CommitFiles(sha); ok {
		return files, nil
	}

	changes, err := native.Changes()
	if err != nil {
		return nil, fmt.Errorf("diff %s: %w", sha, err)
	}

	files := changes.Paths()

	// Merges are noise and their first-parent diff is large.
	if native.NumParents() <= 1 {
		_ = h.Cache.SetCommitFiles(sha, files) // best effort
	}

	return files, nil
}

// HasPath implements History.
func (h *GitHistory) HasPath(_ context.Context, rev, path string) (bool, error) {
	return h.Repo.HasPath(rev, path)
}
