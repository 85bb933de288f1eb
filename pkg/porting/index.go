package porting

import (
	"context"
	"fmt"
)

// Index is the noise-free history of a branch, oldest first.
type Index struct {
	Commits []*Commit
	BySHA   map[string]*Commit

	// byAuthor buckets commits on the fields both equality modes share.
	byAuthor map[authorKey][]*Commit
}

type authorKey struct {
	name, email, when string
}

func keyOf(c *Commit) authorKey {
	return authorKey{name: c.AuthorName, email: c.AuthorEmail, when: c.AuthoredAt.Format(authoredLayout)}
}

func (ix *Index) add(c *Commit) {
	ix.Commits = append(ix.Commits, c)
	ix.BySHA[c.SHA] = c
	ix.byAuthor[keyOf(c)] = append(ix.byAuthor[keyOf(c)], c)
}

// Contains reports whether a commit equal to c under mode is indexed.
func (ix *Index) Contains(c *Commit, mode EqualityMode) bool {
	for _, candidate := range ix.byAuthor[keyOf(c)] {
		if candidate.Equal(c, mode) {
			return true
		}
	}

	return false
}

// Matches returns every indexed commit equal to c under mode, oldest first.
func (ix *Index) Matches(c *Commit, mode EqualityMode) []*Commit {
	var out []*Commit

	for _, candidate := range ix.byAuthor[keyOf(c)] {
		if candidate.Equal(c, mode) {
			out = append(out, candidate)
		}
	}

	return out
}

// Len returns the number of indexed commits.
func (ix *Index) Len() int {
	return len(ix.Commits)
}

// commitSource materializes commits, memoizing them for one diff run so that
// links recorded on a commit survive across phases.
type commitSource struct {
	history History
	memo    map[string]*Commit
}

func newCommitSource(history History) *commitSource {
	return &commitSource{history: history, memo: make(map[string]*Commit)}
}

func (s *commitSource) get(ctx context.Context, sha string) (*Commit, error) {
	if c, ok := s.memo[sha]; ok {
		return c, nil
	}

	c, err := s.history.Commit(ctx, sha)
	if err != nil {
		return nil, err
	}

	s.memo[sha] = c

	return c, nil
}

// BuildIndex walks rev (restricted to path when set), skips SHAs the cache
// knows as ported and noise commits, and returns the rest oldest first.
func BuildIndex(ctx context.Context, history History, cache Cache, filter Filter, rev, path string) (*Index, error) {
	return buildIndex(ctx, newCommitSource(history), cache, filter, rev, path)
}

func buildIndex(ctx context.Context, source *commitSource, cache Cache, filter Filter, rev, path string) (*Index, error) {
	shas, err := source.history.Log(ctx, rev, path)
	if err != nil {
		return nil, fmt.Errorf("log %s: %w", rev, err)
	}

	ix := &Index{
		Commits:  make([]*Commit, 0, len(shas)),
		BySHA:    make(map[string]*Commit, len(shas)),
		byAuthor: make(map[authorKey][]*Commit),
	}

	for i := len(shas) - 1; i >= 0; i-- {
		sha := shas[i]
		if cache.IsCommitPorted(sha) {
			continue
		}

		c, getErr := source.get(ctx, sha)
		if getErr != nil {
			return nil, getErr
		}

		if filter.IsNoise(c) {
			continue
		}

		ix.add(c)
	}

	return ix, nil
}
