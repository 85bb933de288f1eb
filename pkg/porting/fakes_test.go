package porting_test

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

var baseTime = time.Date(2023, time.March, 1, 9, 0, 0, 0, time.UTC)

func author(hour int) porting.Author {
	return porting.Author{Name: "Jane Doe", Email: "jane@example.com", When: baseTime.Add(time.Duration(hour) * time.Hour)}
}

type fakeCommit struct {
	sha     string
	author  porting.Author
	message string
	parents []string
	files   []string
}

// fakeHistory keeps branches as oldest-first commit lists.
type fakeHistory struct {
	branches map[string][]fakeCommit
	commits  map[string]fakeCommit
	seq      int
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{branches: map[string][]fakeCommit{}, commits: map[string]fakeCommit{}}
}

func (h *fakeHistory) add(branch string, a porting.Author, message string, files ...string) string {
	h.seq++
	sha := fmt.Sprintf("%040x", h.seq)

	c := fakeCommit{sha: sha, author: a, message: message, files: files}
	if tip := h.branches[branch]; len(tip) > 0 {
		c.parents = []string{tip[len(tip)-1].sha}
	}

	h.commits[sha] = c
	h.branches[branch] = append(h.branches[branch], c)

	return sha
}

func (h *fakeHistory) addMerge(branch string, a porting.Author, files ...string) string {
	sha := h.add(branch, a, "Merge PR", files...)
	c := h.commits[sha]
	c.parents = append(c.parents, "ffffffffffffffffffffffffffffffffffffffff")
	h.commits[sha] = c

	list := h.branches[branch]
	list[len(list)-1] = c

	return sha
}

// fork copies the history of from into a new branch.
func (h *fakeHistory) fork(from, to string) {
	h.branches[to] = slices.Clone(h.branches[from])
}

func touches(files []string, path string) bool {
	if path == "" {
		return true
	}

	for _, f := range files {
		if f == path || strings.HasPrefix(f, path+"/") {
			return true
		}
	}

	return false
}

func (h *fakeHistory) Log(_ context.Context, rev, path string) ([]string, error) {
	list, ok := h.branches[rev]
	if !ok {
		return nil, fmt.Errorf("unknown revision %s", rev)
	}

	var shas []string

	for i := len(list) - 1; i >= 0; i-- {
		if touches(list[i].files, path) {
			shas = append(shas, list[i].sha)
		}
	}

	return shas, nil
}

func (h *fakeHistory) Commit(_ context.Context, sha string) (*porting.Commit, error) {
	c, ok := h.commits[sha]
	if !ok {
		return nil, fmt.Errorf("%w: %s", porting.ErrCommitNotFound, sha)
	}

	return porting.NewCommit(c.sha, c.author, c.message, c.parents, c.files), nil
}

func (h *fakeHistory) HasPath(_ context.Context, rev, path string) (bool, error) {
	for _, c := range h.branches[rev] {
		if touches(c.files, path) {
			return true, nil
		}
	}

	return false, nil
}

type memCache struct {
	ported map[string]bool
	prs    map[string]porting.PullRequestData
	files  map[string][]string
	saves  int
}

func newMemCache() *memCache {
	return &memCache{ported: map[string]bool{}, prs: map[string]porting.PullRequestData{}, files: map[string][]string{}}
}

func (c *memCache) IsCommitPorted(sha string) bool { return c.ported[sha] }

func (c *memCache) MarkCommitPorted(sha string) error {
	c.ported[sha] = true

	return nil
}

func (c *memCache) Save() error {
	c.saves++

	return nil
}

func (c *memCache) Clear() error {
	*c = *newMemCache()

	return nil
}

func (c *memCache) CommitFiles(sha string) ([]string, bool) {
	files, ok := c.files[sha]

	return files, ok
}

func (c *memCache) SetCommitFiles(sha string, files []string) error {
	c.files[sha] = files

	return nil
}

func (c *memCache) PullRequestOf(sha string) (porting.PullRequestData, bool) {
	data, ok := c.prs[sha]

	return data, ok
}

func (c *memCache) StorePullRequest(sha string, data porting.PullRequestData) error {
	c.prs[sha] = data

	return nil
}

// forgetfulCache drops pull request lookups, like a read-only or disabled cache.
type forgetfulCache struct {
	*memCache
}

func (forgetfulCache) StorePullRequest(string, porting.PullRequestData) error { return nil }

var errRateLimited = errors.New("API rate limit exceeded")

// fakeFinder maps commit SHAs to pull requests.
type fakeFinder struct {
	bySHA   map[string][]porting.RemotePullRequest
	commits map[int][]string
	err     error
	// failAfter makes every lookup past that many calls fail when set.
	failAfter int
	calls     int
}

func newFakeFinder() *fakeFinder {
	return &fakeFinder{bySHA: map[string][]porting.RemotePullRequest{}, commits: map[int][]string{}}
}

func (f *fakeFinder) addPR(number int, base, mergedAt string, shas ...string) {
	pr := porting.RemotePullRequest{
		PullRequestData: porting.PullRequestData{
			Number:   number,
			URL:      fmt.Sprintf("https://github.com/OCA/server-tools/pull/%d", number),
			Author:   "jdoe",
			Title:    fmt.Sprintf("PR %d", number),
			MergedAt: mergedAt,
		},
		BaseBranch: base,
	}

	for _, sha := range shas {
		f.bySHA[sha] = append(f.bySHA[sha], pr)
	}

	f.commits[number] = shas
}

func (f *fakeFinder) PullRequestsForCommit(_ context.Context, _, _, sha string) ([]porting.RemotePullRequest, error) {
	f.calls++

	if f.err != nil {
		return nil, f.err
	}

	if f.failAfter > 0 && f.calls > f.failAfter {
		return nil, errRateLimited
	}

	return f.bySHA[sha], nil
}

func (f *fakeFinder) PullRequestCommits(_ context.Context, _, _ string, number int) ([]string, error) {
	return f.commits[number], nil
}

type mapBlacklist map[string]string

func (b mapBlacklist) PullRequestBlacklisted(ref string) (string, bool) {
	reason, ok := b[ref]

	return reason, ok
}

type notices []string

func (n *notices) Emit(text string) { *n = append(*n, text) }
