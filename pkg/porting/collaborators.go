package porting

import (
	"context"
	"errors"
)

// ErrCommitNotFound is returned by History when a SHA is not in the repository.
var ErrCommitNotFound = errors.New("commit not found")

// History reads commits from the repository.
type History interface {
	// Log lists the SHAs reachable from rev, newest first, restricted to
	// commits touching path when path is not empty.
	Log(ctx context.Context, rev, path string) ([]string, error)
	// Commit materializes sha, returning ErrCommitNotFound when missing.
	Commit(ctx context.Context, sha string) (*Commit, error)
	// HasPath reports whether path exists in the tree of rev.
	HasPath(ctx context.Context, rev, path string) (bool, error)
}

// Cache persists what earlier runs learned about commits.
type Cache interface {
	IsCommitPorted(sha string) bool
	MarkCommitPorted(sha string) error
	PullRequestOf(sha string) (PullRequestData, bool)
	StorePullRequest(sha string, data PullRequestData) error
	CommitFiles(sha string) ([]string, bool)
	SetCommitFiles(sha string, files []string) error
	Save() error
	Clear() error
}

// RemotePullRequest is a pull request found on the hosting platform.
type RemotePullRequest struct {
	PullRequestData
	BaseBranch string
}

// PRFinder queries the hosting platform.
type PRFinder interface {
	PullRequestsForCommit(ctx context.Context, owner, repo, sha string) ([]RemotePullRequest, error)
	PullRequestCommits(ctx context.Context, owner, repo string, number int) ([]string, error)
}

// Blacklist answers whether a pull request was excluded from porting.
type Blacklist interface {
	// PullRequestBlacklisted returns the reason a reference is blacklisted.
	PullRequestBlacklisted(ref string) (string, bool)
}

// Notifier receives human-readable notices.
type Notifier interface {
	Emit(text string)
}

// Recorder receives diff counters.
type Recorder interface {
	CommitsScanned(ctx context.Context, role string, count int)
	PullRequestResolved(ctx context.Context, source string)
	PullRequestBlacklisted(ctx context.Context)
}

// Resolution sources reported to Recorder.
const (
	SourceCache  = "cache"
	SourceAPI    = "api"
	SourceOrphan = "orphan"
)

type nopRecorder struct{}

func (nopRecorder) CommitsScanned(context.Context, string, int) {}
func (nopRecorder) PullRequestResolved(context.Context, string) {}
func (nopRecorder) PullRequestBlacklisted(context.Context)      {}

type nopNotifier struct{}

func (nopNotifier) Emit(string) {}

// NoBlacklist blacklists nothing.
type NoBlacklist struct{}

// PullRequestBlacklisted implements Blacklist.
func (NoBlacklist) PullRequestBlacklisted(string) (string, bool) { return "", false }
