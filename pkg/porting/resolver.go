package porting

import (
	"context"
	"log/slog"
)

// Resolver attributes commits to their originating pull request.
type Resolver struct {
	Cache  Cache
	Finder PRFinder
	// Owner and Repo locate the upstream repository on the hosting platform.
	Owner string
	Repo  string
	// Branch and Version are the source branch name and its Odoo series;
	// pull requests are matched on their base branch against both.
	Branch  string
	Version string
	// Online is false when no remote is hosted on the platform.
	Online bool

	Logger   *slog.Logger
	Recorder Recorder
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}

	return slog.New(slog.DiscardHandler)
}

func (r *Resolver) recorder() Recorder {
	if r.Recorder != nil {
		return r.Recorder
	}

	return nopRecorder{}
}

// Resolve returns the pull request that introduced c, or fallback with c
// appended when none can be found. Network failures degrade to fallback.
func (r *Resolver) Resolve(ctx context.Context, c *Commit, fallback *PullRequest) *PullRequest {
	if data, ok := r.Cache.PullRequestOf(c.SHA); ok {
		r.recorder().PullRequestResolved(ctx, SourceCache)

		return NewPullRequest(data)
	}

	if !r.Online || r.Finder == nil {
		return r.orphan(ctx, c, fallback)
	}

	data, found, err := r.lookup(ctx, c.SHA)
	if err != nil {
		r.logger().WarnContext(ctx, "pull request lookup failed", "sha", c.SHA, "error", err)

		return r.orphan(ctx, c, fallback)
	}

	if !found {
		return r.orphan(ctx, c, fallback)
	}

	storeErr := r.Cache.StorePullRequest(c.SHA, data)
	if storeErr != nil {
		r.logger().WarnContext(ctx, "cache pull request", "sha", c.SHA, "error", storeErr)
	}

	r.recorder().PullRequestResolved(ctx, SourceAPI)

	return NewPullRequest(data)
}

func (r *Resolver) orphan(ctx context.Context, c *Commit, fallback *PullRequest) *PullRequest {
	fallback.AppendCommit(c.SHA)
	r.recorder().PullRequestResolved(ctx, SourceOrphan)

	return fallback
}

func (r *Resolver) lookup(ctx context.Context, sha string) (PullRequestData, bool, error) {
	candidates, err := r.Finder.PullRequestsForCommit(ctx, r.Owner, r.Repo, sha)
	if err != nil {
		return PullRequestData{}, false, err
	}

	match, ok := pickByBase(candidates, r.Branch)
	if !ok && r.Version != "" && r.Version != r.Branch {
		match, ok = pickByBase(candidates, r.Version)
	}

	if !ok {
		return PullRequestData{}, false, nil
	}

	commits, err := r.Finder.PullRequestCommits(ctx, r.Owner, r.Repo, match.Number)
	if err != nil {
		return PullRequestData{}, false, err
	}

	data := match.PullRequestData
	data.Commits = commits

	return data, true, nil
}

func pickByBase(candidates []RemotePullRequest, base string) (RemotePullRequest, bool) {
	for _, candidate := range candidates {
		if candidate.BaseBranch == base {
			return candidate, true
		}
	}

	return RemotePullRequest{}, false
}
