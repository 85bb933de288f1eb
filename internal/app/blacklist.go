package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/ocaport/pkg/blacklist"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// DefaultBlacklistReason is recorded when none is given; {ref} is replaced
// by each pull request reference.
const DefaultBlacklistReason = "Nothing to port from PR #{ref}"

// ErrNoPullRequests is returned when the blacklist command names no pull request.
var ErrNoPullRequests = errors.New("no pull request to blacklist")

// BlacklistOptions describe pull requests to exclude from porting.
type BlacklistOptions struct {
	RepoPath string
	// PullRequests holds numbers, "org/repo#N" refs or pull request URLs.
	PullRequests []string
	Target       string
	Addon        string
	Reason       string
	Remote       string
}

// BlacklistResult reports what was committed.
type BlacklistResult struct {
	Branch string
	Refs   []string
}

// SplitRefs splits a comma separated list, dropping blanks.
func SplitRefs(raw string) []string {
	var refs []string

	for part := range strings.SplitSeq(raw, ",") {
		if ref := strings.TrimSpace(part); ref != "" {
			refs = append(refs, ref)
		}
	}

	return refs
}

// BlacklistBranch returns the local branch receiving a blacklist commit.
func BlacklistBranch(addonName, target string) string {
	return fmt.Sprintf("oca-port-%s-%s-blacklist", addonName, target)
}

// Blacklist records pull requests in the addon blacklist and commits it on a
// fresh branch started from the target branch.
func (a *App) Blacklist(ctx context.Context, opts BlacklistOptions) (BlacklistResult, error) {
	if len(opts.PullRequests) == 0 {
		return BlacklistResult{}, ErrNoPullRequests
	}

	ws, err := OpenWorkspace(opts.RepoPath)
	if err != nil {
		return BlacklistResult{}, err
	}
	defer ws.Close()

	err = ws.CheckClean()
	if err != nil {
		return BlacklistResult{}, err
	}

	remote := opts.Remote
	if remote == "" {
		remote = a.deps.Config.Upstream.Remote
	}

	target, err := ws.Branch(opts.Target, remote)
	if err != nil {
		return BlacklistResult{}, err
	}

	err = ws.Ensure(ctx, target, false)
	if err != nil {
		return BlacklistResult{}, err
	}

	store, err := blacklist.Load(blacklist.Source{
		Tree:    ws.Repo,
		Rev:     target.Ref(),
		Addon:   opts.Addon,
		Root:    ws.Worktree.Dir(),
		EnvFile: a.deps.Config.Blacklist.EnvFile,
	})
	if err != nil {
		return BlacklistResult{}, err
	}

	org, repo, _ := upstreamOf(ws, target, a.deps.Config, "")

	reason := opts.Reason
	if reason == "" {
		reason = DefaultBlacklistReason
	}

	res := BlacklistResult{Branch: BlacklistBranch(opts.Addon, target.Name)}

	for _, raw := range opts.PullRequests {
		ref := normalizeRef(raw, org, repo)
		store.BlacklistPR(ref, strings.ReplaceAll(reason, "{ref}", ref))
		res.Refs = append(res.Refs, ref)
	}

	err = a.freshBranch(ctx, ws, res.Branch, target)
	if err != nil {
		return BlacklistResult{}, err
	}

	message := fmt.Sprintf("oca-port: blacklist PR(s) %s for %s", strings.Join(res.Refs, ", "), opts.Addon)

	err = store.Commit(ctx, ws.Repo, ws.Worktree, target.Name, message)
	if err != nil {
		return BlacklistResult{}, err
	}

	a.deps.Console.Success(fmt.Sprintf("Blacklisted %s for %s on branch %s",
		strings.Join(res.Refs, ", "), opts.Addon, terminal.Bold(res.Branch)))

	return res, nil
}

// freshBranch recreates name from target and checks it out.
func (a *App) freshBranch(ctx context.Context, ws *Workspace, name string, target porting.BranchRef) error {
	if ws.Repo.LocalBranchExists(name) {
		current, err := ws.Repo.CurrentBranch()
		if err != nil {
			return err
		}

		if current == name {
			err = ws.Worktree.Checkout(ctx, target.Ref())
			if err != nil {
				return err
			}
		}

		err = ws.Worktree.DeleteBranch(ctx, name)
		if err != nil {
			return err
		}
	}

	return ws.Worktree.CreateBranch(ctx, name, target.Ref())
}

// normalizeRef turns pull request URLs into "org/repo#N" and qualifies bare
// numbers with the upstream repository.
func normalizeRef(raw, org, repo string) string {
	if ref := porting.RefFromURL(raw); ref != "" && strings.Contains(raw, "/pull/") {
		return ref
	}

	number := strings.TrimPrefix(raw, "#")
	if _, err := strconv.Atoi(number); err == nil && org != "" && repo != "" {
		return fmt.Sprintf("%s/%s#%s", org, repo, number)
	}

	return raw
}
