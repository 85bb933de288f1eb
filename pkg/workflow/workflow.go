// Package workflow carries out what a branch diff calls for: porting pull
// requests onto a work branch, or migrating a whole addon to a new series.
// Every step that changes the repository or opens a pull request is
// confirmed through the injected prompter.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/Sumatoshi-tech/ocaport/pkg/blacklist"
	"github.com/Sumatoshi-tech/ocaport/pkg/github"
	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
	"github.com/Sumatoshi-tech/ocaport/pkg/terminal"
)

// ErrConflict wraps a failed patch application.
var ErrConflict = errors.New("patches do not apply cleanly")

// ErrUnstagedChanges is returned when a migration starts from a dirty worktree.
var ErrUnstagedChanges = errors.New("you have unstaged changes, please commit or stash them")

const compareURLFormat = "https://github.com/%s/%s/compare/%s...%s:%s?%s"

// Repository is the read side of the local clone.
type Repository interface {
	CommitChanges(rev string) (gitlib.Changes, error)
	LocalBranchExists(name string) bool
	ChangedPaths(opts gitlib.StatusOptions) ([]string, error)
	CurrentBranch() (string, error)
}

// Worktree mutates the checked-out copy.
type Worktree interface {
	Dir() string
	Checkout(ctx context.Context, rev string) error
	CreateBranch(ctx context.Context, name, start string) error
	DeleteBranch(ctx context.Context, name string) error
	FormatPatch(ctx context.Context, outDir, revRange string, single bool, paths ...string) ([]string, error)
	Am(ctx context.Context, patches ...string) error
	AmAbort(ctx context.Context) error
	Add(ctx context.Context, paths ...string) error
	Commit(ctx context.Context, message string, noVerify bool) error
	Push(ctx context.Context, remote, branch string) error
	RevParse(ctx context.Context, rev string) (string, error)
}

// Hosting searches and opens pull requests on the upstream repository.
type Hosting interface {
	SearchPullRequests(ctx context.Context, query github.SearchQuery) ([]github.PullRequest, error)
	CreatePullRequest(ctx context.Context, owner, repo string, pr github.NewPullRequest) (string, error)
}

// Settings locate the branches and hosting coordinates of a run.
type Settings struct {
	Addon         string
	Source        porting.BranchRef
	Target        porting.BranchRef
	SourceVersion string
	TargetVersion string

	// UpstreamOrg and RepoName locate the repository pull requests target.
	UpstreamOrg string
	RepoName    string

	// ForkRemote receives pushed branches; empty disables pushing.
	ForkRemote string
	// ForkOrg owns ForkRemote; empty disables pull request creation.
	ForkOrg string

	// Branch overrides the derived work branch name.
	Branch string
	// KeepBranch resumes an existing work branch instead of offering to
	// recreate it.
	KeepBranch bool

	// SessionDir is the cache root holding session files.
	SessionDir string
}

// Deps are the collaborators shared by the workflows. Hosting may be nil,
// which disables pull request search and creation.
type Deps struct {
	Repo      Repository
	Worktree  Worktree
	Hosting   Hosting
	Blacklist *blacklist.Store
	Console   *terminal.Console
	Prompter  terminal.Prompter
	Logger    *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}

	return d.Logger
}

// CompareURL returns the page opening a pull request from forkOrg:branch
// into base on the upstream repository, with title prefilled.
func CompareURL(upstreamOrg, repoName, base, forkOrg, branch, title string) string {
	query := url.Values{"expand": {"1"}, "title": {title}}

	return fmt.Sprintf(compareURLFormat, upstreamOrg, repoName, base, forkOrg, branch, query.Encode())
}

// applyPatches formats revRange restricted to paths and applies the result
// with a three-way am. It returns the number of applied patches. A failing am
// is reported as ErrConflict and left in progress for the caller to resolve
// or abort.
func applyPatches(ctx context.Context, wt Worktree, revRange string, single bool, paths []string) (int, error) {
	dir, err := os.MkdirTemp("", "ocaport-patches-")
	if err != nil {
		return 0, fmt.Errorf("create patches dir: %w", err)
	}
	defer os.RemoveAll(dir)

	patches, err := wt.FormatPatch(ctx, dir, revRange, single, paths...)
	if err != nil {
		return 0, fmt.Errorf("format patches %s: %w", revRange, err)
	}

	if len(patches) == 0 {
		return 0, nil
	}

	err = wt.Am(ctx, patches...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConflict, err)
	}

	return len(patches), nil
}
