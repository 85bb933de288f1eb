package app

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Sumatoshi-tech/ocaport/pkg/gitlib"
	"github.com/Sumatoshi-tech/ocaport/pkg/porting"
)

// Validation errors surfaced to the operator unchanged.
var (
	ErrBranchNotFound = errors.New("branch not found")
	ErrUnknownRemote  = porting.ErrUnknownRemote
	ErrDirtyWorktree  = gitlib.ErrDirtyWorktree
)

// Workspace is an opened repository with its remotes.
type Workspace struct {
	Repo     *gitlib.Repository
	Worktree *gitlib.Worktree

	remotes []gitlib.Remote
}

// OpenWorkspace opens the repository at path.
func OpenWorkspace(path string) (*Workspace, error) {
	repo, err := gitlib.OpenRepository(path)
	if err != nil {
		return nil, err
	}

	remotes, err := repo.Remotes()
	if err != nil {
		repo.Free()

		return nil, err
	}

	return &Workspace{
		Repo:     repo,
		Worktree: gitlib.NewWorktree(repo.Workdir()),
		remotes:  remotes,
	}, nil
}

// Close releases the repository.
func (w *Workspace) Close() {
	w.Repo.Free()
}

// RemoteNames lists the configured remotes.
func (w *Workspace) RemoteNames() []string {
	names := make([]string, 0, len(w.remotes))
	for _, r := range w.remotes {
		names = append(names, r.Name)
	}

	return names
}

// HasRemote reports whether name is a configured remote.
func (w *Workspace) HasRemote(name string) bool {
	return slices.Contains(w.RemoteNames(), name)
}

// Location parses the URL of the named remote.
func (w *Workspace) Location(name string) (gitlib.RemoteLocation, bool) {
	for _, r := range w.remotes {
		if r.Name != name {
			continue
		}

		loc, err := gitlib.ParseRemoteURL(r.URL)
		if err != nil {
			return gitlib.RemoteLocation{}, false
		}

		return loc, true
	}

	return gitlib.RemoteLocation{}, false
}

// CheckClean refuses worktrees with pending or untracked changes.
func (w *Workspace) CheckClean() error {
	changed, err := w.Repo.ChangedPaths(gitlib.StatusOptions{Untracked: true})
	if err != nil {
		return err
	}

	if len(changed) > 0 {
		return fmt.Errorf("%w: %s", ErrDirtyWorktree, changed[0])
	}

	return nil
}

// Branch parses raw as "[remote/]name", defaulting to defaultRemote. A
// prefix that is not a configured remote is rejected.
func (w *Workspace) Branch(raw, defaultRemote string) (porting.BranchRef, error) {
	return porting.ParseBranchRef(raw, defaultRemote, w.RemoteNames(), true)
}

// Ensure fetches ref when asked to, or when a remote branch is unknown
// locally, then checks that it resolves.
func (w *Workspace) Ensure(ctx context.Context, ref porting.BranchRef, fetch bool) error {
	if ref.Remote != "" && (fetch || !w.Repo.HasRevision(ref.Ref())) {
		err := w.Worktree.Fetch(ctx, ref.Remote, ref.Name)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", ref.Ref(), err)
		}
	}

	if !w.Repo.HasRevision(ref.Ref()) {
		return fmt.Errorf("%w: %s", ErrBranchNotFound, ref.Ref())
	}

	return nil
}
