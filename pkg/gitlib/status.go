package gitlib

import (
	"errors"
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ErrDirtyWorktree is returned when pending changes prevent an operation.
var ErrDirtyWorktree = errors.New("changes not committed detected in this repository")

// StatusOptions selects what counts as a pending change.
type StatusOptions struct {
	Untracked bool
}

// ChangedPaths lists paths with staged or unstaged changes in the worktree.
func (r *Repository) ChangedPaths(opts StatusOptions) ([]string, error) {
	statusOpts := &git2go.StatusOptions{
		Show:  git2go.StatusShowIndexAndWorkdir,
		Flags: git2go.StatusOptExcludeSubmodules,
	}

	if opts.Untracked {
		statusOpts.Flags |= git2go.StatusOptIncludeUntracked | git2go.StatusOptRecurseUntrackedDirs
	}

	list, err := r.repo.StatusList(statusOpts)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	defer list.Free()

	count, err := list.EntryCount()
	if err != nil {
		return nil, fmt.Errorf("status count: %w", err)
	}

	paths := make([]string, 0, count)

	for i := range count {
		entry, entryErr := list.ByIndex(i)
		if entryErr != nil {
			return nil, fmt.Errorf("status entry %d: %w", i, entryErr)
		}

		if entry.Status == git2go.StatusCurrent || entry.Status&git2go.StatusIgnored != 0 {
			continue
		}

		if !opts.Untracked && entry.Status == git2go.StatusWtNew {
			continue
		}

		switch {
		case entry.IndexToWorkdir.NewFile.Path != "":
			paths = append(paths, entry.IndexToWorkdir.NewFile.Path)
		case entry.HeadToIndex.NewFile.Path != "":
			paths = append(paths, entry.HeadToIndex.NewFile.Path)
		}
	}

	return paths, nil
}

// IsDirty reports whether the worktree has pending changes.
func (r *Repository) IsDirty(opts StatusOptions) (bool, error) {
	paths, err := r.ChangedPaths(opts)
	if err != nil {
		return false, err
	}

	return len(paths) > 0, nil
}
