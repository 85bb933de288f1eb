package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// RevWalk wraps a libgit2 revision walker.
type RevWalk struct {
	walk *git2go.RevWalk
	repo *Repository
}

// newRevWalk creates a walker sorted newest first, parents after children.
func (r *Repository) newRevWalk() (*RevWalk, error) {
	walk, err := r.repo.Walk()
	if err != nil {
		return nil, fmt.Errorf("create revwalk: %w", err)
	}

	walk.Sorting(git2go.SortTime | git2go.SortTopological)

	return &RevWalk{walk: walk, repo: r}, nil
}

// Push adds a commit to start walking from.
func (w *RevWalk) Push(hash Hash) error {
	err := w.walk.Push(hash.ToOid())
	if err != nil {
		return fmt.Errorf("push to revwalk: %w", err)
	}

	return nil
}

// Hide excludes a commit and its ancestors from the walk.
func (w *RevWalk) Hide(hash Hash) error {
	err := w.walk.Hide(hash.ToOid())
	if err != nil {
		return fmt.Errorf("hide in revwalk: %w", err)
	}

	return nil
}

// Iterate calls the callback for each commit in the walk until it returns false.
func (w *RevWalk) Iterate(cb func(*Commit) bool) error {
	err := w.walk.Iterate(func(commit *git2go.Commit) bool {
		wrapped := &Commit{commit: commit, repo: w.repo}
		keep := cb(wrapped)
		wrapped.Free()

		return keep
	})
	if err != nil {
		return fmt.Errorf("revwalk iterate: %w", err)
	}

	return nil
}

// Free releases the walker resources.
func (w *RevWalk) Free() {
	if w.walk != nil {
		w.walk.Free()
		w.walk = nil
	}
}
