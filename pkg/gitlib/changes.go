package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"
)

// ChangeAction represents the type of change in a diff.
type ChangeAction int

const (
	// Insert indicates a new file was added.
	Insert ChangeAction = iota
	// Delete indicates a file was removed.
	Delete
	// Modify indicates a file was modified.
	Modify
)

// String returns the git status letter for the action.
func (a ChangeAction) String() string {
	switch a {
	case Insert:
		return "A"
	case Delete:
		return "D"
	default:
		return "M"
	}
}

// Change represents a single file change between two trees.
type Change struct {
	Action ChangeAction
	From   string
	To     string
}

// Path returns the path the change applies to on the new side, or the old
// path for a deletion.
func (c Change) Path() string {
	if c.To != "" {
		return c.To
	}

	return c.From
}

// Changes is a collection of Change objects.
type Changes []Change

// Paths returns every path named by the changes, old and new sides included.
func (cs Changes) Paths() []string {
	seen := make(map[string]struct{}, len(cs))
	paths := make([]string, 0, len(cs))

	for _, c := range cs {
		for _, p := range []string{c.From, c.To} {
			if p == "" {
				continue
			}

			if _, ok := seen[p]; ok {
				continue
			}

			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}

	return paths
}

// TreeDiff computes the changes between two trees. A nil old tree stands for
// the empty tree.
func TreeDiff(repo *Repository, oldTree, newTree *Tree) (Changes, error) {
	if oldTree != nil && newTree != nil && oldTree.Hash() == newTree.Hash() {
		return Changes{}, nil
	}

	opts, err := git2go.DefaultDiffOptions()
	if err != nil {
		return nil, fmt.Errorf("get diff options: %w", err)
	}

	var oldT, newT *git2go.Tree
	if oldTree != nil {
		oldT = oldTree.tree
	}

	if newTree != nil {
		newT = newTree.tree
	}

	diff, err := repo.repo.DiffTreeToTree(oldT, newT, &opts)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	defer diff.Free()

	numDeltas, err := diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	changes := make(Changes, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		switch delta.Status {
		case git2go.DeltaAdded:
			changes = append(changes, Change{Action: Insert, To: delta.NewFile.Path})
		case git2go.DeltaDeleted:
			changes = append(changes, Change{Action: Delete, From: delta.OldFile.Path})
		case git2go.DeltaModified, git2go.DeltaRenamed, git2go.DeltaCopied, git2go.DeltaTypeChange:
			changes = append(changes, Change{Action: Modify, From: delta.OldFile.Path, To: delta.NewFile.Path})
		case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
			git2go.DeltaUnreadable, git2go.DeltaConflicted:
			continue
		}
	}

	return changes, nil
}
