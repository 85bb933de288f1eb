package gitlib

import (
	"fmt"
	"strings"

	git2go "github.com/libgit2/git2go/v34"
)

// Commit wraps a libgit2 commit.
type Commit struct {
	commit *git2go.Commit
	repo   *Repository
}

// Hash returns the commit hash.
func (c *Commit) Hash() Hash {
	return HashFromOid(c.commit.Id())
}

// Author returns the commit author.
func (c *Commit) Author() Signature {
	return signatureFromNative(c.commit.Author())
}

// Committer returns the commit committer.
func (c *Commit) Committer() Signature {
	return signatureFromNative(c.commit.Committer())
}

// Message returns the commit message.
func (c *Commit) Message() string {
	return c.commit.Message()
}

// Summary returns the first line of the message.
func (c *Commit) Summary() string {
	msg := strings.TrimLeft(c.commit.Message(), "\n")
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		msg = msg[:idx]
	}

	return strings.TrimSpace(msg)
}

// NumParents returns the number of parent commits.
func (c *Commit) NumParents() int {
	return int(c.commit.ParentCount())
}

// ParentHash returns the hash of the nth parent.
func (c *Commit) ParentHash(n int) Hash {
	return HashFromOid(c.commit.ParentId(uint(n)))
}

// Tree returns the tree associated with this commit.
func (c *Commit) Tree() (*Tree, error) {
	tree, err := c.commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("get commit tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// parentTree returns the first parent's tree, or nil for a root commit.
func (c *Commit) parentTree() (*Tree, error) {
	if c.commit.ParentCount() == 0 {
		return nil, nil
	}

	parent := c.commit.Parent(0)
	if parent == nil {
		return nil, fmt.Errorf("%w: parent of %s", ErrCommitNotFound, c.Hash())
	}
	defer parent.Free()

	tree, err := parent.Tree()
	if err != nil {
		return nil, fmt.Errorf("get parent tree: %w", err)
	}

	return &Tree{tree: tree, repo: c.repo}, nil
}

// Changes returns the files changed against the first parent, or against the
// empty tree for a root commit.
func (c *Commit) Changes() (Changes, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, err
	}
	defer tree.Free()

	parent, err := c.parentTree()
	if err != nil {
		return nil, err
	}

	if parent != nil {
		defer parent.Free()
	}

	return TreeDiff(c.repo, parent, tree)
}

// Touches reports whether the entry at path differs from the first parent.
func (c *Commit) Touches(path string) (bool, error) {
	tree, err := c.Tree()
	if err != nil {
		return false, err
	}
	defer tree.Free()

	current, hasCurrent := tree.entryID(path)

	parent, err := c.parentTree()
	if err != nil {
		return false, err
	}

	if parent == nil {
		return hasCurrent, nil
	}
	defer parent.Free()

	previous, hasPrevious := parent.entryID(path)
	if hasCurrent != hasPrevious {
		return true, nil
	}

	return hasCurrent && current != previous, nil
}

// Free releases the commit resources.
func (c *Commit) Free() {
	if c.commit != nil {
		c.commit.Free()
		c.commit = nil
	}
}
